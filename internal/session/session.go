package session

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/planner"
	"github.com/hpungsan/tagfit/internal/record"
)

// Mode selects what a session does with each tap.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// Event is a scan event enriched with the resolved capacity of the tag.
type Event struct {
	ScanEvent
	TagType         capacity.TagType `json:"tag_type"`
	Profile         capacity.Profile `json:"profile"`
	EffectiveBudget int              `json:"effective_budget"`
}

// WriteResult describes a completed write. A non-empty Plan.Excluded is
// still a successful write.
type WriteResult struct {
	Event Event              `json:"event"`
	Plan  *planner.WritePlan `json:"plan"`

	// Planned is true when the record set had to be reduced to fit.
	Planned bool `json:"planned"`
}

// Options configures a scan session.
type Options struct {
	Mode Mode

	// Records is the record set to write. Required in ModeWrite.
	Records []record.Record

	// MaxEvents ends a read session after that many taps. 0 means no limit.
	MaxEvents int

	OnEvent func(Event)
	OnWrite func(WriteResult)

	// OnError receives TRANSPORT and CAPACITY_EXCEEDED errors. Stopping a
	// session is not reported.
	OnError func(error)
}

// Adapter runs scan sessions against one transport. At most one session is
// active at a time.
type Adapter struct {
	transport Transport
	table     *capacity.Table
	resolver  *capacity.Resolver
	logger    *zap.Logger

	mu     sync.Mutex
	active *Session
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the log sink. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithResolver replaces the default marker-based resolver.
func WithResolver(r *capacity.Resolver) Option {
	return func(a *Adapter) {
		if r != nil {
			a.resolver = r
		}
	}
}

// New creates an adapter over transport using table for capacity lookups.
func New(transport Transport, table *capacity.Table, opts ...Option) *Adapter {
	if table == nil {
		table = capacity.DefaultTable()
	}
	a := &Adapter{
		transport: transport,
		table:     table,
		resolver:  capacity.NewResolver(table),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session is one running scan session.
type Session struct {
	ID   string
	Mode Mode

	cancel context.CancelFunc
	done   chan struct{}

	// Written by the session goroutine before done is closed.
	err    error
	result *WriteResult
	last   *Event
}

// Stop cancels the session. Safe to call more than once and from callbacks.
func (s *Session) Stop() {
	s.cancel()
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its error.
// Must not be called from a session callback.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Err returns the terminal error, or nil while running or on success.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Result returns the write result once a write session has completed.
func (s *Session) Result() *WriteResult {
	select {
	case <-s.done:
		return s.result
	default:
		return nil
	}
}

// Begin starts a session, stopping and waiting out any session already
// active on this adapter. Callbacks run on the session goroutine and must
// not call Begin.
func (a *Adapter) Begin(ctx context.Context, opts Options) (*Session, error) {
	if opts.Mode == ModeWrite && len(opts.Records) == 0 {
		return nil, errors.NewInvalidRequest("write session requires at least one record")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if prev := a.active; prev != nil {
		prev.Stop()
		<-prev.done
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:     newSessionID(),
		Mode:   opts.Mode,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	a.active = s

	go a.run(sctx, s, opts)
	return s, nil
}

// Cancel stops the active session, if any, without waiting for it to end.
// Safe to call from callbacks.
func (a *Adapter) Cancel() {
	if s := a.current(); s != nil {
		s.Stop()
	}
}

// Stop stops the active session, if any, and waits for it to end.
// Callbacks run on the session goroutine and must use Cancel instead.
func (a *Adapter) Stop() {
	if s := a.current(); s != nil {
		s.Stop()
		<-s.done
	}
}

func (a *Adapter) current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Write runs a write session to completion: it waits for one tap, fits
// records to the tag and writes them.
func (a *Adapter) Write(ctx context.Context, records []record.Record) (*WriteResult, error) {
	s, err := a.Begin(ctx, Options{Mode: ModeWrite, Records: records})
	if err != nil {
		return nil, err
	}
	if err := s.Wait(); err != nil {
		return nil, err
	}
	return s.result, nil
}

// Read waits for one tap and returns the enriched event.
func (a *Adapter) Read(ctx context.Context) (*Event, error) {
	s, err := a.Begin(ctx, Options{Mode: ModeRead, MaxEvents: 1})
	if err != nil {
		return nil, err
	}
	if err := s.Wait(); err != nil {
		return nil, err
	}
	return s.last, nil
}

// Enrich attaches the resolved tag type and budget to a raw scan event.
func (a *Adapter) Enrich(ev ScanEvent) Event {
	typ := a.resolver.Resolve(ev.Serial)
	profile := a.table.ProfileFor(typ)
	return Event{
		ScanEvent:       ev,
		TagType:         typ,
		Profile:         profile,
		EffectiveBudget: capacity.EffectiveBudget(profile),
	}
}

func (a *Adapter) run(ctx context.Context, s *Session, opts Options) {
	defer close(s.done)
	defer s.cancel()

	log := a.logger.With(zap.String("session", s.ID), zap.Stringer("mode", opts.Mode))
	log.Debug("scan session started")

	events := 0
	for {
		if ctx.Err() != nil {
			s.err = a.fail(ctx, log, ctx.Err(), opts.OnError)
			return
		}
		raw, err := a.transport.DetectTag(ctx)
		if err != nil {
			s.err = a.fail(ctx, log, err, opts.OnError)
			return
		}

		ev := a.Enrich(raw)
		events++
		s.last = &ev
		log.Debug("tag detected",
			zap.String("serial", ev.Serial),
			zap.String("tag_type", string(ev.TagType)),
			zap.Int("effective_budget", ev.EffectiveBudget))
		if opts.OnEvent != nil {
			opts.OnEvent(ev)
		}

		if opts.Mode == ModeRead {
			if opts.MaxEvents > 0 && events >= opts.MaxEvents {
				log.Debug("scan session finished", zap.Int("events", events))
				return
			}
			continue
		}

		res, err := a.write(ctx, log, ev, opts.Records)
		if err != nil {
			s.err = a.fail(ctx, log, err, opts.OnError)
			return
		}
		s.result = res
		if opts.OnWrite != nil {
			opts.OnWrite(*res)
		}
		return
	}
}

// write fits records to the tag's budget and writes them in one call.
func (a *Adapter) write(ctx context.Context, log *zap.Logger, ev Event, records []record.Record) (*WriteResult, error) {
	res := &WriteResult{Event: ev}

	if size := record.SizeOf(records...); size <= ev.EffectiveBudget {
		res.Plan = &planner.WritePlan{
			Included:         records,
			Excluded:         []record.Record{},
			TotalEncodedSize: size,
		}
	} else {
		plan, err := planner.Plan(records, ev.EffectiveBudget)
		if err != nil {
			return nil, err
		}
		res.Plan = plan
		res.Planned = true
		if plan.Dropped() {
			log.Warn("optional records dropped to fit tag",
				zap.Int("excluded", len(plan.Excluded)),
				zap.Int("requested_size", size),
				zap.Int("effective_budget", ev.EffectiveBudget))
		}
	}

	if err := a.transport.WriteTag(ctx, res.Plan.Included); err != nil {
		return nil, errors.NewTransport(err)
	}
	log.Info("tag written",
		zap.String("tag_type", string(ev.TagType)),
		zap.Int("records", len(res.Plan.Included)),
		zap.Int("bytes", res.Plan.TotalEncodedSize))
	return res, nil
}

// fail classifies a session error. Cancellation ends the session quietly;
// anything else goes to onError.
func (a *Adapter) fail(ctx context.Context, log *zap.Logger, err error, onError func(error)) error {
	if ctx.Err() != nil {
		log.Debug("scan session stopped")
		closed := errors.NewSessionClosed()
		closed.Cause = ctx.Err()
		return closed
	}
	if !errors.Is(err, errors.ErrCapacityExceeded) && !errors.Is(err, errors.ErrTransport) {
		err = errors.NewTransport(err)
	}
	log.Error("scan session failed", zap.Error(err))
	if onError != nil {
		onError(err)
	}
	return err
}

func newSessionID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
