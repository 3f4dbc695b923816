package session_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
	"github.com/hpungsan/tagfit/internal/session"
	"github.com/hpungsan/tagfit/internal/transport/memtag"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sized returns a text record whose encoded size is exactly n bytes.
func sized(n int, fill string) record.Record {
	return record.Text(strings.Repeat(fill, n-record.Overhead))
}

func badgeRecords(readers ...int) []record.Record {
	records := []record.Record{sized(40, "u"), sized(40, "m"), sized(40, "o")}
	for i, n := range readers {
		records = append(records, sized(n, string(rune('a'+i))))
	}
	return records
}

func newAdapter(reader *memtag.Reader) *session.Adapter {
	return session.New(reader, capacity.DefaultTable())
}

func TestWrite_FitsUnchanged(t *testing.T) {
	reader := memtag.NewReader()
	tag := memtag.NewTag("ntag216-aa", 888)
	reader.Present(tag)

	records := badgeRecords(70, 70)
	res, err := newAdapter(reader).Write(context.Background(), records)
	require.NoError(t, err)

	require.Equal(t, capacity.NTAG216, res.Event.TagType)
	require.Equal(t, 848, res.Event.EffectiveBudget)
	require.False(t, res.Planned)
	require.Empty(t, res.Plan.Excluded)
	require.Equal(t, 260, res.Plan.TotalEncodedSize)
	require.True(t, record.EqualAll(records, tag.Records()))
}

func TestWrite_PlansWhenTooLarge(t *testing.T) {
	reader := memtag.NewReader()
	tag := memtag.NewTag("04:ab:cd:ef", 504)
	reader.Present(tag)

	records := badgeRecords(70, 70, 70, 70, 70)
	res, err := newAdapter(reader).Write(context.Background(), records)
	require.NoError(t, err)

	require.Equal(t, capacity.DefaultType, res.Event.TagType)
	require.True(t, res.Planned)
	require.Len(t, res.Plan.Included, 7)
	require.Len(t, res.Plan.Excluded, 1)
	require.Equal(t, 400, res.Plan.TotalEncodedSize)
	require.True(t, record.EqualAll(res.Plan.Included, tag.Records()))
}

func TestWrite_MandatoryTooLarge(t *testing.T) {
	reader := memtag.NewReader()
	tag := memtag.NewTag("ntag213", 144)
	reader.Present(tag)

	var (
		mu     sync.Mutex
		gotErr error
	)
	adapter := newAdapter(reader)
	s, err := adapter.Begin(context.Background(), session.Options{
		Mode:    session.ModeWrite,
		Records: badgeRecords(),
		OnWrite: func(session.WriteResult) { t.Error("OnWrite called for a failed plan") },
		OnError: func(err error) {
			mu.Lock()
			gotErr = err
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	err = s.Wait()
	require.True(t, errors.Is(err, errors.ErrCapacityExceeded), "err = %v", err)
	mandatory, budget, ok := errors.CapacityDetails(err)
	require.True(t, ok)
	require.Equal(t, 120, mandatory)
	require.Equal(t, 104, budget)

	mu.Lock()
	require.Equal(t, err, gotErr)
	mu.Unlock()
	require.Zero(t, tag.Writes(), "nothing may be written when mandatory records do not fit")
}

func TestWrite_TransportFailure(t *testing.T) {
	reader := memtag.NewReader()
	reader.Present(memtag.NewTag("ntag215", 504))
	removed := stderrors.New("tag removed mid-write")
	reader.FailNextWrite(removed)

	var errs []error
	adapter := newAdapter(reader)
	s, err := adapter.Begin(context.Background(), session.Options{
		Mode:    session.ModeWrite,
		Records: badgeRecords(20),
		OnError: func(err error) { errs = append(errs, err) },
	})
	require.NoError(t, err)

	err = s.Wait()
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.ErrorIs(t, err, removed)
	require.Len(t, errs, 1)
	require.Nil(t, s.Result())
}

func TestWrite_DetectFailure(t *testing.T) {
	reader := memtag.NewReader()
	unsupported := stderrors.New("NFC not supported")
	reader.FailNextDetect(unsupported)

	_, err := newAdapter(reader).Write(context.Background(), badgeRecords())
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.ErrorIs(t, err, unsupported)
}

func TestWrite_RequiresRecords(t *testing.T) {
	_, err := newAdapter(memtag.NewReader()).Begin(context.Background(), session.Options{Mode: session.ModeWrite})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRead_EnrichesEvents(t *testing.T) {
	reader := memtag.NewReader()
	reader.Present(memtag.NewTag("NTAG213-1", 144))
	reader.Present(memtag.NewTag("", 504))
	reader.Present(memtag.NewTag("ntag216", 888))

	var (
		mu     sync.Mutex
		events []session.Event
	)
	adapter := newAdapter(reader)
	s, err := adapter.Begin(context.Background(), session.Options{
		Mode:      session.ModeRead,
		MaxEvents: 3,
		OnEvent: func(ev session.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	require.Equal(t, capacity.NTAG213, events[0].TagType)
	require.Equal(t, 104, events[0].EffectiveBudget)
	require.Equal(t, capacity.DefaultType, events[1].TagType)
	require.Equal(t, 464, events[1].EffectiveBudget)
	require.Equal(t, capacity.NTAG216, events[2].TagType)
}

func TestRead_Single(t *testing.T) {
	reader := memtag.NewReader()
	reader.Present(memtag.NewTag("ntag215-x", 504))

	ev, err := newAdapter(reader).Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ntag215-x", ev.Serial)
	require.Equal(t, capacity.NTAG215, ev.TagType)
}

func TestStop_IsIdempotentAndQuiet(t *testing.T) {
	reader := memtag.NewReader()
	adapter := newAdapter(reader)

	s, err := adapter.Begin(context.Background(), session.Options{
		Mode:    session.ModeRead,
		OnError: func(err error) { t.Errorf("OnError called on stop: %v", err) },
	})
	require.NoError(t, err)

	s.Stop()
	s.Stop()
	<-s.Done()
	require.True(t, errors.Is(s.Err(), errors.ErrSessionClosed))
	require.ErrorIs(t, s.Err(), context.Canceled)
	s.Stop()
	adapter.Stop()
}

func TestBegin_StopsPriorSession(t *testing.T) {
	reader := memtag.NewReader()
	adapter := newAdapter(reader)

	first, err := adapter.Begin(context.Background(), session.Options{Mode: session.ModeRead})
	require.NoError(t, err)

	second, err := adapter.Begin(context.Background(), session.Options{Mode: session.ModeRead, MaxEvents: 1})
	require.NoError(t, err)

	select {
	case <-first.Done():
	default:
		t.Fatal("first session still running after second Begin")
	}
	require.True(t, errors.Is(first.Err(), errors.ErrSessionClosed))

	reader.Present(memtag.NewTag("ntag213", 144))
	require.NoError(t, second.Wait())
	require.NotEqual(t, first.ID, second.ID)
}

func TestWrite_ContextCanceled(t *testing.T) {
	reader := memtag.NewReader()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newAdapter(reader).Write(ctx, badgeRecords())
	require.True(t, errors.Is(err, errors.ErrSessionClosed))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStop_FromCallback(t *testing.T) {
	reader := memtag.NewReader()
	for range 3 {
		reader.Present(memtag.NewTag("ntag215", 504))
	}

	adapter := newAdapter(reader)
	var (
		mu    sync.Mutex
		count int
		s     *session.Session
		ready = make(chan struct{})
	)
	s, err := adapter.Begin(context.Background(), session.Options{
		Mode: session.ModeRead,
		OnEvent: func(session.Event) {
			<-ready
			mu.Lock()
			count++
			mu.Unlock()
			s.Stop()
		},
	})
	require.NoError(t, err)
	close(ready)

	<-s.Done()
	mu.Lock()
	require.Equal(t, 1, count)
	mu.Unlock()
}

func TestAdapterCancel_FromCallback(t *testing.T) {
	reader := memtag.NewReader()
	for range 3 {
		reader.Present(memtag.NewTag("ntag213", 144))
	}

	adapter := newAdapter(reader)
	var (
		mu       sync.Mutex
		count    int
		failures []error
	)
	s, err := adapter.Begin(context.Background(), session.Options{
		Mode: session.ModeRead,
		OnEvent: func(session.Event) {
			mu.Lock()
			count++
			mu.Unlock()
			adapter.Cancel()
		},
		OnError: func(err error) {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after Cancel from OnEvent")
	}
	require.ErrorIs(t, s.Err(), context.Canceled)

	mu.Lock()
	require.Equal(t, 1, count)
	require.Empty(t, failures)
	mu.Unlock()

	adapter.Stop()
	adapter.Cancel()
}
