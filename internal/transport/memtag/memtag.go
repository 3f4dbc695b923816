// Package memtag is an in-memory tag reader used for dry runs and tests.
// Tags enforce their capacity and writes are all-or-nothing, like the
// physical medium.
package memtag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hpungsan/tagfit/internal/record"
	"github.com/hpungsan/tagfit/internal/session"
)

var (
	ErrNoTag   = errors.New("memtag: no tag in field")
	ErrTagFull = errors.New("memtag: message exceeds tag capacity")
)

// Tag is a simulated tag.
type Tag struct {
	Serial string

	// Capacity is the number of bytes available to the encoded message.
	Capacity int

	mu      sync.Mutex
	records []record.Record
	writes  int
}

// NewTag creates an empty tag.
func NewTag(serial string, capacity int) *Tag {
	return &Tag{Serial: serial, Capacity: capacity}
}

// Records returns a copy of what is stored on the tag.
func (t *Tag) Records() []record.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]record.Record(nil), t.records...)
}

// Writes returns how many writes have succeeded on the tag.
func (t *Tag) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

func (t *Tag) store(records []record.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if size := record.SizeOf(records...); size > t.Capacity {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrTagFull, size, t.Capacity)
	}
	t.records = append([]record.Record(nil), records...)
	t.writes++
	return nil
}

// Reader simulates a reader with a queue of taps.
type Reader struct {
	taps chan *Tag

	mu        sync.Mutex
	current   *Tag
	writeErr  error
	detectErr error
}

// NewReader creates a reader with room for queued taps.
func NewReader() *Reader {
	return &Reader{taps: make(chan *Tag, 16)}
}

// Present queues a tap of tag. It does not block unless 16 taps are
// already waiting.
func (r *Reader) Present(tag *Tag) {
	r.taps <- tag
}

// Remove takes the current tag out of the field.
func (r *Reader) Remove() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}

// FailNextWrite makes the next WriteTag call fail with err.
func (r *Reader) FailNextWrite(err error) {
	r.mu.Lock()
	r.writeErr = err
	r.mu.Unlock()
}

// FailNextDetect makes the next DetectTag call fail with err.
func (r *Reader) FailNextDetect(err error) {
	r.mu.Lock()
	r.detectErr = err
	r.mu.Unlock()
}

// DetectTag waits for the next queued tap.
func (r *Reader) DetectTag(ctx context.Context) (session.ScanEvent, error) {
	if err := ctx.Err(); err != nil {
		return session.ScanEvent{}, err
	}

	r.mu.Lock()
	if err := r.detectErr; err != nil {
		r.detectErr = nil
		r.mu.Unlock()
		return session.ScanEvent{}, err
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return session.ScanEvent{}, ctx.Err()
	case tag := <-r.taps:
		r.mu.Lock()
		r.current = tag
		r.mu.Unlock()
		return session.ScanEvent{Serial: tag.Serial, Message: tag.Records()}, nil
	}
}

// WriteTag writes records to the tag currently in the field.
func (r *Reader) WriteTag(ctx context.Context, records []record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	tag := r.current
	err := r.writeErr
	r.writeErr = nil
	r.mu.Unlock()

	if err != nil {
		return err
	}
	if tag == nil {
		return ErrNoTag
	}
	return tag.store(records)
}

var _ session.Transport = (*Reader)(nil)
