package session

import (
	"context"

	"github.com/hpungsan/tagfit/internal/record"
)

// ScanEvent is what the transport reports for one physical tap.
type ScanEvent struct {
	// Serial is the raw identifier reported by the reader. May be empty.
	Serial string `json:"serial,omitempty"`

	// Message holds the records currently stored on the tag, if read.
	Message []record.Record `json:"message,omitempty"`
}

// Transport is the physical tag reader/writer.
//
// DetectTag blocks until a tag is presented and reports each tap once.
// WriteTag blocks until the write completes and is atomic: either every
// record lands or none do.
type Transport interface {
	DetectTag(ctx context.Context) (ScanEvent, error)
	WriteTag(ctx context.Context, records []record.Record) error
}
