package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies how a record's payload is interpreted on the tag.
type Kind string

const (
	KindURL    Kind = "url"
	KindText   Kind = "text"
	KindOpaque Kind = "opaque"
)

// Valid reports whether k is one of the known record kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindURL, KindText, KindOpaque:
		return true
	}
	return false
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown record kind %q (want url, text or opaque)", s)
	}
	return k, nil
}

// Record is one structured unit of data written to a tag.
// Records are values; the payload must not be mutated after construction.
type Record struct {
	Kind    Kind
	Payload []byte
}

// URL creates a URL record.
func URL(u string) Record {
	return Record{Kind: KindURL, Payload: []byte(u)}
}

// Text creates a text record. The payload is the UTF-8 encoding of s.
func Text(s string) Record {
	return Record{Kind: KindText, Payload: []byte(s)}
}

// Opaque creates a record carrying raw bytes. The bytes are copied.
func Opaque(b []byte) Record {
	return Record{Kind: KindOpaque, Payload: append([]byte(nil), b...)}
}

// String returns the payload as text for url and text records.
func (r Record) String() string {
	if r.Kind == KindOpaque {
		return fmt.Sprintf("opaque(%d bytes)", len(r.Payload))
	}
	return string(r.Payload)
}

// Equal reports whether two records have the same kind and payload.
func (r Record) Equal(o Record) bool {
	return r.Kind == o.Kind && string(r.Payload) == string(o.Payload)
}

// wireRecord is the JSON form used by drafts, the CLI and MCP tools.
type wireRecord struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{Kind: r.Kind}
	if r.Kind == KindOpaque {
		w.Data = r.Payload
	} else {
		w.Text = string(r.Payload)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, err := ParseKind(string(w.Kind))
	if err != nil {
		return err
	}
	switch kind {
	case KindOpaque:
		if w.Text != "" {
			return fmt.Errorf("opaque record takes data, not text")
		}
		*r = Opaque(w.Data)
	default:
		if len(w.Data) > 0 {
			return fmt.Errorf("%s record takes text, not data", kind)
		}
		*r = Record{Kind: kind, Payload: []byte(w.Text)}
	}
	return nil
}

// EqualAll reports whether two record sequences match element by element.
func EqualAll(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
