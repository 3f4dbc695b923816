package draft

import "github.com/hpungsan/tagfit/internal/record"

// Draft is a named record set waiting to be written to a tag.
// The first three records are mandatory; the rest are optional readers.
type Draft struct {
	// ID is a ULID that uniquely identifies this draft
	ID string `json:"id"`

	// NameRaw is the name as provided by the user
	NameRaw string `json:"name"`

	// NameNorm is the normalized name (lowercased, trimmed, collapsed spaces)
	NameNorm string `json:"name_norm"`

	// Title is an optional human-readable title
	Title *string `json:"title,omitempty"`

	Records []record.Record `json:"records"`

	// EncodedSize is record.SizeOf(Records...) at the time of storing
	EncodedSize int `json:"encoded_size"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Summary is a draft without its records, used by list.
type Summary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	NameNorm    string  `json:"name_norm"`
	Title       *string `json:"title,omitempty"`
	RecordCount int     `json:"record_count"`
	EncodedSize int     `json:"encoded_size"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

// ToSummary strips the records from a draft.
func (d *Draft) ToSummary() Summary {
	return Summary{
		ID:          d.ID,
		Name:        d.NameRaw,
		NameNorm:    d.NameNorm,
		Title:       d.Title,
		RecordCount: len(d.Records),
		EncodedSize: d.EncodedSize,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
