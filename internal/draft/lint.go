package draft

import (
	"github.com/hpungsan/tagfit/internal/record"
)

// LintInput contains parameters for linting a draft's records.
type LintInput struct {
	Records        []record.Record
	MaxRecords     int
	RecordMaxBytes int
}

// LintResult contains the results of linting a draft.
type LintResult struct {
	Valid bool

	// TooMany is set when the draft holds more than MaxRecords records.
	TooMany bool

	// Oversized lists indexes of records larger than RecordMaxBytes.
	Oversized []int

	// LargestSize is the encoded size of the largest record.
	LargestSize int

	// InvalidKinds lists indexes of records with an unknown kind.
	InvalidKinds []int
}

// Lint checks a record set against the configured draft limits.
// Zero limits are not enforced.
func Lint(input LintInput) *LintResult {
	result := &LintResult{Valid: true}

	if input.MaxRecords > 0 && len(input.Records) > input.MaxRecords {
		result.TooMany = true
		result.Valid = false
	}

	for i, r := range input.Records {
		if !r.Kind.Valid() {
			result.InvalidKinds = append(result.InvalidKinds, i)
			result.Valid = false
		}
		size := record.Size(r)
		result.LargestSize = max(result.LargestSize, size)
		if input.RecordMaxBytes > 0 && size > input.RecordMaxBytes {
			result.Oversized = append(result.Oversized, i)
			result.Valid = false
		}
	}

	return result
}
