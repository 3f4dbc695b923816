package planner

import (
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
)

// MandatoryCount is the number of leading records (service URL, metadata,
// owner) that must all be written for a tag to be usable.
const MandatoryCount = 3

// WritePlan is the split of a record set into what gets written and what
// was dropped to fit the budget.
type WritePlan struct {
	Included         []record.Record `json:"included"`
	Excluded         []record.Record `json:"excluded"`
	TotalEncodedSize int             `json:"total_encoded_size"`
}

// Dropped reports whether any optional record was left out.
func (p *WritePlan) Dropped() bool {
	return len(p.Excluded) > 0
}

// Remaining returns the bytes of budget left unused by the plan.
func (p *WritePlan) Remaining(budget int) int {
	return budget - p.TotalEncodedSize
}

// Split returns the mandatory prefix and the optional suffix of records.
// Sets shorter than MandatoryCount are entirely mandatory.
func Split(records []record.Record) (mandatory, optional []record.Record) {
	if len(records) <= MandatoryCount {
		return records, nil
	}
	return records[:MandatoryCount], records[MandatoryCount:]
}

// Plan fits records into budget bytes. The mandatory prefix is kept whole;
// optional records are taken first-fit in their original order, and a record
// that does not fit does not stop the scan. Fails with CAPACITY_EXCEEDED when
// the mandatory prefix alone exceeds budget.
func Plan(records []record.Record, budget int) (*WritePlan, error) {
	mandatory, optional := Split(records)

	mandatorySize := record.SizeOf(mandatory...)
	if mandatorySize > budget {
		return nil, errors.NewCapacityExceeded(mandatorySize, budget)
	}

	included := make([]record.Record, 0, len(records))
	included = append(included, mandatory...)
	excluded := []record.Record{}

	remaining := budget - mandatorySize
	for _, r := range optional {
		size := record.Size(r)
		if size <= remaining {
			included = append(included, r)
			remaining -= size
			continue
		}
		excluded = append(excluded, r)
	}

	return &WritePlan{
		Included:         included,
		Excluded:         excluded,
		TotalEncodedSize: budget - remaining,
	}, nil
}
