package ops

import (
	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/planner"
	"github.com/hpungsan/tagfit/internal/record"
)

// EstimateInput contains parameters for the Estimate operation.
type EstimateInput struct {
	Records []record.Record
}

// RecordEstimate is the encoded size of one record.
type RecordEstimate struct {
	Index     int         `json:"index"`
	Kind      record.Kind `json:"kind"`
	Size      int         `json:"size"`
	Mandatory bool        `json:"mandatory"`
}

// ProfileFit reports how a record set sits against one tag type.
type ProfileFit struct {
	TagType         capacity.TagType `json:"tag_type"`
	EffectiveBudget int              `json:"effective_budget"`
	FitsAll         bool             `json:"fits_all"`
	MandatoryFits   bool             `json:"mandatory_fits"`
}

// EstimateOutput contains the result of the Estimate operation.
type EstimateOutput struct {
	Records       []RecordEstimate `json:"records"`
	MandatorySize int              `json:"mandatory_size"`
	OptionalSize  int              `json:"optional_size"`
	TotalSize     int              `json:"total_size"`
	Fits          []ProfileFit     `json:"fits"`
}

// Estimate sizes each record and checks the set against every tag type.
func Estimate(table *capacity.Table, input EstimateInput) *EstimateOutput {
	mandatory, optional := planner.Split(input.Records)

	out := &EstimateOutput{
		Records:       make([]RecordEstimate, 0, len(input.Records)),
		MandatorySize: record.SizeOf(mandatory...),
		OptionalSize:  record.SizeOf(optional...),
	}
	out.TotalSize = out.MandatorySize + out.OptionalSize

	for i, r := range input.Records {
		out.Records = append(out.Records, RecordEstimate{
			Index:     i,
			Kind:      r.Kind,
			Size:      record.Size(r),
			Mandatory: i < len(mandatory),
		})
	}

	for _, p := range table.Profiles() {
		budget := capacity.EffectiveBudget(p)
		out.Fits = append(out.Fits, ProfileFit{
			TagType:         p.Name,
			EffectiveBudget: budget,
			FitsAll:         out.TotalSize <= budget,
			MandatoryFits:   out.MandatorySize <= budget,
		})
	}

	return out
}
