package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/planner"
	"github.com/hpungsan/tagfit/internal/record"
)

// PlanInput contains parameters for the Plan operation. Records are planned
// directly, or loaded from a stored draft when ID or Name is set.
type PlanInput struct {
	Records []record.Record
	ID      string
	Name    string
	Target  Target
}

// PlanOutput contains the result of the Plan operation.
type PlanOutput struct {
	ResolvedTarget
	DraftID       string             `json:"draft_id,omitempty"`
	MandatorySize int                `json:"mandatory_size"`
	RequestedSize int                `json:"requested_size"`
	Plan          *planner.WritePlan `json:"plan"`
	Remaining     int                `json:"remaining"`
}

// Plan fits a record set to a tag's budget. Fails with CAPACITY_EXCEEDED
// when the mandatory records alone do not fit.
func Plan(ctx context.Context, database *sql.DB, table *capacity.Table, input PlanInput) (*PlanOutput, error) {
	records := input.Records
	var draftID string

	if input.ID != "" || input.Name != "" {
		if len(records) > 0 {
			return nil, errors.NewInvalidRequest("cannot specify both records and a draft")
		}
		d, err := fetchDraft(ctx, database, input.ID, input.Name)
		if err != nil {
			return nil, err
		}
		records = d.Records
		draftID = d.ID
	}
	if len(records) == 0 {
		return nil, errors.NewInvalidRequest("records are required")
	}

	target, err := resolveTarget(table, input.Target)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(records, target.EffectiveBudget)
	if err != nil {
		return nil, err
	}

	mandatory, _ := planner.Split(records)
	return &PlanOutput{
		ResolvedTarget: target,
		DraftID:        draftID,
		MandatorySize:  record.SizeOf(mandatory...),
		RequestedSize:  record.SizeOf(records...),
		Plan:           plan,
		Remaining:      plan.Remaining(target.EffectiveBudget),
	}, nil
}
