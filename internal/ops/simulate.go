package ops

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
	"github.com/hpungsan/tagfit/internal/session"
	"github.com/hpungsan/tagfit/internal/transport/memtag"
)

// SimulateInput contains parameters for the Simulate operation.
type SimulateInput struct {
	Records []record.Record

	// Serial is reported by the simulated tag. Defaults to the default tag type.
	Serial string

	// FailWrite makes the simulated write fail with a transport error.
	FailWrite bool
}

// SimulateOutput contains the result of the Simulate operation.
type SimulateOutput struct {
	session.WriteResult
	Remaining int             `json:"remaining"`
	OnTag     []record.Record `json:"on_tag"`
}

// Simulate runs a write session against an in-memory tag sized for the
// resolved profile, and reports what ended up on the tag.
func Simulate(ctx context.Context, logger *zap.Logger, table *capacity.Table, input SimulateInput) (*SimulateOutput, error) {
	if len(input.Records) == 0 {
		return nil, errors.NewInvalidRequest("records are required")
	}

	serial := strings.TrimSpace(input.Serial)
	if serial == "" {
		serial = string(table.Default().Name)
	}
	profile := capacity.NewResolver(table).Profile(serial)

	reader := memtag.NewReader()
	tag := memtag.NewTag(serial, profile.UsableBytes)
	if input.FailWrite {
		reader.FailNextWrite(fmt.Errorf("simulated write failure on %s", serial))
	}
	reader.Present(tag)

	adapter := session.New(reader, table, session.WithLogger(logger))
	res, err := adapter.Write(ctx, input.Records)
	if err != nil {
		return nil, err
	}

	return &SimulateOutput{
		WriteResult: *res,
		Remaining:   res.Plan.Remaining(res.Event.EffectiveBudget),
		OnTag:       tag.Records(),
	}, nil
}
