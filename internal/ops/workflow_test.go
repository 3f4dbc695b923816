package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/config"
	"github.com/hpungsan/tagfit/internal/errors"
)

// TestFullWorkflow exercises the draft lifecycle:
// store → list → plan → replace → plan → delete → fetch (not found)
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()
	table := capacity.DefaultTable()

	// 1. Store
	storeOut, err := Store(ctx, database, cfg, StoreInput{
		Name:    "Warehouse Gate",
		Records: sized(40, 40, 40, 70, 70, 70, 70, 70),
	})
	require.NoError(t, err)
	id := storeOut.ID
	require.NotEmpty(t, id)
	require.Equal(t, 470, storeOut.EncodedSize)

	// 2. List
	listOut, err := List(ctx, database, ListInput{})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, 8, listOut.Items[0].RecordCount)

	// 3. Plan against the default tag
	planOut, err := Plan(ctx, database, table, PlanInput{ID: id})
	require.NoError(t, err)
	require.Equal(t, id, planOut.DraftID)
	require.Len(t, planOut.Plan.Excluded, 1)
	require.Equal(t, 400, planOut.Plan.TotalEncodedSize)

	// 4. Plan against the large tag fits everything
	planOut, err = Plan(ctx, database, table, PlanInput{ID: id, Target: Target{Serial: "NTAG216"}})
	require.NoError(t, err)
	require.Empty(t, planOut.Plan.Excluded)
	require.Equal(t, 470, planOut.Plan.TotalEncodedSize)

	// 5. Replace with mandatory records too large for a small tag
	_, err = Store(ctx, database, cfg, StoreInput{
		Name:    "warehouse gate",
		Records: sized(60, 60, 60),
		Mode:    StoreModeReplace,
	})
	require.NoError(t, err)

	_, err = Plan(ctx, database, table, PlanInput{Name: "warehouse gate", Target: Target{TagType: "ntag213"}})
	require.True(t, errors.Is(err, errors.ErrCapacityExceeded))

	// 6. Delete
	_, err = Delete(ctx, database, DeleteInput{ID: id})
	require.NoError(t, err)

	// 7. Fetch → not found
	_, err = Fetch(ctx, database, FetchInput{ID: id})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
