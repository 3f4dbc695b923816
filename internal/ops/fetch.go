package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tagfit/internal/db"
	"github.com/hpungsan/tagfit/internal/draft"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID   string
	Name string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	draft.Draft // embedded (copy, not pointer)
}

// Fetch retrieves a draft by ID or name.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	d, err := fetchDraft(ctx, database, input.ID, input.Name)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Draft: *d}, nil
}

func fetchDraft(ctx context.Context, database *sql.DB, id, name string) (*draft.Draft, error) {
	addr, err := ValidateAddress(id, name)
	if err != nil {
		return nil, err
	}
	if addr.ByID {
		return db.GetByID(ctx, database, addr.ID)
	}
	return db.GetByName(ctx, database, addr.Name)
}
