package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/tagfit/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID   string
	Name string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete removes a draft.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	d, err := fetchDraft(ctx, database, input.ID, input.Name)
	if err != nil {
		return nil, err
	}

	if err := db.Delete(ctx, database, d.ID); err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted: true,
		ID:      d.ID,
	}, nil
}
