package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tagfit/internal/config"
	"github.com/hpungsan/tagfit/internal/db"
	"github.com/hpungsan/tagfit/internal/draft"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/record"
)

// StoreMode controls collision behavior.
type StoreMode string

const (
	StoreModeError   StoreMode = "error"   // default: fail on name collision
	StoreModeReplace StoreMode = "replace" // overwrite existing
)

// StoreInput contains parameters for the Store operation.
type StoreInput struct {
	Name    string          // required
	Title   *string         // default: same as name
	Records []record.Record // required
	Mode    StoreMode       // default: StoreModeError
}

// StoreOutput contains the result of the Store operation.
type StoreOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RecordCount int    `json:"record_count"`
	EncodedSize int    `json:"encoded_size"`
	Replaced    bool   `json:"replaced"`
}

// Store creates or replaces a draft.
func Store(ctx context.Context, database *sql.DB, cfg *config.Config, input StoreInput) (*StoreOutput, error) {
	if len(input.Records) == 0 {
		return nil, errors.NewInvalidRequest("records are required")
	}
	if input.Mode == "" {
		input.Mode = StoreModeError
	}
	if input.Mode != StoreModeError && input.Mode != StoreModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}

	nameNorm := draft.Normalize(input.Name)
	if nameNorm == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	nameRaw := strings.TrimSpace(input.Name)

	title := input.Title
	if title == nil {
		title = &nameRaw
	}

	lint := draft.Lint(draft.LintInput{
		Records:        input.Records,
		MaxRecords:     cfg.DraftMaxRecords,
		RecordMaxBytes: cfg.RecordMaxBytes,
	})
	if len(lint.InvalidKinds) > 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("record %d has an unknown kind", lint.InvalidKinds[0]))
	}
	if lint.TooMany {
		return nil, errors.NewDraftTooLarge("records", cfg.DraftMaxRecords, len(input.Records))
	}
	if len(lint.Oversized) > 0 {
		return nil, errors.NewDraftTooLarge("record bytes", cfg.RecordMaxBytes, lint.LargestSize)
	}

	// Generate ULID for new draft (may be discarded if upsert updates existing)
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	d := &draft.Draft{
		ID:          id,
		NameRaw:     nameRaw,
		NameNorm:    nameNorm,
		Title:       title,
		Records:     input.Records,
		EncodedSize: record.SizeOf(input.Records...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	out := &StoreOutput{
		ID:          id,
		Name:        nameRaw,
		RecordCount: len(d.Records),
		EncodedSize: d.EncodedSize,
	}

	if input.Mode == StoreModeReplace {
		result, err := db.Upsert(ctx, database, d)
		if err != nil {
			return nil, err
		}
		out.ID = result.ID
		out.Replaced = result.Replaced
		return out, nil
	}

	if err := db.Insert(ctx, database, d); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(nameRaw)
		}
		return nil, err
	}
	return out, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
