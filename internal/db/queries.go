package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/tagfit/internal/draft"
	"github.com/hpungsan/tagfit/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.TagError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

const draftColumns = `id, name_raw, name_norm, title, records_json,
	encoded_size, created_at, updated_at`

// Insert stores a new draft.
func Insert(ctx context.Context, db *sql.DB, d *draft.Draft) error {
	recordsJSON, err := json.Marshal(d.Records)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO drafts (
			id, name_raw, name_norm, title, records_json,
			record_count, encoded_size, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		d.ID, d.NameRaw, d.NameNorm, toNullString(d.Title), string(recordsJSON),
		len(d.Records), d.EncodedSize, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// UpsertResult reports what Upsert did.
type UpsertResult struct {
	ID       string
	Replaced bool
}

// Upsert inserts d, or replaces the records and title of the draft with the
// same normalized name. The existing ID and created_at are kept on replace.
func Upsert(ctx context.Context, db *sql.DB, d *draft.Draft) (*UpsertResult, error) {
	recordsJSON, err := json.Marshal(d.Records)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM drafts WHERE name_norm = ?`, d.NameNorm).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO drafts (
				id, name_raw, name_norm, title, records_json,
				record_count, encoded_size, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			d.ID, d.NameRaw, d.NameNorm, toNullString(d.Title), string(recordsJSON),
			len(d.Records), d.EncodedSize, d.CreatedAt, d.UpdatedAt,
		)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, errors.NewInternal(err)
		}
		return &UpsertResult{ID: d.ID}, nil
	case err != nil:
		return nil, errors.NewInternal(err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE drafts
		SET name_raw = ?, title = ?, records_json = ?, record_count = ?,
			encoded_size = ?, updated_at = ?
		WHERE id = ?
	`,
		d.NameRaw, toNullString(d.Title), string(recordsJSON), len(d.Records),
		d.EncodedSize, d.UpdatedAt, existingID,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &UpsertResult{ID: existingID, Replaced: true}, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves a draft by its ULID.
func GetByID(ctx context.Context, db *sql.DB, id string) (*draft.Draft, error) {
	row := db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// GetByName retrieves a draft by normalized name.
func GetByName(ctx context.Context, db *sql.DB, nameNorm string) (*draft.Draft, error) {
	row := db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE name_norm = ?`, nameNorm)
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// List returns draft summaries, most recently updated first, and the total
// number of drafts.
func List(ctx context.Context, db *sql.DB, limit, offset int) ([]draft.Summary, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drafts`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name_raw, name_norm, title, record_count, encoded_size, created_at, updated_at
		FROM drafts
		ORDER BY updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []draft.Summary
	for rows.Next() {
		var (
			s     draft.Summary
			title sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.NameNorm, &title, &s.RecordCount,
			&s.EncodedSize, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.Title = fromNullString(title)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

// Delete permanently removes a draft.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}

	return nil
}

// scanDraft scans a single row into a Draft struct.
func scanDraft(row *sql.Row) (*draft.Draft, error) {
	var (
		d           draft.Draft
		title       sql.NullString
		recordsJSON string
	)

	err := row.Scan(
		&d.ID, &d.NameRaw, &d.NameNorm, &title, &recordsJSON,
		&d.EncodedSize, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Title = fromNullString(title)
	if err := json.Unmarshal([]byte(recordsJSON), &d.Records); err != nil {
		return nil, err
	}

	return &d, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
