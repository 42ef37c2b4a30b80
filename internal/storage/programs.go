package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/trainplan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoActiveProgram is returned by callers that need a program when the user
// has none. GetActiveProgram itself reports absence as (nil, nil).
var ErrNoActiveProgram = errors.New("no active program")

// GetActiveProgram returns the user's active program, or nil when none is set.
func (db *DB) GetActiveProgram(ctx context.Context, userID int) (*models.ProgramRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, duration_weeks, program, source_hash, active, imported_at
		 FROM programs
		 WHERE user_id = $1 AND active`,
		userID)

	rec, err := scanProgram(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active program: %w", err)
	}
	return rec, nil
}

// ReplaceActiveProgram stores rec and makes it the user's only active program.
// Both steps run in one transaction so a failed import keeps the old program.
func (db *DB) ReplaceActiveProgram(ctx context.Context, rec *models.ProgramRecord) error {
	doc, err := json.Marshal(rec.Program)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE programs SET active = FALSE WHERE user_id = $1 AND active`,
		rec.UserID); err != nil {
		return fmt.Errorf("deactivating programs: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO programs (id, user_id, name, duration_weeks, program, source_hash, active, imported_at)
		 VALUES ($1,$2,$3,$4,$5,$6,TRUE,$7)`,
		rec.ID, rec.UserID, rec.Name, rec.DurationWeeks, doc, rec.SourceHash, rec.ImportedAt); err != nil {
		return fmt.Errorf("inserting program: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing program: %w", err)
	}
	rec.Active = true
	return nil
}

// ClearActiveProgram deactivates the user's program. Stored programs and
// workout logs are kept. Returns false if nothing was active.
func (db *DB) ClearActiveProgram(ctx context.Context, userID int) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE programs SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return false, fmt.Errorf("clearing active program: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ProgramSummary is a stored program without its document.
type ProgramSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	DurationWeeks int       `json:"duration_weeks"`
	Active        bool      `json:"active"`
	ImportedAt    time.Time `json:"imported_at"`
}

// ListPrograms returns every program the user has imported, newest first.
func (db *DB) ListPrograms(ctx context.Context, userID int) ([]ProgramSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, duration_weeks, active, imported_at
		 FROM programs
		 WHERE user_id = $1
		 ORDER BY imported_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying programs: %w", err)
	}
	defer rows.Close()

	var result []ProgramSummary
	for rows.Next() {
		var p ProgramSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationWeeks, &p.Active, &p.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning program: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanProgram(row pgx.Row) (*models.ProgramRecord, error) {
	var rec models.ProgramRecord
	var doc []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.DurationWeeks, &doc,
		&rec.SourceHash, &rec.Active, &rec.ImportedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doc, &rec.Program); err != nil {
		return nil, fmt.Errorf("decoding program %s: %w", rec.ID, err)
	}
	return &rec, nil
}
