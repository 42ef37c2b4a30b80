package program

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/trainplan/internal/ingest"
	"github.com/claude/trainplan/internal/models"
	"github.com/google/uuid"
)

// MaxDocumentBytes caps the size of an imported program document.
const MaxDocumentBytes = 4 << 20

// Store is the persistence the importer needs. *storage.DB satisfies it.
type Store interface {
	GetActiveProgram(ctx context.Context, userID int) (*models.ProgramRecord, error)
	ReplaceActiveProgram(ctx context.Context, rec *models.ProgramRecord) error
}

// Provider imports program documents and makes them the active program.
type Provider struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewProvider creates a new program ingest provider.
func NewProvider(store Store, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log, now: time.Now}
}

// Ingest parses a program document and atomically replaces the user's active
// program with it. On any error the previously active program is kept.
// Re-importing the document that is already active is reported as unchanged.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading program document: %w", err)
	}
	if len(data) > MaxDocumentBytes {
		return nil, &InvalidFormatError{Errors: []FieldError{{
			Field:   "(root)",
			Message: fmt.Sprintf("document exceeds %d bytes", MaxDocumentBytes),
		}}}
	}

	program, warnings, err := Parse(data)
	if err != nil {
		return nil, err
	}

	result := &ingest.Result{
		ProgramName: program.ProgramName,
		Weeks:       program.DurationWeeks,
	}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.String())
		p.log.Warn("program lint", "program", program.ProgramName, "path", w.Path, "message", w.Message)
	}

	hash := HashDocument(data)
	current, err := p.store.GetActiveProgram(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading active program: %w", err)
	}
	if current != nil && current.SourceHash == hash {
		id := current.ID
		result.ProgramID = &id
		result.Unchanged = true
		result.Message = "program already active"
		return result, nil
	}

	rec := &models.ProgramRecord{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          program.ProgramName,
		DurationWeeks: program.DurationWeeks,
		Program:       *program,
		SourceHash:    hash,
		Active:        true,
		ImportedAt:    p.now().UTC(),
	}
	if err := p.store.ReplaceActiveProgram(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing program: %w", err)
	}

	p.log.Info("program imported",
		"program", rec.Name,
		"id", rec.ID,
		"weeks", rec.DurationWeeks,
		"warnings", len(warnings),
	)
	result.ProgramID = &rec.ID
	result.Message = "program imported"
	return result, nil
}

// HashDocument returns the hex SHA-256 of a program document.
func HashDocument(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
