// Package workout imports completed workout logs, such as sessions recorded
// on another device.
package workout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/claude/trainplan/internal/ingest"
	"github.com/claude/trainplan/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxDocumentBytes caps the size of an imported workout document.
const MaxDocumentBytes = 8 << 20

// ErrTooLarge is returned for documents over MaxDocumentBytes.
var ErrTooLarge = errors.New("workout document too large")

// Store is the persistence the importer needs. *storage.DB satisfies it.
type Store interface {
	InsertWorkoutLog(ctx context.Context, log *models.WorkoutLog) (bool, int64, error)
}

// ValidationError lists the problems found in one workout log.
type ValidationError struct {
	Index  int
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workout %d: %s", e.Index, strings.Join(e.Fields, "; "))
}

// Provider imports workout log documents.
type Provider struct {
	store    Store
	log      *slog.Logger
	validate *validator.Validate
}

// NewProvider creates a new workout ingest provider.
func NewProvider(store Store, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log, validate: ingest.NewValidator()}
}

// Parse decodes a document holding one workout log or an array of them and
// validates every log. Missing ids are generated and a zero duration is
// derived from the start/end times minus paused time.
func (p *Provider) Parse(data []byte) ([]models.WorkoutLog, error) {
	data = bytes.TrimSpace(data)
	var logs []models.WorkoutLog
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &logs); err != nil {
			return nil, fmt.Errorf("decoding workout logs: %w", err)
		}
	} else {
		var one models.WorkoutLog
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decoding workout log: %w", err)
		}
		logs = []models.WorkoutLog{one}
	}

	var errs []error
	for i := range logs {
		l := &logs[i]
		if err := p.validate.Struct(l); err != nil {
			var ve validator.ValidationErrors
			if !errors.As(err, &ve) {
				return nil, fmt.Errorf("validating workout %d: %w", i, err)
			}
			verr := &ValidationError{Index: i}
			for _, fe := range ve {
				verr.Fields = append(verr.Fields, fmt.Sprintf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "WorkoutLog."), fe.ActualTag()))
			}
			errs = append(errs, verr)
			continue
		}
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.Day = strings.ToLower(l.Day)
		if l.DurationSec == 0 {
			l.DurationSec = max(int(l.EndedAt.Sub(l.StartedAt).Seconds())-l.PausedSec, 0)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return logs, nil
}

// Ingest parses a workout document and stores every log for userID. Logs
// whose id already exists are skipped.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading workout document: %w", err)
	}
	if len(data) > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, MaxDocumentBytes)
	}

	logs, err := p.Parse(data)
	if err != nil {
		return nil, err
	}

	result := &ingest.Result{WorkoutsReceived: len(logs)}
	for i := range logs {
		l := &logs[i]
		l.UserID = userID
		result.SetsReceived += len(l.Sets)

		inserted, sets, err := p.store.InsertWorkoutLog(ctx, l)
		if err != nil {
			return result, fmt.Errorf("storing workout %s: %w", l.ID, err)
		}
		if !inserted {
			p.log.Debug("workout already stored", "id", l.ID)
			continue
		}
		result.WorkoutsInserted++
		result.SetsInserted += sets
	}

	p.log.Info("workouts imported",
		"received", result.WorkoutsReceived,
		"inserted", result.WorkoutsInserted,
		"sets", result.SetsInserted,
	)
	result.Message = fmt.Sprintf("%d of %d workouts stored", result.WorkoutsInserted, result.WorkoutsReceived)
	return result, nil
}
