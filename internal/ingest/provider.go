package ingest

import "github.com/google/uuid"

// Result holds the outcome of an ingest operation.
type Result struct {
	ProgramID   *uuid.UUID `json:"program_id,omitempty"`
	ProgramName string     `json:"program_name,omitempty"`
	Weeks       int        `json:"weeks,omitempty"`
	Unchanged   bool       `json:"unchanged,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`

	WorkoutsReceived int   `json:"workouts_received,omitempty"`
	WorkoutsInserted int   `json:"workouts_inserted,omitempty"`
	SetsReceived     int   `json:"sets_received,omitempty"`
	SetsInserted     int64 `json:"sets_inserted,omitempty"`

	Message string `json:"message,omitempty"`
}
