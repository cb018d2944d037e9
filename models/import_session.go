package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportStatus represents the status of an import session
type ImportStatus string

const (
	ImportStatusStaged     ImportStatus = "staged"
	ImportStatusCommitting ImportStatus = "committing"
	ImportStatusCommitted  ImportStatus = "committed"
	ImportStatusPartial    ImportStatus = "partial"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusClosed     ImportStatus = "closed"
)

// ImportStep represents a step in the import pipeline
type ImportStep struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pending", "in_progress", "completed", "failed"
	Description string `json:"description,omitempty"`
}

// ImportSteps represents the ordered steps of one import
type ImportSteps []ImportStep

// Value implements driver.Valuer for JSONB
func (s ImportSteps) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]ImportStep{})
	}
	return json.Marshal([]ImportStep(s))
}

// Scan implements sql.Scanner for JSONB
func (s *ImportSteps) Scan(value interface{}) error {
	var out []ImportStep
	ok, err := scanJSONB(value, &out)
	if err != nil {
		return err
	}
	if !ok || out == nil {
		*s = make(ImportSteps, 0)
		return nil
	}
	*s = out
	return nil
}

// ImportCounts summarizes a session's candidates and commit outcome
type ImportCounts struct {
	Candidates      int `json:"candidates"`
	ExactDuplicates int `json:"exact_duplicates"`
	NearDuplicates  int `json:"near_duplicates"`
	Critical        int `json:"critical"`
	Written         int `json:"written"`
	Failed          int `json:"failed"`
	Skipped         int `json:"skipped"`
}

// Value implements driver.Valuer for JSONB
func (c ImportCounts) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *ImportCounts) Scan(value interface{}) error {
	var out ImportCounts
	ok, err := scanJSONB(value, &out)
	if err != nil {
		return err
	}
	if !ok {
		*c = ImportCounts{}
		return nil
	}
	*c = out
	return nil
}

// ImportSession is the audit record of one import session
type ImportSession struct {
	ID           uuid.UUID    `json:"id"`
	Filename     string       `json:"filename"`
	Status       ImportStatus `json:"status"`
	CurrentStep  *string      `json:"current_step,omitempty"`
	Steps        ImportSteps  `json:"steps"`
	Counts       ImportCounts `json:"counts"`
	CreatedBy    string       `json:"created_by,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}
