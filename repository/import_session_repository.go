package repository

import (
	"context"
	"time"

	"quizbank-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImportSessionRepository handles database operations for import session audit records
type ImportSessionRepository struct {
	db *pgxpool.Pool
}

// NewImportSessionRepository creates a new import session repository
func NewImportSessionRepository(db *pgxpool.Pool) *ImportSessionRepository {
	return &ImportSessionRepository{db: db}
}

// Create creates a new import session record. The session ID is assigned by
// the caller so that the live session and its record share it
func (r *ImportSessionRepository) Create(ctx context.Context, s *models.ImportSession) error {
	query := `
		INSERT INTO import_sessions (
			id, filename, status, current_step, steps, counts, created_by, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		s.ID,
		s.Filename,
		s.Status,
		s.CurrentStep,
		s.Steps,
		s.Counts,
		s.CreatedBy,
		s.ErrorMessage,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves an import session by ID
func (r *ImportSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportSession, error) {
	s := &models.ImportSession{}
	query := `
		SELECT id, filename, status, current_step, steps, counts, created_by,
			error_message, created_at, updated_at, completed_at
		FROM import_sessions
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Filename,
		&s.Status,
		&s.CurrentStep,
		&s.Steps,
		&s.Counts,
		&s.CreatedBy,
		&s.ErrorMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.Steps == nil {
		s.Steps = make(models.ImportSteps, 0)
	}
	return s, nil
}

// UpdateProgress records the current pipeline step
func (r *ImportSessionRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.ImportSteps) error {
	query := `
		UPDATE import_sessions SET
			current_step = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps)
	return err
}

// UpdateCounts records status and counts without closing the session
func (r *ImportSessionRepository) UpdateCounts(ctx context.Context, id uuid.UUID, status models.ImportStatus, counts models.ImportCounts) error {
	query := `
		UPDATE import_sessions SET
			status = $2,
			counts = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status, counts)
	return err
}

// Complete marks an import session finished with its final status and counts
func (r *ImportSessionRepository) Complete(ctx context.Context, id uuid.UUID, status models.ImportStatus, counts models.ImportCounts) error {
	now := time.Now()
	query := `
		UPDATE import_sessions SET
			status = $2,
			counts = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status, counts, now)
	return err
}

// Fail marks an import session as failed
func (r *ImportSessionRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE import_sessions SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.ImportStatusFailed, errorMessage)
	return err
}
