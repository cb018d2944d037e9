package repository

import (
	"context"

	"quizbank-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImportFileRepository handles database operations for uploaded import files
type ImportFileRepository struct {
	db *pgxpool.Pool
}

// NewImportFileRepository creates a new import file repository
func NewImportFileRepository(db *pgxpool.Pool) *ImportFileRepository {
	return &ImportFileRepository{db: db}
}

// Create creates a new file record
func (r *ImportFileRepository) Create(ctx context.Context, file *models.ImportFile) error {
	query := `
		INSERT INTO import_files (
			id, session_id, filename, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		file.ID,
		file.SessionID,
		file.Filename,
		file.MimeType,
		file.Size,
		file.StoragePath,
	).Scan(&file.CreatedAt)
}

// GetBySessionID retrieves the upload that opened a session
func (r *ImportFileRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.ImportFile, error) {
	file := &models.ImportFile{}
	query := `
		SELECT id, session_id, filename, mime_type, size, storage_path, created_at
		FROM import_files
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&file.ID,
		&file.SessionID,
		&file.Filename,
		&file.MimeType,
		&file.Size,
		&file.StoragePath,
		&file.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return file, nil
}
