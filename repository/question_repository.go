package repository

import (
	"context"
	"fmt"

	"quizbank-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, text, options, correct_option, category, topic_id, lesson,
			legislation_code, legislation_name, legislation_article, difficulty, tags,
			solution, question_type, question_root, premises, signature, signature_hash,
			source, is_active, is_deleted, created_at`

const insertQuestionQuery = `
		INSERT INTO questions (
			id, text, options, correct_option, category, topic_id, lesson,
			legislation_code, legislation_name, legislation_article, difficulty, tags,
			solution, question_type, question_root, premises, signature, signature_hash,
			source, is_active, is_deleted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (signature_hash) DO NOTHING`

// QuestionRepository handles database operations for corpus questions
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func questionArgs(q models.Question) []interface{} {
	return []interface{}{
		q.ID,
		q.Text,
		q.Options,
		q.CorrectOption,
		q.Category,
		q.TopicID,
		q.Lesson,
		q.LegislationCode,
		q.LegislationName,
		q.LegislationArticle,
		q.Difficulty,
		q.Tags,
		q.Solution,
		q.QuestionType,
		q.QuestionRoot,
		q.Premises,
		q.Signature,
		q.SignatureHash,
		q.Source,
		q.IsActive,
		q.IsDeleted,
		q.CreatedAt,
	}
}

func scanQuestion(row pgx.Row) (models.Question, error) {
	var q models.Question
	err := row.Scan(
		&q.ID,
		&q.Text,
		&q.Options,
		&q.CorrectOption,
		&q.Category,
		&q.TopicID,
		&q.Lesson,
		&q.LegislationCode,
		&q.LegislationName,
		&q.LegislationArticle,
		&q.Difficulty,
		&q.Tags,
		&q.Solution,
		&q.QuestionType,
		&q.QuestionRoot,
		&q.Premises,
		&q.Signature,
		&q.SignatureHash,
		&q.Source,
		&q.IsActive,
		&q.IsDeleted,
		&q.CreatedAt,
	)
	return q, err
}

func (r *QuestionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Question, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// ListActiveQuestions returns up to limit active questions ordered by id,
// starting after afterID. uuid.Nil starts from the beginning
func (r *QuestionRepository) ListActiveQuestions(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE is_active AND NOT is_deleted AND id > $1
		ORDER BY id
		LIMIT $2`

	questions, err := r.list(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ListActiveByLegislation returns active questions citing the given code
func (r *QuestionRepository) ListActiveByLegislation(ctx context.Context, code string) ([]models.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE is_active AND NOT is_deleted AND upper(legislation_code) = upper($1)
		ORDER BY id`

	questions, err := r.list(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions by legislation: %w", err)
	}
	return questions, nil
}

// ListActiveByTopic returns active questions classified under topicID
func (r *QuestionRepository) ListActiveByTopic(ctx context.Context, topicID string) ([]models.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE is_active AND NOT is_deleted AND topic_id = $1
		ORDER BY id`

	questions, err := r.list(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions by topic: %w", err)
	}
	return questions, nil
}

// GetByID retrieves a question by ID
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`

	q, err := scanQuestion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// InsertQuestions writes one batch inside a single transaction. The returned
// flags report, per question, whether a row was written; false means the
// signature hash already exists
func (r *QuestionRepository) InsertQuestions(ctx context.Context, questions []models.Question) ([]bool, error) {
	if len(questions) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(insertQuestionQuery, questionArgs(q)...)
	}

	results := tx.SendBatch(ctx, batch)
	written := make([]bool, len(questions))
	for i := range questions {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("failed to insert question %d: %w", i, err)
		}
		written[i] = tag.RowsAffected() == 1
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return written, nil
}

// CountActive returns the number of active questions
func (r *QuestionRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM questions WHERE is_active AND NOT is_deleted`).Scan(&n)
	return n, err
}
