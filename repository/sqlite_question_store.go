package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quizbank-backend/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteQuestionStore keeps the corpus in an embedded SQLite database with the
// same read and write semantics as QuestionRepository
type SQLiteQuestionStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS questions (
	id                  TEXT PRIMARY KEY,
	text                TEXT NOT NULL,
	options             TEXT NOT NULL DEFAULT '[]',
	correct_option      TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	topic_id            TEXT NOT NULL DEFAULT '',
	lesson              TEXT NOT NULL DEFAULT '',
	legislation_code    TEXT NOT NULL DEFAULT '',
	legislation_name    TEXT NOT NULL DEFAULT '',
	legislation_article TEXT NOT NULL DEFAULT '',
	difficulty          INTEGER NOT NULL DEFAULT 3,
	tags                TEXT NOT NULL DEFAULT '[]',
	solution            TEXT NOT NULL DEFAULT '{}',
	question_type       TEXT NOT NULL DEFAULT 'standard',
	question_root       TEXT NOT NULL DEFAULT '',
	premises            TEXT NOT NULL DEFAULT '[]',
	signature           TEXT NOT NULL DEFAULT '',
	signature_hash      TEXT NOT NULL UNIQUE,
	source              TEXT NOT NULL DEFAULT '',
	is_active           INTEGER NOT NULL DEFAULT 1,
	is_deleted          INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id);
CREATE INDEX IF NOT EXISTS idx_questions_legislation ON questions(legislation_code);
`

const sqliteInsertQuestion = `
INSERT INTO questions (
	id, text, options, correct_option, category, topic_id, lesson,
	legislation_code, legislation_name, legislation_article, difficulty, tags,
	solution, question_type, question_root, premises, signature, signature_hash,
	source, is_active, is_deleted, created_at
) VALUES (
	:id, :text, :options, :correct_option, :category, :topic_id, :lesson,
	:legislation_code, :legislation_name, :legislation_article, :difficulty, :tags,
	:solution, :question_type, :question_root, :premises, :signature, :signature_hash,
	:source, :is_active, :is_deleted, :created_at
)
ON CONFLICT(signature_hash) DO NOTHING`

const sqliteSelectQuestion = `
SELECT id, text, options, correct_option, category, topic_id, lesson,
	legislation_code, legislation_name, legislation_article, difficulty, tags,
	solution, question_type, question_root, premises, signature, signature_hash,
	source, is_active, is_deleted, created_at
FROM questions`

// sqliteQuestion mirrors a questions row. Timestamps are stored as RFC 3339 text
type sqliteQuestion struct {
	ID                 string            `db:"id"`
	Text               string            `db:"text"`
	Options            models.Options    `db:"options"`
	CorrectOption      string            `db:"correct_option"`
	Category           string            `db:"category"`
	TopicID            string            `db:"topic_id"`
	Lesson             string            `db:"lesson"`
	LegislationCode    string            `db:"legislation_code"`
	LegislationName    string            `db:"legislation_name"`
	LegislationArticle string            `db:"legislation_article"`
	Difficulty         int               `db:"difficulty"`
	Tags               models.StringList `db:"tags"`
	Solution           models.Solution   `db:"solution"`
	QuestionType       string            `db:"question_type"`
	QuestionRoot       string            `db:"question_root"`
	Premises           models.StringList `db:"premises"`
	Signature          string            `db:"signature"`
	SignatureHash      string            `db:"signature_hash"`
	Source             string            `db:"source"`
	IsActive           bool              `db:"is_active"`
	IsDeleted          bool              `db:"is_deleted"`
	CreatedAt          string            `db:"created_at"`
}

func toSQLiteQuestion(q models.Question) sqliteQuestion {
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return sqliteQuestion{
		ID:                 q.ID.String(),
		Text:               q.Text,
		Options:            q.Options,
		CorrectOption:      q.CorrectOption,
		Category:           q.Category,
		TopicID:            q.TopicID,
		Lesson:             q.Lesson,
		LegislationCode:    q.LegislationCode,
		LegislationName:    q.LegislationName,
		LegislationArticle: q.LegislationArticle,
		Difficulty:         q.Difficulty,
		Tags:               q.Tags,
		Solution:           q.Solution,
		QuestionType:       q.QuestionType,
		QuestionRoot:       q.QuestionRoot,
		Premises:           q.Premises,
		Signature:          q.Signature,
		SignatureHash:      q.SignatureHash,
		Source:             q.Source,
		IsActive:           q.IsActive,
		IsDeleted:          q.IsDeleted,
		CreatedAt:          createdAt.UTC().Format(time.RFC3339Nano),
	}
}

func (row sqliteQuestion) toModel() (models.Question, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return models.Question{}, fmt.Errorf("parse question id %q: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return models.Question{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	return models.Question{
		ID:                 id,
		Text:               row.Text,
		Options:            row.Options,
		CorrectOption:      row.CorrectOption,
		Category:           row.Category,
		TopicID:            row.TopicID,
		Lesson:             row.Lesson,
		LegislationCode:    row.LegislationCode,
		LegislationName:    row.LegislationName,
		LegislationArticle: row.LegislationArticle,
		Difficulty:         row.Difficulty,
		Tags:               row.Tags,
		Solution:           row.Solution,
		QuestionType:       row.QuestionType,
		QuestionRoot:       row.QuestionRoot,
		Premises:           row.Premises,
		Signature:          row.Signature,
		SignatureHash:      row.SignatureHash,
		Source:             row.Source,
		IsActive:           row.IsActive,
		IsDeleted:          row.IsDeleted,
		CreatedAt:          createdAt,
	}, nil
}

// NewSQLiteQuestionStore opens (or creates) the database at dbPath and applies the schema
func NewSQLiteQuestionStore(dbPath string) (*SQLiteQuestionStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteQuestionStore{db: db}, nil
}

func (s *SQLiteQuestionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteQuestionStore) selectQuestions(ctx context.Context, query string, args ...interface{}) ([]models.Question, error) {
	var rows []sqliteQuestion
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// ListActiveQuestions returns up to limit active questions ordered by id,
// starting after afterID. Canonical uuid text sorts in byte order
func (s *SQLiteQuestionStore) ListActiveQuestions(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Question, error) {
	query := sqliteSelectQuestion + `
WHERE is_active = 1 AND is_deleted = 0 AND id > ?
ORDER BY id
LIMIT ?`

	questions, err := s.selectQuestions(ctx, query, afterID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// ListActiveByLegislation returns active questions citing the given code
func (s *SQLiteQuestionStore) ListActiveByLegislation(ctx context.Context, code string) ([]models.Question, error) {
	query := sqliteSelectQuestion + `
WHERE is_active = 1 AND is_deleted = 0 AND upper(legislation_code) = upper(?)
ORDER BY id`

	questions, err := s.selectQuestions(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("list questions by legislation: %w", err)
	}
	return questions, nil
}

// ListActiveByTopic returns active questions classified under topicID
func (s *SQLiteQuestionStore) ListActiveByTopic(ctx context.Context, topicID string) ([]models.Question, error) {
	query := sqliteSelectQuestion + `
WHERE is_active = 1 AND is_deleted = 0 AND topic_id = ?
ORDER BY id`

	questions, err := s.selectQuestions(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("list questions by topic: %w", err)
	}
	return questions, nil
}

// InsertQuestions writes one batch inside a single transaction and reports,
// per question, whether a row was written
func (s *SQLiteQuestionStore) InsertQuestions(ctx context.Context, questions []models.Question) ([]bool, error) {
	if len(questions) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, sqliteInsertQuestion)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	written := make([]bool, len(questions))
	for i, q := range questions {
		res, err := stmt.ExecContext(ctx, toSQLiteQuestion(q))
		if err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i, err)
		}
		written[i] = n == 1
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	return written, nil
}

// SetActive toggles a question's active flag
func (s *SQLiteQuestionStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE questions SET is_active = ? WHERE id = ?`, active, id.String())
	return err
}

// CountActive returns the number of active questions
func (s *SQLiteQuestionStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM questions WHERE is_active = 1 AND is_deleted = 0`)
	return n, err
}
