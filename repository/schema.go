package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaStatement is one named DDL statement
type SchemaStatement struct {
	Name string
	SQL  string
}

// PostgresTables creates the corpus and import audit tables
var PostgresTables = []SchemaStatement{
	{
		Name: "questions",
		SQL: `
CREATE TABLE IF NOT EXISTS questions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    text TEXT NOT NULL,
    options JSONB NOT NULL DEFAULT '[]'::jsonb,
    correct_option VARCHAR(8) NOT NULL DEFAULT '',
    category VARCHAR(255) NOT NULL DEFAULT '',
    topic_id VARCHAR(100) NOT NULL DEFAULT '',
    lesson VARCHAR(255) NOT NULL DEFAULT '',

    -- Legislation reference
    legislation_code VARCHAR(50) NOT NULL DEFAULT '',
    legislation_name VARCHAR(255) NOT NULL DEFAULT '',
    legislation_article VARCHAR(50) NOT NULL DEFAULT '',

    difficulty INTEGER NOT NULL DEFAULT 3,
    tags JSONB NOT NULL DEFAULT '[]'::jsonb,
    solution JSONB NOT NULL DEFAULT '{}'::jsonb,
    question_type VARCHAR(20) NOT NULL DEFAULT 'standard',
    question_root TEXT NOT NULL DEFAULT '',
    premises JSONB NOT NULL DEFAULT '[]'::jsonb,

    -- Dedup identity
    signature TEXT NOT NULL DEFAULT '',
    signature_hash CHAR(64) NOT NULL,

    source VARCHAR(100) NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT true,
    is_deleted BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP DEFAULT NOW(),

    CONSTRAINT questions_signature_hash_unique UNIQUE (signature_hash)
);`,
	},
	{
		Name: "import_sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS import_sessions (
    id UUID PRIMARY KEY,
    filename VARCHAR(255) NOT NULL,
    status VARCHAR(20) NOT NULL CHECK (status IN ('staged', 'committing', 'committed', 'partial', 'failed', 'closed')),
    current_step VARCHAR(50),
    steps JSONB NOT NULL DEFAULT '[]'::jsonb,
    counts JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_by VARCHAR(255) NOT NULL DEFAULT '',
    error_message TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    completed_at TIMESTAMP
);`,
	},
	{
		Name: "import_files",
		SQL: `
CREATE TABLE IF NOT EXISTS import_files (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES import_sessions(id) ON DELETE CASCADE,
    filename VARCHAR(255) NOT NULL,
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL,
    storage_path TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);`,
	},
}

// PostgresIndexes are created after the tables; failures are not fatal
var PostgresIndexes = []SchemaStatement{
	{
		Name: "Active questions keyset",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_questions_active_id ON questions(id) WHERE is_active AND NOT is_deleted;",
	},
	{
		Name: "Topic filtering",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id);",
	},
	{
		Name: "Legislation filtering",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_questions_legislation ON questions(upper(legislation_code));",
	},
	{
		Name: "Import session status",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_import_sessions_status ON import_sessions(status);",
	},
	{
		Name: "Import files by session",
		SQL:  "CREATE INDEX IF NOT EXISTS idx_import_files_session ON import_files(session_id);",
	},
}

// ApplyPostgresSchema creates every table and index that does not exist yet
func ApplyPostgresSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range PostgresTables {
		if _, err := db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.Name, err)
		}
	}
	for _, stmt := range PostgresIndexes {
		if _, err := db.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("failed to create index %s: %w", stmt.Name, err)
		}
	}
	return nil
}
