package repository

import (
	"context"
	"os"
	"testing"

	"quizbank-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestPool connects to TEST_DATABASE_URL and applies the schema.
// Tests using it are skipped when the variable is unset
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := ApplyPostgresSchema(ctx, pool); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

func cleanupQuestions(t *testing.T, pool *pgxpool.Pool, qs ...models.Question) {
	t.Helper()
	t.Cleanup(func() {
		for _, q := range qs {
			pool.Exec(context.Background(), `DELETE FROM questions WHERE signature_hash = $1`, q.SignatureHash)
		}
	})
}

func TestQuestionRepositoryInsertAndList(t *testing.T) {
	pool := newTestPool(t)
	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	suffix := uuid.NewString()
	a := testQuestion(1, "5271", "topic_alan_09")
	b := testQuestion(2, "5271", "topic_alan_09")
	a.SignatureHash += suffix
	b.SignatureHash += suffix
	cleanupQuestions(t, pool, a, b)

	written, err := repo.InsertQuestions(ctx, []models.Question{a, b})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !written[0] || !written[1] {
		t.Fatalf("expected both rows written, got %v", written)
	}

	again := a
	again.ID = uuid.New()
	written, err = repo.InsertQuestions(ctx, []models.Question{again})
	if err != nil {
		t.Fatalf("insert again: %v", err)
	}
	if written[0] {
		t.Fatalf("expected conflict on signature hash")
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != a.Text || len(got.Options) != 2 || got.Solution.Analysis != "çözüm" {
		t.Fatalf("unexpected row %+v", got)
	}

	byCode, err := repo.ListActiveByLegislation(ctx, "5271")
	if err != nil {
		t.Fatalf("list by legislation: %v", err)
	}
	found := 0
	for _, q := range byCode {
		if q.ID == a.ID || q.ID == b.ID {
			found++
		}
	}
	if found != 2 {
		t.Fatalf("expected both questions by legislation, found %d", found)
	}
}

func TestQuestionRepositoryKeyset(t *testing.T) {
	pool := newTestPool(t)
	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	first, err := repo.ListActiveQuestions(ctx, uuid.Nil, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) == 0 {
		t.Skip("corpus is empty")
	}
	last := first[len(first)-1].ID
	next, err := repo.ListActiveQuestions(ctx, last, 5)
	if err != nil {
		t.Fatalf("list next: %v", err)
	}
	for _, q := range next {
		if q.ID == last {
			t.Fatalf("keyset returned the cursor row again")
		}
	}
}
