package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"quizbank-backend/models"

	"github.com/google/uuid"
)

func newTestSQLiteStore(t *testing.T) *SQLiteQuestionStore {
	t.Helper()
	store, err := NewSQLiteQuestionStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testQuestion(n int, code, topicID string) models.Question {
	return models.Question{
		ID:   uuid.New(),
		Text: fmt.Sprintf("Soru metni %d", n),
		Options: models.Options{
			{ID: "A", Text: "birinci"},
			{ID: "B", Text: "ikinci"},
		},
		CorrectOption:   "A",
		Category:        "Genel",
		TopicID:         topicID,
		LegislationCode: code,
		Difficulty:      3,
		Tags:            models.StringList{"deneme"},
		Solution:        models.Solution{Analysis: "çözüm"},
		QuestionType:    models.QuestionTypeStandard,
		Signature:       fmt.Sprintf("sig-%d", n),
		SignatureHash:   fmt.Sprintf("hash-%d", n),
		Source:          "test",
		IsActive:        true,
		CreatedAt:       time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteInsertAndRead(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	q := testQuestion(1, "5271", "topic_alan_09")
	written, err := store.InsertQuestions(ctx, []models.Question{q})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(written) != 1 || !written[0] {
		t.Fatalf("expected one written flag, got %v", written)
	}

	got, err := store.ListActiveQuestions(ctx, uuid.Nil, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got))
	}
	r := got[0]
	if r.ID != q.ID || r.Text != q.Text || r.SignatureHash != q.SignatureHash {
		t.Fatalf("unexpected row %+v", r)
	}
	if len(r.Options) != 2 || r.Options[1].Text != "ikinci" {
		t.Fatalf("unexpected options %+v", r.Options)
	}
	if len(r.Tags) != 1 || r.Solution.Analysis != "çözüm" {
		t.Fatalf("unexpected json columns %+v %+v", r.Tags, r.Solution)
	}
	if !r.CreatedAt.Equal(q.CreatedAt) || !r.IsActive || r.IsDeleted {
		t.Fatalf("unexpected flags or time %+v", r)
	}
}

func TestSQLiteInsertReportsExistingHash(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.InsertQuestions(ctx, []models.Question{testQuestion(1, "", "")}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	again := testQuestion(1, "", "")
	fresh := testQuestion(2, "", "")
	written, err := store.InsertQuestions(ctx, []models.Question{again, fresh})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if written[0] || !written[1] {
		t.Fatalf("unexpected flags %v", written)
	}
	if n, _ := store.CountActive(ctx); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestSQLiteKeysetPagination(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	var batch []models.Question
	for i := 0; i < 7; i++ {
		batch = append(batch, testQuestion(i, "", ""))
	}
	if _, err := store.InsertQuestions(ctx, batch); err != nil {
		t.Fatalf("insert: %v", err)
	}

	seen := map[uuid.UUID]bool{}
	after := uuid.Nil
	pages := 0
	for {
		page, err := store.ListActiveQuestions(ctx, after, 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		pages++
		for _, q := range page {
			if seen[q.ID] {
				t.Fatalf("question %s returned twice", q.ID)
			}
			seen[q.ID] = true
			after = q.ID
		}
		if len(page) < 3 {
			break
		}
	}
	if len(seen) != 7 || pages != 3 {
		t.Fatalf("expected 7 questions over 3 pages, got %d over %d", len(seen), pages)
	}
}

func TestSQLiteInactiveQuestionsHidden(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	active := testQuestion(1, "657", "topic_ortak_04")
	inactive := testQuestion(2, "657", "topic_ortak_04")
	deleted := testQuestion(3, "657", "topic_ortak_04")
	deleted.IsDeleted = true
	if _, err := store.InsertQuestions(ctx, []models.Question{active, inactive, deleted}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.SetActive(ctx, inactive.ID, false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	all, _ := store.ListActiveQuestions(ctx, uuid.Nil, 10)
	byCode, _ := store.ListActiveByLegislation(ctx, "657")
	byTopic, _ := store.ListActiveByTopic(ctx, "topic_ortak_04")
	for name, got := range map[string][]models.Question{"all": all, "legislation": byCode, "topic": byTopic} {
		if len(got) != 1 || got[0].ID != active.ID {
			t.Fatalf("%s: expected only the active question, got %d", name, len(got))
		}
	}

	// the hash of an inactive question still blocks a rewrite
	written, err := store.InsertQuestions(ctx, []models.Question{testQuestion(2, "", "")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if written[0] {
		t.Fatalf("expected inactive hash to block the insert")
	}
}

func TestSQLiteLegislationLookupIgnoresCase(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := store.InsertQuestions(ctx, []models.Question{testQuestion(1, "cbk-1", "topic_ortak_02")}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := store.ListActiveByLegislation(ctx, "CBK-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected case-insensitive match, got %d", len(got))
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "corpus.db")
	ctx := context.Background()

	s1, err := NewSQLiteQuestionStore(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s1.InsertQuestions(ctx, []models.Question{testQuestion(1, "", "")}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteQuestionStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if n, err := s2.CountActive(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 persisted row, got %d (%v)", n, err)
	}
}
