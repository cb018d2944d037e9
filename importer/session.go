package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizbank-backend/models"
)

// Session sizing defaults
const (
	DefaultSampleLimit = 5000
	DefaultPageSize    = 500
)

var ErrCorpusUnavailable = errors.New("corpus could not be read")

// CorpusReader pages through active, non-deleted corpus questions ordered by
// id. afterID is uuid.Nil for the first page
type CorpusReader interface {
	ListActiveQuestions(ctx context.Context, afterID uuid.UUID, limit int) ([]models.Question, error)
}

// SessionConfig bounds the work done when a session opens
type SessionConfig struct {
	// SampleLimit caps the corpus entries kept for near-duplicate checks
	SampleLimit int
	// PageSize is the corpus read page size
	PageSize int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.SampleLimit <= 0 {
		c.SampleLimit = DefaultSampleLimit
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Session owns everything one import needs: the signature index, the
// near-duplicate sample and the staged candidates. Nothing is shared
// between sessions; a new upload gets a freshly built session
type Session struct {
	ID        uuid.UUID
	Filename  string
	CreatedAt time.Time

	mu         sync.Mutex
	classifier *Classifier
	index      *SignatureIndex
	sample     []CorpusEntry
	corpusSize int
	// staged maps signatures of this upload to the first row carrying them
	staged     map[string]int
	// written holds signatures this session committed to the corpus
	written    map[string]bool
	candidates []*StagedCandidate
	committing bool
}

// OpenSession reads the active corpus page by page and builds the session's
// signature index and sample. A read failure aborts the session; importing
// without the index would skip deduplication silently
func OpenSession(ctx context.Context, reader CorpusReader, classifier *Classifier, cfg SessionConfig) (*Session, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: no corpus reader", ErrCorpusUnavailable)
	}
	if classifier == nil {
		return nil, errors.New("classifier not set")
	}
	cfg = cfg.withDefaults()

	s := &Session{
		ID:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		classifier: classifier,
		index:      NewSignatureIndex(),
		staged:     make(map[string]int),
		written:    make(map[string]bool),
	}

	after := uuid.Nil
	for {
		page, err := reader.ListActiveQuestions(ctx, after, cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorpusUnavailable, err)
		}
		for _, q := range page {
			if q.IsDeleted || !q.IsActive {
				continue
			}
			s.corpusSize++
			sig := QuestionSignature(q)
			s.index.Add(sig, q.ID.String())
			if len(s.sample) < cfg.SampleLimit {
				norm := Normalize(q.Text)
				s.sample = append(s.sample, CorpusEntry{
					DocumentID:     q.ID.String(),
					NormalizedText: norm.Canonical,
					Tokens:         norm.Tokens,
					Signature:      sig,
				})
			}
		}
		if len(page) < cfg.PageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	return s, nil
}

// CorpusSize is the number of active corpus questions read at open
func (s *Session) CorpusSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corpusSize
}

// SampleSize is the number of corpus entries used for near-duplicate checks
func (s *Session) SampleSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sample)
}

// Stage runs every pipeline stage over raws and appends the results as
// pending candidates
func (s *Session) Stage(raws []RawCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range raws {
		norm := Normalize(raw.Text)
		sig := CandidateSignature(raw)
		c := &StagedCandidate{
			Index:      len(s.candidates),
			Raw:        raw,
			Normalized: norm,
			Signature:  sig,
			Status:     StatusPending,
		}

		if docID, ok := s.index.Lookup(sig); ok {
			c.ExactDuplicate = &DuplicateMatch{DocumentID: docID}
		} else if row, ok := s.staged[sig]; ok {
			c.ExactDuplicate = &DuplicateMatch{Row: row}
		} else {
			s.staged[sig] = raw.Row
			c.NearDuplicate = FindNearDuplicate(norm.Tokens, s.sample)
		}

		c.Classification = s.classifier.Classify(raw, norm)
		c.Quality = Score(raw, c.Classification)
		s.candidates = append(s.candidates, c)
	}
}

// Counts summarizes the session for audit records
func (s *Session) Counts() models.ImportCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := models.ImportCounts{Candidates: len(s.candidates)}
	for _, c := range s.candidates {
		if c.ExactDuplicate != nil {
			counts.ExactDuplicates++
		}
		if c.NearDuplicate != nil {
			counts.NearDuplicates++
		}
		if c.Quality.HasCritical() {
			counts.Critical++
		}
	}
	return counts
}
