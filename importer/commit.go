package importer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"quizbank-backend/models"
)

// Batch sizing. Stores cap a single write at MaxBatchSize documents
const (
	DefaultBatchSize = 400
	MaxBatchSize     = 500
)

// Commit notes left on candidates that were not written
const (
	NoteAlreadyCommitted = "already committed"
	NoteAlreadyInCorpus  = "already in corpus"
	NoteBatchFailed      = "batch failed"
)

// CorpusWriter persists one batch of questions as a unit. The returned
// flags report, per question, whether it was written; false means the
// store already held its signature
type CorpusWriter interface {
	InsertQuestions(ctx context.Context, questions []models.Question) ([]bool, error)
}

// CommitOptions tune a commit run
type CommitOptions struct {
	BatchSize int
	// Source is recorded on every written question
	Source string
	// OnBatch is called after each batch, written or failed
	OnBatch func(BatchReport)
}

// BatchReport describes one write attempt
type BatchReport struct {
	Number  int    `json:"number"`
	Size    int    `json:"size"`
	Written int    `json:"written"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// CommitResult totals a commit run. Written documents stay written even
// when later batches fail or the run is canceled
type CommitResult struct {
	Written  int           `json:"written"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Canceled bool          `json:"canceled,omitempty"`
	Batches  []BatchReport `json:"batches"`
}

// Commit writes the approved candidates in bounded batches. Each batch is
// all-or-nothing in the store; there is no atomicity across batches. After
// a successful batch its signatures join the session index, so an approved
// candidate repeating an earlier one is skipped rather than written twice.
// A failed batch leaves its candidates approved and the run moves on.
// Cancellation is checked between batches and returns ctx.Err() with the
// partial result
func (s *Session) Commit(ctx context.Context, w CorpusWriter, opts CommitOptions) (CommitResult, error) {
	result := CommitResult{Batches: []BatchReport{}}
	if w == nil {
		return result, errors.New("corpus writer not set")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	s.mu.Lock()
	if s.committing {
		s.mu.Unlock()
		return result, ErrCommitInProgress
	}
	s.committing = true
	var queue []*StagedCandidate
	for _, c := range s.candidates {
		if c.Status == StatusApproved {
			queue = append(queue, c)
		}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.committing = false
		s.mu.Unlock()
	}()

	pos := 0
	for pos < len(queue) {
		if err := ctx.Err(); err != nil {
			result.Canceled = true
			return result, err
		}

		var batch []*StagedCandidate
		pos, batch = s.nextBatch(queue, pos, batchSize, &result)
		if len(batch) == 0 {
			continue
		}

		questions := make([]models.Question, len(batch))
		now := time.Now().UTC()
		for i, c := range batch {
			questions[i] = c.toQuestion(opts.Source, now)
		}

		report := BatchReport{Number: len(result.Batches) + 1, Size: len(batch)}
		written, err := w.InsertQuestions(ctx, questions)

		s.mu.Lock()
		if err != nil {
			report.Error = err.Error()
			result.Failed += len(batch)
			for _, c := range batch {
				c.Note = NoteBatchFailed
			}
		} else {
			for i, c := range batch {
				if i < len(written) && written[i] {
					id := questions[i].ID.String()
					s.index.Add(c.Signature, id)
					s.written[c.Signature] = true
					c.Status = StatusCommitted
					c.DocumentID = id
					c.Note = ""
					report.Written++
					continue
				}
				s.index.Add(c.Signature, "")
				c.Status = StatusDiscarded
				c.Note = NoteAlreadyInCorpus
				report.Skipped++
			}
			result.Written += report.Written
			result.Skipped += report.Skipped
		}
		s.mu.Unlock()

		result.Batches = append(result.Batches, report)
		if opts.OnBatch != nil {
			opts.OnBatch(report)
		}
	}

	return result, nil
}

// nextBatch collects up to size candidates from queue starting at pos.
// Candidates whose signature is already indexed, or repeated within the
// batch, are discarded and counted as skipped. The note tells a corpus
// hit apart from a signature this session already wrote
func (s *Session) nextBatch(queue []*StagedCandidate, pos, size int, result *CommitResult) (int, []*StagedCandidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]*StagedCandidate, 0, size)
	inBatch := make(map[string]bool, size)
	for pos < len(queue) && len(batch) < size {
		c := queue[pos]
		pos++
		_, indexed := s.index.Lookup(c.Signature)
		if indexed || inBatch[c.Signature] {
			c.Status = StatusDiscarded
			c.Note = NoteAlreadyCommitted
			if indexed && !s.written[c.Signature] {
				c.Note = NoteAlreadyInCorpus
			}
			result.Skipped++
			continue
		}
		inBatch[c.Signature] = true
		batch = append(batch, c)
	}
	return pos, batch
}

func (c *StagedCandidate) toQuestion(source string, now time.Time) models.Question {
	q := c.Raw.ToQuestion()
	q.ID = uuid.New()
	q.TopicID = c.Classification.TopicID
	q.Lesson = c.Classification.Lesson
	q.Signature = c.Signature
	q.SignatureHash = SignatureHash(c.Signature)
	q.Source = source
	q.CreatedAt = now
	return q
}
