package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"quizbank-backend/config"
	"quizbank-backend/events"
	"quizbank-backend/importer"
	"quizbank-backend/logger"
	"quizbank-backend/models"
	"quizbank-backend/observability"
	"quizbank-backend/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrSessionNotFound = errors.New("import session not found")
	ErrFileNotFound    = errors.New("import file not found")
)

// QuestionStore is the corpus as seen by imports and exam assembly
type QuestionStore interface {
	importer.CorpusReader
	importer.CorpusWriter
	ListActiveByLegislation(ctx context.Context, code string) ([]models.Question, error)
	ListActiveByTopic(ctx context.Context, topicID string) ([]models.Question, error)
}

// SessionRecorder persists import session audit records
type SessionRecorder interface {
	Create(ctx context.Context, s *models.ImportSession) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.ImportSteps) error
	UpdateCounts(ctx context.Context, id uuid.UUID, status models.ImportStatus, counts models.ImportCounts) error
	Complete(ctx context.Context, id uuid.UUID, status models.ImportStatus, counts models.ImportCounts) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// FileRecorder persists records of uploaded import files
type FileRecorder interface {
	Create(ctx context.Context, file *models.ImportFile) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.ImportFile, error)
}

// Import pipeline steps, in order
const (
	StepParse  = "parse"
	StepIndex  = "index"
	StepStage  = "stage"
	StepReview = "review"
	StepCommit = "commit"
)

// liveSession is a session kept in memory between requests
type liveSession struct {
	*importer.Session
	file     *models.ImportFile
	lastUsed atomic.Int64
	status   atomic.Value // models.ImportStatus
}

func (l *liveSession) touch(now time.Time) {
	l.lastUsed.Store(now.UnixNano())
}

func (l *liveSession) currentStatus() models.ImportStatus {
	if v, ok := l.status.Load().(models.ImportStatus); ok {
		return v
	}
	return models.ImportStatusStaged
}

// ImportService runs import sessions from upload to commit
type ImportService struct {
	store       QuestionStore
	classifier  *importer.Classifier
	storage     storage.Storage
	sessionRepo SessionRecorder
	fileRepo    FileRecorder
	publisher   events.Publisher
	log         *logger.Logger
	cfg         config.ImportConfig
	source      string
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession
}

// ImportServiceOption is a functional option for ImportService
type ImportServiceOption func(*ImportService)

// WithQuestionStore sets the corpus store
func WithQuestionStore(store QuestionStore) ImportServiceOption {
	return func(s *ImportService) {
		s.store = store
	}
}

// WithClassifier sets the topic classifier
func WithClassifier(c *importer.Classifier) ImportServiceOption {
	return func(s *ImportService) {
		s.classifier = c
	}
}

// WithStorage sets the upload storage
func WithStorage(st storage.Storage) ImportServiceOption {
	return func(s *ImportService) {
		s.storage = st
	}
}

// WithImportSessionRepository sets the audit repository for sessions
func WithImportSessionRepository(repo SessionRecorder) ImportServiceOption {
	return func(s *ImportService) {
		s.sessionRepo = repo
	}
}

// WithImportFileRepository sets the audit repository for uploads
func WithImportFileRepository(repo FileRecorder) ImportServiceOption {
	return func(s *ImportService) {
		s.fileRepo = repo
	}
}

// WithPublisher sets the event publisher
func WithPublisher(p events.Publisher) ImportServiceOption {
	return func(s *ImportService) {
		s.publisher = p
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) ImportServiceOption {
	return func(s *ImportService) {
		s.log = log
	}
}

// WithImportConfig sets batch, sampling and session lifetime settings
func WithImportConfig(cfg config.ImportConfig) ImportServiceOption {
	return func(s *ImportService) {
		s.cfg = cfg
	}
}

// WithSource sets the source recorded on committed questions
func WithSource(source string) ImportServiceOption {
	return func(s *ImportService) {
		s.source = source
	}
}

// NewImportService creates a new import service
func NewImportService(opts ...ImportServiceOption) *ImportService {
	s := &ImportService{
		source:   "bulk_import",
		now:      time.Now,
		sessions: make(map[uuid.UUID]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.log)
	}
	if s.cfg.SessionTTL <= 0 {
		s.cfg.SessionTTL = 2 * time.Hour
	}
	return s
}

// StartImportRequest represents an uploaded question file
type StartImportRequest struct {
	Filename  string
	Data      []byte
	CreatedBy string
}

// StartImportResult represents a freshly staged session
type StartImportResult struct {
	Session *importer.Session
	View    importer.View
}

// StartImport parses the upload, opens a session against the current corpus
// and stages every candidate. A parse failure leaves nothing behind
func (s *ImportService) StartImport(ctx context.Context, req StartImportRequest) (*StartImportResult, error) {
	if s.store == nil {
		return nil, errors.New("question store not set")
	}
	if s.classifier == nil {
		return nil, errors.New("classifier not set")
	}

	ctx, span := observability.Tracer().Start(ctx, "imports.start",
		trace.WithAttributes(
			attribute.String("import.filename", req.Filename),
			attribute.Int("import.bytes", len(req.Data)),
		))
	defer span.End()

	raws, err := importer.Load(req.Filename, bytes.NewReader(req.Data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	sess, err := importer.OpenSession(ctx, s.store, s.classifier, importer.SessionConfig{
		SampleLimit: s.cfg.SampleLimit,
		PageSize:    s.cfg.PageSize,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corpus unavailable")
		s.log.Error("Failed to open import session", "filename", req.Filename, "error", err)
		return nil, err
	}
	sess.Filename = req.Filename
	sess.Stage(raws)

	counts := sess.Counts()
	span.SetAttributes(
		attribute.String("import.session_id", sess.ID.String()),
		attribute.Int("import.candidates", counts.Candidates),
		attribute.Int("import.corpus_size", sess.CorpusSize()),
	)

	live := &liveSession{Session: sess}
	live.status.Store(models.ImportStatusStaged)
	live.touch(s.now())

	s.recordSession(ctx, sess, req.CreatedBy, counts)
	live.file = s.retainUpload(ctx, sess.ID, req.Filename, req.Data)

	s.mu.Lock()
	s.sessions[sess.ID] = live
	s.mu.Unlock()

	s.log.Info("Import session staged",
		"session_id", sess.ID,
		"filename", req.Filename,
		"candidates", counts.Candidates,
		"exact_duplicates", counts.ExactDuplicates,
		"near_duplicates", counts.NearDuplicates,
		"critical", counts.Critical,
		"corpus_size", sess.CorpusSize(),
	)
	s.publish(ctx, events.ImportEvent{
		Type:      events.TypeSessionStarted,
		SessionID: sess.ID.String(),
		Filename:  req.Filename,
		Data: map[string]interface{}{
			"candidates":       counts.Candidates,
			"exact_duplicates": counts.ExactDuplicates,
			"near_duplicates":  counts.NearDuplicates,
			"critical":         counts.Critical,
		},
	})

	return &StartImportResult{
		Session: sess,
		View:    sess.View(importer.Filter{}),
	}, nil
}

func stagedSteps() models.ImportSteps {
	return models.ImportSteps{
		{Name: StepParse, Status: "completed", Description: "Read rows from the uploaded file"},
		{Name: StepIndex, Status: "completed", Description: "Indexed the active corpus"},
		{Name: StepStage, Status: "completed", Description: "Checked duplicates, classified and scored"},
		{Name: StepReview, Status: "in_progress", Description: "Waiting for editor review"},
		{Name: StepCommit, Status: "pending", Description: "Write approved questions"},
	}
}

func (s *ImportService) recordSession(ctx context.Context, sess *importer.Session, createdBy string, counts models.ImportCounts) {
	if s.sessionRepo == nil {
		return
	}
	step := StepReview
	record := &models.ImportSession{
		ID:          sess.ID,
		Filename:    sess.Filename,
		Status:      models.ImportStatusStaged,
		CurrentStep: &step,
		Steps:       stagedSteps(),
		Counts:      counts,
		CreatedBy:   createdBy,
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		s.log.Warn("Failed to record import session", "session_id", sess.ID, "error", err)
	}
}

// retainUpload stores the original file. Storage problems are logged and do
// not block the import
func (s *ImportService) retainUpload(ctx context.Context, sessionID uuid.UUID, filename string, data []byte) *models.ImportFile {
	if s.storage == nil {
		return nil
	}
	file := &models.ImportFile{
		ID:        uuid.New(),
		SessionID: sessionID,
		Filename:  filename,
		MimeType:  storage.ContentType(filename),
		Size:      int64(len(data)),
		CreatedAt: s.now().UTC(),
	}
	file.StoragePath = storage.UploadKey(sessionID, file.ID, filename, file.CreatedAt)
	obj := storage.Object{Key: file.StoragePath, ContentType: file.MimeType, Size: file.Size}
	if err := s.storage.Upload(ctx, obj, bytes.NewReader(data)); err != nil {
		s.log.Warn("Failed to store import file", "session_id", sessionID, "error", err)
		return nil
	}

	if s.fileRepo != nil {
		if err := s.fileRepo.Create(ctx, file); err != nil {
			s.log.Warn("Failed to record import file", "session_id", sessionID, "error", err)
		}
	}
	return file
}

func (s *ImportService) lookup(id uuid.UUID) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	live.touch(s.now())
	return live, nil
}

// Session returns a live session for review operations
func (s *ImportService) Session(id uuid.UUID) (*importer.Session, error) {
	live, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return live.Session, nil
}

// View returns the filtered review view of a live session
func (s *ImportService) View(id uuid.UUID, f importer.Filter) (importer.View, error) {
	live, err := s.lookup(id)
	if err != nil {
		return importer.View{}, err
	}
	return live.View(f), nil
}

// ActiveSessions returns the number of live sessions
func (s *ImportService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CommitRequest represents a request to write a session's approved candidates
type CommitRequest struct {
	SessionID uuid.UUID
	BatchSize int
}

// Commit writes the approved candidates of a session in batches. The result
// is returned together with ctx.Err() when the run is canceled
func (s *ImportService) Commit(ctx context.Context, req CommitRequest) (*importer.CommitResult, error) {
	if s.store == nil {
		return nil, errors.New("question store not set")
	}
	live, err := s.lookup(req.SessionID)
	if err != nil {
		return nil, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	ctx, span := observability.Tracer().Start(ctx, "imports.commit",
		trace.WithAttributes(
			attribute.String("import.session_id", live.ID.String()),
			attribute.Int("import.batch_size", batchSize),
		))
	defer span.End()

	// audit writes must land even when the request is canceled mid-commit
	auditCtx := context.WithoutCancel(ctx)
	s.markCommitting(auditCtx, live)

	batchStart := s.now()
	result, commitErr := live.Commit(ctx, s.store, importer.CommitOptions{
		BatchSize: batchSize,
		Source:    s.source,
		OnBatch: func(r importer.BatchReport) {
			s.traceBatch(ctx, batchStart, r)
			batchStart = s.now()
			s.reportBatch(auditCtx, live, r)
		},
	})
	if commitErr != nil && !result.Canceled {
		// nothing was attempted, e.g. a commit already running
		span.RecordError(commitErr)
		span.SetStatus(codes.Error, commitErr.Error())
		if errors.Is(commitErr, importer.ErrCommitInProgress) {
			return nil, commitErr
		}
		live.status.Store(models.ImportStatusStaged)
		return nil, commitErr
	}

	status := commitStatus(result)
	live.status.Store(status)
	counts := live.Counts()
	counts.Written = result.Written
	counts.Failed = result.Failed
	counts.Skipped = result.Skipped

	span.SetAttributes(
		attribute.Int("import.written", result.Written),
		attribute.Int("import.failed", result.Failed),
		attribute.Int("import.skipped", result.Skipped),
		attribute.Int("import.batches", len(result.Batches)),
	)
	if result.Failed > 0 || result.Canceled {
		span.SetStatus(codes.Error, string(status))
	}

	if s.sessionRepo != nil {
		if err := s.sessionRepo.Complete(auditCtx, live.ID, status, counts); err != nil {
			s.log.Warn("Failed to record commit outcome", "session_id", live.ID, "error", err)
		}
		if msg := firstBatchError(result); msg != "" && status == models.ImportStatusFailed {
			if err := s.sessionRepo.Fail(auditCtx, live.ID, msg); err != nil {
				s.log.Warn("Failed to record commit failure", "session_id", live.ID, "error", err)
			}
		}
	}

	s.log.Info("Import commit finished",
		"session_id", live.ID,
		"status", status,
		"written", result.Written,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"canceled", result.Canceled,
	)
	s.publish(auditCtx, events.ImportEvent{
		Type:      events.TypeCommitFinished,
		SessionID: live.ID.String(),
		Filename:  live.Filename,
		Data: map[string]interface{}{
			"status":   string(status),
			"written":  result.Written,
			"failed":   result.Failed,
			"skipped":  result.Skipped,
			"canceled": result.Canceled,
		},
	})

	return &result, commitErr
}

func commitStatus(r importer.CommitResult) models.ImportStatus {
	switch {
	case r.Failed == 0 && !r.Canceled:
		return models.ImportStatusCommitted
	case r.Written > 0:
		return models.ImportStatusPartial
	default:
		return models.ImportStatusFailed
	}
}

func firstBatchError(r importer.CommitResult) string {
	for _, b := range r.Batches {
		if b.Error != "" {
			return b.Error
		}
	}
	return ""
}

func (s *ImportService) markCommitting(ctx context.Context, live *liveSession) {
	live.status.Store(models.ImportStatusCommitting)
	if s.sessionRepo == nil {
		return
	}
	steps := stagedSteps()
	steps[3].Status = "completed"
	steps[4].Status = "in_progress"
	if err := s.sessionRepo.UpdateProgress(ctx, live.ID, StepCommit, steps); err != nil {
		s.log.Warn("Failed to record commit progress", "session_id", live.ID, "error", err)
	}
	if err := s.sessionRepo.UpdateCounts(ctx, live.ID, models.ImportStatusCommitting, live.Counts()); err != nil {
		s.log.Warn("Failed to record commit status", "session_id", live.ID, "error", err)
	}
}

func (s *ImportService) traceBatch(ctx context.Context, start time.Time, r importer.BatchReport) {
	_, span := observability.Tracer().Start(ctx, "imports.commit.batch",
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.Int("batch.number", r.Number),
			attribute.Int("batch.size", r.Size),
			attribute.Int("batch.written", r.Written),
			attribute.Int("batch.skipped", r.Skipped),
		))
	if r.Error != "" {
		span.SetStatus(codes.Error, r.Error)
	}
	span.End()
}

func (s *ImportService) reportBatch(ctx context.Context, live *liveSession, r importer.BatchReport) {
	ev := events.ImportEvent{
		Type:      events.TypeBatchWritten,
		SessionID: live.ID.String(),
		Filename:  live.Filename,
		Data: map[string]interface{}{
			"batch":   r.Number,
			"size":    r.Size,
			"written": r.Written,
			"skipped": r.Skipped,
		},
	}
	if r.Error != "" {
		ev.Type = events.TypeBatchFailed
		ev.Data["error"] = r.Error
		s.log.Error("Import batch failed", "session_id", live.ID, "batch", r.Number, "size", r.Size, "error", r.Error)
	} else {
		s.log.Debug("Import batch written", "session_id", live.ID, "batch", r.Number, "written", r.Written, "skipped", r.Skipped)
	}
	s.publish(ctx, ev)
}

// CloseSession ends a live session and releases its memory
func (s *ImportService) CloseSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	live, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.finish(ctx, live, "closed")
	return nil
}

func (s *ImportService) finish(ctx context.Context, live *liveSession, reason string) {
	status := live.currentStatus()
	if s.sessionRepo != nil && (status == models.ImportStatusStaged || status == models.ImportStatusCommitting) {
		if err := s.sessionRepo.Complete(ctx, live.ID, models.ImportStatusClosed, live.Counts()); err != nil {
			s.log.Warn("Failed to record session close", "session_id", live.ID, "error", err)
		}
	}
	s.log.Info("Import session closed", "session_id", live.ID, "reason", reason, "status", status)
	s.publish(ctx, events.ImportEvent{
		Type:      events.TypeSessionClosed,
		SessionID: live.ID.String(),
		Filename:  live.Filename,
		Data:      map[string]interface{}{"reason": reason, "status": string(status)},
	})
}

// ExpireSessions closes sessions idle for longer than the session TTL and
// returns how many were removed. A session with a running commit is kept
func (s *ImportService) ExpireSessions(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.SessionTTL).UnixNano()

	var expired []*liveSession
	s.mu.Lock()
	for id, live := range s.sessions {
		if live.lastUsed.Load() >= cutoff || live.currentStatus() == models.ImportStatusCommitting {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, live)
	}
	s.mu.Unlock()

	for _, live := range expired {
		s.finish(ctx, live, "expired")
	}
	return len(expired)
}

// RunJanitor expires idle sessions every interval until ctx is done
func (s *ImportService) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.ExpireSessions(ctx); n > 0 {
				s.log.Info("Expired idle import sessions", "count", n)
			}
		}
	}
}

// OpenFile returns the original upload of a session. Live sessions are
// served from memory; ended ones from the file audit records
func (s *ImportService) OpenFile(ctx context.Context, sessionID uuid.UUID) (io.ReadCloser, *models.ImportFile, error) {
	if s.storage == nil {
		return nil, nil, ErrFileNotFound
	}

	var file *models.ImportFile
	if live, err := s.lookup(sessionID); err == nil {
		file = live.file
	}
	if file == nil && s.fileRepo != nil {
		f, err := s.fileRepo.GetBySessionID(ctx, sessionID)
		if err == nil {
			file = f
		}
	}
	if file == nil {
		return nil, nil, ErrFileNotFound
	}

	rc, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("failed to open import file: %w", err)
	}
	return rc, file, nil
}

// Shutdown closes every live session and the publisher
func (s *ImportService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	live := make([]*liveSession, 0, len(s.sessions))
	for id, l := range s.sessions {
		live = append(live, l)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, l := range live {
		s.finish(ctx, l, "shutdown")
	}
	if err := s.publisher.Close(); err != nil {
		s.log.Warn("Failed to close event publisher", "error", err)
	}
}

func (s *ImportService) publish(ctx context.Context, ev events.ImportEvent) {
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("Failed to publish import event", "type", ev.Type, "session_id", ev.SessionID, "error", err)
	}
}
