package importer

import (
	"errors"
	"strings"
)

// Status is the review state of a staged candidate
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDiscarded Status = "discarded"
	StatusCommitted Status = "committed"
)

// Bucket groups candidates for filtering and bulk approval
type Bucket string

const (
	BucketAll            Bucket = "all"
	BucketHighConfidence Bucket = "high_confidence"
	BucketSelected       Bucket = "selected"
	BucketExactDuplicate Bucket = "exact_duplicate"
	BucketNearDuplicate  Bucket = "near_duplicate"
	BucketCritical       Bucket = "critical"
)

// Buckets lists every bucket in display order
var Buckets = []Bucket{
	BucketAll, BucketHighConfidence, BucketSelected,
	BucketExactDuplicate, BucketNearDuplicate, BucketCritical,
}

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidTransition = errors.New("invalid review transition")
	ErrCriticalIssues    = errors.New("candidate has critical quality issues")
	ErrExactDuplicate    = errors.New("candidate is an exact duplicate")
	ErrInvalidBucket     = errors.New("bucket cannot be bulk approved")
	ErrUnknownTopic      = errors.New("unknown topic")
	ErrCommitInProgress  = errors.New("commit in progress")
)

// DuplicateMatch points at what a candidate duplicates: a corpus document,
// or an earlier row of the same upload
type DuplicateMatch struct {
	DocumentID string `json:"document_id,omitempty"`
	Row        int    `json:"row,omitempty"`
}

// StagedCandidate is one candidate with its pipeline results and review state
type StagedCandidate struct {
	Index          int             `json:"index"`
	Raw            RawCandidate    `json:"candidate"`
	Normalized     Normalized      `json:"-"`
	Signature      string          `json:"-"`
	Classification Classification  `json:"classification"`
	Quality        QualityReport   `json:"quality"`
	ExactDuplicate *DuplicateMatch `json:"exact_duplicate,omitempty"`
	NearDuplicate  *NearDuplicate  `json:"near_duplicate,omitempty"`
	Status         Status          `json:"status"`
	Selected       bool            `json:"selected"`
	Forced         bool            `json:"forced,omitempty"`
	DocumentID     string          `json:"document_id,omitempty"`
	Note           string          `json:"note,omitempty"`
}

func (c *StagedCandidate) confident() bool {
	return c.Classification.Tier == TierHigh || c.Classification.Tier == TierMedium
}

func (c *StagedCandidate) inBucket(b Bucket) bool {
	switch b {
	case "", BucketAll:
		return true
	case BucketHighConfidence:
		return !c.Quality.HasCritical() && c.confident() && c.ExactDuplicate == nil && c.NearDuplicate == nil
	case BucketSelected:
		return c.Selected
	case BucketExactDuplicate:
		return c.ExactDuplicate != nil
	case BucketNearDuplicate:
		return c.NearDuplicate != nil
	case BucketCritical:
		return c.Quality.HasCritical()
	}
	return false
}

// bulkEligible holds for every bulk action: still pending, no critical
// issue, and not an exact duplicate
func (c *StagedCandidate) bulkEligible() bool {
	return c.Status == StatusPending && !c.Quality.HasCritical() && c.ExactDuplicate == nil
}

// Filter narrows a session view. Empty fields match everything
type Filter struct {
	Bucket     Bucket `form:"bucket" json:"bucket,omitempty"`
	TopicID    string `form:"topic" json:"topic,omitempty"`
	Confidence Tier   `form:"confidence" json:"confidence,omitempty"`
	Status     Status `form:"status" json:"status,omitempty"`
	Search     string `form:"q" json:"q,omitempty"`
}

func (f Filter) match(c *StagedCandidate, search string) bool {
	if !c.inBucket(f.Bucket) {
		return false
	}
	if f.TopicID != "" && c.Classification.TopicID != f.TopicID {
		return false
	}
	if f.Confidence != "" && c.Classification.Tier != f.Confidence {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if search != "" && !strings.Contains(c.Normalized.Canonical, search) && !strings.Contains(Canonical(c.Raw.Category), search) {
		return false
	}
	return true
}

// View is a filtered snapshot of a session
type View struct {
	SessionID    string            `json:"session_id"`
	Filename     string            `json:"filename"`
	Total        int               `json:"total"`
	CorpusSize   int               `json:"corpus_size"`
	SampleSize   int               `json:"sample_size"`
	Filter       Filter            `json:"filter"`
	BucketCounts map[Bucket]int    `json:"bucket_counts"`
	StatusCounts map[Status]int    `json:"status_counts"`
	Candidates   []StagedCandidate `json:"candidates"`
}

// View returns the candidates matching f plus counts over the whole session
func (s *Session) View(f Filter) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:    s.ID.String(),
		Filename:     s.Filename,
		Total:        len(s.candidates),
		CorpusSize:   s.corpusSize,
		SampleSize:   len(s.sample),
		Filter:       f,
		BucketCounts: make(map[Bucket]int, len(Buckets)),
		StatusCounts: make(map[Status]int, 4),
		Candidates:   make([]StagedCandidate, 0),
	}
	search := Canonical(f.Search)
	for _, c := range s.candidates {
		for _, b := range Buckets {
			if c.inBucket(b) {
				v.BucketCounts[b]++
			}
		}
		v.StatusCounts[c.Status]++
		if f.match(c, search) {
			v.Candidates = append(v.Candidates, *c)
		}
	}
	return v
}

// Candidate returns a copy of the candidate at index
func (s *Session) Candidate(index int) (StagedCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.candidateLocked(index)
	if err != nil {
		return StagedCandidate{}, err
	}
	return *c, nil
}

func (s *Session) candidateLocked(index int) (*StagedCandidate, error) {
	if index < 0 || index >= len(s.candidates) {
		return nil, ErrCandidateNotFound
	}
	return s.candidates[index], nil
}

// mutable returns the candidate at index unless a commit is running
func (s *Session) mutable(index int) (*StagedCandidate, error) {
	if s.committing {
		return nil, ErrCommitInProgress
	}
	return s.candidateLocked(index)
}

// Approve moves a candidate to approved. Critical issues and exact
// duplicates need force; near-duplicate flags are advisory only
func (s *Session) Approve(index int, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.mutable(index)
	if err != nil {
		return err
	}
	switch c.Status {
	case StatusApproved:
		return nil
	case StatusPending:
	default:
		return ErrInvalidTransition
	}
	if c.Quality.HasCritical() && !force {
		return ErrCriticalIssues
	}
	if c.ExactDuplicate != nil && !force {
		return ErrExactDuplicate
	}
	c.Status = StatusApproved
	c.Forced = force && (c.Quality.HasCritical() || c.ExactDuplicate != nil)
	return nil
}

// Discard rejects a pending or approved candidate
func (s *Session) Discard(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.mutable(index)
	if err != nil {
		return err
	}
	switch c.Status {
	case StatusPending, StatusApproved:
		c.Status = StatusDiscarded
		c.Forced = false
		return nil
	case StatusDiscarded:
		return nil
	}
	return ErrInvalidTransition
}

// Revert returns an approved or discarded candidate to pending
func (s *Session) Revert(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.mutable(index)
	if err != nil {
		return err
	}
	if c.Status == StatusCommitted {
		return ErrInvalidTransition
	}
	c.Status = StatusPending
	c.Forced = false
	c.Note = ""
	return nil
}

// Select marks candidates for the "selected" bulk action. Either all
// indexes are applied or none
func (s *Session) Select(indexes []int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing {
		return ErrCommitInProgress
	}
	for _, idx := range indexes {
		if _, err := s.candidateLocked(idx); err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		s.candidates[idx].Selected = selected
	}
	return nil
}

// SetTopic overrides the suggested topic. The override counts as a high
// confidence classification and the quality report is refreshed
func (s *Session) SetTopic(index int, topicID, lesson string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.mutable(index)
	if err != nil {
		return err
	}
	if c.Status == StatusCommitted {
		return ErrInvalidTransition
	}
	if !s.classifier.KnownTopic(topicID) {
		return ErrUnknownTopic
	}
	c.Classification = Classification{
		TopicID: topicID,
		Lesson:  strings.TrimSpace(lesson),
		Tier:    TierHigh,
		Reason:  ReasonManual,
	}
	c.Quality = Score(c.Raw, c.Classification)
	return nil
}

// BulkApprove approves every eligible pending candidate in bucket and
// returns how many moved
func (s *Session) BulkApprove(bucket Bucket) (int, error) {
	switch bucket {
	case BucketAll, BucketHighConfidence, BucketSelected:
	default:
		return 0, ErrInvalidBucket
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing {
		return 0, ErrCommitInProgress
	}
	n := 0
	for _, c := range s.candidates {
		if !c.bulkEligible() || !c.inBucket(bucket) {
			continue
		}
		c.Status = StatusApproved
		n++
	}
	return n, nil
}
