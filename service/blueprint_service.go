package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"quizbank-backend/importer"
	"quizbank-backend/models"
	"quizbank-backend/topics"
)

var ErrUnknownExamTopic = errors.New("unknown exam topic")

// QuestionFinder looks up active corpus questions for exam assembly
type QuestionFinder interface {
	ListActiveByLegislation(ctx context.Context, code string) ([]models.Question, error)
	ListActiveByTopic(ctx context.Context, topicID string) ([]models.Question, error)
}

// BlueprintService assembles exams from the corpus following the topic table targets
type BlueprintService struct {
	finder QuestionFinder
	tables topics.Tables
}

// BlueprintServiceOption is a functional option for BlueprintService
type BlueprintServiceOption func(*BlueprintService)

// BlueprintWithFinder sets the question source
func BlueprintWithFinder(f QuestionFinder) BlueprintServiceOption {
	return func(s *BlueprintService) {
		s.finder = f
	}
}

// BlueprintWithTopics sets the topic table
func BlueprintWithTopics(t topics.Tables) BlueprintServiceOption {
	return func(s *BlueprintService) {
		s.tables = t
	}
}

// NewBlueprintService creates a new blueprint service
func NewBlueprintService(opts ...BlueprintServiceOption) *BlueprintService {
	s := &BlueprintService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssembleRequest represents a request to assemble an exam. Seed 0 picks a
// random seed; TopicIDs empty means every topic
type AssembleRequest struct {
	Seed     int64    `json:"seed"`
	TopicIDs []string `json:"topic_ids"`
}

// ExamSection holds the questions drawn for one topic
type ExamSection struct {
	TopicID   string            `json:"topic_id"`
	Title     string            `json:"title"`
	Target    int               `json:"target"`
	Questions []models.Question `json:"questions"`
}

// Shortfall records a target the corpus could not fill. Lesson is empty for
// the topic-level backfill
type Shortfall struct {
	TopicID string `json:"topic_id"`
	Lesson  string `json:"lesson,omitempty"`
	Wanted  int    `json:"wanted"`
	Got     int    `json:"got"`
}

// AssembleResult represents an assembled exam
type AssembleResult struct {
	Seed       int64         `json:"seed"`
	Total      int           `json:"total"`
	Sections   []ExamSection `json:"sections"`
	Shortfalls []Shortfall   `json:"shortfalls"`
}

// Assemble draws each lesson's quota from questions citing the lesson's
// legislation inside its article range, then backfills the topic up to its
// total target from questions classified under it. No question appears twice
func (s *BlueprintService) Assemble(ctx context.Context, req AssembleRequest) (*AssembleResult, error) {
	if s.finder == nil {
		return nil, errors.New("question finder not set")
	}

	selected, err := s.selectTopics(req.TopicIDs)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))

	result := &AssembleResult{
		Seed:       seed,
		Sections:   make([]ExamSection, 0, len(selected)),
		Shortfalls: []Shortfall{},
	}
	byCode := map[string][]models.Question{}
	picked := map[string]bool{}

	for _, topic := range selected {
		section := ExamSection{TopicID: topic.ID, Title: topic.Title, Target: topic.TotalQuestionTarget, Questions: []models.Question{}}

		for _, lesson := range topic.Lessons {
			if lesson.QTarget <= 0 {
				continue
			}
			code := models.LegislationRef{Code: lesson.LegislationCode}.NormalizedCode()
			pool, ok := byCode[code]
			if !ok {
				pool, err = s.finder.ListActiveByLegislation(ctx, code)
				if err != nil {
					return nil, fmt.Errorf("failed to load questions for %s: %w", code, err)
				}
				byCode[code] = pool
			}

			rule := topics.Rule{Code: code, ArticleRange: lesson.ArticleRange, TopicID: topic.ID, Lesson: lesson.Title}
			var eligible []models.Question
			for _, q := range pool {
				if inLesson(rule, q) {
					eligible = append(eligible, q)
				}
			}

			got := draw(rng, eligible, lesson.QTarget, picked, &section)
			if got < lesson.QTarget {
				result.Shortfalls = append(result.Shortfalls, Shortfall{TopicID: topic.ID, Lesson: lesson.Title, Wanted: lesson.QTarget, Got: got})
			}
		}

		if missing := topic.TotalQuestionTarget - len(section.Questions); missing > 0 {
			pool, err := s.finder.ListActiveByTopic(ctx, topic.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load questions for topic %s: %w", topic.ID, err)
			}
			got := draw(rng, pool, missing, picked, &section)
			if got < missing {
				result.Shortfalls = append(result.Shortfalls, Shortfall{TopicID: topic.ID, Wanted: missing, Got: got})
			}
		}

		result.Total += len(section.Questions)
		result.Sections = append(result.Sections, section)
	}

	return result, nil
}

func (s *BlueprintService) selectTopics(ids []string) ([]topics.Topic, error) {
	if len(ids) == 0 {
		return s.tables.Topics, nil
	}
	out := make([]topics.Topic, 0, len(ids))
	for _, id := range ids {
		t, ok := s.tables.Topic(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownExamTopic, id)
		}
		out = append(out, t)
	}
	return out, nil
}

// inLesson reports whether q cites an article inside the lesson's range
func inLesson(rule topics.Rule, q models.Question) bool {
	article, ok := importer.ParseArticle(q.LegislationArticle)
	if !ok {
		article = -1
	}
	return rule.Contains(article)
}

// draw shuffles pool and appends up to n questions not picked before
func draw(rng *rand.Rand, pool []models.Question, n int, picked map[string]bool, section *ExamSection) int {
	order := rng.Perm(len(pool))
	got := 0
	for _, i := range order {
		if got == n {
			break
		}
		q := pool[i]
		key := q.ID.String()
		if picked[key] {
			continue
		}
		picked[key] = true
		section.Questions = append(section.Questions, q)
		got++
	}
	return got
}
