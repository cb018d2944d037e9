package importer

import (
	"strings"

	"quizbank-backend/models"
)

// Defaults applied when an uploaded row leaves a field empty
const (
	DefaultCategory   = "Genel"
	DefaultDifficulty = 3
)

// RawCandidate is one question parsed from an uploaded file, before any
// normalization. Row is the 1-based position in the source file
type RawCandidate struct {
	Row           int                    `json:"row"`
	Text          string                 `json:"text"`
	Options       []models.Option        `json:"options"`
	CorrectOption string                 `json:"correct_option,omitempty"`
	Legislation   *models.LegislationRef `json:"legislation,omitempty"`
	Category      string                 `json:"category,omitempty"`
	Difficulty    int                    `json:"difficulty"`
	Tags          []string               `json:"tags,omitempty"`
	Solution      models.Solution        `json:"solution"`
	QuestionType  string                 `json:"question_type"`
	QuestionRoot  string                 `json:"question_root,omitempty"`
	Premises      []string               `json:"premises,omitempty"`
}

// HasCorrectOption reports whether a correct option label was supplied
func (c RawCandidate) HasCorrectOption() bool {
	return strings.TrimSpace(c.CorrectOption) != ""
}

// HasLegislation reports whether the candidate names a legislation code
func (c RawCandidate) HasLegislation() bool {
	return c.Legislation != nil && c.Legislation.NormalizedCode() != ""
}

// OptionIDs returns the upper-cased option labels in input order
func (c RawCandidate) OptionIDs() []string {
	ids := make([]string, 0, len(c.Options))
	for _, opt := range c.Options {
		ids = append(ids, normalizeOptionID(opt.ID))
	}
	return ids
}

// ToQuestion converts the candidate into a corpus document. Identity,
// timestamps and classification fields are filled in by the caller
func (c RawCandidate) ToQuestion() models.Question {
	q := models.Question{
		Text:          strings.TrimSpace(c.Text),
		Options:       make(models.Options, 0, len(c.Options)),
		CorrectOption: normalizeOptionID(c.CorrectOption),
		Category:      c.Category,
		Difficulty:    c.Difficulty,
		Tags:          models.StringList(c.Tags),
		Solution:      c.Solution,
		QuestionType:  c.QuestionType,
		QuestionRoot:  c.QuestionRoot,
		Premises:      models.StringList(c.Premises),
		IsActive:      true,
	}
	for _, opt := range c.Options {
		q.Options = append(q.Options, models.Option{ID: normalizeOptionID(opt.ID), Text: strings.TrimSpace(opt.Text)})
	}
	if q.Category == "" {
		q.Category = DefaultCategory
	}
	if q.Difficulty == 0 {
		q.Difficulty = DefaultDifficulty
	}
	if q.QuestionType == "" {
		q.QuestionType = models.QuestionTypeStandard
	}
	if c.Legislation != nil {
		q.LegislationCode = c.Legislation.NormalizedCode()
		q.LegislationName = strings.TrimSpace(c.Legislation.Name)
		q.LegislationArticle = strings.TrimSpace(c.Legislation.Article)
	}
	return q
}

func normalizeOptionID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
