package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option is one labeled answer choice
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Options represents the answer choices of a question
type Options []Option

// Value implements driver.Valuer for JSONB
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		return json.Marshal([]Option{})
	}
	return json.Marshal([]Option(o))
}

// Scan implements sql.Scanner for JSONB
func (o *Options) Scan(value interface{}) error {
	var out []Option
	ok, err := scanJSONB(value, &out)
	if err != nil {
		return err
	}
	if !ok || out == nil {
		*o = make(Options, 0)
		return nil
	}
	*o = out
	return nil
}

// Solution holds the explanation blocks shown after answering
type Solution struct {
	Analysis    string `json:"analysis,omitempty"`
	Legislation string `json:"legislation,omitempty"`
	KeyPoint    string `json:"key_point,omitempty"`
	Trap        string `json:"trap,omitempty"`
}

// IsZero reports whether no solution block is filled in
func (s Solution) IsZero() bool {
	return s.Analysis == "" && s.Legislation == "" && s.KeyPoint == "" && s.Trap == ""
}

// Value implements driver.Valuer for JSONB
func (s Solution) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *Solution) Scan(value interface{}) error {
	var out Solution
	ok, err := scanJSONB(value, &out)
	if err != nil {
		return err
	}
	if !ok {
		*s = Solution{}
		return nil
	}
	*s = out
	return nil
}

// LegislationRef points a question at a statute article
type LegislationRef struct {
	Code    string `json:"code"`
	Name    string `json:"name,omitempty"`
	Article string `json:"article,omitempty"`
}

// NormalizedCode returns the code trimmed and upper-cased for table lookups
func (r LegislationRef) NormalizedCode() string {
	return strings.ToUpper(strings.TrimSpace(r.Code))
}

// Question types
const (
	QuestionTypeStandard = "standard"
	QuestionTypePremise  = "oncullu"
)

// Question is a corpus document
type Question struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Text               string     `json:"text" db:"text"`
	Options            Options    `json:"options" db:"options"`
	CorrectOption      string     `json:"correct_option" db:"correct_option"`
	Category           string     `json:"category" db:"category"`
	TopicID            string     `json:"topic_id" db:"topic_id"`
	Lesson             string     `json:"lesson" db:"lesson"`
	LegislationCode    string     `json:"legislation_code,omitempty" db:"legislation_code"`
	LegislationName    string     `json:"legislation_name,omitempty" db:"legislation_name"`
	LegislationArticle string     `json:"legislation_article,omitempty" db:"legislation_article"`
	Difficulty         int        `json:"difficulty" db:"difficulty"`
	Tags               StringList `json:"tags" db:"tags"`
	Solution           Solution   `json:"solution" db:"solution"`
	QuestionType       string     `json:"question_type" db:"question_type"`
	QuestionRoot       string     `json:"question_root,omitempty" db:"question_root"`
	Premises           StringList `json:"premises,omitempty" db:"premises"`
	Signature          string     `json:"-" db:"signature"`
	SignatureHash      string     `json:"signature_hash" db:"signature_hash"`
	Source             string     `json:"source" db:"source"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	IsDeleted          bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Legislation returns the question's legislation reference
func (q Question) Legislation() LegislationRef {
	return LegislationRef{
		Code:    q.LegislationCode,
		Name:    q.LegislationName,
		Article: q.LegislationArticle,
	}
}
