package importer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Severity of a quality issue
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Quality thresholds
const (
	MinOptions        = 2
	MaxOptions        = 5
	MinQuestionLength = 15
	MinOptionLength   = 2
)

// Issue codes
const (
	IssueTooFewOptions      = "too_few_options"
	IssueMissingText        = "missing_text"
	IssueMissingCorrect     = "missing_correct_answer"
	IssueCorrectNotInOption = "correct_answer_not_in_options"
	IssueDuplicateOptionID  = "duplicate_option_id"
	IssueShortText          = "short_text"
	IssueShortOption        = "short_option"
	IssueNoTopicHint        = "no_topic_hint"
	IssueTooManyOptions     = "too_many_options"
)

// Issue is one finding of the quality scorer
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// QualityReport lists issues in the order they were found
type QualityReport []Issue

// HasCritical reports whether any issue is critical
func (r QualityReport) HasCritical() bool {
	for _, issue := range r {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Count returns the number of issues with the given severity
func (r QualityReport) Count(sev Severity) int {
	n := 0
	for _, issue := range r {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// Score checks a candidate for structural problems. Critical issues keep
// the candidate out of every bulk approval
func Score(c RawCandidate, cls Classification) QualityReport {
	var report QualityReport
	critical := func(code, msg string) {
		report = append(report, Issue{Severity: SeverityCritical, Code: code, Message: msg})
	}
	warning := func(code, msg string) {
		report = append(report, Issue{Severity: SeverityWarning, Code: code, Message: msg})
	}

	text := strings.TrimSpace(c.Text)
	if text == "" {
		critical(IssueMissingText, "missing question text")
	}
	if len(c.Options) < MinOptions {
		critical(IssueTooFewOptions, fmt.Sprintf("fewer than %d options (%d)", MinOptions, len(c.Options)))
	}

	ids := make(map[string]bool, len(c.Options))
	for _, id := range c.OptionIDs() {
		if ids[id] {
			critical(IssueDuplicateOptionID, fmt.Sprintf("option %q appears more than once", id))
		}
		ids[id] = true
	}

	if !c.HasCorrectOption() {
		critical(IssueMissingCorrect, "missing correct answer")
	} else if correct := normalizeOptionID(c.CorrectOption); !ids[correct] {
		critical(IssueCorrectNotInOption, fmt.Sprintf("correct answer %q is not among the options", correct))
	}

	if text != "" && utf8.RuneCountInString(text) < MinQuestionLength {
		warning(IssueShortText, fmt.Sprintf("question text shorter than %d characters", MinQuestionLength))
	}
	for _, opt := range c.Options {
		if utf8.RuneCountInString(strings.TrimSpace(opt.Text)) < MinOptionLength {
			warning(IssueShortOption, fmt.Sprintf("option %s shorter than %d characters", normalizeOptionID(opt.ID), MinOptionLength))
		}
	}
	if len(c.Options) > MaxOptions {
		warning(IssueTooManyOptions, fmt.Sprintf("more than %d options (%d)", MaxOptions, len(c.Options)))
	}
	if !c.HasLegislation() && cls.KeywordHits() == 0 && cls.Reason != ReasonManual {
		warning(IssueNoTopicHint, "no legislation code and no keyword match")
	}

	return report
}
