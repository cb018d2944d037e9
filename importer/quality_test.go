package importer

import (
	"testing"

	"quizbank-backend/models"
)

func completeCandidate() RawCandidate {
	return RawCandidate{
		Row:  1,
		Text: "CMK'ya göre iddianamenin iadesi kaç gün içinde yapılabilir?",
		Options: []models.Option{
			{ID: "A", Text: "7 gün"},
			{ID: "B", Text: "10 gün"},
			{ID: "C", Text: "15 gün"},
			{ID: "D", Text: "30 gün"},
		},
		CorrectOption: "C",
		Legislation:   &models.LegislationRef{Code: "5271", Article: "174"},
	}
}

func issueCodes(r QualityReport) map[string]Severity {
	out := make(map[string]Severity, len(r))
	for _, issue := range r {
		out[issue.Code] = issue.Severity
	}
	return out
}

func TestScoreCleanCandidate(t *testing.T) {
	report := Score(completeCandidate(), Classification{Tier: TierHigh, Reason: ReasonLegislationArticle})
	if len(report) != 0 {
		t.Fatalf("expected no issues, got %+v", report)
	}
}

func TestScoreMissingCorrectAnswer(t *testing.T) {
	c := completeCandidate()
	c.CorrectOption = ""
	report := Score(c, Classification{Tier: TierHigh})
	if !report.HasCritical() {
		t.Fatalf("expected a critical issue")
	}
	if len(report) != 1 || report[0].Code != IssueMissingCorrect || report[0].Message != "missing correct answer" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestScoreCriticalIssues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawCandidate)
		code   string
	}{
		{"missing text", func(c *RawCandidate) { c.Text = "  " }, IssueMissingText},
		{"too few options", func(c *RawCandidate) { c.Options = c.Options[:1]; c.CorrectOption = "A" }, IssueTooFewOptions},
		{"correct not in options", func(c *RawCandidate) { c.CorrectOption = "E" }, IssueCorrectNotInOption},
		{"duplicate option id", func(c *RawCandidate) { c.Options[3].ID = "a" }, IssueDuplicateOptionID},
	}
	for _, tc := range cases {
		c := completeCandidate()
		tc.mutate(&c)
		codes := issueCodes(Score(c, Classification{Tier: TierHigh}))
		if codes[tc.code] != SeverityCritical {
			t.Fatalf("%s: expected critical %s, got %v", tc.name, tc.code, codes)
		}
	}
}

func TestScoreWarnings(t *testing.T) {
	c := completeCandidate()
	c.Text = "Kısa soru?"
	c.Legislation = nil
	c.Options = append(c.Options,
		models.Option{ID: "E", Text: "60 gün"},
		models.Option{ID: "F", Text: "x"},
	)
	report := Score(c, Classification{Tier: TierNone, Reason: ReasonNoMatch})
	if report.HasCritical() {
		t.Fatalf("expected warnings only, got %+v", report)
	}
	codes := issueCodes(report)
	for _, code := range []string{IssueShortText, IssueShortOption, IssueTooManyOptions, IssueNoTopicHint} {
		if codes[code] != SeverityWarning {
			t.Fatalf("expected warning %s, got %v", code, codes)
		}
	}
	if report.Count(SeverityWarning) != 4 {
		t.Fatalf("expected 4 warnings, got %d", report.Count(SeverityWarning))
	}
}

func TestScoreTopicHintSatisfiedByKeywordsOrManualTopic(t *testing.T) {
	c := completeCandidate()
	c.Legislation = nil

	byKeyword := Score(c, Classification{Tier: TierLow, Reason: ReasonKeywords, MatchedKeywords: []string{"iddianame"}})
	if _, ok := issueCodes(byKeyword)[IssueNoTopicHint]; ok {
		t.Fatalf("expected keyword hit to satisfy topic hint")
	}
	manual := Score(c, Classification{TopicID: "topic_alan_09", Tier: TierHigh, Reason: ReasonManual})
	if _, ok := issueCodes(manual)[IssueNoTopicHint]; ok {
		t.Fatalf("expected manual topic to satisfy topic hint")
	}
}
