package importer

import (
	"reflect"
	"testing"

	"quizbank-backend/models"
	"quizbank-backend/topics"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	tables, err := topics.Default()
	if err != nil {
		t.Fatalf("load default tables: %v", err)
	}
	return NewClassifier(tables)
}

func classifyText(c *Classifier, text string, ref *models.LegislationRef) Classification {
	cand := RawCandidate{Text: text, Legislation: ref}
	return c.Classify(cand, Normalize(text))
}

func TestClassifyLegislationArticle(t *testing.T) {
	c := newTestClassifier(t)
	// Keyword hits point at the civil procedure topic; the legislation ref wins
	got := classifyText(c, "HMK hukuk muhakemeleri bilirkişi istinaf temyiz", &models.LegislationRef{Code: "5271", Article: "231"})
	if got.TopicID != "topic_alan_09" {
		t.Fatalf("expected topic_alan_09, got %q", got.TopicID)
	}
	if got.Lesson != "Üçüncü Kitap (Kovuşturma)" {
		t.Fatalf("unexpected lesson %q", got.Lesson)
	}
	if got.Tier != TierHigh || got.Reason != ReasonLegislationArticle {
		t.Fatalf("expected high/legislation_article, got %s/%s", got.Tier, got.Reason)
	}
}

func TestClassifyLegislationCodeFallsBackToFirstRow(t *testing.T) {
	c := newTestClassifier(t)
	// 256 sits in a gap between the CMK ranges
	got := classifyText(c, "Soru", &models.LegislationRef{Code: " 5271 ", Article: "256"})
	if got.TopicID != "topic_alan_09" || got.Lesson != "Birinci Kitap (Genel Hükümler)" {
		t.Fatalf("unexpected classification %+v", got)
	}
	if got.Tier != TierHigh || got.Reason != ReasonLegislationCode {
		t.Fatalf("expected high/legislation_code, got %s/%s", got.Tier, got.Reason)
	}

	noArticle := classifyText(c, "Soru", &models.LegislationRef{Code: "5271", Article: "geçici madde"})
	if noArticle.Reason != ReasonLegislationCode {
		t.Fatalf("expected legislation_code without a numeric article, got %s", noArticle.Reason)
	}
}

func TestClassifyAllRangeMatchesAnyArticle(t *testing.T) {
	c := newTestClassifier(t)
	got := classifyText(c, "Soru", &models.LegislationRef{Code: "657", Article: "125"})
	if got.TopicID != "topic_ortak_04" || got.Reason != ReasonLegislationArticle {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestClassifyUnknownCodeUsesKeywords(t *testing.T) {
	c := newTestClassifier(t)
	got := classifyText(c, "Devlet memurları kanununa göre kınama cezası", &models.LegislationRef{Code: "9999"})
	if got.TopicID != "topic_ortak_04" {
		t.Fatalf("expected topic_ortak_04, got %q", got.TopicID)
	}
	if got.Tier != TierMedium || got.Reason != ReasonKeywords {
		t.Fatalf("expected medium/keywords, got %s/%s", got.Tier, got.Reason)
	}
	if !reflect.DeepEqual(got.MatchedKeywords, []string{"devlet memurları", "kınama"}) {
		t.Fatalf("unexpected matched keywords %v", got.MatchedKeywords)
	}
}

func TestClassifyKeywordTiers(t *testing.T) {
	c := newTestClassifier(t)

	low := classifyText(c, "Paragrafta anlatılmak istenen nedir?", nil)
	if low.TopicID != "topic_ortak_05" || low.Tier != TierLow {
		t.Fatalf("expected topic_ortak_05/low, got %s/%s", low.TopicID, low.Tier)
	}

	none := classifyText(c, "Lorem ipsum dolor", nil)
	if none.TopicID != "" || none.Tier != TierNone || none.Reason != ReasonNoMatch {
		t.Fatalf("expected no match, got %+v", none)
	}

	empty := classifyText(c, "", nil)
	if empty.Tier != TierNone {
		t.Fatalf("expected none for empty text, got %s", empty.Tier)
	}
}

func TestClassifyKeywordTieKeepsDeclarationOrder(t *testing.T) {
	c := newTestClassifier(t)
	// "tanık" is a keyword of both the CMK and HMK topics; CMK is declared first
	got := classifyText(c, "Tanık dinlenmesi hakkında", nil)
	if got.TopicID != "topic_alan_09" {
		t.Fatalf("expected the earlier topic to win the tie, got %q", got.TopicID)
	}
	if got.Tier != TierLow {
		t.Fatalf("expected low, got %s", got.Tier)
	}
}

func TestParseArticle(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"231", 231, true},
		{" 231/2 ", 231, true},
		{"174. madde", 174, true},
		{"geçici 1", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseArticle(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseArticle(%q) = %d %v, want %d %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestKnownTopic(t *testing.T) {
	c := newTestClassifier(t)
	if !c.KnownTopic("topic_alan_09") {
		t.Fatalf("expected topic_alan_09 to be known")
	}
	if c.KnownTopic("topic_missing") {
		t.Fatalf("expected unknown topic")
	}
	if !c.HasLegislationRule("cbk-1") {
		t.Fatalf("expected case insensitive code lookup")
	}
}
