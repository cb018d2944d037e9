package importer

import (
	"fmt"
	"strconv"
	"strings"

	"quizbank-backend/topics"
)

// Tier is the coarse confidence of a topic suggestion
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// Classification reasons
const (
	ReasonLegislationArticle = "legislation_article"
	ReasonLegislationCode    = "legislation_code"
	ReasonKeywords           = "keywords"
	ReasonNoMatch            = "no_match"
	ReasonManual             = "manual"
)

// Classification is the topic suggestion for a single candidate
type Classification struct {
	TopicID         string   `json:"topic_id,omitempty"`
	Lesson          string   `json:"lesson,omitempty"`
	Tier            Tier     `json:"tier"`
	Reason          string   `json:"reason"`
	Detail          string   `json:"detail,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// KeywordHits returns the number of distinct keywords that matched
func (c Classification) KeywordHits() int {
	return len(c.MatchedKeywords)
}

// FromLegislation reports whether the suggestion came from the legislation table
func (c Classification) FromLegislation() bool {
	return c.Reason == ReasonLegislationArticle || c.Reason == ReasonLegislationCode
}

type keywordTopic struct {
	topicID  string
	keywords []compiledKeyword
}

type compiledKeyword struct {
	raw       string
	canonical string
}

// Classifier suggests topics from a legislation table, falling back to a
// keyword dictionary. A legislation match always takes precedence
type Classifier struct {
	rulesByCode map[string][]topics.Rule
	keywords    []keywordTopic
	topicIDs    map[string]bool
}

// NewClassifier compiles the lookup tables. Keywords are canonicalized once
// here so matching shares the candidate normalizer
func NewClassifier(tables topics.Tables) *Classifier {
	c := &Classifier{
		rulesByCode: make(map[string][]topics.Rule),
		topicIDs:    make(map[string]bool, len(tables.Topics)),
	}
	for _, t := range tables.Topics {
		c.topicIDs[t.ID] = true
	}
	for _, rule := range tables.Rules() {
		c.rulesByCode[rule.Code] = append(c.rulesByCode[rule.Code], rule)
	}
	for _, kt := range tables.KeywordTopics() {
		compiled := keywordTopic{topicID: kt.TopicID}
		seen := make(map[string]bool)
		for _, kw := range kt.Keywords {
			canon := Canonical(kw)
			if canon == "" || seen[canon] {
				continue
			}
			seen[canon] = true
			compiled.keywords = append(compiled.keywords, compiledKeyword{raw: kw, canonical: canon})
		}
		if len(compiled.keywords) > 0 {
			c.keywords = append(c.keywords, compiled)
		}
	}
	return c
}

// Classify assigns a topic to the candidate. norm must be the candidate's
// normalized question text
func (c *Classifier) Classify(cand RawCandidate, norm Normalized) Classification {
	if result, ok := c.classifyByLegislation(cand); ok {
		return result
	}
	return c.classifyByKeywords(norm.Canonical)
}

// KnownTopic reports whether id names a topic in the tables
func (c *Classifier) KnownTopic(id string) bool {
	return c.topicIDs[id]
}

// HasLegislationRule reports whether code has at least one table row
func (c *Classifier) HasLegislationRule(code string) bool {
	return len(c.rulesByCode[strings.ToUpper(strings.TrimSpace(code))]) > 0
}

func (c *Classifier) classifyByLegislation(cand RawCandidate) (Classification, bool) {
	if !cand.HasLegislation() {
		return Classification{}, false
	}
	code := cand.Legislation.NormalizedCode()
	rules := c.rulesByCode[code]
	if len(rules) == 0 {
		return Classification{}, false
	}

	if article, ok := ParseArticle(cand.Legislation.Article); ok {
		for _, rule := range rules {
			if rule.Contains(article) {
				return Classification{
					TopicID: rule.TopicID,
					Lesson:  rule.Lesson,
					Tier:    TierHigh,
					Reason:  ReasonLegislationArticle,
					Detail:  fmt.Sprintf("%s md. %d in %s", code, article, rule.ArticleRange),
				}, true
			}
		}
	}

	first := rules[0]
	return Classification{
		TopicID: first.TopicID,
		Lesson:  first.Lesson,
		Tier:    TierHigh,
		Reason:  ReasonLegislationCode,
		Detail:  code,
	}, true
}

func (c *Classifier) classifyByKeywords(canonical string) Classification {
	if canonical == "" || len(c.keywords) == 0 {
		return Classification{Tier: TierNone, Reason: ReasonNoMatch}
	}

	bestIdx := -1
	var bestHits []string
	for i, kt := range c.keywords {
		var hits []string
		for _, kw := range kt.keywords {
			if strings.Contains(canonical, kw.canonical) {
				hits = append(hits, kw.raw)
			}
		}
		// Strictly greater keeps the earlier topic on ties
		if len(hits) > len(bestHits) {
			bestIdx = i
			bestHits = hits
		}
	}

	if bestIdx < 0 {
		return Classification{Tier: TierNone, Reason: ReasonNoMatch}
	}

	tier := TierLow
	if len(bestHits) >= 2 {
		tier = TierMedium
	}
	return Classification{
		TopicID:         c.keywords[bestIdx].topicID,
		Tier:            tier,
		Reason:          ReasonKeywords,
		MatchedKeywords: bestHits,
	}
}

// ParseArticle reads the leading integer of an article reference, so
// "231/2" and "231. madde" both yield 231
func ParseArticle(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
