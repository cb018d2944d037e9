package topics

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// RangeAll marks a lesson that covers every article of its legislation
const RangeAll = "ALL"

var ErrEmptyTables = errors.New("topic tables contain no topics")

// Lesson is one exam lesson bound to a legislation code and article range
type Lesson struct {
	Title           string `yaml:"title" json:"title"`
	LegislationCode string `yaml:"legislation_code" json:"legislation_code"`
	ArticleRange    string `yaml:"article_range" json:"article_range"`
	QTarget         int    `yaml:"q_target" json:"q_target"`
}

// Topic groups lessons and the keywords used when no legislation code is given
type Topic struct {
	ID                  string   `yaml:"id" json:"id"`
	Title               string   `yaml:"title" json:"title"`
	Category            string   `yaml:"category" json:"category"`
	TotalQuestionTarget int      `yaml:"total_question_target" json:"total_question_target"`
	Lessons             []Lesson `yaml:"lessons" json:"lessons"`
	Keywords            []string `yaml:"keywords" json:"keywords,omitempty"`
}

// Tables is the ordered topic table. Declaration order is significant
type Tables struct {
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Rule is one row of the legislation lookup table
type Rule struct {
	Code         string `json:"code"`
	ArticleRange string `json:"article_range"`
	TopicID      string `json:"topic_id"`
	Lesson       string `json:"lesson"`
}

// Contains reports whether article falls inside the rule's inclusive range.
// Non-numeric ranges such as "KISIM-6" contain no article
func (r Rule) Contains(article int) bool {
	if strings.EqualFold(r.ArticleRange, RangeAll) {
		return true
	}
	lo, hi, ok := ParseRange(r.ArticleRange)
	return ok && article >= lo && article <= hi
}

// ParseRange parses "lo-hi" or a single article number
func ParseRange(s string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return lo, lo, true
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// KeywordTopic is one entry of the keyword dictionary
type KeywordTopic struct {
	TopicID  string
	Keywords []string
}

// Default returns the built-in tables
func Default() (Tables, error) {
	return Parse(defaultsYAML)
}

// Load reads tables from path, or the built-in tables when path is empty
func Load(path string) (Tables, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read topics file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML topic table
func Parse(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse topics: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Validate checks ids are present and unique
func (t Tables) Validate() error {
	if len(t.Topics) == 0 {
		return ErrEmptyTables
	}
	seen := make(map[string]bool, len(t.Topics))
	for i, topic := range t.Topics {
		id := strings.TrimSpace(topic.ID)
		if id == "" {
			return fmt.Errorf("topic %d has no id", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate topic id %q", id)
		}
		seen[id] = true
		for j, lesson := range topic.Lessons {
			if strings.TrimSpace(lesson.LegislationCode) == "" {
				return fmt.Errorf("topic %s lesson %d has no legislation code", id, j)
			}
		}
	}
	return nil
}

// Topic returns the topic with the given id
func (t Tables) Topic(id string) (Topic, bool) {
	for _, topic := range t.Topics {
		if topic.ID == id {
			return topic, true
		}
	}
	return Topic{}, false
}

// Rules flattens lessons into legislation rows, in declaration order
func (t Tables) Rules() []Rule {
	var rules []Rule
	for _, topic := range t.Topics {
		for _, lesson := range topic.Lessons {
			rules = append(rules, Rule{
				Code:         strings.ToUpper(strings.TrimSpace(lesson.LegislationCode)),
				ArticleRange: strings.TrimSpace(lesson.ArticleRange),
				TopicID:      topic.ID,
				Lesson:       lesson.Title,
			})
		}
	}
	return rules
}

// KeywordTopics returns topics that declare keywords, in declaration order
func (t Tables) KeywordTopics() []KeywordTopic {
	var out []KeywordTopic
	for _, topic := range t.Topics {
		if len(topic.Keywords) == 0 {
			continue
		}
		out = append(out, KeywordTopic{TopicID: topic.ID, Keywords: topic.Keywords})
	}
	return out
}
