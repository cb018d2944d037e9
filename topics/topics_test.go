package topics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTablesLoad(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatalf("default tables: %v", err)
	}
	if len(tables.Topics) != 23 {
		t.Fatalf("expected 23 topics, got %d", len(tables.Topics))
	}
	cmk, ok := tables.Topic("topic_alan_09")
	if !ok {
		t.Fatal("expected CMK topic")
	}
	if len(cmk.Lessons) != 7 {
		t.Fatalf("expected 7 CMK lessons, got %d", len(cmk.Lessons))
	}
	if cmk.Lessons[3].Title != "Dördüncü Kitap (Mağdur, Tanık)" {
		t.Fatalf("unexpected lesson title %q", cmk.Lessons[3].Title)
	}
}

func TestRulesKeepDeclarationOrder(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatalf("default tables: %v", err)
	}
	rules := tables.Rules()
	if rules[0].Code != "2709" || rules[0].TopicID != "topic_ortak_01" {
		t.Fatalf("unexpected first rule %+v", rules[0])
	}

	var cbk []Rule
	for _, r := range rules {
		if r.Code == "CBK-1" {
			cbk = append(cbk, r)
		}
	}
	if len(cbk) != 3 {
		t.Fatalf("expected 3 CBK-1 rows, got %d", len(cbk))
	}
	if cbk[0].TopicID != "topic_ortak_03" || cbk[2].ArticleRange != "KISIM-6" {
		t.Fatalf("unexpected CBK-1 order %+v", cbk)
	}
}

func TestRuleContains(t *testing.T) {
	cases := []struct {
		rng     string
		article int
		want    bool
	}{
		{"1-156", 1, true},
		{"1-156", 156, true},
		{"1-156", 157, false},
		{"ALL", 9999, true},
		{"all", 1, true},
		{"KISIM-6", 6, false},
		{"KISIM-1-3", 2, false},
		{"42", 42, true},
		{"10-5", 7, false},
	}
	for _, tc := range cases {
		got := Rule{ArticleRange: tc.rng}.Contains(tc.article)
		if got != tc.want {
			t.Fatalf("Contains(%q, %d) = %v, want %v", tc.rng, tc.article, got, tc.want)
		}
	}
}

func TestKeywordTopicsSkipsTopicsWithoutKeywords(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatalf("default tables: %v", err)
	}
	for _, kt := range tables.KeywordTopics() {
		if kt.TopicID == "topic_alan_01" || kt.TopicID == "topic_alan_02" {
			t.Fatalf("topic %s has no keywords and should be skipped", kt.TopicID)
		}
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	body := []byte(`topics:
  - id: t1
    title: One
    lessons:
      - { title: "L1", legislation_code: "100", article_range: "1-5", q_target: 1 }
    keywords: ["alpha"]
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tables, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tables.Topics) != 1 || tables.Rules()[0].Code != "100" {
		t.Fatalf("unexpected tables %+v", tables)
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte(`topics:
  - id: a
  - id: a
`))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	if _, err := Parse([]byte(`topics: []`)); err != ErrEmptyTables {
		t.Fatalf("expected ErrEmptyTables, got %v", err)
	}
}
