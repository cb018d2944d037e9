package importer

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"quizbank-backend/models"
)

func TestLoadJSONArray(t *testing.T) {
	doc := `[
	  {
	    "text": "CMK'ya göre tutuklama kararını kim verir?",
	    "options": [{"id": "a", "text": "Savcı"}, {"id": "b", "text": "Hakim"}],
	    "correctAnswer": "b",
	    "legislationRef": {"code": "5271", "name": "Ceza Muhakemesi Kanunu", "article": "101"},
	    "difficulty": 4,
	    "tags": ["tutuklama", "cmk"],
	    "solution": {"analiz": "Tutuklama hakim kararıdır.", "hap": "Savcı talep eder."}
	  }
	]`
	cands, err := Load("questions.json", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Row != 1 || c.CorrectOption != "B" || c.Difficulty != 4 {
		t.Fatalf("unexpected candidate %+v", c)
	}
	wantOpts := []models.Option{{ID: "A", Text: "Savcı"}, {ID: "B", Text: "Hakim"}}
	if !reflect.DeepEqual(c.Options, wantOpts) {
		t.Fatalf("options = %+v, want %+v", c.Options, wantOpts)
	}
	if c.Legislation == nil || c.Legislation.Code != "5271" || c.Legislation.Article != "101" {
		t.Fatalf("unexpected legislation %+v", c.Legislation)
	}
	if c.Solution.Analysis != "Tutuklama hakim kararıdır." || c.Solution.KeyPoint != "Savcı talep eder." {
		t.Fatalf("unexpected solution %+v", c.Solution)
	}
	if c.Category != DefaultCategory || c.QuestionType != models.QuestionTypeStandard {
		t.Fatalf("expected defaults, got %q %q", c.Category, c.QuestionType)
	}
	if !reflect.DeepEqual(c.Tags, []string{"tutuklama", "cmk"}) {
		t.Fatalf("unexpected tags %v", c.Tags)
	}
}

func TestLoadJSONWrappedAndAliases(t *testing.T) {
	doc := `{"sorular": [
	  {"soruMetni": "Hangisi bir kanun yoludur?", "Şıklar": ["İstinaf", "Tebligat", "Harç"], "Doğru Cevap": "a",
	   "Kanun No": "5271", "Madde No": "272", "onculler": ["I. bir", "II. iki"]},
	  {"question": "Seçenek haritası", "options": {"B": "İki", "A": "Bir"}, "answer": "A"}
	]}`
	cands, err := Load("upload.JSON", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}

	first := cands[0]
	if first.Text != "Hangisi bir kanun yoludur?" {
		t.Fatalf("unexpected text %q", first.Text)
	}
	if len(first.Options) != 3 || first.Options[0].ID != "A" || first.Options[2].ID != "C" {
		t.Fatalf("unexpected options %+v", first.Options)
	}
	if first.QuestionType != models.QuestionTypePremise || len(first.Premises) != 2 {
		t.Fatalf("expected premise question, got %q %v", first.QuestionType, first.Premises)
	}
	if first.Legislation == nil || first.Legislation.Article != "272" {
		t.Fatalf("expected flat legislation columns to be read, got %+v", first.Legislation)
	}

	second := cands[1]
	want := []models.Option{{ID: "A", Text: "Bir"}, {ID: "B", Text: "İki"}}
	if !reflect.DeepEqual(second.Options, want) {
		t.Fatalf("options = %+v, want %+v", second.Options, want)
	}
	if second.Legislation != nil {
		t.Fatalf("expected no legislation, got %+v", second.Legislation)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		body     string
		want     error
	}{
		{"unsupported", "questions.pdf", "x", ErrUnsupportedFormat},
		{"invalid json", "q.json", "{", ErrParseFailed},
		{"non object item", "q.json", `[{"text": "a"}, 5]`, ErrParseFailed},
		{"scalar document", "q.json", `"text"`, ErrParseFailed},
		{"empty array", "q.json", `[]`, ErrEmptyFile},
		{"csv without text column", "q.csv", "A,B\nbir,iki\n", ErrParseFailed},
		{"csv header only", "q.csv", "Soru Metni,A,B\n", ErrEmptyFile},
		{"trailing partial document", "q.json", `[{"text": "Tutuklama kararını kim verir?", "options": ["Hakim", "Savcı"], "answer": "A"}] {"broken": `, ErrParseFailed},
		{"trailing second array", "q.json", `[{"text": "a"}] [{"text": "b"}]`, ErrParseFailed},
	}
	for _, tc := range cases {
		_, err := Load(tc.filename, strings.NewReader(tc.body))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadJSONTrailingWhitespace(t *testing.T) {
	cands, err := Load("q.json", strings.NewReader("[{\"text\": \"Tebligat nasıl yapılır?\"}]\n\n  "))
	if err != nil || len(cands) != 1 {
		t.Fatalf("expected trailing whitespace to be accepted, got %d %v", len(cands), err)
	}
}

func TestLoadAliasConflictsAreDeterministic(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		body     string
		check    func(c RawCandidate) bool
	}{
		{
			name:     "text before question",
			filename: "q.json",
			body:     `[{"question": "İkinci metin", "text": "Birinci metin", "soru": "Üçüncü metin", "options": ["a", "b"], "answer": "A"}]`,
			check:    func(c RawCandidate) bool { return c.Text == "Birinci metin" },
		},
		{
			name:     "questions before sorular",
			filename: "q.json",
			body:     `{"sorular": [{"text": "Türkçe sarmalayıcı"}], "questions": [{"text": "İngilizce sarmalayıcı"}]}`,
			check:    func(c RawCandidate) bool { return c.Text == "İngilizce sarmalayıcı" },
		},
		{
			name:     "solution aliases",
			filename: "q.json",
			body:     `[{"text": "Soru", "solution": {"analysis": "ikinci", "analiz": "birinci", "trap": "t2", "tuzak": "t1"}}]`,
			check:    func(c RawCandidate) bool { return c.Solution.Analysis == "birinci" && c.Solution.Trap == "t1" },
		},
		{
			name:     "legislation aliases",
			filename: "q.json",
			body:     `[{"text": "Soru", "legislationRef": {"no": "9999", "code": "5271", "madde": "2", "article": "1", "title": "B", "name": "A"}}]`,
			check: func(c RawCandidate) bool {
				return c.Legislation != nil && c.Legislation.Code == "5271" && c.Legislation.Article == "1" && c.Legislation.Name == "A"
			},
		},
		{
			name:     "option aliases",
			filename: "q.json",
			body:     `[{"text": "Soru", "options": [{"harf": "b", "id": "a", "metin": "ikinci", "text": "birinci"}]}]`,
			check: func(c RawCandidate) bool {
				return len(c.Options) == 1 && c.Options[0].ID == "A" && c.Options[0].Text == "birinci"
			},
		},
		{
			name:     "duplicate csv headers",
			filename: "q.csv",
			body:     "Soru Metni,text,question,A,B\nÜçüncü,Birinci,İkinci,x,y\n",
			check:    func(c RawCandidate) bool { return c.Text == "Birinci" },
		},
		{
			name:     "repeated csv header keeps leftmost",
			filename: "q.csv",
			body:     "text,A,text\nSol,x,Sağ\n",
			check:    func(c RawCandidate) bool { return c.Text == "Sol" },
		},
	}
	for _, tc := range cases {
		for i := 0; i < 50; i++ {
			cands, err := Load(tc.filename, strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("%s: load: %v", tc.name, err)
			}
			if len(cands) != 1 || !tc.check(cands[0]) {
				t.Fatalf("%s: run %d picked the wrong alias: %+v", tc.name, i, cands)
			}
		}
	}
}

func TestLoadCSV(t *testing.T) {
	body := "\ufeffSoru Metni,A,B,C,Doğru Cevap,Kanun No,Madde No,Etiketler\n" +
		"\"Anayasa, hangi yıl kabul edildi?\",1961,1982,1924,b,2709,,\"anayasa, tarih\"\n" +
		",,,,,,,\n" +
		"Yasama yetkisi kime aittir?,TBMM,Bakanlar,,A,,,\n"
	cands, err := Load("sorular.csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d candidates", len(cands))
	}
	if cands[0].Text != "Anayasa, hangi yıl kabul edildi?" || len(cands[0].Options) != 3 {
		t.Fatalf("unexpected first candidate %+v", cands[0])
	}
	if cands[0].Legislation == nil || cands[0].Legislation.Code != "2709" {
		t.Fatalf("unexpected legislation %+v", cands[0].Legislation)
	}
	if !reflect.DeepEqual(cands[0].Tags, []string{"anayasa", "tarih"}) {
		t.Fatalf("unexpected tags %v", cands[0].Tags)
	}
	if cands[1].Row != 3 {
		t.Fatalf("expected source row 3, got %d", cands[1].Row)
	}
	if len(cands[1].Options) != 2 || cands[1].Legislation != nil {
		t.Fatalf("unexpected second candidate %+v", cands[1])
	}
}

func TestLoadTSV(t *testing.T) {
	body := "text\toptionA\toptionB\tcorrect\n" +
		"Tebligat hangi kanunla düzenlenir?\t7201\t6100\tA\n"
	cands, err := Load("q.tsv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cands) != 1 || cands[0].CorrectOption != "A" || cands[0].Options[1].Text != "6100" {
		t.Fatalf("unexpected candidates %+v", cands)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cands, err := Load("sablon.xlsx", &buf)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 example row, got %d", len(cands))
	}
	c := cands[0]
	if len(c.Options) != 5 || c.CorrectOption != "C" || c.Difficulty != 3 {
		t.Fatalf("unexpected example candidate %+v", c)
	}
	if c.Legislation == nil || c.Legislation.Code != "5271" || c.Legislation.Article != "174" {
		t.Fatalf("unexpected legislation %+v", c.Legislation)
	}
	if c.Solution.Legislation != "CMK m.174/1" || c.Solution.Trap == "" {
		t.Fatalf("unexpected solution %+v", c.Solution)
	}
	if !reflect.DeepEqual(c.Tags, []string{"iddianame", "iade"}) {
		t.Fatalf("unexpected tags %v", c.Tags)
	}
	if report := Score(c, Classification{Tier: TierHigh, Reason: ReasonLegislationArticle}); report.HasCritical() {
		t.Fatalf("expected template example to be clean, got %+v", report)
	}
}
