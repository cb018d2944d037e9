package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"quizbank-backend/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported import file format")
	ErrParseFailed       = errors.New("failed to parse import file")
	ErrEmptyFile         = errors.New("import file contains no questions")
)

// SupportedExtensions lists the file types Load understands
var SupportedExtensions = []string{".json", ".csv", ".tsv", ".xlsx"}

type field int

const (
	fieldText field = iota
	fieldCategory
	fieldType
	fieldDifficulty
	fieldCorrect
	fieldOptions
	fieldOptionA
	fieldOptionB
	fieldOptionC
	fieldOptionD
	fieldOptionE
	fieldSolution
	fieldSolutionAnalysis
	fieldSolutionLegislation
	fieldSolutionKeyPoint
	fieldSolutionTrap
	fieldLegislation
	fieldLegislationCode
	fieldLegislationName
	fieldLegislationArticle
	fieldTags
	fieldQuestionRoot
	fieldPremises
)

// fieldAliases lists every historical name a column or JSON key has used.
// Names are compared after canonicalization with spaces removed, so
// "Soru Metni", "soruMetni" and "soru_metni" are the same key
var fieldAliases = map[field][]string{
	fieldText:                {"text", "question", "questionText", "soru", "Soru Metni", "metin"},
	fieldCategory:            {"category", "Kategori"},
	fieldType:                {"type", "Tip", "questionType", "Soru Tipi"},
	fieldDifficulty:          {"difficulty", "Zorluk", "level"},
	fieldCorrect:             {"correctOption", "correctAnswer", "correct", "answer", "Doğru Cevap", "cevap"},
	fieldOptions:             {"options", "choices", "Seçenekler", "Şıklar"},
	fieldOptionA:             {"A", "optionA", "Şık A", "Seçenek A"},
	fieldOptionB:             {"B", "optionB", "Şık B", "Seçenek B"},
	fieldOptionC:             {"C", "optionC", "Şık C", "Seçenek C"},
	fieldOptionD:             {"D", "optionD", "Şık D", "Seçenek D"},
	fieldOptionE:             {"E", "optionE", "Şık E", "Seçenek E"},
	fieldSolution:            {"solution", "Çözüm"},
	fieldSolutionAnalysis:    {"Çözüm Analiz", "analiz", "analysis"},
	fieldSolutionLegislation: {"Mevzuat Dayanak", "dayanak", "dayanakText", "basis"},
	fieldSolutionKeyPoint:    {"Hap Bilgi", "hap", "pill", "keyPoint"},
	fieldSolutionTrap:        {"Tuzak Bilgi", "tuzak", "trap"},
	fieldLegislation:         {"legislationRef", "legislation", "mevzuat"},
	fieldLegislationCode:     {"Kanun No", "legislationCode"},
	fieldLegislationName:     {"Kanun Adı", "legislationName"},
	fieldLegislationArticle:  {"Madde No", "legislationArticle", "article", "madde"},
	fieldTags:                {"tags", "Etiketler", "labels"},
	fieldQuestionRoot:        {"questionRoot", "Soru Kökü"},
	fieldPremises:            {"onculler", "Öncüller", "premises"},
}

var optionFields = []struct {
	id    string
	field field
}{
	{"A", fieldOptionA},
	{"B", fieldOptionB},
	{"C", fieldOptionC},
	{"D", fieldOptionD},
	{"E", fieldOptionE},
}

// Keys of nested legislation and option objects, in priority order
var (
	legislationCodeKeys    = []string{"code", "kod", "kanunno", "no"}
	legislationNameKeys    = []string{"name", "ad", "kanunadi", "title"}
	legislationArticleKeys = []string{"article", "madde", "maddeno"}
	optionIDKeys           = []string{"id", "label", "key", "letter", "harf"}
	optionTextKeys         = []string{"text", "value", "metin"}
	wrapperKeys            = []string{"questions", "sorular"}
)

// aliasLookup maps a canonical key to its field. aliasRank holds the
// position of the key in that field's alias list; lower wins
var aliasLookup, aliasRank = buildAliasLookup()

func buildAliasLookup() (map[string]field, map[string]int) {
	lookup := make(map[string]field)
	rank := make(map[string]int)
	for f, aliases := range fieldAliases {
		for i, alias := range aliases {
			key := canonKey(alias)
			lookup[key] = f
			rank[key] = i
		}
	}
	return lookup, rank
}

// recordFromObject maps object keys onto fields. When one field appears
// under several aliases the earliest listed alias wins, then the
// lexically smallest raw key
func recordFromObject(obj map[string]interface{}) map[field]interface{} {
	rec := make(map[field]interface{}, len(obj))
	winner := make(map[field]string, len(obj))
	for k, v := range obj {
		key := canonKey(k)
		f, ok := aliasLookup[key]
		if !ok {
			continue
		}
		if prev, seen := winner[f]; seen && !keyBefore(k, prev) {
			continue
		}
		rec[f] = v
		winner[f] = k
	}
	return rec
}

func keyBefore(a, b string) bool {
	ra, rb := aliasRank[canonKey(a)], aliasRank[canonKey(b)]
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// pickKey returns the value of the first candidate present in obj.
// Candidates are canonical keys; raw keys are scanned in sorted order
func pickKey(obj map[string]interface{}, candidates ...string) (string, interface{}, bool) {
	keys := sortedKeys(obj)
	for _, want := range candidates {
		for _, k := range keys {
			if canonKey(k) == want {
				return k, obj[k], true
			}
		}
	}
	return "", nil, false
}

func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func canonKey(s string) string {
	return strings.ReplaceAll(Canonical(s), " ", "")
}

// Load parses an uploaded question file. The format follows the file
// extension. Any structural error rejects the whole file
func Load(filename string, r io.Reader) ([]RawCandidate, error) {
	var (
		cands []RawCandidate
		err   error
	)
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		cands, err = loadJSON(r)
	case ".csv":
		cands, err = loadDelimited(r, ',')
	case ".tsv":
		cands, err = loadDelimited(r, '\t')
	case ".xlsx":
		cands, err = loadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, ErrEmptyFile
	}
	return cands, nil
}

func parseError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrParseFailed, fmt.Sprintf(format, args...))
}

func loadJSON(r io.Reader) ([]RawCandidate, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, parseError("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, parseError("trailing data after JSON document")
	}

	var items []interface{}
	switch v := doc.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		k, val, found := pickKey(v, wrapperKeys...)
		if !found {
			return nil, parseError("expected an array of questions")
		}
		list, ok := val.([]interface{})
		if !ok {
			return nil, parseError("%q is not an array", k)
		}
		items = list
	default:
		return nil, parseError("expected an array of questions")
	}

	cands := make([]RawCandidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, parseError("item %d is not an object", i+1)
		}
		cands = append(cands, candidateFromRecord(i+1, recordFromObject(obj)))
	}
	return cands, nil
}

func loadDelimited(r io.Reader, sep rune) ([]RawCandidate, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, parseError("invalid delimited file: %v", err)
	}
	return candidatesFromRows(rows)
}

func loadXLSX(r io.Reader) ([]RawCandidate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, parseError("invalid spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseError("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseError("read sheet %q: %v", sheets[0], err)
	}
	return candidatesFromRows(rows)
}

type column struct {
	index int
	field field
}

// candidatesFromRows maps a header row plus data rows onto candidates.
// Rows are numbered from 1 for the first data row. When two headers name
// the same field the earliest listed alias wins, then the leftmost column
func candidatesFromRows(rows [][]string) ([]RawCandidate, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	chosen := make(map[field]int, len(header))
	for i, name := range header {
		key := canonKey(cleanCell(name))
		f, ok := aliasLookup[key]
		if !ok {
			continue
		}
		if prev, seen := chosen[f]; seen && aliasRank[canonKey(cleanCell(header[prev]))] <= aliasRank[key] {
			continue
		}
		chosen[f] = i
	}
	if _, ok := chosen[fieldText]; !ok {
		return nil, parseError("no question text column in header")
	}
	columns := make([]column, 0, len(chosen))
	for f, i := range chosen {
		columns = append(columns, column{index: i, field: f})
	}
	sort.Slice(columns, func(a, b int) bool { return columns[a].index < columns[b].index })

	var cands []RawCandidate
	for i, row := range rows[1:] {
		rec := make(map[field]interface{}, len(columns))
		empty := true
		for _, col := range columns {
			if col.index >= len(row) {
				continue
			}
			cell := cleanCell(row[col.index])
			if cell == "" {
				continue
			}
			empty = false
			rec[col.field] = cell
		}
		if empty {
			continue
		}
		cands = append(cands, candidateFromRecord(i+1, rec))
	}
	return cands, nil
}

func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

func candidateFromRecord(row int, rec map[field]interface{}) RawCandidate {
	c := RawCandidate{
		Row:           row,
		Text:          stringValue(rec[fieldText]),
		CorrectOption: normalizeOptionID(stringValue(rec[fieldCorrect])),
		Category:      stringValue(rec[fieldCategory]),
		QuestionType:  stringValue(rec[fieldType]),
		QuestionRoot:  stringValue(rec[fieldQuestionRoot]),
		Difficulty:    intValue(rec[fieldDifficulty]),
		Tags:          listValue(rec[fieldTags]),
		Premises:      listValue(rec[fieldPremises]),
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if c.Difficulty <= 0 {
		c.Difficulty = DefaultDifficulty
	}
	if c.QuestionType == "" {
		c.QuestionType = models.QuestionTypeStandard
		if len(c.Premises) > 0 {
			c.QuestionType = models.QuestionTypePremise
		}
	}

	c.Options = optionsValue(rec[fieldOptions])
	if len(c.Options) == 0 {
		for _, of := range optionFields {
			if text := stringValue(rec[of.field]); text != "" {
				c.Options = append(c.Options, models.Option{ID: of.id, Text: text})
			}
		}
	}

	c.Solution = solutionValue(rec[fieldSolution])
	if v := stringValue(rec[fieldSolutionAnalysis]); v != "" {
		c.Solution.Analysis = v
	}
	if v := stringValue(rec[fieldSolutionLegislation]); v != "" {
		c.Solution.Legislation = v
	}
	if v := stringValue(rec[fieldSolutionKeyPoint]); v != "" {
		c.Solution.KeyPoint = v
	}
	if v := stringValue(rec[fieldSolutionTrap]); v != "" {
		c.Solution.Trap = v
	}

	ref := legislationValue(rec[fieldLegislation])
	if v := stringValue(rec[fieldLegislationCode]); v != "" {
		ref.Code = v
	}
	if v := stringValue(rec[fieldLegislationName]); v != "" {
		ref.Name = v
	}
	if v := stringValue(rec[fieldLegislationArticle]); v != "" {
		ref.Article = v
	}
	if strings.TrimSpace(ref.Code) != "" {
		c.Legislation = &ref
	}
	return c
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func intValue(v interface{}) int {
	s := stringValue(v)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// listValue accepts a JSON array or a comma separated string
func listValue(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// optionsValue accepts [{id,text}], ["..."] or {"A": "..."}
func optionsValue(v interface{}) []models.Option {
	var out []models.Option
	switch t := v.(type) {
	case []interface{}:
		for i, item := range t {
			switch opt := item.(type) {
			case string:
				if text := strings.TrimSpace(opt); text != "" {
					out = append(out, models.Option{ID: letterFor(i), Text: text})
				}
			case map[string]interface{}:
				_, idVal, _ := pickKey(opt, optionIDKeys...)
				_, textVal, _ := pickKey(opt, optionTextKeys...)
				id, text := stringValue(idVal), stringValue(textVal)
				if id == "" {
					id = letterFor(i)
				}
				if text != "" {
					out = append(out, models.Option{ID: normalizeOptionID(id), Text: text})
				}
			}
		}
	case map[string]interface{}:
		for _, k := range sortedKeys(t) {
			if text := stringValue(t[k]); text != "" {
				out = append(out, models.Option{ID: normalizeOptionID(k), Text: text})
			}
		}
	}
	return out
}

func letterFor(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

func solutionValue(v interface{}) models.Solution {
	var s models.Solution
	switch t := v.(type) {
	case string:
		s.Analysis = strings.TrimSpace(t)
	case map[string]interface{}:
		rec := recordFromObject(t)
		s.Analysis = stringValue(rec[fieldSolutionAnalysis])
		s.Legislation = stringValue(rec[fieldSolutionLegislation])
		s.KeyPoint = stringValue(rec[fieldSolutionKeyPoint])
		s.Trap = stringValue(rec[fieldSolutionTrap])
	}
	return s
}

func legislationValue(v interface{}) models.LegislationRef {
	var ref models.LegislationRef
	obj, ok := v.(map[string]interface{})
	if !ok {
		return ref
	}
	_, code, _ := pickKey(obj, legislationCodeKeys...)
	_, name, _ := pickKey(obj, legislationNameKeys...)
	_, article, _ := pickKey(obj, legislationArticleKeys...)
	ref.Code = stringValue(code)
	ref.Name = stringValue(name)
	ref.Article = stringValue(article)
	return ref
}

// TemplateHeaders are the columns of the downloadable spreadsheet template
var TemplateHeaders = []string{
	"Soru Metni", "Kategori", "Tip", "Zorluk",
	"A", "B", "C", "D", "E", "Doğru Cevap",
	"Çözüm Analiz", "Mevzuat Dayanak", "Hap Bilgi", "Tuzak Bilgi",
	"Kanun No", "Kanun Adı", "Madde No", "Etiketler",
}

const templateSheet = "Sorular"

// WriteTemplate writes an .xlsx template with the canonical headers and one
// example row
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(templateSheet)
	if err != nil {
		return fmt.Errorf("failed to create template sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	example := []interface{}{
		"CMK'ya göre iddianamenin iadesi kaç gün içinde yapılabilir?", "Ceza Muhakemesi Hukuku", models.QuestionTypeStandard, 3,
		"7 gün", "10 gün", "15 gün", "30 gün", "60 gün", "C",
		"Mahkeme iddianameyi 15 gün içinde iade edebilir.", "CMK m.174/1", "Süre 15 gündür.", "İtiraz süresi ile karıştırılmamalıdır.",
		"5271", "Ceza Muhakemesi Kanunu", "174", "iddianame, iade",
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return fmt.Errorf("failed to write template example: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
