package importer

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"quizbank-backend/models"
)

const (
	signatureSeparator = "::"
	optionSeparator    = "|"
)

// BuildSignature returns the exact-match signature of a question: canonical
// text, the options sorted by label, and the correct label, in that order
func BuildSignature(text string, options []models.Option, correct string) string {
	pairs := make([]string, 0, len(options))
	sorted := make([]models.Option, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		return normalizeOptionID(sorted[i].ID) < normalizeOptionID(sorted[j].ID)
	})
	for _, opt := range sorted {
		pairs = append(pairs, normalizeOptionID(opt.ID)+":"+Canonical(opt.Text))
	}

	var b strings.Builder
	b.WriteString(Canonical(text))
	b.WriteString(signatureSeparator)
	b.WriteString(strings.Join(pairs, optionSeparator))
	b.WriteString(signatureSeparator)
	b.WriteString(normalizeOptionID(correct))
	return b.String()
}

// CandidateSignature is BuildSignature applied to an uploaded candidate
func CandidateSignature(c RawCandidate) string {
	return BuildSignature(c.Text, c.Options, c.CorrectOption)
}

// QuestionSignature is BuildSignature applied to a corpus document
func QuestionSignature(q models.Question) string {
	return BuildSignature(q.Text, q.Options, q.CorrectOption)
}

// SignatureHash is the hex BLAKE2b-256 digest of a signature. Stores key
// their uniqueness constraint on it
func SignatureHash(signature string) string {
	sum := blake2b.Sum256([]byte(signature))
	return hex.EncodeToString(sum[:])
}

// SignatureIndex maps signatures to the document that owns them.
// It is not safe for concurrent use; Session serializes access
type SignatureIndex struct {
	bySignature map[string]string
}

// NewSignatureIndex returns an empty index
func NewSignatureIndex() *SignatureIndex {
	return &SignatureIndex{bySignature: make(map[string]string)}
}

// Lookup returns the document id holding signature
func (idx *SignatureIndex) Lookup(signature string) (string, bool) {
	id, ok := idx.bySignature[signature]
	return id, ok
}

// Add records signature for documentID. An existing entry is kept
func (idx *SignatureIndex) Add(signature, documentID string) bool {
	if _, ok := idx.bySignature[signature]; ok {
		return false
	}
	idx.bySignature[signature] = documentID
	return true
}

// Len returns the number of signatures held
func (idx *SignatureIndex) Len() int {
	return len(idx.bySignature)
}
