package importer

import "math"

// Near-duplicate detection constants. Both are inherited tuning values and
// can be revisited against reviewer feedback
const (
	// NearDuplicateThreshold is the Jaccard similarity at or above which a
	// candidate is flagged
	NearDuplicateThreshold = 0.92
	// MinTokensForSimilarity is the smallest token set compared at all
	MinTokensForSimilarity = 3
)

// CorpusEntry is the normalized view of one active corpus question
type CorpusEntry struct {
	DocumentID     string
	NormalizedText string
	Tokens         TokenSet
	Signature      string
}

// NearDuplicate describes the corpus entry a candidate resembles
type NearDuplicate struct {
	DocumentID        string  `json:"document_id"`
	Similarity        float64 `json:"similarity"`
	SimilarityPercent int     `json:"similarity_percent"`
}

// Jaccard returns |a∩b| / |a∪b|. Two empty sets have similarity 0
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if large.Has(tok) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// FindNearDuplicate returns the first sample entry whose similarity with
// tokens reaches NearDuplicateThreshold. Iteration follows sample order and
// stops at the first hit
func FindNearDuplicate(tokens TokenSet, sample []CorpusEntry) *NearDuplicate {
	if len(tokens) < MinTokensForSimilarity {
		return nil
	}
	for _, entry := range sample {
		sim := Jaccard(tokens, entry.Tokens)
		if sim >= NearDuplicateThreshold {
			return &NearDuplicate{
				DocumentID:        entry.DocumentID,
				Similarity:        sim,
				SimilarityPercent: int(math.Round(sim * 100)),
			}
		}
	}
	return nil
}
