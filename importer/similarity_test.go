package importer

import (
	"fmt"
	"testing"
)

func tokenSet(words ...string) TokenSet {
	set := make(TokenSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func numberedTokens(from, to int) TokenSet {
	set := make(TokenSet)
	for i := from; i <= to; i++ {
		set[fmt.Sprintf("tok%02d", i)] = struct{}{}
	}
	return set
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		name string
		a, b TokenSet
		want float64
	}{
		{"identical", tokenSet("aaa", "bbb"), tokenSet("aaa", "bbb"), 1},
		{"disjoint", tokenSet("aaa"), tokenSet("bbb"), 0},
		{"both empty", tokenSet(), tokenSet(), 0},
		{"one empty", tokenSet("aaa"), tokenSet(), 0},
		{"partial", tokenSet("aaa", "bbb", "ccc"), tokenSet("bbb", "ccc", "ddd"), 0.5},
		{"subset", tokenSet("aaa", "bbb", "ccc", "ddd"), tokenSet("aaa"), 0.25},
		{"uneven sizes", tokenSet("aaa", "bbb"), tokenSet("bbb", "ccc", "ddd", "eee"), 0.2},
	}
	for _, tc := range cases {
		if got := Jaccard(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: Jaccard = %v, want %v", tc.name, got, tc.want)
		}
		if got := Jaccard(tc.b, tc.a); got != tc.want {
			t.Fatalf("%s: reversed Jaccard = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFindNearDuplicateThresholdIsInclusive(t *testing.T) {
	// 23 shared of 25 distinct tokens is exactly 0.92
	sample := []CorpusEntry{{DocumentID: "doc-1", Tokens: numberedTokens(1, 24)}}
	hit := FindNearDuplicate(numberedTokens(2, 25), sample)
	if hit == nil {
		t.Fatalf("expected a hit at the threshold")
	}
	if hit.SimilarityPercent != 92 {
		t.Fatalf("expected 92 percent, got %d", hit.SimilarityPercent)
	}

	if miss := FindNearDuplicate(numberedTokens(3, 26), sample); miss != nil {
		t.Fatalf("expected no hit below the threshold, got %+v", miss)
	}
}

func TestFindNearDuplicateFirstMatchWins(t *testing.T) {
	tokens := numberedTokens(1, 20)
	sample := []CorpusEntry{
		{DocumentID: "unrelated", Tokens: tokenSet("xxx", "yyy", "zzz")},
		{DocumentID: "close", Tokens: numberedTokens(1, 21)},
		{DocumentID: "identical", Tokens: numberedTokens(1, 20)},
	}
	hit := FindNearDuplicate(tokens, sample)
	if hit == nil || hit.DocumentID != "close" {
		t.Fatalf("expected first qualifying entry, got %+v", hit)
	}
	if hit.SimilarityPercent != 95 {
		t.Fatalf("expected 95 percent, got %d", hit.SimilarityPercent)
	}
}

func TestFindNearDuplicateSkipsShortTokenSets(t *testing.T) {
	sample := []CorpusEntry{{DocumentID: "doc", Tokens: tokenSet("aaa", "bbb")}}
	if hit := FindNearDuplicate(tokenSet("aaa", "bbb"), sample); hit != nil {
		t.Fatalf("expected no comparison under %d tokens", MinTokensForSimilarity)
	}
}
