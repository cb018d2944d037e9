package importer

import (
	"reflect"
	"testing"
)

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"İstanbul'da ŞİŞLİ!", "istanbul da sisli"},
		{"Çağrı   ÖĞRENCİ", "cagri ogrenci"},
		{"Işık ılık", "isik ilik"},
		{"café résumé", "cafe resume"},
		{"  --  ", ""},
		{"CMK md. 231/2", "cmk md 231 2"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Canonical(tc.in); got != tc.want {
			t.Fatalf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDropsShortTokens(t *testing.T) {
	n := Normalize("CMK md. 231 ve 5271 sayılı kanun")
	if n.Canonical != "cmk md 231 ve 5271 sayili kanun" {
		t.Fatalf("unexpected canonical %q", n.Canonical)
	}
	want := []string{"231", "5271", "cmk", "kanun", "sayili"}
	if got := n.Tokens.Sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	if n.Tokens.Has("md") || n.Tokens.Has("ve") {
		t.Fatalf("expected two letter tokens to be dropped")
	}
}

func TestNormalizeWhitespaceAndCaseInsensitive(t *testing.T) {
	a := Normalize("Anayasaya göre  yasama yetkisi kime aittir?")
	b := Normalize("ANAYASAYA GÖRE YASAMA\tYETKİSİ KİME AİTTİR")
	if a.Canonical != b.Canonical {
		t.Fatalf("expected equal canonical text, got %q vs %q", a.Canonical, b.Canonical)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"turkish", "İSTANBUL'da ılık ŞİŞLİ ğüşöç Ğ"},
		{"dotted capital i decomposed", "İzmir ve İSTANBUL"},
		{"compatibility forms", "x² + y³ ﬁkir ﬂama ＡＢＣ１２３ ①"},
		{"combining marks", "cáfé ñäïvẹ́ résumé"},
		{"punctuation heavy", "  --CMK md. 231/2--  (5271) ... "},
		{"empty", ""},
	}
	for _, tc := range cases {
		first := Normalize(tc.in)
		second := Normalize(first.Canonical)
		if first.Canonical != second.Canonical {
			t.Fatalf("%s: canonical changed on second pass: %q then %q", tc.name, first.Canonical, second.Canonical)
		}
		if !reflect.DeepEqual(first.Tokens.Sorted(), second.Tokens.Sorted()) {
			t.Fatalf("%s: tokens changed on second pass: %v then %v", tc.name, first.Tokens.Sorted(), second.Tokens.Sorted())
		}
	}
}

func TestCanonicalFoldsCompatibilityForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"m²", "m2"},
		{"ﬁkir", "fikir"},
		{"ＴＣＫ　５２３７", "tck 5237"},
	}
	for _, tc := range cases {
		if got := Canonical(tc.in); got != tc.want {
			t.Fatalf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
