package service

import (
	"testing"

	"marketpipe/internal/client/polymarket/gamma"
)

func TestMatchesKeywords(t *testing.T) {
	keywords := []string{"bitcoin", "eth"}
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "bitcoin", true},
		{"case insensitive", "Will BITCOIN reach 100k?", true},
		{"substring", "ethereum flips solana", true},
		{"no match", "Will it rain in Paris?", false},
		{"empty text", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesKeywords(tc.text, keywords); got != tc.want {
				t.Fatalf("MatchesKeywords(%q)=%v want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestMatchesKeywords_EmptyKeywordSet(t *testing.T) {
	if MatchesKeywords("bitcoin", nil) {
		t.Fatalf("empty keyword set must match nothing")
	}
	if MatchesKeywords("bitcoin", []string{"", "  "}) {
		t.Fatalf("blank keywords must match nothing")
	}
}

func TestFilterMarkets_TwoOfThreeMatch(t *testing.T) {
	items := []gamma.Market{
		{ID: "m1", Question: "Will Bitcoin close above 100k?"},
		{ID: "m2", Question: "Who wins the election?"},
		{ID: "m3", Question: "ETH above 10k by March?"},
	}
	got := FilterMarkets(items, []string{"bitcoin", "eth"})
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}
	if got[0].ID != "m1" || got[1].ID != "m3" {
		t.Fatalf("order not preserved: %v %v", got[0].ID, got[1].ID)
	}
}

func TestFilterMarkets_DescriptionMatches(t *testing.T) {
	items := []gamma.Market{
		{ID: "m1", Question: "Token price above target?", Description: "Resolves YES if Solana trades above..."},
	}
	got := FilterMarkets(items, []string{"solana"})
	if len(got) != 1 {
		t.Fatalf("len=%d want 1", len(got))
	}
}

func TestFilterMarkets_EmptyResultIsValid(t *testing.T) {
	items := []gamma.Market{{ID: "m1", Question: "anything"}}
	got := FilterMarkets(items, []string{"bitcoin"})
	if len(got) != 0 {
		t.Fatalf("len=%d want 0", len(got))
	}
}
