package names

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func TestGenerateUsesWordLists(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		code := Generate(r)
		adj, noun, ok := strings.Cut(code, "-")
		if !ok {
			t.Fatalf("code %q has no separator", code)
		}
		if !slices.Contains(adjectives, adj) {
			t.Fatalf("unknown adjective %q", adj)
		}
		found := false
		for _, list := range nouns {
			if slices.Contains(list, noun) {
				found = true
			}
		}
		if !found {
			t.Fatalf("unknown noun %q", noun)
		}
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	a := Generate(rand.New(rand.NewPCG(7, 7)))
	b := Generate(rand.New(rand.NewPCG(7, 7)))
	if a != b {
		t.Fatalf("same seed gave %q and %q", a, b)
	}
}

func TestPretty(t *testing.T) {
	tests := map[string]string{
		"sleepy-otter": "Sleepy Otter",
		"tiny":         "Tiny",
		"":             "",
	}
	for in, want := range tests {
		if got := Pretty(in); got != want {
			t.Errorf("Pretty(%q) = %q, want %q", in, got, want)
		}
	}
}
