// Package names generates the memorable display codes a client announces
// through the code query parameter.
package names

import (
	"math/rand/v2"
	"strings"
)

var nouns = [][]string{animals, dishes, firstNames, randomWords, extras}

// Generate returns a code such as "sleepy-otter". r may be nil.
func Generate(r *rand.Rand) string {
	pick := rand.IntN
	if r != nil {
		pick = r.IntN
	}
	list := nouns[pick(len(nouns))]
	return adjectives[pick(len(adjectives))] + "-" + list[pick(len(list))]
}

// Pretty turns a code into the title-cased form shown to people.
func Pretty(code string) string {
	words := strings.Split(code, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
