package semantic

import (
	"hash/fnv"
	"strings"
)

// FallbackDim is the fixed dimension of the local fallback vectors.
const FallbackDim = 16

const punctuation = ".,;:!?()[]{}\"'"

// synonymMap folds known pluralization and synonym variants onto a
// canonical token so near-paraphrases land in nearby hash buckets.
var synonymMap = map[string]string{
	"apples":  "apple",
	"apple":   "apple",
	"bananas": "banana",
	"banana":  "banana",
	"felines": "cat",
	"cats":    "cat",
	"rodents": "mouse",
	"mice":    "mouse",
	"chase":   "hunt",
	"hunting": "hunt",
	"hunt":    "hunt",
	"yellow":  "yellow",
	"peel":    "peel",
	"fruit":   "fruit",
	"fruits":  "fruit",
}

func tokenize(text string) []string {
	var tokens []string
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		tok := strings.Trim(raw, punctuation)
		if tok == "" {
			continue
		}
		if canonical, ok := synonymMap[tok]; ok {
			tok = canonical
		} else {
			tok = strings.TrimSuffix(tok, "s")
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Vectorize is the deterministic local embedding fallback: hashed
// bag-of-words over FallbackDim buckets. The hash is FNV-1a so the same
// text yields the same vector across runs and processes, which keeps
// clustering reproducible in tests.
func Vectorize(text string) []float32 {
	vec := make([]float32, FallbackDim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%FallbackDim]++
	}
	return vec
}
