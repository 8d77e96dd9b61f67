// Package similarity scores pairs of text documents. The metric is a weighted
// blend of cosine similarity over word-frequency vectors and normalized
// Levenshtein similarity, scaled to a 0-100 percentage. It is deterministic,
// symmetric and free of side effects.
package similarity

import (
	"math"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Blend weights. The lexical cosine term dominates; the character-level
// Levenshtein term catches near-identical texts with little shared vocabulary.
const (
	cosineWeight      = 2.0 / 3.0
	levenshteinWeight = 1.0 / 3.0
)

var comparisonsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "docsim_comparisons_total",
	Help: "Total number of pairwise document comparisons performed.",
})

// Signature is the precomputed token-frequency vector of a text. Stored
// documents are immutable, so a signature computed once stays valid.
type Signature struct {
	counts map[string]int
	norm   float64
}

// Scorer tokenizes texts and computes pairwise similarity scores
type Scorer struct {
	tokenPattern *regexp.Regexp
}

// NewScorer creates a Scorer
func NewScorer() *Scorer {
	return &Scorer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
	}
}

// Sign computes the token-frequency signature of a text
func (s *Scorer) Sign(text string) *Signature {
	tokens := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	norm := 0.0
	for _, c := range counts {
		norm += float64(c) * float64(c)
	}
	return &Signature{counts: counts, norm: math.Sqrt(norm)}
}

// Score compares two texts and returns a similarity percentage in [0, 100].
// Defined values: Score("", "") = 0 and Score("", x) = 0 — an empty text
// matches nothing, including another empty text. Identical nonempty texts
// score 100.
func (s *Scorer) Score(a, b string) float64 {
	return s.ScoreSigned(a, s.Sign(a), b, s.Sign(b))
}

// ScoreSigned is Score with caller-supplied signatures, so corpus signatures
// computed once can be reused across uploads.
func (s *Scorer) ScoreSigned(a string, sigA *Signature, b string, sigB *Signature) float64 {
	comparisonsTotal.Inc()

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	score := cosineWeight*cosine(sigA, sigB) + levenshteinWeight*levenshteinSimilarity(a, b)
	return math.Round(score*100*100) / 100
}

// cosine computes the cosine of the angle between two frequency vectors
func cosine(a, b *Signature) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	// Iterate over the smaller map
	small, large := a, b
	if len(b.counts) < len(a.counts) {
		small, large = b, a
	}
	dot := 0.0
	for tok, ca := range small.counts {
		if cb, ok := large.counts[tok]; ok {
			dot += float64(ca) * float64(cb)
		}
	}
	return dot / (a.norm * b.norm)
}

// levenshteinSimilarity returns 1 - distance/maxLen over runes
func levenshteinSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance with a two-row DP
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
