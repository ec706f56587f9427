package lexical

import (
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// FuzzyMatcher wraps go-edlib's Jaro-Winkler similarity with a configured
// acceptance threshold, the same role the teacher's semantic.FuzzyMatcher
// plays for its translation dictionary.
type FuzzyMatcher struct {
	Enabled   bool
	Threshold float64
}

// NewFuzzyMatcher returns a FuzzyMatcher, defaulting the threshold to 0.80
// when an out-of-range value is given.
func NewFuzzyMatcher(enabled bool, threshold float64) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.80
	}
	return &FuzzyMatcher{Enabled: enabled, Threshold: threshold}
}

// Similarity returns the Jaro-Winkler similarity of a and b in [0,1].
func (fm *FuzzyMatcher) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// Match reports whether a and b are within the configured threshold.
func (fm *FuzzyMatcher) Match(a, b string) bool {
	if !fm.Enabled {
		return a == b
	}
	return fm.Similarity(a, b) >= fm.Threshold
}

// Stemmer normalizes tokens to their Porter2 stem so that e.g. "authenticate"
// and "authentication" index to the same postings entry.
type Stemmer struct {
	Enabled   bool
	MinLength int
}

// NewStemmer returns a Stemmer, defaulting MinLength to 3 when unset.
func NewStemmer(enabled bool, minLength int) *Stemmer {
	if minLength <= 0 {
		minLength = 3
	}
	return &Stemmer{Enabled: enabled, MinLength: minLength}
}

// Stem returns word's Porter2 stem, or word unchanged if stemming is
// disabled or word is shorter than MinLength.
func (s *Stemmer) Stem(word string) string {
	if !s.Enabled || len(word) < s.MinLength {
		return word
	}
	return porter2.Stem(strings.ToLower(word))
}
