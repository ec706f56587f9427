// Package search fuses the lexical and vector indices into the three
// query shapes spec §4.3 names: lexical_search, vector_search, and hybrid,
// plus the natural-language entry point nl_query.
package search

import (
	"regexp"
	"strings"
)

// Intent is the deterministic rule-based classification of a natural
// language query, per spec §4.3.
type Intent uint8

const (
	IntentHowWorks Intent = iota
	IntentWhereHandled
	IntentBottlenecks
	IntentSemantic
	IntentText
)

var (
	howWorksPhrases    = []string{"how does", "how do", "flow of", "walk me through"}
	whereHandledPhrases = []string{"where is", "where does", "find "}
	bottleneckPhrases  = []string{"bottleneck", "slow", "expensive", "hot path"}
)

// ClassifyIntent applies spec §4.3's rule set, checked in a fixed order so
// classification is deterministic and not a learned model.
func ClassifyIntent(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	if isQuotedOrRegex(text) {
		return IntentText
	}
	if containsAny(lower, bottleneckPhrases) {
		return IntentBottlenecks
	}
	if containsAny(lower, howWorksPhrases) {
		return IntentHowWorks
	}
	if containsAny(lower, whereHandledPhrases) {
		return IntentWhereHandled
	}
	if looksConceptual(lower) {
		return IntentSemantic
	}
	return IntentWhereHandled
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isQuotedOrRegex(s string) bool {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) > 1 {
		return true
	}
	if _, err := regexp.Compile(trimmed); err == nil && containsRegexMetachar(trimmed) {
		return true
	}
	return false
}

func containsRegexMetachar(s string) bool {
	for _, c := range []string{".*", ".+", "[", "]", "\\d", "\\w", "^", "$"} {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// looksConceptual is a weak heuristic: no identifier-shaped token (snake_
// or camelCase or dotted path) and at least three words suggests a
// conceptual description rather than a reference to a specific symbol.
func looksConceptual(lower string) bool {
	words := strings.Fields(lower)
	if len(words) < 3 {
		return false
	}
	for _, w := range words {
		if strings.ContainsAny(w, "_.") || hasInternalUpper(w) {
			return false
		}
	}
	return true
}

func hasInternalUpper(w string) bool {
	for i, r := range w {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
