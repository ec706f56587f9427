package ast

import (
	"strings"

	"lukechampine.com/blake3"
)

// normalizePolicy records, per language, whether comments are stripped
// before hashing. Trailing whitespace and line-ending normalization always
// apply (spec §4.1 step 5); comment stripping is the Open Question this
// repo resolves per-language rather than globally (see SPEC_FULL.md).
//
// Languages whose block comments double as documentation (Python
// docstrings, JSDoc) keep comments in the hash: the docstring is itself
// meaningful content already surfaced via Symbol.Docstring, so stripping it
// would make two symbols with different documentation collide.
type normalizePolicy struct {
	stripLineComments  []string
	stripBlockComments [][2]string
}

var languagePolicies = map[string]normalizePolicy{
	"go":         {stripLineComments: []string{"//"}, stripBlockComments: [][2]string{{"/*", "*/"}}},
	"rust":       {stripLineComments: []string{"//"}, stripBlockComments: [][2]string{{"/*", "*/"}}},
	"c_sharp":    {stripLineComments: []string{"//"}, stripBlockComments: [][2]string{{"/*", "*/"}}},
	"cpp":        {stripLineComments: []string{"//"}, stripBlockComments: [][2]string{{"/*", "*/"}}},
	"zig":        {stripLineComments: []string{"//"}},
	"python":     {}, // docstrings carry meaning; keep all comments
	"javascript": {}, // JSDoc carries meaning; keep all comments
	"typescript": {},
	"java":       {}, // javadoc carries meaning
	"php":        {stripLineComments: []string{"//", "#"}},
}

// NormalizeBody applies the stable, per-language normalization policy spec
// §4.1 requires before hashing a symbol's source body.
func NormalizeBody(languageTag, body string) string {
	policy := languagePolicies[languageTag]

	lines := strings.Split(body, "\r\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Split(l, "\r"), "\n")
	}
	normalized := strings.Join(lines, "\n")

	if len(policy.stripLineComments) > 0 || len(policy.stripBlockComments) > 0 {
		normalized = stripComments(normalized, policy)
	}

	lines = strings.Split(normalized, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// stripComments removes line/block comments per policy. It is a simple
// non-lexing pass (no string-literal awareness) which is acceptable here
// because the only consequence of a false positive is a changed
// content_hash, not incorrect program behavior.
func stripComments(src string, policy normalizePolicy) string {
	for _, pair := range policy.stripBlockComments {
		src = stripBetween(src, pair[0], pair[1])
	}
	if len(policy.stripLineComments) == 0 {
		return src
	}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		cut := len(line)
		for _, marker := range policy.stripLineComments {
			if idx := strings.Index(line, marker); idx >= 0 && idx < cut {
				cut = idx
			}
		}
		lines[i] = line[:cut]
	}
	return strings.Join(lines, "\n")
}

func stripBetween(src, open, close string) string {
	var b strings.Builder
	for {
		idx := strings.Index(src, open)
		if idx < 0 {
			b.WriteString(src)
			break
		}
		b.WriteString(src[:idx])
		rest := src[idx+len(open):]
		end := strings.Index(rest, close)
		if end < 0 {
			break // unterminated comment, drop remainder
		}
		src = rest[end+len(close):]
	}
	return b.String()
}

// ContentHash computes BLAKE3(normalize(body)) per spec §3's content_hash
// invariant.
func ContentHash(languageTag, body string) [32]byte {
	normalized := NormalizeBody(languageTag, body)
	sum := blake3.Sum256([]byte(normalized))
	return sum
}
