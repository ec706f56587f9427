package ast

import "unicode"

// NewSymbol builds a durable Symbol from extracted fields plus the raw
// (un-normalized) source body, computing ContentHash per spec §3.
func NewSymbol(projectID, filePath, name string, kind SymbolKind, languageTag, body string) Symbol {
	return Symbol{
		ProjectID:   projectID,
		FilePath:    filePath,
		Name:        name,
		Kind:        kind,
		ContentHash: ContentHash(languageTag, body),
	}
}

// IsExported reports whether name is exported in the Go-style sense (leading
// capital letter). Used as a proxy for "publicly significant" across all
// supported languages, matching the convention most of them converge on for
// public API surfaces.
func IsExported(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper([]rune(name)[0])
}

// IsEntryPoint reports whether a symbol is a natural starting point for
// gravity expansion and codebase-statistics reporting: language
// entry-point names, or any exported function/method.
func IsEntryPoint(s Symbol) bool {
	switch s.Name {
	case "main", "init", "__main__":
		return true
	}
	return IsExported(s.Name) && (s.Kind == KindFunction || s.Kind == KindMethod)
}
