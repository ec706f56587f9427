package parser

import (
	"strings"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/leindex/leindex/internal/ast"
	"github.com/leindex/leindex/internal/errors"
)

// Parser runs tree-sitter extraction against one Registry's grammar cache.
// The zero value uses the package-level Default registry.
type Parser struct {
	registry *Registry
}

// New returns a Parser backed by the given registry, or the shared Default
// registry when reg is nil.
func New(reg *Registry) *Parser {
	if reg == nil {
		reg = Default
	}
	return &Parser{registry: reg}
}

// DetectLanguage maps a path to a language tag per the parser's registry.
func (p *Parser) DetectLanguage(path string) (string, bool) {
	return p.registry.DetectLanguage(path)
}

// Parse extracts symbols, call/inheritance/data-flow hints, and diagnostics
// from one file's bytes, per spec §4.1. It never returns a nil error for
// language-detection or grammar failures; those surface as a Diag with
// DiagUnsupported on an otherwise-empty ParseResult so a caller can still
// proceed with the rest of a batch.
func (p *Parser) Parse(languageTag string, projectID, filePath string, content []byte) (ast.ParseResult, error) {
	if !utf8.Valid(content) {
		return ast.ParseResult{
			Errors: []ast.Diag{{Kind: ast.DiagInvalidEncoding, Message: "file is not valid UTF-8"}},
		}, errors.New(errors.InvalidInput, "parser.invalid_encoding", "file is not valid UTF-8")
	}

	g, ok := p.registry.acquire(languageTag)
	if !ok {
		return ast.ParseResult{
			Errors: []ast.Diag{{Kind: ast.DiagUnsupported, Message: "no grammar registered for language " + languageTag}},
		}, errors.New(errors.Unsupported, "parser.unsupported_language", "no grammar registered for "+languageTag)
	}

	tp := tree_sitter.NewParser()
	defer tp.Close()
	if err := tp.SetLanguage(g.language); err != nil {
		return ast.ParseResult{
			Errors: []ast.Diag{{Kind: ast.DiagUnsupported, Message: "grammar failed to attach: " + err.Error()}},
		}, errors.Wrap(errors.Unsupported, "parser.language_attach_failed", "grammar failed to attach", err)
	}

	tree := tp.Parse(content, nil)
	if tree == nil {
		return ast.ParseResult{
			Errors: []ast.Diag{{Kind: ast.DiagPartialParse, Message: "tree-sitter returned no tree"}},
		}, nil
	}
	defer tree.Close()

	buf := &ast.SourceBuffer{Path: filePath, Bytes: content}
	ex := &extractor{
		buf:         buf,
		content:     content,
		languageTag: languageTag,
		projectID:   projectID,
		filePath:    filePath,
	}
	result := ex.run(g.query, tree)

	if tree.RootNode().HasError() {
		result.Errors = append(result.Errors, ast.Diag{
			Kind:    ast.DiagPartialParse,
			Message: "syntax errors present; extraction continued on a best-effort basis",
		})
	}
	return result, nil
}

// extractor holds the per-file state threaded through one extraction pass.
type extractor struct {
	buf         *ast.SourceBuffer
	content     []byte
	languageTag string
	projectID   string
	filePath    string
}

// run executes the language's capture query once to build symbols from the
// captures, then walks the tree a second time to collect cross-reference
// hints.
func (e *extractor) run(query *tree_sitter.Query, tree *tree_sitter.Tree) ast.ParseResult {
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(query, tree.RootNode(), e.content)
	captureNames := query.CaptureNames()

	var result ast.ParseResult
	namedCaptures := make(map[string]string, 4)

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for k := range namedCaptures {
			delete(namedCaptures, k)
		}
		for _, c := range match.Captures {
			name := captureNames[c.Index]
			if strings.Contains(name, ".name") {
				namedCaptures[name] = e.buf.Text(ast.ByteRange{Start: int(c.Node.StartByte()), End: int(c.Node.EndByte())})
			}
		}

		for _, c := range match.Captures {
			node := c.Node
			switch captureNames[c.Index] {
			case "function":
				result.Symbols = append(result.Symbols, e.buildSymbol(&node, ast.KindFunction, namedCaptures, "function.name"))
			case "method":
				result.Symbols = append(result.Symbols, e.buildSymbol(&node, ast.KindMethod, namedCaptures, "method.name"))
			case "class":
				result.Symbols = append(result.Symbols, e.buildSymbol(&node, ast.KindClass, namedCaptures, "class.name"))
			case "module":
				result.Symbols = append(result.Symbols, e.buildSymbol(&node, ast.KindModule, namedCaptures, "module.name"))
			}
		}
	}

	e.collectHints(tree.RootNode(), &result.Hints)
	return result
}

// buildSymbol copies every field a Symbol needs out of the tree-sitter node
// and the source buffer before either is discarded, per the package's
// lifetime rule.
func (e *extractor) buildSymbol(node *tree_sitter.Node, kind ast.SymbolKind, captures map[string]string, nameCapture string) ast.Symbol {
	start := node.StartPosition()
	end := node.EndPosition()
	name := captures[nameCapture]
	if name == "" {
		if n := node.ChildByFieldName("name"); n != nil {
			name = e.buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())})
		}
	}

	body := e.buf.Text(ast.ByteRange{Start: int(node.StartByte()), End: int(node.EndByte())})

	sym := ast.NewSymbol(e.projectID, e.filePath, name, kind, e.languageTag, body)
	sym.SignatureText = signatureLine(body)
	sym.StartLine = int(start.Row) + 1
	sym.EndLine = int(end.Row) + 1
	sym.Parameters = extractParameters(node, e.buf)
	sym.ReturnType = extractReturnType(node, e.buf)
	sym.Docstring = extractDocstring(node, e.buf, e.languageTag)
	sym.IsAsync = nodeBodyContains(body, "async")
	sym.Complexity = ast.ComplexityMetrics{
		Cyclomatic: cyclomaticComplexity(node),
		NestingMax: maxNestingDepth(node, 0),
		LineCount:  int(end.Row-start.Row) + 1,
		TokenCount: countTokens(node),
	}
	return sym
}

// signatureLine returns the first non-empty line of a symbol's body, a
// reasonable proxy for its declaration line across every supported grammar.
func signatureLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func nodeBodyContains(body, token string) bool {
	for _, word := range strings.FieldsFunc(body, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_')
	}) {
		if word == token {
			return true
		}
	}
	return false
}
