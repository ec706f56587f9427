package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/leindex/leindex/internal/ast"
)

var parameterFieldNames = []string{"parameters", "parameter_list", "formal_parameters"}

// extractParameters finds the parameter-list child of a function-shaped
// node under whichever field name the active grammar uses, and returns one
// Parameter per identifier found directly inside it.
func extractParameters(node *tree_sitter.Node, buf *ast.SourceBuffer) []ast.Parameter {
	var list *tree_sitter.Node
	for _, field := range parameterFieldNames {
		if n := node.ChildByFieldName(field); n != nil {
			list = n
			break
		}
	}
	if list == nil {
		return nil
	}

	var params []ast.Parameter
	for i := uint(0); i < list.NamedChildCount(); i++ {
		child := list.NamedChild(i)
		if child == nil {
			continue
		}
		name := paramName(child, buf)
		if name == "" {
			continue
		}
		params = append(params, ast.Parameter{
			Name:     name,
			Type:     paramType(child, buf),
			Variadic: strings.Contains(child.Kind(), "variadic") || strings.Contains(child.Kind(), "rest"),
		})
	}
	return params
}

func paramName(node *tree_sitter.Node, buf *ast.SourceBuffer) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())})
	}
	if node.Kind() == "identifier" {
		return buf.Text(ast.ByteRange{Start: int(node.StartByte()), End: int(node.EndByte())})
	}
	return ""
}

func paramType(node *tree_sitter.Node, buf *ast.SourceBuffer) string {
	if n := node.ChildByFieldName("type"); n != nil {
		return buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())})
	}
	return ""
}

var returnTypeFieldNames = []string{"return_type", "result", "type"}

func extractReturnType(node *tree_sitter.Node, buf *ast.SourceBuffer) string {
	for _, field := range returnTypeFieldNames {
		if n := node.ChildByFieldName(field); n != nil {
			return buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())})
		}
	}
	return ""
}

// extractDocstring looks immediately above a node for a comment, or for a
// Python-style string-literal expression statement as the first child of
// its body, whichever the language's convention favors.
func extractDocstring(node *tree_sitter.Node, buf *ast.SourceBuffer, languageTag string) string {
	if languageTag == "python" {
		if body := node.ChildByFieldName("body"); body != nil && body.NamedChildCount() > 0 {
			first := body.NamedChild(0)
			if first != nil && (first.Kind() == "expression_statement") && first.NamedChildCount() > 0 {
				str := first.NamedChild(0)
				if str != nil && strings.Contains(str.Kind(), "string") {
					return strings.Trim(buf.Text(ast.ByteRange{Start: int(str.StartByte()), End: int(str.EndByte())}), "\"'")
				}
			}
		}
		return ""
	}

	prev := node.PrevSibling()
	var comments []string
	for prev != nil && strings.Contains(prev.Kind(), "comment") {
		comments = append([]string{buf.Text(ast.ByteRange{Start: int(prev.StartByte()), End: int(prev.EndByte())})}, comments...)
		prev = prev.PrevSibling()
	}
	return strings.Join(comments, "\n")
}

// collectHints walks the whole tree once, looking for call expressions and
// inheritance clauses that the capture query does not itself surface. Hints
// name callees/supertypes by identifier text only; the orchestrator
// resolves them to symbol ids against this file's upserted symbols.
func (e *extractor) collectHints(root *tree_sitter.Node, hints *ast.ParseHints) {
	e.walkForHints(root, nil, hints)
}

func (e *extractor) walkForHints(node *tree_sitter.Node, enclosingFn *tree_sitter.Node, hints *ast.ParseHints) {
	if node == nil {
		return
	}

	kind := node.Kind()
	switch kind {
	case "function_declaration", "function_definition", "method_declaration", "function_item", "method_definition":
		enclosingFn = node
	case "call_expression", "call", "method_invocation":
		if enclosingFn != nil {
			caller := nodeName(enclosingFn, e.buf)
			callee := calleeName(node, e.buf)
			if callee != "" && caller != "" {
				hints.Calls = append(hints.Calls, ast.CallHint{
					CallerName: caller,
					CalleeName: callee,
					Line:       int(node.StartPosition().Row) + 1,
				})
			}
			if callee != "" {
				for _, arg := range argumentNames(node, e.buf) {
					hints.DataFlows = append(hints.DataFlows, ast.DataFlowHint{
						FromName: arg,
						ToName:   callee,
						Line:     int(node.StartPosition().Row) + 1,
					})
				}
			}
		}
	case "assignment_expression", "assignment", "assignment_statement",
		"augmented_assignment_expression", "variable_declarator", "short_var_declaration":
		if enclosingFn != nil {
			if from := assignmentSourceName(node, e.buf); from != "" {
				hints.DataFlows = append(hints.DataFlows, ast.DataFlowHint{
					FromName: from,
					ToName:   nodeName(enclosingFn, e.buf),
					Line:     int(node.StartPosition().Row) + 1,
				})
			}
		}
	case "class_declaration", "class_definition", "class_specifier":
		if sub := nodeName(node, e.buf); sub != "" {
			for _, super := range superNames(node, e.buf) {
				hints.Inheritances = append(hints.Inheritances, ast.InheritanceHint{SubName: sub, SuperName: super})
			}
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walkForHints(node.Child(i), enclosingFn, hints)
	}
}

func nodeName(node *tree_sitter.Node, buf *ast.SourceBuffer) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())})
	}
	return ""
}

func calleeName(call *tree_sitter.Node, buf *ast.SourceBuffer) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.ChildByFieldName("name")
	}
	if fn == nil {
		return ""
	}
	if prop := fn.ChildByFieldName("property"); prop != nil {
		return buf.Text(ast.ByteRange{Start: int(prop.StartByte()), End: int(prop.EndByte())})
	}
	return buf.Text(ast.ByteRange{Start: int(fn.StartByte()), End: int(fn.EndByte())})
}

var argumentFieldNames = []string{"arguments", "argument_list"}

// argumentNames returns the bare identifier names passed positionally to a
// call, the data-flow evidence for "a value reaches this callee's scope"
// that a plain call hint (caller/callee only) does not capture.
func argumentNames(call *tree_sitter.Node, buf *ast.SourceBuffer) []string {
	var args *tree_sitter.Node
	for _, field := range argumentFieldNames {
		if n := call.ChildByFieldName(field); n != nil {
			args = n
			break
		}
	}
	if args == nil {
		return nil
	}

	var names []string
	for i := uint(0); i < args.NamedChildCount(); i++ {
		child := args.NamedChild(i)
		if child != nil && child.Kind() == "identifier" {
			names = append(names, buf.Text(ast.ByteRange{Start: int(child.StartByte()), End: int(child.EndByte())}))
		}
	}
	return names
}

var assignmentRHSFieldNames = []string{"right", "value", "initializer"}

// assignmentSourceName names the symbol whose value flows into an
// assignment: the callee of a call on the right-hand side, or a bare
// identifier being aliased.
func assignmentSourceName(node *tree_sitter.Node, buf *ast.SourceBuffer) string {
	var rhs *tree_sitter.Node
	for _, field := range assignmentRHSFieldNames {
		if n := node.ChildByFieldName(field); n != nil {
			rhs = n
			break
		}
	}
	if rhs == nil {
		return ""
	}
	if strings.Contains(rhs.Kind(), "call") {
		return calleeName(rhs, buf)
	}
	if rhs.Kind() == "identifier" {
		return buf.Text(ast.ByteRange{Start: int(rhs.StartByte()), End: int(rhs.EndByte())})
	}
	return ""
}

func superNames(node *tree_sitter.Node, buf *ast.SourceBuffer) []string {
	var names []string
	for _, field := range []string{"superclass", "superclasses", "interfaces"} {
		if n := node.ChildByFieldName(field); n != nil {
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if c := n.NamedChild(i); c != nil {
					names = append(names, buf.Text(ast.ByteRange{Start: int(c.StartByte()), End: int(c.EndByte())}))
				}
			}
			if n.NamedChildCount() == 0 {
				names = append(names, buf.Text(ast.ByteRange{Start: int(n.StartByte()), End: int(n.EndByte())}))
			}
		}
	}
	return names
}
