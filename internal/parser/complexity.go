package parser

import tree_sitter "github.com/tree-sitter/go-tree-sitter"

// cyclomaticComplexity counts decision points across a node's subtree.
// Base complexity is 1; every branch/loop/case/logical-and-or/catch adds
// one, matching the textbook McCabe definition.
func cyclomaticComplexity(node *tree_sitter.Node) int {
	complexity := 1
	walkForComplexity(node, &complexity)
	return complexity
}

func walkForComplexity(node *tree_sitter.Node, complexity *int) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "if_statement", "if_expression":
		*complexity++
	case "for_statement", "for_range_statement", "for_in_statement":
		*complexity++
	case "while_statement", "do_statement":
		*complexity++
	case "case_clause", "case_statement", "expression_case", "type_case", "switch_case", "when_entry":
		*complexity++
	case "conditional_expression", "ternary_expression":
		*complexity++
	case "catch_clause", "except_clause", "rescue_clause":
		*complexity++
	case "binary_expression":
		if node.ChildCount() >= 3 {
			if op := node.Child(1); op != nil {
				switch op.Kind() {
				case "&&", "||", "and", "or":
					*complexity++
				}
			}
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkForComplexity(node.Child(i), complexity)
	}
}

// maxNestingDepth returns the deepest nesting of block-shaped statements
// inside node, used as a secondary complexity signal alongside the
// cyclomatic count.
func maxNestingDepth(node *tree_sitter.Node, depth int) int {
	if node == nil {
		return depth
	}

	next := depth
	switch node.Kind() {
	case "if_statement", "for_statement", "while_statement", "do_statement",
		"switch_statement", "try_statement", "block", "compound_statement":
		next = depth + 1
	}

	max := next
	for i := uint(0); i < node.ChildCount(); i++ {
		if d := maxNestingDepth(node.Child(i), next); d > max {
			max = d
		}
	}
	return max
}

// countTokens counts leaf nodes in node's subtree as a proxy for token
// count; tree-sitter's leaves line up with lexical tokens closely enough
// for a size metric without a second lexing pass.
func countTokens(node *tree_sitter.Node) int {
	if node == nil {
		return 0
	}
	if node.ChildCount() == 0 {
		return 1
	}
	total := 0
	for i := uint(0); i < node.ChildCount(); i++ {
		total += countTokens(node.Child(i))
	}
	return total
}
