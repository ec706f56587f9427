// Package ast holds the zero-copy AST view produced while parsing a single
// file, and the owned, buffer-independent Symbol records derived from it.
//
// Lifetime rule: a Node or SignatureText slice borrows from the SourceBuffer
// it was produced from and must not outlive it. Symbol, built by
// NewSymbol, copies every string it needs out of the buffer before the
// buffer is dropped.
package ast

// SourceBuffer is the owned byte buffer for one file during parsing. AST
// nodes reference sub-slices of Bytes; nothing here is valid once the
// buffer that produced it is discarded.
type SourceBuffer struct {
	Path  string
	Bytes []byte
}

// Text returns the substring of the buffer covered by a ByteRange, slicing
// on demand rather than allocating during parsing.
func (b *SourceBuffer) Text(r ByteRange) string {
	if r.Start < 0 || r.End > len(b.Bytes) || r.Start > r.End {
		return ""
	}
	return string(b.Bytes[r.Start:r.End])
}

// ByteRange is an offset pair into a SourceBuffer.
type ByteRange struct {
	Start int
	End   int
}

// NodeKind enumerates the AST node shapes the parser extracts signatures
// and hints from.
type NodeKind uint8

const (
	NodeFunction NodeKind = iota
	NodeMethod
	NodeClass
	NodeModule
	NodeImport
	NodeCall
	NodeAssignment
	NodeInheritance
)

// Node is a zero-copy AST view: byte_range plus position, with children
// referenced by index into the owning Tree's flat Nodes slice rather than
// by pointer, so a Tree can be copied or discarded as one value.
type Node struct {
	Kind     NodeKind
	Range    ByteRange
	Line     int
	Column   int
	Children []int // indices into Tree.Nodes
	Metadata map[string]string
}

// Tree is the full zero-copy AST for one file.
type Tree struct {
	Buffer *SourceBuffer
	Nodes  []Node
	Roots  []int
}

// SymbolKind is the durable counterpart of NodeKind for persisted symbols.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
	KindModule   SymbolKind = "module"
)

// ComplexityMetrics is computed once per symbol during extraction.
type ComplexityMetrics struct {
	Cyclomatic  int
	NestingMax  int
	LineCount   int
	TokenCount  int
}

// Parameter is one entry of a symbol's parameter list.
type Parameter struct {
	Name         string
	Type         string
	DefaultValue string
	Variadic     bool
}

// Symbol is the durable, buffer-independent summary of a function, method,
// class, or module (spec §3 SignatureInfo). Every string field here is a
// copy, never a slice of a SourceBuffer.
type Symbol struct {
	ID            uint64 // stable identifier, spec symbol_id
	ProjectID     string
	FilePath      string
	Name          string
	Kind          SymbolKind
	SignatureText string
	Parameters    []Parameter
	ReturnType    string
	Docstring     string
	IsAsync       bool
	StartLine     int
	EndLine       int
	Complexity    ComplexityMetrics
	ContentHash   [32]byte // BLAKE3 of the normalized body
	Embedding     []float32
}

// ParseHints carries intra-file call/inheritance/data-flow evidence the PDG
// builder uses to add edges once symbol ids are known; the parser itself
// never resolves cross-symbol references.
type ParseHints struct {
	Calls        []CallHint
	Inheritances []InheritanceHint
	DataFlows    []DataFlowHint
}

// CallHint names a call site by caller/callee symbol name, resolved to ids
// by the orchestrator right after this file's symbols are upserted, against
// those symbols only.
type CallHint struct {
	CallerName string
	CalleeName string
	Line       int
}

// InheritanceHint records a class extending/implementing another by name.
type InheritanceHint struct {
	SubName   string
	SuperName string
}

// DataFlowHint records a value flowing from one symbol's scope into
// another, e.g. an argument or assigned field.
type DataFlowHint struct {
	FromName string
	ToName   string
	Line     int
}

// DiagKind classifies a non-fatal (or file-aborting) parse diagnostic.
type DiagKind string

const (
	DiagUnsupported     DiagKind = "unsupported"
	DiagPartialParse    DiagKind = "partial_parse"
	DiagInvalidEncoding DiagKind = "invalid_encoding"
)

// Diag is one diagnostic produced while parsing a file. Diagnostics never
// abort extraction except DiagInvalidEncoding and DiagUnsupported.
type Diag struct {
	Kind       DiagKind
	Message    string
	ByteOffset int
}

// ParseResult is the parser's full output for one file.
type ParseResult struct {
	Symbols []Symbol
	Hints   ParseHints
	Errors  []Diag
}
