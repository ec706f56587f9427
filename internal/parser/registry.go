// Package parser turns source bytes into ast.ParseResult using tree-sitter
// grammars, one per supported language tag. The grammar cache is
// process-wide and acquire-on-first-use: a grammar, once parsed and
// compiled, lives for the process lifetime rather than being reloaded per
// file (spec §4.1).
package parser

import (
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar bundles a compiled tree-sitter language with the query that pulls
// symbol-shaped captures out of it.
type grammar struct {
	language *tree_sitter.Language
	query    *tree_sitter.Query
}

// langDef describes one supported language tag: its file extensions, how to
// obtain the raw language pointer, and the capture query to run against it.
type langDef struct {
	tag        string
	extensions []string
	languageFn func() unsafePtr
	query      string
}

// unsafePtr mirrors the *_ pointer shape every grammar package returns from
// its Language()/LanguageTypescript()/LanguagePHP() constructor, without
// pulling in cgo types at this layer.
type unsafePtr = interface{}

var langDefs = []langDef{
	{
		tag:        "go",
		extensions: []string{".go"},
		languageFn: func() unsafePtr { return tree_sitter_go.Language() },
		query: `
			(function_declaration name: (identifier) @function.name) @function
			(method_declaration
				receiver: (parameter_list) @method.receiver
				name: (field_identifier) @method.name) @method
			(type_declaration
				(type_spec name: (type_identifier) @type.name)) @class
			(func_literal) @function
			(import_spec path: (interpreted_string_literal) @import.path) @import
		`,
	},
	{
		tag:        "python",
		extensions: []string{".py"},
		languageFn: func() unsafePtr { return tree_sitter_python.Language() },
		query: `
			(class_definition
				body: (block
					(function_definition name: (identifier) @method.name))) @method
			(function_definition name: (identifier) @function.name) @function
			(class_definition name: (identifier) @class.name) @class
			(import_statement) @import
			(import_from_statement) @import
		`,
	},
	{
		tag:        "javascript",
		extensions: []string{".js", ".jsx", ".mjs"},
		languageFn: func() unsafePtr { return tree_sitter_javascript.Language() },
		query: `
			(function_declaration name: (identifier) @function.name) @function
			(generator_function_declaration name: (identifier) @function.name) @function
			(variable_declarator
				name: (identifier) @function.name
				value: [(arrow_function) (function_expression) (generator_function)]) @function
			(method_definition name: (property_identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
			(import_statement source: (string) @import.source) @import
		`,
	},
	{
		tag:        "typescript",
		extensions: []string{".ts", ".tsx"},
		languageFn: func() unsafePtr { return tree_sitter_typescript.LanguageTypescript() },
		query: `
			(function_declaration name: (identifier) @function.name) @function
			(generator_function_declaration name: (identifier) @function.name) @function
			(method_definition name: (property_identifier) @method.name) @method
			(function_expression name: (identifier) @function.name) @function
			(class_declaration name: (type_identifier) @class.name) @class
			(interface_declaration name: (type_identifier) @class.name) @class
			(import_statement source: (string) @import.source) @import
		`,
	},
	{
		tag:        "rust",
		extensions: []string{".rs"},
		languageFn: func() unsafePtr { return tree_sitter_rust.Language() },
		query: `
			(impl_item
				body: (declaration_list
					(function_item name: (identifier) @method.name))) @method
			(trait_item
				body: (declaration_list
					(function_item name: (identifier) @method.name))) @method
			(function_item name: (identifier) @function.name) @function
			(struct_item name: (type_identifier) @class.name) @class
			(enum_item name: (type_identifier) @class.name) @class
			(trait_item name: (type_identifier) @class.name) @class
			(use_declaration) @import
			(mod_item name: (identifier) @module.name) @module
		`,
	},
	{
		tag:        "cpp",
		extensions: []string{".cpp", ".cc", ".cxx", ".c", ".h", ".hpp"},
		languageFn: func() unsafePtr { return tree_sitter_cpp.Language() },
		query: `
			(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
			(class_specifier name: (type_identifier) @class.name) @class
			(struct_specifier name: (type_identifier) @class.name) @class
			(enum_specifier name: (type_identifier) @class.name) @class
			(preproc_include) @import
			(using_declaration) @import
		`,
	},
	{
		tag:        "java",
		extensions: []string{".java"},
		languageFn: func() unsafePtr { return tree_sitter_java.Language() },
		query: `
			(method_declaration name: (identifier) @method.name) @method
			(constructor_declaration name: (identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
			(record_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @class.name) @class
			(enum_declaration name: (identifier) @class.name) @class
			(import_declaration) @import
		`,
	},
	{
		tag:        "c_sharp",
		extensions: []string{".cs"},
		languageFn: func() unsafePtr { return tree_sitter_csharp.Language() },
		query: `
			(method_declaration name: (identifier) @method.name) @method
			(constructor_declaration name: (identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @class.name) @class
			(struct_declaration name: (identifier) @class.name) @class
			(record_declaration name: (identifier) @class.name) @class
			(enum_declaration name: (identifier) @class.name) @class
			(using_directive (qualified_name) @import.name) @import
			(using_directive (identifier) @import.name) @import
		`,
	},
	{
		tag:        "php",
		extensions: []string{".php", ".phtml"},
		languageFn: func() unsafePtr { return tree_sitter_php.LanguagePHP() },
		query: `
			(class_declaration name: (name) @class.name) @class
			(interface_declaration name: (name) @class.name) @class
			(trait_declaration name: (name) @class.name) @class
			(enum_declaration name: (name) @class.name) @class
			(function_definition name: (name) @function.name) @function
			(method_declaration name: (name) @method.name) @method
			(namespace_use_declaration) @import
		`,
	},
	{
		tag:        "zig",
		extensions: []string{".zig"},
		languageFn: func() unsafePtr { return tree_sitter_zig.Language() },
		query: `
			(function_declaration (identifier) @function.name) @function
			(variable_declaration
				(identifier) @class.name
				(struct_declaration) @class)
			(variable_declaration
				(identifier) @class.name
				(union_declaration) @class)
		`,
	},
}

// Registry is the process-wide, lazily-populated grammar cache. The zero
// value is ready to use.
type Registry struct {
	mu         sync.RWMutex
	grammars   map[string]*grammar
	extToLang  map[string]string
	extToLangO sync.Once
}

// Default is the shared registry used by Parse. Tests may construct their
// own Registry to avoid touching shared state.
var Default = &Registry{}

// DetectLanguage maps a file path's extension to a language tag. The second
// return value is false when no grammar is registered for the extension.
func (r *Registry) DetectLanguage(path string) (string, bool) {
	r.extToLangO.Do(r.buildExtIndex)
	ext := extensionOf(path)
	tag, ok := r.extToLang[ext]
	return tag, ok
}

func (r *Registry) buildExtIndex() {
	r.extToLang = make(map[string]string)
	for _, def := range langDefs {
		for _, ext := range def.extensions {
			r.extToLang[ext] = def.tag
		}
	}
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

// acquire returns the compiled grammar for a language tag, initializing it
// on first use and caching it for the lifetime of the process.
func (r *Registry) acquire(tag string) (*grammar, bool) {
	r.mu.RLock()
	g, ok := r.grammars[tag]
	r.mu.RUnlock()
	if ok {
		return g, g != nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.grammars[tag]; ok {
		return g, g != nil
	}
	if r.grammars == nil {
		r.grammars = make(map[string]*grammar)
	}

	g = buildGrammar(tag)
	r.grammars[tag] = g
	return g, g != nil
}

func buildGrammar(tag string) *grammar {
	var def *langDef
	for i := range langDefs {
		if langDefs[i].tag == tag {
			def = &langDefs[i]
			break
		}
	}
	if def == nil {
		return nil
	}

	language := tree_sitter.NewLanguage(def.languageFn())
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(language); err != nil {
		return nil
	}

	query, _ := tree_sitter.NewQuery(language, def.query)
	// go-tree-sitter has a known bug where the error return can be a typed
	// nil even on success; checking query != nil is the reliable signal.
	if query == nil {
		return nil
	}

	return &grammar{language: language, query: query}
}
