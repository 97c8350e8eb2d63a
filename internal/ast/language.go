// Package ast implements the AST layer: parsing a bounded set of
// candidate files with tree-sitter and yielding typed nodes for
// definition/reference validation and rename/symbol-map support. Each
// language registers a parser, a compiled query and the capture names
// that map to the layer's node types.
package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
)

// languageDef is one entry in the registry: the extensions it covers,
// its tree-sitter grammar, and the query that captures the minimal
// node set for that grammar.
type languageDef struct {
	name       string
	extensions []string
	language   func() *tree_sitter.Language
	query      string
}

// NodeType enumerates the minimal node set every language surfaces.
type NodeType string

const (
	NodeFunctionDeclaration  NodeType = "function_declaration"
	NodeMethodDefinition     NodeType = "method_definition"
	NodeArrowFunction        NodeType = "arrow_function"
	NodeClassDeclaration     NodeType = "class_declaration"
	NodeInterfaceDeclaration NodeType = "interface_declaration"
	NodeVariableDeclaration  NodeType = "variable_declaration"
	NodeIdentifier           NodeType = "identifier"
	NodeCallExpression       NodeType = "call_expression"
	NodeImport               NodeType = "import"
	NodeExport               NodeType = "export"
)

var registry = buildRegistry()

func buildRegistry() map[string]languageDef {
	reg := map[string]languageDef{}
	add := func(def languageDef) {
		for _, ext := range def.extensions {
			reg[ext] = def
		}
	}

	add(languageDef{
		name:       "go",
		extensions: []string{".go"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
		query: `
			(function_declaration name: (identifier) @function.name) @function_declaration
			(method_declaration name: (field_identifier) @method.name) @method_definition
			(type_declaration (type_spec name: (type_identifier) @class.name type: (struct_type))) @class_declaration
			(type_declaration (type_spec name: (type_identifier) @interface.name type: (interface_type))) @interface_declaration
			(var_declaration (var_spec name: (identifier) @variable.name)) @variable_declaration
			(const_declaration (const_spec name: (identifier) @variable.name)) @variable_declaration
			(call_expression function: (identifier) @call.name) @call_expression
			(import_spec path: (interpreted_string_literal) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
		query: `
			(function_declaration name: (identifier) @function.name) @function_declaration
			(generator_function_declaration name: (identifier) @function.name) @function_declaration
			(variable_declarator name: (identifier) @function.name value: [(arrow_function) (function_expression)]) @arrow_function
			(variable_declarator name: (identifier) @variable.name value: (_) @variable.value) @variable_declaration
			(method_definition name: (property_identifier) @method.name) @method_definition
			(class_declaration name: (identifier) @class.name) @class_declaration
			(call_expression function: (identifier) @call.name) @call_expression
			(export_statement declaration: (_) @export.decl) @export
			(import_statement source: (string) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "typescript",
		extensions: []string{".ts", ".mts", ".cts"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		query: `
			(function_declaration name: (identifier) @function.name) @function_declaration
			(variable_declarator name: (identifier) @function.name value: [(arrow_function) (function_expression)]) @arrow_function
			(variable_declarator name: (identifier) @variable.name value: (_) @variable.value) @variable_declaration
			(method_definition name: (property_identifier) @method.name) @method_definition
			(class_declaration name: (type_identifier) @class.name) @class_declaration
			(interface_declaration name: (type_identifier) @interface.name) @interface_declaration
			(call_expression function: (identifier) @call.name) @call_expression
			(import_statement source: (string) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "tsx",
		extensions: []string{".tsx"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()) },
		query:      reg[".ts"].query,
	})

	add(languageDef{
		name:       "python",
		extensions: []string{".py"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
		query: `
			(function_definition name: (identifier) @function.name) @function_declaration
			(class_definition name: (identifier) @class.name) @class_declaration
			(assignment left: (identifier) @variable.name) @variable_declaration
			(call function: (identifier) @call.name) @call_expression
			(import_statement name: (dotted_name) @import.path) @import
			(import_from_statement module_name: (dotted_name) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "java",
		extensions: []string{".java"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) },
		query: `
			(method_declaration name: (identifier) @method.name) @method_definition
			(class_declaration name: (identifier) @class.name) @class_declaration
			(interface_declaration name: (identifier) @interface.name) @interface_declaration
			(local_variable_declaration declarator: (variable_declarator name: (identifier) @variable.name)) @variable_declaration
			(method_invocation name: (identifier) @call.name) @call_expression
			(import_declaration (scoped_identifier) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "csharp",
		extensions: []string{".cs"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) },
		query: `
			(method_declaration name: (identifier) @method.name) @method_definition
			(class_declaration name: (identifier) @class.name) @class_declaration
			(interface_declaration name: (identifier) @interface.name) @interface_declaration
			(variable_declarator (identifier) @variable.name) @variable_declaration
			(invocation_expression function: (identifier) @call.name) @call_expression
			(using_directive (qualified_name) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "cpp",
		extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".h", ".hh"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
		query: `
			(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function_declaration
			(class_specifier name: (type_identifier) @class.name) @class_declaration
			(declaration declarator: (identifier) @variable.name) @variable_declaration
			(call_expression function: (identifier) @call.name) @call_expression
			(preproc_include path: (_) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "php",
		extensions: []string{".php"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) },
		query: `
			(function_definition name: (name) @function.name) @function_declaration
			(method_declaration name: (name) @method.name) @method_definition
			(class_declaration name: (name) @class.name) @class_declaration
			(interface_declaration name: (name) @interface.name) @interface_declaration
			(function_call_expression function: (name) @call.name) @call_expression
		`,
	})

	add(languageDef{
		name:       "rust",
		extensions: []string{".rs"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
		query: `
			(function_item name: (identifier) @function.name) @function_declaration
			(struct_item name: (type_identifier) @class.name) @class_declaration
			(trait_item name: (type_identifier) @interface.name) @interface_declaration
			(let_declaration pattern: (identifier) @variable.name) @variable_declaration
			(call_expression function: (identifier) @call.name) @call_expression
			(use_declaration argument: (_) @import.path) @import
		`,
	})

	add(languageDef{
		name:       "zig",
		extensions: []string{".zig"},
		language:   func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_zig.Language()) },
		query: `
			(FnProto name: (IDENTIFIER) @function.name) @function_declaration
			(VarDecl name: (IDENTIFIER) @variable.name) @variable_declaration
		`,
	})

	return reg
}

// LanguageFor returns the language name registered for a file
// extension, or "" if none is registered.
func LanguageFor(ext string) string {
	if def, ok := registry[ext]; ok {
		return def.name
	}
	return ""
}

// SupportedExtensions lists every extension with a registered parser.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}
