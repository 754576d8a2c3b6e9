// Package semantic declares the two external contracts the generator
// consumes from the rest of the toolchain: a semantic symbol table for
// extern-declaration harvesting, and a loaded-module registry for imported
// declarations. The lexer, parser, and semantic analyzer that populate these
// are out of scope for this repository.
package semantic

import "github.com/dj-lumiere/razorforge-codegen/internal/ast"

// RoutineSymbol describes one routine as recorded by the semantic analyzer.
type RoutineSymbol struct {
	Name       string
	Params     []*ast.Param
	ReturnType string
	IsExternal bool
	IsGeneric  bool
}

// SymbolTable is the read-only view of the semantic analyzer's symbol table
// that the generator needs.
type SymbolTable interface {
	// GetAllSymbols returns every routine symbol the analyzer recorded,
	// in a stable order.
	GetAllSymbols() []RoutineSymbol
	// IsNamespace reports whether name refers to a namespace rather than a
	// type. The generator does not call it: every dotted routine name is
	// lowered as `Receiver.method` with an implicit receiver parameter.
	IsNamespace(name string) bool
}

// LoadedModule pairs a parsed file with the path it was loaded from.
type LoadedModule struct {
	FilePath string
	AST      *ast.Program
}

// ModuleRegistry maps an imported module name to its loaded contents. It is
// a plain map rather than an interface: the driver only ever iterates it.
type ModuleRegistry map[string]LoadedModule

// CrashResolver resolves a named runtime error message to its static string
// given a stdlib path, e.g. resolving "IndexOutOfRange" to the message
// baked into the standard library's crash-message table.
type CrashResolver interface {
	Resolve(stdlibPath, name string) (string, bool)
}
