// Package ast defines the input contract consumed by the code generator: the
// shape of a fully type-checked syntax tree produced elsewhere in the
// toolchain (lexer, parser, semantic analyzer). Nothing in this package
// builds a tree from source text; it only describes the tree shape the
// generator walks.
package ast

// Location anchors a node to the source it was parsed from. File is empty for
// synthesized nodes (e.g. the implicit pop-frame inserted on a fallthrough
// return).
type Location struct {
	File     string
	Line     int
	Column   int
	Position int
}

// Node is any syntax tree node the generator can visit.
type Node interface {
	Loc() Location
}

// Decl is a top-level or member declaration.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside a routine body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression producing a value.
type Expr interface {
	Node
	exprNode()
}

// Program is the root of a compilation unit: an ordered list of top-level
// declarations.
type Program struct {
	Loc_  Location
	Decls []Decl
}

func (p *Program) Loc() Location { return p.Loc_ }

// Param is a single routine parameter.
type Param struct {
	Loc_ Location
	Name string
	Type string // source-language type name, e.g. "s32" or "Shared<Account, observing>"
}

func (p *Param) Loc() Location { return p.Loc_ }

// TypedVariableList groups one or more identifiers sharing a declared type,
// e.g. `a, b: s32`.
type TypedVariableList struct {
	Loc_  Location
	Names []string
	Type  string
}

func (t *TypedVariableList) Loc() Location { return t.Loc_ }
