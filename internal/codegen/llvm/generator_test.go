package llvm

import (
	"strings"
	"testing"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/sergi/go-diff/diffmatchpatch"
)

func loc(line int) ast.Location { return ast.Location{File: "<test>", Line: line} }

// assertContainsAll fails with a readable diff (via go-diff) against the
// first missing substring, instead of a bare string dump, the way a golden
// IR comparison should read when it fails.
func assertContainsAll(t *testing.T, ir string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(ir, w) {
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(w, ir, false)
			t.Errorf("generated IR missing %q\ndiff (want vs. got):\n%s", w, dmp.DiffPrettyText(diffs))
		}
	}
}

func addRoutine(mode ast.OverflowMode) *ast.RoutineDecl {
	return &ast.RoutineDecl{
		Loc_: loc(1),
		Name: "add",
		Params: []*ast.Param{
			{Loc_: loc(1), Name: "a", Type: "s32"},
			{Loc_: loc(1), Name: "b", Type: "s32"},
		},
		ReturnType: "s32",
		Body: &ast.BlockStmt{
			Loc_: loc(1),
			Stmts: []ast.Stmt{
				&ast.ReturnStmt{
					Loc_: loc(1),
					Value: &ast.BinaryExpr{
						Loc_: loc(1), Op: "+",
						Left:  &ast.IdentifierExpr{Loc_: loc(1), Name: "a"},
						Right: &ast.IdentifierExpr{Loc_: loc(1), Name: "b"},
						Mode:  mode,
					},
				},
			},
		},
	}
}

func TestGenerate_WrappingAdd(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{addRoutine(ast.OverflowWrap)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "define i32 @add(", "add i32", "ret i32")
}

func TestGenerate_CheckedAddTraps(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{addRoutine(ast.OverflowChecked)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		"llvm.sadd.with.overflow.i32",
		"br i1",
		"declare void @rf_crash(i8*)",
		"call void @rf_crash(i8*",
		"unreachable",
	)
}

func TestGenerate_SaturatingAdd(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{addRoutine(ast.OverflowSaturate)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "llvm.sadd.sat.i32")
}

func TestGenerate_StartRenamedToMain(t *testing.T) {
	g := newTestGenerator(t)
	start := &ast.RoutineDecl{
		Loc_: loc(1), Name: "start", ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(1), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(1), Value: &ast.LiteralExpr{Loc_: loc(1), Kind: ast.IntegerLiteral, Value: int64(0)}},
		}},
	}
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{start}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "define i32 @main(")
}

// TestGenerate_GenericInstantiationDedup exercises the monomorphization
// path: two call sites instantiating identity<s32> must produce exactly
// one definition of the mangled symbol, not two.
func TestGenerate_GenericInstantiationDedup(t *testing.T) {
	g := newTestGenerator(t)
	identity := &ast.RoutineDecl{
		Loc_: loc(1), Name: "identity", TypeParams: []string{"T"}, IsGeneric: true,
		Params:     []*ast.Param{{Loc_: loc(1), Name: "x", Type: "T"}},
		ReturnType: "T",
		Body: &ast.BlockStmt{Loc_: loc(1), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(1), Value: &ast.IdentifierExpr{Loc_: loc(1), Name: "x"}},
		}},
	}
	callIdentity := func(v int64) *ast.CallExpr {
		return &ast.CallExpr{
			Loc_: loc(2), Callee: "identity", TypeArgs: []string{"s32"},
			Args: []ast.Expr{&ast.LiteralExpr{Loc_: loc(2), Kind: ast.IntegerLiteral, Value: v}},
		}
	}
	start := &ast.RoutineDecl{
		Loc_: loc(2), Name: "start", ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(2), Stmts: []ast.Stmt{
			&ast.ExprStmt{Loc_: loc(2), X: callIdentity(1)},
			&ast.ReturnStmt{Loc_: loc(2), Value: callIdentity(2)},
		}},
	}
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{identity, start}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if n := strings.Count(ir, "define i32 @identity_s32("); n != 1 {
		t.Errorf("expected exactly one definition of identity_s32, got %d in:\n%s", n, ir)
	}
	if n := strings.Count(ir, "call i32 @identity_s32("); n != 2 {
		t.Errorf("expected two call sites to identity_s32, got %d", n)
	}
}

// TestGenerate_ThrowableRoutineCallSiteAgreesWithDeclaration exercises
// mangleRoutineSymbol end to end: a "parse!" declaration and an in-module
// "parse!()" call site must resolve to the same mangled symbol.
func TestGenerate_ThrowableRoutineCallSiteAgreesWithDeclaration(t *testing.T) {
	g := newTestGenerator(t)
	parse := &ast.RoutineDecl{
		Loc_: loc(1), Name: "parse!", ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(1), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(1), Value: &ast.LiteralExpr{Loc_: loc(1), Kind: ast.IntegerLiteral, Value: int64(1)}},
		}},
	}
	run := &ast.RoutineDecl{
		Loc_: loc(2), Name: "run", ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(2), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(2), Value: &ast.CallExpr{Loc_: loc(2), Callee: "parse!"}},
		}},
	}
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{parse, run}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "define i32 @parse_throwable(", "call i32 @parse_throwable(")
}

// TestGenerate_SingleFieldWrapperRecordPassedByValue exercises the
// single-field wrapper ABI: a Meters record with one s32 field must cross
// a routine's parameter boundary unboxed (i32), not as %struct.Meters*,
// while its internal representation (the member access inside scale) stays
// pointer-boxed like any other record.
func TestGenerate_SingleFieldWrapperRecordPassedByValue(t *testing.T) {
	g := newTestGenerator(t)
	meters := &ast.RecordDecl{
		Loc_: loc(1), Name: "Meters",
		Fields: []*ast.Field{{Loc_: loc(1), Name: "value", Type: "s32"}},
	}
	scale := &ast.RoutineDecl{
		Loc_: loc(2), Name: "scale",
		Params:     []*ast.Param{{Loc_: loc(2), Name: "m", Type: "Meters"}},
		ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(2), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(2), Value: &ast.MemberExpr{
				Loc_: loc(2), Receiver: &ast.IdentifierExpr{Loc_: loc(2), Name: "m"}, Name: "value",
			}},
		}},
	}
	run := &ast.RoutineDecl{
		Loc_: loc(3), Name: "run",
		Params:     []*ast.Param{{Loc_: loc(3), Name: "m", Type: "Meters"}},
		ReturnType: "s32",
		Body: &ast.BlockStmt{Loc_: loc(3), Stmts: []ast.Stmt{
			&ast.ReturnStmt{Loc_: loc(3), Value: &ast.CallExpr{
				Loc_: loc(3), Callee: "scale",
				Args: []ast.Expr{&ast.IdentifierExpr{Loc_: loc(3), Name: "m"}},
			}},
		}},
	}
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{meters, scale, run}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		"define i32 @scale(i32 %m)",
		"call i32 @scale(i32",
	)
	if strings.Contains(ir, "define i32 @scale(%struct.Meters*") {
		t.Errorf("scale should take Meters by value (i32), not by pointer:\n%s", ir)
	}
}
