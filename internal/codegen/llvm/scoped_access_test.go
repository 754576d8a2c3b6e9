package llvm

import (
	"strings"
	"testing"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
)

func watchRoutine(kind ast.ScopedAccessKind) *ast.RoutineDecl {
	return &ast.RoutineDecl{
		Loc_: loc(1), Name: "watch",
		Params: []*ast.Param{{Loc_: loc(1), Name: "acc", Type: "Account"}},
		Body: &ast.BlockStmt{Loc_: loc(1), Stmts: []ast.Stmt{
			&ast.ScopedAccessStmt{
				Loc_:   loc(1),
				Kind:   kind,
				Source: &ast.IdentifierExpr{Loc_: loc(1), Name: "acc"},
				Handle: "guard",
				Body:   &ast.BlockStmt{Loc_: loc(1)},
			},
		}},
	}
}

func TestGenerate_SeizingAcquiresAndReleasesLock(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{watchRoutine(ast.Seizing)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		"declare void @mutex_lock(i8*)",
		"declare void @mutex_unlock(i8*)",
		"call void @mutex_lock(i8*",
		"call void @mutex_unlock(i8*",
	)
}

func TestGenerate_ObservingUsesRWLock(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{watchRoutine(ast.Observing)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "call void @rwlock_read_lock(i8*", "call void @rwlock_read_unlock(i8*")
}

func TestGenerate_ViewingEmitsNoLockCall(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{watchRoutine(ast.Viewing)}}

	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(ir, "rwlock_read_lock") || strings.Contains(ir, "mutex_lock") {
		t.Errorf("viewing should not emit any runtime lock call:\n%s", ir)
	}
}
