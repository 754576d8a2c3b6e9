package llvm

import (
	"testing"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
)

func consoleRoutine(callee string, arg ast.Expr) *ast.RoutineDecl {
	args := []ast.Expr{}
	if arg != nil {
		args = append(args, arg)
	}
	return &ast.RoutineDecl{
		Loc_: loc(1), Name: "start",
		Body: &ast.BlockStmt{Loc_: loc(1), Stmts: []ast.Stmt{
			&ast.ExprStmt{Loc_: loc(1), X: &ast.CallExpr{Loc_: loc(1), Callee: callee, Args: args}},
		}},
	}
}

func TestGenerate_ConsoleWriteLineNumericUsesStrFmt(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{
		consoleRoutine("Console.write_line", &ast.LiteralExpr{Loc_: loc(1), Kind: ast.IntegerLiteral, Value: int64(7)}),
	}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		`@.str_fmt = private unnamed_addr constant [4 x i8] c"%d\0A\00"`,
		"declare i32 @printf(i8*, ...)",
		"call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str_fmt",
	)
}

func TestGenerate_ConsoleWriteLineTextUsesPuts(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{
		consoleRoutine("Console.write_line", &ast.LiteralExpr{Loc_: loc(1), Kind: ast.TextLiteral, Value: "hi"}),
	}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "declare i32 @puts(i8*)", "call i32 @puts(i8*")
}

func TestGenerate_ConsoleWriteTextNoNewlineUsesPrintfPercentS(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{
		consoleRoutine("Console.write", &ast.LiteralExpr{Loc_: loc(1), Kind: ast.TextLiteral, Value: "hi"}),
	}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, `c"%s\00"`, "call i32 (i8*, ...) @printf(i8*")
}

func TestGenerate_ConsoleFlush(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{consoleRoutine("Console.flush", nil)}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir, "declare i32 @fflush(i8*)", "call i32 @fflush(i8* null)")
}

func TestGenerate_ConsoleInputWordUsesScanf(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{consoleRoutine("Console.input_word", nil)}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		"alloca [256 x i8]",
		"declare i32 @scanf(i8*, ...)",
		"call i32 (i8*, ...) @scanf(i8*",
		`c"%255s\00"`,
	)
}

func TestGenerate_ConsoleInputLineUsesFgetsAndStdin(t *testing.T) {
	g := newTestGenerator(t)
	prog := &ast.Program{Loc_: loc(1), Decls: []ast.Decl{consoleRoutine("Console.input_line", nil)}}
	ir, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	assertContainsAll(t, ir,
		"alloca [256 x i8]",
		"@stdin = external global i8*",
		"declare i8* @fgets(i8*, i32, i8*)",
		"call i8* @fgets(i8*",
	)
}
