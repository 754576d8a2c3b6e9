// Command rfcgen is a demo driver for the RazorForge code generator: it
// builds a small fixture program, lowers it to textual LLVM IR, and
// optionally assembles the result to an object file with llc. There is no lexer/parser in this repository, so "source" here
// means the hand-built fixture AST rather than a file on disk; -fixture
// selects which one to emit.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/codegen/llvm"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
	"github.com/dj-lumiere/razorforge-codegen/internal/target"
)

// findLLC finds the llc executable, checking PATH first, then common
// Homebrew installation locations.
func findLLC() (string, error) {
	if path, err := exec.LookPath("llc"); err == nil {
		return path, nil
	}
	for _, prefix := range []string{os.Getenv("HOMEBREW_PREFIX"), "/opt/homebrew", "/usr/local"} {
		if prefix == "" {
			continue
		}
		if p := filepath.Join(prefix, "opt/llvm/bin/llc"); fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("llc not found in PATH or common installation locations")
}

func findClang() (string, error) {
	if path, err := exec.LookPath("clang"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("clang not found in PATH")
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// findStdlib walks upward from startDir looking for a directory named
// "stdlib", the way findLLC walks a small fixed set of candidate
// directories for an external tool rather than requiring the caller to
// name the path exactly.
func findStdlib(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, "stdlib")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func debugLog(format string, a ...interface{}) {
	if os.Getenv("RFCGEN_DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format, a...)
	}
}

func formatDiagnostic(err error) string {
	if d, ok := diag.AsDiagnostic(err); ok {
		return diag.Format(d)
	}
	return err.Error()
}

func main() {
	fixtureName := flag.String("fixture", "checked-add", "fixture program to emit: checked-add, generic-identity")
	triple := flag.String("triple", "", "target triple (defaults to the host)")
	stackTraces := flag.Bool("stack-traces", true, "instrument routine bodies with push/pop stack-trace frames")
	out := flag.String("o", "", "write emitted IR to this path instead of stdout")
	emitObj := flag.Bool("c", false, "also assemble the emitted IR to an object file via llc")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rfcgen [flags]\n\nEmits one of the built-in fixture programs as LLVM IR.\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	var stdlibPath string
	if wd, err := os.Getwd(); err == nil {
		if path, found := findStdlib(wd); found {
			stdlibPath = path
			debugLog("found stdlib at %s\n", path)
		}
	}

	var desc target.Descriptor
	var err error
	if *triple != "" {
		desc, err = target.FromTriple(*triple)
	} else {
		desc, err = target.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfcgen: %v\n", err)
		os.Exit(1)
	}

	prog, err := buildFixture(*fixtureName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfcgen: %v\n", err)
		os.Exit(1)
	}

	gen := llvm.NewGenerator(llvm.Options{
		Target:            desc,
		SourceFile:        "<fixture:" + *fixtureName + ">",
		StdlibPath:        stdlibPath,
		EnableStackTraces: *stackTraces,
	})

	ir, err := gen.Generate(prog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfcgen: %s\n", formatDiagnostic(err))
		os.Exit(1)
	}

	irPath := *out
	if irPath == "" {
		fmt.Print(ir)
	} else {
		if err := os.WriteFile(irPath, []byte(ir), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "rfcgen: writing %s: %v\n", irPath, err)
			os.Exit(1)
		}
		debugLog("wrote IR to %s\n", irPath)
	}

	if *emitObj {
		if irPath == "" {
			fmt.Fprintln(os.Stderr, "rfcgen: -c requires -o so llc has a file to read")
			os.Exit(1)
		}
		runAssemble(irPath, desc.Triple())
	}
}

// runAssemble invokes llc against irPath, producing irPath with its
// extension replaced by ".o". Assembly failures are reported but are not
// fatal to the emission already performed above: IR was still produced.
func runAssemble(irPath, triple string) {
	llc, err := findLLC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfcgen: %v, skipping object assembly\n", err)
		return
	}
	objPath := irPath[:len(irPath)-len(filepath.Ext(irPath))] + ".o"
	cmd := exec.Command(llc, "-filetype=obj", "-mtriple="+triple, "-o", objPath, irPath)
	cmd.Stderr = os.Stderr
	debugLog("running %s %v\n", llc, cmd.Args)
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rfcgen: llc failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", objPath)
}

// buildFixture hand-builds one of the demo programs this command can emit.
// There is no parser in this repository; these ASTs stand in for what one
// would produce.
func buildFixture(name string) (*ast.Program, error) {
	switch name {
	case "checked-add":
		return checkedAddFixture(), nil
	case "generic-identity":
		return genericIdentityFixture(), nil
	default:
		return nil, fmt.Errorf("unknown fixture %q (want checked-add or generic-identity)", name)
	}
}

func loc(line int) ast.Location { return ast.Location{File: "<fixture>", Line: line} }

// checkedAddFixture builds:
//
//	add(a: s32, b: s32): s32 { return a +checked b }
//	start(): s32 { return add(2, 3) }
func checkedAddFixture() *ast.Program {
	add := &ast.RoutineDecl{
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
						Loc_:  loc(1),
						Op:    "+",
						Left:  &ast.IdentifierExpr{Loc_: loc(1), Name: "a"},
						Right: &ast.IdentifierExpr{Loc_: loc(1), Name: "b"},
						Mode:  ast.OverflowChecked,
					},
				},
			},
		},
	}
	start := &ast.RoutineDecl{
		Loc_:       loc(2),
		Name:       "start",
		ReturnType: "s32",
		Body: &ast.BlockStmt{
			Loc_: loc(2),
			Stmts: []ast.Stmt{
				&ast.ReturnStmt{
					Loc_: loc(2),
					Value: &ast.CallExpr{
						Loc_:   loc(2),
						Callee: "add",
						Args: []ast.Expr{
							&ast.LiteralExpr{Loc_: loc(2), Kind: ast.IntegerLiteral, Value: int64(2)},
							&ast.LiteralExpr{Loc_: loc(2), Kind: ast.IntegerLiteral, Value: int64(3)},
						},
					},
				},
			},
		},
	}
	return &ast.Program{Loc_: loc(1), Decls: []ast.Decl{add, start}}
}

// genericIdentityFixture builds:
//
//	identity<T>(x: T): T { return x }
//	start(): s32 { return identity<s32>(7) }
//
// exercising the monomorphization path: the call site's explicit TypeArgs
// drives a single instantiation of identity for s32.
func genericIdentityFixture() *ast.Program {
	identity := &ast.RoutineDecl{
		Loc_:       loc(1),
		Name:       "identity",
		TypeParams: []string{"T"},
		IsGeneric:  true,
		Params:     []*ast.Param{{Loc_: loc(1), Name: "x", Type: "T"}},
		ReturnType: "T",
		Body: &ast.BlockStmt{
			Loc_: loc(1),
			Stmts: []ast.Stmt{
				&ast.ReturnStmt{Loc_: loc(1), Value: &ast.IdentifierExpr{Loc_: loc(1), Name: "x"}},
			},
		},
	}
	start := &ast.RoutineDecl{
		Loc_:       loc(2),
		Name:       "start",
		ReturnType: "s32",
		Body: &ast.BlockStmt{
			Loc_: loc(2),
			Stmts: []ast.Stmt{
				&ast.ReturnStmt{
					Loc_: loc(2),
					Value: &ast.CallExpr{
						Loc_:     loc(2),
						Callee:   "identity",
						TypeArgs: []string{"s32"},
						Args:     []ast.Expr{&ast.LiteralExpr{Loc_: loc(2), Kind: ast.IntegerLiteral, Value: int64(7)}},
					},
				},
			},
		},
	}
	return &ast.Program{Loc_: loc(1), Decls: []ast.Decl{identity, start}}
}
