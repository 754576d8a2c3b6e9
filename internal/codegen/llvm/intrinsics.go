package llvm

import (
	"fmt"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// mathIntrinsics maps a source-level math call name to the LLVM intrinsic
// family name it lowers to (the width suffix is appended by the caller).
var mathIntrinsics = map[string]string{
	"sqrt": "sqrt", "sin": "sin", "cos": "cos", "floor": "floor", "ceil": "ceil",
	"fabs": "fabs", "pow": "pow", "min": "minnum", "max": "maxnum",
}

var bitIntrinsics = map[string]string{
	"popcount": "ctpop", "clz": "ctlz", "ctz": "cttz", "bswap": "bswap",
}

// genBuiltinCall recognizes the small set of calls with hard-coded
// lowerings rather than a user/extern routine symbol: console output,
// error construction, and the danger-gated raw-address builtins. handled
// is false for anything else, letting genCall fall through to ordinary
// routine-call lowering.
func (g *Generator) genBuiltinCall(e *ast.CallExpr) (reg, typ string, handled bool, err error) {
	switch e.Callee {
	case "Console.write_line", "Console.println":
		return g.genConsoleWrite(e, true)
	case "Console.write", "Console.print":
		return g.genConsoleWrite(e, false)
	case "Console.flush":
		return g.genConsoleFlush(e)
	case "Console.input_word":
		return g.genConsoleInput(e, false)
	case "Console.input_line":
		return g.genConsoleInput(e, true)
	case "Error.from_text":
		if len(e.Args) != 1 {
			return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), "Error.from_text", 1, len(e.Args))
		}
		msgReg, _, err := g.genExpr(e.Args[0])
		if err != nil {
			return "", "", true, err
		}
		g.declareExtern("rf_error_from_text", "i8*", []string{"i8*"})
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = call i8* @rf_error_from_text(i8* %s)", reg, msgReg))
		return reg, "text", true, nil
	case "address_of!":
		if len(e.Args) != 1 {
			return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), "address_of!", 1, len(e.Args))
		}
		id, ok := e.Args[0].(*ast.IdentifierExpr)
		if !ok {
			return "", "", true, diag.UnsupportedOperation(locSpan(e.Loc()), "address_of!", "address_of!", "non-identifier operand")
		}
		addr, varType, ok := g.lookupLocal(id.Name)
		if !ok {
			return "", "", true, diag.TypeResolutionFailure(locSpan(e.Loc()), "address_of!", id.Name)
		}
		return addr, "RawPointer<" + varType + ">", true, nil
	case "invalidate!":
		if len(e.Args) != 1 {
			return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), "invalidate!", 1, len(e.Args))
		}
		_, _, err := g.genExpr(e.Args[0])
		return "", "", true, err
	default:
		return "", "", false, nil
	}
}

// genConsoleWrite lowers Console.write/print (no trailing newline) and
// Console.write_line/println (trailing newline) to the C stdio functions
// named in the runtime contract, choosing the printf conversion — or puts,
// for a line-terminated text argument — from the argument's own source
// type rather than a single invented runtime entry point.
func (g *Generator) genConsoleWrite(e *ast.CallExpr, withNewline bool) (string, string, bool, error) {
	name := "Console.write"
	if withNewline {
		name = "Console.write_line"
	}
	if len(e.Args) != 1 {
		return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), name, 1, len(e.Args))
	}
	reg, typ, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", true, err
	}

	if typ == "text" {
		if withNewline {
			g.declareExtern("puts", "i32", []string{"i8*"})
			g.emit(fmt.Sprintf("call i32 @puts(i8* %s)", reg))
			return "", "", true, nil
		}
		g.declareVariadicExtern("printf", "i32", []string{"i8*"})
		g.emit(fmt.Sprintf("call i32 (i8*, ...) @printf(i8* %s, i8* %s)", g.internString("%s"), reg))
		return "", "", true, nil
	}

	g.declareVariadicExtern("printf", "i32", []string{"i8*"})
	fmtPtr := g.internString("%d")
	if withNewline {
		fmtPtr = g.stringConstantPtr(strFmtName, "%d\n")
	}
	g.emit(fmt.Sprintf("call i32 (i8*, ...) @printf(i8* %s, i32 %s)", fmtPtr, g.coerce(reg, typ, "s32")))
	return "", "", true, nil
}

// genConsoleFlush lowers Console.flush to fflush(NULL), flushing every open
// stdio stream rather than just stdout.
func (g *Generator) genConsoleFlush(e *ast.CallExpr) (string, string, bool, error) {
	if len(e.Args) != 0 {
		return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), "Console.flush", 0, len(e.Args))
	}
	g.declareExtern("fflush", "i32", []string{"i8*"})
	g.emit("call i32 @fflush(i8* null)")
	return "", "", true, nil
}

// consoleInputBufSize is the fixed stack-buffer size Console.input_word and
// Console.input_line both read into.
const consoleInputBufSize = 256

// genConsoleInput lowers Console.input_word (scanf word conversion) and
// Console.input_line (fgets whole-line read) into a fixed-size stack buffer,
// returning the buffer's address as a text value.
func (g *Generator) genConsoleInput(e *ast.CallExpr, wholeLine bool) (string, string, bool, error) {
	name := "Console.input_word"
	if wholeLine {
		name = "Console.input_line"
	}
	if len(e.Args) != 0 {
		return "", "", true, diag.InvalidArgumentCount(locSpan(e.Loc()), name, 0, len(e.Args))
	}

	buf := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca [%d x i8]", buf, consoleInputBufSize))
	bufPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds [%d x i8], [%d x i8]* %s, i32 0, i32 0",
		bufPtr, consoleInputBufSize, consoleInputBufSize, buf))

	if wholeLine {
		g.declareExternGlobal("stdin", "i8*")
		g.declareExtern("fgets", "i8*", []string{"i8*", "i32", "i8*"})
		stream := g.nextReg()
		g.emit(fmt.Sprintf("%s = load i8*, i8** @stdin", stream))
		g.emit(fmt.Sprintf("call i8* @fgets(i8* %s, i32 %d, i8* %s)", bufPtr, consoleInputBufSize, stream))
		return bufPtr, "text", true, nil
	}

	g.declareVariadicExtern("scanf", "i32", []string{"i8*"})
	g.emit(fmt.Sprintf("call i32 (i8*, ...) @scanf(i8* %s, i8* %s)", g.internString("%255s"), bufPtr))
	return bufPtr, "text", true, nil
}

func (g *Generator) declareExtern(name, returnType string, paramTypes []string) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	g.emitGlobal(fmt.Sprintf("declare %s @%s(%s)", returnType, name, strings.Join(paramTypes, ", ")))
}

// declareVariadicExtern is declareExtern for a C stdio function whose
// trailing arguments are variadic (printf, scanf): the fixed parameter
// types are followed by "..." rather than closing the list.
func (g *Generator) declareVariadicExtern(name, returnType string, paramTypes []string) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	params := append(append([]string{}, paramTypes...), "...")
	g.emitGlobal(fmt.Sprintf("declare %s @%s(%s)", returnType, name, strings.Join(params, ", ")))
}

// declareExternGlobal declares a module-level external global (the C
// library's own stdin/stdout/stderr symbols), deduplicated the same way as
// declareExtern.
func (g *Generator) declareExternGlobal(name, llvmType string) {
	key := "@" + name
	if g.declared[key] {
		return
	}
	g.declared[key] = true
	g.emitGlobal(fmt.Sprintf("@%s = external global %s", name, llvmType))
}

// castToElemPtr reinterprets a pointer register as a pointer to elemLLVM,
// reusing it directly when its source RawPointer element type already
// matches.
func (g *Generator) castToElemPtr(reg, srcType, elemLLVM string) string {
	if base, args, ok := parseGeneric(srcType); ok && base == "RawPointer" && len(args) == 1 {
		if srcElemLLVM, err := g.MapType(args[0]); err == nil && srcElemLLVM == elemLLVM {
			return reg
		}
	}
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = bitcast i8* %s to %s*", out, reg, elemLLVM))
	return out
}

// genMemoryOperation lowers a raw load/store (and their volatile/atomic
// variants), only reachable from inside a `danger` block per the language
// rules the semantic analyzer enforces upstream.
func (g *Generator) genMemoryOperation(e *ast.MemoryOperationExpr) (string, string, error) {
	llvmType, err := g.MapType(e.Type)
	if err != nil {
		return "", "", err
	}
	addrReg, addrType, err := g.genExpr(e.Address)
	if err != nil {
		return "", "", err
	}
	ptr := g.castToElemPtr(addrReg, addrType, llvmType)

	switch e.Op {
	case "load":
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, %s* %s", reg, llvmType, llvmType, ptr))
		return reg, e.Type, nil
	case "volatile_load":
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = load volatile %s, %s* %s", reg, llvmType, llvmType, ptr))
		return reg, e.Type, nil
	case "atomic_load":
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = load atomic %s, %s* %s seq_cst, align %d", reg, llvmType, llvmType, ptr, naturalAlign(llvmType)))
		return reg, e.Type, nil
	case "store":
		valReg, valType, err := g.genExpr(e.Value)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, g.coerce(valReg, valType, e.Type), llvmType, ptr))
		return "", "", nil
	case "volatile_store":
		valReg, valType, err := g.genExpr(e.Value)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store volatile %s %s, %s* %s", llvmType, g.coerce(valReg, valType, e.Type), llvmType, ptr))
		return "", "", nil
	case "atomic_store":
		valReg, valType, err := g.genExpr(e.Value)
		if err != nil {
			return "", "", err
		}
		g.emit(fmt.Sprintf("store atomic %s %s, %s* %s seq_cst, align %d", llvmType, g.coerce(valReg, valType, e.Type), llvmType, ptr, naturalAlign(llvmType)))
		return "", "", nil
	default:
		return "", "", diag.NotImplemented(locSpan(e.Loc()), "genMemoryOperation", e.Op)
	}
}

func naturalAlign(llvmType string) int {
	switch llvmType {
	case "i8":
		return 1
	case "i16":
		return 2
	case "i32", "float":
		return 4
	case "i64", "double":
		return 8
	case "i128", "fp128":
		return 16
	default:
		return 8
	}
}

// genIntrinsicCall dispatches a named compiler intrinsic to its family
// emitter: math and bit-manipulation route through the matching
// llvm.* intrinsic, rotate composes llvm.fshl/fshr, and atomics lower to
// LLVM's atomicrmw/cmpxchg instructions directly (no intrinsic needed).
func (g *Generator) genIntrinsicCall(e *ast.IntrinsicCallExpr) (string, string, error) {
	llvmType, err := g.MapType(e.Type)
	if err != nil {
		return "", "", err
	}

	if name, ok := mathIntrinsics[e.Name]; ok {
		return g.genLLVMIntrinsicCall(fmt.Sprintf("@llvm.%s.%s", name, llvmType), e.Args, llvmType, e.Type)
	}
	if name, ok := bitIntrinsics[e.Name]; ok {
		if e.Name == "clz" || e.Name == "ctz" {
			return g.genCtlzCttz(name, e, llvmType)
		}
		return g.genLLVMIntrinsicCall(fmt.Sprintf("@llvm.%s.%s", name, llvmType), e.Args, llvmType, e.Type)
	}

	switch e.Name {
	case "rotate_left", "rotate_right":
		return g.genRotate(e, llvmType)
	case "atomic_add", "atomic_sub", "atomic_and", "atomic_or", "atomic_xor", "atomic_exchange":
		return g.genAtomicRMW(e, llvmType)
	case "atomic_cmpxchg":
		return g.genAtomicCmpxchg(e, llvmType)
	default:
		return "", "", diag.NotImplemented(locSpan(e.Loc()), "genIntrinsicCall", e.Name)
	}
}

func (g *Generator) genLLVMIntrinsicCall(intrName string, args []ast.Expr, llvmType, srcType string) (string, string, error) {
	argTexts := make([]string, len(args))
	for i, a := range args {
		reg, typ, err := g.genExpr(a)
		if err != nil {
			return "", "", err
		}
		argTexts[i] = fmt.Sprintf("%s %s", llvmType, g.coerce(reg, typ, srcType))
	}
	g.declareIntrinsic(intrName, llvmType, len(args))
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s)", reg, llvmType, intrName, strings.Join(argTexts, ", ")))
	return reg, srcType, nil
}

func (g *Generator) declareIntrinsic(name, llvmType string, arity int) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	args := make([]string, arity)
	for i := range args {
		args[i] = llvmType
	}
	g.emitGlobal(fmt.Sprintf("declare %s %s(%s)", llvmType, name, strings.Join(args, ", ")))
}

// genCtlzCttz lowers clz/ctz, whose LLVM intrinsics take an extra i1
// "is_zero_poison" argument; this generator always passes false (zero
// input yields the bit width, not poison).
func (g *Generator) genCtlzCttz(name string, e *ast.IntrinsicCallExpr, llvmType string) (string, string, error) {
	if len(e.Args) != 1 {
		return "", "", diag.InvalidArgumentCount(locSpan(e.Loc()), e.Name, 1, len(e.Args))
	}
	reg0, typ0, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", err
	}
	intr := fmt.Sprintf("@llvm.%s.%s", name, llvmType)
	if !g.declared[intr] {
		g.declared[intr] = true
		g.emitGlobal(fmt.Sprintf("declare %s %s(%s, i1)", llvmType, intr, llvmType))
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s %s, i1 false)", reg, llvmType, intr, llvmType, g.coerce(reg0, typ0, e.Type)))
	return reg, e.Type, nil
}

// genRotate lowers rotate_left/rotate_right via the funnel-shift
// intrinsics: rotate_left(x, n) == fshl(x, x, n), rotate_right(x, n) ==
// fshr(x, x, n).
func (g *Generator) genRotate(e *ast.IntrinsicCallExpr, llvmType string) (string, string, error) {
	if len(e.Args) != 2 {
		return "", "", diag.InvalidArgumentCount(locSpan(e.Loc()), e.Name, 2, len(e.Args))
	}
	name := "fshl"
	if e.Name == "rotate_right" {
		name = "fshr"
	}
	xReg, xType, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", err
	}
	nReg, nType, err := g.genExpr(e.Args[1])
	if err != nil {
		return "", "", err
	}
	intr := fmt.Sprintf("@llvm.%s.%s", name, llvmType)
	if !g.declared[intr] {
		g.declared[intr] = true
		g.emitGlobal(fmt.Sprintf("declare %s %s(%s, %s, %s)", llvmType, intr, llvmType, llvmType, llvmType))
	}
	x := g.coerce(xReg, xType, e.Type)
	n := g.coerce(nReg, nType, e.Type)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s, %s %s)", reg, llvmType, intr, llvmType, x, llvmType, x, llvmType, n))
	return reg, e.Type, nil
}

var atomicRMWOps = map[string]string{
	"atomic_add": "add", "atomic_sub": "sub", "atomic_and": "and",
	"atomic_or": "or", "atomic_xor": "xor", "atomic_exchange": "xchg",
}

// genAtomicRMW lowers the single-operand atomic read-modify-write family
// directly to LLVM's atomicrmw instruction under sequentially-consistent
// ordering.
func (g *Generator) genAtomicRMW(e *ast.IntrinsicCallExpr, llvmType string) (string, string, error) {
	if len(e.Args) != 2 {
		return "", "", diag.InvalidArgumentCount(locSpan(e.Loc()), e.Name, 2, len(e.Args))
	}
	ptrReg, ptrType, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", err
	}
	valReg, valType, err := g.genExpr(e.Args[1])
	if err != nil {
		return "", "", err
	}
	ptr := g.castToElemPtr(ptrReg, ptrType, llvmType)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = atomicrmw %s %s* %s, %s %s seq_cst",
		reg, atomicRMWOps[e.Name], llvmType, ptr, llvmType, g.coerce(valReg, valType, e.Type)))
	return reg, e.Type, nil
}

// genAtomicCmpxchg lowers a compare-and-swap to LLVM's cmpxchg instruction,
// returning only the old value. The success flag cmpxchg also produces is
// deliberately not surfaced to the caller: nothing in this generator's
// source language exposes a way to observe it separately from re-reading
// the returned value.
func (g *Generator) genAtomicCmpxchg(e *ast.IntrinsicCallExpr, llvmType string) (string, string, error) {
	if len(e.Args) != 3 {
		return "", "", diag.InvalidArgumentCount(locSpan(e.Loc()), e.Name, 3, len(e.Args))
	}
	ptrReg, ptrType, err := g.genExpr(e.Args[0])
	if err != nil {
		return "", "", err
	}
	expReg, expType, err := g.genExpr(e.Args[1])
	if err != nil {
		return "", "", err
	}
	newReg, newType, err := g.genExpr(e.Args[2])
	if err != nil {
		return "", "", err
	}
	ptr := g.castToElemPtr(ptrReg, ptrType, llvmType)
	pairReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = cmpxchg %s* %s, %s %s, %s %s seq_cst seq_cst",
		pairReg, llvmType, ptr, llvmType, g.coerce(expReg, expType, e.Type), llvmType, g.coerce(newReg, newType, e.Type)))
	resultReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue { %s, i1 } %s, 0", resultReg, llvmType, pairReg))
	return resultReg, e.Type, nil
}
