package llvm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}
var logicalOps = map[string]bool{"and": true, "or": true, "&&": true, "||": true}
var bitwiseOps = map[string]bool{"&": true, "|": true, "^": true, "<<": true, ">>": true}

// intWidth returns the bit width of a fixed-width integer source type, or
// 0 if name does not name one.
func intWidth(name string) int {
	switch name {
	case "s8", "u8":
		return 8
	case "s16", "u16":
		return 16
	case "s32", "u32":
		return 32
	case "s64", "u64":
		return 64
	case "s128", "u128":
		return 128
	default:
		return 0
	}
}

// satBounds returns the decimal min/max constants saturating arithmetic on
// a fixed-width integer type clamps to.
func satBounds(typ string) (min, max string) {
	w := intWidth(typ)
	if w == 0 {
		return "0", "0"
	}
	if IsUnsignedTypeName(typ) {
		maxVal := new(bigUint).setMaxUnsigned(w)
		return "0", maxVal.String()
	}
	minVal, maxVal := bigSignedBounds(w)
	return minVal, maxVal
}

// genBinary lowers a binary expression, dispatching to comparison, logical,
// bitwise, or overflow-aware arithmetic lowering.
func (g *Generator) genBinary(e *ast.BinaryExpr) (string, string, error) {
	if comparisonOps[e.Op] {
		return g.genComparison(e)
	}
	if logicalOps[e.Op] {
		return g.genLogical(e)
	}
	if bitwiseOps[e.Op] {
		return g.genBitwise(e)
	}
	return g.genArithmetic(e)
}

func (g *Generator) genComparison(e *ast.BinaryExpr) (string, string, error) {
	lReg, lType, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rReg, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	llvmType, err := g.MapType(lType)
	if err != nil {
		return "", "", err
	}
	reg := g.nextReg()
	if IsFloatTypeName(lType) {
		g.emit(fmt.Sprintf("%s = fcmp %s %s %s, %s", reg, floatPredicate(e.Op), llvmType, lReg, rReg))
	} else {
		g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", reg, intPredicate(e.Op, IsUnsignedTypeName(lType)), llvmType, lReg, rReg))
	}
	return reg, "bool", nil
}

func intPredicate(op string, unsigned bool) string {
	switch op {
	case "==":
		return "eq"
	case "!=":
		return "ne"
	case "<":
		if unsigned {
			return "ult"
		}
		return "slt"
	case "<=":
		if unsigned {
			return "ule"
		}
		return "sle"
	case ">":
		if unsigned {
			return "ugt"
		}
		return "sgt"
	case ">=":
		if unsigned {
			return "uge"
		}
		return "sge"
	}
	return "eq"
}

func floatPredicate(op string) string {
	switch op {
	case "==":
		return "oeq"
	case "!=":
		return "one"
	case "<":
		return "olt"
	case "<=":
		return "ole"
	case ">":
		return "ogt"
	case ">=":
		return "oge"
	}
	return "oeq"
}

// genChainedComparison desugars `a < b < c` into the conjunction of each
// adjacent pairwise comparison.
func (g *Generator) genChainedComparison(e *ast.ChainedComparisonExpr) (string, string, error) {
	var result string
	for i := range e.Ops {
		pair := &ast.BinaryExpr{Loc_: e.Loc_, Op: e.Ops[i], Left: e.Operands[i], Right: e.Operands[i+1]}
		reg, _, err := g.genComparison(pair)
		if err != nil {
			return "", "", err
		}
		if result == "" {
			result = reg
			continue
		}
		combined := g.nextReg()
		g.emit(fmt.Sprintf("%s = and i1 %s, %s", combined, result, reg))
		result = combined
	}
	return result, "bool", nil
}

func (g *Generator) genLogical(e *ast.BinaryExpr) (string, string, error) {
	lReg, _, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rReg, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	instr := "and"
	if e.Op == "or" || e.Op == "||" {
		instr = "or"
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s i1 %s, %s", reg, instr, lReg, rReg))
	return reg, "bool", nil
}

func (g *Generator) genBitwise(e *ast.BinaryExpr) (string, string, error) {
	lReg, lType, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rReg, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	llvmType, err := g.MapType(lType)
	if err != nil {
		return "", "", err
	}
	var instr string
	switch e.Op {
	case "&":
		instr = "and"
	case "|":
		instr = "or"
	case "^":
		instr = "xor"
	case "<<":
		instr = "shl"
	case ">>":
		if IsUnsignedTypeName(lType) {
			instr = "lshr"
		} else {
			instr = "ashr"
		}
	default:
		return "", "", diag.UnsupportedOperation(locSpan(e.Loc()), "genBitwise", e.Op, lType)
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s, %s", reg, instr, llvmType, lReg, rReg))
	return reg, lType, nil
}

// genArithmetic lowers +, -, *, /, %. Integer +, -, * honor the expression's
// overflow variant; g.forceUnchecked (set inside a `mayhem` block) forces the
// unchecked variant regardless of the operator's written suffix. Integer /
// and % and all float arithmetic use the plain instruction whatever the
// variant.
func (g *Generator) genArithmetic(e *ast.BinaryExpr) (string, string, error) {
	lReg, lType, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rReg, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	llvmType, err := g.MapType(lType)
	if err != nil {
		return "", "", err
	}

	if IsFloatTypeName(lType) {
		return g.genFloatArithmetic(e.Op, lReg, rReg, llvmType, lType)
	}

	mode := e.Mode
	if g.forceUnchecked {
		mode = ast.OverflowUnchecked
	}
	unsigned := IsUnsignedTypeName(lType)

	if e.Op == "/" || e.Op == "%" {
		instr := map[bool]map[string]string{
			true:  {"/": "udiv", "%": "urem"},
			false: {"/": "sdiv", "%": "srem"},
		}[unsigned][e.Op]
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = %s %s %s, %s", reg, instr, llvmType, lReg, rReg))
		return reg, lType, nil
	}

	switch mode {
	case ast.OverflowChecked:
		return g.genCheckedArithmetic(e.Op, lReg, rReg, llvmType, lType, unsigned)
	case ast.OverflowSaturate:
		return g.genSaturatingArithmetic(e.Op, lReg, rReg, llvmType, lType, unsigned)
	case ast.OverflowUnchecked:
		return g.genFlaggedArithmetic(e.Op, lReg, rReg, llvmType, lType, unsigned)
	default: // OverflowWrap / OverflowDefault
		return g.genWrappingArithmetic(e.Op, lReg, rReg, llvmType, lType)
	}
}

func (g *Generator) genFloatArithmetic(op, lReg, rReg, llvmType, srcType string) (string, string, error) {
	instr, ok := map[string]string{"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv", "%": "frem"}[op]
	if !ok {
		return "", "", diag.UnsupportedOperation(diag.Span{}, "genFloatArithmetic", op, srcType)
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s, %s", reg, instr, llvmType, lReg, rReg))
	return reg, srcType, nil
}

func (g *Generator) genWrappingArithmetic(op, lReg, rReg, llvmType, srcType string) (string, string, error) {
	instr, ok := map[string]string{"+": "add", "-": "sub", "*": "mul"}[op]
	if !ok {
		return "", "", diag.UnsupportedOperation(diag.Span{}, "genWrappingArithmetic", op, srcType)
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s, %s", reg, instr, llvmType, lReg, rReg))
	return reg, srcType, nil
}

func (g *Generator) genFlaggedArithmetic(op, lReg, rReg, llvmType, srcType string, unsigned bool) (string, string, error) {
	instr, ok := map[string]string{"+": "add", "-": "sub", "*": "mul"}[op]
	if !ok {
		return "", "", diag.UnsupportedOperation(diag.Span{}, "genFlaggedArithmetic", op, srcType)
	}
	flag := "nsw"
	if unsigned {
		flag = "nuw"
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s %s %s %s, %s", reg, instr, flag, llvmType, lReg, rReg))
	return reg, srcType, nil
}

// genCheckedArithmetic lowers +/-/* via the llvm.{s,u}{add,sub,mul}.with.overflow
// intrinsics, reporting to the crash runtime (rf_crash) and emitting
// unreachable when the overflow bit is set. The extracted overflow flag
// itself is discarded after the branch: nothing downstream can observe "did
// it overflow" other than by the crash firing.
func (g *Generator) genCheckedArithmetic(op, lReg, rReg, llvmType, srcType string, unsigned bool) (string, string, error) {
	kind, ok := map[string]string{"+": "add", "-": "sub", "*": "mul"}[op]
	if !ok {
		return "", "", diag.UnsupportedOperation(diag.Span{}, "genCheckedArithmetic", op, srcType)
	}
	sign := "s"
	if unsigned {
		sign = "u"
	}
	intr := fmt.Sprintf("@llvm.%s%s.with.overflow.%s", sign, kind, llvmType)
	g.declareOverflowIntrinsic(intr, llvmType)

	pairReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = call { %s, i1 } %s(%s %s, %s %s)", pairReg, llvmType, intr, llvmType, lReg, llvmType, rReg))
	resultReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue { %s, i1 } %s, 0", resultReg, llvmType, pairReg))
	overflowReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = extractvalue { %s, i1 } %s, 1", overflowReg, llvmType, pairReg))

	trapLabel := g.nextLabel("overflow.trap")
	contLabel := g.nextLabel("overflow.cont")
	g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", overflowReg, trapLabel, contLabel))
	g.emit(trapLabel + ":")
	g.declareExtern("rf_crash", "void", []string{"i8*"})
	msgPtr := g.internString(g.crashMessage("IntegerOverflow", "arithmetic overflow"))
	g.emit(fmt.Sprintf("call void @rf_crash(i8* %s)", msgPtr))
	g.emit("unreachable")
	g.emit(contLabel + ":")
	return resultReg, srcType, nil
}

func (g *Generator) declareOverflowIntrinsic(name, llvmType string) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	g.emitGlobal(fmt.Sprintf("declare { %s, i1 } %s(%s, %s)", llvmType, name, llvmType, llvmType))
}

// genSaturatingArithmetic lowers +/- via llvm.{s,u}{add,sub}.sat and *
// via llvm.smul.fix.sat/llvm.umul.fix.sat with a zero fractional-bit scale,
// which computes a saturating integer multiply.
func (g *Generator) genSaturatingArithmetic(op, lReg, rReg, llvmType, srcType string, unsigned bool) (string, string, error) {
	sign := "s"
	if unsigned {
		sign = "u"
	}
	switch op {
	case "+", "-":
		kind := "add"
		if op == "-" {
			kind = "sub"
		}
		intr := fmt.Sprintf("@llvm.%s%s.sat.%s", sign, kind, llvmType)
		g.declareSatIntrinsic(intr, llvmType, 2)
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s)", reg, llvmType, intr, llvmType, lReg, llvmType, rReg))
		return reg, srcType, nil
	case "*":
		intr := fmt.Sprintf("@llvm.%smul.fix.sat.%s", sign, llvmType)
		g.declareFixIntrinsic(intr, llvmType)
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = call %s %s(%s %s, %s %s, i32 0)", reg, llvmType, intr, llvmType, lReg, llvmType, rReg))
		return reg, srcType, nil
	default:
		return "", "", diag.UnsupportedOperation(diag.Span{}, "genSaturatingArithmetic", op, srcType)
	}
}

func (g *Generator) declareSatIntrinsic(name, llvmType string, arity int) {
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

func (g *Generator) declareFixIntrinsic(name, llvmType string) {
	if g.declared[name] {
		return
	}
	g.declared[name] = true
	g.emitGlobal(fmt.Sprintf("declare %s %s(%s, %s, i32)", llvmType, name, llvmType, llvmType))
}

// genUnary lowers unary -, !, and ~.
func (g *Generator) genUnary(e *ast.UnaryExpr) (string, string, error) {
	reg, typ, err := g.genExpr(e.X)
	if err != nil {
		return "", "", err
	}
	llvmType, err := g.MapType(typ)
	if err != nil {
		return "", "", err
	}
	switch e.Op {
	case "-":
		out := g.nextReg()
		if IsFloatTypeName(typ) {
			g.emit(fmt.Sprintf("%s = fneg %s %s", out, llvmType, reg))
		} else {
			g.emit(fmt.Sprintf("%s = sub %s 0, %s", out, llvmType, reg))
		}
		return out, typ, nil
	case "!", "not":
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = xor i1 %s, 1", out, reg))
		return out, "bool", nil
	case "~":
		out := g.nextReg()
		g.emit(fmt.Sprintf("%s = xor %s %s, -1", out, llvmType, reg))
		return out, typ, nil
	default:
		return "", "", diag.UnsupportedOperation(locSpan(e.Loc()), "genUnary", e.Op, typ)
	}
}

// convert lowers an explicit or implicit type conversion between two
// source type names.
func (g *Generator) convert(reg, fromType, toType string) (string, error) {
	fromLLVM, err := g.MapType(fromType)
	if err != nil {
		return "", err
	}
	toLLVM, err := g.MapType(toType)
	if err != nil {
		return "", err
	}
	if fromLLVM == toLLVM {
		return reg, nil
	}

	fromFloat, toFloat := IsFloatTypeName(fromType), IsFloatTypeName(toType)
	out := g.nextReg()
	switch {
	case fromFloat && toFloat:
		if floatRank(toType) > floatRank(fromType) {
			g.emit(fmt.Sprintf("%s = fpext %s %s to %s", out, fromLLVM, reg, toLLVM))
		} else {
			g.emit(fmt.Sprintf("%s = fptrunc %s %s to %s", out, fromLLVM, reg, toLLVM))
		}
	case fromFloat && !toFloat:
		if IsUnsignedTypeName(toType) {
			g.emit(fmt.Sprintf("%s = fptoui %s %s to %s", out, fromLLVM, reg, toLLVM))
		} else {
			g.emit(fmt.Sprintf("%s = fptosi %s %s to %s", out, fromLLVM, reg, toLLVM))
		}
	case !fromFloat && toFloat:
		if IsUnsignedTypeName(fromType) {
			g.emit(fmt.Sprintf("%s = uitofp %s %s to %s", out, fromLLVM, reg, toLLVM))
		} else {
			g.emit(fmt.Sprintf("%s = sitofp %s %s to %s", out, fromLLVM, reg, toLLVM))
		}
	default:
		fromW, toW := intWidth(fromType), intWidth(toType)
		switch {
		case fromW == 0 || toW == 0:
			g.emit(fmt.Sprintf("%s = bitcast %s %s to %s", out, fromLLVM, reg, toLLVM))
		case toW > fromW:
			if IsUnsignedTypeName(fromType) {
				g.emit(fmt.Sprintf("%s = zext %s %s to %s", out, fromLLVM, reg, toLLVM))
			} else {
				g.emit(fmt.Sprintf("%s = sext %s %s to %s", out, fromLLVM, reg, toLLVM))
			}
		case toW < fromW:
			g.emit(fmt.Sprintf("%s = trunc %s %s to %s", out, fromLLVM, reg, toLLVM))
		default:
			g.emit(fmt.Sprintf("%s = bitcast %s %s to %s", out, fromLLVM, reg, toLLVM))
		}
	}
	return out, nil
}

func floatRank(typ string) int {
	switch typ {
	case "f16":
		return 1
	case "f32":
		return 2
	case "f64":
		return 3
	case "f128":
		return 4
	default:
		return 0
	}
}

// bigUint is a minimal unsigned-integer string builder used only to spell
// out saturation bounds; it avoids pulling in math/big for what is a
// handful of constant table entries.
type bigUint struct{ digits string }

func (b *bigUint) setMaxUnsigned(width int) *bigUint {
	if width >= 64 {
		// 2^width - 1 for width in {64, 128}; spelled out directly since
		// strconv tops out at 64 bits.
		if width == 64 {
			b.digits = "18446744073709551615"
		} else {
			b.digits = "340282366920938463463374607431768211455"
		}
		return b
	}
	b.digits = strconv.FormatUint((uint64(1)<<uint(width))-1, 10)
	return b
}

func (b *bigUint) String() string { return b.digits }

// bigSignedBounds returns the min/max decimal constants for a signed
// integer of the given width.
func bigSignedBounds(width int) (min, max string) {
	switch width {
	case 8:
		return "-128", "127"
	case 16:
		return "-32768", "32767"
	case 32:
		return "-2147483648", "2147483647"
	case 64:
		return "-9223372036854775808", "9223372036854775807"
	case 128:
		return "-170141183460469231731687303715884105728", "170141183460469231731687303715884105727"
	default:
		return "0", "0"
	}
}
