package llvm

import (
	"fmt"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// genBlock lowers a block statement in its own lexical scope, stopping as
// soon as a statement terminates the current basic block: anything after a
// return/throw/break/continue is dead and LLVM IR does not allow
// instructions after a terminator.
func (g *Generator) genBlock(b *ast.BlockStmt) {
	g.pushScope()
	for _, s := range b.Stmts {
		if g.blockTerminated {
			break
		}
		g.genStmt(s)
	}
	g.popScope()
}

func (g *Generator) genStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VariableDecl:
		g.genLocalVarDecl(st)
	case *ast.ExprStmt:
		if _, _, err := g.genExpr(st.X); err != nil {
			g.recordErr(err)
		}
	case *ast.AssignStmt:
		g.genAssignStmt(st)
	case *ast.ReturnStmt:
		g.genReturnStmt(st)
	case *ast.ThrowStmt:
		g.genThrowStmt(st)
	case *ast.AbsentStmt:
		g.captureAndThrowAbsent()
		g.emit("unreachable")
		g.blockTerminated = true
	case *ast.IfStmt:
		g.genIfStmt(st)
	case *ast.WhileStmt:
		g.genWhileStmt(st)
	case *ast.ForStmt:
		g.genForStmt(st)
	case *ast.WhenStmt:
		g.genWhenStmt(st)
	case *ast.BreakStmt:
		g.genBreakStmt(st)
	case *ast.ContinueStmt:
		g.genContinueStmt(st)
	case *ast.DangerStmt:
		g.genBlock(st.Body)
	case *ast.MayhemStmt:
		g.genMayhemStmt(st)
	case *ast.ScopedAccessStmt:
		g.genScopedAccessStmt(st)
	default:
		g.recordErr(diag.NotImplemented(locSpan(s.Loc()), "genStmt", fmt.Sprintf("%T", s)))
	}
}

// genLocalVarDecl lowers a local variable declaration: an alloca per name,
// plus a store of the (shared) initializer value when one is given.
func (g *Generator) genLocalVarDecl(d *ast.VariableDecl) {
	declaredType := d.Type
	var valReg, valType string
	if d.Init != nil {
		reg, typ, err := g.genExpr(d.Init)
		if err != nil {
			g.recordErr(err)
			return
		}
		valReg, valType = reg, typ
		if declaredType == "" {
			declaredType = typ
		}
	}

	llvmType, err := g.MapType(declaredType)
	if err != nil {
		g.recordErr(err)
		return
	}

	for _, name := range d.Names {
		sanitized := sanitizeName(name)
		addr := "%" + sanitized + ".local.addr"
		g.emit(fmt.Sprintf("%s = alloca %s", addr, llvmType))
		if d.Init != nil {
			coerced := g.coerce(valReg, valType, declaredType)
			g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, coerced, llvmType, addr))
		}
		g.declareLocal(name, addr, declaredType)
	}
}

// genAssignStmt lowers an assignment to an already-declared local or
// global variable.
func (g *Generator) genAssignStmt(s *ast.AssignStmt) {
	reg, typ, err := g.genExpr(s.Value)
	if err != nil {
		g.recordErr(err)
		return
	}

	if addr, declaredType, ok := g.lookupLocal(s.Target); ok {
		llvmType, err := g.MapType(declaredType)
		if err != nil {
			g.recordErr(err)
			return
		}
		coerced := g.coerce(reg, typ, declaredType)
		g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, coerced, llvmType, addr))
		return
	}

	if declaredType, ok := g.globalVars[s.Target]; ok {
		coerced := g.coerce(reg, typ, typ)
		g.emit(fmt.Sprintf("store %s %s, %s* @%s", declaredType, coerced, declaredType, sanitizeName(s.Target)))
		return
	}

	g.recordErr(diag.TypeResolutionFailure(locSpan(s.Loc()), "genAssignStmt", s.Target))
}

func (g *Generator) genReturnStmt(s *ast.ReturnStmt) {
	g.popFrame()
	if s.Value == nil {
		g.emit("ret void")
		g.blockTerminated = true
		return
	}
	reg, typ, err := g.genExpr(s.Value)
	if err != nil {
		g.recordErr(err)
		return
	}
	llvmType, err := g.MapType(g.currentReturnType)
	if err != nil {
		g.recordErr(err)
		return
	}
	coerced := g.coerce(reg, typ, g.currentReturnType)
	g.emit(fmt.Sprintf("ret %s %s", llvmType, coerced))
	g.blockTerminated = true
}

// genThrowStmt evaluates the throwable value and raises it via the
// stack-trace capture + throw runtime pair.
func (g *Generator) genThrowStmt(s *ast.ThrowStmt) {
	reg, typ, err := g.genExpr(s.Value)
	if err != nil {
		g.recordErr(err)
		return
	}
	llvmType, err := g.MapType(typ)
	if err != nil {
		g.recordErr(err)
		return
	}
	var typePtr string
	if llvmType == "i8*" {
		typePtr = reg
	} else {
		casted := g.nextReg()
		g.emit(fmt.Sprintf("%s = bitcast %s %s to i8*", casted, llvmType, reg))
		typePtr = casted
	}
	g.captureAndThrow(typePtr, "null")
	g.emit("unreachable")
	g.blockTerminated = true
}

func (g *Generator) genIfStmt(s *ast.IfStmt) {
	condReg, _, err := g.genExpr(s.Cond)
	if err != nil {
		g.recordErr(err)
		return
	}
	thenLabel := g.nextLabel("if.then")
	elseLabel := g.nextLabel("if.else")
	endLabel := g.nextLabel("if.end")

	target := elseLabel
	if s.Else == nil {
		target = endLabel
	}
	g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, thenLabel, target))

	g.emit(thenLabel + ":")
	g.blockTerminated = false
	g.genBlock(s.Then)
	if !g.blockTerminated {
		g.emit(fmt.Sprintf("br label %%%s", endLabel))
	}
	thenTerminated := g.blockTerminated

	elseTerminated := false
	if s.Else != nil {
		g.emit(elseLabel + ":")
		g.blockTerminated = false
		g.genBlock(s.Else)
		if !g.blockTerminated {
			g.emit(fmt.Sprintf("br label %%%s", endLabel))
		}
		elseTerminated = g.blockTerminated
	}

	g.emit(endLabel + ":")
	g.blockTerminated = thenTerminated && elseTerminated
}

func (g *Generator) genWhileStmt(s *ast.WhileStmt) {
	condLabel := g.nextLabel("while.cond")
	bodyLabel := g.nextLabel("while.body")
	endLabel := g.nextLabel("while.end")

	g.emit(fmt.Sprintf("br label %%%s", condLabel))
	g.emit(condLabel + ":")
	g.blockTerminated = false
	condReg, _, err := g.genExpr(s.Cond)
	if err != nil {
		g.recordErr(err)
		return
	}
	g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, bodyLabel, endLabel))

	g.emit(bodyLabel + ":")
	g.loopStack = append(g.loopStack, loopLabels{breakLabel: endLabel, continueLabel: condLabel})
	g.blockTerminated = false
	g.genBlock(s.Body)
	if !g.blockTerminated {
		g.emit(fmt.Sprintf("br label %%%s", condLabel))
	}
	g.loopStack = g.loopStack[:len(g.loopStack)-1]

	g.emit(endLabel + ":")
	g.blockTerminated = false
}

// genForStmt lowers a `for x in range` loop. The range bounds are
// evaluated once before the loop; the loop variable is a mutable local
// re-stored each iteration, consistent with every other local using the
// alloca/load/store convention.
func (g *Generator) genForStmt(s *ast.ForStmt) {
	rangeExpr, ok := s.Iterable.(*ast.RangeExpr)
	if !ok {
		g.recordErr(diag.NotImplemented(locSpan(s.Loc()), "genForStmt", "non-range iterable"))
		return
	}
	lowReg, lowType, err := g.genExpr(rangeExpr.Low)
	if err != nil {
		g.recordErr(err)
		return
	}
	highReg, _, err := g.genExpr(rangeExpr.High)
	if err != nil {
		g.recordErr(err)
		return
	}
	llvmType, err := g.MapType(lowType)
	if err != nil {
		g.recordErr(err)
		return
	}

	sanitized := sanitizeName(s.Var)
	addr := "%" + sanitized + ".local.addr"
	g.emit(fmt.Sprintf("%s = alloca %s", addr, llvmType))
	g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, lowReg, llvmType, addr))
	g.declareLocal(s.Var, addr, lowType)

	condLabel := g.nextLabel("for.cond")
	bodyLabel := g.nextLabel("for.body")
	incLabel := g.nextLabel("for.inc")
	endLabel := g.nextLabel("for.end")

	g.emit(fmt.Sprintf("br label %%%s", condLabel))
	g.emit(condLabel + ":")
	g.blockTerminated = false
	cur := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, %s* %s", cur, llvmType, llvmType, addr))
	opSuffix := "sle"
	if !rangeExpr.Inclusive {
		opSuffix = "slt"
	}
	if IsUnsignedTypeName(lowType) {
		if rangeExpr.Inclusive {
			opSuffix = "ule"
		} else {
			opSuffix = "ult"
		}
	}
	condReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = icmp %s %s %s, %s", condReg, opSuffix, llvmType, cur, highReg))
	g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, bodyLabel, endLabel))

	g.emit(bodyLabel + ":")
	g.loopStack = append(g.loopStack, loopLabels{breakLabel: endLabel, continueLabel: incLabel})
	g.blockTerminated = false
	g.genBlock(s.Body)
	if !g.blockTerminated {
		g.emit(fmt.Sprintf("br label %%%s", incLabel))
	}
	g.loopStack = g.loopStack[:len(g.loopStack)-1]

	g.emit(incLabel + ":")
	g.blockTerminated = false
	curInc := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, %s* %s", curInc, llvmType, llvmType, addr))
	nextReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = add %s %s, 1", nextReg, llvmType, curInc))
	g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, nextReg, llvmType, addr))
	g.emit(fmt.Sprintf("br label %%%s", condLabel))

	g.emit(endLabel + ":")
	g.blockTerminated = false
}

// genWhenStmt lowers a multi-arm conditional as a cascade of conditional
// branches, the same shape a switch-over-arbitrary-predicates has to take
// once any arm's condition is more than an equality test.
func (g *Generator) genWhenStmt(s *ast.WhenStmt) {
	endLabel := g.nextLabel("when.end")
	allTerminated := true
	anyCase := false

	var nextCondLabel string
	for i, c := range s.Cases {
		anyCase = true
		isLast := i == len(s.Cases)-1
		bodyLabel := g.nextLabel("when.body")
		if c.Cond == nil {
			g.emit(bodyLabel + ":")
			g.blockTerminated = false
			g.genBlock(c.Body)
			if !g.blockTerminated {
				g.emit(fmt.Sprintf("br label %%%s", endLabel))
			}
			allTerminated = allTerminated && g.blockTerminated
			continue
		}

		if nextCondLabel != "" {
			g.emit(nextCondLabel + ":")
			g.blockTerminated = false
		}
		condReg, _, err := g.genExpr(c.Cond)
		if err != nil {
			g.recordErr(err)
			return
		}
		falseLabel := endLabel
		if !isLast {
			falseLabel = g.nextLabel("when.next")
		}
		g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, bodyLabel, falseLabel))

		g.emit(bodyLabel + ":")
		g.blockTerminated = false
		g.genBlock(c.Body)
		if !g.blockTerminated {
			g.emit(fmt.Sprintf("br label %%%s", endLabel))
		}
		allTerminated = allTerminated && g.blockTerminated
		nextCondLabel = falseLabel
		if isLast {
			allTerminated = false // falls through to endLabel with no default arm
		}
	}

	g.emit(endLabel + ":")
	g.blockTerminated = anyCase && allTerminated
}

func (g *Generator) genBreakStmt(s *ast.BreakStmt) {
	if len(g.loopStack) == 0 {
		g.recordErr(diag.NotImplemented(locSpan(s.Loc()), "genBreakStmt", "break outside loop"))
		return
	}
	top := g.loopStack[len(g.loopStack)-1]
	g.emit(fmt.Sprintf("br label %%%s", top.breakLabel))
	g.blockTerminated = true
}

func (g *Generator) genContinueStmt(s *ast.ContinueStmt) {
	if len(g.loopStack) == 0 {
		g.recordErr(diag.NotImplemented(locSpan(s.Loc()), "genContinueStmt", "null statement outside loop"))
		return
	}
	top := g.loopStack[len(g.loopStack)-1]
	g.emit(fmt.Sprintf("br label %%%s", top.continueLabel))
	g.blockTerminated = true
}

// genMayhemStmt lowers a `mayhem` block: its body runs unchanged, but every
// arithmetic BinaryExpr inside forces the unchecked overflow variant
// regardless of its written suffix.
func (g *Generator) genMayhemStmt(s *ast.MayhemStmt) {
	prev := g.forceUnchecked
	g.forceUnchecked = true
	g.genBlock(s.Body)
	g.forceUnchecked = prev
}

// coerce inserts a widening/truncating/signedness-appropriate cast when a
// value's inferred type differs from the type it is being stored or
// returned as. No-op when fromType == toType.
func (g *Generator) coerce(reg, fromType, toType string) string {
	if fromType == toType || toType == "" {
		return reg
	}
	fromLLVM, err1 := g.MapType(fromType)
	toLLVM, err2 := g.MapType(toType)
	if err1 != nil || err2 != nil || fromLLVM == toLLVM {
		return reg
	}
	out, err := g.convert(reg, fromType, toType)
	if err != nil {
		g.recordErr(err)
		return reg
	}
	return out
}
