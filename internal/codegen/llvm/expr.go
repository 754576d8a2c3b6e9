package llvm

import (
	"fmt"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// genExpr lowers an expression, returning the SSA register (or inline
// constant) holding its value and the source-language type name that value
// carries. The type name lets callers (coerce, arithmetic, call argument
// lowering) decide signedness and float-ness without re-deriving it from
// the LLVM type string alone.
func (g *Generator) genExpr(e ast.Expr) (string, string, error) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		return g.genLiteral(x)
	case *ast.IdentifierExpr:
		return g.genIdentifier(x)
	case *ast.BinaryExpr:
		return g.genBinary(x)
	case *ast.UnaryExpr:
		return g.genUnary(x)
	case *ast.ChainedComparisonExpr:
		return g.genChainedComparison(x)
	case *ast.CallExpr:
		return g.genCall(x)
	case *ast.MemberExpr:
		return g.genMember(x)
	case *ast.IndexExpr:
		return g.genIndex(x)
	case *ast.ConditionalExpr:
		return g.genConditional(x)
	case *ast.LambdaExpr:
		return g.genLambdaExpr(x)
	case *ast.TypeConversionExpr:
		return g.genTypeConversion(x)
	case *ast.SliceConstructorExpr:
		return g.genSliceConstructor(x)
	case *ast.MemoryOperationExpr:
		return g.genMemoryOperation(x)
	case *ast.IntrinsicCallExpr:
		return g.genIntrinsicCall(x)
	case *ast.NamedArgumentExpr:
		return g.genExpr(x.Value)
	case *ast.RangeExpr:
		return "", "", diag.NotImplemented(locSpan(x.Loc()), "genExpr", "range outside for-loop/slice constructor")
	case *ast.TypeExpr:
		return "", "", diag.NotImplemented(locSpan(x.Loc()), "genExpr", "bare type name as value")
	default:
		return "", "", diag.NotImplemented(locSpan(e.Loc()), "genExpr", fmt.Sprintf("%T", e))
	}
}

func (g *Generator) genLiteral(e *ast.LiteralExpr) (string, string, error) {
	switch e.Kind {
	case ast.IntegerLiteral:
		return fmt.Sprintf("%d", e.Value.(int64)), "s32", nil
	case ast.FloatLiteral:
		return fmt.Sprintf("%g", e.Value.(float64)), "f64", nil
	case ast.BoolLiteral:
		if e.Value.(bool) {
			return "1", "bool", nil
		}
		return "0", "bool", nil
	case ast.TextLiteral:
		return g.internString(e.Value.(string)), "text", nil
	case ast.NoneLiteral:
		return "null", "", nil
	default:
		return "", "", diag.NotImplemented(locSpan(e.Loc()), "genLiteral", "unknown literal kind")
	}
}

func (g *Generator) genIdentifier(e *ast.IdentifierExpr) (string, string, error) {
	if e.Name == "None" {
		return "null", "", nil
	}
	if addr, typ, ok := g.lookupLocal(e.Name); ok {
		llvmType, err := g.MapType(typ)
		if err != nil {
			return "", "", err
		}
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, %s* %s", reg, llvmType, llvmType, addr))
		return reg, typ, nil
	}
	if llvmType, ok := g.globalVars[e.Name]; ok {
		reg := g.nextReg()
		g.emit(fmt.Sprintf("%s = load %s, %s* @%s", reg, llvmType, llvmType, sanitizeName(e.Name)))
		return reg, llvmSourceTypeGuess(llvmType), nil
	}
	return "", "", diag.TypeResolutionFailure(locSpan(e.Loc()), "genIdentifier", e.Name)
}

// llvmSourceTypeGuess recovers a plausible source type name for a bare
// global variable identifier whose declared source type was not retained
// (only its LLVM type was). Used solely to pick a default signedness/float
// family for any arithmetic performed directly on a global; an explicit
// local copy (`x := GlobalVar`) carries the precise source type forward
// from whatever expression produced it instead.
func llvmSourceTypeGuess(llvmType string) string {
	switch llvmType {
	case "float":
		return "f32"
	case "double":
		return "f64"
	case "i1":
		return "bool"
	case "i8*":
		return "text"
	default:
		if strings.HasPrefix(llvmType, "i") {
			return "s" + llvmType[1:]
		}
		return llvmType
	}
}

// genCall lowers a routine or method call. For a method call ("Receiver.method"),
// Args[0] is the receiver expression and the remainder are the call's real
// arguments.
func (g *Generator) genCall(e *ast.CallExpr) (string, string, error) {
	if reg, typ, handled, err := g.genBuiltinCall(e); handled {
		return reg, typ, err
	}

	_, _, isMethod := receiverAndMethod(e.Callee)
	key := templateKey(e.Callee)
	tmpl, hasTmpl := g.generics.routineTemplates[key]

	var meReg, meType string
	argExprs := e.Args
	if isMethod {
		if len(e.Args) == 0 {
			return "", "", diag.InvalidArgumentCount(locSpan(e.Loc()), "genCall:"+e.Callee, 1, 0)
		}
		reg, typ, err := g.genExpr(e.Args[0])
		if err != nil {
			return "", "", err
		}
		meReg, meType = reg, typ
		argExprs = e.Args[1:]
	}

	var symbol, returnType string
	switch {
	case hasTmpl && len(tmpl.TypeParams) > 0:
		mangled, rt, err := g.generics.instantiateRoutine(key, meType, e.TypeArgs)
		if err != nil {
			return "", "", err
		}
		symbol, returnType = mangled, rt
	case hasTmpl:
		symbol, returnType = symbolName(tmpl, nil), tmpl.ReturnType
	default:
		if sig, ok := g.externSignatures[e.Callee]; ok {
			returnType = sig.ReturnType
			symbol = mangleRoutineSymbol(e.Callee, returnType)
		} else {
			symbol = mangleRoutineSymbol(e.Callee, "")
		}
	}

	var args []string
	if isMethod {
		meLLVM, err := g.MapType(meType)
		if err != nil {
			return "", "", err
		}
		if fieldType, structName, ok := g.singleFieldWrapperField(meType); ok {
			meReg = g.unwrapSingleField(meReg, structName, fieldType)
			meLLVM = fieldType
		}
		args = append(args, fmt.Sprintf("%s %s", meLLVM, meReg))
	}
	for _, a := range argExprs {
		reg, typ, err := g.genExpr(a)
		if err != nil {
			return "", "", err
		}
		llvmType, err := g.MapType(typ)
		if err != nil {
			return "", "", err
		}
		if fieldType, structName, ok := g.singleFieldWrapperField(typ); ok {
			reg = g.unwrapSingleField(reg, structName, fieldType)
			llvmType = fieldType
		}
		args = append(args, fmt.Sprintf("%s %s", llvmType, reg))
	}

	returnLLVM := "void"
	if returnType != "" {
		mapped, err := g.MapType(returnType)
		if err != nil {
			return "", "", err
		}
		returnLLVM = mapped
	}

	callText := fmt.Sprintf("call %s @%s(%s)", returnLLVM, symbol, strings.Join(args, ", "))
	if returnLLVM == "void" {
		g.emit(callText)
		return "", "", nil
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = %s", reg, callText))
	return reg, returnType, nil
}

// unwrapSingleField loads a single-field wrapper record's sole field out of
// its pointer-boxed representation, mirroring genMember's getelementptr-then-
// load shape, so a value of that record type can cross a call boundary as
// the unwrapped scalar singleFieldWrapperField says the callee expects.
func (g *Generator) unwrapSingleField(reg, structName, fieldLLVM string) string {
	fieldPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds %%struct.%s, %%struct.%s* %s, i32 0, i32 0",
		fieldPtr, structName, structName, reg))
	out := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, %s* %s", out, fieldLLVM, fieldLLVM, fieldPtr))
	return out
}

// genMember lowers a field access on a record/entity pointer: a getelementptr
// to the field slot followed by a load.
func (g *Generator) genMember(e *ast.MemberExpr) (string, string, error) {
	recvReg, recvType, err := g.genExpr(e.Receiver)
	if err != nil {
		return "", "", err
	}
	base, _, isGeneric := parseGeneric(recvType)
	structName := sanitizeName(recvType)
	if isGeneric {
		structName = sanitizeName(base)
		if mangled, ok := g.resolveInstantiatedStructName(recvType); ok {
			structName = mangled
		}
	}
	fields, ok := g.structFields[structName]
	if !ok {
		return "", "", diag.TypeResolutionFailure(locSpan(e.Loc()), "genMember", recvType)
	}
	idx := -1
	var fieldType string
	for i, f := range fields {
		if f.Name == e.Name {
			idx = i
			fieldType = f.Type
			break
		}
	}
	if idx < 0 {
		return "", "", diag.TypeResolutionFailure(locSpan(e.Loc()), "genMember", e.Name)
	}
	fieldLLVM, err := g.MapType(fieldType)
	if err != nil {
		return "", "", err
	}
	gepReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds %%struct.%s, %%struct.%s* %s, i32 0, i32 %d",
		gepReg, structName, structName, recvReg, idx))
	loadReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, %s* %s", loadReg, fieldLLVM, fieldLLVM, gepReg))
	return loadReg, fieldType, nil
}

// resolveInstantiatedStructName maps a generic receiver's full source type
// name (e.g. "Vec<s32>") to the mangled struct name emitted for its
// instantiation, matching the dedup key instantiateGenericType uses.
func (g *Generator) resolveInstantiatedStructName(sourceType string) (string, bool) {
	base, args, ok := parseGeneric(sourceType)
	if !ok {
		return "", false
	}
	mangled := sanitizeName(mangleGeneric(base, args))
	if g.structTypes[mangled] {
		return mangled, true
	}
	return "", false
}

// genIndex lowers an indexing expression on a RawPointer-backed slice:
// a getelementptr by Index followed by a load.
func (g *Generator) genIndex(e *ast.IndexExpr) (string, string, error) {
	recvReg, recvType, err := g.genExpr(e.Receiver)
	if err != nil {
		return "", "", err
	}
	base, args, ok := parseGeneric(recvType)
	if !ok || base != "RawPointer" || len(args) != 1 {
		return "", "", diag.UnsupportedOperation(locSpan(e.Loc()), "genIndex", "[]", recvType)
	}
	elemType := args[0]
	elemLLVM, err := g.MapType(elemType)
	if err != nil {
		return "", "", err
	}
	idxReg, _, err := g.genExpr(e.Index)
	if err != nil {
		return "", "", err
	}
	gepReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds %s, %s* %s, i64 %s", gepReg, elemLLVM, elemLLVM, recvReg, idxReg))
	loadReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = load %s, %s* %s", loadReg, elemLLVM, elemLLVM, gepReg))
	return loadReg, elemType, nil
}

// genConditional lowers the ternary `if cond then a else b` expression via
// two-block branching and a phi node joining the results.
func (g *Generator) genConditional(e *ast.ConditionalExpr) (string, string, error) {
	condReg, _, err := g.genExpr(e.Cond)
	if err != nil {
		return "", "", err
	}
	thenLabel := g.nextLabel("cond.then")
	elseLabel := g.nextLabel("cond.else")
	endLabel := g.nextLabel("cond.end")
	g.emit(fmt.Sprintf("br i1 %s, label %%%s, label %%%s", condReg, thenLabel, elseLabel))

	g.emit(thenLabel + ":")
	thenReg, thenType, err := g.genExpr(e.Then)
	if err != nil {
		return "", "", err
	}
	thenEndLabel := g.currentBlockLabel(thenLabel)
	g.emit(fmt.Sprintf("br label %%%s", endLabel))

	g.emit(elseLabel + ":")
	elseReg, _, err := g.genExpr(e.Else)
	if err != nil {
		return "", "", err
	}
	elseEndLabel := g.currentBlockLabel(elseLabel)
	g.emit(fmt.Sprintf("br label %%%s", endLabel))

	g.emit(endLabel + ":")
	llvmType, err := g.MapType(thenType)
	if err != nil {
		return "", "", err
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("%s = phi %s [ %s, %%%s ], [ %s, %%%s ]", reg, llvmType, thenReg, thenEndLabel, elseReg, elseEndLabel))
	return reg, thenType, nil
}

// currentBlockLabel is a placeholder identity hook for the predecessor
// label a phi edge should name. Branch-free straight-line arms (the only
// shape a conditional expression's Then/Else may take) never change the
// current block, so the entry label is always still current.
func (g *Generator) currentBlockLabel(entryLabel string) string {
	return entryLabel
}

// genLambdaExpr queues a lambda's body for emission as a standalone
// top-level function and returns a pointer to that function as the
// expression's value. The lambda's return type is read off its body: a
// literal's own type, a parameter's declared type for a bare parameter
// reference, and s32 for any other body.
func (g *Generator) genLambdaExpr(e *ast.LambdaExpr) (string, string, error) {
	name := g.nextLambdaName()
	returnType := inferLiteralType(e.Body)
	if id, ok := e.Body.(*ast.IdentifierExpr); ok {
		for _, p := range e.Params {
			if p.Name == id.Name {
				returnType = p.Type
			}
		}
	}
	g.pendingLambdas = append(g.pendingLambdas, lambdaDef{
		name:       name,
		params:     e.Params,
		returnType: returnType,
		body:       e.Body,
	})
	return "@" + name, "", nil
}

func (g *Generator) genTypeConversion(e *ast.TypeConversionExpr) (string, string, error) {
	reg, fromType, err := g.genExpr(e.X)
	if err != nil {
		return "", "", err
	}
	out, err := g.convert(reg, fromType, e.TargetType)
	if err != nil {
		return "", "", err
	}
	return out, e.TargetType, nil
}

// genSliceConstructor allocates a heap buffer sized for Elements and stores
// each element, returning a RawPointer<ElemType> value.
func (g *Generator) genSliceConstructor(e *ast.SliceConstructorExpr) (string, string, error) {
	elemLLVM, err := g.MapType(e.ElemType)
	if err != nil {
		return "", "", err
	}
	g.declareMalloc()
	n := len(e.Elements)
	sizeReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr %s, %s* null, i64 %d", sizeReg, elemLLVM, elemLLVM, n))
	sizeIntReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = ptrtoint %s* %s to i64", sizeIntReg, elemLLVM, sizeReg))
	rawReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = call i8* @malloc(i64 %s)", rawReg, sizeIntReg))
	bufReg := g.nextReg()
	g.emit(fmt.Sprintf("%s = bitcast i8* %s to %s*", bufReg, rawReg, elemLLVM))

	for i, elem := range e.Elements {
		elReg, elType, err := g.genExpr(elem)
		if err != nil {
			return "", "", err
		}
		coerced := g.coerce(elReg, elType, e.ElemType)
		slot := g.nextReg()
		g.emit(fmt.Sprintf("%s = getelementptr inbounds %s, %s* %s, i64 %d", slot, elemLLVM, elemLLVM, bufReg, i))
		g.emit(fmt.Sprintf("store %s %s, %s* %s", elemLLVM, coerced, elemLLVM, slot))
	}
	return bufReg, "RawPointer<" + e.ElemType + ">", nil
}

func (g *Generator) declareMalloc() {
	if g.declared["malloc"] {
		return
	}
	g.declared["malloc"] = true
	g.emitGlobal("declare i8* @malloc(i64)")
}
