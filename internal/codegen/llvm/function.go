package llvm

import (
	"fmt"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/semantic"
)

// symbolName returns the LLVM symbol a routine declaration lowers to: the
// mangled name of a monomorphized instance when inst is non-nil, "main" for
// the forced entry-point rename of a plain "start" routine, or the
// throwable/try-mangled "Receiver_method" / bare name otherwise (see
// mangleRoutineSymbol).
func symbolName(d *ast.RoutineDecl, inst *genericInstance) string {
	if inst != nil {
		return inst.mangledName
	}
	if d.Name == "start" {
		if _, _, isMethod := receiverAndMethod(d.Name); !isMethod {
			return "main"
		}
	}
	return mangleRoutineSymbol(d.Name, d.ReturnType)
}

// genRoutine lowers one non-template routine declaration: a forward
// declaration for an external (FFI) routine, or a full definition with an
// entry block and push/pop stack-trace frames around the body. inst carries
// the substitution map and symbol name for a monomorphized generic
// instance; it is nil for an ordinary, non-generic routine.
func (g *Generator) genRoutine(d *ast.RoutineDecl, inst *genericInstance) {
	var subs map[string]string
	if inst != nil {
		subs = inst.subs
	}

	llvmName := symbolName(d, inst)
	receiver, _, isMethod := receiverAndMethod(d.Name)

	returnLLVM := "void"
	if llvmName == "main" {
		returnLLVM = "i32"
	} else if d.ReturnType != "" {
		mapped, err := g.MapWithSubstitution(d.ReturnType, subs)
		if err != nil {
			g.recordErr(err)
			return
		}
		returnLLVM = mapped
	}

	var params []string
	var paramNames []string
	var paramTypes []string
	var paramLLVMTypes []string
	var paramWrapperFields []string
	if isMethod {
		recvLLVM, err := g.MapWithSubstitution(receiver, subs)
		if err != nil {
			g.recordErr(err)
			return
		}
		abiLLVM, wrapperField := recvLLVM, ""
		if fieldType, _, ok := g.singleFieldWrapperField(receiver); ok {
			abiLLVM, wrapperField = fieldType, fieldType
		}
		params = append(params, fmt.Sprintf("%s %%me", abiLLVM))
		paramNames = append(paramNames, "me")
		paramTypes = append(paramTypes, substituteWords(receiver, subs))
		paramLLVMTypes = append(paramLLVMTypes, recvLLVM)
		paramWrapperFields = append(paramWrapperFields, wrapperField)
	}
	for _, p := range d.Params {
		mapped, err := g.MapWithSubstitution(p.Type, subs)
		if err != nil {
			g.recordErr(err)
			return
		}
		abiLLVM, wrapperField := mapped, ""
		if fieldType, _, ok := g.singleFieldWrapperField(p.Type); ok {
			abiLLVM, wrapperField = fieldType, fieldType
		}
		sanitized := sanitizeName(p.Name)
		params = append(params, fmt.Sprintf("%s %%%s", abiLLVM, sanitized))
		paramNames = append(paramNames, p.Name)
		paramTypes = append(paramTypes, substituteWords(p.Type, subs))
		paramLLVMTypes = append(paramLLVMTypes, mapped)
		paramWrapperFields = append(paramWrapperFields, wrapperField)
	}

	if d.IsExternal || d.Body == nil {
		g.emitGlobal(fmt.Sprintf("declare %s @%s(%s)", returnLLVM, llvmName, strings.Join(params, ", ")))
		return
	}

	prevReturnType, prevRoutineName := g.currentReturnType, g.currentRoutineName
	g.currentReturnType = substituteWords(d.ReturnType, subs)
	g.currentRoutineName = llvmName

	g.pushScope()
	g.funcParams = make(map[string]bool, len(paramNames))

	g.emit(fmt.Sprintf("define %s @%s(%s) {", returnLLVM, llvmName, strings.Join(params, ", ")))
	g.emit("entry:")
	g.blockTerminated = false

	for i, name := range paramNames {
		if paramWrapperFields[i] != "" {
			g.bindWrapperParam(name, paramLLVMTypes[i], paramTypes[i], paramWrapperFields[i])
		} else {
			g.bindParam(name, paramLLVMTypes[i], paramTypes[i])
		}
		g.funcParams[name] = true
	}

	loc := d.Loc()
	g.pushFrame("", loc.Line, loc.Column)

	g.genBlock(d.Body)

	if !g.blockTerminated {
		g.popFrame()
		switch {
		case llvmName == "main":
			g.emit("ret i32 0")
		case returnLLVM == "void":
			g.emit("ret void")
		default:
			g.emit("unreachable")
		}
	}

	g.emit("}")
	g.emit("")

	g.popScope()
	g.currentReturnType, g.currentRoutineName = prevReturnType, prevRoutineName
}

// genExternRoutine lowers a symbol harvested from the semantic analyzer's
// symbol table for an imported module, emitting only the forward
// declaration the calling module needs.
func (g *Generator) genExternRoutine(sym semantic.RoutineSymbol) {
	returnLLVM := "void"
	if sym.ReturnType != "" {
		mapped, err := g.MapType(sym.ReturnType)
		if err != nil {
			g.recordErr(err)
			return
		}
		returnLLVM = mapped
	}
	params := make([]string, len(sym.Params))
	for i, p := range sym.Params {
		mapped, err := g.MapType(p.Type)
		if err != nil {
			g.recordErr(err)
			return
		}
		params[i] = mapped
	}
	g.emitGlobal(fmt.Sprintf("declare %s @%s(%s)", returnLLVM, mangleRoutineSymbol(sym.Name, sym.ReturnType), strings.Join(params, ", ")))
}

// genLambdaFunction lowers one queued lambda body as a top-level function
// named per its synthesized name, returning the value its shallow body
// expression evaluates to.
func (g *Generator) genLambdaFunction(l lambdaDef) {
	returnLLVM := "void"
	if l.returnType != "" {
		mapped, err := g.MapType(l.returnType)
		if err != nil {
			g.recordErr(err)
			return
		}
		returnLLVM = mapped
	}

	params := make([]string, len(l.params))
	llvmTypes := make([]string, len(l.params))
	prevParams := g.funcParams
	g.funcParams = make(map[string]bool, len(l.params))
	g.pushScope()
	for i, p := range l.params {
		mapped, err := g.MapType(p.Type)
		if err != nil {
			g.recordErr(err)
			return
		}
		sanitized := sanitizeName(p.Name)
		params[i] = fmt.Sprintf("%s %%%s", mapped, sanitized)
		llvmTypes[i] = mapped
	}

	prevReturnType, prevRoutineName := g.currentReturnType, g.currentRoutineName
	g.currentReturnType = l.returnType
	g.currentRoutineName = l.name

	g.emit(fmt.Sprintf("define %s @%s(%s) {", returnLLVM, l.name, strings.Join(params, ", ")))
	g.emit("entry:")
	g.blockTerminated = false

	for i, p := range l.params {
		g.bindParam(p.Name, llvmTypes[i], p.Type)
		g.funcParams[p.Name] = true
	}

	reg, typ, err := g.genExpr(l.body)
	if err != nil {
		g.recordErr(err)
	} else if !g.blockTerminated {
		if returnLLVM == "void" {
			g.emit("ret void")
		} else {
			g.emit(fmt.Sprintf("ret %s %s", returnLLVM, g.coerce(reg, typ, l.returnType)))
		}
	}
	g.emit("}")
	g.emit("")

	g.popScope()
	g.funcParams = prevParams
	g.currentReturnType, g.currentRoutineName = prevReturnType, prevRoutineName
}
