// Package llvm lowers a type-checked AST into textual LLVM IR. Every emitter
// in this package appends directly to the Generator's strings.Builder; there
// is no intermediate object-model IR.
package llvm

import (
	"fmt"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
	"github.com/dj-lumiere/razorforge-codegen/internal/semantic"
	"github.com/dj-lumiere/razorforge-codegen/internal/target"
	"github.com/golang/glog"
	"github.com/kr/pretty"
)

// Options configures a Generator.
type Options struct {
	Target            target.Descriptor
	SymbolTable       semantic.SymbolTable
	Modules           semantic.ModuleRegistry
	CrashResolver     semantic.CrashResolver
	StdlibPath        string
	SourceFile        string
	EnableStackTraces bool
}

// loopLabels names the break/continue targets of an enclosing loop.
type loopLabels struct {
	breakLabel    string
	continueLabel string
}

// lambdaDef is a lambda body queued for emission as a top-level function once
// the enclosing routine's body is done.
type lambdaDef struct {
	name       string
	params     []*ast.Param
	returnType string
	body       ast.Expr
}

// Generator holds all state accumulated while lowering one compilation unit.
// Every field here is read or written by some file in this package; see
// NewGenerator for the invariants each one starts in.
type Generator struct {
	opts          Options
	target        target.Descriptor
	symtab        semantic.SymbolTable
	modules       semantic.ModuleRegistry
	sourceFile    string
	crashResolver semantic.CrashResolver
	stdlibPath    string

	builder strings.Builder

	regCounter    int
	labelCounter  int
	lambdaCounter int

	// scopes is a stack of source-name -> stack-slot-pointer-register maps,
	// innermost scope last. Pushed on block entry, popped on block exit.
	scopes []map[string]string
	// scopeTypes mirrors scopes but records each variable's source type
	// name.
	scopeTypes []map[string]string

	// rfTypeMap is a register-name -> RazorForge-level (non-LLVM) type map.
	// NewGenerator initializes it, but no emitter in this package writes or
	// reads it; genExpr's returned source type name carries that
	// information instead.
	rfTypeMap map[string]string

	// funcParams is the set of parameter names in the routine currently
	// being lowered. genRoutine and genLambdaFunction fill it, but nothing
	// reads it: parameters live in stack slots like any other local, so
	// identifier lookup goes through lookupLocal.
	funcParams map[string]bool

	tempTypes map[string]TypeInfo

	structTypes  map[string]bool
	structFields map[string][]*ast.Field
	entityTypes  map[string]bool
	// menuVariantTags maps "MenuStruct.VariantName" to its integer tag.
	menuVariantTags map[string]int

	globalVars map[string]string

	// declared dedups forward declarations emitted on demand (runtime
	// helpers, LLVM intrinsics, malloc) so repeated use of the same one
	// emits exactly one `declare` line.
	declared map[string]bool

	stringConstants []string
	stringNames     map[string]string

	generics *GenericRegistry
	stack    *stackTrace

	// externSignatures records the parameter/return types of every
	// imported-module routine symbol, so a call site can type-check and
	// coerce its arguments the same way it would for a locally declared
	// routine.
	externSignatures map[string]semantic.RoutineSymbol

	blockTerminated bool

	currentReturnType  string
	currentRoutineName string

	loopStack []loopLabels

	// forceUnchecked is set while lowering the body of a `mayhem` block,
	// overriding every arithmetic BinaryExpr's written overflow suffix to
	// OverflowUnchecked.
	forceUnchecked bool

	pendingLambdas []lambdaDef

	errors []error
}

// NewGenerator constructs a Generator ready to lower a single Program.
func NewGenerator(opts Options) *Generator {
	g := &Generator{
		opts:          opts,
		target:        opts.Target,
		symtab:        opts.SymbolTable,
		modules:       opts.Modules,
		sourceFile:    opts.SourceFile,
		crashResolver: opts.CrashResolver,
		stdlibPath:    opts.StdlibPath,
		rfTypeMap:     make(map[string]string),
		funcParams:    make(map[string]bool),
		tempTypes:     make(map[string]TypeInfo),
		structTypes:   make(map[string]bool),
		structFields:  make(map[string][]*ast.Field),
		entityTypes:   make(map[string]bool),
		menuVariantTags: make(map[string]int),
		globalVars:    make(map[string]string),
		declared:      make(map[string]bool),
		stringNames:   make(map[string]string),
		externSignatures: make(map[string]semantic.RoutineSymbol),
		stack:         newStackTrace(opts.EnableStackTraces),
	}
	g.generics = newGenericRegistry(g)
	g.pushScope()
	return g
}

// Generate lowers an entire program to textual LLVM IR, following the module
// emission order: header (including the .str_fmt sentinel constant),
// stack-trace runtime declarations, imported-module routine declarations,
// local declarations, generic instantiation flush, lambda bodies, then the
// stack-trace tables. Interned string constants are spliced in right after
// the .str_fmt sentinel once everything else has been emitted.
func (g *Generator) Generate(prog *ast.Program) (string, error) {
	g.emitHeader()
	g.declareStackTraceRuntime()

	g.genImportedModules()

	for _, decl := range prog.Decls {
		g.genTopLevelDecl(decl)
	}

	if glog.V(2) {
		diag.Tracef(2, "generic registry before flush: %# v", pretty.Formatter(g.generics.snapshot()))
	}
	g.generics.flush()

	g.emitPendingLambdas()
	g.emitStackTraceTables()

	if len(g.errors) > 0 {
		return "", g.errors[0]
	}
	return g.spliceStringConstants(g.builder.String()), nil
}

func (g *Generator) genTopLevelDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.RoutineDecl:
		g.generics.registerRoutineTemplate(d)
		if d.IsGeneric {
			return
		}
		g.genRoutine(d, nil)
	case *ast.RecordDecl:
		if len(d.TypeParams) > 0 {
			g.generics.registerRecordTemplate(d)
			return
		}
		g.genRecordType(d, nil)
	case *ast.EntityDecl:
		if len(d.TypeParams) > 0 {
			g.generics.registerEntityTemplate(d)
			return
		}
		g.genEntityType(d, nil)
	case *ast.MenuDecl:
		if len(d.TypeParams) > 0 {
			g.generics.registerMenuTemplate(d)
			return
		}
		g.genMenuType(d, nil)
	case *ast.VariableDecl:
		g.genGlobalVariable(d)
	default:
		g.recordErr(diag.NotImplemented(locSpan(decl.Loc()), "genTopLevelDecl", fmt.Sprintf("%T", decl)))
	}
}

// genImportedModules emits a forward declaration for every external routine
// symbol recorded by the semantic analyzer's symbol table and records its
// signature for call-site lookup. It does not check this program's own
// declarations for a routine of the same name. A symbol whose declaration
// fails to lower (an error or a panic) is logged as a warning and skipped,
// and the pass continues with the next symbol.
func (g *Generator) genImportedModules() {
	if g.symtab == nil {
		return
	}
	for _, sym := range g.symtab.GetAllSymbols() {
		if !sym.IsExternal {
			continue
		}
		g.externSignatures[sym.Name] = sym
		func() {
			defer func() {
				if r := recover(); r != nil {
					diag.Warn(sym.Name, fmt.Errorf("%v", r))
				}
			}()
			before := len(g.errors)
			g.genExternRoutine(sym)
			if len(g.errors) > before {
				diag.Warn(sym.Name, g.errors[before])
				g.errors = g.errors[:before]
			}
		}()
	}
}

// strFmtName/strFmtDecl are the canonical "%d\n" format-string constant and
// its declaration line: the sentinel every user string constant is spliced
// in immediately after at the end of module emission, and the format string
// Console.write_line/println reuse for every numeric argument rather than
// interning a fresh copy per call site (Console.write/print interns its own
// newline-free "%d").
const strFmtName = "@.str_fmt"

var strFmtDecl = fmt.Sprintf(`%s = private unnamed_addr constant [4 x i8] c"%%d\0A\00"`, strFmtName)

func (g *Generator) emitHeader() {
	g.emit(fmt.Sprintf("target datalayout = %q", g.target.DataLayout()))
	g.emit(fmt.Sprintf("target triple = %q", g.target.Triple()))
	g.emit("")
	g.emitGlobal(strFmtDecl)
	g.emit("")
}

// emit appends a line to the function-body region of the module. Emitters
// call this for every instruction, block label, and `define`/`declare`
// line; ordering within the builder is emission order, there is no
// reordering pass.
func (g *Generator) emit(line string) {
	g.builder.WriteString(line)
	g.builder.WriteByte('\n')
}

// emitGlobal appends a module-level line (global variable, string constant,
// struct type definition). Kept as a distinct method from emit, even though
// both currently write to the same builder, so a future split between a
// globals region and a code region only touches this function.
func (g *Generator) emitGlobal(line string) {
	g.builder.WriteString(line)
	g.builder.WriteByte('\n')
}

func (g *Generator) nextReg() string {
	g.regCounter++
	return fmt.Sprintf("%%r%d", g.regCounter)
}

func (g *Generator) nextLabel(prefix string) string {
	g.labelCounter++
	return fmt.Sprintf("%s%d", prefix, g.labelCounter)
}

func (g *Generator) nextLambdaName() string {
	g.lambdaCounter++
	return fmt.Sprintf("lambda_%d", g.lambdaCounter)
}

// crashMessage resolves a named runtime-error message through the optional
// CrashResolver (backed by the loaded stdlib's crash-message table) and
// falls back to a literal default when no resolver was configured or the
// name is not in its table, so a rf_crash call site always has something
// human-readable to report even when run without a stdlib path.
func (g *Generator) crashMessage(name, fallback string) string {
	if g.crashResolver == nil {
		return fallback
	}
	if msg, ok := g.crashResolver.Resolve(g.stdlibPath, name); ok {
		return msg
	}
	return fallback
}

func (g *Generator) recordErr(err error) {
	if err == nil {
		return
	}
	g.errors = append(g.errors, err)
}

// pushScope opens a new lexical scope for variable and type lookup.
func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, make(map[string]string))
	g.scopeTypes = append(g.scopeTypes, make(map[string]string))
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
	g.scopeTypes = g.scopeTypes[:len(g.scopeTypes)-1]
}

// declareLocal records name's stack-slot pointer register and source type
// in the innermost scope. Every local, including routine parameters, lives
// in an alloca: reads emit a load and writes emit a store, so arbitrary
// control flow (loops, reassignment) needs no phi nodes.
func (g *Generator) declareLocal(name, reg, typ string) {
	top := len(g.scopes) - 1
	g.scopes[top][name] = reg
	g.scopeTypes[top][name] = typ
}

// bindParam allocates a stack slot for an incoming parameter value and
// stores the parameter's own SSA register into it, then declares name
// against that slot like any other local.
func (g *Generator) bindParam(name, llvmType, sourceType string) {
	g.bindParamValue(name, llvmType, sourceType, "%"+sanitizeName(name))
}

// bindParamValue is bindParam generalized to an arbitrary already-computed
// value expression, rather than assuming the incoming register is named
// after the parameter itself. genRoutine's single-field-wrapper unwrapping
// needs this: the stack slot it declares the parameter against holds a
// register rematerialized by a few prior instructions, not the raw
// `%name` the function signature bound.
func (g *Generator) bindParamValue(name, llvmType, sourceType, valueExpr string) {
	sanitized := sanitizeName(name)
	addr := "%" + sanitized + ".addr"
	g.emit(fmt.Sprintf("%s = alloca %s", addr, llvmType))
	g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, valueExpr, llvmType, addr))
	g.declareLocal(name, addr, sourceType)
}

// bindWrapperParam rematerializes an ABI-unwrapped single-field wrapper
// record back into a freshly allocated struct instance, then binds name to
// that struct's address like any other pointer-boxed local. llvmType is the
// internal pointer-to-struct spelling (e.g. "%struct.Meters*"); fieldLLVM is
// the scalar type the value actually crossed the call boundary as.
func (g *Generator) bindWrapperParam(name, llvmType, sourceType, fieldLLVM string) {
	structLLVM := strings.TrimSuffix(llvmType, "*")
	boxed := g.nextReg()
	g.emit(fmt.Sprintf("%s = alloca %s", boxed, structLLVM))
	fieldPtr := g.nextReg()
	g.emit(fmt.Sprintf("%s = getelementptr inbounds %s, %s* %s, i32 0, i32 0", fieldPtr, structLLVM, structLLVM, boxed))
	g.emit(fmt.Sprintf("store %s %%%s, %s* %s", fieldLLVM, sanitizeName(name), fieldLLVM, fieldPtr))
	g.bindParamValue(name, llvmType, sourceType, boxed)
}

// lookupLocal walks the scope stack from innermost to outermost, returning
// the stack-slot pointer register and declared type for name.
func (g *Generator) lookupLocal(name string) (reg, typ string, ok bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if r, found := g.scopes[i][name]; found {
			return r, g.scopeTypes[i][name], true
		}
	}
	return "", "", false
}

// internString interns a string literal, returning the pointer expression to
// use at the call site and deferring the constant's definition until
// spliceStringConstants runs.
func (g *Generator) internString(value string) string {
	if name, ok := g.stringNames[value]; ok {
		return g.stringConstantPtr(name, value)
	}
	name := fmt.Sprintf("@.str.%d", len(g.stringConstants))
	g.stringNames[value] = name
	g.stringConstants = append(g.stringConstants, value)
	return g.stringConstantPtr(name, value)
}

func (g *Generator) stringConstantPtr(name, value string) string {
	n := len(value) + 1
	return fmt.Sprintf("getelementptr inbounds ([%d x i8], [%d x i8]* %s, i32 0, i32 0)", n, n, name)
}

// spliceStringConstants inserts every interned string constant, in
// insertion order, immediately after the canonical .str_fmt declaration via
// a single rewrite of the finished module text — not appended at the end of
// the file, which is where emitGlobal would otherwise place them given that
// every other emitter writes straight into the same builder in emission
// order.
func (g *Generator) spliceStringConstants(module string) string {
	if len(g.stringConstants) == 0 {
		return module
	}
	var constants strings.Builder
	for _, value := range g.stringConstants {
		name := g.stringNames[value]
		n := len(value) + 1
		constants.WriteString(fmt.Sprintf("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n",
			name, n, escapeString(value)))
	}

	anchor := strFmtDecl + "\n"
	idx := strings.Index(module, anchor)
	if idx < 0 {
		return module + constants.String()
	}
	insertAt := idx + len(anchor)
	return module[:insertAt] + constants.String() + module[insertAt:]
}

func (g *Generator) emitPendingLambdas() {
	for len(g.pendingLambdas) > 0 {
		l := g.pendingLambdas[0]
		g.pendingLambdas = g.pendingLambdas[1:]
		g.genLambdaFunction(l)
	}
}
