package llvm

import (
	"fmt"
	"strings"
)

// stackTrace implements stack-trace instrumentation: push/pop/capture/throw runtime calls, the
// per-name interning tables used to build those calls' arguments, and the
// module-level name tables + initializer published at end of emission.
type stackTrace struct {
	enabled  bool
	files    *internTable
	routines *internTable
	types    *internTable
}

func newStackTrace(enabled bool) *stackTrace {
	return &stackTrace{
		enabled:  enabled,
		files:    newInternTable(),
		routines: newInternTable(),
		types:    newInternTable(),
	}
}

// declareStackTraceRuntime emits the forward declarations for the stack-trace runtime
// entry points. Always emitted, even when disabled, since generated IR may
// still call rf_throw/rf_throw_absent.
func (g *Generator) declareStackTraceRuntime() {
	g.emit("; Stack-trace runtime declarations")
	g.emit("declare void @rf_stacktrace_push(i32, i32, i32, i32, i32)")
	g.emit("declare void @rf_stacktrace_pop()")
	g.emit("declare void @rf_stacktrace_capture()")
	g.emit("declare void @rf_throw(i8*, i8*)")
	g.emit("declare void @rf_throw_absent()")
	g.emit("")
}

// pushFrame emits a push_frame call identifying the current file, routine,
// and the type being constructed (0 when not applicable) at (line, column).
// No-op when the stack-trace lowerer is disabled.
func (g *Generator) pushFrame(typeName string, line, column int) {
	if !g.stack.enabled {
		return
	}
	fileID := g.stack.files.register(g.sourceFile)
	routineID := g.stack.routines.register(g.currentRoutineName)
	typeID := g.stack.types.register(typeName)
	g.emit(fmt.Sprintf("call void @rf_stacktrace_push(i32 %d, i32 %d, i32 %d, i32 %d, i32 %d)",
		fileID, routineID, typeID, line, column))
}

// popFrame emits the matching pop_frame call. No-op when disabled.
func (g *Generator) popFrame() {
	if !g.stack.enabled {
		return
	}
	g.emit("call void @rf_stacktrace_pop()")
}

// captureAndThrow emits a capture + throw pair, used by throw statements,
// followed by unreachable by the caller. msgPtr may be the null pointer
// constant for an absent-style throw with no message.
func (g *Generator) captureAndThrow(typePtr, msgPtr string) {
	if g.stack.enabled {
		g.emit("call void @rf_stacktrace_capture()")
	}
	g.emit(fmt.Sprintf("call void @rf_throw(i8* %s, i8* %s)", typePtr, msgPtr))
}

// captureAndThrowAbsent emits the capture + throw-absent pair used when an
// `absent` statement (or try-variant short circuit) fires.
func (g *Generator) captureAndThrowAbsent() {
	if g.stack.enabled {
		g.emit("call void @rf_stacktrace_capture()")
	}
	g.emit("call void @rf_throw_absent()")
}

// emitStackTraceTables publishes the file/routine/type name tables as the
// globals @file_table, @routine_table and @type_table, and registers a module
// initializer, @rf_stacktrace_init, via the module's global-constructor list.
// The initializer's body is empty: it does not store the tables or hand them
// to the runtime. No-op when disabled: no tables were ever
// populated, so there is nothing worth publishing.
func (g *Generator) emitStackTraceTables() {
	if !g.stack.enabled {
		return
	}

	emitTable := func(tableName string, tab *internTable) {
		names := tab.all()
		ptrs := make([]string, len(names))
		for i, n := range names {
			gName := fmt.Sprintf("@.st_%s_%d", tableName, i)
			g.emitGlobal(fmt.Sprintf("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"",
				gName, len(n)+1, escapeString(n)))
			ptrs[i] = fmt.Sprintf("i8* getelementptr inbounds ([%d x i8], [%d x i8]* %s, i32 0, i32 0)",
				len(n)+1, len(n)+1, gName)
		}
		if len(ptrs) == 0 {
			g.emitGlobal(fmt.Sprintf("@%s_table = global i8** null", tableName))
			return
		}
		g.emitGlobal(fmt.Sprintf("@%s_table_data = private global [%d x i8*] [%s]",
			tableName, len(ptrs), strings.Join(ptrs, ", ")))
		g.emitGlobal(fmt.Sprintf("@%s_table = global i8** getelementptr inbounds ([%d x i8*], [%d x i8*]* @%s_table_data, i32 0, i32 0)",
			tableName, len(ptrs), len(ptrs), tableName))
	}

	emitTable("file", g.stack.files)
	emitTable("routine", g.stack.routines)
	emitTable("type", g.stack.types)

	g.emit("define internal void @rf_stacktrace_init() {")
	g.emit("entry:")
	g.emit("  ret void")
	g.emit("}")
	g.emit("@llvm.global_ctors = appending global [1 x { i32, void ()*, i8* }] " +
		"[{ i32, void ()*, i8* } { i32 65535, void ()* @rf_stacktrace_init, i8* null }]")
}
