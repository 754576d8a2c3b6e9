package llvm

import (
	"fmt"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
)

// genScopedAccessStmt lowers the four scoped-access forms. viewing and
// hijacking are pure compile-time aliasing: Handle is bound to Source's
// existing stack slot (so a hijacking write is visible through the
// original name too) with no runtime call at all. observing and seizing
// additionally acquire a runtime lock around Body, released once Body
// completes. An early exit out of Body (return/break/throw) does not run
// the release call; this generator does not implement an unwind path for
// scoped locks.
func (g *Generator) genScopedAccessStmt(s *ast.ScopedAccessStmt) {
	reg, typ, err := g.genExpr(s.Source)
	if err != nil {
		g.recordErr(err)
		return
	}

	switch s.Kind {
	case ast.Viewing, ast.Hijacking:
		g.bindAliasHandle(s.Handle, s.Source, reg, typ)
		g.genBlock(s.Body)

	case ast.Observing, ast.Seizing:
		lockFn, unlockFn := "rwlock_read_lock", "rwlock_read_unlock"
		if s.Kind == ast.Seizing {
			lockFn, unlockFn = "mutex_lock", "mutex_unlock"
		}
		g.declareExtern(lockFn, "void", []string{"i8*"})
		g.declareExtern(unlockFn, "void", []string{"i8*"})

		llvmType, err := g.MapType(typ)
		if err != nil {
			g.recordErr(err)
			return
		}
		i8ptr := reg
		if llvmType != "i8*" {
			castReg := g.nextReg()
			g.emit(fmt.Sprintf("%s = bitcast %s %s to i8*", castReg, llvmType, reg))
			i8ptr = castReg
		}

		g.emit(fmt.Sprintf("call void @%s(i8* %s)", lockFn, i8ptr))
		g.bindAliasHandle(s.Handle, s.Source, reg, typ)
		g.genBlock(s.Body)
		g.emit(fmt.Sprintf("call void @%s(i8* %s)", unlockFn, i8ptr))
	}
}

// bindAliasHandle binds name to the same stack slot as an identifier
// source, or materializes a fresh one holding reg's value for any other
// source expression.
func (g *Generator) bindAliasHandle(name string, source ast.Expr, reg, typ string) {
	if id, ok := source.(*ast.IdentifierExpr); ok {
		if slot, vtyp, ok := g.lookupLocal(id.Name); ok {
			g.declareLocal(name, slot, vtyp)
			return
		}
	}
	llvmType, err := g.MapType(typ)
	if err != nil {
		g.recordErr(err)
		return
	}
	addr := "%" + sanitizeName(name) + ".alias.addr"
	g.emit(fmt.Sprintf("%s = alloca %s", addr, llvmType))
	g.emit(fmt.Sprintf("store %s %s, %s* %s", llvmType, reg, llvmType, addr))
	g.declareLocal(name, addr, typ)
}
