package llvm

import (
	"fmt"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
)

// concreteArgsFromSubs rebuilds the ordered concrete-argument list a
// substitution map was built from, using the template's own type-parameter
// order as the key order (substitutionMap always keys subs by exactly this
// list, so the round trip is total).
func concreteArgsFromSubs(typeParams []string, subs map[string]string) []string {
	args := make([]string, len(typeParams))
	for i, p := range typeParams {
		args[i] = subs[p]
	}
	return args
}

// mangledTypeName returns the struct name a record/entity/menu declaration
// emits under: its bare name when non-generic, or its mangled
// name_arg1_arg2 form when subs carries an instantiation's concrete
// arguments.
func mangledTypeName(name string, typeParams []string, subs map[string]string) string {
	if len(typeParams) == 0 {
		return name
	}
	return mangleGeneric(name, concreteArgsFromSubs(typeParams, subs))
}

// genRecordType lowers a value-typed aggregate declaration to an LLVM struct
// type. subs is nil for a non-generic record and the instantiation's
// substitution map for a monomorphized one.
func (g *Generator) genRecordType(d *ast.RecordDecl, subs map[string]string) {
	sanitized := sanitizeName(mangledTypeName(d.Name, d.TypeParams, subs))
	if g.structTypes[sanitized] {
		return
	}

	fieldTypes := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		mapped, err := g.MapWithSubstitution(f.Type, subs)
		if err != nil {
			g.recordErr(err)
			return
		}
		fieldTypes[i] = mapped
	}

	g.emitGlobal(fmt.Sprintf("%%struct.%s = type { %s }", sanitized, strings.Join(fieldTypes, ", ")))
	g.structTypes[sanitized] = true
	g.structFields[sanitized] = d.Fields
}

// genEntityType lowers a heap-allocated, reference-typed aggregate
// declaration. Its struct layout is identical to a record's. entityTypes
// marks it as an entity, which singleFieldWrapperField reads to keep
// entities off the by-value calling path; this package has no
// constructor-call lowering, so nothing here allocates an entity on the
// heap.
func (g *Generator) genEntityType(d *ast.EntityDecl, subs map[string]string) {
	sanitized := sanitizeName(mangledTypeName(d.Name, d.TypeParams, subs))
	if g.structTypes[sanitized] {
		return
	}

	fieldTypes := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		mapped, err := g.MapWithSubstitution(f.Type, subs)
		if err != nil {
			g.recordErr(err)
			return
		}
		fieldTypes[i] = mapped
	}

	g.emitGlobal(fmt.Sprintf("%%struct.%s = type { %s }", sanitized, strings.Join(fieldTypes, ", ")))
	g.structTypes[sanitized] = true
	g.structFields[sanitized] = d.Fields
	g.entityTypes[sanitized] = true
}

// genMenuType lowers a tagged-union declaration to a { i32, i8* } carrier
// struct (integer tag plus an opaque pointer to the active variant's
// payload), with one additional struct type per non-unit variant holding
// its fields. The tag assigned to each variant is its declaration index.
func (g *Generator) genMenuType(d *ast.MenuDecl, subs map[string]string) {
	sanitized := sanitizeName(mangledTypeName(d.Name, d.TypeParams, subs))
	if g.structTypes[sanitized] {
		return
	}
	g.emitGlobal(fmt.Sprintf("%%struct.%s = type { i32, i8* }", sanitized))
	g.structTypes[sanitized] = true

	for i, v := range d.Variants {
		g.menuVariantTags[sanitized+"."+v.Name] = i
		if len(v.Fields) == 0 {
			continue
		}
		variantName := sanitized + "_" + sanitizeName(v.Name)
		fieldTypes := make([]string, len(v.Fields))
		for j, f := range v.Fields {
			mapped, err := g.MapWithSubstitution(f.Type, subs)
			if err != nil {
				g.recordErr(err)
				return
			}
			fieldTypes[j] = mapped
		}
		g.emitGlobal(fmt.Sprintf("%%struct.%s = type { %s }", variantName, strings.Join(fieldTypes, ", ")))
		g.structTypes[variantName] = true
		g.structFields[variantName] = v.Fields
	}
}

// genGlobalVariable lowers a module-level variable declaration to an LLVM
// global, constant when the source declared it immutable. Supported
// initializers are literals (including the interned-string case for text);
// anything else zero-initializes and leaves the actual assignment to
// whatever runtime entry point the module defines (none is synthesized
// here, matching routines having no implicit module-init hook beyond the
// stack-trace table constructor).
func (g *Generator) genGlobalVariable(d *ast.VariableDecl) {
	var llvmType string
	var err error
	if d.Type != "" {
		llvmType, err = g.MapType(d.Type)
	} else {
		llvmType, err = g.MapType(inferLiteralType(d.Init))
	}
	if err != nil {
		g.recordErr(err)
		return
	}

	initVal := "zeroinitializer"
	if lit, ok := d.Init.(*ast.LiteralExpr); ok {
		initVal = g.literalConstant(lit, llvmType)
	}

	qualifier := "global"
	if !d.IsMutable {
		qualifier = "constant"
	}

	for _, name := range d.Names {
		llvmName := "@" + sanitizeName(name)
		g.emitGlobal(fmt.Sprintf("%s = %s %s %s", llvmName, qualifier, llvmType, initVal))
		g.globalVars[name] = llvmType
	}
}

// inferLiteralType picks a default source type name for an untyped global
// declaration from its initializer's literal kind. Falls back to "s32" when
// there is no initializer to infer from (the type checker guarantees this
// case does not reach the generator in practice).
func inferLiteralType(init ast.Expr) string {
	lit, ok := init.(*ast.LiteralExpr)
	if !ok {
		return "s32"
	}
	switch lit.Kind {
	case ast.FloatLiteral:
		return "f64"
	case ast.BoolLiteral:
		return "bool"
	case ast.TextLiteral:
		return "text"
	default:
		return "s32"
	}
}

// literalConstant renders a literal expression as an LLVM constant operand
// of the given LLVM type.
func (g *Generator) literalConstant(lit *ast.LiteralExpr, llvmType string) string {
	switch lit.Kind {
	case ast.IntegerLiteral:
		return fmt.Sprintf("%d", lit.Value.(int64))
	case ast.FloatLiteral:
		return fmt.Sprintf("%g", lit.Value.(float64))
	case ast.BoolLiteral:
		if lit.Value.(bool) {
			return "1"
		}
		return "0"
	case ast.TextLiteral:
		return g.internString(lit.Value.(string))
	case ast.NoneLiteral:
		if llvmType == "i1" {
			return "0"
		}
		return "null"
	default:
		return "zeroinitializer"
	}
}
