package llvm

import (
	"regexp"
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// TypeInfo is the type mapper's resolved-type record: everything later
// lowering steps need to know about a temporary without re-deriving it from
// the LLVM type string alone.
type TypeInfo struct {
	LLVMType   string
	Unsigned   bool
	Float      bool
	SourceType string
}

// fixedWidthInts maps the fixed-width signed/unsigned families to their
// (identical) LLVM integer type name; signedness is tracked out-of-band via
// TypeInfo.Unsigned / IsUnsignedTypeName, not by the LLVM type itself.
var fixedWidthInts = map[string]string{
	"s8": "i8", "s16": "i16", "s32": "i32", "s64": "i64", "s128": "i128",
	"u8": "i8", "u16": "i16", "u32": "i32", "u64": "i64", "u128": "i128",
}

var floatTypes = map[string]string{
	"f16": "half", "f32": "float", "f64": "double", "f128": "fp128",
}

var letterTypes = map[string]string{
	"letter": "i32", "letter8": "i8", "letter16": "i16", "letter32": "i32",
}

// ffiAliases maps C FFI type names not resolved through the target
// platform descriptor (those go through the switch in MapType directly).
var ffiAliases = map[string]string{
	"c_char":     "i8",
	"c_short":    "i16",
	"c_int":      "i32",
	"c_longlong": "i64",
	"c_float":    "float",
	"c_double":   "double",
	"c_void_ptr": "i8*",
}

// IsUnsignedTypeName reports whether a source type name denotes an unsigned
// family, derived purely from its spelling: true iff name starts with "u".
func IsUnsignedTypeName(name string) bool {
	return strings.HasPrefix(name, "u")
}

// IsFloatTypeName reports whether a source type name denotes an IEEE float
// family.
func IsFloatTypeName(name string) bool {
	_, ok := floatTypes[name]
	return ok
}

// singleFieldWrapperField reports the LLVM type of the sole field of a plain
// (non-generic) named record with exactly one field — the only named-type
// shape this generator's calling convention passes by value rather than by
// pointer. Entities are heap references and a multi-field record needs its
// address to be meaningful to a callee, so neither ever takes this path.
func (g *Generator) singleFieldWrapperField(sourceType string) (fieldType, structName string, ok bool) {
	if _, _, isGeneric := parseGeneric(sourceType); isGeneric {
		return "", "", false
	}
	structName = sanitizeName(sourceType)
	if g.entityTypes[structName] {
		return "", "", false
	}
	fields, exists := g.structFields[structName]
	if !exists || len(fields) != 1 {
		return "", "", false
	}
	fieldLLVM, err := g.MapType(fields[0].Type)
	if err != nil {
		return "", "", false
	}
	return fieldLLVM, structName, true
}

// MapType is the Type Mapper's unsubstituted entry point: map(source_type).
func (g *Generator) MapType(sourceType string) (string, error) {
	return g.mapType(sourceType, nil)
}

// MapWithSubstitution implements map_with_substitution(name, subs): a
// whole-name hit in subs short-circuits; otherwise, if name carries a
// generic argument list, each parameter named in subs is replaced inside
// that argument list (word-boundary match) before mapping.
func (g *Generator) MapWithSubstitution(name string, subs map[string]string) (string, error) {
	if subs != nil {
		if repl, ok := subs[name]; ok {
			return g.MapType(repl)
		}
	}
	lt := strings.IndexByte(name, '<')
	if lt < 0 || !strings.HasSuffix(name, ">") || len(subs) == 0 {
		return g.MapType(name)
	}
	base := name[:lt]
	inner := name[lt+1 : len(name)-1]
	return g.MapType(base + "<" + substituteWords(inner, subs) + ">")
}

// substituteWords replaces each whole-word occurrence of a substitution key
// in s with its value, using a word-boundary regex so "T" does not match
// inside "Text".
func substituteWords(s string, subs map[string]string) string {
	for param, concrete := range subs {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(param) + `\b`)
		s = re.ReplaceAllString(s, concrete)
	}
	return s
}

// mapType is the Type Mapper's core, recursively resolving generics via subs
// when provided.
func (g *Generator) mapType(sourceType string, subs map[string]string) (string, error) {
	name := strings.TrimSpace(sourceType)
	if name == "" {
		return "", diag.TypeResolutionFailure(diag.Span{}, "MapType", sourceType)
	}

	if subs != nil {
		if repl, ok := subs[name]; ok && repl != name {
			return g.mapType(repl, subs)
		}
	}

	if llvmType, ok := fixedWidthInts[name]; ok {
		return llvmType, nil
	}
	if llvmType, ok := floatTypes[name]; ok {
		return llvmType, nil
	}
	if llvmType, ok := letterTypes[name]; ok {
		return llvmType, nil
	}
	if llvmType, ok := ffiAliases[name]; ok {
		return llvmType, nil
	}

	switch name {
	case "bool":
		return "i1", nil
	case "text":
		return "i8*", nil
	case "saddr", "iptr", "uaddr", "uptr":
		return g.target.PointerType(), nil
	case "c_long":
		return g.target.LongType(), nil
	case "c_size_t":
		return g.target.PointerType(), nil
	case "c_wchar_t":
		return g.target.WCharType(), nil
	case "void":
		return "void", nil
	}

	base, args, ok := parseGeneric(name)
	if !ok {
		// Plain named type: a non-generic record, entity, or menu. Its
		// struct definition is emitted elsewhere in the module driver;
		// here we only need the pointer-to-named-struct spelling. The
		// calling-convention question of whether a value of this type
		// passes by value or by pointer at a routine boundary is decided
		// separately, by singleFieldWrapperField, once the callee's
		// parameter list is in view (see function.go/expr.go) — this
		// pointer spelling remains every such type's internal local and
		// field-access representation regardless.
		return "%struct." + sanitizeName(name) + "*", nil
	}

	if base == "RawPointer" {
		if len(args) != 1 {
			return "", diag.InvalidArgumentCount(diag.Span{}, "RawPointer", 1, len(args))
		}
		elem, err := g.mapType(args[0], subs)
		if err != nil {
			return "", err
		}
		if strings.HasSuffix(elem, "*") {
			return "i8*", nil
		}
		return elem + "*", nil
	}

	// Every other generic name is a record/entity instantiation request.
	// Concrete arguments are the caller's type-parameter names resolved
	// through subs, not yet mapped to LLVM types: instantiateGenericType
	// maps each field/parameter type itself once it builds the template's
	// substitution map.
	concreteArgs := make([]string, len(args))
	for i, a := range args {
		concreteArgs[i] = substituteWords(a, subs)
	}
	mangled, err := g.generics.instantiateGenericType(base, concreteArgs)
	if err != nil {
		return "", err
	}
	return "%struct." + mangled + "*", nil
}
