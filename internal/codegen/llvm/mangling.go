package llvm

import "strings"

// builtinTypeNames are the type families the mangler treats as "built-in":
// a throwable/try routine returning one of these gets the plain suffix form,
// everything else gets the "_create_" long form (the parser can't otherwise
// tell a bare name apart from a zero-arg constructor call).
var builtinTypeNames = map[string]bool{
	"s8": true, "s16": true, "s32": true, "s64": true, "s128": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true,
	"f16": true, "f32": true, "f64": true, "f128": true,
	"bool": true, "text": true, "void": true,
	"letter": true, "letter8": true, "letter16": true, "letter32": true,
}

// mangleThrowable appends the throwable-routine suffix/prefix pair for a
// routine whose name is "name" and whose declared return type is returnType.
func mangleThrowable(name, returnType string) string {
	if builtinTypeNames[returnType] {
		return name + "_throwable"
	}
	return "___create___throwable_" + name
}

// mangleTry appends the try-routine suffix/prefix pair, mirroring
// mangleThrowable's built-in/non-built-in split.
func mangleTry(name, returnType string) string {
	if builtinTypeNames[returnType] {
		return name + "_try"
	}
	return "try_" + name + "___create__"
}

// mangleGeneric builds the monomorphized symbol name for a generic template
// called "name" instantiated with concreteArgs, e.g.
// mangleGeneric("Vec", []string{"s32"}) == "Vec_s32".
func mangleGeneric(name string, concreteArgs []string) string {
	var b strings.Builder
	b.WriteString(sanitizeName(name))
	for _, a := range concreteArgs {
		b.WriteByte('_')
		b.WriteString(mangleTypeArg(a))
	}
	return b.String()
}

// mangleTypeArg flattens a single (possibly itself generic) type argument
// into a mangled-name-safe fragment: "<", ">", "," become "_", whitespace is
// dropped.
func mangleTypeArg(arg string) string {
	var b strings.Builder
	for _, r := range arg {
		switch r {
		case '<', '>', ',':
			b.WriteByte('_')
		case ' ':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return sanitizeName(b.String())
}

// mangleRoutineSymbol computes the LLVM symbol for a routine or method name,
// applying the throwable/try suffix mangling (a name ending in "!" or "?")
// ahead of ordinary sanitization. Both a declared routine's own symbol
// (function.go's symbolName) and a call site resolving a symbol it has no
// declaration in scope for (expr.go's genCall fallback) go through this, so
// a `parse!` declaration and a `parse!(...)` call agree on the same name.
func mangleRoutineSymbol(name, returnType string) string {
	receiver, method, isMethod := receiverAndMethod(name)
	mangledMethod := mangleSuffixedName(method, returnType)
	if !isMethod {
		return mangledMethod
	}
	return sanitizeName(receiver) + "_" + mangledMethod
}

// mangleSuffixedName applies mangleThrowable/mangleTry to a bare routine or
// method name ending in "!"/"?", or just sanitizes it otherwise.
func mangleSuffixedName(name, returnType string) string {
	switch {
	case strings.HasSuffix(name, "!"):
		return mangleThrowable(sanitizeName(strings.TrimSuffix(name, "!")), returnType)
	case strings.HasSuffix(name, "?"):
		return mangleTry(sanitizeName(strings.TrimSuffix(name, "?")), returnType)
	default:
		return sanitizeName(name)
	}
}

// receiverAndMethod splits a routine declaration name of the form
// "Receiver.method" or "Receiver<T>.method" into its receiver type name and
// bare method name. ok is false for a plain (non-method) routine name.
func receiverAndMethod(name string) (receiver, method string, ok bool) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return "", name, false
	}
	// A '.' inside a generic argument list (e.g. "Map<K,V>.get") is not a
	// receiver separator; only split on a '.' at bracket depth 0.
	depth := 0
	splitAt := -1
	for i, r := range name {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case '.':
			if depth == 0 {
				splitAt = i
			}
		}
	}
	if splitAt < 0 {
		return "", name, false
	}
	return name[:splitAt], name[splitAt+1:], true
}
