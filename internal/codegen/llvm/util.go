package llvm

import (
	"strings"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
	"github.com/dj-lumiere/razorforge-codegen/internal/diag"
)

// locSpan converts an AST node's Location to the diag.Span the error
// constructors take; diag has no dependency on ast, so every call site that
// wants to anchor a diagnostic to a node's source location goes through
// this.
func locSpan(loc ast.Location) diag.Span {
	return diag.Span{File: loc.File, Line: loc.Line, Column: loc.Column}
}

// sanitizeName maps an arbitrary source-language identifier to one legal in
// LLVM IR: alphanumerics, '_', and '.' pass through; everything else becomes
// '_'. A leading digit is prefixed with '_' since LLVM identifiers may not
// start with one.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}

// escapeString produces the \xx-escaped byte sequence LLVM IR string
// constants use for bytes outside printable ASCII, backslash, and the
// double quote.
func escapeString(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if c == '"' || c == '\\' || c < 0x20 || c >= 0x7f {
			b.WriteString(escapeByte(c))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

func escapeByte(b byte) string {
	return "\\" + string(hexDigits[b>>4]) + string(hexDigits[b&0xf])
}

// splitTypeArgs splits the contents of a `Base<...>` generic argument list
// at depth-0 commas, tracking nested '<'/'>' so `Map<s32, Vec<s32>>` yields
// ["s32", "Vec<s32>"] rather than splitting inside the nested generic.
// Leading/trailing whitespace is stripped from each argument.
func splitTypeArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if start <= len(s) {
		tail := strings.TrimSpace(s[start:])
		if tail != "" || len(args) > 0 {
			args = append(args, tail)
		}
	}
	return args
}

// parseGeneric splits "Base<Arg1,Arg2>" into ("Base", ["Arg1","Arg2"]). ok is
// false when name has no top-level generic argument list.
func parseGeneric(name string) (base string, args []string, ok bool) {
	lt := strings.IndexByte(name, '<')
	if lt < 0 || !strings.HasSuffix(name, ">") {
		return name, nil, false
	}
	base = strings.TrimSpace(name[:lt])
	inner := name[lt+1 : len(name)-1]
	return base, splitTypeArgs(inner), true
}
