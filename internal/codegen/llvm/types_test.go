package llvm

import (
	"testing"

	"github.com/dj-lumiere/razorforge-codegen/internal/ast"
)

func TestMapType_Primitives(t *testing.T) {
	g := newTestGenerator(t)

	tests := []struct {
		name string
		want string
	}{
		{"s8", "i8"}, {"s32", "i32"}, {"s64", "i64"}, {"s128", "i128"},
		{"u8", "i8"}, {"u32", "i32"},
		{"f16", "half"}, {"f32", "float"}, {"f64", "double"}, {"f128", "fp128"},
		{"bool", "i1"}, {"text", "i8*"}, {"void", "void"},
		{"letter", "i32"}, {"letter8", "i8"},
		{"c_char", "i8"}, {"c_int", "i32"}, {"c_double", "double"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.MapType(tt.name)
			if err != nil {
				t.Fatalf("MapType(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("MapType(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestMapType_TargetDependentWidths(t *testing.T) {
	g := newTestGenerator(t)
	for _, name := range []string{"saddr", "iptr", "uaddr", "uptr"} {
		got, err := g.MapType(name)
		if err != nil {
			t.Fatalf("MapType(%q) error = %v", name, err)
		}
		if got != "i64" {
			t.Errorf("MapType(%q) on x86_64/linux = %q, want i64", name, got)
		}
	}
}

func TestMapType_RawPointer(t *testing.T) {
	g := newTestGenerator(t)
	got, err := g.MapType("RawPointer<s32>")
	if err != nil {
		t.Fatalf("MapType error = %v", err)
	}
	if got != "i32*" {
		t.Errorf("MapType(RawPointer<s32>) = %q, want i32*", got)
	}
}

func TestMapType_PlainNamedType(t *testing.T) {
	g := newTestGenerator(t)
	got, err := g.MapType("Account")
	if err != nil {
		t.Fatalf("MapType error = %v", err)
	}
	if got != "%struct.Account*" {
		t.Errorf("MapType(Account) = %q, want %%struct.Account*", got)
	}
}

func TestMapType_Empty(t *testing.T) {
	g := newTestGenerator(t)
	if _, err := g.MapType(""); err == nil {
		t.Fatal("MapType(\"\") should fail")
	}
}

func TestMapWithSubstitution(t *testing.T) {
	g := newTestGenerator(t)
	g.generics.registerRecordTemplate(&ast.RecordDecl{
		Name:       "Vec",
		TypeParams: []string{"T"},
		Fields:     []*ast.Field{{Name: "item", Type: "T"}},
	})
	subs := map[string]string{"T": "s32"}

	got, err := g.MapWithSubstitution("T", subs)
	if err != nil {
		t.Fatalf("MapWithSubstitution error = %v", err)
	}
	if got != "i32" {
		t.Errorf("MapWithSubstitution(T) = %q, want i32", got)
	}

	got, err = g.MapWithSubstitution("Vec<T>", subs)
	if err != nil {
		t.Fatalf("MapWithSubstitution error = %v", err)
	}
	if got != "%struct.Vec_s32*" {
		t.Errorf("MapWithSubstitution(Vec<T>) = %q, want %%struct.Vec_s32*", got)
	}
}

func TestIsUnsignedTypeName(t *testing.T) {
	if !IsUnsignedTypeName("u32") {
		t.Error("u32 should be unsigned")
	}
	if IsUnsignedTypeName("s32") {
		t.Error("s32 should not be unsigned")
	}
}

func TestIsFloatTypeName(t *testing.T) {
	if !IsFloatTypeName("f64") {
		t.Error("f64 should be a float type")
	}
	if IsFloatTypeName("s64") {
		t.Error("s64 should not be a float type")
	}
}
