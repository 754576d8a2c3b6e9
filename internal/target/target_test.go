package target

import "testing"

func TestNewSupportedPair(t *testing.T) {
	d, err := New(X86_64, Linux)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.Triple() != "x86_64-unknown-linux-gnu" {
		t.Errorf("Triple() = %q", d.Triple())
	}
	if d.PointerType() != "i64" {
		t.Errorf("PointerType() = %q, want i64", d.PointerType())
	}
	if d.LongType() != "i64" {
		t.Errorf("LongType() = %q, want i64", d.LongType())
	}
}

func TestNewUnsupportedPair(t *testing.T) {
	if _, err := New(ARM, Windows); err == nil {
		t.Fatal("expected UnsupportedPlatform error for ARM/Windows")
	}
}

func TestFromTriple(t *testing.T) {
	tests := []struct {
		triple   string
		wantArch Architecture
		wantOS   OS
	}{
		{"x86_64-pc-windows-msvc", X86_64, Windows},
		{"aarch64-unknown-linux-gnu", ARM64, Linux},
		{"wasm32-unknown-wasi", WASM32, WASI},
	}
	for _, tt := range tests {
		d, err := FromTriple(tt.triple)
		if err != nil {
			t.Fatalf("FromTriple(%q) error = %v", tt.triple, err)
		}
		if d.Arch != tt.wantArch || d.Os != tt.wantOS {
			t.Errorf("FromTriple(%q) = (%v, %v), want (%v, %v)", tt.triple, d.Arch, d.Os, tt.wantArch, tt.wantOS)
		}
	}
}

func TestFromTripleUnknown(t *testing.T) {
	if _, err := FromTriple("sparc-sun-solaris"); err == nil {
		t.Fatal("expected error for unrecognized triple")
	}
}

func TestWindowsNarrowerWidths(t *testing.T) {
	d, err := New(X86_64, Windows)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if d.WCharType() != "i16" {
		t.Errorf("WCharType() = %q, want i16 on Windows", d.WCharType())
	}
	if d.LongType() != "i32" {
		t.Errorf("LongType() = %q, want i32 on Windows", d.LongType())
	}
}
