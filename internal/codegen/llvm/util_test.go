package llvm

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "counter", "counter"},
		{"dotted method", "Account.withdraw", "Account.withdraw"},
		{"angle brackets", "Vec<s32>", "Vec_s32_"},
		{"leading digit", "8ball", "_8ball"},
		{"empty", "", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeName(tt.in); got != tt.want {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapeString(t *testing.T) {
	if got, want := escapeString("hi\n\"x\\y\""), `hi\0A\22x\5Cy\22`; got != want {
		t.Errorf("escapeString() = %q, want %q", got, want)
	}
}

func TestSplitTypeArgs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "s32", []string{"s32"}},
		{"two", "s32, s64", []string{"s32", "s64"}},
		{"nested generic not split", "s32, Vec<s32>", []string{"s32", "Vec<s32>"}},
		{"deeply nested", "Map<K, Vec<V>>", []string{"Map<K, Vec<V>>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTypeArgs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitTypeArgs(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitTypeArgs(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseGeneric(t *testing.T) {
	base, args, ok := parseGeneric("Vec<s32>")
	if !ok || base != "Vec" || len(args) != 1 || args[0] != "s32" {
		t.Fatalf("parseGeneric(Vec<s32>) = %q, %v, %v", base, args, ok)
	}
	if _, _, ok := parseGeneric("s32"); ok {
		t.Fatalf("parseGeneric(s32) should report ok=false")
	}
	base, args, ok = parseGeneric("Map<K, Vec<V>>")
	if !ok || base != "Map" || len(args) != 2 || args[1] != "Vec<V>" {
		t.Fatalf("parseGeneric(Map<K, Vec<V>>) = %q, %v, %v", base, args, ok)
	}
}
