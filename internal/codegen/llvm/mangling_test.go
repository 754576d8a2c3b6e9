package llvm

import "testing"

func TestMangleGeneric(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Vec", []string{"s32"}, "Vec_s32"},
		{"Map", []string{"s32", "text"}, "Map_s32_text"},
		{"Vec", []string{"Vec<s32>"}, "Vec_Vec_s32_"},
	}
	for _, tt := range tests {
		if got := mangleGeneric(tt.name, tt.args); got != tt.want {
			t.Errorf("mangleGeneric(%q, %v) = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestMangleThrowableAndTry(t *testing.T) {
	if got, want := mangleThrowable("parse", "s32"), "parse_throwable"; got != want {
		t.Errorf("mangleThrowable(builtin) = %q, want %q", got, want)
	}
	if got, want := mangleThrowable("parse", "Account"), "___create___throwable_parse"; got != want {
		t.Errorf("mangleThrowable(non-builtin) = %q, want %q", got, want)
	}
	if got, want := mangleTry("parse", "f64"), "parse_try"; got != want {
		t.Errorf("mangleTry(builtin) = %q, want %q", got, want)
	}
	if got, want := mangleTry("parse", "Account"), "try_parse___create__"; got != want {
		t.Errorf("mangleTry(non-builtin) = %q, want %q", got, want)
	}
}

func TestReceiverAndMethod(t *testing.T) {
	tests := []struct {
		name         string
		wantReceiver string
		wantMethod   string
		wantOK       bool
	}{
		{"Account.withdraw", "Account", "withdraw", true},
		{"Map<K,V>.get", "Map<K,V>", "get", true},
		{"start", "", "start", false},
	}
	for _, tt := range tests {
		recv, method, ok := receiverAndMethod(tt.name)
		if recv != tt.wantReceiver || method != tt.wantMethod || ok != tt.wantOK {
			t.Errorf("receiverAndMethod(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.name, recv, method, ok, tt.wantReceiver, tt.wantMethod, tt.wantOK)
		}
	}
}
