package llvm

import (
	"testing"

	"github.com/dj-lumiere/razorforge-codegen/internal/target"
)

// newTestGenerator builds a Generator against a fixed x86_64/Linux target
// with stack traces disabled, the configuration every table-driven test in
// this package wants unless it specifically exercises stack-trace or
// cross-platform emission.
func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	desc, err := target.New(target.X86_64, target.Linux)
	if err != nil {
		t.Fatalf("target.New() error = %v", err)
	}
	return NewGenerator(Options{Target: desc})
}
