// Package diag implements the generator's error taxonomy: every generator error
// carries a Kind, a user-facing Message, and an optional source Span. Each
// constructor also wraps the message with github.com/pkg/errors so a stack
// trace is available to callers that want one, without the generator having
// to walk call frames itself.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the five error categories the generator distinguishes.
type Kind string

const (
	// KindUnsupportedPlatform: unknown triple, or unsupported architecture/OS pair.
	KindUnsupportedPlatform Kind = "UnsupportedPlatform"
	// KindTypeResolutionFailure: a parameter/field/return type is missing where required.
	KindTypeResolutionFailure Kind = "TypeResolutionFailure"
	// KindUnsupportedOperation: an operator or intrinsic requested on an unsupported type family.
	KindUnsupportedOperation Kind = "UnsupportedOperation"
	// KindNotImplemented: an AST variant or intrinsic has no emitter.
	KindNotImplemented Kind = "NotImplemented"
	// KindInvalidArgumentCount: a built-in was invoked with the wrong arity.
	KindInvalidArgumentCount Kind = "InvalidArgumentCount"
)

// Span anchors a Diagnostic to the source location it was raised from. Zero
// value means "no anchor available".
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" && s.Line == 0 && s.Column == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Diagnostic is a single user-visible error or warning produced while
// lowering a module. It implements error.
type Diagnostic struct {
	Kind    Kind
	Message string
	Span    Span
	// Context carries extra identifying detail (e.g. the routine a
	// TypeResolutionFailure occurred in) without leaking internal
	// temporary names into the user-visible message.
	Context string
}

func (d *Diagnostic) Error() string {
	if loc := d.Span.String(); loc != "" {
		if d.Context != "" {
			return fmt.Sprintf("%s: %s (%s): %s", d.Kind, loc, d.Context, d.Message)
		}
		return fmt.Sprintf("%s: %s: %s", d.Kind, loc, d.Message)
	}
	if d.Context != "" {
		return fmt.Sprintf("%s (%s): %s", d.Kind, d.Context, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// newDiag builds a Diagnostic and immediately wraps it with a stack trace
// via pkg/errors so upstream callers can unwrap to the Diagnostic itself
// with errors.As while still getting `%+v` stack formatting for free.
func newDiag(kind Kind, span Span, context, format string, args ...interface{}) error {
	d := &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		Context: context,
	}
	return errors.WithStack(d)
}

// UnsupportedPlatform reports an unknown or unsupported architecture/OS
// combination or triple.
func UnsupportedPlatform(format string, args ...interface{}) error {
	return newDiag(KindUnsupportedPlatform, Span{}, "", format, args...)
}

// TypeResolutionFailure reports a missing parameter/field/return type.
func TypeResolutionFailure(span Span, context, name string) error {
	return newDiag(KindTypeResolutionFailure, span, context, "type for %q could not be resolved", name)
}

// UnsupportedOperation reports an operator or intrinsic unsupported for a
// given type family.
func UnsupportedOperation(span Span, context, op, typ string) error {
	return newDiag(KindUnsupportedOperation, span, context, "operation %q is not supported for type %q", op, typ)
}

// NotImplemented reports an AST variant or intrinsic with no emitter.
func NotImplemented(span Span, context, what string) error {
	return newDiag(KindNotImplemented, span, context, "%s is not implemented", what)
}

// InvalidArgumentCount reports a built-in invoked with the wrong arity.
func InvalidArgumentCount(span Span, context string, want, got int) error {
	return newDiag(KindInvalidArgumentCount, span, context, "expected %d argument(s), got %d", want, got)
}

// AsDiagnostic unwraps err to its *Diagnostic, if any, looking through any
// pkg/errors wrapping.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
