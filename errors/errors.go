package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig   Phase = "config"   // algorithm/device configuration
	PhaseLayout   Phase = "layout"   // descriptor layout computation
	PhaseEncode   Phase = "encode"   // descriptor to binary
	PhaseDecode   Phase = "decode"   // binary to descriptor
	PhaseGenerate Phase = "generate" // shim source generation
	PhaseLoad     Phase = "load"     // algorithm blob loading
	PhaseCall     Phase = "call"     // entry point invocation
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidConfig Kind = "invalid_config"
	KindInvalidData   Kind = "invalid_data"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindSymbolMissing Kind = "symbol_missing"
	KindNotFound      Kind = "not_found"
	KindUnsupported   Kind = "unsupported"
	KindTrap          Kind = "trap"
)

// Error is the structured error type used throughout the tooling layers
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Symbol string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" at ")
		b.WriteString(e.Symbol)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Symbol sets the entry point or data symbol the error concerns
func (b *Builder) Symbol(sym string) *Builder {
	b.err.Symbol = sym
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// SymbolMissing creates an error for a mandatory symbol the blob does not export
func SymbolMissing(symbol string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSymbolMissing,
		Symbol: symbol,
		Detail: "algorithm does not export this symbol",
	}
}

// InvalidConfig creates a configuration error
func InvalidConfig(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error for descriptor or memory access
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("offset 0x%X out of bounds (length %d)", offset, length),
		Value:  offset,
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what,
	}
}

// Unsupported creates an unsupported capability error
func Unsupported(symbol string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindUnsupported,
		Symbol: symbol,
		Detail: "capability not compiled into this algorithm",
	}
}

// Trap creates an error for a non-returning fault observed from the host side
func Trap(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindTrap,
		Symbol: symbol,
		Detail: "algorithm aborted",
		Cause:  cause,
	}
}

// Load wraps a loading failure with context
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
