package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which pipeline stage produced the error
type Phase string

const (
	PhaseRead        Phase = "read"        // loading module bytes
	PhasePreflight   Phase = "preflight"   // header check
	PhaseCompile     Phase = "compile"     // engine compilation
	PhaseIntrospect  Phase = "introspect"  // import/export extraction
	PhaseInstantiate Phase = "instantiate" // host environment and instantiation
	PhaseInvoke      Phase = "invoke"      // calling an exported function
)

// Kind categorizes the error
type Kind string

const (
	KindIO              Kind = "io"
	KindMalformedBinary Kind = "malformed_binary"
	KindCompilation     Kind = "compilation"
	KindInstantiation   Kind = "instantiation"
	KindUnsupported     Kind = "unsupported"
	KindInvalidData     Kind = "invalid_data"
	KindTrap            Kind = "trap"
	KindNotInvocable    Kind = "not_invocable"
	KindExit            Kind = "exit"
	KindTimeout         Kind = "timeout"
)

// Error is the structured error type used throughout wasmcheck
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
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

// Reason returns the operator-facing message without the phase/kind prefix.
func (e *Error) Reason() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return e.Detail + ": " + e.Cause.Error()
	case e.Detail != "":
		return e.Detail
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return string(e.Kind)
	}
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

// Path sets the location path, e.g. module and import name
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
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

// Convenience constructors, one per failure class

// IO creates a storage error raised before any parsing
func IO(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindIO,
		Detail: fmt.Sprintf("read %s", path),
		Cause:  cause,
	}
}

// MalformedBinary creates a preflight rejection
func MalformedBinary(reason string) *Error {
	return &Error{
		Phase:  PhasePreflight,
		Kind:   KindMalformedBinary,
		Detail: reason,
	}
}

// Compilation wraps an engine compile failure verbatim
func Compilation(cause error) *Error {
	return &Error{
		Phase: PhaseCompile,
		Kind:  KindCompilation,
		Cause: cause,
	}
}

// InvalidData creates a decoding error for the given section path
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an error for an import shape the host cannot synthesize
func Unsupported(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		Detail: what,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInstantiate,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Trap creates an invocation error for a runtime fault inside an export
func Trap(export string, cause error) *Error {
	return &Error{
		Phase: PhaseInvoke,
		Kind:  KindTrap,
		Path:  []string{export},
		Cause: cause,
	}
}

// NotInvocable creates an invocation error for an export that cannot be called
func NotInvocable(export, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNotInvocable,
		Path:   []string{export},
		Detail: detail,
		Cause:  cause,
	}
}

// Exit creates an invocation error for a guest that exited with a non-zero code
func Exit(export string, code uint32) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindExit,
		Path:   []string{export},
		Detail: fmt.Sprintf("exit code %d", code),
		Value:  code,
	}
}

// Timeout creates an invocation error for an export that outlived its deadline
func Timeout(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindTimeout,
		Path:   []string{export},
		Detail: "deadline exceeded",
		Cause:  cause,
	}
}

// UnsatisfiedImport represents a single import the host could not supply
type UnsatisfiedImport struct {
	Module string // e.g., "env"
	Name   string // e.g., "__indirect_function_table"
	Kind   string // e.g., "table"
	Reason string
}

// UnsatisfiedImportsError is returned when the host environment cannot be
// synthesized for one or more imports
type UnsatisfiedImportsError struct {
	Imports []UnsatisfiedImport
}

func (e *UnsatisfiedImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[instantiate] unsupported: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("cannot satisfy %d import(s):\n", len(e.Imports)))

	// Group by module for cleaner output
	byModule := make(map[string][]UnsatisfiedImport)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, imp := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(imp.Name)
			b.WriteString(" (")
			b.WriteString(imp.Kind)
			b.WriteString(")")
			if imp.Reason != "" {
				b.WriteString(": ")
				b.WriteString(imp.Reason)
			}
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *UnsatisfiedImportsError) Is(target error) bool {
	_, ok := target.(*UnsatisfiedImportsError)
	return ok
}
