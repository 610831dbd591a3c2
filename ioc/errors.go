package ioc

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNoBinding is wrapped by MissingBindingError.
	ErrNoBinding = errors.New("ioc: no binding")

	// ErrOutOfScope is returned when a request scoped binding is resolved
	// with a context that never entered a request scope.
	ErrOutOfScope = errors.New("ioc: not inside a request scope")

	// ErrInvalidStage is returned by ParseStage.
	ErrInvalidStage = errors.New("ioc: invalid stage")

	// ErrNilInstance is returned when ToInstance receives nil.
	ErrNilInstance = errors.New("ioc: nil instance")
)

// MissingBindingError reports a key that has no explicit binding and
// cannot be bound just-in-time.
type MissingBindingError struct{ Key Key }

func (e *MissingBindingError) Error() string {
	return "ioc: no binding for " + e.Key.String()
}

func (e *MissingBindingError) Unwrap() error { return ErrNoBinding }

// CycleError reports a circular dependency. Path starts and ends with the
// same key.
type CycleError struct{ Path []Key }

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, k := range e.Path {
		parts = append(parts, k.String())
	}
	return "ioc: dependency cycle: " + strings.Join(parts, " -> ")
}

// ProvisionError wraps a failure raised while providing Key.
type ProvisionError struct {
	Key Key
	Err error
}

func (e *ProvisionError) Error() string {
	return "ioc: unable to provision " + e.Key.String() + ": " + e.Err.Error()
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// CreationError aggregates every configuration error found while creating
// an injector.
type CreationError struct{ Errors []error }

func (e *CreationError) Error() string {
	var b strings.Builder
	b.WriteString("ioc: unable to create injector")
	for i, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(") ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *CreationError) Unwrap() []error { return e.Errors }

// isMissing reports whether err is exactly "key is not bound" and not a
// missing dependency further down the graph.
func isMissing(err error, key Key) bool {
	var mb *MissingBindingError
	return errors.As(err, &mb) && mb.Key == key
}
