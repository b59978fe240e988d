// Package failures classifies errors returned by the collaborators the
// evaluation sequence calls (git, the identity file, the scorer and the
// submitted container).
package failures

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime/debug"
)

// Kind identifies why a collaborator call failed.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindNotFound  Kind = "not_found"
	KindMalformed Kind = "malformed"
	KindCheckout  Kind = "checkout"
	KindCommand   Kind = "command"
	KindTimeout   Kind = "timeout"
	// KindPanic is a panic raised by submitted code, recovered at the adapter.
	KindPanic Kind = "panic"
)

// Error is a collaborator failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a failure of the given kind.
func New(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Classify returns the Kind of err. Errors that aren't an [*Error] are mapped
// from well known causes, otherwise they're [KindUnknown].
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}
	return KindUnknown
}

// Is reports whether err is a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && Classify(err) == kind
}

// PanicError carries a recovered panic value and the stack where it happened.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Capture runs fn and converts a panic into a [KindPanic] failure.
func Capture(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = New(op, KindPanic, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	return fn()
}
