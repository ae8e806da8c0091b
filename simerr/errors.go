// Package simerr defines the error taxonomy shared by the ledger, node and
// scheduler packages. Each kind wraps an inner cause so callers can use
// errors.Is / errors.As while call sites still get a short, typed message.
package simerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one of the error categories from the design.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindTransient     Kind = "transient"
	KindBroadcast     Kind = "broadcast"
	KindIO            Kind = "io"
	KindWorker        Kind = "worker"
)

// Error is the common shape for every taxonomy member.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op string, err error) *Error { return new_(KindConfiguration, op, err) }
func Validation(op string, err error) *Error    { return new_(KindValidation, op, err) }
func Transient(op string, err error) *Error     { return new_(KindTransient, op, err) }
func Broadcast(op string, err error) *Error     { return new_(KindBroadcast, op, err) }
func IO(op string, err error) *Error            { return new_(KindIO, op, err) }
func Worker(op string, err error) *Error        { return new_(KindWorker, op, err) }

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Sentinel errors for fixed conditions, named after kvstore's Err* convention.
var (
	ErrEmptyBatch       = errors.New("simerr: batch is empty")
	ErrMismatchedArrays = errors.New("simerr: values/ips/scores length mismatch")
	ErrNoNumericSize    = errors.New("simerr: no numeric packet size present")
	ErrEntryNotFound    = errors.New("simerr: entry not found")
	ErrDuplicateEntry   = errors.New("simerr: duplicate (timestamp, nodeId) pair")
)

// Retryable reports whether the error's textual signature matches the
// transient-error policy: "locked", "busy", or "timeout".
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"locked", "busy", "timeout"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
