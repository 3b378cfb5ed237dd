// Package apperr classifies failures so every surface (HTTP handlers, guards and the
// websocket hub) can react to them the same way.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the class of an error.
type Kind int

const (
	// Unknown is anything that has not been classified.
	Unknown Kind = iota
	// AuthNotReady means the identity could not be established yet. Shown as loading.
	AuthNotReady
	// NotFound is terminal for the view and offers navigation away.
	NotFound
	// PermissionDenied is given when an ownership check fails.
	PermissionDenied
	// TransientFetch is a read or write failure worth retrying.
	TransientFetch
	// Render is a failure while producing a response, caught at the route boundary.
	Render
	// InvalidInput is given when the request itself is malformed.
	InvalidInput
	// Conflict is given when the document is in a state that forbids the change.
	Conflict
)

var kindNames = map[Kind]string{
	Unknown:          "unknown",
	AuthNotReady:     "auth-not-ready",
	NotFound:         "not-found",
	PermissionDenied: "permission-denied",
	TransientFetch:   "transient-fetch-failure",
	Render:           "render-error",
	InvalidInput:     "invalid-input",
	Conflict:         "conflict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether showing a retry control makes sense for the kind.
func (k Kind) Retryable() bool {
	return k == TransientFetch || k == AuthNotReady || k == Unknown
}

// Error carries a Kind, the operation that failed and a message that is safe to show users.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, apperr.E(apperr.NotFound, "", "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

// E builds an error without a cause.
func E(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an error around a cause. A nil cause returns nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// FromStore classifies an error returned by Firestore. codes.NotFound becomes NotFound,
// PermissionDenied stays PermissionDenied, AlreadyExists and aborted transactions are conflicts and
// everything else is treated as transient.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return Wrap(NotFound, op, "not found", err)
	case codes.PermissionDenied:
		return Wrap(PermissionDenied, op, "permission denied", err)
	case codes.AlreadyExists:
		return Wrap(Conflict, op, "already exists", err)
	case codes.FailedPrecondition, codes.Aborted:
		return Wrap(Conflict, op, "document changed, try again", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(TransientFetch, op, "request interrupted", err)
	}
	return Wrap(TransientFetch, op, "failed to load", err)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// Message returns the user-facing message of err, or a generic one.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	return "something went wrong"
}

// IsNotFound is shorthand for KindOf(err) == NotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == NotFound
}

// ErrNoChange is returned by a document mutation that decided nothing needs to be written.
var ErrNoChange = errors.New("no change")

// ErrNotConfirmed is wrapped by errors from destructive operations called without confirmation.
var ErrNotConfirmed = errors.New("not confirmed")

// Unconfirmed returns the InvalidInput error for a destructive operation that needs confirming.
func Unconfirmed(op string) error {
	return Wrap(InvalidInput, op, "please confirm first", ErrNotConfirmed)
}
