// Package vaulterrors defines the typed error kinds that the kvstore, acl and
// manifest packages raise, in the style of k8s.io/apimachinery/pkg/api/errors:
// a single concrete type carrying a Kind, rather than a family of sentinel
// errors, so that callers can branch on IsKind(err, ...) regardless of how
// deeply the error has been wrapped by github.com/pkg/errors.
package vaulterrors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Kind identifies one of the failure modes named in the core contract.
// Kinds listed before KindIOBoundary are validation failures (exit code 1);
// kinds listed after it are I/O failures (exit code 2).
type Kind string

const (
	KindVaultStructureInvalid Kind = "VaultStructureInvalid"
	KindInvalidPath           Kind = "InvalidPath"
	KindCycleDetected         Kind = "CycleDetected"
	KindInvalidSecretBody     Kind = "InvalidSecretBody"
	KindInvalidSecretKey      Kind = "InvalidSecretKey"
	KindSecretNameCollision   Kind = "SecretNameCollision"
	KindEmptySecretName       Kind = "EmptySecretName"
	KindBadGlob               Kind = "BadGlob"
	KindInvalidUserName       Kind = "InvalidUserName"
	KindUnknownUser           Kind = "UnknownUser"

	// KindIOBoundary is not itself raised; it marks the boundary between
	// validation kinds (above) and I/O kinds (below) in this list. ExitCode
	// does not consult it: it names the I/O kinds explicitly.
	KindIOBoundary Kind = "-"

	KindUnreadableFile Kind = "UnreadableFile"
	KindOutputFailure  Kind = "OutputFailure"
)

// Error is the concrete error type raised by every package in this module
// that needs to report one of the kinds above.
type Error struct {
	Kind Kind
	// Path is the offending input: a filesystem path, a kvstore-relative
	// secret path, or for BadGlob either "<user> line <n>" (raised by the
	// rule parser) or "<user>: <rule>" (raised by the ACL evaluator).
	Path string
	Msg  string
	// Err is the underlying cause, when the kind wraps an I/O or parse error.
	Err error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error, wrapping it with github.com/pkg/errors so that
// callers up the stack retain a stack trace for unexpected failures while
// still being able to recover the structured Kind via IsKind.
func New(kind Kind, path, msg string) error {
	return errors.WithStack(&Error{Kind: kind, Path: path, Msg: msg})
}

// Wrap attaches a Kind and path to an underlying error, preserving it for
// Unwrap/errors.Is chains.
func Wrap(err error, kind Kind, path, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Path: path, Msg: msg, Err: err})
}

// IsKind reports whether err, or any error it wraps, is a *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}

// KindOf returns the Kind carried by err, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// ExitCode maps an error to a process exit code: 1 for validation
// failures, 2 for I/O failures, 1 as a conservative default for anything
// uncategorized (such as the bare context error the compiler returns when
// a run is cancelled).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	kind, ok := KindOf(err)
	if !ok {
		return 1
	}

	switch kind {
	case KindUnreadableFile, KindOutputFailure:
		return 2
	default:
		return 1
	}
}

// Collision records a mangled resource name and the paths that mangle to it.
// It is not itself an error: NewCollision reports a collision as an *Error
// of KindSecretNameCollision.
type Collision struct {
	Name  string
	Paths []string
}

// NewCollision builds the SecretNameCollision error for a single colliding
// name: Path holds the name, and every colliding path is listed in Msg and
// kept, one error per path, in the wrapped hashicorp/go-multierror Err.
func NewCollision(name string, paths []string) error {
	var merr *multierror.Error
	for _, p := range paths {
		merr = multierror.Append(merr, fmt.Errorf("%s", p))
	}

	return errors.WithStack(&Error{
		Kind: KindSecretNameCollision,
		Path: name,
		Msg:  fmt.Sprintf("%d paths mangle to the same name: %v", len(paths), merr.Errors),
		Err:  merr.ErrorOrNil(),
	})
}
