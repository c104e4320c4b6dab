// Package rerr defines the replication engine's error taxonomy. It lives
// below both pkg/metadata and pkg/replica so that the platform adapter can
// report structured, Kind-tagged failures without creating an import cycle
// back into pkg/replica.
package rerr

import (
	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can branch on failure category
// without parsing message text, while the underlying cause remains
// available via errors.Cause/errors.Unwrap for humans.
type Kind uint8

const (
	// KindInternal indicates a comparator or writer invariant violation
	// that should be impossible in correct operation.
	KindInternal Kind = iota
	// KindNotFound indicates a source or destination path vanished during
	// a syscall.
	KindNotFound
	// KindExists indicates a name collision, either in an ordered map or
	// on filesystem object creation.
	KindExists
	// KindPermission indicates an owner, mode, ACL, or xattr apply refused
	// by the kernel.
	KindPermission
	// KindUnsupported indicates the platform lacks a requested capability
	// (no ACL kind, no xattr namespace, no lchmod, ...).
	KindUnsupported
	// KindBufferTooSmall indicates a digest output buffer was too small.
	KindBufferTooSmall
	// KindInvalidArgument indicates a malformed size/digest spec or
	// missing positional argument.
	KindInvalidArgument
	// KindIO indicates a read/write/seek failure mid-copy.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindExists:
		return "exists"
	case KindPermission:
		return "permission denied"
	case KindUnsupported:
		return "unsupported"
	case KindBufferTooSmall:
		return "buffer too small"
	case KindInvalidArgument:
		return "invalid argument"
	case KindIO:
		return "i/o error"
	default:
		return "internal error"
	}
}

// Error is a Kind-tagged, path-qualified error. The wrapped cause chain
// (accessible via errors.Cause/errors.Unwrap) is preserved so log lines
// stay actionable.
type Error struct {
	Kind Kind
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap constructs an Error, attaching op and path context to cause. It
// returns nil if cause is nil, so call sites can write
// "return rerr.Wrap(...)" directly after a syscall.
func Wrap(kind Kind, op, path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Path: path, Op: op, Err: cause}
}

// Wrapf is like Wrap but formats cause from a message.
func Wrapf(kind Kind, op, path, format string, args ...interface{}) error {
	return &Error{Kind: kind, Path: path, Op: op, Err: errors.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that did not originate as an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsIgnorable reports whether err represents a per-node failure that the
// "ignore" policy is permitted to swallow, as opposed to a condition that
// always aborts the run regardless of policy.
func IsIgnorable(err error) bool {
	switch KindOf(err) {
	case KindInternal, KindInvalidArgument:
		return false
	default:
		return true
	}
}
