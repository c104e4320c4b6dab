package replica

import (
	"github.com/pc-replicate/pc/pkg/rerr"
)

// Kind classifies an Error; see pkg/rerr for the full taxonomy. It is
// aliased here so callers of pkg/replica never need to import pkg/rerr
// directly.
type Kind = rerr.Kind

const (
	KindInternal        = rerr.KindInternal
	KindNotFound        = rerr.KindNotFound
	KindExists          = rerr.KindExists
	KindPermission      = rerr.KindPermission
	KindUnsupported     = rerr.KindUnsupported
	KindBufferTooSmall  = rerr.KindBufferTooSmall
	KindInvalidArgument = rerr.KindInvalidArgument
	KindIO              = rerr.KindIO
)

// Error is a Kind-tagged, path-qualified error produced by the replication
// engine.
type Error = rerr.Error

// Wrap constructs an Error, attaching op and path context to cause.
func Wrap(kind Kind, op, path string, cause error) error {
	return rerr.Wrap(kind, op, path, cause)
}

// Wrapf is like Wrap but formats cause from a message.
func Wrapf(kind Kind, op, path, format string, args ...interface{}) error {
	return rerr.Wrapf(kind, op, path, format, args...)
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that did not originate as a replica.Error.
func KindOf(err error) Kind {
	return rerr.KindOf(err)
}

// IsIgnorable reports whether err represents a per-node failure that the
// "ignore" policy is permitted to swallow.
func IsIgnorable(err error) bool {
	return rerr.IsIgnorable(err)
}
