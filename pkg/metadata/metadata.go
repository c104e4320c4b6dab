// Package metadata is the sole layer that talks to the kernel on behalf of
// the replication engine. It presents a uniform, symlink-safe surface over
// stat, symlink targets, ACLs, extended attributes, and BSD file flags
// across platforms, normalizing away the per-platform wire-format hazards
// (length-prefixed xattr name runs vs NUL-separated strings) so that
// pkg/replica never has to know which platform it is running on. On every
// non-Windows platform, POSIX ACLs are read and written through the
// system.posix_acl_* xattrs; no native ACL syscalls are used.
package metadata

import (
	"encoding/hex"
	"time"

	"github.com/pc-replicate/pc/pkg/rerr"
)

// Namespace identifies an extended-attribute namespace.
type Namespace uint8

const (
	// NamespaceUser is the "user" xattr namespace, settable by any owner.
	NamespaceUser Namespace = iota
	// NamespaceSystem is the "system" xattr namespace (e.g. POSIX ACLs on
	// Linux), generally restricted to privileged callers.
	NamespaceSystem
)

func (n Namespace) String() string {
	if n == NamespaceSystem {
		return "system"
	}
	return "user"
}

// AclKind identifies one of the three ACL kinds the core understands. All
// three are opaque to the core: it only ever compares their canonical text
// form and hands the raw bytes back to the adapter to apply.
type AclKind uint8

const (
	// AclNFS4 is an NFSv4/ZFS-style rich ACL.
	AclNFS4 AclKind = iota
	// AclAccess is a POSIX access ACL.
	AclAccess
	// AclDefault is a POSIX default ACL, meaningful only on directories.
	AclDefault
)

func (k AclKind) String() string {
	switch k {
	case AclNFS4:
		return "nfs4"
	case AclAccess:
		return "access"
	case AclDefault:
		return "default"
	default:
		return "unknown"
	}
}

// ACL is an opaque, platform-specific ACL handle. Its only core-visible
// operation is canonical text rendering, used for equality comparison.
type ACL struct {
	Kind AclKind
	// raw is the platform-native encoding: on POSIX-xattr platforms this
	// is the system.posix_acl_{access,default} xattr payload. The Windows
	// adapter never produces an ACL.
	raw []byte
}

// Text returns the ACL's canonical UTF-8 text form, used for equality.
// Two ACLs are considered equal by the comparator iff their Text values are
// byte-identical.
func (a *ACL) Text() string {
	if a == nil {
		return ""
	}
	return canonicalACLText(a.Kind, a.raw)
}

// Raw returns the platform-native encoding, for adapters that apply ACLs by
// writing the same bytes back (e.g. the xattr-backed POSIX ACL path).
func (a *ACL) Raw() []byte {
	if a == nil {
		return nil
	}
	return a.raw
}

// Stat is the POSIX stat triple the core operates on: file type, mode bits,
// ownership, size, device identity, and timestamps with nanosecond
// granularity where the platform offers it, plus an optional BSD flags
// word.
type Stat struct {
	Mode  uint32 // raw st_mode, including type bits
	UID   int
	GID   int
	Size  int64
	Rdev  uint64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	// Flags is the BSD st_flags word. HasFlags is false on platforms that
	// do not expose one (Linux), in which case Flags is always zero and
	// flag comparison/application is always a no-op.
	Flags    uint32
	HasFlags bool
}

// IsDir reports whether the stat triple describes a directory.
func (s *Stat) IsDir() bool { return s.Mode&ModeTypeMask == ModeTypeDir }

// IsRegular reports whether the stat triple describes a regular file.
func (s *Stat) IsRegular() bool { return s.Mode&ModeTypeMask == ModeTypeFile }

// IsSymlink reports whether the stat triple describes a symbolic link.
func (s *Stat) IsSymlink() bool { return s.Mode&ModeTypeMask == ModeTypeSymlink }

// Type-bit constants, platform-independent (POSIX S_IFMT family). These
// match golang.org/x/sys/unix's values on every platform that package
// supports, so Stat.Mode can be compared directly against them without a
// platform-specific conversion at every call site.
const (
	ModeTypeMask    = 0170000
	ModeTypeSocket  = 0140000
	ModeTypeSymlink = 0120000
	ModeTypeFile    = 0100000
	ModeTypeBlock   = 0060000
	ModeTypeDir     = 0040000
	ModeTypeChar    = 0020000
	ModeTypeFifo    = 0010000

	ModePermissionsMask = 0007777
)

// FS is the platform adapter the replication engine consumes. Every method
// is symlink-aware via an explicit "follow" parameter where relevant;
// callers that want symlink-safe behavior for a path that may be a symlink
// pass follow=false.
type FS interface {
	// Lstat returns the stat triple for path without following a trailing
	// symlink.
	Lstat(path string) (*Stat, error)
	// Readlink returns the target of the symbolic link at path.
	Readlink(path string) (string, error)

	// AclGet returns the ACL of the given kind on path, or (nil, nil) if
	// the object has none. If isSymlink is true and the platform has no
	// link-not-following variant for this kind, it returns (nil, nil)
	// rather than an error (silent degrade, per spec).
	AclGet(path string, kind AclKind, isSymlink bool) (*ACL, error)
	// AclSet applies acl to path. If isSymlink is true, the link-scoped
	// variant is used when available; otherwise it returns a
	// KindUnsupported error.
	AclSet(path string, acl *ACL, isSymlink bool) error

	// XattrList returns the attribute names present on path in the given
	// namespace.
	XattrList(path string, ns Namespace, follow bool) ([]string, error)
	// XattrGet returns the raw value of name in namespace ns on path.
	XattrGet(path string, ns Namespace, name string, follow bool) ([]byte, error)
	// XattrSet installs name=value in namespace ns on path.
	XattrSet(path string, ns Namespace, name string, value []byte, follow bool) error
	// XattrDelete removes name from namespace ns on path.
	XattrDelete(path string, ns Namespace, name string, follow bool) error

	// Chmod sets the permission bits of path, following a trailing
	// symlink.
	Chmod(path string, mode uint32) error
	// Lchmod sets the permission bits of the symlink itself at path. It
	// returns a KindUnsupported error on platforms with no such capability
	// (e.g. Linux).
	Lchmod(path string, mode uint32) error
	// Lchown sets the owner/group of path without following a trailing
	// symlink.
	Lchown(path string, uid, gid int) error

	// SetTimes restores atime/mtime on path without following a trailing
	// symlink.
	SetTimes(path string, atime, mtime time.Time) error

	// Lchflags sets the BSD flags word on path without following a
	// trailing symlink. It returns a KindUnsupported error on platforms
	// with no flags word (Linux).
	Lchflags(path string, flags uint32) error

	// Mknod creates a block or character device node at path.
	Mknod(path string, mode uint32, rdev uint64) error
	// Mkfifo creates a FIFO at path.
	Mkfifo(path string, mode uint32) error
	// BindUnixSocket creates and binds an AF_UNIX socket at path, then
	// closes it, leaving the filesystem object behind.
	BindUnixSocket(path string) error
}

func unsupported(op, path string) error {
	return rerr.Wrapf(rerr.KindUnsupported, op, path, "not supported on this platform")
}

// canonicalACLText renders an ACL's raw platform-native bytes as canonical
// text for equality comparison. The raw payload of the POSIX-ACL-as-xattr
// backend is an opaque binary blob, so the canonical form is a deterministic hex
// encoding prefixed with the kind; this satisfies the core's "opaque value
// with a text form used for equality" contract without requiring this
// package to implement a full ACL text grammar for every platform.
func canonicalACLText(kind AclKind, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return kind.String() + ":" + hex.EncodeToString(raw)
}
