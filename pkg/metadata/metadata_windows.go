package metadata

import (
	"os"
	"time"

	"github.com/hectane/go-acl"

	"github.com/pc-replicate/pc/pkg/rerr"
)

// windowsFS is the FS implementation for Windows. Most POSIX-specific
// capabilities this adapter exposes (device nodes, FIFOs, AF_UNIX sockets,
// BSD flags, xattrs, ACLs of every kind) have no Windows analog and always
// report KindUnsupported or nothing present; hectane/go-acl is used only to
// apply permission bits in Chmod.
type windowsFS struct{}

// New returns the platform's FS adapter.
func New() FS {
	return windowsFS{}
}

func (windowsFS) Lstat(path string) (*Stat, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, rerr.Wrap(kindForOSErr(err), "lstat", path, err)
	}
	mode := uint32(ModeTypeFile)
	if info.IsDir() {
		mode = ModeTypeDir
	} else if info.Mode()&os.ModeSymlink != 0 {
		mode = ModeTypeSymlink
	}
	mode |= uint32(info.Mode().Perm())
	return &Stat{
		Mode:  mode,
		Size:  info.Size(),
		Mtime: info.ModTime(),
		Atime: info.ModTime(),
		Ctime: info.ModTime(),
	}, nil
}

func (windowsFS) Readlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", rerr.Wrap(kindForOSErr(err), "readlink", path, err)
	}
	return target, nil
}

func (windowsFS) AclGet(path string, kind AclKind, isSymlink bool) (*ACL, error) {
	// go-acl exposes only DACL application, not a portable read-back/text
	// form; reporting "no ACL present" here (rather than an error) means
	// the comparator never flags a spurious access-ACL divergence on
	// Windows, matching this adapter's one-directional, best-effort nature.
	return nil, nil
}

func (windowsFS) AclSet(path string, a *ACL, isSymlink bool) error {
	// AclGet above never returns a populated ACL, so a source node's
	// ACLs map is always empty on this platform and applyACL never calls
	// this with a non-nil a in practice. go-acl's Chmod derives a DACL
	// from a POSIX-style permission word rather than accepting an
	// arbitrary serialized ACL, so there is no faithful way to round-trip
	// a->raw here; report unsupported rather than applying a meaningless
	// DACL.
	return rerr.Wrapf(rerr.KindUnsupported, "acl_set", path, "ACL replication is not supported on this platform")
}

func (windowsFS) XattrList(path string, ns Namespace, follow bool) ([]string, error) {
	return nil, nil
}

func (windowsFS) XattrGet(path string, ns Namespace, name string, follow bool) ([]byte, error) {
	return nil, unsupported("xattr_get", path)
}

func (windowsFS) XattrSet(path string, ns Namespace, name string, value []byte, follow bool) error {
	return unsupported("xattr_set", path)
}

func (windowsFS) XattrDelete(path string, ns Namespace, name string, follow bool) error {
	return unsupported("xattr_delete", path)
}

func (windowsFS) Chmod(path string, mode uint32) error {
	err := acl.Chmod(path, os.FileMode(mode&ModePermissionsMask))
	return rerr.Wrap(kindForOSErr(err), "chmod", path, err)
}

func (windowsFS) Lchmod(path string, mode uint32) error {
	return unsupported("lchmod", path)
}

func (windowsFS) Lchown(path string, uid, gid int) error {
	return unsupported("lchown", path)
}

func (windowsFS) SetTimes(path string, atime, mtime time.Time) error {
	err := os.Chtimes(path, atime, mtime)
	return rerr.Wrap(kindForOSErr(err), "utimensat", path, err)
}

func (windowsFS) Lchflags(path string, flags uint32) error {
	return unsupported("lchflags", path)
}

func (windowsFS) Mknod(path string, mode uint32, rdev uint64) error {
	return unsupported("mknod", path)
}

func (windowsFS) Mkfifo(path string, mode uint32) error {
	return unsupported("mkfifo", path)
}

func (windowsFS) BindUnixSocket(path string) error {
	return unsupported("bind", path)
}

func kindForOSErr(err error) rerr.Kind {
	switch {
	case err == nil:
		return rerr.KindInternal
	case os.IsNotExist(err):
		return rerr.KindNotFound
	case os.IsExist(err):
		return rerr.KindExists
	case os.IsPermission(err):
		return rerr.KindPermission
	default:
		return rerr.KindIO
	}
}
