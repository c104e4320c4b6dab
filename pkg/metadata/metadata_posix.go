// +build !windows

package metadata

import (
	"net"
	"os"
	"time"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/pc-replicate/pc/pkg/rerr"
)

// posixFS is the FS implementation for POSIX-like platforms (Linux, the
// BSDs, and macOS). ACLs are backed by the system.posix_acl_access and
// system.posix_acl_default xattrs, which is how the kernel itself exposes
// POSIX ACLs; NFSv4-style ACLs have no portable syscall surface in this
// pack's dependency set and always report KindUnsupported.
type posixFS struct{}

// New returns the platform's FS adapter.
func New() FS {
	return posixFS{}
}

func xattrNamespacePrefix(ns Namespace) string {
	if ns == NamespaceSystem {
		return "system."
	}
	return "user."
}

func (posixFS) Lstat(path string) (*Stat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, rerr.Wrap(kindForErrno(err), "lstat", path, err)
	}
	s := &Stat{
		Mode: st.Mode,
		UID:  int(st.Uid),
		GID:  int(st.Gid),
		Size: st.Size,
		Rdev: uint64(st.Rdev),
		Atime: time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec)),
		Mtime: time.Unix(int64(st.Mtim.Sec), int64(st.Mtim.Nsec)),
		Ctime: time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)),
	}
	fillFlags(&st, s)
	return s, nil
}

func (posixFS) Readlink(path string) (string, error) {
	// Grow the buffer until the link fits; most links are short but this
	// must not silently truncate a long one.
	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		n, err := unix.Readlink(path, buf)
		if err != nil {
			return "", rerr.Wrap(kindForErrno(err), "readlink", path, err)
		}
		if n < size {
			return string(buf[:n]), nil
		}
	}
}

func (posixFS) XattrList(path string, ns Namespace, follow bool) ([]string, error) {
	var (
		names []string
		err   error
	)
	if follow {
		names, err = xattr.List(path)
	} else {
		names, err = xattr.LList(path)
	}
	if err != nil {
		return nil, rerr.Wrap(kindForXattrErr(err), "xattr_list", path, err)
	}
	prefix := xattrNamespacePrefix(ns)
	var result []string
	for _, n := range names {
		if len(n) > len(prefix) && n[:len(prefix)] == prefix {
			result = append(result, n[len(prefix):])
		}
	}
	return result, nil
}

func (posixFS) XattrGet(path string, ns Namespace, name string, follow bool) ([]byte, error) {
	full := xattrNamespacePrefix(ns) + name
	var (
		value []byte
		err   error
	)
	if follow {
		value, err = xattr.Get(path, full)
	} else {
		value, err = xattr.LGet(path, full)
	}
	if err != nil {
		return nil, rerr.Wrap(kindForXattrErr(err), "xattr_get", path, err)
	}
	return value, nil
}

func (posixFS) XattrSet(path string, ns Namespace, name string, value []byte, follow bool) error {
	full := xattrNamespacePrefix(ns) + name
	var err error
	if follow {
		err = xattr.Set(path, full, value)
	} else {
		err = xattr.LSet(path, full, value)
	}
	return rerr.Wrap(kindForXattrErr(err), "xattr_set", path, err)
}

func (posixFS) XattrDelete(path string, ns Namespace, name string, follow bool) error {
	full := xattrNamespacePrefix(ns) + name
	var err error
	if follow {
		err = xattr.Remove(path, full)
	} else {
		err = xattr.LRemove(path, full)
	}
	return rerr.Wrap(kindForXattrErr(err), "xattr_delete", path, err)
}

func (posixFS) Chmod(path string, mode uint32) error {
	err := unix.Fchmodat(unix.AT_FDCWD, path, mode, 0)
	return rerr.Wrap(kindForErrno(err), "chmod", path, err)
}

func (posixFS) Lchmod(path string, mode uint32) error {
	err := unix.Fchmodat(unix.AT_FDCWD, path, mode, unix.AT_SYMLINK_NOFOLLOW)
	if err == unix.EOPNOTSUPP || err == unix.ENOSYS || err == unix.EINVAL {
		return rerr.Wrapf(rerr.KindUnsupported, "lchmod", path, "platform cannot set mode on a symlink")
	}
	return rerr.Wrap(kindForErrno(err), "lchmod", path, err)
}

func (posixFS) Lchflags(path string, flags uint32) error {
	err := chflags(path, flags)
	if err == unix.EOPNOTSUPP || err == unix.ENOSYS {
		return rerr.Wrapf(rerr.KindUnsupported, "lchflags", path, "platform has no BSD flags word")
	}
	return rerr.Wrap(kindForErrno(err), "lchflags", path, err)
}

func (posixFS) Lchown(path string, uid, gid int) error {
	err := unix.Lchown(path, uid, gid)
	return rerr.Wrap(kindForErrno(err), "lchown", path, err)
}

func (posixFS) SetTimes(path string, atime, mtime time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW)
	return rerr.Wrap(kindForErrno(err), "utimensat", path, err)
}

func (posixFS) Mknod(path string, mode uint32, rdev uint64) error {
	err := unix.Mknod(path, mode, int(rdev))
	return rerr.Wrap(kindForErrno(err), "mknod", path, err)
}

func (posixFS) Mkfifo(path string, mode uint32) error {
	err := unix.Mkfifo(path, mode)
	return rerr.Wrap(kindForErrno(err), "mkfifo", path, err)
}

func (posixFS) BindUnixSocket(path string) error {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return rerr.Wrap(rerr.KindInvalidArgument, "bind", path, err)
	}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return rerr.Wrap(kindForErrno(err), "bind", path, err)
	}
	return l.Close()
}

// kindForErrno classifies a raw syscall error (typically a unix.Errno) into
// the replication engine's error taxonomy.
func kindForErrno(err error) rerr.Kind {
	switch err {
	case nil:
		return rerr.KindInternal
	case os.ErrNotExist, unix.ENOENT:
		return rerr.KindNotFound
	case os.ErrExist, unix.EEXIST:
		return rerr.KindExists
	case os.ErrPermission, unix.EPERM, unix.EACCES:
		return rerr.KindPermission
	case unix.ENOTSUP, unix.EOPNOTSUPP, unix.ENOSYS:
		return rerr.KindUnsupported
	default:
		return rerr.KindIO
	}
}

func kindForXattrErr(err error) rerr.Kind {
	if err == nil {
		return rerr.KindInternal
	}
	if xerr, ok := err.(*xattr.Error); ok {
		return kindForErrno(xerr.Err)
	}
	return kindForErrno(err)
}
