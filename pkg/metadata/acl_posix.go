// +build !windows

package metadata

import (
	"github.com/pkg/xattr"

	"github.com/pc-replicate/pc/pkg/rerr"
)

// posixACLXattrName maps an ACL kind to the xattr name the kernel exposes it
// under. NFSv4/ZFS-style ACLs have no such xattr mapping on a plain POSIX
// system; Linux's richacl support (where present) uses a distinct, rarely
// deployed syscall surface absent from this pack's dependencies, so nfs4
// always reports KindUnsupported rather than guessing at a binary layout
// nothing in the retrieval pack demonstrates.
func posixACLXattrName(kind AclKind) (string, bool) {
	switch kind {
	case AclAccess:
		return "system.posix_acl_access", true
	case AclDefault:
		return "system.posix_acl_default", true
	default:
		return "", false
	}
}

func (posixFS) AclGet(path string, kind AclKind, isSymlink bool) (*ACL, error) {
	name, ok := posixACLXattrName(kind)
	if !ok {
		return nil, nil
	}

	var (
		raw []byte
		err error
	)
	if isSymlink {
		// Linux has no notion of a POSIX ACL on a symlink itself (the
		// kernel rejects the xattr syscalls with EOPNOTSUPP/ENOENT); treat
		// this as "no ACL" rather than an error, mirroring the silent
		// degrade the spec calls for.
		raw, err = xattr.LGet(path, name)
	} else {
		raw, err = xattr.Get(path, name)
	}
	if err != nil {
		if xattrIsNotFound(err) {
			return nil, nil
		}
		if kindForXattrErr(err) == rerr.KindUnsupported {
			return nil, nil
		}
		return nil, rerr.Wrap(kindForXattrErr(err), "acl_get", path, err)
	}
	return &ACL{Kind: kind, raw: raw}, nil
}

func (posixFS) AclSet(path string, acl *ACL, isSymlink bool) error {
	if acl == nil {
		return nil
	}
	name, ok := posixACLXattrName(acl.Kind)
	if !ok {
		return rerr.Wrapf(rerr.KindUnsupported, "acl_set", path, "nfs4 ACLs have no portable POSIX representation")
	}
	if isSymlink {
		return rerr.Wrapf(rerr.KindUnsupported, "acl_set", path, "symlinks cannot carry POSIX ACLs")
	}
	err := xattr.Set(path, name, acl.raw)
	return rerr.Wrap(kindForXattrErr(err), "acl_set", path, err)
}

func xattrIsNotFound(err error) bool {
	xerr, ok := err.(*xattr.Error)
	return ok && xerr.Err == xattr.ENOATTR
}
