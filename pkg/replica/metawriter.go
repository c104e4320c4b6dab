package replica

import (
	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/rerr"
)

// Update applies src's metadata onto the filesystem object at dstPath (dst
// is the previously loaded node at that path, or nil for a freshly created
// object), in the order mandated by the platform's metadata semantics:
// ownership before mode (chown can clear setuid/setgid), then xattrs, then
// ACLs, then times, then flags, with the source archive-bit clear as a
// final, separately-gated step. Each step's error is recorded; if
// cfg.Ignore is set, Update continues past a failing step and returns the
// last recorded error rather than aborting at the first one.
func Update(fs metadata.FS, src, dst *Node, dstPath string, cfg *Config) error {
	var worst error
	fail := func(err error) bool {
		if err == nil {
			return false
		}
		worst = err
		if cfg.Logger != nil {
			cfg.Logger.Debugf("node_update: %v", err)
		}
		return !cfg.Ignore
	}

	isSymlink := src.IsSymlink()

	if cfg.Owner {
		if err := applyOwnership(fs, src, dstPath, cfg); fail(err) {
			return worst
		}
	}

	if cfg.Preserve {
		if err := applyMode(fs, src, dst, dstPath, isSymlink, cfg); fail(err) {
			return worst
		}
	}

	if cfg.Xattrs {
		for _, ns := range []metadata.Namespace{metadata.NamespaceUser, metadata.NamespaceSystem} {
			if err := applyXattrNamespace(fs, src, dst, dstPath, ns, isSymlink, cfg); fail(err) {
				return worst
			}
		}
	}

	if cfg.ACLs {
		for _, kind := range []metadata.AclKind{metadata.AclNFS4, metadata.AclAccess, metadata.AclDefault} {
			if err := applyACL(fs, src, dst, dstPath, kind, isSymlink, cfg); fail(err) {
				return worst
			}
		}
	}

	if cfg.Times == TimesRestore {
		if err := fs.SetTimes(dstPath, src.Stat.Atime, src.Stat.Mtime); fail(err) {
			return worst
		}
	}

	if cfg.FileFlags && src.Stat.HasFlags {
		if err := applyFlags(fs, src, dst, dstPath); fail(err) {
			return worst
		}
	}

	if cfg.ArchiveBit && src.Stat.HasFlags && src.Stat.Flags&archiveFlagBit != 0 {
		if err := fs.Lchflags(src.Path, src.Stat.Flags&^archiveFlagBit); fail(err) {
			return worst
		}
	}

	return worst
}

// applyOwnership sets dstPath's owner/group from src, tolerating EPERM
// silently: an unprivileged caller replicating a file it does not own is
// expected to fail here, and that failure must not abort an otherwise
// successful replication.
func applyOwnership(fs metadata.FS, src *Node, dstPath string, cfg *Config) error {
	uid, gid := -1, -1
	if cfg.CanChangeOwner(src.Stat.UID) {
		uid = src.Stat.UID
	}
	if cfg.CanChangeGroup(src.Stat.GID) {
		gid = src.Stat.GID
	}
	if uid == -1 && gid == -1 {
		return nil
	}
	err := fs.Lchown(dstPath, uid, gid)
	if rerr.KindOf(err) == rerr.KindPermission {
		return nil
	}
	return err
}

func applyMode(fs metadata.FS, src, dst *Node, dstPath string, isSymlink bool, cfg *Config) error {
	srcPerm := src.Stat.Mode & metadata.ModePermissionsMask
	if dst != nil && dst.Stat != nil && dst.Stat.Mode&metadata.ModePermissionsMask == srcPerm {
		return nil
	}
	var err error
	if isSymlink {
		err = fs.Lchmod(dstPath, srcPerm)
	} else {
		err = fs.Chmod(dstPath, srcPerm)
	}
	if rerr.KindOf(err) == rerr.KindUnsupported {
		if cfg.Logger != nil {
			cfg.Logger.Warn(err)
		}
		return nil
	}
	return err
}

func applyXattrNamespace(fs metadata.FS, src, dst *Node, dstPath string, ns metadata.Namespace, isSymlink bool, cfg *Config) error {
	srcMap := src.Xattrs[ns]
	follow := !isSymlink
	if srcMap != nil {
		var dstMap XattrMap
		if dst != nil {
			dstMap = dst.Xattrs[ns]
		}
		err := srcMap.ForEach(func(name string, value interface{}) error {
			var (
				existing interface{}
				present  bool
			)
			if dstMap != nil {
				existing, present = dstMap.Search(name)
			}
			want := value.([]byte)
			if present {
				if have, ok := existing.([]byte); ok && bytesEqual(have, want) {
					return nil
				}
			}
			return fs.XattrSet(dstPath, ns, name, want, follow)
		})
		if err != nil {
			if rerr.KindOf(err) == rerr.KindUnsupported {
				if cfg.Logger != nil {
					cfg.Logger.Debugf("xattr_set(%s, %s): %v", dstPath, ns, err)
				}
			} else {
				return err
			}
		}
	}

	if !cfg.Expunge || dst == nil {
		return nil
	}
	dstMap := dst.Xattrs[ns]
	if dstMap == nil {
		return nil
	}
	var toRemove []string
	_ = dstMap.ForEach(func(name string, _ interface{}) error {
		if srcMap == nil {
			toRemove = append(toRemove, name)
			return nil
		}
		if _, ok := srcMap.Search(name); !ok {
			toRemove = append(toRemove, name)
		}
		return nil
	})
	for _, name := range toRemove {
		if err := fs.XattrDelete(dstPath, ns, name, follow); err != nil && rerr.KindOf(err) != rerr.KindUnsupported {
			return err
		}
	}
	return nil
}

func applyACL(fs metadata.FS, src, dst *Node, dstPath string, kind metadata.AclKind, isSymlink bool, cfg *Config) error {
	if kind == metadata.AclDefault && !src.IsDir() {
		return nil
	}
	srcACL := src.ACLs[kind]
	if srcACL == nil {
		return nil
	}
	var dstACL *metadata.ACL
	if dst != nil {
		dstACL = dst.ACLs[kind]
	}
	if srcACL.Text() == dstACL.Text() {
		return nil
	}
	err := fs.AclSet(dstPath, srcACL, isSymlink)
	if rerr.KindOf(err) == rerr.KindUnsupported {
		if cfg.Logger != nil {
			cfg.Logger.Debugf("acl_set(%s, %s): %v", dstPath, kind, err)
		}
		return nil
	}
	return err
}

func applyFlags(fs metadata.FS, src, dst *Node, dstPath string) error {
	want := src.Stat.Flags &^ archiveFlagBit
	if dst != nil && dst.Stat != nil {
		want |= dst.Stat.Flags & archiveFlagBit
		if dst.Stat.Flags&^archiveFlagBit == want&^archiveFlagBit {
			return nil
		}
	}
	return fs.Lchflags(dstPath, want)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
