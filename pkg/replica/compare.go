package replica

import (
	"bytes"
	"time"

	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/ordermap"
)

// Divergence is a 32-bit bitmask describing how two nodes of the same name
// differ. Zero means "identical under the active policy." A negative value
// is reserved for the "one side is absent" sentinel; the driver never asks
// Compare to classify that case directly (it is handled by node presence
// before Compare is even called), but MissingSentinel is exported so tests
// can assert on it directly.
type Divergence int32

// MissingSentinel is returned when exactly one of the two compared nodes is
// absent.
const MissingSentinel Divergence = -1

// Divergence bit groups, stable and matching the original tool's bitmask
// exactly so that behavior described in terms of "the archive/digest/mtime
// bits" reads the same way here as in the tool this was ported from.
const (
	DivergenceType       Divergence = 0x00000001
	DivergenceOwnerUID   Divergence = 0x00000002
	DivergenceOwnerGID   Divergence = 0x00000004
	DivergenceSymlink    Divergence = 0x00000010
	DivergenceDeviceRdev Divergence = 0x00000020
	DivergenceMtime      Divergence = 0x00000100
	DivergenceSize       Divergence = 0x00001000
	DivergenceDigestLen  Divergence = 0x00010000
	DivergenceDigestData Divergence = 0x00020000
	DivergenceAclNFS4    Divergence = 0x00100000
	DivergenceAclAccess  Divergence = 0x00200000
	DivergenceAclDefault Divergence = 0x00400000
	DivergenceXattrUser  Divergence = 0x01000000
	DivergenceXattrSys   Divergence = 0x02000000
	DivergenceFlags      Divergence = 0x10000000
	DivergenceArchive    Divergence = 0x20000000
)

// ContentMask is the set of bits that should trigger a full regular-file
// recopy (as opposed to a metadata-only update): any mtime, size, or digest
// divergence, or an archive-bit-driven forced recopy.
const ContentMask = DivergenceMtime | DivergenceSize | DivergenceDigestLen | DivergenceDigestData | DivergenceArchive

// SymlinkContentMask is the set of bits that should trigger an unlink plus
// symlink recreation.
const SymlinkContentMask Divergence = DivergenceSymlink

// Compare computes the divergence bitmask between src and dst under cfg's
// active policy. It is a pure function: given the same two nodes and
// config it always returns the same result, and it never touches the
// filesystem.
//
// If both nodes are absent, the result is 0. If exactly one is absent, the
// result is MissingSentinel so the driver's "new" path handles it.
func Compare(src, dst *Node, cfg *Config) Divergence {
	if src == nil && dst == nil {
		return 0
	}
	if src == nil || dst == nil {
		return MissingSentinel
	}

	var d Divergence

	if (src.Stat.Mode & metadata.ModeTypeMask) != (dst.Stat.Mode & metadata.ModeTypeMask) {
		d |= DivergenceType
		// A type mismatch makes every other comparison meaningless; the
		// driver's type-change branch handles replacement wholesale.
		return d
	}

	if cfg.Owner {
		if src.Stat.UID != dst.Stat.UID && cfg.CanChangeOwner(src.Stat.UID) {
			d |= DivergenceOwnerUID
		}
		if src.Stat.GID != dst.Stat.GID && cfg.CanChangeGroup(src.Stat.GID) {
			d |= DivergenceOwnerGID
		}
	}

	if src.IsSymlink() && src.LinkTarget != dst.LinkTarget {
		d |= DivergenceSymlink
	}

	if isDeviceMode(src.Stat.Mode) && src.Stat.Rdev != dst.Stat.Rdev {
		d |= DivergenceDeviceRdev
	}

	if mtimeDiffers(src.Stat.Mtime, dst.Stat.Mtime, cfg.Times) {
		d |= DivergenceMtime
	}

	if src.IsRegular() && src.Stat.Size != dst.Stat.Size {
		d |= DivergenceSize
	}

	if src.DigestAlgorithm != 0 || dst.DigestAlgorithm != 0 {
		if len(src.Digest) != len(dst.Digest) {
			d |= DivergenceDigestLen
		} else if !bytes.Equal(src.Digest, dst.Digest) {
			d |= DivergenceDigestData
		}
	}

	if cfg.ACLs {
		if aclTextDiffers(src.ACLs[metadata.AclNFS4], dst.ACLs[metadata.AclNFS4]) {
			d |= DivergenceAclNFS4
		}
		if aclTextDiffers(src.ACLs[metadata.AclAccess], dst.ACLs[metadata.AclAccess]) {
			d |= DivergenceAclAccess
		}
		if src.IsDir() && aclTextDiffers(src.ACLs[metadata.AclDefault], dst.ACLs[metadata.AclDefault]) {
			d |= DivergenceAclDefault
		}
	}

	if cfg.Xattrs {
		if xattrsDiffer(src.Xattrs[metadata.NamespaceUser], dst.Xattrs[metadata.NamespaceUser], cfg.Expunge) {
			d |= DivergenceXattrUser
		}
		if xattrsDiffer(src.Xattrs[metadata.NamespaceSystem], dst.Xattrs[metadata.NamespaceSystem], cfg.Expunge) {
			d |= DivergenceXattrSys
		}
	}

	if cfg.FileFlags && src.Stat.HasFlags {
		if (src.Stat.Flags &^ archiveFlagBit) != (dst.Stat.Flags &^ archiveFlagBit) {
			d |= DivergenceFlags
		}
	}

	if cfg.ArchiveBit && src.Stat.HasFlags && src.Stat.Flags&archiveFlagBit != 0 {
		d |= DivergenceArchive
	}

	return d
}

// emptyXattrMap stands in for a nil XattrMap so xattrsDiffer never has to
// special-case a node that simply has no attributes in a namespace.
var emptyXattrMap = ordermap.New(nil, nil)

// archiveFlagBit is the BSD UF_ARCHIVE flag value (0x20 on the platforms
// that define it). It is masked out of the general flags comparison and
// tracked separately because the core clears it on the source as a
// distinct post-replication step rather than applying it to the
// destination like every other flag bit.
const archiveFlagBit = 0x20

// mtimeDiffers reports whether srcMtime/dstMtime should flag DivergenceMtime
// under the active times policy: TimesOff never compares mtime; TimesCompare
// ("-t", level 1) flags only when src is newer than dst (a "newer only"
// check, matching original_source/pc.c's f_times < 2 branch); TimesRestore
// ("-tt", level 2 or higher) flags on any inequality.
func mtimeDiffers(srcMtime, dstMtime time.Time, policy TimesPolicy) bool {
	switch policy {
	case TimesOff:
		return false
	case TimesCompare:
		return srcMtime.After(dstMtime)
	default:
		return !srcMtime.Equal(dstMtime)
	}
}

func isDeviceMode(mode uint32) bool {
	t := mode & metadata.ModeTypeMask
	return t == metadata.ModeTypeBlock || t == metadata.ModeTypeChar
}

func aclTextDiffers(src, dst *metadata.ACL) bool {
	return src.Text() != dst.Text()
}

// xattrsDiffer reports whether src and dst diverge under the active remove
// policy. Without expunge, equality only requires src to be a subset of
// dst (the destination may carry extra attributes); with expunge, equality
// requires both maps to carry exactly the same names and values.
func xattrsDiffer(src, dst XattrMap, expunge bool) bool {
	if src == nil {
		src = emptyXattrMap
	}
	if dst == nil {
		dst = emptyXattrMap
	}

	mismatch := false
	_ = src.ForEach(func(name string, value interface{}) error {
		dstValue, ok := dst.Search(name)
		if !ok || !bytes.Equal(value.([]byte), dstValue.([]byte)) {
			mismatch = true
		}
		return nil
	})
	if mismatch {
		return true
	}

	if expunge && src.Len() != dst.Len() {
		return true
	}
	return false
}
