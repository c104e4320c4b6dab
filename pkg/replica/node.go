package replica

import (
	"github.com/pc-replicate/pc/pkg/digest"
	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/ordermap"
)

// XattrMap is an ordered name -> value map for one xattr namespace.
type XattrMap = *ordermap.Map

// Node is the in-memory descriptor of one filesystem object and every piece
// of metadata the active policy replicates for it. It is populated once by
// the directory loader and is treated as immutable by the comparator and
// writer; the driver is the only caller permitted to replace a Node with a
// freshly-loaded one (a "refresh") after it mutates the underlying
// filesystem object.
type Node struct {
	// Path is the absolute or working-relative path at which the node
	// lives.
	Path string
	// Stat is the POSIX stat triple.
	Stat *metadata.Stat
	// LinkTarget is the symlink content; present iff Stat.IsSymlink().
	LinkTarget string

	// ACLs holds up to three ACL handles, keyed by kind. A missing key
	// means the node carries no ACL of that kind (or ACL replication is
	// disabled).
	ACLs map[metadata.AclKind]*metadata.ACL

	// Xattrs holds one ordered map per namespace, name -> raw value bytes.
	Xattrs map[metadata.Namespace]XattrMap

	// DigestAlgorithm and Digest are present only for regular files, and
	// only when digesting was active at load time.
	DigestAlgorithm digest.Algorithm
	Digest          []byte
}

// NewNode constructs an empty Node for path. The loader fills in Stat and
// the rest of the fields conditionally on the active feature flags.
func NewNode(path string) *Node {
	return &Node{
		Path:   path,
		ACLs:   make(map[metadata.AclKind]*metadata.ACL),
		Xattrs: make(map[metadata.Namespace]XattrMap),
	}
}

// IsDir reports whether the node is a directory. A nil node (meaning
// "absent") is never a directory.
func (n *Node) IsDir() bool {
	return n != nil && n.Stat != nil && n.Stat.IsDir()
}

// IsRegular reports whether the node is a regular file.
func (n *Node) IsRegular() bool {
	return n != nil && n.Stat != nil && n.Stat.IsRegular()
}

// IsSymlink reports whether the node is a symbolic link.
func (n *Node) IsSymlink() bool {
	return n != nil && n.Stat != nil && n.Stat.IsSymlink()
}

// TypeLetter returns the console descriptor's type letter for the node:
// d(ir) f(ile) b(lock) c(har) l(ink) p(ipe) s(ocket) w(hiteout, unused) or
// ? for an unrecognized type.
func (n *Node) TypeLetter() byte {
	if n == nil || n.Stat == nil {
		return '?'
	}
	switch n.Stat.Mode & metadata.ModeTypeMask {
	case metadata.ModeTypeDir:
		return 'd'
	case metadata.ModeTypeFile:
		return 'f'
	case metadata.ModeTypeBlock:
		return 'b'
	case metadata.ModeTypeChar:
		return 'c'
	case metadata.ModeTypeSymlink:
		return 'l'
	case metadata.ModeTypeFifo:
		return 'p'
	case metadata.ModeTypeSocket:
		return 's'
	default:
		return '?'
	}
}

// xattrNamespace returns n's ordered map for ns, creating it on first use.
func (n *Node) xattrNamespace(ns metadata.Namespace) XattrMap {
	m := n.Xattrs[ns]
	if m == nil {
		m = ordermap.New(nil, nil)
		n.Xattrs[ns] = m
	}
	return m
}
