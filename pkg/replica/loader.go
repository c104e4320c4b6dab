package replica

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pc-replicate/pc/pkg/digest"
	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/ordermap"
	"github.com/pc-replicate/pc/pkg/rerr"
)

// DirNode is a directory node: a path paired with an ordered map of
// basename -> *Node. A single leaf Node may also be the lone entry of a
// synthetic DirNode, so that a leaf path and a real directory present a
// uniform shape to the driver.
type DirNode struct {
	Path  string
	Nodes *ordermap.Map
}

// disposeNode is the ordermap Disposer for directory node maps; Node values
// carry no external resources beyond what Go's garbage collector already
// reclaims, so this is a no-op hook kept for symmetry with the container
// contract (every ordermap.New call site states its disposal policy
// explicitly rather than leaving it implicit).
func disposeNode(interface{}) {}

// newDirNode creates an empty directory node rooted at path.
func newDirNode(path string) *DirNode {
	return &DirNode{Path: path, Nodes: ordermap.New(nil, disposeNode)}
}

// Load populates a directory node for path. If contentsMode is true, or
// path carries one or more trailing separators, path is opened as a
// directory and one Node is inserted per immediate child (excluding "."
// and ".."), keyed by child name. Otherwise a single Node is inserted,
// keyed by path's final component, for the case where a leaf path is being
// replicated onto a directory.
//
// A source path that does not exist yields an empty directory node rather
// than an error, so that comparison against it naturally reports "all new".
// Permission errors propagate.
func Load(fs metadata.FS, path string, contentsMode bool, cfg *Config) (*DirNode, error) {
	trailingSeparator := strings.HasSuffix(path, string(filepath.Separator))
	dir := newDirNode(path)

	if !contentsMode && !trailingSeparator {
		node, err := loadNode(fs, path, cfg)
		if err != nil {
			if rerr.KindOf(err) == rerr.KindNotFound {
				return dir, nil
			}
			return nil, err
		}
		name := filepath.Base(path)
		dir.Nodes.Insert(name, node)
		return dir, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dir, nil
		}
		return nil, rerr.Wrap(kindForDirErr(err), "readdir", path, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		childPath := filepath.Join(path, name)
		node, err := loadNode(fs, childPath, cfg)
		if err != nil {
			if rerr.KindOf(err) == rerr.KindNotFound {
				// Raced with a concurrent removal between ReadDir and
				// Lstat; skip it rather than fail the whole directory.
				continue
			}
			return nil, err
		}
		dir.Nodes.Insert(name, node)
	}
	return dir, nil
}

// loadNode builds a fully populated Node for path, conditional on the
// feature flags active in cfg.
func loadNode(fs metadata.FS, path string, cfg *Config) (*Node, error) {
	stat, err := fs.Lstat(path)
	if err != nil {
		return nil, err
	}

	node := NewNode(path)
	node.Stat = stat

	if stat.IsSymlink() {
		target, err := fs.Readlink(path)
		if err != nil {
			return nil, err
		}
		node.LinkTarget = target
	}

	if cfg.ACLs {
		kinds := []metadata.AclKind{metadata.AclNFS4, metadata.AclAccess}
		if stat.IsDir() {
			kinds = append(kinds, metadata.AclDefault)
		}
		for _, kind := range kinds {
			a, err := fs.AclGet(path, kind, stat.IsSymlink())
			if err != nil {
				if rerr.KindOf(err) == rerr.KindUnsupported {
					continue
				}
				return nil, err
			}
			if a != nil {
				node.ACLs[kind] = a
			}
		}
	}

	if cfg.Xattrs {
		for _, ns := range []metadata.Namespace{metadata.NamespaceUser, metadata.NamespaceSystem} {
			names, err := fs.XattrList(path, ns, stat.IsSymlink() == false)
			if err != nil {
				if rerr.KindOf(err) == rerr.KindUnsupported {
					continue
				}
				return nil, err
			}
			if len(names) == 0 {
				continue
			}
			m := node.xattrNamespace(ns)
			for _, name := range names {
				value, err := fs.XattrGet(path, ns, name, stat.IsSymlink() == false)
				if err != nil {
					if rerr.KindOf(err) == rerr.KindUnsupported {
						continue
					}
					return nil, err
				}
				m.Insert(name, value)
			}
		}
	}

	if cfg.Digest != digest.None && stat.IsRegular() {
		sum, err := digestFile(path, cfg.Digest, cfg.BufferSize)
		if err != nil {
			return nil, err
		}
		node.DigestAlgorithm = cfg.Digest
		node.Digest = sum
	}

	return node, nil
}

// digestFile streams path through the given digest algorithm, reading in
// bufferSize chunks.
func digestFile(path string, algorithm digest.Algorithm, bufferSize int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.Wrap(kindForDirErr(err), "digest", path, err)
	}
	defer f.Close()

	d, err := digest.Init(algorithm)
	if err != nil {
		return nil, rerr.Wrap(rerr.KindUnsupported, "digest", path, err)
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buf := make([]byte, bufferSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			d.Update(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerr.Wrap(rerr.KindIO, "digest", path, err)
		}
	}
	return d.Final(), nil
}

func kindForDirErr(err error) rerr.Kind {
	switch {
	case os.IsNotExist(err):
		return rerr.KindNotFound
	case os.IsPermission(err):
		return rerr.KindPermission
	case os.IsExist(err):
		return rerr.KindExists
	default:
		return rerr.KindIO
	}
}
