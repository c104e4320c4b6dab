package replica

import (
	"os"
	"path/filepath"

	"github.com/pc-replicate/pc/pkg/metadata"
	"github.com/pc-replicate/pc/pkg/rerr"
)

// Sigil identifies the one-character console marker for a driver action,
// matching the original tool's "+ - * ! ?" vocabulary.
type Sigil byte

const (
	// SigilCreated marks an object that exists in source but not destination.
	SigilCreated Sigil = '+'
	// SigilRemoved marks a destination object removed because it no longer
	// (or never did) exist in source, or is being replaced across a type
	// change.
	SigilRemoved Sigil = '-'
	// SigilReplaced marks a non-directory object re-created in place because
	// its type changed to a different non-directory type.
	SigilReplaced Sigil = '*'
	// SigilDivergent marks a same-type object whose metadata or content
	// differs under the active comparison policy.
	SigilDivergent Sigil = '!'
)

// Action records one emitted console line: the sigil, the destination path
// it concerns, and the node whose type/metadata populate the descriptor.
type Action struct {
	Sigil Sigil
	Path  string
	Node  *Node
}

// Driver orchestrates a full replication run: directory enumeration via the
// loader, per-name dispatch through the comparator, and the metadata writer
// and copy engine for every divergence it finds. It holds no state beyond
// its FS adapter, policy Config, and a Report sink; a Driver is reusable
// across multiple Run calls.
type Driver struct {
	FS     metadata.FS
	Config *Config
	// Report, if non-nil, is invoked synchronously for every emitted
	// action, in traversal order, so a CLI can print "<sigil> <path>
	// [<descriptor>]" lines as the walk proceeds rather than buffering the
	// whole run.
	Report func(Action)
	// Progress, if non-nil, is invoked with the cumulative byte count during
	// every regular-file content copy, letting a CLI maintain a single
	// overwriting status line instead of the Logger-based progress trace
	// the driver falls back to when Progress is nil.
	Progress func(path string, totalBytes int64)
}

// NewDriver constructs a Driver bound to the given platform adapter and
// policy configuration.
func NewDriver(fs metadata.FS, cfg *Config) *Driver {
	return &Driver{FS: fs, Config: cfg}
}

// progressFunc builds the ProgressFunc passed to Copy for dstPath,
// preferring the driver's Progress hook over the config's Logger-based
// fallback.
func (d *Driver) progressFunc(dstPath string) ProgressFunc {
	if d.Progress != nil {
		return func(total int64) { d.Progress(dstPath, total) }
	}
	return progressPrinter(d.Config.Logger, d.Config.Verbose, dstPath)
}

func (d *Driver) emit(sigil Sigil, path string, node *Node) {
	if d.Report != nil {
		d.Report(Action{Sigil: sigil, Path: path, Node: node})
	}
}

// fail applies the driver's error policy to a per-node failure: under the
// ignore policy it logs an ignorable failure (see rerr.IsIgnorable) and
// swallows it (returning nil so the caller continues), otherwise it returns
// err unchanged so the caller aborts the run.
func (d *Driver) fail(err error) error {
	if err == nil {
		return nil
	}
	if d.Config.Logger != nil {
		d.Config.Logger.Debugf("replica: %v", err)
	}
	if d.Config.Ignore && rerr.IsIgnorable(err) {
		if d.Config.Logger != nil {
			d.Config.Logger.Warn(err)
		}
		return nil
	}
	return err
}

// Run replicates every srcPath onto dstPath, mirroring the original tool's
// "<src-1> [.. <src-N>] <dst>" positional form: every source is loaded with
// Load's ordinary leaf/contents-mode rules (a trailing separator lifts a
// source's contents directly; otherwise it is inserted as a single
// basename-keyed entry) and the results are merged into one synthetic
// top-level directory, which is then compared against dst, always loaded
// in directory-contents mode.
func (d *Driver) Run(srcPaths []string, dstPath string) error {
	cfg := d.Config
	top := newDirNode(dstPath)
	for _, p := range srcPaths {
		sub, err := Load(d.FS, p, false, cfg)
		if err != nil {
			if err := d.fail(err); err != nil {
				return err
			}
			continue
		}
		if err := mergeInto(top, sub, cfg); err != nil {
			if err := d.fail(err); err != nil {
				return err
			}
		}
	}

	dstDir, err := Load(d.FS, dstPath, true, cfg)
	if err != nil {
		return err
	}

	return d.comparePair(top, dstDir)
}

// mergeInto folds src's entries into dst, warning (under the ignore policy)
// or failing on a duplicate top-level source name — two distinct source
// arguments producing the same destination basename.
func mergeInto(dst, src *DirNode, cfg *Config) error {
	var conflict error
	_ = src.Nodes.ForEach(func(name string, value interface{}) error {
		if !dst.Nodes.Insert(name, value) {
			conflict = rerr.Wrapf(rerr.KindExists, "merge", name, "duplicate top-level source name")
		}
		return nil
	})
	return conflict
}

// recurseInto loads both srcPath and dstPath in directory-contents mode and
// compares them, for the ordinary "descend into a same-named directory"
// case (new directory, type change to directory, or an existing directory
// pair).
func (d *Driver) recurseInto(srcPath, dstPath string) error {
	srcDir, err := Load(d.FS, srcPath, true, d.Config)
	if err != nil {
		return err
	}
	dstDir, err := Load(d.FS, dstPath, true, d.Config)
	if err != nil {
		return err
	}
	return d.comparePair(srcDir, dstDir)
}

// recurseForRemoval pairs dstPath's existing contents against a synthetic
// empty source directory, so every entry beneath it is processed as
// "absent from source." Used both by the ordinary expunge pass and by the
// directory-to-non-directory type-change branch, which must empty a
// directory before it can be rmdir'd.
func (d *Driver) recurseForRemoval(dstPath string) error {
	empty := newDirNode(dstPath)
	childDst, err := Load(d.FS, dstPath, true, d.Config)
	if err != nil {
		return err
	}
	return d.comparePair(empty, childDst)
}

// comparePair is the per-directory driver core: it dispatches every name in
// srcDir against its destination counterpart (creation, type change, or
// same-type comparison), then — if the expunge policy is active — walks
// dstDir for names absent from srcDir and removes them.
func (d *Driver) comparePair(srcDir, dstDir *DirNode) error {
	cfg := d.Config

	err := srcDir.Nodes.ForEach(func(name string, value interface{}) error {
		src := value.(*Node)
		dstPath := filepath.Join(dstDir.Path, name)
		var dst *Node
		if v, ok := dstDir.Nodes.Search(name); ok {
			dst = v.(*Node)
		}
		return d.fail(d.handleName(src, dst, dstPath))
	})
	if err != nil {
		return err
	}

	if !cfg.Expunge {
		return nil
	}

	var names []string
	_ = dstDir.Nodes.ForEach(func(name string, _ interface{}) error {
		if _, ok := srcDir.Nodes.Search(name); !ok {
			names = append(names, name)
		}
		return nil
	})
	for _, name := range names {
		v, _ := dstDir.Nodes.Search(name)
		node := v.(*Node)
		path := filepath.Join(dstDir.Path, name)
		if err := d.fail(d.removeNode(node, path)); err != nil {
			return err
		}
	}
	return nil
}

// handleName dispatches a single name: destination missing, type changed,
// or same type.
func (d *Driver) handleName(src, dst *Node, dstPath string) error {
	if dst == nil {
		return d.create(src, dstPath)
	}
	srcType := src.Stat.Mode & metadata.ModeTypeMask
	dstType := dst.Stat.Mode & metadata.ModeTypeMask
	if srcType != dstType {
		return d.typeChange(src, dst, dstPath)
	}
	return d.sameType(src, dst, dstPath)
}

// create handles "destination missing": emit '+', create the destination
// object matching src's type, recurse into it first if it is a directory,
// then apply metadata — recursion precedes the metadata update so a
// directory's mtime is not perturbed by the children's own writes.
func (d *Driver) create(src *Node, dstPath string) error {
	cfg := d.Config
	d.emit(SigilCreated, dstPath, src)
	if cfg.DryRun {
		return nil
	}

	if err := d.createObject(src, dstPath); err != nil {
		return err
	}
	if cfg.Recurse && src.IsDir() {
		if err := d.recurseInto(src.Path, dstPath); err != nil {
			return err
		}
	}
	return d.applyMetadata(src, nil, dstPath)
}

// typeChange handles "same name, different type" as a three-way split:
// non-dir to dir, dir to non-dir, and non-dir to non-dir.
func (d *Driver) typeChange(src, dst *Node, dstPath string) error {
	switch {
	case src.IsDir() && !dst.IsDir():
		return d.typeChangeToDir(src, dst, dstPath)
	case !src.IsDir() && dst.IsDir():
		return d.typeChangeFromDir(src, dst, dstPath)
	default:
		return d.typeChangeNonDirToNonDir(src, dst, dstPath)
	}
}

// typeChangeToDir replaces a non-directory destination with a directory:
// unlink, mkdir, recurse into the (now real) pair, then apply metadata.
func (d *Driver) typeChangeToDir(src, dst *Node, dstPath string) error {
	cfg := d.Config
	d.emit(SigilRemoved, dstPath, dst)
	d.emit(SigilCreated, dstPath, src)
	if cfg.DryRun {
		return nil
	}

	if err := os.Remove(dstPath); err != nil {
		return rerr.Wrap(kindForOpenErr(err), "unlink", dstPath, err)
	}
	if err := os.Mkdir(dstPath, os.FileMode(src.Stat.Mode&metadata.ModePermissionsMask)); err != nil {
		return rerr.Wrap(kindForOpenErr(err), "mkdir", dstPath, err)
	}
	if cfg.Recurse {
		if err := d.recurseInto(src.Path, dstPath); err != nil {
			return err
		}
	}
	return d.applyMetadata(src, nil, dstPath)
}

// typeChangeFromDir replaces a directory destination with a non-directory:
// recurse first (emptying it, if recursion and expunge are both active),
// then rmdir, then create the new object by type, then apply metadata.
func (d *Driver) typeChangeFromDir(src, dst *Node, dstPath string) error {
	cfg := d.Config
	if cfg.Recurse {
		if err := d.recurseForRemoval(dstPath); err != nil {
			return err
		}
	}

	d.emit(SigilRemoved, dstPath, dst)
	d.emit(SigilCreated, dstPath, src)
	if cfg.DryRun {
		return nil
	}

	if err := os.Remove(dstPath); err != nil {
		return rerr.Wrap(kindForOpenErr(err), "rmdir", dstPath, err)
	}
	if err := d.createObject(src, dstPath); err != nil {
		return err
	}
	return d.applyMetadata(src, nil, dstPath)
}

// typeChangeNonDirToNonDir replaces one non-directory object with another of
// a different type: unlink, recreate by type, apply metadata.
func (d *Driver) typeChangeNonDirToNonDir(src, dst *Node, dstPath string) error {
	cfg := d.Config
	d.emit(SigilReplaced, dstPath, src)
	if cfg.DryRun {
		return nil
	}

	if err := os.Remove(dstPath); err != nil {
		return rerr.Wrap(kindForOpenErr(err), "unlink", dstPath, err)
	}
	if err := d.createObject(src, dstPath); err != nil {
		return err
	}
	return d.applyMetadata(src, nil, dstPath)
}

// sameType handles "same name, same type": recurse first if it's a
// directory, compute the divergence mask, and if force or any bit is set,
// emit '!' and act per category before applying residual metadata.
func (d *Driver) sameType(src, dst *Node, dstPath string) error {
	cfg := d.Config

	if cfg.Recurse && src.IsDir() {
		if err := d.recurseInto(src.Path, dstPath); err != nil {
			return err
		}
	}

	div := Compare(src, dst, cfg)
	if !cfg.Force && div == 0 {
		return nil
	}

	d.emit(SigilDivergent, dstPath, src)
	if cfg.DryRun {
		return nil
	}

	switch {
	case src.IsRegular() && cfg.Content && (cfg.Force || div&ContentMask != 0):
		progress := d.progressFunc(dstPath)
		if err := Copy(src.Path, dstPath, src.Stat.Mode&metadata.ModePermissionsMask, cfg, progress); err != nil {
			return err
		}
	case src.IsSymlink() && (cfg.Force || div&SymlinkContentMask != 0):
		if err := os.Remove(dstPath); err != nil {
			return rerr.Wrap(kindForOpenErr(err), "unlink", dstPath, err)
		}
		if err := os.Symlink(src.LinkTarget, dstPath); err != nil {
			return rerr.Wrap(kindForOpenErr(err), "symlink", dstPath, err)
		}
	case isDeviceMode(src.Stat.Mode) && (cfg.Force || div&DivergenceDeviceRdev != 0):
		if err := os.Remove(dstPath); err != nil {
			return rerr.Wrap(kindForOpenErr(err), "unlink", dstPath, err)
		}
		if err := d.FS.Mknod(dstPath, src.Stat.Mode, src.Stat.Rdev); err != nil {
			return err
		}
	}

	return d.applyMetadata(src, dst, dstPath)
}

// removeNode removes a destination object absent from source: it recurses
// first (if the recurse policy is active and the object is a directory,
// clearing its children via recurseForRemoval), then unlinks or rmdirs the
// object itself regardless, mirroring the original tool's check_removed,
// which always attempts the final removal whether or not recursion ran.
func (d *Driver) removeNode(node *Node, path string) error {
	cfg := d.Config
	if cfg.Recurse && node.IsDir() {
		if err := d.recurseForRemoval(path); err != nil {
			return err
		}
	}

	d.emit(SigilRemoved, path, node)
	if cfg.DryRun {
		return nil
	}

	op := "unlink"
	if node.IsDir() {
		op = "rmdir"
	}
	if err := os.Remove(path); err != nil {
		return rerr.Wrap(kindForOpenErr(err), op, path, err)
	}
	return nil
}

// createObject creates the destination object matching src's type. Regular
// files are skipped entirely when cfg.Content is off (metadata-only
// replication never materializes new file content), matching the original
// tool's behavior of simply not calling file_copy in that case.
func (d *Driver) createObject(src *Node, dstPath string) error {
	cfg := d.Config
	mode := src.Stat.Mode & metadata.ModePermissionsMask

	switch {
	case src.IsRegular():
		if !cfg.Content {
			return nil
		}
		progress := d.progressFunc(dstPath)
		return Copy(src.Path, dstPath, mode, cfg, progress)
	case src.IsDir():
		if err := os.Mkdir(dstPath, os.FileMode(mode)); err != nil {
			return rerr.Wrap(kindForOpenErr(err), "mkdir", dstPath, err)
		}
		return nil
	case src.IsSymlink():
		if err := os.Symlink(src.LinkTarget, dstPath); err != nil {
			return rerr.Wrap(kindForOpenErr(err), "symlink", dstPath, err)
		}
		return nil
	case isDeviceMode(src.Stat.Mode):
		return d.FS.Mknod(dstPath, src.Stat.Mode, src.Stat.Rdev)
	case src.Stat.Mode&metadata.ModeTypeMask == metadata.ModeTypeFifo:
		return d.FS.Mkfifo(dstPath, mode)
	case src.Stat.Mode&metadata.ModeTypeMask == metadata.ModeTypeSocket:
		return d.FS.BindUnixSocket(dstPath)
	default:
		return rerr.Wrapf(rerr.KindInternal, "create", dstPath, "unrecognized node type 0x%x", src.Stat.Mode&metadata.ModeTypeMask)
	}
}

// applyMetadata runs the metadata writer, honoring dry-run. A regular file
// that createObject skipped because cfg.Content is off (dst is nil, so no
// destination object was created) gets no metadata either.
func (d *Driver) applyMetadata(src, dst *Node, dstPath string) error {
	if d.Config.DryRun {
		return nil
	}
	if dst == nil && src.IsRegular() && !d.Config.Content {
		return nil
	}
	return Update(d.FS, src, dst, dstPath, d.Config)
}
