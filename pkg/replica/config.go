package replica

import (
	"github.com/pc-replicate/pc/pkg/digest"
	"github.com/pc-replicate/pc/pkg/logging"
)

// TimesPolicy controls how aggressively the metadata writer restores
// timestamps, mirroring the "-t"/"-tt" intensity levels.
type TimesPolicy uint8

const (
	// TimesOff performs no mtime comparison or restoration.
	TimesOff TimesPolicy = iota
	// TimesCompare compares mtime (feeding the divergence bitmask) but does
	// not restore atime/mtime on the destination.
	TimesCompare
	// TimesRestore compares mtime and additionally restores atime and mtime
	// on the destination after every mutating or divergent operation.
	TimesRestore
)

// Verbosity controls console output detail, mirroring the "-v" intensity
// levels.
type Verbosity uint8

const (
	// VerbositySilent prints nothing.
	VerbositySilent Verbosity = iota
	// VerbosityAction prints one sigil line per mutating or divergent
	// action.
	VerbosityAction
	// VerbosityProgress additionally prints a running byte-copy progress
	// line for regular file content copies.
	VerbosityProgress
	// VerbosityDetail additionally prints the full node descriptor after
	// every sigil line.
	VerbosityDetail
)

// Config collects every policy knob governing a replication run. It is
// always passed by reference and never read from package-level state; the
// one piece of process-wide information the comparator needs —
// CallerGroups — is captured once at CLI startup and stored here rather
// than read lazily from the OS on every comparison.
type Config struct {
	// DryRun disables all mutations; the driver still walks, compares, and
	// logs, but performs no filesystem writes.
	DryRun bool
	// Force treats every compared node as divergent, regardless of what the
	// comparator would otherwise report.
	Force bool
	// Ignore continues past per-node errors instead of aborting the run.
	Ignore bool
	// Recurse descends into directories.
	Recurse bool
	// Preserve restores mode bits.
	Preserve bool
	// Owner restores uid/gid.
	Owner bool
	// Times controls mtime comparison and atime/mtime restoration.
	Times TimesPolicy
	// Expunge enables the destination-side removal pass for names absent
	// from the source.
	Expunge bool
	// Content enables regular-file content replication; when false, only
	// metadata is ever applied to existing regular files.
	Content bool
	// ZeroFill enables sparse-hole detection during content copy.
	ZeroFill bool
	// ACLs enables ACL replication (nfs4, access, default).
	ACLs bool
	// Xattrs enables extended-attribute replication (user, system).
	Xattrs bool
	// FileFlags enables BSD file flag replication.
	FileFlags bool
	// ArchiveBit enables clearing the source's archive flag after a
	// successful per-file replication. Default off: this is the one
	// observable mutation of the source tree, so it must be explicitly
	// requested.
	ArchiveBit bool
	// BufferSize is the copy engine's block size, in bytes.
	BufferSize int
	// Digest is the content digest algorithm used to detect divergence
	// cheaply; digest.None disables digesting.
	Digest digest.Algorithm
	// Verbose controls console output detail.
	Verbose Verbosity
	// CallerGroups is the caller's supplementary group set, captured once
	// at startup, used to decide whether a gid change is enactable without
	// a root privilege check on every comparison.
	CallerGroups []int
	// CallerUID is the effective uid of the calling process, used to decide
	// whether ownership changes are even attemptable.
	CallerUID int
	// Logger receives per-action, per-node, and adapter-level trace output.
	// A nil Logger is valid; every call site must tolerate it.
	Logger *logging.Logger
}

// DefaultBufferSize is the copy engine's block size when the caller does not
// specify one via -B/--buffer-size.
const DefaultBufferSize = 128 * 1024

// NewConfig returns a Config with every policy knob at its conservative
// off/default value and a buffer size of DefaultBufferSize.
func NewConfig() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
		Digest:     digest.None,
		Content:    true,
	}
}

// InGroupSet reports whether gid is a member of the caller's supplementary
// group set, mirroring the original tool's in_gidset helper.
func (c *Config) InGroupSet(gid int) bool {
	for _, g := range c.CallerGroups {
		if g == gid {
			return true
		}
	}
	return false
}

// CanChangeOwner reports whether the caller is permitted to set the
// destination's owner to srcUID, mirroring node_compare's uid-divergence
// gating: the change is only meaningful if the caller already owns that uid
// or is root.
func (c *Config) CanChangeOwner(srcUID int) bool {
	return c.CallerUID == 0 || c.CallerUID == srcUID
}

// CanChangeGroup reports whether the caller is permitted to set the
// destination's group to srcGID, mirroring node_compare's gid-divergence
// gating.
func (c *Config) CanChangeGroup(srcGID int) bool {
	return c.CallerUID == 0 || c.InGroupSet(srcGID)
}

func (c *Config) log() *logging.Logger {
	return c.Logger
}
