// Package filesystem provides path normalization: tilde expansion and
// absolute-path resolution for the paths given on the command line. Every
// other low-level filesystem concern (stat, ownership, device identity,
// ACLs, extended attributes) belongs to pkg/metadata, which speaks directly
// to the syscalls the replication engine needs rather than to a
// sync-engine-oriented abstraction.
package filesystem
