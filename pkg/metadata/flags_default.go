// +build !windows,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

package metadata

import (
	"golang.org/x/sys/unix"
)

// fillFlags is a no-op on platforms with no BSD flags word (Linux and
// friends); Stat.HasFlags stays false so comparison and application always
// treat flags as a match.
func fillFlags(st *unix.Stat_t, s *Stat) {}

// chflags always reports unsupported on platforms with no flags word.
func chflags(path string, flags uint32) error {
	return unix.EOPNOTSUPP
}
