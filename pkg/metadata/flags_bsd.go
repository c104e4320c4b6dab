// +build darwin dragonfly freebsd netbsd openbsd

package metadata

import (
	"golang.org/x/sys/unix"
)

// fillFlags copies the BSD st_flags word into s on platforms that have one.
func fillFlags(st *unix.Stat_t, s *Stat) {
	s.Flags = uint32(st.Flags)
	s.HasFlags = true
}

// chflags sets the BSD flags word on path without following a trailing
// symlink.
func chflags(path string, flags uint32) error {
	return unix.Lchflags(path, int(flags))
}
