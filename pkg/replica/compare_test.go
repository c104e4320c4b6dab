package replica

import (
	"testing"
	"time"

	"github.com/pc-replicate/pc/pkg/metadata"
)

func regularNode(path string, mtime time.Time, size int64) *Node {
	n := NewNode(path)
	n.Stat = &metadata.Stat{
		Mode:  metadata.ModeTypeFile | 0644,
		Size:  size,
		Mtime: mtime,
	}
	return n
}

func TestMtimeDiffersOff(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)
	if mtimeDiffers(newer, older, TimesOff) {
		t.Error("TimesOff should never flag a mtime difference")
	}
	if mtimeDiffers(older, newer, TimesOff) {
		t.Error("TimesOff should never flag a mtime difference")
	}
}

func TestMtimeDiffersCompareIsNewerOnly(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)

	if !mtimeDiffers(newer, older, TimesCompare) {
		t.Error("TimesCompare should flag when src is newer than dst")
	}
	if mtimeDiffers(older, newer, TimesCompare) {
		t.Error("TimesCompare should not flag when src is older than dst")
	}
	if mtimeDiffers(older, older, TimesCompare) {
		t.Error("TimesCompare should not flag equal mtimes")
	}
}

func TestMtimeDiffersRestoreIsAnyChange(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)

	if !mtimeDiffers(newer, older, TimesRestore) {
		t.Error("TimesRestore should flag when src is newer than dst")
	}
	if !mtimeDiffers(older, newer, TimesRestore) {
		t.Error("TimesRestore should flag when src is older than dst")
	}
	if mtimeDiffers(older, older, TimesRestore) {
		t.Error("TimesRestore should not flag equal mtimes")
	}
}

// TestCompareTimesCompareIgnoresDestinationNewer mirrors
// original_source/pc.c's f_times < 2 branch: under plain "-t" (TimesCompare),
// a destination with a newer mtime than the source must not be flagged
// divergent, since that would trigger an unwanted recopy.
func TestCompareTimesCompareIgnoresDestinationNewer(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)

	src := regularNode("src/a", older, 5)
	dst := regularNode("dst/a", newer, 5)

	cfg := NewConfig()
	cfg.Times = TimesCompare

	if d := Compare(src, dst, cfg); d&DivergenceMtime != 0 {
		t.Errorf("Compare flagged DivergenceMtime for a destination newer than source under TimesCompare: %v", d)
	}
}

func TestCompareTimesRestoreFlagsAnyMtimeChange(t *testing.T) {
	older := time.Unix(1000, 0)
	newer := time.Unix(2000, 0)

	src := regularNode("src/a", older, 5)
	dst := regularNode("dst/a", newer, 5)

	cfg := NewConfig()
	cfg.Times = TimesRestore

	if d := Compare(src, dst, cfg); d&DivergenceMtime == 0 {
		t.Errorf("Compare did not flag DivergenceMtime under TimesRestore for differing mtimes: %v", d)
	}
}
