package replica

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyReplicatesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	contents := []byte("the quick brown fox")
	if err := os.WriteFile(srcPath, contents, 0600); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := Copy(srcPath, dstPath, 0640, cfg, nil); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("unable to read destination: %v", err)
	}
	if !bytes.Equal(got, contents) {
		t.Errorf("destination content = %q, want %q", got, contents)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("destination mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestCopyReportsProgress(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	contents := bytes.Repeat([]byte("x"), 10)
	if err := os.WriteFile(srcPath, contents, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	cfg.BufferSize = 4
	var totals []int64
	if err := Copy(srcPath, dstPath, 0644, cfg, func(total int64) {
		totals = append(totals, total)
	}); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	if len(totals) == 0 {
		t.Fatal("expected at least one progress callback")
	}
	if totals[len(totals)-1] != int64(len(contents)) {
		t.Errorf("final progress total = %d, want %d", totals[len(totals)-1], len(contents))
	}
}

func TestCopyZeroFillElidesZeroBlocksButPreservesLength(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src")
	dstPath := filepath.Join(dir, "dst")

	contents := make([]byte, 32)
	copy(contents[len(contents)-4:], []byte("tail"))
	if err := os.WriteFile(srcPath, contents, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	cfg.ZeroFill = true
	cfg.BufferSize = 8
	if err := Copy(srcPath, dstPath, 0644, cfg, nil); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, contents) {
		t.Errorf("zero-fill copy content mismatch: got %q, want %q", got, contents)
	}
	info, err := os.Stat(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(contents)) {
		t.Errorf("zero-fill copy size = %d, want %d", info.Size(), len(contents))
	}
}

func TestCopyMissingSourceIsNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	err := Copy(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), 0644, cfg, nil)
	if err == nil {
		t.Fatal("expected an error for a missing source")
	}
}

func TestIsAllZero(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want bool
	}{
		{"empty", nil, true},
		{"all zero", make([]byte, 16), true},
		{"one nonzero", []byte{0, 0, 1, 0}, false},
	}
	for _, c := range cases {
		if got := isAllZero(c.in); got != c.want {
			t.Errorf("%s: isAllZero = %v, want %v", c.name, got, c.want)
		}
	}
}
