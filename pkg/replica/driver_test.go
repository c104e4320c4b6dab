package replica

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pc-replicate/pc/pkg/metadata"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
}

func runDriver(t *testing.T, cfg *Config, srcPaths []string, dstPath string) []Action {
	t.Helper()
	var actions []Action
	driver := NewDriver(metadata.New(), cfg)
	driver.Report = func(a Action) { actions = append(actions, a) }
	if err := driver.Run(srcPaths, dstPath); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return actions
}

func baseConfig() *Config {
	cfg := NewConfig()
	cfg.Recurse = true
	cfg.Preserve = true
	cfg.Owner = true
	return cfg
}

func TestDriverCreatesMissingTree(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.txt"), "hello")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "world")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig()
	actions := runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	created := map[string]bool{}
	for _, a := range actions {
		if a.Sigil == SigilCreated {
			created[filepath.Base(a.Path)] = true
		}
	}
	if !created["a.txt"] || !created["sub"] || !created["b.txt"] {
		t.Fatalf("expected a.txt, sub, b.txt to be created, got %v", created)
	}

	for _, p := range []string{
		filepath.Join(dst, "a.txt"),
		filepath.Join(dst, "sub", "b.txt"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}

	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Errorf("a.txt content = %q, %v; want hello", got, err)
	}
}

func TestDriverExpungeRemovesAbsentNames(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "keep.txt"), "keep")
	writeFile(t, filepath.Join(dst, "keep.txt"), "keep")
	writeFile(t, filepath.Join(dst, "stale.txt"), "stale")

	cfg := baseConfig()
	cfg.Expunge = true
	actions := runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	var removed bool
	for _, a := range actions {
		if a.Sigil == SigilRemoved && filepath.Base(a.Path) == "stale.txt" {
			removed = true
		}
	}
	if !removed {
		t.Fatal("expected stale.txt to be reported removed")
	}
	if _, err := os.Stat(filepath.Join(dst, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("expected stale.txt to be deleted, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "keep.txt")); err != nil {
		t.Errorf("keep.txt should survive: %v", err)
	}
}

func TestDriverWithoutExpungeLeavesStaleNamesAlone(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dst, "stale.txt"), "stale")

	cfg := baseConfig()
	runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	if _, err := os.Stat(filepath.Join(dst, "stale.txt")); err != nil {
		t.Errorf("stale.txt should survive without --expunge: %v", err)
	}
}

func TestDriverDryRunPerformsNoMutation(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.txt"), "hello")

	cfg := baseConfig()
	cfg.DryRun = true
	actions := runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	if len(actions) == 0 {
		t.Fatal("expected a reported action even in dry-run")
	}
	if _, err := os.Stat(filepath.Join(dst, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("dry-run should not create a.txt, stat err = %v", err)
	}
}

func TestDriverTypeChangeNonDirToDir(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(filepath.Join(src, "node"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "node", "inner.txt"), "inner")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dst, "node"), "was a file")

	cfg := baseConfig()
	actions := runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	var sawRemoved, sawCreated bool
	for _, a := range actions {
		if filepath.Base(a.Path) == "node" {
			if a.Sigil == SigilRemoved {
				sawRemoved = true
			}
			if a.Sigil == SigilCreated {
				sawCreated = true
			}
		}
	}
	if !sawRemoved || !sawCreated {
		t.Fatalf("expected node to be reported both removed and created, actions = %+v", actions)
	}

	info, err := os.Stat(filepath.Join(dst, "node"))
	if err != nil || !info.IsDir() {
		t.Fatalf("expected dst/node to now be a directory: %v, %v", info, err)
	}
	if _, err := os.Stat(filepath.Join(dst, "node", "inner.txt")); err != nil {
		t.Errorf("expected dst/node/inner.txt to exist after recursion: %v", err)
	}
}

func TestDriverTypeChangeDirToNonDirWithExpunge(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "node"), "now a file")
	if err := os.MkdirAll(filepath.Join(dst, "node"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dst, "node", "leftover.txt"), "leftover")

	cfg := baseConfig()
	cfg.Expunge = true
	runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	info, err := os.Stat(filepath.Join(dst, "node"))
	if err != nil || info.IsDir() {
		t.Fatalf("expected dst/node to now be a regular file: %v, %v", info, err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "node"))
	if err != nil || string(got) != "now a file" {
		t.Errorf("dst/node content = %q, %v; want %q", got, err, "now a file")
	}
}

func TestDriverSameTypeDivergentContentIsCopied(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.txt"), "new content")
	writeFile(t, filepath.Join(dst, "a.txt"), "old content, longer than new")

	cfg := baseConfig()
	actions := runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	var divergent bool
	for _, a := range actions {
		if a.Sigil == SigilDivergent && filepath.Base(a.Path) == "a.txt" {
			divergent = true
		}
	}
	if !divergent {
		t.Fatalf("expected a.txt to be reported divergent, actions = %+v", actions)
	}
	got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	if err != nil || string(got) != "new content" {
		t.Errorf("a.txt content = %q, %v; want %q", got, err, "new content")
	}
}

func TestDriverNoCopySkipsContentOnCreate(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.txt"), "content")

	cfg := baseConfig()
	cfg.Content = false
	runDriver(t, cfg, []string{src + string(os.PathSeparator)}, dst)

	if _, err := os.Stat(filepath.Join(dst, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("expected no file to be created with --no-copy, stat err = %v", err)
	}
}

func TestDriverMergesMultipleSources(t *testing.T) {
	root := t.TempDir()
	srcA := filepath.Join(root, "srcA")
	srcB := filepath.Join(root, "srcB")
	dst := filepath.Join(root, "dst")
	if err := os.MkdirAll(srcA, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(srcB, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(srcA, "a.txt"), "from a")
	writeFile(t, filepath.Join(srcB, "b.txt"), "from b")

	cfg := baseConfig()
	runDriver(t, cfg, []string{
		srcA + string(os.PathSeparator),
		srcB + string(os.PathSeparator),
	}, dst)

	if _, err := os.Stat(filepath.Join(dst, "a.txt")); err != nil {
		t.Errorf("expected a.txt from srcA: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "b.txt")); err != nil {
		t.Errorf("expected b.txt from srcB: %v", err)
	}
}
