package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateAndCleanup(t *testing.T) {
	staging := t.TempDir()

	ws, err := Create(staging)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Root()), "job-") {
		t.Fatalf("root = %q", ws.Root())
	}
	if _, err := os.Stat(ws.Root()); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}

	if err := os.WriteFile(ws.Path("scratch.mp3"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write scratch: %v", err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Root()); !os.IsNotExist(err) {
		t.Fatalf("workspace survived cleanup: %v", err)
	}
}

func TestCreateRejectsEmptyStagingDir(t *testing.T) {
	if _, err := Create("  "); err == nil {
		t.Fatal("expected error for empty staging dir")
	}
}

func TestCreateUniqueDirectories(t *testing.T) {
	staging := t.TempDir()
	a, err := Create(staging)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := Create(staging)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if a.Root() == b.Root() {
		t.Fatalf("duplicate workspace roots: %q", a.Root())
	}
}

func TestPublish(t *testing.T) {
	staging := t.TempDir()
	output := filepath.Join(t.TempDir(), "nested", "out")

	ws, err := Create(staging)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	artifact := ws.Path("mixed.mp3")
	if err := os.WriteFile(artifact, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	dest, err := ws.Publish(artifact, output, "final.mp3")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if dest != filepath.Join(output, "final.mp3") {
		t.Fatalf("dest = %q", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read published: %v", err)
	}
	if string(data) != "audio bytes" {
		t.Fatalf("published content = %q", data)
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Fatalf("artifact still in workspace: %v", err)
	}
}

func TestPublishDefaultsNameToBase(t *testing.T) {
	staging := t.TempDir()
	output := t.TempDir()

	ws, err := Create(staging)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	artifact := ws.Path("result.mp3")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	dest, err := ws.Publish(artifact, output, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if filepath.Base(dest) != "result.mp3" {
		t.Fatalf("dest = %q", dest)
	}
}

func TestCleanStale(t *testing.T) {
	staging := t.TempDir()

	stale := filepath.Join(staging, "job-stale")
	fresh := filepath.Join(staging, "job-fresh")
	other := filepath.Join(staging, "unrelated")
	for _, dir := range []string{stale, fresh, other} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := CleanStale(staging, 24*time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh workspace removed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("non-workspace dir removed: %v", err)
	}
}

func TestCleanStaleMissingDir(t *testing.T) {
	result := CleanStale(filepath.Join(t.TempDir(), "missing"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
