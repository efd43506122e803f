package finder

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

func TestFindSnapshotFiles(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	writeFile(t, filepath.Join(root, "a.json"), now)
	writeFile(t, filepath.Join(root, "nested", "b.YAML"), now)
	writeFile(t, filepath.Join(root, "nested", "c.yml"), now)
	writeFile(t, filepath.Join(root, "notes.txt"), now)
	writeFile(t, filepath.Join(root, ".git", "config.json"), now)

	files, err := FindSnapshotFiles(root)
	if err != nil {
		t.Fatalf("FindSnapshotFiles() error = %v", err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		got = append(got, filepath.ToSlash(rel))
	}
	sort.Strings(got)

	want := []string{"a.json", "nested/b.YAML", "nested/c.yml"}
	if len(got) != len(want) {
		t.Fatalf("FindSnapshotFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindSnapshotFiles()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLatestSnapshot(t *testing.T) {
	root := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(root, "old.json"), base)
	writeFile(t, filepath.Join(root, "new.yaml"), base.Add(10*time.Minute))
	writeFile(t, filepath.Join(root, "newer.txt"), base.Add(20*time.Minute))

	latest, err := LatestSnapshot(root)
	if err != nil {
		t.Fatalf("LatestSnapshot() error = %v", err)
	}
	if filepath.Base(latest) != "new.yaml" {
		t.Errorf("LatestSnapshot() = %s, want new.yaml", latest)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	_, err := LatestSnapshot(t.TempDir())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot, got %v", err)
	}
}
