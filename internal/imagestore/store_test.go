package imagestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveCreatesDirAndKeepsExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	path, err := s.Save(context.Background(), "photo.PNG", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("path %s is not absolute", path)
	}
	if filepath.Dir(path) != s.Dir() {
		t.Errorf("path %s not under %s", path, s.Dir())
	}
	if filepath.Ext(path) != ".PNG" {
		t.Errorf("extension = %s, want .PNG", filepath.Ext(path))
	}
	if strings.Contains(filepath.Base(path), "photo") {
		t.Errorf("original name leaked into %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "pixels" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func TestStore_SaveUsesDistinctNames(t *testing.T) {
	s, _ := New(t.TempDir())
	a, _ := s.Save(context.Background(), "a.jpg", strings.NewReader("1"))
	b, _ := s.Save(context.Background(), "a.jpg", strings.NewReader("2"))
	if a == b {
		t.Fatal("two saves produced the same path")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStore_SaveRemovesPartialFile(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Save(context.Background(), "a.jpg", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %d entries", len(entries))
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := New(t.TempDir())
	path, _ := s.Save(context.Background(), "a.gif", strings.NewReader("x"))
	if err := s.Delete(path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
	if err := s.Delete(path); err != nil {
		t.Errorf("Delete() of missing file error = %v", err)
	}
	if err := s.Delete(""); err != nil {
		t.Errorf("Delete(\"\") error = %v", err)
	}
}

func TestStore_Sweep(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	keep, _ := s.Save(ctx, "keep.png", strings.NewReader("k"))
	orphan, _ := s.Save(ctx, "orphan.png", strings.NewReader("o"))
	past := time.Now().Add(-time.Minute)
	for _, p := range []string{keep, orphan} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Sweep(ctx, map[string]struct{}{keep: {}}, 0)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("referenced image was removed")
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphan image still exists")
	}
}

func TestStore_SweepMissingDir(t *testing.T) {
	s, _ := New(filepath.Join(t.TempDir(), "never-created"))
	removed, err := s.Sweep(context.Background(), nil, 0)
	if err != nil || removed != 0 {
		t.Errorf("Sweep() = %d, %v", removed, err)
	}
}

func TestStore_SweepSkipsRecentFiles(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()
	fresh, _ := s.Save(ctx, "fresh.png", strings.NewReader("f"))
	old, _ := s.Save(ctx, "old.png", strings.NewReader("o"))
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Sweep(ctx, nil, time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("recent image was removed")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old orphan still exists")
	}
}
