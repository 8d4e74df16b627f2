package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveDirContents_EmptiesButKeepsDir(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"one.txt", "two.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "deep.txt"), []byte("deep"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := RemoveDirContents(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Three top-level entries; the nested file goes with its directory.
	if len(removed) != 3 {
		t.Errorf("removed %d entries, want 3", len(removed))
	}

	if !DirExists(dir) {
		t.Error("the directory itself must survive")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries, want 0", len(entries))
	}
}

func TestRemoveDirContents_MissingDirIsNotAnError(t *testing.T) {
	removed, err := RemoveDirContents("/nonexistent/path")
	if err != nil {
		t.Errorf("expected nil error for a missing dir, got: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("expected no removed entries, got %d", len(removed))
	}
}

func TestRemoveDirContents_AlreadyEmpty(t *testing.T) {
	removed, err := RemoveDirContents(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 0 {
		t.Errorf("removed %d entries from an empty dir", len(removed))
	}
}

func TestListSubdirs_SkipsFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"seg_a", "seg_b"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("f"), 0644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListSubdirs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 {
		t.Errorf("got %d subdirs, want 2", len(dirs))
	}
}

func TestListSubdirs_MissingDir(t *testing.T) {
	dirs, err := ListSubdirs("/nonexistent/path")
	if err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
	if len(dirs) != 0 {
		t.Errorf("expected empty list, got %d", len(dirs))
	}
}

func TestListFiles_SkipsDirs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"manifest_gen_1.json", "manifest_gen_2.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("m"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("got %d files, want 2", len(files))
	}
}

func TestListFiles_MissingDir(t *testing.T) {
	files, err := ListFiles("/nonexistent/path")
	if err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %d", len(files))
	}
}

func TestFileExists_FilesOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(path) {
		t.Error("FileExists should be true for an existing file")
	}
	if FileExists(filepath.Join(dir, "absent.txt")) {
		t.Error("FileExists should be false for a missing path")
	}
	if FileExists(dir) {
		t.Error("FileExists should be false for a directory")
	}
}

func TestDirExists_DirsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !DirExists(dir) {
		t.Error("DirExists should be true for an existing directory")
	}
	if DirExists(path) {
		t.Error("DirExists should be false for a file")
	}
	if DirExists(filepath.Join(dir, "absent")) {
		t.Error("DirExists should be false for a missing path")
	}
}
