package filesystem_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joe/img-updater/pkg/filesystem"
)

func TestMockFileSystem_CreateAndOpen(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewMockFileSystem()

	content := []byte("test content")

	file, err := fs.Create("test.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err = file.Write(content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	_ = file.Close()

	file, err = fs.Open("test.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if string(data) != string(content) {
		t.Errorf("Expected %q, got %q", content, data)
	}
}

func TestMockFileSystem_AddFileSetsModTime(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewMockFileSystem()
	modTime := time.Now().Add(-1 * time.Hour).Truncate(time.Second)
	fs.AddFile("/pics/test.jpg", []byte("test"), modTime)

	info, err := fs.Stat("/pics/test.jpg")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	if info.Size() != 4 {
		t.Errorf("Expected size 4, got %d", info.Size())
	}

	if !info.ModTime().Equal(modTime) {
		t.Errorf("Expected modtime %v, got %v", modTime, info.ModTime())
	}
}

func TestMockFileSystem_RenameReplacesDestination(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("/a.part", []byte("new"), time.Now())
	fs.AddFile("/a", []byte("old"), time.Now())

	if err := fs.Rename("/a.part", "/a"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	data, err := fs.ReadFile("/a")
	if err != nil || string(data) != "new" {
		t.Errorf("Expected renamed content %q, got %q (%v)", "new", data, err)
	}

	if exists, _ := filesystem.Exists(fs, "/a.part"); exists {
		t.Error("Expected source of rename to be gone")
	}
}

func TestMockFileSystem_ReadOnlyRejectsWrites(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewMockFileSystem()

	if _, err := fs.ReadOnly().Create("/x"); err == nil {
		t.Error("Expected Create on read-only view to fail")
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewMockFileSystem()
	fs.AddFile("/here", nil, time.Now())

	if exists, err := filesystem.Exists(fs, "/here"); err != nil || !exists {
		t.Errorf("Exists(/here) = %v, %v", exists, err)
	}

	if exists, err := filesystem.Exists(fs, "/missing"); err != nil || exists {
		t.Errorf("Exists(/missing) = %v, %v", exists, err)
	}
}

func TestRealFileSystem_MkdirAllIsIdempotent(t *testing.T) {
	t.Parallel()

	fs := filesystem.NewRealFileSystem()
	dir := filepath.Join(t.TempDir(), "pics", "field")

	for range 2 {
		if err := fs.MkdirAll(dir, filesystem.DefaultDirPermissions); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected %s to be a directory (%v)", dir, err)
	}
}
