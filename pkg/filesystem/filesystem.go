// Package filesystem provides an abstraction layer for local filesystem operations
// to enable dependency injection and testing without touching the real disk.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// DefaultDirPermissions is the permission mode for created directories.
const DefaultDirPermissions = 0o750

// File is an open local file.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// FileSystem abstracts the local operations the updater needs.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
	Open(path string) (File, error)
	Create(path string) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	Remove(path string) error
}

// AferoFileSystem implements FileSystem on top of an afero.Fs.
type AferoFileSystem struct {
	fs afero.Fs
}

// New wraps an afero filesystem.
func New(backing afero.Fs) *AferoFileSystem {
	return &AferoFileSystem{fs: backing}
}

// NewRealFileSystem returns a FileSystem backed by the operating system.
func NewRealFileSystem() *AferoFileSystem {
	return New(afero.NewOsFs())
}

// Create creates or truncates a file for writing.
func (a *AferoFileSystem) Create(path string) (File, error) {
	file, err := a.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return file, nil
}

// MkdirAll creates a directory and all necessary parents. It is a no-op if the
// directory already exists.
func (a *AferoFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := a.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// Open opens a file for reading.
func (a *AferoFileSystem) Open(path string) (File, error) {
	file, err := a.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// Remove removes a file or empty directory.
func (a *AferoFileSystem) Remove(path string) error {
	if err := a.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// Rename moves oldPath over newPath.
func (a *AferoFileSystem) Rename(oldPath, newPath string) error {
	if err := a.fs.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, err)
	}

	return nil
}

// Stat returns file information.
func (a *AferoFileSystem) Stat(path string) (os.FileInfo, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info, nil
}

// Exists reports whether path exists. Errors other than "not exist" are returned.
func Exists(fsys FileSystem, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}
