package filesystem

import (
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// MockFileSystem is an in-memory filesystem for tests.
type MockFileSystem struct {
	*AferoFileSystem

	mem afero.Fs
}

// NewMockFileSystem creates an empty in-memory filesystem.
func NewMockFileSystem() *MockFileSystem {
	mem := afero.NewMemMapFs()

	return &MockFileSystem{AferoFileSystem: New(mem), mem: mem}
}

// AddFile writes a file (creating parent directories) and sets its modification time.
func (m *MockFileSystem) AddFile(path string, data []byte, modTime time.Time) {
	_ = m.mem.MkdirAll(filepath.Dir(path), DefaultDirPermissions)
	_ = afero.WriteFile(m.mem, path, data, 0o644) //nolint:mnd // Conventional file mode
	_ = m.mem.Chtimes(path, modTime, modTime)
}

// ReadFile returns the content of path.
func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(m.mem, path) //nolint:wrapcheck // Test helper
}

// ReadOnly returns a view of the same files on which every write fails.
func (m *MockFileSystem) ReadOnly() *AferoFileSystem {
	return New(afero.NewReadOnlyFs(m.mem))
}
