package syncengine

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/joe/img-updater/pkg/filesystem"
	"github.com/joe/img-updater/pkg/remote"
)

// FreshnessPolicy decides whether a remote entry needs to be transferred.
type FreshnessPolicy struct {
	fs     filesystem.FileSystem
	logger *zap.Logger
}

// NewFreshnessPolicy creates a FreshnessPolicy reading local state from fsys.
func NewFreshnessPolicy(fsys filesystem.FileSystem, logger *zap.Logger) *FreshnessPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FreshnessPolicy{fs: fsys, logger: logger}
}

// ShouldTransfer reports whether entry must be fetched into localPath.
//
// With overwrite every entry is transferred. A missing local file is always
// transferred. An entry without a remote timestamp is fresh whenever the local file
// exists; otherwise the entry is transferred only if the local copy is strictly older.
func (p *FreshnessPolicy) ShouldTransfer(localPath string, entry remote.Entry, overwrite bool) bool {
	if overwrite {
		return true
	}

	info, err := p.fs.Stat(localPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("cannot stat local file, transferring",
				zap.String("path", localPath), zap.Error(err))
		}

		return true
	}

	if entry.ModifiedAt == nil {
		return false
	}

	return info.ModTime().Before(*entry.ModifiedAt)
}

// FileFilter decides which listed entries belong to a run.
type FileFilter interface {
	// ShouldInclude returns true if the entry name should be included.
	ShouldInclude(name string) bool
}

// GlobFilter implements FileFilter using doublestar glob patterns.
type GlobFilter struct {
	normalizedPattern string
	isEmpty           bool
}

// NewGlobFilter creates a new GlobFilter with the given pattern.
// Empty pattern matches all entries.
func NewGlobFilter(pattern string) *GlobFilter {
	return &GlobFilter{
		normalizedPattern: strings.ToLower(pattern),
		isEmpty:           pattern == "",
	}
}

// ValidatePattern reports whether pattern is a well-formed glob.
func ValidatePattern(pattern string) bool {
	return pattern == "" || doublestar.ValidatePattern(strings.ToLower(pattern))
}

// ShouldInclude matches case-insensitively. An invalid pattern matches nothing.
func (f *GlobFilter) ShouldInclude(name string) bool {
	if f.isEmpty {
		return true
	}

	matched, err := doublestar.Match(f.normalizedPattern, strings.ToLower(name))
	if err != nil {
		return false
	}

	return matched
}

func filterEntries(entries []remote.Entry, filter FileFilter) []remote.Entry {
	if filter == nil {
		return entries
	}

	kept := entries[:0:0]

	for _, entry := range entries {
		if filter.ShouldInclude(entry.Name) {
			kept = append(kept, entry)
		}
	}

	return kept
}
