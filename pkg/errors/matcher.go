package errors

import "strings"

// PatternMatcher maps an error message to a category.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a PatternMatcher with the built-in patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		// Checked in order: the first category with a matching fragment wins.
		patterns: []categoryPatterns{
			{CategoryPermission, []string{"permission denied", "access denied", "operation not permitted", "read-only file system"}},
			{CategoryDiskSpace, []string{"no space left on device", "disk full", "quota exceeded"}},
			{CategoryNetwork, []string{"connection dropped", "connection reset", "socket hang up", "broken pipe", "i/o timeout", "no such host", "connection refused"}},
			{CategoryRemote, []string{"remote entry not found", "unexpected status", "listing "}},
			{CategoryPath, []string{"no such file or directory", "file does not exist", "not a directory"}},
			{CategoryWrite, []string{"short write", "input/output error", "i/o error"}},
		},
	}
}

type categoryPatterns struct {
	category  ErrorCategory
	fragments []string
}

type patternMatcher struct {
	patterns []categoryPatterns
}

// Match returns the first category whose fragments occur in errorMsg (case-insensitive).
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, group := range m.patterns {
		for _, fragment := range group.fragments {
			if strings.Contains(lowerMsg, fragment) {
				return group.category
			}
		}
	}

	return CategoryUnknown
}
