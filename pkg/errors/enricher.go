package errors

import (
	"errors"
	"regexp"
	"strings"
)

// Enricher turns plain errors into ActionableErrors.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates an Enricher with the default matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

//nolint:gochecknoglobals // Compiled once, shared by all enrichers
var pathExtractionPatterns = []*regexp.Regexp{
	// "open /path/to/file: permission denied"
	regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
	// Windows paths with either separator
	regexp.MustCompile(`\b\w+\s+([A-Za-z]:[\\/][^\s:]+):`),
}

type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich categorizes err and attaches suggestions. Nil stays nil and errors that are
// already actionable are returned unchanged. When affectedPath is empty the path is
// extracted from the message where possible.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	if affectedPath == "" {
		affectedPath = extractPath(err.Error())
	}

	category := e.matcher.Match(err.Error())

	return NewActionableError(err, category, e.generator.Generate(category, affectedPath), affectedPath)
}

func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			if path := strings.TrimSpace(matches[1]); path != "" {
				return path
			}
		}
	}

	return ""
}
