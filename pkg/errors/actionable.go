// Package errors attaches a category and actionable suggestions to failures that the
// updater logs and keeps going past (local write failures, dropped connections,
// unreadable folders), so the log tells the user what to try next.
//
//	enricher := errors.NewEnricher()
//	if err := writeImage(dest); err != nil {
//	    logger.Warn("write failed", zap.Error(err),
//	        zap.Strings("suggestions", errors.Suggestions(enricher.Enrich(err, dest))))
//	}
package errors

import "strings"

// Exported constants.
const (
	CategoryDiskSpace  ErrorCategory = "disk_space"
	CategoryNetwork    ErrorCategory = "network"
	CategoryPath       ErrorCategory = "path"
	CategoryPermission ErrorCategory = "permission"
	CategoryRemote     ErrorCategory = "remote"
	CategoryUnknown    ErrorCategory = "unknown"
	CategoryWrite      ErrorCategory = "write"
)

// ErrorCategory is the kind of failure.
type ErrorCategory string

// ActionableError is an error with suggestions for the user.
type ActionableError interface {
	error
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError wraps err with a category and suggestions.
func NewActionableError(err error, category ErrorCategory, suggestions []string, affectedPath string) ActionableError {
	return &actionableError{
		err:          err,
		category:     category,
		suggestions:  suggestions,
		affectedPath: affectedPath,
	}
}

// Suggestions returns the suggestions of an ActionableError, or nil for any other error.
func Suggestions(err error) []string {
	actionable, ok := err.(ActionableError) //nolint:errorlint // Only the outermost error carries suggestions
	if !ok {
		return nil
	}

	return actionable.Suggestions()
}

// FormatSuggestions renders the suggestions as an indented bulleted list, or "" if there are none.
func FormatSuggestions(err error) string {
	suggestions := Suggestions(err)
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

type actionableError struct {
	err          error
	category     ErrorCategory
	suggestions  []string
	affectedPath string
}

func (e *actionableError) AffectedPath() string    { return e.affectedPath }
func (e *actionableError) Category() ErrorCategory { return e.category }
func (e *actionableError) Error() string           { return e.err.Error() }
func (e *actionableError) Suggestions() []string   { return e.suggestions }
func (e *actionableError) Unwrap() error           { return e.err }
