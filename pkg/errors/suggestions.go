package errors

import "fmt"

// SuggestionGenerator produces suggestions for a category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

type suggestionGenerator struct{}

// Generate returns suggestions for the category, mentioning affectedPath when known.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryPermission:
		return withPath([]string{
			"Ensure the image folders are writable by the current user",
		}, affectedPath, "Check permissions with 'ls -la %s'")
	case CategoryDiskSpace:
		return withPath([]string{
			"Free up space on the destination device",
			"Check available space with 'df -h'",
		}, affectedPath, "Verify disk usage for the filesystem containing %s")
	case CategoryNetwork:
		return []string{
			"Check your internet connection",
			"Run the update again - files that are already fresh are skipped",
			"Lower --stack or disable --adaptive if the connection keeps dropping",
		}
	case CategoryRemote:
		return []string{
			"The remote image may have been removed or renamed",
			"Verify the selected version, type and style exist on the backend",
		}
	case CategoryPath:
		return withPath([]string{
			"Verify --root points at the game directory",
		}, affectedPath, "Ensure all parent directories exist for %s")
	case CategoryWrite:
		return []string{
			"Check the destination device for hardware or filesystem errors",
			"Run the update again - this may be a transient I/O error",
		}
	default:
		return withPath([]string{
			"Check the error message for more details",
			"Re-run with --debug for diagnostic logging",
		}, affectedPath, "Verify the path is accessible: %s")
	}
}

func withPath(suggestions []string, path, format string) []string {
	if path == "" {
		return suggestions
	}

	return append(suggestions, fmt.Sprintf(format, path))
}
