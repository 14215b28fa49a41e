package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/pkg/errors"
)

func TestPatternMatcher_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg      string
		expected errors.ErrorCategory
	}{
		{"open /pics/a.jpg: permission denied", errors.CategoryPermission},
		{"write /pics/a.jpg: no space left on device", errors.CategoryDiskSpace},
		{"transient network failure: read tcp: connection reset by peer", errors.CategoryNetwork},
		{"socket hang up", errors.CategoryNetwork},
		{"remote entry not found", errors.CategoryRemote},
		{"open /pics/field/x.png: no such file or directory", errors.CategoryPath},
		{"write /pics/a.jpg: input/output error", errors.CategoryWrite},
		{"something odd", errors.CategoryUnknown},
	}

	matcher := errors.NewPatternMatcher()

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(matcher.Match(tt.msg)).To(Equal(tt.expected))
		})
	}
}

func TestEnricher_NilStaysNil(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(errors.NewEnricher().Enrich(nil, "/pics")).To(Succeed())
}

func TestEnricher_ExtractsPathFromMessage(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := errors.NewEnricher().Enrich(stderrors.New("open /pics/card/123.jpg: permission denied"), "")

	var actionable errors.ActionableError
	g.Expect(stderrors.As(err, &actionable)).To(BeTrue())
	g.Expect(actionable.Category()).To(Equal(errors.CategoryPermission))
	g.Expect(actionable.AffectedPath()).To(Equal("/pics/card/123.jpg"))
	g.Expect(actionable.Suggestions()).To(ContainElement(ContainSubstring("/pics/card/123.jpg")))
}

func TestEnricher_PreservesWrappedError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sentinel := stderrors.New("disk full")
	err := errors.NewEnricher().Enrich(fmt.Errorf("write /pics/a.jpg: %w", sentinel), "/pics/a.jpg")

	g.Expect(err).To(MatchError(sentinel))
	g.Expect(err.Error()).To(Equal("write /pics/a.jpg: disk full"))
}

func TestEnricher_AlreadyActionableIsUnchanged(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	original := errors.NewActionableError(stderrors.New("x"), errors.CategoryWrite, []string{"retry"}, "/p")

	g.Expect(errors.NewEnricher().Enrich(original, "/other")).To(BeIdenticalTo(original))
}

func TestFormatSuggestions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	err := errors.NewActionableError(stderrors.New("x"), errors.CategoryNetwork, []string{"one", "two"}, "")

	g.Expect(errors.FormatSuggestions(err)).To(Equal("  • one\n  • two"))
	g.Expect(errors.FormatSuggestions(stderrors.New("plain"))).To(BeEmpty())
}

func TestSuggestionGenerator_NetworkAdvisesRerun(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	suggestions := errors.NewSuggestionGenerator().Generate(errors.CategoryNetwork, "")

	g.Expect(suggestions).To(ContainElement(ContainSubstring("again")))
}
