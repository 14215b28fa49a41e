package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/logging"
)

func TestNew_NoOutputsIsNop(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	logger, err := logging.New(logging.Config{})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(logger.Core().Enabled(0)).To(BeFalse())
}

func TestNew_WritesJSONToFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "updater.log")

	logger, err := logging.New(logging.Config{Format: "json", File: path})
	g.Expect(err).ToNot(HaveOccurred())

	logger.Info("session started")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring(`"msg":"session started"`))
	g.Expect(string(data)).ToNot(ContainSubstring("hidden"))
}

func TestNew_DebugEnablesDebugLevel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "updater.log")

	logger, err := logging.New(logging.Config{Debug: true, File: path})
	g.Expect(err).ToNot(HaveOccurred())

	logger.Debug("throttle retuned")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring("throttle retuned"))
}
