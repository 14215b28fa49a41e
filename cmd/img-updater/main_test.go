package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/config"
)

const fieldLog = `[{"date": "2017-03-01T10:00:00Z", "files": ["1.png", "2.png"]}]`

func newFileHost(t *testing.T, fetches *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/owner/field544x544png/master/update_log.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, fieldLog)
	})
	mux.HandleFunc("/owner/field544x544png/master/{name}", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = io.WriteString(w, "png:"+r.PathValue("name"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestRun_UpdatesThenSkipsFreshImages(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var fetches atomic.Int32

	server := newFileHost(t, &fetches)
	root := t.TempDir()
	args := []string{
		"--config", filepath.Join(root, "missing.json"),
		"--root", root,
		"--base-url", server.URL,
		"--owner", "owner",
		"--type", "field",
		"--delay", "0",
		"--stack", "2",
	}

	g.Expect(run(args)).To(Equal(0))
	g.Expect(fetches.Load()).To(Equal(int32(2)))

	data, err := os.ReadFile(filepath.Join(root, "picture", "field", "2.png"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("png:2.png"))

	g.Expect(run(args)).To(Equal(0))
	g.Expect(fetches.Load()).To(Equal(int32(2)), "fresh images are not fetched again")

	g.Expect(run(append(args, "--overwrite"))).To(Equal(0))
	g.Expect(fetches.Load()).To(Equal(int32(4)))
}

func TestRun_RejectsBadOptions(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()

	g.Expect(run([]string{"--config", filepath.Join(root, "x.json"), "--root", root, "--stack", "0"})).To(Equal(2))
	g.Expect(run([]string{"--config", filepath.Join(root, "x.json"), "--root", root, "--version", "ygopro9"})).To(Equal(2))
	g.Expect(run([]string{"--config", filepath.Join(root, "x.json"), "--root", root, "--type", "sleeves"})).To(Equal(2))
	g.Expect(run([]string{"--config", filepath.Join(root, "x.json"), "--root", root, "--pattern", "["})).To(Equal(2))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "configuration error", err: config.Invalid("style", "unknown"), want: 2},
		{name: "wrapped configuration error", err: fmt.Errorf("session: %w", config.Invalid("stack", "too small")), want: 2},
		{name: "other failure", err: errors.New("listing refused"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(exitCode(tt.err)).To(Equal(tt.want))
		})
	}
}
