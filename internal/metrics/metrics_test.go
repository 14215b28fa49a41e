package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/metrics"
	"github.com/joe/img-updater/internal/syncengine"
)

var _ syncengine.Recorder = (*metrics.Recorder)(nil)

func scrape(t *testing.T, recorder *metrics.Recorder) string {
	t.Helper()

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL) //nolint:noctx // Test scrape
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}

	return string(body)
}

func TestRecorder_ExportsEntryOutcomes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	recorder := metrics.NewRecorder()
	recorder.EntryAccounted(syncengine.OutcomeTransferred, 2048, 300*time.Millisecond)
	recorder.EntryAccounted(syncengine.OutcomeTransferred, 1024, 100*time.Millisecond)
	recorder.EntryAccounted(syncengine.OutcomeSkipped, -1, 0)
	recorder.FolderFailed()

	body := scrape(t, recorder)

	g.Expect(body).To(ContainSubstring(`imgupd_entries_total{outcome="transferred"} 2`))
	g.Expect(body).To(ContainSubstring(`imgupd_entries_total{outcome="skipped"} 1`))
	g.Expect(body).To(ContainSubstring("imgupd_bytes_transferred_total 3072"))
	g.Expect(body).To(ContainSubstring("imgupd_transfer_duration_seconds_count 2"))
	g.Expect(body).To(ContainSubstring("imgupd_folders_failed_total 1"))
}

func TestRecorder_ExportsThrottleState(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	recorder := metrics.NewRecorder()
	throttle := syncengine.NewThrottleController(5, 250*time.Millisecond, false, nil, recorder)
	throttle.OnStart()
	throttle.OnStart()

	body := scrape(t, recorder)

	g.Expect(body).To(ContainSubstring("imgupd_throttle_ceiling 5"))
	g.Expect(body).To(ContainSubstring("imgupd_throttle_delay_seconds 0.25"))
	g.Expect(body).To(ContainSubstring("imgupd_transfers_in_flight 2"))
}
