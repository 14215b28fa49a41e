package syncengine

import "time"

// Entry outcomes reported to a Recorder.
const (
	OutcomeTransferred = "transferred"
	OutcomeSkipped     = "skipped"
	OutcomeMissing     = "missing"
	OutcomeFailed      = "failed"
)

// Recorder receives run measurements, typically for export as metrics.
type Recorder interface {
	EntryAccounted(outcome string, bytes int64, elapsed time.Duration)
	FolderFailed()
	InFlight(n int)
	ThrottleAdjusted(ceiling int, delay time.Duration)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) EntryAccounted(string, int64, time.Duration) {}
func (NopRecorder) FolderFailed()                               {}
func (NopRecorder) InFlight(int)                                {}
func (NopRecorder) ThrottleAdjusted(int, time.Duration)         {}
