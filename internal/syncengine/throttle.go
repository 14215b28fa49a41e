package syncengine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Adaptive tuning thresholds. The asymmetry makes the controller quicker to back off
// than to speed up.
const (
	trendBackOff   = 3.0
	trendSpeedUp   = -5.0
	minimumCeiling = 1
)

// ThrottleState is a snapshot of a ThrottleController.
type ThrottleState struct {
	Ceiling      int
	Delay        time.Duration
	InFlight     int
	Trend        float64
	LastElapsed  time.Duration
	TotalElapsed time.Duration
	Completed    int
}

// ThrottleController bounds the number of in-flight transfers and paces dispatch.
//
// In adaptive mode every completion recomputes the delay from the average transfer
// time and nudges the ceiling when transfers keep getting slower (or faster). In
// static mode the ceiling and delay never change.
type ThrottleController struct {
	mu       sync.Mutex
	state    ThrottleState
	adaptive bool
	changed  chan struct{} // closed and replaced whenever a slot may have freed
	logger   *zap.Logger
	recorder Recorder
}

// NewThrottleController creates a controller with the given initial ceiling and delay.
// A ceiling below one is raised to one.
func NewThrottleController(ceiling int, delay time.Duration, adaptive bool, logger *zap.Logger, recorder Recorder) *ThrottleController {
	if logger == nil {
		logger = zap.NewNop()
	}

	if recorder == nil {
		recorder = NopRecorder{}
	}

	recorder.ThrottleAdjusted(max(ceiling, minimumCeiling), max(delay, 0))

	return &ThrottleController{
		state: ThrottleState{
			Ceiling: max(ceiling, minimumCeiling),
			Delay:   max(delay, 0),
		},
		adaptive: adaptive,
		changed:  make(chan struct{}),
		logger:   logger,
		recorder: recorder,
	}
}

// Acquire blocks until a transfer slot is free, then claims it. It returns ctx.Err()
// if ctx is cancelled first.
func (t *ThrottleController) Acquire(ctx context.Context) error {
	for {
		t.mu.Lock()

		if t.state.InFlight < t.state.Ceiling {
			t.startLocked()
			t.mu.Unlock()

			return nil
		}

		wait := t.changed
		t.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Admit reports whether another transfer may start now.
func (t *ThrottleController) Admit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state.InFlight < t.state.Ceiling
}

// CurrentDelay returns the pause to apply between dispatches.
func (t *ThrottleController) CurrentDelay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state.Delay
}

// OnComplete releases a slot and, in adaptive mode, retunes delay and ceiling from
// the elapsed time of the finished transfer.
func (t *ThrottleController) OnComplete(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.InFlight > 0 {
		t.state.InFlight--
	}

	t.state.TotalElapsed += elapsed
	t.state.Completed++

	if t.adaptive {
		t.retuneLocked(elapsed)
	}

	t.state.LastElapsed = elapsed
	t.recorder.InFlight(t.state.InFlight)

	close(t.changed)
	t.changed = make(chan struct{})
}

// OnStart claims a slot without waiting. Callers should check Admit first.
func (t *ThrottleController) OnStart() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startLocked()
}

// State returns a snapshot of the controller.
func (t *ThrottleController) State() ThrottleState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *ThrottleController) retuneLocked(elapsed time.Duration) {
	average := t.state.TotalElapsed / time.Duration(t.state.Completed)
	t.state.Delay = average / time.Duration(t.state.Ceiling)

	elapsedMillis := float64(elapsed) / float64(time.Millisecond)
	lastMillis := float64(t.state.LastElapsed) / float64(time.Millisecond)
	t.state.Trend += (elapsedMillis - lastMillis) / 1000 //nolint:mnd // milliseconds to seconds

	switch {
	case t.state.Trend > trendBackOff:
		t.state.Ceiling = max(t.state.Ceiling-1, minimumCeiling)
		t.state.Trend = 0
	case t.state.Trend < trendSpeedUp:
		t.state.Ceiling++
		t.state.Trend = 0
	}

	t.logger.Debug("throttle retuned",
		zap.Duration("average", average),
		zap.Duration("delay", t.state.Delay),
		zap.Int("stack", t.state.Ceiling),
		zap.Float64("change", t.state.Trend))
	t.recorder.ThrottleAdjusted(t.state.Ceiling, t.state.Delay)
}

func (t *ThrottleController) startLocked() {
	t.state.InFlight++
	t.recorder.InFlight(t.state.InFlight)
}
