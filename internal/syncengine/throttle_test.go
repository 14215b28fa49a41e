package syncengine_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/syncengine"
)

func TestThrottle_StaticModeKeepsCeilingAndDelay(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(4, 500*time.Millisecond, false, nil, nil)

	for range 20 {
		throttle.OnStart()
		throttle.OnComplete(10 * time.Second)
	}

	state := throttle.State()
	g.Expect(state.Ceiling).To(Equal(4))
	g.Expect(state.Delay).To(Equal(500 * time.Millisecond))
	g.Expect(state.Completed).To(Equal(20))
	g.Expect(state.InFlight).To(BeZero())
}

func TestThrottle_AdaptiveDelayIsAverageOverCeiling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(10, 500*time.Millisecond, true, nil, nil)

	throttle.OnStart()
	throttle.OnComplete(1 * time.Second)

	// average 1s over a ceiling of 10
	g.Expect(throttle.CurrentDelay()).To(Equal(100 * time.Millisecond))
	g.Expect(throttle.State().Trend).To(BeNumerically("~", 1.0, 1e-9))

	throttle.OnStart()
	throttle.OnComplete(3 * time.Second)

	// average 2s over 10, trend 1 + (3 - 1)
	g.Expect(throttle.CurrentDelay()).To(Equal(200 * time.Millisecond))
	g.Expect(throttle.State().Trend).To(BeNumerically("~", 3.0, 1e-9))
	g.Expect(throttle.State().Ceiling).To(Equal(10), "trend of exactly 3 does not back off")
}

func TestThrottle_SlowingTransfersLowerCeiling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(10, 0, true, nil, nil)

	throttle.OnStart()
	throttle.OnComplete(4 * time.Second)

	state := throttle.State()
	g.Expect(state.Ceiling).To(Equal(9))
	g.Expect(state.Trend).To(BeZero())
	g.Expect(state.LastElapsed).To(Equal(4 * time.Second))
}

func TestThrottle_SpeedingTransfersRaiseCeiling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(3, 0, true, nil, nil)

	// 9s from a 0 baseline: trend 9 > 3, back off and reset.
	throttle.OnStart()
	throttle.OnComplete(9 * time.Second)
	g.Expect(throttle.State().Ceiling).To(Equal(2))

	// 9s -> 4s: trend -5 is not below -5.
	throttle.OnStart()
	throttle.OnComplete(4 * time.Second)
	g.Expect(throttle.State().Ceiling).To(Equal(2))

	// 4s -> 3.9s: trend -5.1, speed up and reset.
	throttle.OnStart()
	throttle.OnComplete(3900 * time.Millisecond)

	state := throttle.State()
	g.Expect(state.Ceiling).To(Equal(3))
	g.Expect(state.Trend).To(BeZero())
}

func TestThrottle_CeilingNeverDropsBelowOne(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(2, 0, true, nil, nil)

	elapsed := time.Duration(0)
	for range 10 {
		elapsed += 5 * time.Second

		throttle.OnStart()
		throttle.OnComplete(elapsed)
	}

	g.Expect(throttle.State().Ceiling).To(Equal(1))
	g.Expect(syncengine.NewThrottleController(0, 0, true, nil, nil).State().Ceiling).To(Equal(1))
}

func TestThrottle_AcquireBlocksAtCeiling(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(2, 0, false, nil, nil)
	ctx := context.Background()

	g.Expect(throttle.Acquire(ctx)).To(Succeed())
	g.Expect(throttle.Acquire(ctx)).To(Succeed())
	g.Expect(throttle.Admit()).To(BeFalse())

	acquired := make(chan error, 1)

	go func() {
		acquired <- throttle.Acquire(ctx)
	}()

	g.Consistently(acquired, 50*time.Millisecond).ShouldNot(Receive())

	throttle.OnComplete(time.Millisecond)

	g.Eventually(acquired).Should(Receive(BeNil()))
	g.Expect(throttle.State().InFlight).To(Equal(2))
}

func TestThrottle_AcquireHonoursCancellation(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	throttle := syncengine.NewThrottleController(1, 0, false, nil, nil)
	g.Expect(throttle.Acquire(context.Background())).To(Succeed())

	ctx, cancel := context.WithCancel(context.Background())
	acquired := make(chan error, 1)

	go func() {
		acquired <- throttle.Acquire(ctx)
	}()

	cancel()

	g.Eventually(acquired).Should(Receive(MatchError(context.Canceled)))
	g.Expect(throttle.State().InFlight).To(Equal(1))
}
