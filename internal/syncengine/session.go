// Package syncengine mirrors remote image folders into local folders: it lists each
// folder, skips fresh entries, transfers the rest under an adaptive concurrency
// ceiling and reports progress as a stream of events.
package syncengine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joe/img-updater/internal/config"
	"github.com/joe/img-updater/pkg/filesystem"
	"github.com/joe/img-updater/pkg/remote"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 64

// Options configures a Session.
type Options struct {
	Delay     time.Duration // initial pause between dispatches
	Adaptive  bool          // retune delay and ceiling from observed transfer times
	Ceiling   int           // initial maximum number of concurrent transfers
	Overwrite bool          // transfer entries even when the local copy is fresh
	Pattern   string        // optional glob restricting which entries are considered

	Source   remote.Source
	FS       filesystem.FileSystem // defaults to the real filesystem
	Clock    clockwork.Clock       // defaults to the real clock
	Logger   *zap.Logger           // defaults to a no-op logger
	Recorder Recorder              // defaults to NopRecorder

	EventBuffer int // defaults to DefaultEventBuffer
}

// Summary counts what a run did.
type Summary struct {
	Transferred   int
	Skipped       int
	Missing       int
	Failed        int
	FoldersFailed int
	Bytes         int64
	Elapsed       time.Duration
}

// Session runs one sync request over an ordered list of folders.
//
// Every run emits exactly one Finishing event followed by exactly one Finished event,
// whether it completes naturally or is cancelled, after which the event channel is
// closed. Consumers must keep reading the channel until it closes.
type Session struct {
	id        string
	opts      Options
	logger    *zap.Logger
	throttle  *ThrottleController
	sequencer *folderSequencer
	tally     *tally

	started    atomic.Bool
	cancelChan chan struct{}
	cancelOnce sync.Once

	emitMu    sync.Mutex
	events    chan Event
	closed    bool
	finishing atomic.Bool

	finishingOnce sync.Once
	finishedOnce  sync.Once
}

// NewSession validates opts and creates a Session.
func NewSession(opts Options) (*Session, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}

	if opts.Ceiling < 1 {
		return nil, config.Invalid("stack", "must be at least 1, got %d", opts.Ceiling)
	}

	if opts.Delay < 0 {
		return nil, config.Invalid("delay", "must not be negative, got %s", opts.Delay)
	}

	if !ValidatePattern(opts.Pattern) {
		return nil, config.Invalid("pattern", "invalid glob %q", opts.Pattern)
	}

	if opts.FS == nil {
		opts.FS = filesystem.NewRealFileSystem()
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}

	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	id := uuid.NewString()
	logger := opts.Logger.With(zap.String("session", id))

	session := &Session{
		id:         id,
		opts:       opts,
		logger:     logger,
		throttle:   NewThrottleController(opts.Ceiling, opts.Delay, opts.Adaptive, logger, opts.Recorder),
		tally:      &tally{},
		cancelChan: make(chan struct{}),
		events:     make(chan Event, opts.EventBuffer),
	}

	session.sequencer = &folderSequencer{
		source:    opts.Source,
		policy:    NewFreshnessPolicy(opts.FS, logger),
		executor:  NewTransferExecutor(opts.Source, opts.FS, opts.Clock, logger),
		throttle:  session.throttle,
		filter:    NewGlobFilter(opts.Pattern),
		clock:     opts.Clock,
		logger:    logger,
		recorder:  opts.Recorder,
		overwrite: opts.Overwrite,
		emitter:   session,
		tally:     session.tally,
	}

	return session, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Start begins processing jobs in order and returns the event stream. A Session can
// be started only once. Cancelling ctx is equivalent to calling Cancel.
func (s *Session) Start(ctx context.Context, jobs []FolderJob) (<-chan Event, error) {
	if len(jobs) == 0 {
		return nil, config.Invalid("folders", "no folders selected")
	}

	for _, job := range jobs {
		if job.LocalFolder == "" {
			return nil, config.Invalid("folders", "folder %q has no local destination", job.RemoteFolder)
		}
	}

	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrSessionStarted
	}

	jobs = append([]FolderJob(nil), jobs...)
	runCtx, cancel := context.WithCancel(ctx)

	select {
	case <-s.cancelChan:
		cancel()
	default:
	}

	go func() {
		select {
		case <-s.cancelChan:
			cancel()
		case <-runCtx.Done():
		}
	}()

	go s.run(runCtx, cancel, jobs)

	return s.events, nil
}

// Cancel asks the session to stop admitting transfers. In-flight transfers finish.
// Safe to call more than once and before Start.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancelChan)
	})
}

// Emit sends event on the session stream. File events are flagged when the session
// is already finishing. Events after Finished are dropped.
func (s *Session) Emit(event Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.closed {
		return
	}

	if file, ok := event.(File); ok {
		file.Finishing = s.finishing.Load()
		event = file
	}

	s.events <- event
}

// Summary returns the counts accumulated so far.
func (s *Session) Summary() Summary {
	return s.tally.snapshot()
}

// Throttle returns the current throttle state.
func (s *Session) Throttle() ThrottleState {
	return s.throttle.State()
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, jobs []FolderJob) {
	defer cancel()

	start := s.opts.Clock.Now()
	runDone := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info("cancellation observed", zap.Error(context.Cause(ctx)))
			s.markFinishing()
		case <-runDone:
		}
	}()

	s.logger.Info("session started", zap.Int("folders", len(jobs)))

	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		var onAdvancing func()
		if i == len(jobs)-1 {
			onAdvancing = s.markFinishing
		}

		s.sequencer.run(ctx, job, onAdvancing)
	}

	close(runDone)
	s.tally.finish(s.opts.Clock.Since(start))

	summary := s.tally.snapshot()
	s.logger.Info("session finished",
		zap.Bool("cancelled", errors.Is(ctx.Err(), context.Canceled)),
		zap.Int("transferred", summary.Transferred),
		zap.Int("skipped", summary.Skipped),
		zap.Int("missing", summary.Missing),
		zap.Int("failed", summary.Failed),
		zap.Int("folders_failed", summary.FoldersFailed),
		zap.Int64("bytes", summary.Bytes),
		zap.Duration("elapsed", summary.Elapsed))

	s.markFinished()
}

// markFinishing emits Finishing the first time it is called.
func (s *Session) markFinishing() {
	s.finishingOnce.Do(func() {
		s.emitMu.Lock()
		defer s.emitMu.Unlock()

		s.finishing.Store(true)
		s.events <- Finishing{}
	})
}

// markFinished emits Finished, after Finishing, and closes the stream.
func (s *Session) markFinished() {
	s.markFinishing()

	s.finishedOnce.Do(func() {
		s.emitMu.Lock()
		defer s.emitMu.Unlock()

		s.events <- Finished{}
		s.closed = true
		close(s.events)
	})
}

// tally accumulates a Summary across concurrent transfers.
type tally struct {
	mu      sync.Mutex
	summary Summary
}

func (t *tally) add(outcome string, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch outcome {
	case OutcomeTransferred:
		t.summary.Transferred++
		t.summary.Bytes += max(bytes, 0)
	case OutcomeSkipped:
		t.summary.Skipped++
	case OutcomeMissing:
		t.summary.Missing++
	case OutcomeFailed:
		t.summary.Failed++
	}
}

func (t *tally) finish(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Elapsed = elapsed
}

func (t *tally) folderFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.FoldersFailed++
}

func (t *tally) snapshot() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.summary
}
