package syncengine

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joe/img-updater/pkg/remote"
)

// folderSequencer runs one folder at a time: list, dispatch, drain.
type folderSequencer struct {
	source    remote.Source
	policy    *FreshnessPolicy
	executor  *TransferExecutor
	throttle  *ThrottleController
	filter    FileFilter
	clock     clockwork.Clock
	logger    *zap.Logger
	recorder  Recorder
	overwrite bool
	emitter   EventEmitter
	tally     *tally
}

// folderRun tracks the entries accounted for in one folder.
type folderRun struct {
	job    FolderJob
	mu     sync.Mutex
	number int
	wg     sync.WaitGroup
}

// run processes job. onAdvancing, if not nil, is called once dispatch is over and
// before in-flight transfers are drained. It is not called when the run is cancelled
// or the folder could not be listed.
func (q *folderSequencer) run(ctx context.Context, job FolderJob, onAdvancing func()) {
	logger := q.logger.With(zap.String("folder", job.RemoteFolder))

	q.emitter.Emit(CollectingFiles{Type: job.DisplayLabel()})

	entries, err := remote.Drain(ctx, q.source, job.RemoteFolder)
	if ctx.Err() != nil {
		logger.Info("cancelled while listing")

		return
	}

	if err != nil {
		logger.Warn("folder listing failed, skipping folder", zap.Error(err))
		q.recorder.FolderFailed()
		q.tally.folderFailed()
		q.emitter.Emit(FolderFailed{Folder: job.RemoteFolder, Err: err})

		return
	}

	entries = filterEntries(entries, q.filter)
	logger.Debug("folder listed", zap.Int("entries", len(entries)))
	q.emitter.Emit(FileCount{FileCount: len(entries)})

	folder := &folderRun{job: job}
	cancelled := !q.dispatch(ctx, folder, entries)

	if !cancelled && onAdvancing != nil {
		onAdvancing()
	}

	folder.wg.Wait()
}

// dispatch starts or skips every entry in order. It returns false if the run was
// cancelled before all entries were handled.
func (q *folderSequencer) dispatch(ctx context.Context, folder *folderRun, entries []remote.Entry) bool {
	for _, entry := range entries {
		if ctx.Err() != nil {
			return false
		}

		if !q.policy.ShouldTransfer(Destination(folder.job, entry), entry, q.overwrite) {
			q.account(folder, entry, TransferOutcome{Bytes: remote.UnknownSize}, true)
		} else {
			if err := q.throttle.Acquire(ctx); err != nil {
				return false
			}

			folder.wg.Add(1)

			go func() {
				defer folder.wg.Done()

				outcome := q.executor.Execute(ctx, folder.job, entry)
				q.throttle.OnComplete(outcome.Elapsed)
				q.account(folder, entry, outcome, false)
			}()
		}

		if !q.pause(ctx) {
			return false
		}
	}

	return true
}

// pause waits for the current throttle delay. It returns false if ctx is cancelled first.
func (q *folderSequencer) pause(ctx context.Context) bool {
	delay := q.throttle.CurrentDelay()
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := q.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

// account records an entry and emits its File event. Numbers are assigned under the
// folder lock so they appear in order on the event stream. The emitter sets Finishing.
func (q *folderSequencer) account(folder *folderRun, entry remote.Entry, outcome TransferOutcome, skipped bool) {
	result := OutcomeTransferred

	switch {
	case skipped:
		result = OutcomeSkipped
	case outcome.Err != nil:
		result = OutcomeFailed
	case !outcome.Existed:
		result = OutcomeMissing
	}

	q.recorder.EntryAccounted(result, outcome.Bytes, outcome.Elapsed)
	q.tally.add(result, outcome.Bytes)

	folder.mu.Lock()
	defer folder.mu.Unlock()

	folder.number++
	q.emitter.Emit(File{
		Name:    entry.Name,
		Path:    Destination(folder.job, entry),
		Number:  folder.number,
		Skipped: skipped,
		Existed: outcome.Existed,
	})
}
