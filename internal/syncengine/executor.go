package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	apperrors "github.com/joe/img-updater/pkg/errors"
	"github.com/joe/img-updater/pkg/filesystem"
	"github.com/joe/img-updater/pkg/remote"
)

// partialSuffix marks a file that is still being written.
const partialSuffix = ".part"

// TransferExecutor fetches one remote entry into its local destination.
type TransferExecutor struct {
	source   remote.Source
	fs       filesystem.FileSystem
	clock    clockwork.Clock
	logger   *zap.Logger
	enricher apperrors.Enricher
}

// NewTransferExecutor creates a TransferExecutor.
func NewTransferExecutor(source remote.Source, fsys filesystem.FileSystem, clock clockwork.Clock, logger *zap.Logger) *TransferExecutor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &TransferExecutor{
		source:   source,
		fs:       fsys,
		clock:    clock,
		logger:   logger,
		enricher: apperrors.NewEnricher(),
	}
}

// Destination returns the local path for entry within job.
func Destination(job FolderJob, entry remote.Entry) string {
	return filepath.Join(job.LocalFolder, filepath.FromSlash(entry.Name))
}

// Execute transfers entry. A transient network failure of the fetch or the body read is
// retried once; local write failures never are. Missing remote entries and local write
// failures yield Existed=false; neither stops the run.
//
// The fetch is not interrupted when ctx is cancelled: an admitted transfer always runs
// to completion.
func (e *TransferExecutor) Execute(ctx context.Context, job FolderJob, entry remote.Entry) TransferOutcome {
	start := e.clock.Now()
	dest := Destination(job, entry)
	fetchCtx := context.WithoutCancel(ctx)
	logger := e.logger.With(zap.String("folder", job.RemoteFolder), zap.String("entry", entry.Name))

	var (
		written int64
		err     error
	)

	if mkdirErr := e.fs.MkdirAll(filepath.Dir(dest), filesystem.DefaultDirPermissions); mkdirErr != nil {
		err = &LocalWriteError{Path: filepath.Dir(dest), Err: mkdirErr}
	} else {
		written, err = e.attempt(fetchCtx, job, entry, dest)
		if errors.Is(err, remote.ErrTransientNetwork) {
			logger.Info("connection dropped, retrying once", zap.Error(err))
			written, err = e.attempt(fetchCtx, job, entry, dest)
		}
	}

	outcome := TransferOutcome{Elapsed: e.clock.Since(start)}

	var writeErr *LocalWriteError

	switch {
	case err == nil:
		outcome.Existed = true
		outcome.Bytes = written
	case errors.Is(err, remote.ErrNotFound):
		logger.Info("remote entry no longer exists")
	case errors.As(err, &writeErr):
		outcome.Err = err
		enriched := e.enricher.Enrich(writeErr.Err, writeErr.Path)
		logger.Warn("local write failed",
			zap.String("path", writeErr.Path),
			zap.Error(err),
			zap.Strings("suggestions", apperrors.Suggestions(enriched)))
	default:
		outcome.Err = err
		logger.Warn("transfer failed",
			zap.Error(err),
			zap.Strings("suggestions", apperrors.Suggestions(e.enricher.Enrich(err, ""))))
	}

	return outcome
}

// attempt performs one fetch into dest via a partial file.
func (e *TransferExecutor) attempt(ctx context.Context, job FolderJob, entry remote.Entry, dest string) (int64, error) {
	body, err := e.source.Fetch(ctx, job.RemoteFolder, entry.Name)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", entry.Name, remote.Classify(err))
	}

	defer func() {
		_ = body.Close()
	}()

	partial := dest + partialSuffix

	file, err := e.fs.Create(partial)
	if err != nil {
		return 0, &LocalWriteError{Path: partial, Err: err}
	}

	writer := &countingWriter{w: file}
	_, copyErr := io.Copy(writer, body)
	closeErr := file.Close()

	switch {
	case writer.err != nil:
		e.discard(partial)

		return 0, &LocalWriteError{Path: partial, Err: writer.err}
	case copyErr != nil:
		e.discard(partial)

		return 0, fmt.Errorf("read %s: %w", entry.Name, remote.Classify(copyErr))
	case closeErr != nil:
		e.discard(partial)

		return 0, &LocalWriteError{Path: partial, Err: closeErr}
	}

	if err := e.fs.Rename(partial, dest); err != nil {
		e.discard(partial)

		return 0, &LocalWriteError{Path: dest, Err: err}
	}

	return writer.n, nil
}

func (e *TransferExecutor) discard(path string) {
	if err := e.fs.Remove(path); err != nil {
		e.logger.Debug("could not remove partial file", zap.String("path", path), zap.Error(err))
	}
}

// countingWriter counts written bytes and remembers the first write error, so that
// local failures can be told apart from remote read failures after io.Copy.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	if err != nil && c.err == nil {
		c.err = err
	}

	return n, err //nolint:wrapcheck // Surfaced through c.err
}
