package syncengine

import (
	"errors"
	"fmt"
)

// Exported variables.
var (
	ErrSessionStarted = errors.New("session already started")
	ErrNoSource       = errors.New("no remote source configured")
)

// LocalWriteError reports a failure to write a transferred entry to local storage.
type LocalWriteError struct {
	Path string
	Err  error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *LocalWriteError) Unwrap() error {
	return e.Err
}
