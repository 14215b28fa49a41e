package syncengine

import (
	"path/filepath"
	"time"
)

// FolderJob pairs a local destination folder with the remote folder it mirrors.
type FolderJob struct {
	LocalFolder  string
	RemoteFolder string
	Label        string // collecting_files payload; defaults to the base name of LocalFolder
}

// DisplayLabel returns Label, or the base name of LocalFolder when Label is empty.
func (j FolderJob) DisplayLabel() string {
	if j.Label != "" {
		return j.Label
	}

	return filepath.Base(j.LocalFolder)
}

// TransferOutcome is the result of one transfer attempt.
type TransferOutcome struct {
	Existed bool
	Elapsed time.Duration
	Bytes   int64
	Err     error
}
