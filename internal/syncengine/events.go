package syncengine

// Event names as they appear on the wire.
const (
	EventCollectingFiles = "collecting_files"
	EventFileCount       = "file_count"
	EventFile            = "file"
	EventFinishing       = "finishing"
	EventFinished        = "finished"
	EventFolderFailed    = "folder_failed"
)

// Event is the interface implemented by all session events.
type Event interface {
	isEvent()
	// EventName returns the wire name of the event.
	EventName() string
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// CollectingFiles is emitted before a folder is listed.
type CollectingFiles struct {
	Type string // folder label
}

func (CollectingFiles) isEvent()          {}
func (CollectingFiles) EventName() string { return EventCollectingFiles }

// FileCount is emitted once per folder after listing, with the number of entries that
// will each produce one File event.
type FileCount struct {
	FileCount int
}

func (FileCount) isEvent()          {}
func (FileCount) EventName() string { return EventFileCount }

// File is emitted once per entry, whether it was transferred or skipped.
type File struct {
	Name      string // entry name relative to the remote folder
	Path      string // local destination path
	Number    int    // 1-based count of entries accounted for in this folder
	Finishing bool   // the session was already finishing when the entry completed
	Skipped   bool   // the local copy was fresh
	Existed   bool   // the remote entry still existed and was written
}

func (File) isEvent()          {}
func (File) EventName() string { return EventFile }

// Finishing is emitted exactly once per run, when cancellation is observed or the last
// folder starts advancing.
type Finishing struct{}

func (Finishing) isEvent()          {}
func (Finishing) EventName() string { return EventFinishing }

// Finished is emitted exactly once per run, after every in-flight transfer has drained.
// It is always the last event on the stream.
type Finished struct{}

func (Finished) isEvent()          {}
func (Finished) EventName() string { return EventFinished }

// FolderFailed is emitted when a folder could not be listed. The session moves on to
// the next folder.
type FolderFailed struct {
	Folder string
	Err    error
}

func (FolderFailed) isEvent()          {}
func (FolderFailed) EventName() string { return EventFolderFailed }
