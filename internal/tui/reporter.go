package tui

import (
	"fmt"
	"io"

	"github.com/joe/img-updater/internal/syncengine"
)

// Report writes one line per event until the stream closes. It is used when no
// terminal is attached.
func Report(w io.Writer, events <-chan syncengine.Event) {
	var (
		folder    string
		fileCount int
	)

	for event := range events {
		switch event := event.(type) {
		case syncengine.CollectingFiles:
			folder = event.Type
			fmt.Fprintf(w, "collecting files for %s\n", folder)
		case syncengine.FileCount:
			fileCount = event.FileCount
			fmt.Fprintf(w, "%s: %d files\n", folder, fileCount)
		case syncengine.File:
			fmt.Fprintf(w, "%s [%d/%d] %s %s\n", folder, event.Number, fileCount, event.Name, fileState(event))
		case syncengine.FolderFailed:
			fmt.Fprintf(w, "%s: listing failed: %v\n", event.Folder, event.Err)
		case syncengine.Finishing:
			fmt.Fprintln(w, "finishing")
		case syncengine.Finished:
			fmt.Fprintln(w, "finished")
		}
	}
}

// Summarize writes the final counts.
func Summarize(w io.Writer, summary syncengine.Summary) {
	fmt.Fprintf(w, "downloaded %d, up to date %d, gone %d, failed %d (%s in %s)\n",
		summary.Transferred, summary.Skipped, summary.Missing, summary.Failed,
		FormatBytes(summary.Bytes), FormatDuration(summary.Elapsed))

	if summary.FoldersFailed > 0 {
		fmt.Fprintf(w, "%d folders could not be listed\n", summary.FoldersFailed)
	}
}

func fileState(event syncengine.File) string {
	switch {
	case event.Skipped:
		return "up to date"
	case event.Existed:
		return "downloaded"
	default:
		return "not downloaded"
	}
}
