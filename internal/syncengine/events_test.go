package syncengine_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/syncengine"
)

func TestEvents_WireNames(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	events := []syncengine.Event{
		syncengine.CollectingFiles{Type: "pics"},
		syncengine.FileCount{FileCount: 2},
		syncengine.File{Name: "1.jpg", Path: "/game/pics/1.jpg", Number: 1},
		syncengine.Finishing{},
		syncengine.Finished{},
		syncengine.FolderFailed{Folder: "field", Err: errors.New("boom")},
	}

	got := make([]string, 0, len(events))
	for _, event := range events {
		got = append(got, event.EventName())
	}

	g.Expect(got).To(Equal([]string{
		"collecting_files", "file_count", "file", "finishing", "finished", "folder_failed",
	}))
}

func TestEvents_FileCarriesEntryName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var event syncengine.Event = syncengine.File{Name: "sub/2.png", Number: 2, Existed: true}

	file, ok := event.(syncengine.File)
	g.Expect(ok).To(BeTrue())
	g.Expect(file.Name).To(Equal("sub/2.png"))
	g.Expect(event.EventName()).To(Equal(syncengine.EventFile))
}
