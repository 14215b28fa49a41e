package tui_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/internal/syncengine"
	"github.com/joe/img-updater/internal/tui"
)

type fakeSession struct {
	cancels int
	summary syncengine.Summary
}

func (f *fakeSession) Cancel()                     { f.cancels++ }
func (f *fakeSession) Summary() syncengine.Summary { return f.summary }

func feed(model tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		model, _ = model.Update(msg)
	}

	return model
}

func TestModel_TracksFolderProgress(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	model := feed(tui.NewModel(&fakeSession{}, nil),
		tea.WindowSizeMsg{Width: 80, Height: 24},
		tui.EventMsg{Event: syncengine.CollectingFiles{Type: "card"}},
		tui.EventMsg{Event: syncengine.FileCount{FileCount: 4}},
		tui.EventMsg{Event: syncengine.File{Name: "1.jpg", Number: 1, Existed: true}},
		tui.EventMsg{Event: syncengine.File{Name: "2.jpg", Number: 2, Skipped: true}},
	)

	view := model.View()
	g.Expect(view).To(ContainSubstring("2 / 4"))
	g.Expect(view).To(ContainSubstring("card"))
	g.Expect(view).To(ContainSubstring("downloaded 1 · up to date 1 · gone 0"))
}

func TestModel_CancelKeyCancelsOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	session := &fakeSession{}
	model := feed(tui.NewModel(session, nil),
		tea.KeyMsg{Type: tea.KeyCtrlC},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}},
	)

	g.Expect(session.cancels).To(Equal(1))
	g.Expect(model.View()).To(ContainSubstring("Stopping"))
}

func TestModel_FinishedShowsSummaryAndQuits(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	session := &fakeSession{summary: syncengine.Summary{Transferred: 3, Skipped: 7, Bytes: 2048, Elapsed: 90 * time.Second}}
	model := feed(tui.NewModel(session, nil),
		tui.EventMsg{Event: syncengine.Finishing{}},
	)

	model, cmd := model.Update(tui.EventMsg{Event: syncengine.Finished{}})

	g.Expect(cmd).ToNot(BeNil())
	g.Expect(model.(tui.Model).Finished()).To(BeTrue())

	view := model.View()
	g.Expect(view).To(ContainSubstring("Update complete"))
	g.Expect(view).To(ContainSubstring("2.0 KB in 1m 30s"))
}

func TestModel_ShowsFolderFailures(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	model := feed(tui.NewModel(&fakeSession{}, nil),
		tui.EventMsg{Event: syncengine.FolderFailed{Folder: "/field", Err: errors.New("boom")}},
	)

	g.Expect(model.View()).To(ContainSubstring("/field: boom"))
}

func TestListenCmd(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	events := make(chan syncengine.Event, 1)
	events <- syncengine.Finishing{}
	close(events)

	g.Expect(tui.ListenCmd(events)()).To(Equal(tui.EventMsg{Event: syncengine.Finishing{}}))
	g.Expect(tui.ListenCmd(events)()).To(Equal(tui.StreamClosedMsg{}))
}

func TestReport(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	events := make(chan syncengine.Event, 8)
	events <- syncengine.CollectingFiles{Type: "card"}
	events <- syncengine.FileCount{FileCount: 2}
	events <- syncengine.File{Name: "1.jpg", Number: 1, Existed: true}
	events <- syncengine.File{Name: "2.jpg", Number: 2, Skipped: true}
	events <- syncengine.Finishing{}
	events <- syncengine.Finished{}
	close(events)

	var out bytes.Buffer
	tui.Report(&out, events)

	g.Expect(out.String()).To(Equal(
		"collecting files for card\n" +
			"card: 2 files\n" +
			"card [1/2] 1.jpg downloaded\n" +
			"card [2/2] 2.jpg up to date\n" +
			"finishing\n" +
			"finished\n"))
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(tui.FormatBytes(512)).To(Equal("512 B"))
	g.Expect(tui.FormatBytes(1536)).To(Equal("1.5 KB"))
	g.Expect(tui.FormatBytes(5 * 1024 * 1024)).To(Equal("5.0 MB"))
}
