package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestFileTableView(t *testing.T) {
	out := FileTableView([]FileTableItem{
		{Index: 1, Name: "report.pdf", Size: 2048, Type: "application/pdf"},
		{Index: 2, Name: "photo.jpg", Size: 1024, Type: "image/jpeg"},
	})
	for _, want := range []string{"report.pdf", "photo.jpg", "2 file(s)", "3.00 KB"} {
		if !strings.Contains(out, want) {
			t.Errorf("file table missing %q:\n%s", want, out)
		}
	}

	if got := FileTableView(nil); !strings.Contains(got, "No files") {
		t.Errorf("empty table = %q", got)
	}
}

func TestPeerTableView(t *testing.T) {
	out := PeerTableView([]PeerTableItem{
		{Index: 1, DisplayName: "Brave Otter", Device: "Mac Chrome", ID: "a1b2c3", RTCSupported: true},
		{Index: 2, DisplayName: "Calm Heron", Device: "Linux", ID: "d4e5f6"},
	})
	for _, want := range []string{"Brave Otter", "Calm Heron", "yes", "no", "a1b2c3"} {
		if !strings.Contains(out, want) {
			t.Errorf("peer table missing %q:\n%s", want, out)
		}
	}
	if got := PeerTableView(nil); !strings.Contains(got, "No other devices") {
		t.Errorf("empty peer table = %q", got)
	}
}

func TestPairingView(t *testing.T) {
	out := PairingView("123456", "keydrop receive --key 123456")
	if !strings.Contains(out, "123 456") {
		t.Errorf("key not split:\n%s", out)
	}
	if !strings.Contains(out, "keydrop receive") {
		t.Errorf("command missing:\n%s", out)
	}

	if out := PairingView("12", "x"); !strings.Contains(out, "12") {
		t.Errorf("short key dropped:\n%s", out)
	}
}

func TestWriteTransferSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteTransferSummary(&buf, "Sent", TransferSummary{
		Status:    "done",
		Files:     3,
		TotalSize: "1.50 MB",
		Duration:  "2s",
		Speed:     "768.00 KB/s",
	})
	out := buf.String()
	for _, want := range []string{"Sent", "Total Size", "1.50 MB", "768.00 KB/s", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSimpleSpinner("connecting")
	sp.out = &buf
	sp.interval = time.Millisecond
	sp.Start()
	sp.UpdateMessage("still connecting")
	time.Sleep(5 * time.Millisecond)
	sp.Stop()
	sp.Stop()

	if !strings.Contains(buf.String(), "connecting") {
		t.Errorf("spinner never drew: %q", buf.String())
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	sp := NewWaitingSpinner("waiting")
	sp.out = &buf

	done := make(chan struct{})
	go func() {
		sp.Success("paired")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop before Start blocked")
	}
	if !strings.Contains(buf.String(), "paired") {
		t.Errorf("success line missing: %q", buf.String())
	}
}

func TestTransferModelProgress(t *testing.T) {
	updates := make(chan progressUpdate, 4)
	m := newLiveTransferModel(ModeSend, []string{"a.txt", "b.txt"}, []int64{100, 200}, updates)

	m.Update(progressUpdate{fileID: 0, current: 50})
	m.Update(progressUpdate{fileID: 1, failed: true, errMsg: "peer went away"})
	m.Update(progressUpdate{fileID: 7, current: 1})

	if m.files[0].current != 50 {
		t.Errorf("file 0 current = %d, want 50", m.files[0].current)
	}
	if m.allDone() {
		t.Error("allDone with file 0 still running")
	}

	view := m.View()
	for _, want := range []string{"Sending", "a.txt", "b.txt", "peer went away"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m.Update(progressUpdate{fileID: 0, completed: true})
	if !m.allDone() {
		t.Error("allDone false after every file finished")
	}
	if m.files[0].current != 100 {
		t.Errorf("completed file current = %d, want size", m.files[0].current)
	}
}

func TestTransferUICancel(t *testing.T) {
	ui := NewTransferUI(ModeReceive, []string{"a.txt"}, []int64{10})

	_, cmd := ui.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}

	select {
	case <-ui.Cancelled():
	default:
		t.Fatal("Cancelled not closed after q")
	}

	done := make(chan struct{})
	go func() {
		ui.MarkComplete(0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MarkComplete blocked after cancel")
	}

	ui.Stop()
}
