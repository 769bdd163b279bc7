package transfer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
)

// Progress receives per-file transfer updates. *ui.TransferUI implements it.
type Progress interface {
	UpdateProgress(index int, current int64)
	MarkComplete(index int)
	MarkFailed(index int, msg string)
}

var _ Progress = (*ui.TransferUI)(nil)

// NopProgress discards updates.
type NopProgress struct{}

func (NopProgress) UpdateProgress(int, int64) {}
func (NopProgress) MarkComplete(int)          {}
func (NopProgress) MarkFailed(int, string)    {}

// ProgressTracker owns the live view for one transfer and times it.
type ProgressTracker struct {
	UI        *ui.TransferUI
	FileNames []string
	FileSizes []int64
	start     time.Time
}

func NewProgressTracker(mode ui.TransferMode, names []string, sizes []int64) *ProgressTracker {
	return &ProgressTracker{
		UI:        ui.NewTransferUI(mode, names, sizes),
		FileNames: names,
		FileSizes: sizes,
	}
}

// NewMetadataTracker builds a receive-side tracker from announced files.
func NewMetadataTracker(metas []webrtc.FileMetadata) *ProgressTracker {
	names := make([]string, len(metas))
	sizes := make([]int64, len(metas))
	for i, m := range metas {
		names[i] = m.Name
		sizes[i] = int64(m.Size)
	}
	return NewProgressTracker(ui.ModeReceive, names, sizes)
}

func (p *ProgressTracker) Start() {
	p.start = time.Now()
	p.UI.Start()
}

func (p *ProgressTracker) Stop() {
	p.UI.Stop()
}

func (p *ProgressTracker) TotalSize() int64 {
	var total int64
	for _, s := range p.FileSizes {
		total += s
	}
	return total
}

func (p *ProgressTracker) Duration() time.Duration {
	return time.Since(p.start)
}

// RenderSummary prints the closing statistics table.
func (p *ProgressTracker) RenderSummary(title string) {
	fmt.Println()
	ui.RenderTransferSummary(title, NewSummary(len(p.FileNames), p.TotalSize(), p.Duration()))
}

// NewSummary derives the summary row values.
func NewSummary(files int, totalSize int64, d time.Duration) ui.TransferSummary {
	var speed float64
	if s := d.Seconds(); s > 0 {
		speed = float64(totalSize) / s
	}
	return ui.TransferSummary{
		Status:    ui.IconSuccess + " Complete",
		Files:     files,
		TotalSize: utils.FormatSize(totalSize),
		Duration:  utils.FormatTimeDuration(d),
		Speed:     utils.FormatSpeed(speed),
	}
}

func BuildFileTable(metas []webrtc.FileMetadata) []ui.FileTableItem {
	items := make([]ui.FileTableItem, len(metas))
	for i, f := range metas {
		items[i] = ui.FileTableItem{
			Index: i + 1,
			Name:  f.Name,
			Size:  int64(f.Size),
			Type:  f.Type,
		}
	}
	return items
}

// PromptConsent asks on out and reads the answer from in. Anything but an
// explicit no accepts.
func PromptConsent(in io.Reader, out io.Writer, from string) bool {
	fmt.Fprintf(out, "\n%s Receive these files from %s? [Y/n] ", ui.IconQuestion, from)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer != "n" && answer != "no"
}
