package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type TransferMode int

const (
	ModeSend TransferMode = iota
	ModeReceive
)

// TransferUI is the live multi-file progress view. Updates are dropped
// rather than blocking the transfer when the view falls behind.
type TransferUI struct {
	program    *tea.Program
	model      *liveTransferModel
	updateChan chan progressUpdate
	cancelled  chan struct{}
	exited     chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

type progressUpdate struct {
	fileID    int
	current   int64
	completed bool
	failed    bool
	errMsg    string
}

type tickMsg time.Time

type liveTransferModel struct {
	mode       TransferMode
	files      []*liveFileProgress
	progBars   []progress.Model
	spinner    spinner.Model
	startTime  time.Time
	updateChan chan progressUpdate
	onCancel   func()
	quitting   bool
}

type liveFileProgress struct {
	name      string
	size      int64
	current   int64
	startTime time.Time
	complete  bool
	failed    bool
	errMsg    string
}

func NewTransferUI(mode TransferMode, fileNames []string, fileSizes []int64) *TransferUI {
	updateChan := make(chan progressUpdate, 256)
	ui := &TransferUI{
		updateChan: updateChan,
		cancelled:  make(chan struct{}),
		exited:     make(chan struct{}),
	}
	ui.model = newLiveTransferModel(mode, fileNames, fileSizes, updateChan)
	var once sync.Once
	ui.model.onCancel = func() { once.Do(func() { close(ui.cancelled) }) }
	return ui
}

func newLiveTransferModel(mode TransferMode, names []string, sizes []int64, updates chan progressUpdate) *liveTransferModel {
	files := make([]*liveFileProgress, len(names))
	bars := make([]progress.Model, len(names))
	for i := range names {
		files[i] = &liveFileProgress{name: names[i], size: sizes[i]}
		bars[i] = progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(25),
			progress.WithoutPercentage(),
		)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &liveTransferModel{
		mode:       mode,
		files:      files,
		progBars:   bars,
		spinner:    s,
		startTime:  time.Now(),
		updateChan: updates,
	}
}

// Start runs the view inline, keeping earlier terminal output visible.
func (ui *TransferUI) Start() {
	ui.program = tea.NewProgram(ui.model)
	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		defer close(ui.exited)
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Cancelled is closed when the user quits the view.
func (ui *TransferUI) Cancelled() <-chan struct{} {
	return ui.cancelled
}

func (ui *TransferUI) send(u progressUpdate) {
	select {
	case ui.updateChan <- u:
	default:
	}
}

func (ui *TransferUI) UpdateProgress(fileID int, current int64) {
	ui.send(progressUpdate{fileID: fileID, current: current})
}

// mustSend blocks until the view takes the update or has gone away.
func (ui *TransferUI) mustSend(u progressUpdate) {
	select {
	case ui.updateChan <- u:
	case <-ui.exited:
	case <-ui.cancelled:
	}
}

func (ui *TransferUI) MarkComplete(fileID int) {
	ui.mustSend(progressUpdate{fileID: fileID, completed: true})
}

func (ui *TransferUI) MarkFailed(fileID int, errMsg string) {
	ui.mustSend(progressUpdate{fileID: fileID, failed: true, errMsg: errMsg})
}

// Stop renders the final frame and returns once the program has exited.
func (ui *TransferUI) Stop() {
	ui.stopOnce.Do(func() {
		if ui.program != nil {
			ui.program.Quit()
		}
		ui.wg.Wait()
	})
}

func (m *liveTransferModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *liveTransferModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updateChan
	}
}

func (m *liveTransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		for i := range m.progBars {
			m.progBars[i].Width = max(10, min(25, msg.Width-60))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		if !m.allDone() {
			cmds = append(cmds, tick())
		}

	case progressUpdate:
		m.apply(msg)
		cmds = append(cmds, m.listenForUpdates())
	}

	return m, tea.Batch(cmds...)
}

func (m *liveTransferModel) apply(u progressUpdate) {
	if u.fileID < 0 || u.fileID >= len(m.files) {
		return
	}
	f := m.files[u.fileID]
	switch {
	case u.completed:
		f.complete = true
		f.current = f.size
	case u.failed:
		f.failed = true
		f.errMsg = u.errMsg
	default:
		if f.startTime.IsZero() {
			f.startTime = time.Now()
		}
		f.current = u.current
	}
}

func (m *liveTransferModel) allDone() bool {
	for _, f := range m.files {
		if !f.complete && !f.failed {
			return false
		}
	}
	return true
}

func (m *liveTransferModel) View() string {
	if m.quitting {
		return MutedStyle.Render("Transfer cancelled") + "\n"
	}
	var b strings.Builder
	m.render(&b)
	return b.String()
}

func (m *liveTransferModel) render(w io.Writer) {
	icon, verb := IconSend, "Sending"
	if m.mode == ModeReceive {
		icon, verb = IconReceive, "Receiving"
	}

	var total, done int64
	for _, f := range m.files {
		total += f.size
		done += f.current
	}
	var percent, speed float64
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}
	if elapsed := time.Since(m.startTime).Seconds(); elapsed > 0 {
		speed = float64(done) / elapsed
	}

	fmt.Fprintf(w, "\n%s %s %s  %.1f%% (%s/%s) %s\n\n",
		icon, BoldStyle.Render(verb), m.spinner.View(),
		percent, utils.FormatSize(done), utils.FormatSize(total),
		MutedStyle.Render(utils.FormatSpeed(speed)))

	for i, f := range m.files {
		var mark string
		var nameStyle lipgloss.Style
		switch {
		case f.failed:
			mark, nameStyle = IconError, ErrorStyle
		case f.complete:
			mark, nameStyle = IconSuccess, SuccessStyle
		case f.current > 0:
			mark, nameStyle = m.spinner.View(), lipgloss.NewStyle()
		default:
			mark, nameStyle = "○", MutedStyle
		}

		fmt.Fprintf(w, "  %s %s ", mark, nameStyle.Width(24).Render(utils.TruncateString(f.name, 22)))
		if f.size > 0 {
			ratio := float64(f.current) / float64(f.size)
			fmt.Fprintf(w, "%s %5.1f%%", m.progBars[i].ViewAs(ratio), ratio*100)
		}
		if f.failed && f.errMsg != "" {
			fmt.Fprint(w, ErrorStyle.Render(" "+utils.TruncateString(f.errMsg, 40)))
		} else if !f.complete && f.current > 0 && !f.startTime.IsZero() {
			if s := time.Since(f.startTime).Seconds(); s > 0 {
				fmt.Fprint(w, MutedStyle.Render(" "+utils.FormatSpeed(float64(f.current)/s)))
			}
		}
		fmt.Fprintln(w)
	}

	if !m.allDone() {
		fmt.Fprintln(w, "\n"+MutedStyle.Render("Press q to cancel"))
	}
}
