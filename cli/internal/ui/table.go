package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type FileTableItem struct {
	Index int
	Name  string
	Size  int64
	Type  string
}

func styledTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

// FileTableView renders files as a bordered table.
func FileTableView(items []FileTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No files")
	}

	rows := make([][]string, 0, len(items))
	var total int64
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Index),
			utils.TruncateString(item.Name, 50),
			utils.FormatSize(item.Size),
			utils.TruncateString(item.Type, 24),
		})
		total += item.Size
	}
	rows = append(rows, []string{"", fmt.Sprintf("%d file(s)", len(items)), utils.FormatSize(total), ""})

	return styledTable([]string{"#", "Name", "Size", "Type"}, rows).Render()
}

func RenderFileTable(items []FileTableItem) {
	fmt.Println(FileTableView(items))
}

// PeerTableItem is one row of the room listing.
type PeerTableItem struct {
	Index        int
	DisplayName  string
	Device       string
	ID           string
	RTCSupported bool
}

// PeerTableView renders room members.
func PeerTableView(items []PeerTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No other devices in this room")
	}

	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rtc := "no"
		if p.RTCSupported {
			rtc = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Index),
			p.DisplayName,
			utils.TruncateString(p.Device, 30),
			utils.TruncateString(p.ID, 12),
			rtc,
		})
	}
	return styledTable([]string{"#", "Name", "Device", "ID", "WebRTC"}, rows).Render()
}

func RenderPeerTable(items []PeerTableItem) {
	fmt.Println(PeerTableView(items))
}

// SelfView is the one-line "you are" banner.
func SelfView(displayName, deviceName, room string) string {
	return fmt.Sprintf("%s You are %s %s\n%s Room: %s",
		IconPeer, TitleStyle.Render(displayName), MutedStyle.Render("("+deviceName+")"),
		IconRoom, MutedStyle.Render(room))
}

// PairingView shows the key the other device has to enter.
func PairingView(roomKey, command string) string {
	shown := roomKey
	if len(roomKey) == 6 {
		shown = roomKey[:3] + " " + roomKey[3:]
	}
	content := fmt.Sprintf("%s Pairing key\n\n%s\n\n%s",
		IconKey,
		KeyStyle.Render(shown),
		MutedStyle.Render("On the other device run: "+command),
	)
	return PairingBoxStyle.Render(content)
}

type TransferSummary struct {
	Status    string
	Files     int
	TotalSize string
	Duration  string
	Speed     string
}

// WriteTransferSummary writes the closing statistics with go-pretty.
func WriteTransferSummary(w io.Writer, title string, s TransferSummary) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Color.Header = text.Colors{text.Bold}
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Status", s.Status},
		{"Files", s.Files},
		{"Total Size", s.TotalSize},
		{"Duration", s.Duration},
		{"Avg Speed", s.Speed},
	})
	t.Render()
}

func RenderTransferSummary(title string, s TransferSummary) {
	WriteTransferSummary(os.Stdout, title, s)
}
