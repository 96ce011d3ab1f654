package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/codehiveofficial/codehive/internal/peer"
	"github.com/codehiveofficial/codehive/internal/session"
	"github.com/codehiveofficial/codehive/internal/utils"
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ParticipantsView renders the remote participants of v with their media
// flags and link state.
func ParticipantsView(v session.View) string {
	if len(v.Participants) == 0 {
		return MutedStyle.Render("Nobody else is here yet")
	}

	links := make(map[string]peer.Link, len(v.Links))
	for _, l := range v.Links {
		links[l.ParticipantID] = l
	}

	rows := make([][]string, 0, len(v.Participants))
	for i, p := range v.Participants {
		state := "-"
		if l, ok := links[p.ID]; ok {
			state = l.State.String()
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			utils.TruncateString(p.DisplayName, 24),
			mediaIcons(p.VideoEnabled, p.AudioEnabled),
			state,
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Name", "Media", "Link").
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

	return tbl.Render()
}

// RoomInfoView is the box shown after a room is created.
func RoomInfoView(roomID, roomLink string) string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconRoom,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		IconLink, MutedStyle.Render(roomLink),
	)
	return RoomBoxStyle.Render(content)
}

func RenderRoomInfo(roomID, roomLink string) {
	fmt.Fprintln(Output, RoomInfoView(roomID, roomLink))
}

// Summary describes a finished session.
type Summary struct {
	RoomID       string
	Participants int
	Messages     int
	Document     int
	Duration     string
}

// RenderSummary writes the end-of-session table to w.
func RenderSummary(w io.Writer, s Summary) {
	t := pretty.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Session Summary")
	t.SetStyle(pretty.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(pretty.Row{"Metric", "Value"})
	t.AppendRows([]pretty.Row{
		{"Room", s.RoomID},
		{"Participants seen", s.Participants},
		{"Messages", s.Messages},
		{"Document", utils.FormatSize(int64(s.Document))},
		{"Duration", s.Duration},
	})
	t.Render()
}
