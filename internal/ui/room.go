package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/codehiveofficial/codehive/internal/session"
)

const (
	documentPreviewLines = 8
	minFeedHeight        = 4
	chromeHeight         = documentPreviewLines + 9
)

type updateMsg session.Update

type updatesClosedMsg struct{}

// RoomModel is the interactive room screen: header, shared document,
// chat feed and a command line.
type RoomModel struct {
	sess    Session
	updates <-chan session.Update

	input   textinput.Model
	feed    viewport.Model
	spinner spinner.Model

	view     session.View
	status   string
	failed   bool
	width    int
	quitting bool
}

func NewRoomModel(s Session, updates <-chan session.Update) *RoomModel {
	in := textinput.New()
	in.Placeholder = "message, or /help"
	in.Prompt = "> "
	in.CharLimit = 4096
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	m := &RoomModel{
		sess:    s,
		updates: updates,
		input:   in,
		feed:    viewport.New(80, 10),
		spinner: sp,
		width:   80,
	}
	m.refresh()
	return m
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

func (m *RoomModel) listen() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.sess.LeaveRoom()
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if m.run(line) {
				return m, tea.Quit
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.feed, cmd = m.feed.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.feed.Width = msg.Width
		m.feed.Height = max(minFeedHeight, msg.Height-chromeHeight)
		m.input.Width = max(10, msg.Width-4)
		m.refresh()
		return m, nil

	case updateMsg:
		if msg.Err != nil {
			m.setStatus(describe(msg.Err), true)
		}
		m.refresh()
		return m, m.listen()

	case updatesClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// run executes one input line and reports whether the UI should quit.
func (m *RoomModel) run(line string) bool {
	c, err := ParseCommand(line)
	if errors.Is(err, ErrEmptyCommand) {
		return false
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return false
	}

	res, err := Execute(m.sess, c)
	if err != nil {
		m.setStatus(describe(err), true)
		return false
	}
	m.setStatus(res.Output, false)
	m.refresh()
	if res.Quit {
		m.quitting = true
	}
	return res.Quit
}

func (m *RoomModel) setStatus(s string, failed bool) {
	m.status, m.failed = s, failed
}

func (m *RoomModel) refresh() {
	m.view = m.sess.Snapshot()

	var b strings.Builder
	for _, msg := range m.view.Messages {
		fmt.Fprintf(&b, "%s %s %s\n",
			MutedStyle.Render(msg.At.Format("15:04")),
			SenderStyle.Render(msg.SenderName+":"),
			msg.Text,
		)
	}
	atBottom := m.feed.AtBottom()
	m.feed.SetContent(strings.TrimRight(b.String(), "\n"))
	if atBottom {
		m.feed.GotoBottom()
	}
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView() + "\n")
	b.WriteString(m.peopleView() + "\n")
	b.WriteString(m.documentView() + "\n")
	b.WriteString(TitleStyle.Render(IconChat+" Chat") + "\n")
	b.WriteString(m.feed.View() + "\n")
	if m.status != "" {
		style := MutedStyle
		if m.failed {
			style = ErrorStyle
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(FooterStyle.Render("/help for commands • PgUp/PgDn scroll • Esc to leave"))
	return b.String()
}

func (m *RoomModel) headerView() string {
	v := m.view
	state := StatusStyle.Render(strings.ToUpper(v.State.String()))
	if v.State == session.Joining {
		state = m.spinner.View() + " " + state
	}
	room := "no room"
	if v.Room.ID != "" {
		room = v.Room.ID
	}
	return fmt.Sprintf("%s %s %s  %s %s",
		state,
		HeaderStyle.Render(IconRoom+" "+room),
		BoldStyle.Render(v.Self.DisplayName),
		mediaIcons(v.Self.VideoEnabled, v.Self.AudioEnabled),
		MutedStyle.Render(fmt.Sprintf("%d link(s)", len(v.Links))),
	)
}

func (m *RoomModel) peopleView() string {
	if len(m.view.Participants) == 0 {
		return MutedStyle.Render(IconWaiting + " waiting for others to join")
	}
	parts := make([]string, 0, len(m.view.Participants))
	for _, p := range m.view.Participants {
		parts = append(parts, fmt.Sprintf("%s %s %s", IconPeer, p.DisplayName, mediaIcons(p.VideoEnabled, p.AudioEnabled)))
	}
	return strings.Join(parts, "   ")
}

func (m *RoomModel) documentView() string {
	doc := m.view.Document
	lines := strings.Split(doc.Text, "\n")
	more := 0
	if len(lines) > documentPreviewLines {
		more = len(lines) - documentPreviewLines
		lines = lines[:documentPreviewLines]
	}

	title := IconCode + " Document"
	if doc.Cursor != nil {
		title += fmt.Sprintf("  Ln %d, Col %d", doc.Cursor.Line, doc.Cursor.Column)
	}
	body := strings.Join(lines, "\n")
	if doc.Text == "" {
		body = MutedStyle.Render("(empty)")
	}
	if more > 0 {
		body += "\n" + MutedStyle.Render(fmt.Sprintf("… %d more line(s)", more))
	}
	return DocumentBoxStyle.Width(max(20, m.width-2)).Render(TitleStyle.Render(title) + "\n" + body)
}

func describe(err error) string {
	var serr *session.Error
	if errors.As(err, &serr) {
		return serr.Error()
	}
	if errors.Is(err, session.ErrRelayClosed) {
		return "relay connection lost, /leave to quit"
	}
	return err.Error()
}

// RunRoom runs the room screen until the user leaves or ctx ends.
func RunRoom(ctx context.Context, s Session, updates <-chan session.Update, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(NewRoomModel(s, updates), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
