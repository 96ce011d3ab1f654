package ui

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/codehiveofficial/codehive/internal/chat"
	"github.com/codehiveofficial/codehive/internal/docsync"
	"github.com/codehiveofficial/codehive/internal/session"
)

type fakeSession struct {
	view   session.View
	video  bool
	audio  bool
	said   []string
	left   int
	failOn error
}

func (f *fakeSession) Snapshot() session.View { return f.view }

func (f *fakeSession) ToggleVideo() (bool, error) {
	if f.failOn != nil {
		return false, f.failOn
	}
	f.video = !f.video
	return f.video, nil
}

func (f *fakeSession) ToggleAudio() (bool, error) {
	f.audio = !f.audio
	return f.audio, nil
}

func (f *fakeSession) Edit(text string, cursor *docsync.Cursor) error {
	f.view.Document = docsync.State{Text: text, Cursor: cursor}
	return nil
}

func (f *fakeSession) SendMessage(text string) error {
	f.said = append(f.said, text)
	return nil
}

func (f *fakeSession) LeaveRoom() { f.left++ }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr error
	}{
		{"hello there", Command{Name: "say", Args: []string{"hello there"}}, nil},
		{"/video", Command{Name: "video", Args: []string{}}, nil},
		{"/SAY hi all", Command{Name: "say", Args: []string{"hi", "all"}}, nil},
		{`/save "my file.py"`, Command{Name: "save", Args: []string{"my file.py"}}, nil},
		{"/quit", Command{Name: "quit", Args: []string{}}, nil},
		{"   ", Command{}, ErrEmptyCommand},
		{"/", Command{}, ErrEmptyCommand},
		{"/dance", Command{}, ErrUnknownCommand},
		{`/edit "unterminated`, Command{}, ErrUsage},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != tt.want.Name || strings.Join(got.Args, "|") != strings.Join(tt.want.Args, "|") {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func run(t *testing.T, s Session, line string) (Result, error) {
	t.Helper()
	c, err := ParseCommand(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return Execute(s, c)
}

func TestExecuteToggles(t *testing.T) {
	s := &fakeSession{video: true, audio: true}

	res, err := run(t, s, "/video")
	if err != nil || res.Output != "Camera off" {
		t.Fatalf("video = %+v, %v", res, err)
	}
	res, _ = run(t, s, "/video")
	if res.Output != "Camera on" {
		t.Errorf("second video = %q", res.Output)
	}
	res, _ = run(t, s, "/audio")
	if res.Output != "Microphone off" {
		t.Errorf("audio = %q", res.Output)
	}

	s.failOn = session.ErrMediaNotReady
	if _, err := run(t, s, "/video"); !errors.Is(err, session.ErrMediaNotReady) {
		t.Errorf("video without media: %v", err)
	}
}

func TestExecuteDocument(t *testing.T) {
	dir := t.TempDir()
	s := &fakeSession{view: session.View{Room: session.Room{ID: "brave-otter-lamp"}}}

	if _, err := run(t, s, "/edit print(1)"); err != nil {
		t.Fatal(err)
	}
	if s.view.Document.Text != "print(1)" {
		t.Fatalf("document = %q", s.view.Document.Text)
	}

	target := filepath.Join(dir, "out.py")
	for _, want := range []string{target, filepath.Join(dir, "out (1).py")} {
		res, err := run(t, s, "/save "+target)
		if err != nil {
			t.Fatal(err)
		}
		if res.Output != "Saved document to "+want {
			t.Errorf("save = %q", res.Output)
		}
	}

	src := filepath.Join(dir, "src.go")
	if err := os.WriteFile(src, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, s, "/load "+src); err != nil {
		t.Fatal(err)
	}
	if s.view.Document.Text != "package main\n" {
		t.Errorf("loaded = %q", s.view.Document.Text)
	}

	if _, err := run(t, s, "/load"); !errors.Is(err, ErrUsage) {
		t.Errorf("load without file: %v", err)
	}
}

func TestExecuteExport(t *testing.T) {
	s := &fakeSession{view: session.View{
		Room:         session.Room{ID: "r1"},
		Self:         session.Participant{DisplayName: "alice"},
		Participants: []session.Participant{{ID: "b", DisplayName: "bob"}},
		Document:     docsync.State{Text: "x = 1"},
		Messages:     []chat.Message{{SenderName: "bob", Text: "hi"}},
	}}
	target := filepath.Join(t.TempDir(), "session.zip")

	if _, err := run(t, s, "/export "+target); err != nil {
		t.Fatal(err)
	}
	r, err := zip.OpenReader(target)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "document.txt,chat.txt,participants.txt" {
		t.Errorf("archive holds %s", got)
	}
}

func TestExecuteChatAndLeave(t *testing.T) {
	s := &fakeSession{}

	if _, err := run(t, s, "just text"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, s, "/say"); !errors.Is(err, ErrUsage) {
		t.Errorf("empty say: %v", err)
	}
	if len(s.said) != 1 || s.said[0] != "just text" {
		t.Errorf("said = %q", s.said)
	}

	res, err := run(t, s, "/leave")
	if err != nil || !res.Quit || s.left != 1 {
		t.Errorf("leave = %+v, %v, left %d", res, err, s.left)
	}
}

func TestRoomModelKeys(t *testing.T) {
	s := &fakeSession{video: true}
	m := NewRoomModel(s, make(chan session.Update))

	m.input.SetValue("/video")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("toggle should not quit")
	}
	if s.video {
		t.Error("video still on")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Camera off") {
		t.Error("status missing from view")
	}

	m.input.SetValue("/dance")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.failed {
		t.Error("unknown command not reported")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
	if s.left != 1 {
		t.Errorf("left %d times", s.left)
	}
}

func TestRoomModelUpdates(t *testing.T) {
	s := &fakeSession{}
	updates := make(chan session.Update, 1)
	m := NewRoomModel(s, updates)

	s.view.Participants = []session.Participant{{ID: "b", DisplayName: "bob", VideoEnabled: true}}
	updates <- session.Update{State: session.Joined}
	msg := m.listen()()
	if _, cmd := m.Update(msg); cmd == nil {
		t.Error("model stopped listening")
	}
	if !strings.Contains(m.View(), "bob") {
		t.Error("participant missing from view")
	}

	m.Update(updateMsg{Err: session.ErrRelayClosed})
	if !m.failed || !strings.Contains(m.status, "relay connection lost") {
		t.Errorf("status = %q", m.status)
	}
}
