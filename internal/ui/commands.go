package ui

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/codehiveofficial/codehive/internal/docsync"
	"github.com/codehiveofficial/codehive/internal/session"
	"github.com/codehiveofficial/codehive/internal/utils"
	"github.com/mattn/go-shellwords"
)

var (
	ErrEmptyCommand   = errors.New("nothing to do")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad usage")
)

// Session is the part of session.Manager the room UI drives.
type Session interface {
	Snapshot() session.View
	ToggleVideo() (bool, error)
	ToggleAudio() (bool, error)
	Edit(text string, cursor *docsync.Cursor) error
	SendMessage(text string) error
	LeaveRoom()
}

// Command is a parsed input line. Plain text becomes "say".
type Command struct {
	Name string
	Args []string
}

// Result is what running a command produced.
type Result struct {
	Output string
	Quit   bool
}

type commandDef struct {
	usage string
	help  string
	run   func(Session, []string) (Result, error)
}

var commands map[string]commandDef

func init() {
	commands = map[string]commandDef{
		"help":   {"/help", "show this list", runHelp},
		"video":  {"/video", "turn your camera on or off", runVideo},
		"audio":  {"/audio", "mute or unmute your microphone", runAudio},
		"say":    {"/say <text>", "send a chat message", runSay},
		"edit":   {"/edit <text>", "replace the shared document", runEdit},
		"load":   {"/load <file>", "replace the shared document with a file", runLoad},
		"save":   {"/save [file]", "write the shared document to a file", runSave},
		"export": {"/export [file.zip]", "archive document, chat and participants", runExport},
		"peers":  {"/peers", "list participants", runPeers},
		"leave":  {"/leave", "leave the room and quit", runLeave},
	}
	commands["quit"] = commands["leave"]
}

// ParseCommand splits an input line the way a shell would.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Name: "say", Args: []string{line}}, nil
	}

	args, err := shellwords.Parse(line[1:])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(args) == 0 {
		return Command{}, ErrEmptyCommand
	}

	name := strings.ToLower(args[0])
	if _, ok := commands[name]; !ok {
		return Command{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, name)
	}
	return Command{Name: name, Args: args[1:]}, nil
}

// Execute runs c against s.
func Execute(s Session, c Command) (Result, error) {
	def, ok := commands[c.Name]
	if !ok {
		return Result{}, fmt.Errorf("%w: /%s", ErrUnknownCommand, c.Name)
	}
	return def.run(s, c.Args)
}

func usage(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}

func runHelp(Session, []string) (Result, error) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		if name != "quit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		def := commands[name]
		fmt.Fprintf(&b, "%-20s %s\n", def.usage, def.help)
	}
	return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
}

func runVideo(s Session, _ []string) (Result, error) {
	on, err := s.ToggleVideo()
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Camera " + onOff(on)}, nil
}

func runAudio(s Session, _ []string) (Result, error) {
	on, err := s.ToggleAudio()
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Microphone " + onOff(on)}, nil
}

func runSay(s Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, usage("say")
	}
	return Result{}, s.SendMessage(strings.Join(args, " "))
}

func runEdit(s Session, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, usage("edit")
	}
	if err := s.Edit(strings.Join(args, " "), nil); err != nil {
		return Result{}, err
	}
	return Result{Output: "Document updated"}, nil
}

func runLoad(s Session, args []string) (Result, error) {
	if len(args) != 1 {
		return Result{}, usage("load")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return Result{}, err
	}
	if err := s.Edit(string(data), nil); err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("Loaded %s (%s)", args[0], utils.FormatSize(int64(len(data))))}, nil
}

func runSave(s Session, args []string) (Result, error) {
	v := s.Snapshot()
	name := defaultName(v, ".txt")
	switch len(args) {
	case 0:
	case 1:
		name = args[0]
	default:
		return Result{}, usage("save")
	}

	path, err := utils.WriteFile(name, []byte(v.Document.Text))
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Saved document to " + path}, nil
}

func runExport(s Session, args []string) (Result, error) {
	v := s.Snapshot()
	name := defaultName(v, ".zip")
	switch len(args) {
	case 0:
	case 1:
		name = args[0]
	default:
		return Result{}, usage("export")
	}

	path, err := utils.WriteArchive(name, archiveEntries(v))
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Exported session to " + path}, nil
}

func runPeers(s Session, _ []string) (Result, error) {
	return Result{Output: ParticipantsView(s.Snapshot())}, nil
}

func runLeave(s Session, _ []string) (Result, error) {
	s.LeaveRoom()
	return Result{Output: "Left the room", Quit: true}, nil
}

func defaultName(v session.View, ext string) string {
	if v.Room.ID == "" {
		return "codehive" + ext
	}
	return "codehive-" + v.Room.ID + ext
}

func archiveEntries(v session.View) []utils.ArchiveEntry {
	var chat strings.Builder
	for _, m := range v.Messages {
		fmt.Fprintf(&chat, "[%s] %s: %s\n", m.At.Format("15:04:05"), m.SenderName, m.Text)
	}

	var people strings.Builder
	fmt.Fprintf(&people, "%s (you)\n", v.Self.DisplayName)
	for _, p := range v.Participants {
		fmt.Fprintf(&people, "%s\n", p.DisplayName)
	}

	return []utils.ArchiveEntry{
		{Name: "document.txt", Data: []byte(v.Document.Text)},
		{Name: "chat.txt", Data: []byte(chat.String())},
		{Name: "participants.txt", Data: []byte(people.String())},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
