package signaling

// Kind names an event on the relay wire.
type Kind string

// Event kinds.
const (
	KindCreateRoom              Kind = "create_room"
	KindRoomCreated             Kind = "room_created"
	KindJoinRoom                Kind = "join_room"
	KindRoomJoined              Kind = "room_joined"
	KindUserJoined              Kind = "user_joined"
	KindUserJoinedWithSignal    Kind = "user_joined_with_signal"
	KindSendingSignal           Kind = "sending_signal"
	KindReturningSignal         Kind = "returning_signal"
	KindReceivingReturnedSignal Kind = "receiving_returned_signal"
	KindUserLeft                Kind = "user_left"
	KindCodeChange              Kind = "code_change"
	KindReceiveCodeChange       Kind = "receive_code_change"
	KindChatMessage             Kind = "chat_message"
	KindReceiveMessage          Kind = "receive_message"
	KindToggleVideo             Kind = "toggle_video"
	KindToggleAudio             Kind = "toggle_audio"
	KindReceiveToggleVideo      Kind = "receive_toggle_video"
	KindReceiveToggleAudio      Kind = "receive_toggle_audio"
	KindError                   Kind = "error"
)

// Event is one message exchanged with the relay. The set of
// implementations is closed: only types in this package satisfy it.
type Event interface {
	Kind() Kind
	event()
}

// Signal is an opaque call-signaling envelope: a complete SDP offer or answer.
type Signal struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Cursor is a caret position in the shared document.
type Cursor struct {
	Line   int `json:"lineNumber"`
	Column int `json:"column"`
}

// Member describes a participant already in a room.
type Member struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type CreateRoom struct{}

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// RoomJoined acknowledges a join. UserID is the id the relay assigned to
// the joining client; Users lists the members that were already present.
type RoomJoined struct {
	RoomID string   `json:"roomId"`
	UserID string   `json:"userId"`
	Users  []Member `json:"users,omitempty"`
}

type UserJoined struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type UserJoinedWithSignal struct {
	Signal   Signal `json:"signal"`
	CallerID string `json:"callerID"`
	UserName string `json:"userName,omitempty"`
}

type SendingSignal struct {
	UserToSignal string `json:"userToSignal"`
	CallerID     string `json:"callerID"`
	Signal       Signal `json:"signal"`
}

type ReturningSignal struct {
	Signal   Signal `json:"signal"`
	CallerID string `json:"callerID"`
}

type ReceivingReturnedSignal struct {
	Signal Signal `json:"signal"`
	ID     string `json:"id"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

type CodeChange struct {
	RoomID         string  `json:"roomId"`
	Code           string  `json:"code"`
	CursorPosition *Cursor `json:"cursorPosition,omitempty"`
}

type ReceiveCodeChange struct {
	RoomID         string  `json:"roomId,omitempty"`
	Code           string  `json:"code"`
	CursorPosition *Cursor `json:"cursorPosition,omitempty"`
}

type ChatMessage struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

type ReceiveMessage struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
}

type ToggleVideo struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

type ToggleAudio struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

type ReceiveToggleVideo struct {
	UserID  string `json:"userId"`
	Enabled bool   `json:"enabled"`
}

type ReceiveToggleAudio struct {
	UserID  string `json:"userId"`
	Enabled bool   `json:"enabled"`
}

// Failure is the relay's error event.
type Failure struct {
	Reason string `json:"error"`
}

func (f Failure) Error() string { return "relay: " + f.Reason }

func (CreateRoom) Kind() Kind              { return KindCreateRoom }
func (RoomCreated) Kind() Kind             { return KindRoomCreated }
func (JoinRoom) Kind() Kind                { return KindJoinRoom }
func (RoomJoined) Kind() Kind              { return KindRoomJoined }
func (UserJoined) Kind() Kind              { return KindUserJoined }
func (UserJoinedWithSignal) Kind() Kind    { return KindUserJoinedWithSignal }
func (SendingSignal) Kind() Kind           { return KindSendingSignal }
func (ReturningSignal) Kind() Kind         { return KindReturningSignal }
func (ReceivingReturnedSignal) Kind() Kind { return KindReceivingReturnedSignal }
func (UserLeft) Kind() Kind                { return KindUserLeft }
func (CodeChange) Kind() Kind              { return KindCodeChange }
func (ReceiveCodeChange) Kind() Kind       { return KindReceiveCodeChange }
func (ChatMessage) Kind() Kind             { return KindChatMessage }
func (ReceiveMessage) Kind() Kind          { return KindReceiveMessage }
func (ToggleVideo) Kind() Kind             { return KindToggleVideo }
func (ToggleAudio) Kind() Kind             { return KindToggleAudio }
func (ReceiveToggleVideo) Kind() Kind      { return KindReceiveToggleVideo }
func (ReceiveToggleAudio) Kind() Kind      { return KindReceiveToggleAudio }
func (Failure) Kind() Kind                 { return KindError }

func (CreateRoom) event()              {}
func (RoomCreated) event()             {}
func (JoinRoom) event()                {}
func (RoomJoined) event()              {}
func (UserJoined) event()              {}
func (UserJoinedWithSignal) event()    {}
func (SendingSignal) event()           {}
func (ReturningSignal) event()         {}
func (ReceivingReturnedSignal) event() {}
func (UserLeft) event()                {}
func (CodeChange) event()              {}
func (ReceiveCodeChange) event()       {}
func (ChatMessage) event()             {}
func (ReceiveMessage) event()          {}
func (ToggleVideo) event()             {}
func (ToggleAudio) event()             {}
func (ReceiveToggleVideo) event()      {}
func (ReceiveToggleAudio) event()      {}
func (Failure) event()                 {}
