package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts events to and from websocket frames.
type Codec interface {
	Name() string
	// FrameType is the websocket message type the codec writes.
	FrameType() int
	Encode(Event) ([]byte, error)
	Decode([]byte) (Event, error)
}

// CodecByName returns the codec registered under name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// CodecForFrame picks the codec matching an incoming websocket frame type.
func CodecForFrame(frameType int) Codec {
	if frameType == websocket.BinaryMessage {
		return Msgpack
	}
	return JSON
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

type unmarshalFunc func([]byte, any) error

type decodeFunc func(unmarshalFunc, []byte) (Event, error)

func decodeAs[T Event](unmarshal unmarshalFunc, data []byte) (Event, error) {
	var ev T
	if len(data) > 0 {
		if err := unmarshal(data, &ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

var decoders = map[Kind]decodeFunc{
	KindCreateRoom:              decodeAs[CreateRoom],
	KindRoomCreated:             decodeAs[RoomCreated],
	KindJoinRoom:                decodeAs[JoinRoom],
	KindRoomJoined:              decodeAs[RoomJoined],
	KindUserJoined:              decodeAs[UserJoined],
	KindUserJoinedWithSignal:    decodeAs[UserJoinedWithSignal],
	KindSendingSignal:           decodeAs[SendingSignal],
	KindReturningSignal:         decodeAs[ReturningSignal],
	KindReceivingReturnedSignal: decodeAs[ReceivingReturnedSignal],
	KindUserLeft:                decodeAs[UserLeft],
	KindCodeChange:              decodeAs[CodeChange],
	KindReceiveCodeChange:       decodeAs[ReceiveCodeChange],
	KindChatMessage:             decodeAs[ChatMessage],
	KindReceiveMessage:          decodeAs[ReceiveMessage],
	KindToggleVideo:             decodeAs[ToggleVideo],
	KindToggleAudio:             decodeAs[ToggleAudio],
	KindReceiveToggleVideo:      decodeAs[ReceiveToggleVideo],
	KindReceiveToggleAudio:      decodeAs[ReceiveToggleAudio],
	KindError:                   decodeAs[Failure],
}

func decodePayload(kind Kind, payload []byte, unmarshal unmarshalFunc) (Event, error) {
	if kind == "" {
		return nil, &DecodeError{Err: fmt.Errorf("%w: missing type", ErrMalformed)}
	}
	decode, ok := decoders[kind]
	if !ok {
		return nil, &DecodeError{Kind: kind, Err: ErrUnknownKind}
	}
	ev, err := decode(unmarshal, payload)
	if err != nil {
		return nil, &DecodeError{Kind: kind, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return ev, nil
}

type jsonEnvelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	return json.Marshal(jsonEnvelope{Type: ev.Kind(), Payload: payload})
}

func (jsonCodec) Decode(data []byte) (Event, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if bytes.Equal(env.Payload, []byte("null")) {
		env.Payload = nil
	}
	return decodePayload(env.Type, env.Payload, json.Unmarshal)
}

// msgpack frames reuse the json field names so both codecs share one vocabulary.
const msgpackTag = "json"

type msgpackEnvelope struct {
	Type    Kind               `json:"type"`
	Payload msgpack.RawMessage `json:"payload,omitempty"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(ev Event) ([]byte, error) {
	payload, err := msgpackMarshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	return msgpackMarshal(msgpackEnvelope{Type: ev.Kind(), Payload: payload})
}

func (msgpackCodec) Decode(data []byte) (Event, error) {
	var env msgpackEnvelope
	if err := msgpackUnmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return decodePayload(env.Type, env.Payload, msgpackUnmarshal)
}

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag(msgpackTag)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(msgpackTag)
	return dec.Decode(v)
}
