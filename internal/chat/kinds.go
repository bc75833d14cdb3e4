package chat

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// EventKind enumerates every frame that crosses the chat transport.
type EventKind int

const (
	KindUnknown EventKind = iota

	// Client -> Server
	KindIdentify
	KindCreateRoom
	KindJoinRoom
	KindSendMessage

	// Server -> Client
	KindRoomCreated
	KindRoomCreationError
	KindJoinedRoom
	KindRoomJoinError
	KindUpdateParticipants
	KindReceiveMessage
	KindSendMessageError
)

var kindNames = map[EventKind]string{
	KindIdentify:           "identify",
	KindCreateRoom:         "createRoom",
	KindJoinRoom:           "joinRoom",
	KindSendMessage:        "sendMessage",
	KindRoomCreated:        "roomCreated",
	KindRoomCreationError:  "roomCreationError",
	KindJoinedRoom:         "joinedRoom",
	KindRoomJoinError:      "roomJoinError",
	KindUpdateParticipants: "updateParticipants",
	KindReceiveMessage:     "receiveMessage",
	KindSendMessageError:   "sendMessageError",
}

var kindsByName = lo.Invert(kindNames)

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Inbound reports whether clients are allowed to send this kind.
func (k EventKind) Inbound() bool {
	return k >= KindIdentify && k <= KindSendMessage
}

func ParseEventKind(name string) EventKind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}

// Envelope is the JSON frame exchanged over the transport.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func EncodeFrame(kind EventKind, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Event: kind.String(), Data: data})
}

func DecodeFrame(frame []byte) (EventKind, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return KindUnknown, nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	kind := ParseEventKind(env.Event)
	if kind == KindUnknown {
		return KindUnknown, nil, fmt.Errorf("%w: unknown event %q", ErrProtocol, env.Event)
	}
	return kind, env.Data, nil
}
