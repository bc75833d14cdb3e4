package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKindNames(t *testing.T) {
	for kind, name := range kindNames {
		assert.Equal(t, name, kind.String())
		assert.Equal(t, kind, ParseEventKind(name))
	}
	assert.Equal(t, KindUnknown, ParseEventKind("JoinRoom"))
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestInboundKinds(t *testing.T) {
	assert.True(t, KindJoinRoom.Inbound())
	assert.True(t, KindSendMessage.Inbound())
	assert.False(t, KindReceiveMessage.Inbound())
	assert.False(t, KindUnknown.Inbound())
}

func TestEncodeDecodeFrame(t *testing.T) {
	frame, err := EncodeFrame(KindJoinRoom, JoinRoomRequest{RoomName: "r", UserId: "u", Name: "n"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"joinRoom","data":{"roomName":"r","userId":"u","name":"n"}}`, string(frame))

	kind, data, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, KindJoinRoom, kind)

	var req JoinRoomRequest
	require.NoError(t, json.Unmarshal(data, &req))
	assert.Equal(t, "u", req.UserId)
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `hello`},
		{"unknown event", `{"event":"dance","data":{}}`},
		{"missing event", `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeFrame([]byte(tt.frame))
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}
