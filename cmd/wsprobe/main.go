package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Pretty print JSON helper
func prettyPrint(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func send(conn *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Data: raw})
}

// await reads frames until one of the wanted events arrives.
func await(conn *websocket.Conn, timeout time.Duration, wanted ...string) (envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return envelope{}, err
		}
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return envelope{}, err
		}
		for _, w := range wanted {
			if env.Event == w {
				return env, nil
			}
		}
		color.White("  (skipped %s)", env.Event)
	}
}

func step(title string, fn func() (envelope, error), ok string) envelope {
	color.Yellow("\n%s", title)
	env, err := fn()
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if env.Event != ok {
		color.Red("Unexpected %s", env.Event)
		prettyPrint(env.Data)
		os.Exit(1)
	}
	color.Green("Received %s", env.Event)
	prettyPrint(env.Data)
	return env
}

func main() {
	url := flag.String("url", "ws://localhost:5000/api/ws", "chat websocket endpoint")
	room := flag.String("room", "Probe Room", "room name")
	userId := flag.String("user", "probe-user", "user id")
	name := flag.String("name", "Probe", "display name")
	message := flag.String("message", "hello from wsprobe", "message text")
	timeout := flag.Duration("timeout", 5*time.Second, "per-step timeout")
	flag.Parse()

	color.Cyan("🚀 Probing chat websocket at %s\n", *url)

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		color.Red("Dial failed: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	step("1. Create room", func() (envelope, error) {
		if err := send(conn, "createRoom", map[string]string{"roomName": *room}); err != nil {
			return envelope{}, err
		}
		return await(conn, *timeout, "roomCreated", "roomCreationError")
	}, "roomCreated")

	joined := step("2. Join room", func() (envelope, error) {
		if err := send(conn, "joinRoom", map[string]string{"roomName": *room, "userId": *userId, "name": *name}); err != nil {
			return envelope{}, err
		}
		return await(conn, *timeout, "joinedRoom", "roomJoinError")
	}, "joinedRoom")

	var payload struct {
		RoomId string `json:"roomId"`
	}
	if err := json.Unmarshal(joined.Data, &payload); err != nil {
		color.Red("Bad joinedRoom payload: %v", err)
		os.Exit(1)
	}

	step("3. Send message", func() (envelope, error) {
		if err := send(conn, "sendMessage", map[string]string{"roomId": payload.RoomId, "userId": *userId, "message": *message}); err != nil {
			return envelope{}, err
		}
		return await(conn, *timeout, "receiveMessage", "sendMessageError")
	}, "receiveMessage")

	color.Cyan("\n✅ Probe finished")
}
