package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mockmate-app/mockmate-live/internal/relay"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub, DefaultConfig()))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// dial connects a websocket client and consumes the hello, returning the
// connection and its relay-assigned id.
func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	if msg.Type != signaling.MessageTypeConnected {
		t.Fatalf("first event=%q, want %q", msg.Type, signaling.MessageTypeConnected)
	}
	var id string
	if err := json.Unmarshal(msg.Payload, &id); err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	if id == "" {
		t.Fatal("hello carried an empty connection id")
	}
	return conn, id
}

func readMessage(t *testing.T, conn *websocket.Conn) *signaling.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg signaling.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return &msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg signaling.Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("unexpected event %q", msg.Type)
	}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg *signaling.Message) {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func roomCount(t *testing.T, srv *httptest.Server) int {
	t.Helper()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
		Rooms  int    `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
	return body.Rooms
}

func TestHealth(t *testing.T) {
	srv := startTestServer(t)

	if got := roomCount(t, srv); got != 0 {
		t.Fatalf("rooms=%d, want 0", got)
	}
}

func TestGenerateRoom(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/generate-room")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Code) != 6 {
		t.Fatalf("code=%q, want 6 characters", body.Code)
	}
	if body.Code != strings.ToUpper(body.Code) {
		t.Fatalf("code=%q, want uppercase", body.Code)
	}
}

func TestConnectedHelloIsUnique(t *testing.T) {
	srv := startTestServer(t)

	_, idA := dial(t, srv)
	_, idB := dial(t, srv)

	if idA == idB {
		t.Fatalf("both connections got id %q", idA)
	}
}

func TestChatRelay(t *testing.T) {
	srv := startTestServer(t)

	connA, idA := dial(t, srv)
	connB, _ := dial(t, srv)
	connC, _ := dial(t, srv)

	sendMessage(t, connA, &signaling.Message{Type: signaling.MessageTypeJoinRoom, Room: "AAAA11"})
	sendMessage(t, connB, &signaling.Message{Type: signaling.MessageTypeJoinRoom, Room: "AAAA11"})
	sendMessage(t, connC, &signaling.Message{Type: signaling.MessageTypeJoinRoom, Room: "BBBB22"})

	chat := signaling.ChatMessage{Room: "AAAA11", Author: idA, Message: "hello there", Time: "10:30"}
	msg, err := signaling.EncodeChat(&chat)
	if err != nil {
		t.Fatalf("encode chat: %v", err)
	}
	sendMessage(t, connA, msg)

	got := readMessage(t, connB)
	if got.Type != signaling.MessageTypeReceiveMessage {
		t.Fatalf("event=%q, want %q", got.Type, signaling.MessageTypeReceiveMessage)
	}
	var received signaling.ChatMessage
	if err := json.Unmarshal(got.Payload, &received); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if received != chat {
		t.Fatalf("relayed %+v, want %+v", received, chat)
	}

	// Neither the sender nor another room hears it.
	expectSilence(t, connA)
	expectSilence(t, connC)
}

func TestUserJoinedNotifiesExistingMembersOnly(t *testing.T) {
	srv := startTestServer(t)

	connA, _ := dial(t, srv)
	connB, idB := dial(t, srv)

	sendMessage(t, connA, &signaling.Message{Type: signaling.MessageTypeJoinVideoRoom, Room: "CCCC33"})
	expectSilence(t, connA) // alone in the room, nothing to hear

	sendMessage(t, connB, &signaling.Message{Type: signaling.MessageTypeJoinVideoRoom, Room: "CCCC33"})

	got := readMessage(t, connA)
	if got.Type != signaling.MessageTypeUserJoined {
		t.Fatalf("event=%q, want %q", got.Type, signaling.MessageTypeUserJoined)
	}
	var joined string
	if err := json.Unmarshal(got.Payload, &joined); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if joined != idB {
		t.Fatalf("joined id=%q, want %q", joined, idB)
	}

	// The newcomer is not told about itself.
	expectSilence(t, connB)
}

func TestSignalRouting(t *testing.T) {
	srv := startTestServer(t)

	connA, idA := dial(t, srv)
	connB, idB := dial(t, srv)

	sendMessage(t, connA, &signaling.Message{Type: signaling.MessageTypeJoinVideoRoom, Room: "DDDD44"})
	sendMessage(t, connB, &signaling.Message{Type: signaling.MessageTypeJoinVideoRoom, Room: "DDDD44"})
	readMessage(t, connA) // user-joined for B

	t.Run("offer arrives as other-user", func(t *testing.T) {
		offer, err := signaling.EncodeSignal("DDDD44", signaling.SignalData{Type: "offer", SDP: "v=0 fake offer"})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		sendMessage(t, connA, offer)

		got := readMessage(t, connB)
		if got.Type != signaling.MessageTypeOtherUser {
			t.Fatalf("event=%q, want %q", got.Type, signaling.MessageTypeOtherUser)
		}
		var rs signaling.RemoteSignal
		if err := json.Unmarshal(got.Payload, &rs); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rs.ID != idA {
			t.Fatalf("sender id=%q, want %q", rs.ID, idA)
		}
		var sd signaling.SignalData
		if err := json.Unmarshal(rs.Signal, &sd); err != nil {
			t.Fatalf("decode signal: %v", err)
		}
		if sd.Type != "offer" || sd.SDP != "v=0 fake offer" {
			t.Fatalf("signal=%+v, want the offer back verbatim", sd)
		}
	})

	t.Run("answer arrives as signal", func(t *testing.T) {
		answer, err := signaling.EncodeSignal("DDDD44", signaling.SignalData{Type: "answer", SDP: "v=0 fake answer"})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		sendMessage(t, connB, answer)

		got := readMessage(t, connA)
		if got.Type != signaling.MessageTypeSignal {
			t.Fatalf("event=%q, want %q", got.Type, signaling.MessageTypeSignal)
		}
		var rs signaling.RemoteSignal
		if err := json.Unmarshal(got.Payload, &rs); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rs.ID != idB {
			t.Fatalf("sender id=%q, want %q", rs.ID, idB)
		}
	})
}

func TestRoomGarbageCollection(t *testing.T) {
	srv := startTestServer(t)

	connA, _ := dial(t, srv)
	connB, _ := dial(t, srv)

	sendMessage(t, connA, &signaling.Message{Type: signaling.MessageTypeJoinRoom, Room: "EEEE55"})
	sendMessage(t, connB, &signaling.Message{Type: signaling.MessageTypeJoinRoom, Room: "FFFF66"})

	waitForRooms(t, srv, 2)

	connA.Close()
	waitForRooms(t, srv, 1)

	connB.Close()
	waitForRooms(t, srv, 0)
}

func waitForRooms(t *testing.T, srv *httptest.Server, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if roomCount(t, srv) == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("rooms never reached %d (have %d)", want, roomCount(t, srv))
}
