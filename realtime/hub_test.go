package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/hospital-app/utils"
)

// dialSession spins up a server that registers every incoming connection
// with the hub under the given user id, and returns the client side.
func dialSession(t *testing.T, hub *Hub, userID uint) *websocket.Conn {
	t.Helper()
	utils.InitLogger()

	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess := hub.Register(userID, ws)
		defer hub.Unregister(sess)
		for {
			if _, err := sess.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("bad frame %q: %v", raw, err)
	}
	return frame
}

func waitForSessions(t *testing.T, hub *Hub, userID uint, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionCount(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("user %d never reached %d session(s)", userID, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegisterSendsConnectionEstablished(t *testing.T) {
	hub := NewHub()
	client := dialSession(t, hub, 7)

	frame := readFrame(t, client)
	assert.Equal(t, FrameConnectionEstablished, frame.Type)
	assert.NotEmpty(t, frame.Timestamp)

	waitForSessions(t, hub, 7, 1)
}

func TestPushReachesAllSessionsOfUser(t *testing.T) {
	hub := NewHub()
	first := dialSession(t, hub, 7)
	second := dialSession(t, hub, 7)
	other := dialSession(t, hub, 8)

	waitForSessions(t, hub, 7, 2)
	waitForSessions(t, hub, 8, 1)

	// Drain the welcome frames
	readFrame(t, first)
	readFrame(t, second)
	readFrame(t, other)

	reached := hub.Push(7, NotificationFrame(map[string]string{"title": "Appointment Booked"}))
	assert.Equal(t, 2, reached)

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		assert.Equal(t, FrameNotification, frame.Type)
		assert.NotNil(t, frame.Notification)
	}

	// The other user saw nothing
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestPushWithoutSessionsIsNoOp(t *testing.T) {
	hub := NewHub()
	reached := hub.Push(42, UnreadCountFrame(3))
	assert.Equal(t, 0, reached)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	client := dialSession(t, hub, 7)
	readFrame(t, client)
	waitForSessions(t, hub, 7, 1)

	// Closing the client makes the server loop exit and unregister; a second
	// unregister of the same session must not panic on the closed channel.
	client.Close()
	waitForSessions(t, hub, 7, 0)
	assert.Equal(t, 0, hub.Push(7, UnreadCountFrame(1)))
}

func TestUnreadCountFrameShape(t *testing.T) {
	frame := UnreadCountFrame(5)
	raw, err := json.Marshal(frame)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"unread_count","count":5}`, string(raw))
}

func TestErrorFrameShape(t *testing.T) {
	raw, err := json.Marshal(ErrorFrame("Invalid JSON format"))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"Invalid JSON format"}`, string(raw))
}
