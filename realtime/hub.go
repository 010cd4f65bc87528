package realtime

import (
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/hospital-app/utils"
)

// Server -> client frame types
const (
	FrameConnectionEstablished = "connection_established"
	FrameNotification          = "notification"
	FrameUnreadCount           = "unread_count"
	FrameError                 = "error"
)

// Client -> server message types
const (
	MsgMarkNotificationRead = "mark_notification_read"
	MsgGetUnreadCount       = "get_unread_count"
)

// Frame is one server->client message on the live session protocol
type Frame struct {
	Type         string      `json:"type"`
	Message      string      `json:"message,omitempty"`
	Notification interface{} `json:"notification,omitempty"`
	Count        *int64      `json:"count,omitempty"`
	Timestamp    string      `json:"timestamp,omitempty"`
}

// ClientMessage is one client->server message on the live session protocol
type ClientMessage struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
}

func ConnectionEstablishedFrame() Frame {
	return Frame{
		Type:      FrameConnectionEstablished,
		Message:   "Connected to notification stream",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func NotificationFrame(notification interface{}) Frame {
	return Frame{
		Type:         FrameNotification,
		Notification: notification,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

func UnreadCountFrame(count int64) Frame {
	return Frame{Type: FrameUnreadCount, Count: &count}
}

func ErrorFrame(message string) Frame {
	return Frame{Type: FrameError, Message: message}
}

// sendBuffer is the per-session outbound queue size; a session that cannot
// drain this many frames is considered dead and dropped.
const sendBuffer = 32

const shardCount = 16

// Session is one live WebSocket connection for a user
type Session struct {
	UserID uint
	conn   *websocket.Conn
	send   chan []byte
}

// writePump serializes all writes to the connection
func (s *Session) writePump() {
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	s.conn.Close()
}

// ReadMessage blocks until the next client message or connection error
func (s *Session) ReadMessage() ([]byte, error) {
	_, raw, err := s.conn.ReadMessage()
	return raw, err
}

// Send queues a frame for the session without blocking. Returns false when
// the session's buffer is full (slow consumer).
func (s *Session) Send(frame Frame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling frame: %v", err)
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// shard holds the sessions of the users hashed into it. Per-shard locking
// keeps one user's traffic from blocking registration changes for others.
type shard struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Session]struct{}
}

// Hub maintains the registry of live client sessions keyed by user id
type Hub struct {
	shards [shardCount]*shard
}

func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i] = &shard{sessions: make(map[uint]map[*Session]struct{})}
	}
	return h
}

func (h *Hub) shardFor(userID uint) *shard {
	f := fnv.New32a()
	var buf [4]byte
	buf[0] = byte(userID)
	buf[1] = byte(userID >> 8)
	buf[2] = byte(userID >> 16)
	buf[3] = byte(userID >> 24)
	f.Write(buf[:])
	return h.shards[f.Sum32()%shardCount]
}

// Register adds a connection to the user's session set, starts its write
// pump and sends the connection_established frame.
func (h *Hub) Register(userID uint, conn *websocket.Conn) *Session {
	sess := &Session{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	sh := h.shardFor(userID)
	sh.mu.Lock()
	if sh.sessions[userID] == nil {
		sh.sessions[userID] = make(map[*Session]struct{})
	}
	sh.sessions[userID][sess] = struct{}{}
	sh.mu.Unlock()

	go sess.writePump()
	sess.Send(ConnectionEstablishedFrame())

	utils.InfoLogger.Printf("Session registered for user %d", userID)
	return sess
}

// Unregister removes a session and closes its outbound queue. Safe to call
// more than once for the same session.
func (h *Hub) Unregister(sess *Session) {
	sh := h.shardFor(sess.UserID)
	sh.mu.Lock()
	set, ok := sh.sessions[sess.UserID]
	if ok {
		if _, member := set[sess]; member {
			delete(set, sess)
			if len(set) == 0 {
				delete(sh.sessions, sess.UserID)
			}
			close(sess.send)
		}
	}
	sh.mu.Unlock()

	utils.InfoLogger.Printf("Session unregistered for user %d", sess.UserID)
}

// Push sends a frame to every open session of one user and returns the
// number of sessions reached. Zero sessions is a valid no-op.
func (h *Hub) Push(userID uint, frame Frame) int {
	sh := h.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	reached := 0
	for sess := range sh.sessions[userID] {
		if sess.Send(frame) {
			reached++
		}
	}
	return reached
}

// SessionCount returns the number of open sessions for a user
func (h *Hub) SessionCount(userID uint) int {
	sh := h.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.sessions[userID])
}
