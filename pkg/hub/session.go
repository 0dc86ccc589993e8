package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"threadchat/pkg/chat"
	"threadchat/pkg/logger"
	"threadchat/pkg/validation"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	maxMsgSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from arbitrary origins; auth is out of scope.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Session is one connected client. Lifecycle: Connecting (upgrade) ->
// Active (pumps running) -> Closed; Closed is terminal and no per-session
// state survives it.
//
// All sends on the queue and the close of the queue go through mu, so a
// fanout racing a disconnect can never hit a closed channel.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string

	mu     sync.Mutex
	closed bool
}

// queue enqueues one outbound frame without blocking. Returns false only
// when a live session's buffer is full; a session already closed reports
// true so callers do not re-drop it.
func (s *Session) queue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// closeSend finishes the send queue exactly once. Closing the channel
// terminates writePump.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

type submitFrame struct {
	Event    string `json:"event"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	ParentID string `json:"parent_id,omitempty"`
}

// ServeWS upgrades the request and runs the session until disconnect.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s := &Session{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBuffer),
		remote: r.RemoteAddr,
	}
	h.register(s)
	go s.writePump()
	s.readPump()
}

// readPump consumes submit frames until the connection drops. Each accepted
// submission runs the full attach pipeline; the resulting leaf is broadcast
// to every session including this one. Validation errors go back to this
// session only and are never broadcast.
func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws_read_failed", "remote", s.remote, "error", err)
			}
			return
		}
		var f submitFrame
		if err := json.Unmarshal(data, &f); err != nil {
			s.sendError("invalid json")
			continue
		}
		if f.Event != "" && f.Event != EventSubmit {
			s.sendError("unknown event: " + f.Event)
			continue
		}
		populated, err := chat.Attach(chat.SubmitRequest{
			Body:     f.Body,
			Author:   f.Author,
			ParentID: f.ParentID,
		})
		if err != nil {
			if validation.IsInvalid(err) {
				s.sendError(err.Error())
				continue
			}
			logger.Error("submit_failed", "remote", s.remote, "error", err)
			s.sendError("internal error")
			continue
		}
		s.hub.Broadcast(populated)
	}
}

// sendError queues an error frame for this session; dropped if the queue is
// full (the session is about to be dropped anyway).
func (s *Session) sendError(msg string) {
	data, err := json.Marshal(ErrorFrame{Event: EventError, Error: msg})
	if err != nil {
		return
	}
	_ = s.queue(data)
}

// writePump drains the send queue and paces keepalive pings. The hub closes
// the send channel on unregister, which terminates the pump.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
