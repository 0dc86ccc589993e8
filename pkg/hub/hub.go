// Package hub fans accepted messages out to every connected websocket
// session and serves the submit side of the realtime channel.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threadchat/pkg/logger"
	"threadchat/pkg/models"
)

var (
	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadchat_hub_sessions",
		Help: "Currently connected websocket sessions.",
	})
	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadchat_hub_broadcasts_total",
		Help: "Messages fanned out to sessions.",
	})
	dropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadchat_hub_session_drops_total",
		Help: "Sessions dropped because their send queue filled.",
	})
)

// Frame event names on the wire.
const (
	EventSubmit    = "submit"
	EventBroadcast = "broadcast"
	EventError     = "error"
)

// BroadcastFrame wraps a populated message for the wire.
type BroadcastFrame struct {
	Event   string            `json:"event"`
	Message *models.Populated `json:"message"`
}

// ErrorFrame reports a submit failure to the offending session only.
type ErrorFrame struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Options tunes session behavior; zero values get defaults.
type Options struct {
	// SendBuffer is the per-session outbound queue length.
	SendBuffer int
	// PingInterval paces keepalive pings on idle connections.
	PingInterval time.Duration
}

// Hub is the process-wide registry of connected sessions. Registration and
// fanout are guarded by a mutex; fanout iterates a snapshot so concurrent
// connects and disconnects cannot corrupt iteration.
type Hub struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
	opts     Options
}

// New returns an empty hub.
func New(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Hub{sessions: make(map[*Session]struct{}), opts: opts}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	sessionsGauge.Set(float64(n))
	logger.Info("session_connected", "remote", s.remote, "sessions", n)
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		s.closeSend()
	}
	n := len(h.sessions)
	h.mu.Unlock()
	sessionsGauge.Set(float64(n))
	logger.Info("session_disconnected", "remote", s.remote, "sessions", n)
}

// Len reports the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast fans a populated message out to every connected session,
// including the sender. Fire-and-forget: a session whose send queue is full
// is dropped rather than allowed to block the others, and no delivery
// confirmation exists. Sessions connecting after the emit catch up via the
// snapshot endpoint.
func (h *Hub) Broadcast(p *models.Populated) {
	data, err := json.Marshal(BroadcastFrame{Event: EventBroadcast, Message: p})
	if err != nil {
		logger.Error("broadcast_marshal_failed", "id", p.ID, "error", err)
		return
	}
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		if s.queue(data) {
			continue
		}
		dropsTotal.Inc()
		logger.Warn("session_send_queue_full", "remote", s.remote)
		h.unregister(s)
		_ = s.conn.Close()
	}
	broadcastsTotal.Inc()
	logger.Debug("broadcast_sent", "id", p.ID, "sessions", len(targets))
}
