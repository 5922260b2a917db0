// Package realtime pushes completion and leaderboard updates to websocket
// clients subscribed to /ws/rankings.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Event types sent over WebSocket
const (
	EventPledgeCompleted = "pledge_completed"
	EventRankingsChanged = "rankings_changed"
)

// Event is the JSON message sent to connected clients
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// connection serializes writes; websocket connections allow one writer.
type connection struct {
	mu   sync.Mutex
	conn messageWriter
}

func (c *connection) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// LeaderboardFunc computes the current leaderboard for rankings_changed.
type LeaderboardFunc func(ctx context.Context) ([]models.LeaderboardEntry, error)

type Hub struct {
	logger      *zap.Logger
	leaderboard LeaderboardFunc

	mu    sync.RWMutex
	conns map[*connection]bool
}

func NewHub(logger *zap.Logger, leaderboard LeaderboardFunc) *Hub {
	return &Hub{
		logger:      logger,
		leaderboard: leaderboard,
		conns:       make(map[*connection]bool),
	}
}

func (h *Hub) register(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	h.logger.Debug("ws register", zap.Int("total", len(h.conns)))
}

func (h *Hub) unregister(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	h.logger.Debug("ws unregister", zap.Int("remaining", len(h.conns)))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws broadcast marshal", zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(msg); err != nil {
			h.logger.Debug("ws write", zap.Error(err))
		}
	}
}

func (h *Hub) Name() string { return "websocket" }

// Deliver announces the completion and, when a leaderboard source is set,
// the refreshed leaderboard.
func (h *Hub) Deliver(ctx context.Context, ev notify.RewardEarned) error {
	if h.Count() == 0 {
		return nil
	}

	h.Broadcast(Event{Type: EventPledgeCompleted, Data: fiber.Map{
		"userId":   ev.UserID,
		"name":     ev.Name,
		"pledgeId": ev.PledgeID,
		"category": ev.Category,
		"points":   ev.Points,
	}})

	if h.leaderboard == nil {
		return nil
	}
	entries, err := h.leaderboard(ctx)
	if err != nil {
		return err
	}
	h.Broadcast(Event{Type: EventRankingsChanged, Data: entries})
	return nil
}

// Upgrade rejects plain HTTP requests to the websocket route.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

// Handler serves one client until it disconnects.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		conn := &connection{conn: c}
		h.register(conn)
		defer h.unregister(conn)

		// Keep connection alive; clients only send pings/keepalives
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
