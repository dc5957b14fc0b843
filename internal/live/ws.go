package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"onboarding-service/internal/events"
	"onboarding-service/internal/navigation"
	"onboarding-service/pkg/jwt"
	"onboarding-service/pkg/kafka"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// Hub pushes navigation events to each user's open connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
	id    string
	log   zerolog.Logger
	now   func() time.Time
}

// NewHub creates a live hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[string][]*safeConn),
		id:    uuid.New().String(),
		log:   log.With().Str("component", "live").Logger(),
		now:   time.Now,
	}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(jwt.RequireAuth).Get("/onboarding", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to the caller's events.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := jwt.GetClaims(r.Context()).UserID
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade error")
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	h.mu.Unlock()

	h.log.Debug().Str("user_id", userID).Msg("client connected")

	// Block until the client disconnects
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.removeConn(userID, conn)
	conn.close()
	h.log.Debug().Str("user_id", userID).Msg("client disconnected")
}

// Deliver pushes ev to every connection of ev.UserID.
// Safe for concurrent calls: each safeConn serialises its own writes.
func (h *Hub) Deliver(ev events.NavigationEvent) {
	h.mu.RLock()
	conns := append([]*safeConn(nil), h.conns[ev.UserID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(ev); err != nil {
			h.log.Warn().Err(err).Str("user_id", ev.UserID).Msg("write error")
		}
	}
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Subscriber is the part of the Kafka client the hub consumes with.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, startOffset int64, handler func([]byte) error)
}

// Start consumes onboarding.navigation. Every instance reads with its own
// consumer group, so each sees every event and delivers to its local
// connections. Reading starts at the tail: old navigation is never replayed.
func (h *Hub) Start(ctx context.Context, k Subscriber) {
	k.Subscribe(ctx, kafka.TopicNavigation, "onboarding-live-"+h.id, kafka.LastOffset, func(data []byte) error {
		var ev events.NavigationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		h.Deliver(ev)
		return nil
	})
}

// Advance delivers directly to local connections. Used as the navigator
// when no broker is configured.
func (h *Hub) Advance(_ context.Context, userID string, to navigation.Screen) {
	h.Deliver(events.NavigationEvent{
		UserID: userID,
		Kind:   events.NavAdvance,
		Screen: string(to),
		Path:   navigation.Path(to),
		At:     h.now().UTC().Format(time.RFC3339),
	})
}

// ShowError delivers an error message directly to local connections.
func (h *Hub) ShowError(_ context.Context, userID, message string) {
	h.Deliver(events.NavigationEvent{
		UserID:  userID,
		Kind:    events.NavError,
		Message: message,
		At:      h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Hub) removeConn(userID string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[userID]
	for i, c := range conns {
		if c == conn {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
