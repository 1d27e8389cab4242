package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/session"
)

const (
	hubSendBuffer   = 16
	hubWriteTimeout = 5 * time.Second
	hubPingInterval = 30 * time.Second
)

// Hub pushes a user's TRADE_EXECUTED events to that user's open websockets
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]map[*hubClient]struct{}
	unsubscribe func()
	log         zerolog.Logger
}

type hubClient struct {
	send chan []byte
}

// NewHub subscribes a hub to trade events on bus
func NewHub(bus *events.Bus, log zerolog.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]map[*hubClient]struct{}),
		log:     log.With().Str("component", "notification_hub").Logger(),
	}
	h.unsubscribe = bus.Subscribe(events.TradeExecuted, h.onEvent)
	return h
}

// onEvent runs on the publisher's goroutine; sends never block
func (h *Hub) onEvent(event events.Event) {
	data, ok := event.Data.(*events.TradeExecutedData)
	if !ok {
		return
	}

	h.mu.RLock()
	targets := h.clients[data.Username]
	if len(targets) == 0 {
		h.mu.RUnlock()
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.mu.RUnlock()
		h.log.Error().Err(err).Msg("Failed to encode event")
		return
	}
	for c := range targets {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("username", data.Username).Msg("Websocket client too slow, dropping event")
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) register(username string) *hubClient {
	c := &hubClient{send: make(chan []byte, hubSendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[username] == nil {
		h.clients[username] = make(map[*hubClient]struct{})
	}
	h.clients[username][c] = struct{}{}
	return c
}

func (h *Hub) unregister(username string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[username], c)
	if len(h.clients[username]) == 0 {
		delete(h.clients, username)
	}
}

// Connections returns the number of open sockets for username
func (h *Hub) Connections(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

// ServeHTTP handles GET /api/notifications/ws. The route must require a session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	username, ok := session.UserFrom(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("username", username).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	client := h.register(username)
	defer h.unregister(username, client)

	h.log.Debug().Str("username", username).Msg("Websocket client connected")

	// Incoming messages are ignored; CloseRead cancels ctx when the peer goes away
	ctx := conn.CloseRead(context.WithoutCancel(r.Context()))

	ping := time.NewTicker(hubPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("username", username).Msg("Websocket client disconnected")
			return
		case msg := <-client.send:
			if err := write(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Str("username", username).Msg("Websocket write failed")
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, hubWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, hubWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

// Close stops receiving events. Open sockets end when their clients disconnect
// or the server shuts down.
func (h *Hub) Close() {
	h.unsubscribe()
}
