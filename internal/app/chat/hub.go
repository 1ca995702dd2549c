/*
Package chat contains the real-time core: wire events, the event broadcaster,
the per-connection session state machine, websocket clients, and the Hub wiring them together.

This file defines the Hub, the single shared chat space. It owns the presence registry,
the broadcaster and the message clock, accepts upgraded connections, and closes every
live connection on shutdown.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatterup/internal/app/presence"
	"chatterup/internal/app/store"
	"chatterup/internal/pkg/logx"
)

// ErrHubClosed is returned for work submitted after Shutdown.
var ErrHubClosed = errors.New("chat: hub is shut down")

// HubConfig tunes the Hub. Zero values select the defaults.
type HubConfig struct {
	// StoreTimeout bounds each gateway call made on behalf of a connection.
	StoreTimeout time.Duration

	// SendQueueSize is the outbound frame buffer of each connection.
	SendQueueSize int

	// Now overrides the wall clock used for join and message timestamps.
	Now func() time.Time
}

// Hub coordinates every live connection of the chat.
type Hub struct {
	registry    *presence.Registry
	broadcaster *Broadcaster
	gateway     store.Gateway
	clock       *Clock

	config HubConfig

	// ctx is the parent of every connection context; canceled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// mu protects clients and closed.
	mu      sync.Mutex
	clients map[string]*Client
	closed  bool

	// wg tracks running Serve calls.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub persisting through gateway.
func NewHub(gateway store.Gateway, cfg HubConfig) *Hub {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultSendQueueSize
	}

	// one clock stamps both JoinedAt and message CreatedAt
	clock := NewClock(cfg.Now)
	registry := presence.NewRegistryWithClock(clock.Now)
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry:    registry,
		broadcaster: NewBroadcaster(registry),
		gateway:     gateway,
		clock:       clock,
		config:      cfg,
		ctx:         ctx,
		cancel:      cancel,
		clients:     make(map[string]*Client),
		logger:      logx.Component("hub"),
	}
}

func (h *Hub) sessionDeps() sessionDeps {
	return sessionDeps{
		registry:     h.registry,
		broadcaster:  h.broadcaster,
		gateway:      h.gateway,
		clock:        h.clock,
		storeTimeout: h.config.StoreTimeout,
	}
}

// Serve runs an upgraded connection until it ends. It blocks for the lifetime of the connection.
func (h *Hub) Serve(conn *websocket.Conn) {
	id := uuid.NewString()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Warn().Str("conn_id", id).Msg("Rejecting connection, hub is shut down.")
		_ = conn.Close()
		return
	}

	// a client is attached before Shutdown can see it
	client := newClient(h, id, conn)
	h.broadcaster.Attach(id, client)
	h.clients[id] = client
	h.wg.Add(1)
	h.mu.Unlock()

	defer h.wg.Done()

	h.logger.Debug().Str("conn_id", id).Msg("Connection attached.")

	go client.WritePump()
	client.ReadPump()
}

// forget drops a torn-down client from the live set.
func (h *Hub) forget(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c.ID())
}

// disconnectContext returns the context used for the final store calls of a closing connection.
// It outlives the connection context, bounded by the store timeout.
func (h *Hub) disconnectContext() (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(h.ctx)
	if h.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.config.StoreTimeout)
}

// History returns up to store.HistoryLimit most recent messages, oldest first.
func (h *Hub) History(ctx context.Context) ([]store.Message, error) {
	if h.config.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.StoreTimeout)
		defer cancel()
	}

	return h.gateway.RecentMessages(ctx, store.HistoryLimit)
}

// Online returns the number of joined participants.
func (h *Hub) Online() int {
	return h.registry.Count()
}

// Participants returns the current roster in join order.
func (h *Hub) Participants() []presence.Participant {
	return h.registry.Snapshot()
}

// Shutdown stops accepting connections, closes every live one, and waits for them
// to finish tearing down or for ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.closed = true

	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.logger.Info().Int("connections", len(clients)).Msg("Shutting down hub...")

	for _, c := range clients {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	defer h.cancel()

	select {
	case <-done:
		h.logger.Info().Msg("Hub shutdown complete.")
		return nil
	case <-ctx.Done():
		h.logger.Warn().Err(ctx.Err()).Msg("Hub shutdown timed out.")
		return ctx.Err()
	}
}
