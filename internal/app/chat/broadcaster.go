/*
Package chat contains the real-time core: wire events, the event broadcaster,
the per-connection session state machine, websocket clients, and the Hub wiring them together.

This file defines the Broadcaster, which fans events out to one, some, or all joined
connections using a snapshot of the presence registry taken at call time.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chatterup/internal/app/presence"
	"chatterup/internal/pkg/logx"
)

// Sink is the outbound side of a live connection.
type Sink interface {
	// Deliver queues an encoded frame without blocking.
	// It reports false when the frame was dropped.
	Deliver(frame []byte) bool
}

// Broadcaster delivers events to live connections. Delivery is best-effort:
// no acknowledgement, no retry, and a full or closed sink simply misses the event.
type Broadcaster struct {
	registry *presence.Registry

	// mu protects sinks.
	mu sync.RWMutex

	// sinks maps a connection ID to the sink of that live connection.
	sinks map[string]Sink

	logger zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster whose fan-out targets are read from registry.
func NewBroadcaster(registry *presence.Registry) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		sinks:    make(map[string]Sink),
		logger:   logx.Component("broadcaster"),
	}
}

// Attach makes connectionID reachable. A later Attach for the same ID replaces the sink.
func (b *Broadcaster) Attach(connectionID string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sinks[connectionID] = sink
}

// Detach makes connectionID unreachable. Events sent afterwards are dropped.
func (b *Broadcaster) Detach(connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.sinks, connectionID)
}

// SendTo delivers event to exactly one connection if it is still live.
func (b *Broadcaster) SendTo(connectionID string, event Event) bool {
	frame, ok := b.encode(event)
	if !ok {
		return false
	}

	b.mu.RLock()
	sink, live := b.sinks[connectionID]
	b.mu.RUnlock()

	if !live {
		b.logger.Debug().
			Str("conn_id", connectionID).
			Str("event", string(event.Type)).
			Msg("Dropping event for connection that is no longer live.")
		return false
	}

	return b.deliver(connectionID, sink, event.Type, frame)
}

// BroadcastAll delivers event to every joined connection and returns the number of deliveries.
func (b *Broadcaster) BroadcastAll(event Event) int {
	return b.fanOut(event, "")
}

// BroadcastExcept delivers event to every joined connection except excludedID.
func (b *Broadcaster) BroadcastExcept(event Event, excludedID string) int {
	return b.fanOut(event, excludedID)
}

type target struct {
	id   string
	sink Sink
}

func (b *Broadcaster) fanOut(event Event, excludedID string) int {
	frame, ok := b.encode(event)
	if !ok {
		return 0
	}

	// the registry lock is released by Snapshot; sinks are copied out before delivering
	participants := b.registry.Snapshot()

	targets := make([]target, 0, len(participants))
	b.mu.RLock()
	for _, p := range participants {
		if p.ConnectionID == excludedID {
			continue
		}
		if sink, live := b.sinks[p.ConnectionID]; live {
			targets = append(targets, target{id: p.ConnectionID, sink: sink})
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, t := range targets {
		if b.deliver(t.id, t.sink, event.Type, frame) {
			delivered++
		}
	}

	b.logger.Debug().
		Str("event", string(event.Type)).
		Int("targets", len(targets)).
		Int("delivered", delivered).
		Msg("Broadcast finished.")

	return delivered
}

func (b *Broadcaster) deliver(connectionID string, sink Sink, t EventType, frame []byte) bool {
	if sink.Deliver(frame) {
		return true
	}

	b.logger.Warn().
		Str("conn_id", connectionID).
		Str("event", string(t)).
		Msg("Sink rejected event, dropping it for this connection.")
	return false
}

func (b *Broadcaster) encode(event Event) ([]byte, bool) {
	frame, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(event.Type)).Msg("Error marshaling event.")
		return nil, false
	}
	return frame, true
}
