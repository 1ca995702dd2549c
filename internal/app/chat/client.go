/*
Package chat contains the real-time core: wire events, the event broadcaster,
the per-connection session state machine, websocket clients, and the Hub wiring them together.

This file defines the Client struct, representing an active WebSocket connection. It owns the
connection's read and write loops (ReadPump and WritePump), decodes inbound events into Session
transitions, and tears the connection down exactly once, whichever side notices the end first.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// DefaultSendQueueSize is the outbound buffer length used when none is configured.
	DefaultSendQueueSize = 256
)

// Client is one live websocket connection bound to a Session.
type Client struct {
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	session *Session

	// a buffered channel of encoded frames waiting to be written.
	send chan []byte

	// done is closed on teardown; Deliver refuses frames afterwards.
	done      chan struct{}
	closeOnce sync.Once

	// ctx scopes the connection's store calls and is canceled on teardown.
	ctx    context.Context
	cancel context.CancelFunc

	// structured logger with connection context.
	logger zerolog.Logger
}

func newClient(hub *Hub, id string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)

	logger := hub.logger.With().Str("conn_id", id).Logger()

	return &Client{
		hub:     hub,
		conn:    conn,
		session: newSession(id, hub.sessionDeps(), logger),
		send:    make(chan []byte, hub.config.SendQueueSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.session.ID()
}

// Deliver implements Sink. It never blocks: a closed client or a full queue drops the frame.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping frame.")
		return false
	}
}

// ReadPump reads frames until the connection fails, dispatching each to the Session.
// It tears the client down on exit.
func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly.")
			}
			return
		}

		c.processInboundFrame(frame)
	}
}

// processInboundFrame decodes one client frame and applies it to the Session.
// Malformed frames and unknown event types are logged and dropped.
func (c *Client) processInboundFrame(frame []byte) {
	event, err := DecodeEvent(frame)
	if err != nil {
		c.logger.Warn().Err(err).Int("frame_len", len(frame)).Msg("Client sent invalid frame")
		return
	}

	switch event.Type {
	case EventUserJoin:
		var p JoinPayload
		if c.decodePayload(event, &p) {
			c.session.Join(c.ctx, p.Name, p.Avatar)
		}

	case EventChatMessage:
		var p SendPayload
		if c.decodePayload(event, &p) {
			c.session.SendMessage(c.ctx, p.Text)
		}

	case EventUserTyping:
		var p TypingPayload
		if c.decodePayload(event, &p) {
			c.session.SetTyping(p.IsTyping)
		}

	default:
		c.logger.Warn().Str("event", string(event.Type)).Msg("Client sent unsupported event type")
	}
}

func (c *Client) decodePayload(event Event, dst any) bool {
	if len(event.Payload) == 0 {
		return true
	}

	if err := json.Unmarshal(event.Payload, dst); err != nil {
		c.logger.Warn().Err(err).Str("event", string(event.Type)).Msg("Client sent invalid payload")
		return false
	}
	return true
}

// WritePump writes queued frames to the connection and keeps it alive with pings.
// It tears the client down on exit.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeFrame(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.writeClose()
			return
		}
	}
}

// writeFrame writes one frame under the write deadline.
// Returns false if the WritePump loop should terminate.
func (c *Client) writeFrame(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Info().Err(err).Int("message_type", messageType).Msg("Error writing to connection")
		return false
	}

	return true
}

func (c *Client) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write close frame")
	}
}

// Close tears the client down once: it stops delivery, detaches the connection from
// the broadcaster, disconnects the Session, and closes the socket.
// Safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.logger.Debug().Msg("Client connection cleanup starting.")

		c.cancel()
		close(c.done)

		c.hub.broadcaster.Detach(c.ID())

		ctx, cancel := c.hub.disconnectContext()
		c.session.Disconnect(ctx)
		cancel()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}

		c.hub.forget(c)
	})
}
