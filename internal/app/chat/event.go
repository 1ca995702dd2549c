/*
Package chat contains the real-time core: wire events, the event broadcaster,
the per-connection session state machine, websocket clients, and the Hub wiring them together.

This file defines the wire envelope and the payload of every event in the protocol.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"chatterup/internal/app/presence"
	"chatterup/internal/app/store"
)

// EventType is the name carried by every frame on the wire.
type EventType string

const (
	// EventUserJoin (client→server) requests to join with a display name and avatar.
	EventUserJoin EventType = "user:join"

	// EventChatHistory (server→client) carries recent messages, oldest-first, once after join.
	EventChatHistory EventType = "chat:history"

	// EventChatMessage is both a send request (client→server) and a broadcast (server→all).
	EventChatMessage EventType = "chat:message"

	// EventUserList (server→all) carries the full roster after any membership change.
	EventUserList EventType = "user:list"

	// EventUserJoined (server→all but the joiner) announces a join.
	EventUserJoined EventType = "user:joined"

	// EventUserLeft (server→all) announces a departure.
	EventUserLeft EventType = "user:left"

	// EventUserTyping is both a typing change (client→server) and its relay (server→all but sender).
	EventUserTyping EventType = "user:typing"
)

// Event is the envelope of every websocket frame.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event of the given type.
func NewEvent(t EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Payload: raw}, nil
}

// DecodeEvent parses one inbound frame.
func DecodeEvent(frame []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(frame, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event type is missing")
	}
	return e, nil
}

// JoinPayload is the body of an inbound user:join.
type JoinPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// SendPayload is the body of an inbound chat:message.
type SendPayload struct {
	Text string `json:"text"`
}

// TypingPayload is the body of an inbound user:typing.
type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

// MessageView is the wire form of a stored message.
type MessageView struct {
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RosterEntry is one participant in a user:list.
type RosterEntry struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// JoinedPayload is the body of an outbound user:joined.
type JoinedPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Count  int    `json:"count"`
}

// LeftPayload is the body of an outbound user:left.
type LeftPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TypingRelayPayload is the body of an outbound user:typing.
type TypingRelayPayload struct {
	Name     string `json:"name"`
	IsTyping bool   `json:"isTyping"`
}

// ViewOf converts a stored message to its wire form.
func ViewOf(m store.Message) MessageView {
	return MessageView{
		Name:      m.Name,
		Avatar:    m.Avatar,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// ViewsOf converts stored messages to their wire form, never returning nil.
func ViewsOf(ms []store.Message) []MessageView {
	return lo.Map(ms, func(m store.Message, _ int) MessageView {
		return ViewOf(m)
	})
}

// RosterOf projects a registry snapshot to the user:list payload.
func RosterOf(ps []presence.Participant) []RosterEntry {
	return lo.Map(ps, func(p presence.Participant, _ int) RosterEntry {
		return RosterEntry{Name: p.DisplayName, Avatar: p.AvatarRef}
	})
}
