/*
Package chat contains the real-time core: wire events, the event broadcaster,
the per-connection session state machine, websocket clients, and the Hub wiring them together.

This file defines the Session, the state machine governing one connection:
UNJOINED → JOINED → CLOSED. Only a joined session may send messages or typing changes;
anything else is dropped without surfacing an error to the client.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatterup/internal/app/presence"
	"chatterup/internal/app/store"
)

// State is the lifecycle stage of a Session.
type State int

const (
	// StateUnjoined is the initial state of every connection.
	StateUnjoined State = iota

	// StateJoined means the connection is registered as a participant.
	StateJoined

	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "UNJOINED"
	case StateJoined:
		return "JOINED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// sessionDeps are the shared collaborators every Session uses.
type sessionDeps struct {
	registry    *presence.Registry
	broadcaster *Broadcaster
	gateway     store.Gateway
	clock       *Clock

	// storeTimeout bounds each gateway call.
	storeTimeout time.Duration
}

// Session is the per-connection state machine.
type Session struct {
	id string

	deps sessionDeps

	// mu protects state, participant and typing. It is never held across gateway calls.
	mu          sync.Mutex
	state       State
	participant presence.Participant
	typing      bool

	// announceMu orders the join announcements before the leave announcements.
	// Lock order: announceMu, then mu.
	announceMu sync.Mutex

	logger zerolog.Logger
}

func newSession(id string, deps sessionDeps, logger zerolog.Logger) *Session {
	return &Session{
		id:     id,
		deps:   deps,
		state:  StateUnjoined,
		logger: logger,
	}
}

// ID returns the connection ID of the session.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Typing reports the last typing state set by a joined client.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.typing
}

// Join registers the connection as a participant, records the profile, sends history
// to this connection, announces the join to everyone else and refreshes the roster.
// It is a no-op unless the session is UNJOINED.
func (s *Session) Join(ctx context.Context, name, avatar string) {
	name = NormalizeName(name)
	avatar = NormalizeAvatar(avatar, name)

	s.mu.Lock()
	if s.state != StateUnjoined {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug().Stringer("state", state).Msg("Ignoring join outside UNJOINED.")
		return
	}

	p, err := s.deps.registry.Register(s.id, name, avatar)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("Failed to register participant.")
		return
	}
	s.state = StateJoined
	s.participant = p
	s.mu.Unlock()

	s.logger.Info().
		Str("name", p.DisplayName).
		Int("online", s.deps.registry.Count()).
		Msg("Participant joined.")

	s.upsertProfile(ctx, p, true)

	history := s.recentHistory(ctx)

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	if !s.live() {
		s.logger.Info().Str("name", p.DisplayName).Msg("Session closed while joining. Skipping join events.")
		return
	}

	s.sendTo(EventChatHistory, ViewsOf(history))

	s.broadcastExcept(EventUserJoined, JoinedPayload{
		Name:   p.DisplayName,
		Avatar: p.AvatarRef,
		Count:  s.deps.registry.Count(),
	})

	s.broadcastAll(EventUserList, RosterOf(s.deps.registry.Snapshot()))
}

// SendMessage persists text as a message from this participant and broadcasts it to all.
// Empty text, oversized text, and sessions that are not JOINED are no-ops.
// A message that fails to persist is never broadcast.
func (s *Session) SendMessage(ctx context.Context, text string) {
	p, ok := s.joinedParticipant()
	if !ok {
		s.logger.Debug().Msg("Dropping chat message from session that is not joined.")
		return
	}

	text, ok = NormalizeText(text)
	if !ok {
		s.logger.Debug().Msg("Dropping empty or oversized chat message.")
		return
	}

	msg := store.Message{
		Author:    store.Author{Name: p.DisplayName, Avatar: p.AvatarRef},
		Text:      text,
		CreatedAt: s.deps.clock.Now(),
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.deps.gateway.AppendMessage(storeCtx, msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist message. Message not broadcast.")
		return
	}

	s.broadcastAll(EventChatMessage, ViewOf(msg))
}

// SetTyping records the typing state and relays it to every other participant.
// It is a no-op unless the session is JOINED.
func (s *Session) SetTyping(isTyping bool) {
	s.mu.Lock()
	if s.state != StateJoined {
		s.mu.Unlock()
		s.logger.Debug().Msg("Dropping typing change from session that is not joined.")
		return
	}
	s.typing = isTyping
	p := s.participant
	s.mu.Unlock()

	s.broadcastExcept(EventUserTyping, TypingRelayPayload{
		Name:     p.DisplayName,
		IsTyping: isTyping,
	})
}

// Disconnect moves the session to CLOSED. A joined session is unregistered, its profile
// marked offline, and its departure announced to everyone. Calling it again is a no-op.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	prev := s.state
	s.state = StateClosed
	s.typing = false
	p := s.participant
	s.mu.Unlock()

	if prev != StateJoined {
		return
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	if _, err := s.deps.registry.Unregister(s.id); err != nil {
		if !errors.Is(err, presence.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Failed to unregister participant.")
		}
	}

	count := s.deps.registry.Count()
	s.logger.Info().Str("name", p.DisplayName).Int("online", count).Msg("Participant left.")

	s.upsertProfile(ctx, p, false)

	s.broadcastAll(EventUserLeft, LeftPayload{Name: p.DisplayName, Count: count})
	s.broadcastAll(EventUserList, RosterOf(s.deps.registry.Snapshot()))
}

func (s *Session) live() bool {
	return s.State() != StateClosed
}

func (s *Session) joinedParticipant() (presence.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return presence.Participant{}, false
	}
	return s.participant, true
}

func (s *Session) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.deps.storeTimeout)
}

// upsertProfile is best-effort: presence never depends on the store.
func (s *Session) upsertProfile(ctx context.Context, p presence.Participant, online bool) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.deps.gateway.UpsertProfile(storeCtx, store.Profile{
		Name:     p.DisplayName,
		Avatar:   p.AvatarRef,
		Online:   online,
		LastSeen: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("name", p.DisplayName).Bool("online", online).Msg("Failed to update profile.")
	}
}

// recentHistory degrades to an empty history when the store fails.
func (s *Session) recentHistory(ctx context.Context) []store.Message {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	history, err := s.deps.gateway.RecentMessages(storeCtx, store.HistoryLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch history. Sending empty history.")
		return nil
	}
	return history
}

func (s *Session) sendTo(t EventType, payload any) {
	if e, ok := s.event(t, payload); ok {
		s.deps.broadcaster.SendTo(s.id, e)
	}
}

func (s *Session) broadcastAll(t EventType, payload any) {
	if e, ok := s.event(t, payload); ok {
		s.deps.broadcaster.BroadcastAll(e)
	}
}

func (s *Session) broadcastExcept(t EventType, payload any) {
	if e, ok := s.event(t, payload); ok {
		s.deps.broadcaster.BroadcastExcept(e, s.id)
	}
}

func (s *Session) event(t EventType, payload any) (Event, bool) {
	e, err := NewEvent(t, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to build event.")
		return Event{}, false
	}
	return e, true
}
