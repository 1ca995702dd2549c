package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterup/internal/app/presence"
	"chatterup/internal/app/store"
)

// recordingSink collects every delivered frame.
type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	reject bool
}

func (s *recordingSink) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reject {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *recordingSink) events(t *testing.T) []Event {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, 0, len(s.frames))
	for _, f := range s.frames {
		e, err := DecodeEvent(f)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func (s *recordingSink) types(t *testing.T) []EventType {
	t.Helper()

	var out []EventType
	for _, e := range s.events(t) {
		out = append(out, e.Type)
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = nil
}

func payloadOf[T any](t *testing.T, e Event) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(e.Payload, &v))
	return v
}

type fixture struct {
	registry    *presence.Registry
	broadcaster *Broadcaster
	gateway     store.Gateway
	clock       *Clock
}

func newFixture(gateway store.Gateway) *fixture {
	clock := NewClock(nil)
	registry := presence.NewRegistryWithClock(clock.Now)
	return &fixture{
		registry:    registry,
		broadcaster: NewBroadcaster(registry),
		gateway:     gateway,
		clock:       clock,
	}
}

func (f *fixture) session(id string) (*Session, *recordingSink) {
	sink := &recordingSink{}
	f.broadcaster.Attach(id, sink)

	deps := sessionDeps{
		registry:     f.registry,
		broadcaster:  f.broadcaster,
		gateway:      f.gateway,
		clock:        f.clock,
		storeTimeout: time.Second,
	}
	return newSession(id, deps, zerolog.Nop()), sink
}

func (f *fixture) joined(t *testing.T, id, name string) (*Session, *recordingSink) {
	t.Helper()

	s, sink := f.session(id)
	s.Join(context.Background(), name, "")
	require.Equal(t, StateJoined, s.State())
	sink.reset()
	return s, sink
}

// failingGateway fails every call.
type failingGateway struct{}

var errStoreDown = errors.New("store down")

func (failingGateway) AppendMessage(context.Context, store.Message) error {
	return errStoreDown
}

func (failingGateway) RecentMessages(context.Context, int) ([]store.Message, error) {
	return nil, errStoreDown
}

func (failingGateway) UpsertProfile(context.Context, store.Profile) error {
	return errStoreDown
}

func (failingGateway) Close() error {
	return nil
}

// blockingGateway parks RecentMessages until released.
type blockingGateway struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) RecentMessages(ctx context.Context, limit int) ([]store.Message, error) {
	close(g.entered)
	<-g.release
	return g.Memory.RecentMessages(ctx, limit)
}

func TestSession_Join(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(mem)

	alice, aliceSink := f.joined(t, "c1", "Alice")
	bob, bobSink := f.session("c2")

	bob.Join(context.Background(), "  Bob ", "https://img.example/bob.png")

	assert.Equal(t, StateJoined, bob.State())
	assert.Equal(t, []EventType{EventChatHistory, EventUserList}, bobSink.types(t))

	history := payloadOf[[]MessageView](t, bobSink.events(t)[0])
	assert.Empty(t, history)

	roster := payloadOf[[]RosterEntry](t, bobSink.events(t)[1])
	assert.Equal(t, []RosterEntry{
		{Name: "Alice", Avatar: DefaultAvatar("Alice")},
		{Name: "Bob", Avatar: "https://img.example/bob.png"},
	}, roster)

	aliceEvents := aliceSink.events(t)
	require.Len(t, aliceEvents, 2)
	assert.Equal(t, EventUserJoined, aliceEvents[0].Type)
	assert.Equal(t, JoinedPayload{Name: "Bob", Avatar: "https://img.example/bob.png", Count: 2},
		payloadOf[JoinedPayload](t, aliceEvents[0]))
	assert.Equal(t, EventUserList, aliceEvents[1].Type)

	profile, ok := mem.Profile("Bob")
	require.True(t, ok)
	assert.True(t, profile.Online)
	assert.Equal(t, "https://img.example/bob.png", profile.Avatar)

	assert.Equal(t, StateJoined, alice.State())
}

func TestSession_JoinDefaults(t *testing.T) {
	f := newFixture(store.NewMemory())
	s, _ := f.session("c1")

	s.Join(context.Background(), "   ", "bild-ü.png")

	p, ok := f.registry.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, DefaultDisplayName, p.DisplayName)
	assert.Equal(t, DefaultAvatar(DefaultDisplayName), p.AvatarRef)
}

func TestSession_JoinTwiceIsIgnored(t *testing.T) {
	f := newFixture(store.NewMemory())
	s, sink := f.joined(t, "c1", "Alice")

	s.Join(context.Background(), "Mallory", "")

	assert.Empty(t, sink.events(t))
	assert.Equal(t, 1, f.registry.Count())

	p, _ := f.registry.Lookup("c1")
	assert.Equal(t, "Alice", p.DisplayName)
}

func TestSession_JoinSendsRecentHistory(t *testing.T) {
	mem := store.NewMemory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= store.HistoryLimit+1; i++ {
		require.NoError(t, mem.AppendMessage(context.Background(), store.Message{
			Author:    store.Author{Name: "Alice", Avatar: "a.png"},
			Text:      fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	f := newFixture(mem)
	s, sink := f.session("c1")
	s.Join(context.Background(), "Bob", "")

	history := payloadOf[[]MessageView](t, sink.events(t)[0])
	require.Len(t, history, store.HistoryLimit)
	assert.Equal(t, "m2", history[0].Text)
	assert.Equal(t, fmt.Sprintf("m%d", store.HistoryLimit+1), history[len(history)-1].Text)
}

func TestSession_JoinWithStoreDown(t *testing.T) {
	f := newFixture(failingGateway{})
	s, sink := f.session("c1")

	s.Join(context.Background(), "Alice", "")

	assert.Equal(t, StateJoined, s.State())
	require.Equal(t, []EventType{EventChatHistory, EventUserList}, sink.types(t))
	assert.Equal(t, "[]", string(sink.events(t)[0].Payload))
}

func TestSession_DisconnectDuringJoin(t *testing.T) {
	f := newFixture(store.NewMemory())
	_, watcherSink := f.joined(t, "watcher", "Watcher")

	gateway := &blockingGateway{
		Memory:  store.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f.gateway = gateway

	s, sink := f.session("c1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Join(context.Background(), "Alice", "")
	}()

	<-gateway.entered
	s.Disconnect(context.Background())
	close(gateway.release)
	<-done

	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, sink.events(t))
	assert.Equal(t, []EventType{EventUserLeft, EventUserList}, watcherSink.types(t))
	assert.Equal(t, 1, f.registry.Count())
}

func TestSession_SendMessage(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(mem)

	alice, aliceSink := f.joined(t, "c1", "Alice")
	_, bobSink := f.joined(t, "c2", "Bob")
	aliceSink.reset()

	alice.SendMessage(context.Background(), "  hello  ")

	for _, sink := range []*recordingSink{aliceSink, bobSink} {
		events := sink.events(t)
		require.Len(t, events, 1)
		require.Equal(t, EventChatMessage, events[0].Type)

		view := payloadOf[MessageView](t, events[0])
		assert.Equal(t, "Alice", view.Name)
		assert.Equal(t, "hello", view.Text)
		assert.Equal(t, time.UTC, view.CreatedAt.Location())
	}

	stored, err := mem.RecentMessages(context.Background(), store.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Text)
	assert.Equal(t, DefaultAvatar("Alice"), stored[0].Avatar)
}

func TestSession_SendMessageRejected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace", " \n\t "},
		{"too long", strings.Repeat("x", MaxContentRunes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			f := newFixture(mem)
			s, sink := f.joined(t, "c1", "Alice")

			s.SendMessage(context.Background(), tt.text)

			assert.Empty(t, sink.events(t))
			stored, err := mem.RecentMessages(context.Background(), store.HistoryLimit)
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestSession_SendMessageBeforeJoin(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(mem)

	_, watcherSink := f.joined(t, "watcher", "Watcher")
	s, sink := f.session("c1")

	s.SendMessage(context.Background(), "hi")
	s.SetTyping(true)

	assert.Equal(t, StateUnjoined, s.State())
	assert.False(t, s.Typing())
	assert.Empty(t, sink.events(t))
	assert.Empty(t, watcherSink.events(t))

	stored, err := mem.RecentMessages(context.Background(), store.HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSession_SendMessageNotBroadcastWhenStoreFails(t *testing.T) {
	f := newFixture(failingGateway{})
	s, sink := f.joined(t, "c1", "Alice")

	s.SendMessage(context.Background(), "lost")

	assert.Empty(t, sink.events(t))
	assert.Equal(t, StateJoined, s.State())
}

func TestSession_SetTyping(t *testing.T) {
	f := newFixture(store.NewMemory())
	alice, aliceSink := f.joined(t, "c1", "Alice")
	_, bobSink := f.joined(t, "c2", "Bob")
	aliceSink.reset()

	alice.SetTyping(true)

	assert.True(t, alice.Typing())
	assert.Empty(t, aliceSink.events(t))

	events := bobSink.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Type)
	assert.Equal(t, TypingRelayPayload{Name: "Alice", IsTyping: true}, payloadOf[TypingRelayPayload](t, events[0]))

	alice.SetTyping(false)
	assert.False(t, alice.Typing())
}

func TestSession_Disconnect(t *testing.T) {
	mem := store.NewMemory()
	f := newFixture(mem)
	alice, _ := f.joined(t, "c1", "Alice")
	_, bobSink := f.joined(t, "c2", "Bob")

	f.broadcaster.Detach("c1")
	alice.Disconnect(context.Background())

	assert.Equal(t, StateClosed, alice.State())
	_, ok := f.registry.Lookup("c1")
	assert.False(t, ok)

	events := bobSink.events(t)
	require.Len(t, events, 2)
	assert.Equal(t, LeftPayload{Name: "Alice", Count: 1}, payloadOf[LeftPayload](t, events[0]))
	assert.Equal(t, []RosterEntry{{Name: "Bob", Avatar: DefaultAvatar("Bob")}}, payloadOf[[]RosterEntry](t, events[1]))

	profile, ok := mem.Profile("Alice")
	require.True(t, ok)
	assert.False(t, profile.Online)

	bobSink.reset()
	alice.Disconnect(context.Background())
	alice.SendMessage(context.Background(), "ghost")
	alice.Join(context.Background(), "Alice", "")

	assert.Empty(t, bobSink.events(t))
	assert.Equal(t, StateClosed, alice.State())
}

func TestSession_DisconnectBeforeJoin(t *testing.T) {
	f := newFixture(store.NewMemory())
	_, watcherSink := f.joined(t, "watcher", "Watcher")
	s, _ := f.session("c1")

	s.Disconnect(context.Background())

	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, watcherSink.events(t))
}

func TestSession_DisconnectWithStoreDown(t *testing.T) {
	f := newFixture(failingGateway{})
	alice, _ := f.joined(t, "c1", "Alice")
	_, bobSink := f.joined(t, "c2", "Bob")

	alice.Disconnect(context.Background())

	assert.Equal(t, []EventType{EventUserLeft, EventUserList}, bobSink.types(t))
	assert.Equal(t, 1, f.registry.Count())
}

func TestSession_ConcurrentJoinsKeepRosterConsistent(t *testing.T) {
	f := newFixture(store.NewMemory())

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		s, _ := f.session(fmt.Sprintf("c%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Join(context.Background(), fmt.Sprintf("user%d", i), "")
		}()
	}
	wg.Wait()

	assert.Equal(t, n, f.registry.Count())
	assert.Len(t, f.registry.Snapshot(), n)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "UNJOINED", StateUnjoined.String())
	assert.Equal(t, "JOINED", StateJoined.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func TestSession_MessageNeverPredatesAuthorJoin(t *testing.T) {
	for i := range 200 {
		f := newFixture(store.NewMemory())
		s, sink := f.joined(t, "c1", "Alice")

		p, ok := f.registry.Lookup("c1")
		require.True(t, ok)

		s.SendMessage(context.Background(), "hello")

		events := sink.events(t)
		require.Len(t, events, 1)
		view := payloadOf[MessageView](t, events[0])
		require.False(t, view.CreatedAt.Before(p.JoinedAt),
			"run %d: createdAt %s before joinedAt %s", i, view.CreatedAt, p.JoinedAt)
	}
}

// announcingSink runs onJoined the first time it receives a user:joined frame.
type announcingSink struct {
	recordingSink
	once     sync.Once
	onJoined func()
}

func (s *announcingSink) Deliver(frame []byte) bool {
	ok := s.recordingSink.Deliver(frame)

	if e, err := DecodeEvent(frame); err == nil && e.Type == EventUserJoined {
		s.once.Do(s.onJoined)
	}
	return ok
}

func TestSession_LeaveNeverAnnouncedBeforeJoin(t *testing.T) {
	f := newFixture(store.NewMemory())
	watcher, _ := f.joined(t, "watcher", "Watcher")

	s, _ := f.session("c1")

	disconnected := make(chan struct{})
	sink := &announcingSink{}
	sink.onJoined = func() {
		// disconnect lands between the join announcement and the roster refresh
		go func() {
			defer close(disconnected)
			s.Disconnect(context.Background())
		}()
		require.Eventually(t, func() bool { return s.State() == StateClosed }, time.Second, time.Millisecond)
	}
	f.broadcaster.Attach("watcher", sink)

	s.Join(context.Background(), "Alice", "")
	<-disconnected

	events := sink.events(t)
	require.Equal(t, []EventType{EventUserJoined, EventUserList, EventUserLeft, EventUserList}, sink.types(t))

	assert.Equal(t, 2, payloadOf[JoinedPayload](t, events[0]).Count)
	assert.Len(t, payloadOf[[]RosterEntry](t, events[1]), 2)
	assert.Equal(t, LeftPayload{Name: "Alice", Count: 1}, payloadOf[LeftPayload](t, events[2]))
	assert.Equal(t, []RosterEntry{{Name: "Watcher", Avatar: DefaultAvatar("Watcher")}}, payloadOf[[]RosterEntry](t, events[3]))

	assert.Equal(t, StateJoined, watcher.State())
}
