/*
Package presence tracks which clients are currently joined to the chat.

It defines the Participant value and the Registry, the single synchronized source of truth
for "who is online right now". Every mutation is atomic with respect to concurrent readers,
and reads hand out copies so that callers never observe or alias internal state.
*/
package presence

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDuplicateConnection is returned when a connection ID is registered twice.
	ErrDuplicateConnection = errors.New("presence: connection already registered")

	// ErrNotFound is returned when unregistering a connection that is not registered.
	ErrNotFound = errors.New("presence: connection not registered")
)

// Participant represents one joined, currently-connected client.
// It is an immutable value once created by the Registry.
type Participant struct {
	// ConnectionID is the opaque transport-assigned identifier of the live connection.
	ConnectionID string

	// DisplayName is the name shown to other participants. It is not required to be unique.
	DisplayName string

	// AvatarRef is an opaque URI to the participant's avatar image.
	AvatarRef string

	// JoinedAt is the time the participant was registered.
	JoinedAt time.Time
}

type entry struct {
	participant Participant

	// seq breaks ties between participants sharing a JoinedAt timestamp.
	seq uint64
}

// Registry is the in-memory mapping from connection ID to Participant.
type Registry struct {
	// mu protects participants and nextSeq.
	mu sync.RWMutex

	participants map[string]entry

	nextSeq uint64

	// now is the clock used to stamp JoinedAt.
	now func() time.Time
}

// NewRegistry constructs an empty Registry that stamps join times with time.Now.
func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

// NewRegistryWithClock constructs an empty Registry using the given clock for JoinedAt.
func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{
		participants: make(map[string]entry),
		now:          now,
	}
}

// Register inserts a new Participant for connectionID and returns it.
// It fails with ErrDuplicateConnection if the connection is already registered.
func (r *Registry) Register(connectionID, displayName, avatarRef string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[connectionID]; ok {
		return Participant{}, ErrDuplicateConnection
	}

	p := Participant{
		ConnectionID: connectionID,
		DisplayName:  displayName,
		AvatarRef:    avatarRef,
		JoinedAt:     r.now(),
	}

	r.nextSeq++
	r.participants[connectionID] = entry{participant: p, seq: r.nextSeq}

	return p, nil
}

// Unregister removes connectionID and returns the Participant it held.
// It returns ErrNotFound, leaving the registry unchanged, if the connection is absent.
func (r *Registry) Unregister(connectionID string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.participants[connectionID]
	if !ok {
		return Participant{}, ErrNotFound
	}

	delete(r.participants, connectionID)
	return e.participant, nil
}

// Lookup returns the Participant registered for connectionID, if any.
func (r *Registry) Lookup(connectionID string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.participants[connectionID]
	return e.participant, ok
}

// Snapshot returns a point-in-time copy of all participants ordered by JoinedAt ascending.
// Participants that joined at the same instant keep their registration order.
func (r *Registry) Snapshot() []Participant {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.participants))
	for _, e := range r.participants {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.participant.JoinedAt.Equal(b.participant.JoinedAt) {
			return a.participant.JoinedAt.Before(b.participant.JoinedAt)
		}
		return a.seq < b.seq
	})

	out := make([]Participant, len(entries))
	for i, e := range entries {
		out[i] = e.participant
	}
	return out
}

// Count returns the current number of participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.participants)
}
