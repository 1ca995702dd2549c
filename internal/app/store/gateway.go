/*
Package store defines the persistence gateway used by the chat core and its implementations.

The gateway is narrow: append a message, read the most recent messages,
and upsert a user profile. Callers must treat every call as slow and fallible.
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatterup/internal/app/db"
)

// HistoryLimit is the fixed number of recent messages served on join and over HTTP.
const HistoryLimit = 50

// ErrUnavailable is returned by a gateway that has been closed.
var ErrUnavailable = errors.New("store: unavailable")

// Author is the value copy of a participant's identity captured when a message is sent.
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Message is an immutable chat utterance.
type Message struct {
	Author
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the persisted record of a display name, keyed by Name.
type Profile struct {
	Name     string
	Avatar   string
	Online   bool
	LastSeen time.Time
}

// Gateway is the durable store for messages and user profiles.
type Gateway interface {
	// AppendMessage persists msg as-is, including its server-assigned CreatedAt.
	AppendMessage(ctx context.Context, msg Message) error

	// RecentMessages returns at most limit of the newest messages, oldest-first.
	// A limit of zero or less yields an empty result.
	RecentMessages(ctx context.Context, limit int) ([]Message, error)

	// UpsertProfile creates or updates the profile with the same Name.
	UpsertProfile(ctx context.Context, profile Profile) error

	// Close releases the underlying resources.
	Close() error
}

// StoreError reports a failed gateway operation.
type StoreError struct {
	// Op is the gateway operation that failed.
	Op string

	// Code is the backend error code, when the backend reports one.
	Code string

	Err error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store: %s failed (code %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Code: db.SQLState(err), Err: err}
}
