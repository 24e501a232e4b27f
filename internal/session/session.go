// Package session persists conversations: one row per session and one row
// per message, each message tagged with the session it belongs to.
//
// Two backends implement Store: SQLite (the default, a single local file)
// and MongoDB. Both allocate monotonically increasing integer ids so a
// message id can be used as a read watermark.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/crystaldolphin/friday/internal/schema"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// StoredMessage is a persisted message together with its row id.
type StoredMessage struct {
	ID int64
	schema.Message
}

// Query selects messages of one session, always returned oldest first.
type Query struct {
	// AfterID skips messages with id <= AfterID.
	AfterID int64
	// Limit caps the number of rows; <= 0 means no cap.
	Limit int
	// Oldest takes the first Limit rows instead of the most recent.
	Oldest bool
}

// Info is a session with aggregate statistics, for listings.
type Info struct {
	schema.Session
	MessageCount int
	LastActivity time.Time // zero when the session has no messages
}

// Store is the persistence contract used by the durable conversation stores.
// Failures are returned as *schema.StorageError.
type Store interface {
	CreateSession(ctx context.Context, userID string) (schema.Session, error)
	GetSession(ctx context.Context, id int64) (schema.Session, error)

	// AppendMessages writes msgs in one transaction: all or none.
	AppendMessages(ctx context.Context, sessionID int64, msgs ...schema.Message) error

	LoadMessages(ctx context.Context, sessionID int64, q Query) ([]StoredMessage, error)
	ListSessions(ctx context.Context) ([]Info, error)
	Close() error
}

// Timestamps are stored as fractional seconds since the epoch.

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromEpoch(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9)))
}

// encodeMetadata returns nil for empty metadata so the column stays NULL.
func encodeMetadata(m *schema.Metadata) (any, error) {
	if m.IsZero() {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(raw string) (*schema.Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var m schema.Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &m, nil
}
