package store

import (
	"context"
	"time"
)

// PageSize is the number of entries GetMessages returns at most.
const PageSize = 100

// Entry is one indexed channel message.
type Entry struct {
	ID        int64
	NetworkID string
	Channel   string
	Time      time.Time
	Type      string
	From      string
	Text      string
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Index persists a message. Channel names are matched case-insensitively.
	Index(ctx context.Context, entry *Entry) error

	// GetMessages returns up to PageSize entries of a channel, skipping the
	// offset newest ones. The page is ordered oldest first.
	GetMessages(ctx context.Context, networkID, channel string, offset int) ([]*Entry, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
