package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/loungecore/internal/store"
)

// Schema creates the message index. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	network    TEXT    NOT NULL,
	channel    TEXT    NOT NULL,
	time       INTEGER NOT NULL,
	type       TEXT    NOT NULL,
	sender     TEXT    NOT NULL,
	text       TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(network, channel, time);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db       *sql.DB
	pageSize int
}

// New opens (or creates) the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, pageSize: store.PageSize}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Index persists a message.
func (s *SQLiteStore) Index(ctx context.Context, entry *store.Entry) error {
	query := `
		INSERT INTO messages (network, channel, time, type, sender, text)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.NetworkID,
		strings.ToLower(entry.Channel),
		entry.Time.Unix(),
		entry.Type,
		entry.From,
		entry.Text,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetMessages returns one page of a channel's history, oldest first.
func (s *SQLiteStore) GetMessages(ctx context.Context, networkID, channel string, offset int) ([]*store.Entry, error) {
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT id, network, channel, time, type, sender, text
		FROM messages
		WHERE network = ? AND channel = ?
		ORDER BY time DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, networkID, strings.ToLower(channel), s.pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var entries []*store.Entry
	for rows.Next() {
		var (
			e    store.Entry
			unix int64
		)
		if err := rows.Scan(&e.ID, &e.NetworkID, &e.Channel, &unix, &e.Type, &e.From, &e.Text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		e.Time = time.Unix(unix, 0)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to get chronological order
	slices.Reverse(entries)

	return entries, nil
}
