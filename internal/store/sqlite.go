// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides thread/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		// Ensure parent directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			conversation_id   TEXT PRIMARY KEY,
			state             TEXT NOT NULL,
			display_name      TEXT NOT NULL,
			brand_id          TEXT NOT NULL,
			last_message_text TEXT NOT NULL,
			last_updated      DATETIME NOT NULL,

			CHECK (state IN ('Bot', 'Queued', 'Live Agent'))
		);

		CREATE INDEX IF NOT EXISTS idx_threads_last_updated
			ON threads(last_updated DESC);

		CREATE TABLE IF NOT EXISTS messages (
			message_id      TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			message_text    TEXT NOT NULL,
			user_type       TEXT NOT NULL,
			display_name    TEXT NOT NULL,
			created_date    DATETIME NOT NULL,

			CHECK (user_type IN ('User', 'CRM'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages(conversation_id, created_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetThread retrieves a thread by conversation ID.
func (s *SQLiteStore) GetThread(ctx context.Context, conversationID string) (*Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT conversation_id, state, display_name, brand_id, last_message_text, last_updated
		FROM threads WHERE conversation_id = ?`, conversationID)

	thread, err := scanThread(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	return thread, nil
}

// ListThreads retrieves all threads ordered by most recent activity.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, state, display_name, brand_id, last_message_text, last_updated
		FROM threads ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []*Thread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// UpsertThread creates the thread or merges the mutable fields into the
// existing record. BrandID is only written on creation.
func (s *SQLiteStore) UpsertThread(ctx context.Context, thread *Thread) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (conversation_id, state, display_name, brand_id, last_message_text, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			state             = excluded.state,
			display_name      = excluded.display_name,
			last_message_text = excluded.last_message_text,
			last_updated      = excluded.last_updated`,
		thread.ConversationID, string(thread.State), thread.DisplayName,
		thread.BrandID, thread.LastMessageText, thread.LastUpdated.UTC())
	if err != nil {
		return fmt.Errorf("upserting thread: %w", err)
	}
	return nil
}

// AppendMessage persists a new message record.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, conversation_id, message_text, user_type, display_name, created_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, msg.MessageText,
		string(msg.UserType), msg.DisplayName, msg.CreatedDate.UTC())
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages retrieves all messages for a conversation in createdDate order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, conversation_id, message_text, user_type, display_name, created_date
		FROM messages WHERE conversation_id = ? ORDER BY created_date ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var userType string
		var created time.Time
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.MessageText,
			&userType, &msg.DisplayName, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.UserType = UserType(userType)
		msg.CreatedDate = created
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*Thread, error) {
	var thread Thread
	var state string
	var updated time.Time
	if err := row.Scan(&thread.ConversationID, &state, &thread.DisplayName,
		&thread.BrandID, &thread.LastMessageText, &updated); err != nil {
		return nil, err
	}
	thread.State = ThreadState(state)
	thread.LastUpdated = updated
	return &thread, nil
}
