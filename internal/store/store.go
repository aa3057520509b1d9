// ABOUTME: Store interfaces and data types for handoff-gateway persistence
// ABOUTME: Defines Thread, Message structs and the ThreadStore/MessageStore contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ThreadState identifies who currently owns a conversation on behalf of
// the business.
type ThreadState string

// The three mutually exclusive ownership states of a thread.
const (
	ThreadStateBot       ThreadState = "Bot"
	ThreadStateQueued    ThreadState = "Queued"
	ThreadStateLiveAgent ThreadState = "Live Agent"
)

// UserType identifies the direction of a message.
type UserType string

const (
	UserTypeUser UserType = "User" // Inbound, from the end user
	UserTypeCRM  UserType = "CRM"  // Outbound, from the business (bot or human)
)

// Thread is the persisted ownership and summary record for a conversation.
// At most one thread exists per conversation ID.
type Thread struct {
	ConversationID  string
	State           ThreadState
	DisplayName     string // End user's display name, last-write-wins
	BrandID         string // Set at creation, never merged on upsert
	LastMessageText string
	LastUpdated     time.Time
}

// Message is a single inbound or outbound message. Messages are immutable
// after creation; ordering is defined by CreatedDate ascending.
type Message struct {
	MessageID      string
	ConversationID string
	MessageText    string
	UserType       UserType
	DisplayName    string
	CreatedDate    time.Time
}

// ThreadStore defines the persistence contract for threads
type ThreadStore interface {
	// GetThread returns the thread for a conversation, or ErrNotFound.
	GetThread(ctx context.Context, conversationID string) (*Thread, error)

	// ListThreads returns all threads ordered by LastUpdated descending.
	ListThreads(ctx context.Context) ([]*Thread, error)

	// UpsertThread creates the thread if absent, otherwise merges State,
	// DisplayName, LastMessageText and LastUpdated into the existing record.
	UpsertThread(ctx context.Context, thread *Thread) error
}

// MessageStore defines the persistence contract for messages
type MessageStore interface {
	// AppendMessage persists a new message record.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns all messages for a conversation ordered by
	// CreatedDate ascending.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
}

// Store combines the thread and message contracts with resource cleanup
type Store interface {
	ThreadStore
	MessageStore

	// Close releases any resources held by the store
	Close() error
}
