// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	threads  map[string]*Thread    // keyed by conversation ID
	messages map[string][]*Message // keyed by conversation ID

	// Optional error injection
	UpsertErr error
	AppendErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		threads:  make(map[string]*Thread),
		messages: make(map[string][]*Message),
	}
}

// GetThread retrieves a thread by conversation ID.
func (m *MockStore) GetThread(ctx context.Context, conversationID string) (*Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *t
	return &result, nil
}

// ListThreads retrieves all threads ordered by LastUpdated descending.
func (m *MockStore) ListThreads(ctx context.Context) ([]*Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	threads := make([]*Thread, 0, len(m.threads))
	for _, t := range m.threads {
		copied := *t
		threads = append(threads, &copied)
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].LastUpdated.After(threads[j].LastUpdated)
	})
	return threads, nil
}

// UpsertThread creates or merges a thread record.
func (m *MockStore) UpsertThread(ctx context.Context, thread *Thread) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.threads[thread.ConversationID]; ok {
		existing.State = thread.State
		existing.DisplayName = thread.DisplayName
		existing.LastMessageText = thread.LastMessageText
		existing.LastUpdated = thread.LastUpdated
		return nil
	}

	// Make a copy to avoid external modification
	t := *thread
	m.threads[t.ConversationID] = &t
	return nil
}

// AppendMessage persists a new message record.
func (m *MockStore) AppendMessage(ctx context.Context, msg *Message) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &copied)
	return nil
}

// ListMessages retrieves messages for a conversation in CreatedDate order.
func (m *MockStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.messages[conversationID]
	messages := make([]*Message, 0, len(stored))
	for _, msg := range stored {
		copied := *msg
		messages = append(messages, &copied)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedDate.Before(messages[j].CreatedDate)
	})
	return messages, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
