// ABOUTME: Tests for the conversation Service
// ABOUTME: Verifies effect ordering, thread auto-creation, and operator transitions

package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/handoff-gateway/internal/notify"
	"github.com/2389/handoff-gateway/internal/store"
)

// notifierCall records one call made to the mock notifier.
type notifierCall struct {
	kind           string // "typing", "message", "event"
	conversationID string
	text           string
	rep            notify.Representative
	event          notify.EventType
	started        bool
}

// mockNotifier implements notify.Notifier and records call order.
type mockNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (m *mockNotifier) SendTyping(ctx context.Context, conversationID string, rep notify.Representative, started bool) error {
	m.record(notifierCall{kind: "typing", conversationID: conversationID, rep: rep, started: started})
	return m.err
}

func (m *mockNotifier) SendMessage(ctx context.Context, conversationID, text string, rep notify.Representative) error {
	m.record(notifierCall{kind: "message", conversationID: conversationID, text: text, rep: rep})
	return m.err
}

func (m *mockNotifier) SendEvent(ctx context.Context, conversationID string, event notify.EventType, rep notify.Representative) error {
	m.record(notifierCall{kind: "event", conversationID: conversationID, event: event, rep: rep})
	return m.err
}

func (m *mockNotifier) record(c notifierCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func newTestService(t *testing.T) (*Service, *store.MockStore, *mockNotifier) {
	t.Helper()
	s := store.NewMockStore()
	n := &mockNotifier{}
	svc := New(Config{
		Threads:        s,
		Messages:       s,
		Notifier:       n,
		BusinessName:   "Acme Retail",
		HandoffMessage: "You are now speaking with the Echo Bot",
	})
	return svc, s, n
}

func inbound(id, messageID, text string) *UserMessage {
	return &UserMessage{
		ConversationID: id,
		MessageID:      messageID,
		Text:           text,
		DisplayName:    "Alice",
		BrandID:        "brand-1",
	}
}

func TestService_FirstMessageCreatesThreadAndEchoes(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.ThreadStateBot, thread.State)
	assert.Equal(t, "Alice", thread.DisplayName)
	assert.Equal(t, "brand-1", thread.BrandID)

	messages, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, messages, 2, "inbound message plus bot echo")
	assert.Equal(t, "m1", messages[0].MessageID)
	assert.Equal(t, store.UserTypeUser, messages[0].UserType)
	assert.Equal(t, "Hi", messages[0].MessageText)
	assert.Equal(t, store.UserTypeCRM, messages[1].UserType)
	assert.Equal(t, "Hi", messages[1].MessageText)
	assert.Equal(t, "Acme Retail", messages[1].DisplayName)

	// Exactly one notifier send sequence: typing start, message, typing stop
	require.Len(t, n.calls, 3)
	assert.Equal(t, "typing", n.calls[0].kind)
	assert.True(t, n.calls[0].started)
	assert.Equal(t, "message", n.calls[1].kind)
	assert.Equal(t, "Hi", n.calls[1].text)
	assert.Equal(t, notify.RepresentativeBot, n.calls[1].rep)
	assert.Equal(t, "typing", n.calls[2].kind)
	assert.False(t, n.calls[2].started)
}

func TestService_MessageWhileQueuedIsStoredWithoutReply(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))
	require.NoError(t, svc.HandleLiveAgentRequest(ctx, "c1"))
	n.calls = nil

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m2", "Anyone there?")))

	messages, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	// First exchange stored two messages; only the new inbound is added
	require.Len(t, messages, 3)
	assert.Equal(t, "m2", messages[2].MessageID)
	assert.Equal(t, store.UserTypeUser, messages[2].UserType)

	assert.Empty(t, n.calls, "no notification while queued")
}

func TestService_LiveAgentRequestQueuesWithoutMessages(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))
	before, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	n.calls = nil

	require.NoError(t, svc.HandleLiveAgentRequest(ctx, "c1"))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.ThreadStateQueued, thread.State)

	after, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "queueing stores no message")
	assert.Empty(t, n.calls)
}

func TestService_LiveAgentRequestUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.HandleLiveAgentRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownConversation)
}

func TestService_JoinEmitsSignalWithoutMessage(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))
	before, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	n.calls = nil

	require.NoError(t, svc.Join(ctx, "c1"))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.ThreadStateLiveAgent, thread.State)

	require.Len(t, n.calls, 1)
	assert.Equal(t, "event", n.calls[0].kind)
	assert.Equal(t, notify.EventRepresentativeJoined, n.calls[0].event)
	assert.Equal(t, notify.RepresentativeHuman, n.calls[0].rep)

	after, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "join stores no message")
}

func TestService_JoinUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Join(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownConversation)
}

func TestService_LeaveSendsHandoffMessage(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))
	require.NoError(t, svc.Join(ctx, "c1"))
	before, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	n.calls = nil

	require.NoError(t, svc.Leave(ctx, "c1"))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.ThreadStateBot, thread.State)

	// Representative left event, then the handoff message send sequence
	require.Len(t, n.calls, 4)
	assert.Equal(t, "event", n.calls[0].kind)
	assert.Equal(t, notify.EventRepresentativeLeft, n.calls[0].event)
	assert.Equal(t, "message", n.calls[2].kind)
	assert.Equal(t, "You are now speaking with the Echo Bot", n.calls[2].text)
	assert.Equal(t, notify.RepresentativeBot, n.calls[2].rep)

	after, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, after, len(before)+1, "exactly one handoff message stored")
	last := after[len(after)-1]
	assert.Equal(t, store.UserTypeCRM, last.UserType)
	assert.Equal(t, "You are now speaking with the Echo Bot", last.MessageText)
}

func TestService_LeaveUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Leave(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownConversation)
}

func TestService_SendAgentMessage(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))
	n.calls = nil

	require.NoError(t, svc.SendAgentMessage(ctx, "c1", "A human here, how can I help?"))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, store.ThreadStateLiveAgent, thread.State, "human send implies live-agent ownership")

	require.Len(t, n.calls, 3)
	assert.Equal(t, "message", n.calls[1].kind)
	assert.Equal(t, notify.RepresentativeHuman, n.calls[1].rep)

	messages, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	last := messages[len(messages)-1]
	assert.Equal(t, store.UserTypeCRM, last.UserType)
	assert.Equal(t, "A human here, how can I help?", last.MessageText)
}

func TestService_SendAgentMessageUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SendAgentMessage(context.Background(), "missing", "hello?")
	assert.ErrorIs(t, err, ErrUnknownConversation)
}

func TestService_NotifierFailureDoesNotAffectStoredState(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()
	n.err = errors.New("network down")

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))

	// Both messages persisted despite every send failing
	messages, err := s.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestService_PersistenceFailureStillNotifies(t *testing.T) {
	svc, s, n := newTestService(t)
	ctx := context.Background()
	s.AppendErr = errors.New("disk full")

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))

	// User-visible behavior is prioritized over bookkeeping
	require.Len(t, n.calls, 3)
	assert.Equal(t, "message", n.calls[1].kind)
}

func TestService_DisplayNameLastWriteWins(t *testing.T) {
	svc, s, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleUserMessage(ctx, inbound("c1", "m1", "Hi")))

	renamed := inbound("c1", "m2", "Hello again")
	renamed.DisplayName = "Alice B"
	require.NoError(t, svc.HandleUserMessage(ctx, renamed))

	thread, err := s.GetThread(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", thread.DisplayName)
}
