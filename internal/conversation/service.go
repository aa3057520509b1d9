// ABOUTME: Service applying state machine decisions to stores and the notifier
// ABOUTME: Persistence always precedes notification - the transcript is the source of truth

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/handoff-gateway/internal/notify"
	"github.com/2389/handoff-gateway/internal/store"
)

// Config holds the collaborators and identity for a Service.
type Config struct {
	Threads  store.ThreadStore
	Messages store.MessageStore
	Notifier notify.Notifier
	Logger   *slog.Logger

	BusinessName   string // Display name on outbound messages
	HandoffMessage string // Sent when a representative leaves
}

// Service owns the conversation lifecycle: it loads the current thread
// state, runs the state machine, and applies the resulting effects in
// order. Handling is serialized per conversation, so the read-modify-write
// on thread state is safe even when the upstream transport redelivers
// events concurrently.
type Service struct {
	threads  store.ThreadStore
	messages store.MessageStore
	notifier notify.Notifier
	logger   *slog.Logger

	businessName   string
	handoffMessage string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-conversation locks, keyed by conversation ID
}

// New creates a conversation Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		threads:        cfg.Threads,
		messages:       cfg.Messages,
		notifier:       cfg.Notifier,
		logger:         logger.With("component", "conversation"),
		businessName:   cfg.BusinessName,
		handoffMessage: cfg.HandoffMessage,
		locks:          make(map[string]*sync.Mutex),
	}
}

// UserMessage is an inbound end-user message or suggestion response.
type UserMessage struct {
	ConversationID string
	MessageID      string // Upstream request id, reused as the message id
	Text           string
	DisplayName    string
	BrandID        string
}

// HandleUserMessage stores an inbound message, creating the thread on first
// contact, and replies as the bot while the bot owns the conversation.
//
// Key principle: record first, then act. The inbound message is persisted
// before any notification is attempted, so a crash after persistence never
// loses transcript data. Notification failures are logged, not returned.
func (s *Service) HandleUserMessage(ctx context.Context, msg *UserMessage) error {
	unlock := s.lockConversation(msg.ConversationID)
	defer unlock()

	thread, current, exists, err := s.loadThread(ctx, msg.ConversationID)
	if err != nil {
		return err
	}

	decision, err := Decide(current, exists, Input{Trigger: TriggerUserMessage, Text: msg.Text})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if decision.CreateThread {
		thread = &store.Thread{
			ConversationID: msg.ConversationID,
			BrandID:        msg.BrandID,
		}
		s.logger.Info("thread created",
			"conversation_id", msg.ConversationID,
			"brand_id", msg.BrandID)
	}
	thread.State = decision.NextState
	if msg.DisplayName != "" {
		thread.DisplayName = msg.DisplayName
	}
	thread.LastMessageText = msg.Text
	thread.LastUpdated = now

	if err := s.threads.UpsertThread(ctx, thread); err != nil {
		s.logger.Error("thread upsert failed",
			"error", err, "conversation_id", msg.ConversationID)
	}
	if err := s.messages.AppendMessage(ctx, &store.Message{
		MessageID:      msg.MessageID,
		ConversationID: msg.ConversationID,
		MessageText:    msg.Text,
		UserType:       store.UserTypeUser,
		DisplayName:    msg.DisplayName,
		CreatedDate:    now,
	}); err != nil {
		s.logger.Error("message append failed",
			"error", err, "conversation_id", msg.ConversationID, "message_id", msg.MessageID)
	}

	if decision.Reply != "" {
		s.storeAndSend(ctx, thread, decision.Reply, decision.ReplyAs)
	}
	return nil
}

// HandleLiveAgentRequest moves the conversation to the queue. No message is
// stored and no notification is sent; a human must later explicitly join.
func (s *Service) HandleLiveAgentRequest(ctx context.Context, conversationID string) error {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	thread, current, exists, err := s.loadThread(ctx, conversationID)
	if err != nil {
		return err
	}

	decision, err := Decide(current, exists, Input{Trigger: TriggerLiveAgentRequest})
	if err != nil {
		return err
	}

	thread.State = decision.NextState
	if err := s.threads.UpsertThread(ctx, thread); err != nil {
		return fmt.Errorf("updating thread state: %w", err)
	}
	s.logger.Info("conversation queued for live agent", "conversation_id", conversationID)
	return nil
}

// Join transitions the conversation to live-agent ownership and announces
// the representative to the user. Fails with ErrUnknownConversation if no
// thread exists.
func (s *Service) Join(ctx context.Context, conversationID string) error {
	return s.operatorTransition(ctx, conversationID, TriggerOperatorJoin)
}

// Leave hands the conversation back to the bot, announces the departure,
// and sends the configured handoff message on the bot's behalf.
func (s *Service) Leave(ctx context.Context, conversationID string) error {
	return s.operatorTransition(ctx, conversationID, TriggerOperatorLeave)
}

// SendAgentMessage stores and delivers text from a human representative.
// Sending as a human implies live-agent ownership.
func (s *Service) SendAgentMessage(ctx context.Context, conversationID, text string) error {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	thread, current, exists, err := s.loadThread(ctx, conversationID)
	if err != nil {
		return err
	}

	decision, err := Decide(current, exists, Input{Trigger: TriggerAgentMessage, Text: text})
	if err != nil {
		return err
	}

	thread.State = decision.NextState
	s.storeAndSend(ctx, thread, decision.Reply, decision.ReplyAs)
	return nil
}

// operatorTransition applies a join or leave action.
func (s *Service) operatorTransition(ctx context.Context, conversationID string, trigger Trigger) error {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	thread, current, exists, err := s.loadThread(ctx, conversationID)
	if err != nil {
		return err
	}

	in := Input{Trigger: trigger}
	if trigger == TriggerOperatorLeave {
		in.Text = s.handoffMessage
	}
	decision, err := Decide(current, exists, in)
	if err != nil {
		return err
	}

	thread.State = decision.NextState
	if err := s.threads.UpsertThread(ctx, thread); err != nil {
		return fmt.Errorf("updating thread state: %w", err)
	}

	if decision.Signal != "" {
		if err := s.notifier.SendEvent(ctx, conversationID, decision.Signal, notify.RepresentativeHuman); err != nil {
			s.logger.Error("representative event send failed",
				"error", err, "conversation_id", conversationID, "event", string(decision.Signal))
		}
	}

	if decision.Reply != "" {
		s.storeAndSend(ctx, thread, decision.Reply, decision.ReplyAs)
	}

	s.logger.Info("operator transition applied",
		"conversation_id", conversationID, "state", string(decision.NextState))
	return nil
}

// storeAndSend persists an outbound business message and delivers it with
// the full typing sequence. Persistence failures are logged and delivery is
// still attempted: user-visible behavior is prioritized over bookkeeping.
func (s *Service) storeAndSend(ctx context.Context, thread *store.Thread, text string, rep notify.Representative) {
	now := time.Now().UTC()
	messageID := uuid.New().String()

	thread.LastMessageText = text
	thread.LastUpdated = now
	if err := s.threads.UpsertThread(ctx, thread); err != nil {
		s.logger.Error("thread upsert failed",
			"error", err, "conversation_id", thread.ConversationID)
	}
	if err := s.messages.AppendMessage(ctx, &store.Message{
		MessageID:      messageID,
		ConversationID: thread.ConversationID,
		MessageText:    text,
		UserType:       store.UserTypeCRM,
		DisplayName:    s.businessName,
		CreatedDate:    now,
	}); err != nil {
		s.logger.Error("message append failed",
			"error", err, "conversation_id", thread.ConversationID, "message_id", messageID)
	}

	// Typing started, message, typing stopped - strict sequence per send
	if err := s.notifier.SendTyping(ctx, thread.ConversationID, rep, true); err != nil {
		s.logger.Error("typing start send failed", "error", err, "conversation_id", thread.ConversationID)
	}
	if err := s.notifier.SendMessage(ctx, thread.ConversationID, text, rep); err != nil {
		s.logger.Error("message send failed", "error", err, "conversation_id", thread.ConversationID)
	}
	if err := s.notifier.SendTyping(ctx, thread.ConversationID, rep, false); err != nil {
		s.logger.Error("typing stop send failed", "error", err, "conversation_id", thread.ConversationID)
	}

	s.logger.Debug("outbound message delivered",
		"conversation_id", thread.ConversationID,
		"message_id", messageID,
		"representative", string(rep))
}

// loadThread fetches the thread, mapping ErrNotFound to exists=false.
func (s *Service) loadThread(ctx context.Context, conversationID string) (thread *store.Thread, current store.ThreadState, exists bool, err error) {
	thread, err = s.threads.GetThread(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &store.Thread{ConversationID: conversationID}, "", false, nil
		}
		return nil, "", false, fmt.Errorf("loading thread: %w", err)
	}
	return thread, thread.State, true, nil
}

// lockConversation serializes handling per conversation. Lock entries are
// never reclaimed; the map is bounded by the number of distinct
// conversations seen by this process.
func (s *Service) lockConversation(conversationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
