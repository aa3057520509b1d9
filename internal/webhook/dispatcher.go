// ABOUTME: Dispatcher routing decoded webhook events to the conversation service
// ABOUTME: Deduplicates redeliveries and acknowledges everything it cannot handle

package webhook

import (
	"context"
	"log/slog"

	"github.com/2389/handoff-gateway/internal/conversation"
	"github.com/2389/handoff-gateway/internal/dedupe"
)

// Handler is the subset of the conversation service the dispatcher drives.
type Handler interface {
	HandleUserMessage(ctx context.Context, msg *conversation.UserMessage) error
	HandleLiveAgentRequest(ctx context.Context, conversationID string) error
}

// Dispatcher turns raw webhook deliveries into conversation service calls.
// The upstream transport delivers at least once and retries on non-2xx
// responses, so Dispatch never signals failure for anything other than a
// broken process: malformed, duplicate, and unrecognized deliveries are all
// acknowledged and logged.
type Dispatcher struct {
	handler Handler
	seen    *dedupe.Cache
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(handler Handler, seen *dedupe.Cache, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handler: handler,
		seen:    seen,
		logger:  logger.With("component", "webhook"),
	}
}

// Dispatch decodes and routes one delivery. Decode and handler failures are
// logged here; the returned error is informational and the HTTP layer
// acknowledges regardless.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) error {
	ev, err := Decode(body)
	if err != nil {
		d.logger.Warn("dropping malformed delivery", "error", err)
		return err
	}

	if ev.RequestID != "" && d.seen != nil && d.seen.Seen(ev.RequestID) {
		d.logger.Debug("dropping duplicate delivery",
			"request_id", ev.RequestID, "conversation_id", ev.ConversationID)
		return nil
	}

	var handleErr error
	switch ev.Kind {
	case KindUserMessage:
		handleErr = d.handler.HandleUserMessage(ctx, &conversation.UserMessage{
			ConversationID: ev.ConversationID,
			MessageID:      ev.RequestID,
			Text:           ev.Text,
			DisplayName:    ev.DisplayName,
			BrandID:        ev.BrandID,
		})
	case KindLiveAgentRequest:
		handleErr = d.handler.HandleLiveAgentRequest(ctx, ev.ConversationID)
	default:
		d.logger.Debug("ignoring unrecognized delivery",
			"request_id", ev.RequestID, "conversation_id", ev.ConversationID)
	}

	if handleErr != nil {
		d.logger.Error("delivery handling failed",
			"error", handleErr, "request_id", ev.RequestID, "conversation_id", ev.ConversationID)
		return handleErr
	}

	// Marked only after handling succeeds, so a platform redelivery of a
	// failed event is processed instead of dropped as a duplicate.
	if ev.RequestID != "" && d.seen != nil {
		d.seen.Mark(ev.RequestID)
	}
	return nil
}
