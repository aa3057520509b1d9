// ABOUTME: Logging Notifier used when no messaging credentials are configured
// ABOUTME: Records every would-be send at info level instead of delivering it

package notify

import (
	"context"
	"log/slog"
)

// LoggingNotifier implements Notifier by logging sends instead of delivering
// them. Used in development when no credentials file is configured.
type LoggingNotifier struct {
	logger *slog.Logger
}

// NewLoggingNotifier creates a notifier that only logs.
func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{logger: logger.With("component", "notifier")}
}

func (n *LoggingNotifier) SendTyping(ctx context.Context, conversationID string, rep Representative, started bool) error {
	n.logger.Info("typing indicator (not delivered)",
		"conversation_id", conversationID, "representative", string(rep), "started", started)
	return nil
}

func (n *LoggingNotifier) SendMessage(ctx context.Context, conversationID, text string, rep Representative) error {
	n.logger.Info("message (not delivered)",
		"conversation_id", conversationID, "representative", string(rep), "text", text)
	return nil
}

func (n *LoggingNotifier) SendEvent(ctx context.Context, conversationID string, event EventType, rep Representative) error {
	n.logger.Info("event (not delivered)",
		"conversation_id", conversationID, "representative", string(rep), "event", string(event))
	return nil
}
