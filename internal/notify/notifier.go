// ABOUTME: Notifier contract for delivering messages and events to end users
// ABOUTME: Defines representative types and the conversation event vocabulary

package notify

import "context"

// Representative identifies who is speaking for the business on an
// outbound send.
type Representative string

const (
	RepresentativeBot   Representative = "BOT"
	RepresentativeHuman Representative = "HUMAN"
)

// EventType is a conversation event delivered to the user's client.
type EventType string

const (
	EventRepresentativeJoined EventType = "REPRESENTATIVE_JOINED"
	EventRepresentativeLeft   EventType = "REPRESENTATIVE_LEFT"
	EventTypingStarted        EventType = "TYPING_STARTED"
	EventTypingStopped        EventType = "TYPING_STOPPED"
)

// Notifier delivers typing indicators, messages, and representative events
// to a remote conversation endpoint. Each call is independently fallible;
// callers treat failures as best-effort and do not retry.
type Notifier interface {
	// SendTyping sends a typing started or stopped indicator.
	SendTyping(ctx context.Context, conversationID string, rep Representative, started bool) error

	// SendMessage delivers a text message to the conversation.
	SendMessage(ctx context.Context, conversationID, text string, rep Representative) error

	// SendEvent delivers a representative joined/left event.
	SendEvent(ctx context.Context, conversationID string, event EventType, rep Representative) error
}
