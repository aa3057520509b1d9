// ABOUTME: Pure ownership state machine for conversation threads
// ABOUTME: Maps a trigger plus the current persisted state to a transition and its side effects

package conversation

import (
	"errors"

	"github.com/2389/handoff-gateway/internal/notify"
	"github.com/2389/handoff-gateway/internal/store"
)

// ErrUnknownConversation is returned when a trigger that requires an
// existing thread arrives for a conversation that has none.
var ErrUnknownConversation = errors.New("unknown conversation")

// Trigger identifies what caused a state machine invocation.
type Trigger int

const (
	// TriggerUserMessage is an inbound text message or suggestion response.
	TriggerUserMessage Trigger = iota

	// TriggerLiveAgentRequest is the user asking for a human.
	TriggerLiveAgentRequest

	// TriggerOperatorJoin is a representative taking over the conversation.
	TriggerOperatorJoin

	// TriggerOperatorLeave is a representative handing back to the bot.
	TriggerOperatorLeave

	// TriggerAgentMessage is a representative sending text while live.
	TriggerAgentMessage
)

// Input carries the trigger and its payload. Text is the inbound message
// text for TriggerUserMessage, the outbound text for TriggerAgentMessage,
// and the handoff message for TriggerOperatorLeave.
type Input struct {
	Trigger Trigger
	Text    string
}

// Decision describes the transition the state machine chose and the side
// effects the caller must apply, in order: persistence first, notification
// second.
type Decision struct {
	NextState    store.ThreadState
	CreateThread bool // Thread must be auto-created from event metadata

	StoreInbound bool   // Append the inbound message to the transcript
	Reply        string // Non-empty: store and send this as the business
	ReplyAs      notify.Representative

	Signal notify.EventType // Non-empty: emit this representative event
}

// Decide computes the transition for a trigger given the current persisted
// state. exists reports whether a thread record was found; current is only
// meaningful when exists is true.
//
// The bot replies only while it owns the conversation. Once the queue or a
// human owns it, inbound messages are stored for the transcript but never
// auto-answered. The operator leave handoff message is the one exception:
// it is sent even though the resulting state is Bot, because the transition
// is operator-initiated rather than a stored inbound message.
func Decide(current store.ThreadState, exists bool, in Input) (Decision, error) {
	switch in.Trigger {
	case TriggerUserMessage:
		d := Decision{StoreInbound: true}
		if exists {
			d.NextState = current
		} else {
			// First contact: thread is created owned by the bot
			d.CreateThread = true
			d.NextState = store.ThreadStateBot
		}
		if d.NextState == store.ThreadStateBot {
			d.Reply = in.Text
			d.ReplyAs = notify.RepresentativeBot
		}
		return d, nil

	case TriggerLiveAgentRequest:
		if !exists {
			return Decision{}, ErrUnknownConversation
		}
		// Ownership bookkeeping only: a human must later explicitly join
		return Decision{NextState: store.ThreadStateQueued}, nil

	case TriggerOperatorJoin:
		if !exists {
			return Decision{}, ErrUnknownConversation
		}
		return Decision{
			NextState: store.ThreadStateLiveAgent,
			Signal:    notify.EventRepresentativeJoined,
		}, nil

	case TriggerOperatorLeave:
		if !exists {
			return Decision{}, ErrUnknownConversation
		}
		return Decision{
			NextState: store.ThreadStateBot,
			Signal:    notify.EventRepresentativeLeft,
			Reply:     in.Text,
			ReplyAs:   notify.RepresentativeBot,
		}, nil

	case TriggerAgentMessage:
		if !exists {
			return Decision{}, ErrUnknownConversation
		}
		return Decision{
			NextState: store.ThreadStateLiveAgent,
			Reply:     in.Text,
			ReplyAs:   notify.RepresentativeHuman,
		}, nil
	}

	return Decision{}, errors.New("unrecognized trigger")
}
