// ABOUTME: Inbound webhook payload decoding into a tagged event
// ABOUTME: Classifies each delivery exactly once so nothing downstream sniffs shapes

package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEvent is returned when a payload cannot be decoded at all.
var ErrMalformedEvent = errors.New("malformed event")

// Kind is the classification of an inbound event.
type Kind int

const (
	// KindUserMessage is a plain text message or a suggestion response.
	// Both carry text and are treated identically downstream.
	KindUserMessage Kind = iota

	// KindLiveAgentRequest is the user asking for a human.
	KindLiveAgentRequest

	// KindUnrecognized matched none of the known shapes. It is acknowledged
	// and dropped without any state change.
	KindUnrecognized
)

// Event is the decoded, classified form of one webhook delivery.
type Event struct {
	Kind           Kind
	ConversationID string
	RequestID      string
	Text           string // Populated for KindUserMessage
	DisplayName    string
	BrandID        string
}

// payload mirrors the platform's webhook JSON shape. Exactly one of
// Message, SuggestionResponse, UserStatus is expected to be populated.
type payload struct {
	ConversationID string `json:"conversationId"`
	RequestID      string `json:"requestId"`
	Agent          string `json:"agent"`
	Context        struct {
		UserInfo struct {
			DisplayName string `json:"displayName"`
		} `json:"userInfo"`
	} `json:"context"`
	Message *struct {
		Text string `json:"text"`
	} `json:"message"`
	SuggestionResponse *struct {
		Text string `json:"text"`
	} `json:"suggestionResponse"`
	UserStatus *struct {
		RequestedLiveAgent bool `json:"requestedLiveAgent"`
	} `json:"userStatus"`
}

// Decode parses a webhook delivery body and classifies it.
func Decode(body []byte) (*Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev := &Event{
		ConversationID: p.ConversationID,
		RequestID:      p.RequestID,
		DisplayName:    p.Context.UserInfo.DisplayName,
		BrandID:        brandFromAgent(p.Agent),
	}

	// A defined message or suggestionResponse object counts as a message
	// even when its text is empty.
	switch {
	case p.Message != nil:
		ev.Kind = KindUserMessage
		ev.Text = p.Message.Text
	case p.SuggestionResponse != nil:
		ev.Kind = KindUserMessage
		ev.Text = p.SuggestionResponse.Text
	case p.UserStatus != nil && p.UserStatus.RequestedLiveAgent:
		ev.Kind = KindLiveAgentRequest
	default:
		ev.Kind = KindUnrecognized
	}
	return ev, nil
}

// brandFromAgent extracts the brand id from an agent resource name of the
// form "brands/{brandId}/agents/{agentId}". Returns "" if the name does not
// match.
func brandFromAgent(agent string) string {
	const prefix = "brands/"
	start := strings.Index(agent, prefix)
	if start < 0 {
		return ""
	}
	rest := agent[start+len(prefix):]
	end := strings.Index(rest, "/")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
