// ABOUTME: HTTP handlers for the platform callback and the operator API
// ABOUTME: Operator routes expose thread listing, transcripts, join/leave, and sends

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/handoff-gateway/internal/conversation"
	"github.com/2389/handoff-gateway/internal/store"
)

// ThreadResponse is the JSON shape of one thread in GET /api/threads.
type ThreadResponse struct {
	ConversationID  string `json:"conversation_id"`
	State           string `json:"state"`
	DisplayName     string `json:"display_name"`
	BrandID         string `json:"brand_id,omitempty"`
	LastMessageText string `json:"last_message_text"`
	LastUpdated     string `json:"last_updated"`
}

// ListThreadsResponse is the JSON response for GET /api/threads.
type ListThreadsResponse struct {
	Threads []ThreadResponse `json:"threads"`
}

// MessageResponse is the JSON shape of one transcript message.
type MessageResponse struct {
	MessageID   string `json:"message_id"`
	MessageText string `json:"message_text"`
	UserType    string `json:"user_type"`
	DisplayName string `json:"display_name"`
	CreatedDate string `json:"created_date"`
}

// ConversationMessagesResponse is the JSON response for
// GET /api/conversations/{id}/messages.
type ConversationMessagesResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

// SendRequest is the JSON request body for POST /api/conversations/{id}/send.
type SendRequest struct {
	Text string `json:"text"`
}

// handleCallback handles POST /callback deliveries from the messaging
// platform. It always acknowledges with 200: the platform retries on
// non-2xx, and a retry storm against a payload we cannot handle helps
// nobody. Dispatch failures are logged inside the dispatcher.
func (g *Gateway) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.logger.Error("failed to read callback body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	_ = g.dispatcher.Dispatch(r.Context(), body)
	w.WriteHeader(http.StatusOK)
}

// handleListThreads handles GET /api/threads requests. Threads are ordered
// most recently updated first.
func (g *Gateway) handleListThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	threads, err := g.store.ListThreads(r.Context())
	if err != nil {
		g.logger.Error("failed to list threads", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := ListThreadsResponse{Threads: make([]ThreadResponse, len(threads))}
	for i, t := range threads {
		response.Threads[i] = ThreadResponse{
			ConversationID:  t.ConversationID,
			State:           string(t.State),
			DisplayName:     t.DisplayName,
			BrandID:         t.BrandID,
			LastMessageText: t.LastMessageText,
			LastUpdated:     t.LastUpdated.Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConversationRoutes routes /api/conversations/{id}/{action} requests.
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	conversationID, action, ok := strings.Cut(rest, "/")
	if !ok || conversationID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}

	switch action {
	case "messages":
		g.handleConversationMessages(w, r, conversationID)
	case "join":
		g.handleOperatorAction(w, r, conversationID, g.conversation.Join)
	case "leave":
		g.handleOperatorAction(w, r, conversationID, g.conversation.Leave)
	case "send":
		g.handleAgentSend(w, r, conversationID)
	default:
		g.sendJSONError(w, http.StatusNotFound, "unknown action")
	}
}

// handleConversationMessages handles GET /api/conversations/{id}/messages.
// The transcript is returned oldest first.
func (g *Gateway) handleConversationMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Verify the conversation exists so an unknown id is a 404, not an
	// empty transcript.
	if _, err := g.store.GetThread(r.Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		g.logger.Error("failed to get thread", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	messages, err := g.store.ListMessages(r.Context(), conversationID)
	if err != nil {
		g.logger.Error("failed to list messages", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := ConversationMessagesResponse{
		ConversationID: conversationID,
		Messages:       make([]MessageResponse, len(messages)),
	}
	for i, msg := range messages {
		response.Messages[i] = MessageResponse{
			MessageID:   msg.MessageID,
			MessageText: msg.MessageText,
			UserType:    string(msg.UserType),
			DisplayName: msg.DisplayName,
			CreatedDate: msg.CreatedDate.Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleOperatorAction applies a join or leave transition via POST.
func (g *Gateway) handleOperatorAction(w http.ResponseWriter, r *http.Request, conversationID string, action func(ctx context.Context, conversationID string) error) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := action(r.Context(), conversationID); err != nil {
		g.writeActionError(w, conversationID, err)
		return
	}
	g.writeOK(w)
}

// handleAgentSend handles POST /api/conversations/{id}/send.
func (g *Gateway) handleAgentSend(w http.ResponseWriter, r *http.Request, conversationID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := g.conversation.SendAgentMessage(r.Context(), conversationID, req.Text); err != nil {
		g.writeActionError(w, conversationID, err)
		return
	}
	g.writeOK(w)
}

// writeActionError maps a conversation service error to an HTTP response.
func (g *Gateway) writeActionError(w http.ResponseWriter, conversationID string, err error) {
	if errors.Is(err, conversation.ErrUnknownConversation) {
		g.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	g.logger.Error("operator action failed", "error", err, "conversation_id", conversationID)
	g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}

func (g *Gateway) writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
