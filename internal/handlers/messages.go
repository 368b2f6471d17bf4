package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/chotuve/appserver/internal/models"
)

// DefaultMessagesPerPage is used when a conversation request omits per_page.
const DefaultMessagesPerPage = 20

// MessageHandler serves private messages and conversation listings.
type MessageHandler struct {
	Conversations ConversationService
}

type sendMessageRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type messagePayload struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type conversationResponse struct {
	Messages []messagePayload `json:"messages"`
	Pages    int              `json:"pages"`
}

type conversationSummary struct {
	User        models.Profile `json:"user"`
	LastMessage messagePayload `json:"last_message"`
}

type conversationListResponse struct {
	Conversations []conversationSummary `json:"conversations"`
}

func toMessagePayload(m models.PrivateMessage) messagePayload {
	return messagePayload{ID: m.ID, From: m.From, To: m.To, Content: m.Content, Timestamp: m.Timestamp}
}

// Messages handles POST (send) and GET (?other=&page=&per_page=) on
// /api/v1/messages.
func (h MessageHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodPost, http.MethodGet:
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
		return
	}
	if h.Conversations == nil {
		respondUnavailable(ctx, w, "conversation service")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPost {
		var req sendMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondBadRequest(ctx, w, "invalid request body")
			return
		}
		req.To = strings.TrimSpace(req.To)
		if req.To == "" {
			respondBadRequest(ctx, w, "to is required")
			return
		}
		message, err := h.Conversations.Send(ctx, user, req.To, req.Content)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusCreated, toMessagePayload(message))
		return
	}

	params, ok := requiredQuery(w, r, "other")
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		respondBadRequest(ctx, w, "page must be an integer")
		return
	}
	perPage, err := queryInt(r, "per_page", DefaultMessagesPerPage)
	if err != nil {
		respondBadRequest(ctx, w, "per_page must be an integer")
		return
	}

	messages, pages, err := h.Conversations.Conversation(ctx, user, params[0], perPage, page)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	resp := conversationResponse{Messages: make([]messagePayload, len(messages)), Pages: pages}
	for i, m := range messages {
		resp.Messages[i] = toMessagePayload(m)
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}

// Inbox handles GET (list) and DELETE (?other=) on
// /api/v1/conversations. Deleting only hides the messages from the caller.
func (h MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet, http.MethodDelete:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		return
	}
	if h.Conversations == nil {
		respondUnavailable(ctx, w, "conversation service")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodDelete {
		params, ok := requiredQuery(w, r, "other")
		if !ok {
			return
		}
		if err := h.Conversations.DeleteConversation(ctx, user, params[0]); err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}

	profiles, last, err := h.Conversations.Conversations(ctx, user)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	resp := conversationListResponse{Conversations: make([]conversationSummary, len(profiles))}
	for i, p := range profiles {
		resp.Conversations[i] = conversationSummary{User: p, LastMessage: toMessagePayload(last[i])}
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}
