package handlers

import (
	"net/http"
	"strings"

	"github.com/chotuve/appserver/internal/models"
)

// FriendHandler serves the friend request workflow and friend listing.
type FriendHandler struct {
	Friends FriendService
}

type friendRequestBody struct {
	To string `json:"to"`
}

type respondRequestBody struct {
	From string `json:"from"`
}

type profileListResponse struct {
	Users []models.Profile `json:"users"`
}

// Requests handles POST (send) and GET (pending, addressed to the logged
// user) on /api/v1/friends/requests.
func (h FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodPost, http.MethodGet:
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
		return
	}
	if h.Friends == nil {
		respondUnavailable(ctx, w, "friend service")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		senders, err := h.Friends.Requests(ctx, user)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, profileListResponse{Users: senders})
		return
	}

	var req friendRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(ctx, w, "invalid request body")
		return
	}
	req.To = strings.TrimSpace(req.To)
	if req.To == "" {
		respondBadRequest(ctx, w, "to is required")
		return
	}

	accepted, err := h.Friends.SendRequest(ctx, user, req.To)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if accepted {
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "pending"})
}

// Accept handles POST /api/v1/friends/requests/accept.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// Reject handles POST /api/v1/friends/requests/reject.
func (h FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h FriendHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Friends == nil {
		respondUnavailable(ctx, w, "friend service")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req respondRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(ctx, w, "invalid request body")
		return
	}
	req.From = strings.TrimSpace(req.From)
	if req.From == "" {
		respondBadRequest(ctx, w, "from is required")
		return
	}

	status := "accepted"
	var err error
	if accept {
		err = h.Friends.Accept(ctx, user, req.From)
	} else {
		status = "rejected"
		err = h.Friends.Reject(ctx, user, req.From)
	}
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": status})
}

// Friendships handles GET (list) and DELETE (?email=) on /api/v1/friends.
func (h FriendHandler) Friendships(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet, http.MethodDelete:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		return
	}
	if h.Friends == nil {
		respondUnavailable(ctx, w, "friend service")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet {
		friends, err := h.Friends.List(ctx, user)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, profileListResponse{Users: friends})
		return
	}

	params, ok := requiredQuery(w, r, "email")
	if !ok {
		return
	}
	if err := h.Friends.Remove(ctx, user, params[0]); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}
