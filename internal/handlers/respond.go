package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/chotuve/appserver/internal/auth"
	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/conversations"
	"github.com/chotuve/appserver/internal/friends"
	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/pagination"
	"github.com/chotuve/appserver/internal/repositories"
	"github.com/chotuve/appserver/internal/videos"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request error", "error", err)
	}
	respondJSON(ctx, w, status, map[string]string{"error": message})
}

func respondUnavailable(ctx context.Context, w http.ResponseWriter, dependency string) {
	logging.FromContext(ctx).Error("handler dependency unavailable", "dependency", dependency)
	respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": dependency + " unavailable"})
}

func respondBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP statuses and client facing messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, conversations.ErrNotFriends), errors.Is(err, friends.ErrNotFriends):
		return http.StatusForbidden, "users are not friends"
	case errors.Is(err, conversations.ErrNoMoreMessages):
		return http.StatusNotFound, "no more messages"
	case errors.Is(err, pagination.ErrNoMorePages):
		return http.StatusNotFound, "no more pages"
	case errors.Is(err, models.ErrUnknownReactionKind),
		errors.Is(err, videos.ErrMissingTitle),
		errors.Is(err, videos.ErrEmptyComment),
		errors.Is(err, conversations.ErrEmptyMessage),
		errors.Is(err, friends.ErrSelfRequest),
		errors.Is(err, pagination.ErrInvalidPerPage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, authserver.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, friends.ErrAlreadyFriends):
		return http.StatusConflict, "users are already friends"
	case errors.Is(err, friends.ErrRequestNotFound):
		return http.StatusNotFound, "friend request not found"
	case errors.Is(err, authserver.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// currentUser returns the authenticated email or answers 401.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{"error": "authorization token is required"})
	}
	return email, ok
}

// requiredQuery returns the trimmed query parameters or answers 400 naming the
// first missing one.
func requiredQuery(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	query := r.URL.Query()
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = strings.TrimSpace(query.Get(name))
		if values[i] == "" {
			respondBadRequest(r.Context(), w, name+" is required")
			return nil, false
		}
	}
	return values, true
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}
