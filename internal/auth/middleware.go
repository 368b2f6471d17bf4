package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/logging"
)

// ErrMissingToken indicates the request carried no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// TokenVerifier resolves a login token into the email it was issued to.
type TokenVerifier interface {
	LoggedEmail(ctx context.Context, token string) (string, error)
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// RequireUser rejects requests without a valid bearer token and stores the
// logged email on the request context otherwise.
func RequireUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, verifier)
			if err != nil {
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser authenticates the request when a token is present and lets
// anonymous requests through untouched. An invalid token is still rejected.
func OptionalUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, verifier)
			switch {
			case errors.Is(err, ErrMissingToken):
				next.ServeHTTP(w, r)
			case err != nil:
				reject(w, r, err)
			default:
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func authenticate(r *http.Request, verifier TokenVerifier) (context.Context, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, errors.New("token verifier unavailable")
	}

	ctx := r.Context()
	email, err := verifier.LoggedEmail(ctx, token)
	if err != nil {
		return nil, err
	}

	ctx = WithUser(ctx, email)
	ctx = logging.With(ctx, slog.String("user", email))
	return ctx, nil
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())

	status := http.StatusUnauthorized
	message := "invalid or expired token"
	switch {
	case errors.Is(err, ErrMissingToken):
		message = "authorization token is required"
	case errors.Is(err, authserver.ErrInvalidToken):
	default:
		status = http.StatusBadGateway
		message = "unable to verify token"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("token verification failed", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
