package handlers

import (
	"net/http"

	"github.com/chotuve/appserver/internal/auth"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Videos        VideoService
	Friends       FriendService
	Conversations ConversationService
	Statistics    StatisticsReader
	Tokens        auth.TokenVerifier
	Metrics       http.Handler
	HealthChecks  map[string]HealthCheck
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Listings of
// videos accept anonymous callers; every other API route needs a login token.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.HealthChecks}
	stats := StatisticsHandler{Statistics: deps.Statistics}
	videos := VideoHandler{Videos: deps.Videos}
	friends := FriendHandler{Friends: deps.Friends}
	messages := MessageHandler{Conversations: deps.Conversations}

	required := func(h http.HandlerFunc) http.Handler { return auth.RequireUser(deps.Tokens)(h) }
	optional := func(h http.HandlerFunc) http.Handler { return auth.OptionalUser(deps.Tokens)(h) }

	mux.HandleFunc("/health", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}
	mux.HandleFunc("/api/v1/statistics", stats.Summary)

	mux.Handle("/api/v1/videos", required(videos.Catalog))
	mux.Handle("/api/v1/users/videos", optional(videos.UserVideos))
	mux.Handle("/api/v1/videos/top", optional(videos.Top))
	mux.Handle("/api/v1/videos/search", optional(videos.Search))
	mux.Handle("/api/v1/videos/reaction", required(videos.Reaction))
	mux.Handle("/api/v1/videos/comments", optional(videos.Comments))

	mux.Handle("/api/v1/friends", required(friends.Friendships))
	mux.Handle("/api/v1/friends/requests", required(friends.Requests))
	mux.Handle("/api/v1/friends/requests/accept", required(friends.Accept))
	mux.Handle("/api/v1/friends/requests/reject", required(friends.Reject))

	mux.Handle("/api/v1/messages", required(messages.Messages))
	mux.Handle("/api/v1/conversations", required(messages.Inbox))
}
