package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/chotuve/appserver/internal/auth"
	"github.com/chotuve/appserver/internal/models"
)

// VideoHandler serves uploads, listings, reactions and comments.
type VideoHandler struct {
	Videos VideoService
}

type uploadVideoRequest struct {
	Title        string  `json:"title"`
	Location     string  `json:"location"`
	FileLocation string  `json:"file_location"`
	Visible      *bool   `json:"visible"`
	Description  *string `json:"description"`
}

type videoPayload struct {
	Owner        string    `json:"owner"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	FileLocation string    `json:"file_location"`
	Visible      bool      `json:"visible"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"creation_time"`
}

type videoEntryPayload struct {
	Author    models.Profile        `json:"author"`
	Video     videoPayload          `json:"video"`
	Reactions models.ReactionCounts `json:"reactions"`
}

type videoListResponse struct {
	Videos []videoEntryPayload `json:"videos"`
}

type reactionRequest struct {
	Owner    string `json:"owner"`
	Title    string `json:"title"`
	Reaction string `json:"reaction"`
}

type reactionResponse struct {
	Reaction *models.ReactionKind `json:"reaction"`
}

type commentRequest struct {
	Owner   string `json:"owner"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type commentPayload struct {
	Author    models.Profile `json:"author"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

type commentListResponse struct {
	Comments []commentPayload `json:"comments"`
}

func toVideoPayload(v models.Video) videoPayload {
	return videoPayload{
		Owner:        v.Owner,
		Title:        v.Title,
		Location:     v.Location,
		FileLocation: v.FileLocation,
		Visible:      v.Visible,
		Description:  v.Description,
		CreatedAt:    v.CreatedAt,
	}
}

func toVideoList(entries []models.VideoEntry) videoListResponse {
	resp := videoListResponse{Videos: make([]videoEntryPayload, len(entries))}
	for i, e := range entries {
		resp.Videos[i] = videoEntryPayload{Author: e.Author, Video: toVideoPayload(e.Video), Reactions: e.Reactions}
	}
	return resp
}

// Catalog handles POST (upload) and DELETE (?title=) on /api/v1/videos for the
// logged user's own videos.
func (h VideoHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.upload(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodDelete)
	}
}

func (h VideoHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}
	owner, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req uploadVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondBadRequest(ctx, w, "invalid request body")
		return
	}

	video := models.Video{
		Owner:        owner,
		Title:        strings.TrimSpace(req.Title),
		Location:     req.Location,
		FileLocation: req.FileLocation,
		Visible:      req.Visible == nil || *req.Visible,
		Description:  req.Description,
	}
	if err := h.Videos.Upload(ctx, video); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"owner": owner, "title": video.Title})
}

func (h VideoHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}
	owner, ok := currentUser(w, r)
	if !ok {
		return
	}
	params, ok := requiredQuery(w, r, "title")
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, owner, params[0]); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UserVideos handles GET /api/v1/users/videos?email=.
func (h VideoHandler) UserVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}
	params, ok := requiredQuery(w, r, "email")
	if !ok {
		return
	}

	viewer, _ := auth.UserFromContext(ctx)
	entries, err := h.Videos.ListUserVideos(ctx, viewer, params[0])
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toVideoList(entries))
}

// Top handles GET /api/v1/videos/top.
func (h VideoHandler) Top(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}

	requester, _ := auth.UserFromContext(ctx)
	entries, err := h.Videos.Top(ctx, requester)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toVideoList(entries))
}

// Search handles GET /api/v1/videos/search?query=.
func (h VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}
	params, ok := requiredQuery(w, r, "query")
	if !ok {
		return
	}

	requester, _ := auth.UserFromContext(ctx)
	entries, err := h.Videos.Search(ctx, requester, params[0])
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toVideoList(entries))
}

// Reaction handles POST, GET and DELETE on /api/v1/videos/reaction for the
// logged user's reaction on one video.
func (h VideoHandler) Reaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodPost, http.MethodGet, http.MethodDelete:
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet, http.MethodDelete)
		return
	}
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}
	reactor, ok := currentUser(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPost {
		var req reactionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondBadRequest(ctx, w, "invalid request body")
			return
		}
		if req.Owner == "" || req.Title == "" {
			respondBadRequest(ctx, w, "owner and title are required")
			return
		}
		kind, err := models.ParseReactionKind(req.Reaction)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		if err := h.Videos.React(ctx, reactor, req.Owner, req.Title, kind); err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, reactionResponse{Reaction: &kind})
		return
	}

	params, ok := requiredQuery(w, r, "owner", "title")
	if !ok {
		return
	}
	owner, title := params[0], params[1]

	if r.Method == http.MethodDelete {
		if err := h.Videos.DeleteReaction(ctx, reactor, owner, title); err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, reactionResponse{})
		return
	}

	kind, err := h.Videos.Reaction(ctx, reactor, owner, title)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, reactionResponse{Reaction: kind})
}

// Comments handles POST and GET on /api/v1/videos/comments.
func (h VideoHandler) Comments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodPost, http.MethodGet:
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodGet)
		return
	}
	if h.Videos == nil {
		respondUnavailable(ctx, w, "video service")
		return
	}

	if r.Method == http.MethodPost {
		author, ok := currentUser(w, r)
		if !ok {
			return
		}
		var req commentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondBadRequest(ctx, w, "invalid request body")
			return
		}
		if req.Owner == "" || req.Title == "" {
			respondBadRequest(ctx, w, "owner and title are required")
			return
		}
		if err := h.Videos.Comment(ctx, author, req.Owner, req.Title, req.Content); err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": "commented"})
		return
	}

	params, ok := requiredQuery(w, r, "owner", "title")
	if !ok {
		return
	}
	authors, comments, err := h.Videos.Comments(ctx, params[0], params[1])
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	resp := commentListResponse{Comments: make([]commentPayload, len(comments))}
	for i, c := range comments {
		resp.Comments[i] = commentPayload{Author: authors[i], Content: c.Content, Timestamp: c.Timestamp}
	}
	respondJSON(ctx, w, http.StatusOK, resp)
}
