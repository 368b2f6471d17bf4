package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/videos"
)

func TestVideoHandlerUpload(t *testing.T) {
	service := &stubVideoService{}
	handler := VideoHandler{Videos: service}

	body := `{"title":"  Cats  ","location":"Buenos Aires","file_location":"https://cdn/cats.mp4","description":"purr"}`
	rec := httptest.NewRecorder()
	handler.Catalog(rec, asUser(http.MethodPost, "/api/v1/videos", "ana@example.com", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	if len(service.uploaded) != 1 {
		t.Fatalf("expected one upload, got %d", len(service.uploaded))
	}

	got := service.uploaded[0]
	if got.Owner != "ana@example.com" || got.Title != "Cats" || !got.Visible {
		t.Fatalf("unexpected video %+v", got)
	}
	if got.DescriptionText() != "purr" {
		t.Fatalf("expected description to be kept, got %q", got.DescriptionText())
	}
}

func TestVideoHandlerUploadPrivate(t *testing.T) {
	service := &stubVideoService{}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Catalog(rec, asUser(http.MethodPost, "/api/v1/videos", "ana@example.com", `{"title":"secret","visible":false}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	if service.uploaded[0].Visible {
		t.Fatal("expected video to be private")
	}
}

func TestVideoHandlerCatalogFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler VideoHandler
		method  string
		target  string
		user    string
		body    string
		status  int
	}{
		{name: "method not allowed", handler: VideoHandler{Videos: &stubVideoService{}}, method: http.MethodGet, target: "/api/v1/videos", user: "ana@example.com", status: http.StatusMethodNotAllowed},
		{name: "missing service", handler: VideoHandler{}, method: http.MethodPost, target: "/api/v1/videos", user: "ana@example.com", body: `{"title":"x"}`, status: http.StatusInternalServerError},
		{name: "anonymous", handler: VideoHandler{Videos: &stubVideoService{}}, method: http.MethodPost, target: "/api/v1/videos", body: `{"title":"x"}`, status: http.StatusUnauthorized},
		{name: "invalid json", handler: VideoHandler{Videos: &stubVideoService{}}, method: http.MethodPost, target: "/api/v1/videos", user: "ana@example.com", body: `{`, status: http.StatusBadRequest},
		{name: "missing title", handler: VideoHandler{Videos: &stubVideoService{err: videos.ErrMissingTitle}}, method: http.MethodPost, target: "/api/v1/videos", user: "ana@example.com", body: `{}`, status: http.StatusBadRequest},
		{name: "store failure", handler: VideoHandler{Videos: &stubVideoService{err: errors.New("db down")}}, method: http.MethodPost, target: "/api/v1/videos", user: "ana@example.com", body: `{"title":"x"}`, status: http.StatusInternalServerError},
		{name: "delete without title", handler: VideoHandler{Videos: &stubVideoService{}}, method: http.MethodDelete, target: "/api/v1/videos", user: "ana@example.com", status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.handler.Catalog(rec, asUser(tc.method, tc.target, tc.user, tc.body))
			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestVideoHandlerDelete(t *testing.T) {
	service := &stubVideoService{}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Catalog(rec, asUser(http.MethodDelete, "/api/v1/videos?title=Cats", "ana@example.com", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if len(service.deleted) != 1 || service.deleted[0] != "ana@example.com/Cats" {
		t.Fatalf("unexpected deletes %v", service.deleted)
	}
}

func TestVideoHandlerTop(t *testing.T) {
	created := time.Date(2024, time.February, 2, 10, 0, 0, 0, time.UTC)
	service := &stubVideoService{entries: []models.VideoEntry{{
		Author:    models.Profile{Email: "bob@example.com", Fullname: "Bob"},
		Video:     models.Video{Owner: "bob@example.com", Title: "Dogs", CreatedAt: created, Visible: true},
		Reactions: models.ReactionCounts{Like: 3, Dislike: 1},
	}}}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Top(rec, asUser(http.MethodGet, "/api/v1/videos/top", "", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if service.requester != "" {
		t.Fatalf("anonymous request should have no requester, got %q", service.requester)
	}

	var resp videoListResponse
	decodeBody(t, rec, &resp)
	if len(resp.Videos) != 1 {
		t.Fatalf("expected one video, got %d", len(resp.Videos))
	}
	entry := resp.Videos[0]
	if entry.Author.Fullname != "Bob" || entry.Video.Title != "Dogs" || entry.Reactions.Like != 3 || !entry.Video.CreatedAt.Equal(created) {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestVideoHandlerSearch(t *testing.T) {
	service := &stubVideoService{entries: []models.VideoEntry{}}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Search(rec, asUser(http.MethodGet, "/api/v1/videos/search?query=hola+como", "ana@example.com", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if service.query != "hola como" || service.requester != "ana@example.com" {
		t.Fatalf("unexpected search arguments %q %q", service.query, service.requester)
	}

	var resp videoListResponse
	decodeBody(t, rec, &resp)
	if resp.Videos == nil || len(resp.Videos) != 0 {
		t.Fatalf("expected an empty list, got %+v", resp.Videos)
	}

	rec = httptest.NewRecorder()
	handler.Search(rec, asUser(http.MethodGet, "/api/v1/videos/search", "ana@example.com", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a missing query got %d", rec.Code)
	}
}

func TestVideoHandlerUserVideosPassesViewer(t *testing.T) {
	service := &stubVideoService{}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.UserVideos(rec, asUser(http.MethodGet, "/api/v1/users/videos?email=bob@example.com", "ana@example.com", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if service.viewer != "ana@example.com" {
		t.Fatalf("expected viewer to be forwarded, got %q", service.viewer)
	}
}

func TestVideoHandlerReaction(t *testing.T) {
	like := models.ReactionLike
	service := &stubVideoService{reaction: &like}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Reaction(rec, asUser(http.MethodPost, "/api/v1/videos/reaction", "ana@example.com", `{"owner":"bob@example.com","title":"Dogs","reaction":"DISLIKE"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if service.reacted != models.ReactionDislike {
		t.Fatalf("expected dislike, got %q", service.reacted)
	}

	rec = httptest.NewRecorder()
	handler.Reaction(rec, asUser(http.MethodPost, "/api/v1/videos/reaction", "ana@example.com", `{"owner":"bob@example.com","title":"Dogs","reaction":"love"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an unknown reaction got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Reaction(rec, asUser(http.MethodGet, "/api/v1/videos/reaction?owner=bob@example.com&title=Dogs", "ana@example.com", ""))
	var resp reactionResponse
	decodeBody(t, rec, &resp)
	if resp.Reaction == nil || *resp.Reaction != models.ReactionLike {
		t.Fatalf("expected like, got %+v", resp.Reaction)
	}

	rec = httptest.NewRecorder()
	handler.Reaction(rec, asUser(http.MethodDelete, "/api/v1/videos/reaction?owner=bob@example.com&title=Dogs", "ana@example.com", ""))
	if rec.Code != http.StatusOK || service.reaction != nil {
		t.Fatalf("expected reaction removal, got %d %+v", rec.Code, service.reaction)
	}

	rec = httptest.NewRecorder()
	handler.Reaction(rec, asUser(http.MethodGet, "/api/v1/videos/reaction?owner=bob@example.com&title=Dogs", "ana@example.com", ""))
	if body := rec.Body.String(); body != "{\"reaction\":null}\n" {
		t.Fatalf("expected a null reaction, got %q", body)
	}
}

func TestVideoHandlerComments(t *testing.T) {
	at := time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC)
	service := &stubVideoService{
		authors:  []models.Profile{{Email: "bob@example.com", Fullname: "Bob"}},
		comments: []models.Comment{{Author: "bob@example.com", Content: "nice", Timestamp: at}},
	}
	handler := VideoHandler{Videos: service}

	rec := httptest.NewRecorder()
	handler.Comments(rec, asUser(http.MethodPost, "/api/v1/videos/comments", "ana@example.com", `{"owner":"bob@example.com","title":"Dogs","content":"hi"}`))
	if rec.Code != http.StatusCreated || service.commented != "ana@example.com: hi" {
		t.Fatalf("unexpected comment result %d %q", rec.Code, service.commented)
	}

	rec = httptest.NewRecorder()
	handler.Comments(rec, asUser(http.MethodPost, "/api/v1/videos/comments", "", `{"owner":"bob@example.com","title":"Dogs","content":"hi"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous comments must be rejected, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Comments(rec, asUser(http.MethodGet, "/api/v1/videos/comments?owner=bob@example.com&title=Dogs", "", ""))
	var resp commentListResponse
	decodeBody(t, rec, &resp)
	if len(resp.Comments) != 1 || resp.Comments[0].Author.Fullname != "Bob" || resp.Comments[0].Content != "nice" {
		t.Fatalf("unexpected comments %+v", resp.Comments)
	}

	service.err = videos.ErrEmptyComment
	rec = httptest.NewRecorder()
	handler.Comments(rec, asUser(http.MethodPost, "/api/v1/videos/comments", "ana@example.com", `{"owner":"bob@example.com","title":"Dogs","content":" "}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an empty comment got %d", rec.Code)
	}
}
