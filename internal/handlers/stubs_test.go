package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chotuve/appserver/internal/auth"
	"github.com/chotuve/appserver/internal/authserver"
	"github.com/chotuve/appserver/internal/models"
	"github.com/chotuve/appserver/internal/statistics"
)

type stubVideoService struct {
	uploaded  []models.Video
	deleted   []string
	entries   []models.VideoEntry
	viewer    string
	requester string
	query     string
	reaction  *models.ReactionKind
	reacted   models.ReactionKind
	comments  []models.Comment
	authors   []models.Profile
	commented string
	err       error
}

func (s *stubVideoService) Upload(_ context.Context, video models.Video) error {
	s.uploaded = append(s.uploaded, video)
	return s.err
}

func (s *stubVideoService) Delete(_ context.Context, owner, title string) error {
	s.deleted = append(s.deleted, owner+"/"+title)
	return s.err
}

func (s *stubVideoService) ListUserVideos(_ context.Context, viewer, _ string) ([]models.VideoEntry, error) {
	s.viewer = viewer
	return s.entries, s.err
}

func (s *stubVideoService) Top(_ context.Context, requester string) ([]models.VideoEntry, error) {
	s.requester = requester
	return s.entries, s.err
}

func (s *stubVideoService) Search(_ context.Context, requester, query string) ([]models.VideoEntry, error) {
	s.requester = requester
	s.query = query
	return s.entries, s.err
}

func (s *stubVideoService) React(_ context.Context, _, _, _ string, kind models.ReactionKind) error {
	s.reacted = kind
	return s.err
}

func (s *stubVideoService) Reaction(context.Context, string, string, string) (*models.ReactionKind, error) {
	return s.reaction, s.err
}

func (s *stubVideoService) DeleteReaction(context.Context, string, string, string) error {
	s.reaction = nil
	return s.err
}

func (s *stubVideoService) Comment(_ context.Context, author, _, _, content string) error {
	s.commented = author + ": " + content
	return s.err
}

func (s *stubVideoService) Comments(context.Context, string, string) ([]models.Profile, []models.Comment, error) {
	return s.authors, s.comments, s.err
}

type stubFriendService struct {
	accepted bool
	sent     []string
	answered []string
	profiles []models.Profile
	err      error
}

func (s *stubFriendService) SendRequest(_ context.Context, from, to string) (bool, error) {
	s.sent = append(s.sent, from+"->"+to)
	return s.accepted, s.err
}

func (s *stubFriendService) Accept(_ context.Context, user, sender string) error {
	s.answered = append(s.answered, "accept:"+sender+"->"+user)
	return s.err
}

func (s *stubFriendService) Reject(_ context.Context, user, sender string) error {
	s.answered = append(s.answered, "reject:"+sender+"->"+user)
	return s.err
}

func (s *stubFriendService) Requests(context.Context, string) ([]models.Profile, error) {
	return s.profiles, s.err
}

func (s *stubFriendService) List(context.Context, string) ([]models.Profile, error) {
	return s.profiles, s.err
}

func (s *stubFriendService) Remove(_ context.Context, user, other string) error {
	s.answered = append(s.answered, "remove:"+user+"-"+other)
	return s.err
}

type stubConversationService struct {
	sent     models.PrivateMessage
	messages []models.PrivateMessage
	pages    int
	perPage  int
	page     int
	profiles []models.Profile
	deleted  string
	err      error
}

func (s *stubConversationService) Send(_ context.Context, from, to, content string) (models.PrivateMessage, error) {
	if s.err != nil {
		return models.PrivateMessage{}, s.err
	}
	s.sent = models.PrivateMessage{ID: "m-1", From: from, To: to, Content: content}
	return s.sent, nil
}

func (s *stubConversationService) Conversation(_ context.Context, _, _ string, perPage, page int) ([]models.PrivateMessage, int, error) {
	s.perPage = perPage
	s.page = page
	return s.messages, s.pages, s.err
}

func (s *stubConversationService) Conversations(context.Context, string) ([]models.Profile, []models.PrivateMessage, error) {
	return s.profiles, s.messages, s.err
}

func (s *stubConversationService) DeleteConversation(_ context.Context, deletor, other string) error {
	s.deleted = deletor + "-" + other
	return s.err
}

type stubStatistics struct {
	summary statistics.Summary
	at      time.Time
	err     error
}

func (s *stubStatistics) Summary(_ context.Context, now time.Time) (statistics.Summary, error) {
	s.at = now
	return s.summary, s.err
}

type stubTokens map[string]string

func (s stubTokens) LoggedEmail(_ context.Context, token string) (string, error) {
	email, ok := s[token]
	if !ok {
		return "", authserver.ErrInvalidToken
	}
	return email, nil
}

// asUser builds a request already authenticated as email.
func asUser(method, target, email, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if email != "" {
		req = req.WithContext(auth.WithUser(req.Context(), email))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
