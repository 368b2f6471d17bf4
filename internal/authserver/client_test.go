package authserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeAuthServer struct {
	loginCalls atomic.Int32
}

func (f *fakeAuthServer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api_key", func(w http.ResponseWriter, r *http.Request) {
		var req apiKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Secret != "s3cret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if req.Alias != "app" || req.HealthEndpoint != "http://app/health" {
			t.Errorf("unexpected registration payload: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"api_key": "key-1"})
	})
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCalls.Add(1)
		if r.URL.Query().Get("api_key") != "key-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "alice@example.com"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "alice@example.com" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"email":        "alice@example.com",
			"fullname":     "Alice Liddell",
			"phone_number": "555-0100",
			"photo":        "https://cdn.example.com/alice.png",
		})
	})
	return mux
}

func newTestClient(t *testing.T, secret string) (*Client, *fakeAuthServer) {
	t.Helper()
	fake := &fakeAuthServer{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:        srv.URL + "/",
		Secret:         secret,
		Alias:          "app",
		HealthEndpoint: "http://app/health",
		Timeout:        time.Second,
		TokenCacheTTL:  time.Minute,
	})
	return client, fake
}

func TestClientRequiresRegistration(t *testing.T) {
	client, _ := newTestClient(t, "s3cret")
	if _, err := client.Profile(context.Background(), "alice@example.com"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
}

func TestClientRegisterRejected(t *testing.T) {
	client, _ := newTestClient(t, "wrong")
	if err := client.Register(context.Background()); err == nil {
		t.Fatalf("expected registration with a bad secret to fail")
	}
}

func TestClientLoggedEmailIsCached(t *testing.T) {
	client, fake := newTestClient(t, "s3cret")
	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 3; i++ {
		email, err := client.LoggedEmail(ctx, "good-token")
		if err != nil {
			t.Fatalf("logged email: %v", err)
		}
		if email != "alice@example.com" {
			t.Fatalf("unexpected email %q", email)
		}
	}
	if got := fake.loginCalls.Load(); got != 1 {
		t.Fatalf("expected a single auth server call, got %d", got)
	}
}

func TestClientLoggedEmailInvalidToken(t *testing.T) {
	client, fake := newTestClient(t, "s3cret")
	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := client.LoggedEmail(ctx, "bad-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	}
	if got := fake.loginCalls.Load(); got != 2 {
		t.Fatalf("rejected tokens must not be cached, got %d calls", got)
	}
	if _, err := client.LoggedEmail(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for an empty token, got %v", err)
	}
}

func TestClientProfile(t *testing.T) {
	client, _ := newTestClient(t, "s3cret")
	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		t.Fatalf("register: %v", err)
	}

	profile, err := client.Profile(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Fullname != "Alice Liddell" || profile.PhoneNumber != "555-0100" || profile.Photo == "" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if _, err := client.Profile(ctx, "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
