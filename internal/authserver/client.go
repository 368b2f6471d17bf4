// Package authserver talks to the external auth server that owns user
// accounts, login tokens and profiles.
package authserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
)

const (
	apiKeyEndpoint    = "/api_key"
	userLoginEndpoint = "/user/login"
	userEndpoint      = "/user"

	// DefaultTimeout applies to every request when Config.Timeout is unset.
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrInvalidToken indicates the auth server rejected a login token.
	ErrInvalidToken = errors.New("invalid login token")
	// ErrUserNotFound indicates the auth server has no user with the given email.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotRegistered indicates the client has no api key yet.
	ErrNotRegistered = errors.New("app server is not registered with the auth server")
)

// Config describes how to reach and register with the auth server.
type Config struct {
	BaseURL        string
	Secret         string
	Alias          string
	HealthEndpoint string
	Timeout        time.Duration
	TokenCacheTTL  time.Duration
}

// Client is an HTTP client for the auth server.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *TokenCache

	mu     sync.RWMutex
	apiKey string
}

// NewClient builds a client. Register must be called before any other method.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     NewTokenCache(cfg.TokenCacheTTL, DefaultTokenCacheSize),
	}
}

type apiKeyRequest struct {
	Secret         string `json:"secret"`
	Alias          string `json:"alias"`
	HealthEndpoint string `json:"health_endpoint"`
}

type apiKeyResponse struct {
	APIKey string `json:"api_key"`
}

// Register obtains an api key for this app server.
func (c *Client) Register(ctx context.Context) error {
	body, err := json.Marshal(apiKeyRequest{Secret: c.cfg.Secret, Alias: c.cfg.Alias, HealthEndpoint: c.cfg.HealthEndpoint})
	if err != nil {
		return fmt.Errorf("encode api key request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+apiKeyEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build api key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request api key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus("request api key", resp)
	}

	var decoded apiKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode api key response: %w", err)
	}
	if decoded.APIKey == "" {
		return errors.New("auth server returned an empty api key")
	}

	c.mu.Lock()
	c.apiKey = decoded.APIKey
	c.mu.Unlock()

	logging.FromContext(ctx).Info("registered with auth server", slog.String("alias", c.cfg.Alias))
	return nil
}

type loggedEmailResponse struct {
	Email string `json:"email"`
}

// LoggedEmail returns the email of the user owning the login token.
func (c *Client) LoggedEmail(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	if email, ok := c.tokens.Get(token); ok {
		return email, nil
	}

	req, err := c.newRequest(ctx, userLoginEndpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("verify login token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return "", ErrInvalidToken
	default:
		return "", unexpectedStatus("verify login token", resp)
	}

	var decoded loggedEmailResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if decoded.Email == "" {
		return "", ErrInvalidToken
	}

	c.tokens.Put(token, decoded.Email)
	return decoded.Email, nil
}

// Profile returns the public profile of the user with the given email.
func (c *Client) Profile(ctx context.Context, email string) (models.Profile, error) {
	req, err := c.newRequest(ctx, userEndpoint, url.Values{"email": {email}})
	if err != nil {
		return models.Profile{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return models.Profile{}, ErrUserNotFound
	default:
		return models.Profile{}, unexpectedStatus("query profile", resp)
	}

	var profile models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.Email == "" {
		profile.Email = email
	}
	return profile, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	c.mu.RLock()
	apiKey := c.apiKey
	c.mu.RUnlock()
	if apiKey == "" {
		return nil, ErrNotRegistered
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", endpoint, err)
	}
	return req, nil
}

func unexpectedStatus(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
