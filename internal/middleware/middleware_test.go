package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
)

func testMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	return mux
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-42" {
		t.Fatalf("expected request id on context, got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected request id header, got %q", got)
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("expected request id in log, got %s", buf.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil)))(testMux())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
}

type recordingRecorder struct {
	mu    sync.Mutex
	calls []models.APICall
	err   error
}

func (r *recordingRecorder) Record(_ context.Context, call models.APICall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.err
}

func TestStatisticsRecordsCalls(t *testing.T) {
	mux := testMux()
	recorder := &recordingRecorder{}
	start := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(25 * time.Millisecond), start.Add(time.Second), start.Add(time.Second + 5*time.Millisecond)}
	now := func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	handler := StatisticsWithClock(recorder, mux, now)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/videos", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	if len(recorder.calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(recorder.calls))
	}

	first := recorder.calls[0]
	if first.Path != "/api/v1/videos" || first.Method != http.MethodPost || first.Status != http.StatusCreated {
		t.Fatalf("unexpected call %+v", first)
	}
	if first.Duration != 25*time.Millisecond || !first.Timestamp.Equal(start) {
		t.Fatalf("unexpected timing %+v", first)
	}

	second := recorder.calls[1]
	if second.Path != UnmatchedRoute || second.Status != http.StatusNotFound {
		t.Fatalf("unexpected call %+v", second)
	}
}

func TestStatisticsSwallowsRecorderErrors(t *testing.T) {
	mux := testMux()
	recorder := &recordingRecorder{err: errors.New("redis down")}
	handler := Statistics(recorder, mux)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/videos", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("recorder failure must not change the response, got %d", rec.Code)
	}
}

func TestMetricsInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newMetrics(reg, reg)
	mux := testMux()
	handler := metrics.Instrument(mux)(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/videos", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/videos", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`appserver_http_requests_total{method="POST",route="/api/v1/videos",status="201"} 2`,
		`appserver_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`appserver_http_request_duration_seconds_count{method="POST",route="/api/v1/videos"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute, 2, time.Minute)
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter.WithNowFunc(func() time.Time { return now })

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("burst should allow two requests")
	}
	if limiter.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !limiter.Allow("b") {
		t.Fatal("keys must be limited independently")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("a") {
		t.Fatal("bucket should refill")
	}
	if limiter.Len() != 1 {
		t.Fatalf("idle keys should expire, tracking %d", limiter.Len())
	}
}

func TestLimitWrites(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)
	handler := LimitWrites(limiter)(testMux())

	send := func(method string) int {
		req := httptest.NewRequest(method, "/api/v1/videos", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(http.MethodPost); code != http.StatusCreated {
		t.Fatalf("first write should pass, got %d", code)
	}
	if code := send(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second write should be limited, got %d", code)
	}
	if code := send(http.MethodGet); code != http.StatusCreated {
		t.Fatalf("reads are never limited, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{name: "forwarded", forwarded: "203.0.113.5, 10.0.0.1", remote: "10.0.0.1:80", want: "203.0.113.5"},
		{name: "remote host", remote: "192.0.2.7:5555", want: "192.0.2.7"},
		{name: "remote without port", remote: "192.0.2.7", want: "192.0.2.7"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Fatalf("unexpected order %v", order)
	}
}
