package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/chotuve/appserver/internal/logging"
	"github.com/chotuve/appserver/internal/models"
)

// CallRecorder stores served API calls for the statistics endpoint.
type CallRecorder interface {
	Record(ctx context.Context, call models.APICall) error
}

// Statistics records every served request. Recorder failures are logged and
// never change the response.
func Statistics(recorder CallRecorder, routes RouteResolver) func(http.Handler) http.Handler {
	return StatisticsWithClock(recorder, routes, time.Now)
}

// StatisticsWithClock is Statistics with an explicit time source.
func StatisticsWithClock(recorder CallRecorder, routes RouteResolver, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			call := models.APICall{
				Path:      routeLabel(routes, r),
				Method:    r.Method,
				Status:    wrapped.Status(),
				Timestamp: start.UTC(),
				Duration:  now().Sub(start),
			}
			if err := recorder.Record(r.Context(), call); err != nil {
				logging.FromContext(r.Context()).Warn("record api call failed", "error", err, "path", call.Path)
			}
		})
	}
}
