package handlers

import (
	"net/http"
	"time"
)

// StatisticsHandler exposes the API call summary of the last days.
type StatisticsHandler struct {
	Statistics StatisticsReader
	NowFunc    func() time.Time
}

// Summary handles GET /api/v1/statistics.
func (h StatisticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Statistics == nil {
		respondUnavailable(ctx, w, "statistics")
		return
	}

	summary, err := h.Statistics.Summary(ctx, h.now())
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, summary)
}

func (h StatisticsHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
