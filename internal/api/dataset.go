package api

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type datasetStatus struct {
	State      string     `json:"state"`
	Source     string     `json:"source,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	AgeSeconds float64    `json:"age_seconds"`
	Records    int        `json:"records"`
	Refreshed  *bool      `json:"refreshed,omitempty"`
}

func statusOf(datasets DatasetCache) datasetStatus {
	st := datasetStatus{State: datasets.State().String()}
	if ds := datasets.Get(); ds != nil {
		fetched := ds.FetchedAt.UTC()
		st.Source = ds.Source
		st.FetchedAt = &fetched
		st.Records = len(ds.Records)
	}
	if age, ok := datasets.Age(); ok {
		st.AgeSeconds = age.Seconds()
	}
	return st
}

func datasetStatusHandler(datasets DatasetCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusOf(datasets))
	}
}

// newRefreshLimiter allows one forced refresh per interval. A non-positive
// interval disables the limit.
func newRefreshLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// refreshHandler forces a dataset refresh. A failed fetch that fell back to
// the cached copy is reported as 503 with refreshed=false.
func refreshHandler(logger *slog.Logger, datasets DatasetCache, limiter *rate.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "refresh rate limited")
			return
		}

		before := datasets.Get()
		ds, err := datasets.Refresh(r.Context())
		if err != nil {
			writeLookupError(w, logger, err)
			return
		}

		refreshed := ds != before
		st := statusOf(datasets)
		st.Refreshed = &refreshed

		status := http.StatusOK
		if !refreshed {
			status = http.StatusServiceUnavailable
		}
		logger.Info("forced airport dataset refresh", "component", "api", "refreshed", refreshed, "records", st.Records)
		writeJSON(w, status, st)
	}
}
