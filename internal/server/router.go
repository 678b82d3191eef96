package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vigilx/pricewatch/internal/store"
	"github.com/vigilx/pricewatch/internal/track"
)

// PassReporter exposes the last reconciliation pass; satisfied by
// *track.Reconciler.
type PassReporter interface {
	LastReport() *track.Report
}

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Store    store.Store
	Reporter PassReporter
}

// NewRouter wires the operational HTTP routes.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}

		if deps.Store != nil {
			if err := deps.Store.Ping(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}
		respondJSON(w, status, payload)
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		respondJSON(w, http.StatusOK, buildStatus(r.Context(), deps))
	})

	return requestIDMiddleware(loggingMiddleware(logger, mux))
}

type statusResponse struct {
	Users    int         `json:"users"`
	Items    int         `json:"items"`
	LastPass *passStatus `json:"lastPass,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

type passStatus struct {
	StartedAt     time.Time `json:"startedAt"`
	DurationMS    int64     `json:"durationMs"`
	Users         int       `json:"users"`
	ItemsChecked  int       `json:"itemsChecked"`
	ItemsResolved int       `json:"itemsResolved"`
	Drops         int       `json:"drops"`
	Notified      int       `json:"notified"`
	WriteFailures int       `json:"writeFailures"`
}

func buildStatus(ctx context.Context, deps RouterDependencies) statusResponse {
	var resp statusResponse

	if deps.Store != nil {
		users, err := deps.Store.GetAllUsers(ctx)
		if err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.Users = len(users)
			for _, u := range users {
				resp.Items += len(u.Tracking)
			}
		}
	}

	if deps.Reporter != nil {
		if report := deps.Reporter.LastReport(); report != nil {
			resp.LastPass = &passStatus{
				StartedAt:     report.StartedAt,
				DurationMS:    report.Duration.Milliseconds(),
				Users:         report.Users,
				ItemsChecked:  report.ItemsChecked,
				ItemsResolved: report.ItemsResolved,
				Drops:         report.Drops,
				Notified:      report.Notified,
				WriteFailures: report.WriteFailures,
			}
		}
	}
	return resp
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", w.Header().Get("X-Request-ID"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
