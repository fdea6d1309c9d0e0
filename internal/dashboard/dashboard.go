package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Dashboard serves the single-page progress view and its status feed.
type Dashboard struct {
	state  *RunState
	logger *slog.Logger
}

// New creates a dashboard over state.
func New(state *RunState, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		state:  state,
		logger: logger.With("component", "dashboard"),
	}
}

// ServeHTTP serves the dashboard page.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(dashboardHTML)); err != nil {
		d.logger.Debug("dashboard write failed", "error", err)
	}
}

// ServeStatus writes the current run status as JSON.
func (d *Dashboard) ServeStatus(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Status
		Timestamp string `json:"timestamp"`
	}{
		Status:    d.state.Snapshot(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.logger.Debug("status encode failed", "error", err)
	}
}
