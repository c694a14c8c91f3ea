package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/metrics"
)

// SessionCounter reports live conversation sessions (*bot.SessionStore).
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger checks a backing store (*sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	sessions SessionCounter
	db       Pinger // nil when running on memory repositories
	version  string
	logger   *zap.Logger
}

func NewHealthHandler(sessions SessionCounter, db Pinger, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{sessions: sessions, db: db, version: version, logger: logger}
}

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

// Health 503 when the database or the session store cannot be reached.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := healthResult{Status: "ok", Version: h.version, Database: "memory"}
	status := http.StatusOK

	if h.db != nil {
		out.Database = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("Health check: database unreachable", zap.Error(err))
			out.Database = "unreachable"
			out.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	n, err := h.sessions.Count(ctx)
	if err != nil {
		h.logger.Warn("Health check: session store unreachable", zap.Error(err))
		out.Status = "degraded"
		status = http.StatusServiceUnavailable
	} else {
		out.Sessions = n
		metrics.ActiveSessions.Set(float64(n))
	}

	writeJSON(w, status, Ok(out))
}
