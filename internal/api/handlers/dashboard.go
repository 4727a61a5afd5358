package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/api/middleware"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// StatsProvider is satisfied by *dashboard.Service.
type StatsProvider interface {
	Stats(ctx context.Context, userID string, r domain.TimeRange, vehicleID string) (domain.DashboardStats, error)
}

type DashboardHandler struct {
	stats StatsProvider
	log   zerolog.Logger
}

func NewDashboardHandler(stats StatsProvider, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{stats: stats, log: log}
}

// GetStats handles GET /api/dashboard?range=month&vehicleId=
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	stats, err := h.stats.Stats(r.Context(), userID, domain.TimeRange(q.Get("range")), q.Get("vehicleId"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to compute dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stats)
}
