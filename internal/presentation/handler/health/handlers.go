package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/collaby/internal/infrastructure/json"
)

// StatsFunc reports current registry occupancy.
type StatsFunc func() (rooms int, members int)

type Handler struct {
	startTime time.Time
	healthy   atomic.Bool
	stats     StatsFunc
}

func NewHandler(stats StatsFunc) *Handler {
	h := &Handler{
		startTime: time.Now(),
		stats:     stats,
	}
	h.healthy.Store(true)
	return h
}

// MarkUnhealthy makes every health check answer 503 while the server drains.
func (h *Handler) MarkUnhealthy() {
	h.healthy.Store(false)
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the registry, including uptime and room occupancy
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /api/health [get]
// @Router       /api/healthz [get]
// @Router       /api/ready [get]
// @Router       /api/live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.stats != nil {
		resp.Rooms, resp.Members = h.stats()
	}

	if !h.healthy.Load() {
		resp.Status = "unhealthy"
		json.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	json.Write(w, http.StatusOK, resp)
}
