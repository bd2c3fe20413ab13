package handlers

import (
	"net/http"

	"github.com/ramonehamilton/BG-Companion/internal/api/response"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
	"github.com/ramonehamilton/BG-Companion/internal/version"
)

// SystemHandler handles system-related API requests.
type SystemHandler struct {
	metrics *metrics.Metrics
	clients func() int
}

// NewSystemHandler creates a new SystemHandler. clients reports the
// connected websocket count and may be nil.
func NewSystemHandler(m *metrics.Metrics, clients func() int) *SystemHandler {
	return &SystemHandler{metrics: m, clients: clients}
}

// StatsResponse is the body of GET /api/v1/system/stats.
type StatsResponse struct {
	metrics.Stats
	Clients int `json:"clients"`
}

// GetStats returns the recorder counters.
func (h *SystemHandler) GetStats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{Stats: h.metrics.Snapshot()}
	if h.clients != nil {
		resp.Clients = h.clients()
	}
	response.Success(w, resp)
}

// GetVersion returns the application version.
func (h *SystemHandler) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"version": version.GetVersion(),
		"service": version.Service,
	})
}
