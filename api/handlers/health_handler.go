package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/songdl-go/internal/app"
)

// Version is reported by the health endpoint
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	registry *app.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *app.Registry) *HealthHandler {
	return &HealthHandler{
		registry: registry,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Tasks   struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"tasks"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}

	tasks := h.registry.List()
	response.Tasks.Total = len(tasks)
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			response.Tasks.Active++
		}
	}

	c.JSON(http.StatusOK, response)
}
