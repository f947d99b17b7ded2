package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/models"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

type grantSummaryService interface {
	Summary(ctx context.Context) (*models.GrantSummary, error)
}

// DashboardHandler serves read-time aggregates.
type DashboardHandler struct {
	grants grantSummaryService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(grants grantSummaryService) *DashboardHandler {
	return &DashboardHandler{grants: grants}
}

// Grants godoc
// @Summary Grant dashboard
// @Description Active grant count, total value and total remaining, computed on every call.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/grants [get]
func (h *DashboardHandler) Grants(c *gin.Context) {
	if h.grants == nil {
		serviceUnavailable(c)
		return
	}
	start := time.Now()
	summary, err := h.grants.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{
		"generated_at":       time.Now().UTC(),
		"processing_time_ms": time.Since(start).Milliseconds(),
	})
}
