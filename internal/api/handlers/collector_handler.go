package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/nsequotes/internal/models"
	"github.com/nsvirk/nsequotes/internal/service"
	"github.com/nsvirk/nsequotes/pkg/utils/response"
)

const (
	defaultCyclesLimit = 20
	maxCyclesLimit     = 500
)

// CollectorStatusProvider reports the scheduler status
type CollectorStatusProvider interface {
	Status() service.CollectorStatus
}

// CycleLister reads recent cycle runs
type CycleLister interface {
	GetRecentCycleRuns(limit int) ([]models.CycleRunModel, error)
}

// CollectorHandler is the handler for the collector API
type CollectorHandler struct {
	collector CollectorStatusProvider
	cycles    CycleLister
}

// NewCollectorHandler creates a new collector handler. cycles may be nil when
// no database is configured.
func NewCollectorHandler(collector CollectorStatusProvider, cycles CycleLister) *CollectorHandler {
	return &CollectorHandler{collector: collector, cycles: cycles}
}

// GetStatus returns the scheduler state and the last cycle summary
func (h *CollectorHandler) GetStatus(c echo.Context) error {
	return response.SuccessResponse(c, h.collector.Status())
}

// GetCycles returns the most recent cycle runs, newest first
func (h *CollectorHandler) GetCycles(c echo.Context) error {
	if h.cycles == nil {
		return response.NotFound(c, "Cycle history is not enabled")
	}

	limit := defaultCyclesLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return response.InputError(c, "limit must be a positive integer")
		}
		limit = min(n, maxCyclesLimit)
	}

	runs, err := h.cycles.GetRecentCycleRuns(limit)
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, response.DatabaseException, err.Error())
	}

	return response.SuccessResponse(c, map[string]interface{}{
		"records": len(runs),
		"cycles":  runs,
	})
}
