package handler

import (
	"net/http"
	"time"

	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/service"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsService service.StatsService
}

func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/stats")
	stats.Use(middleware.RequireActor())
	{
		stats.GET("", middleware.RequireOperation(authz.OpStatsRead), h.GetStats)
	}
}

// GetStats handles GET /api/stats?start_date=2025-01-01&end_date=2025-01-31.
// Defaults to the trailing 30 days.
func (h *StatsHandler) GetStats(c *gin.Context) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -30)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Fail("bad_date", "start_date must be YYYY-MM-DD"))
			return
		}
		startDate = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Fail("bad_date", "end_date must be YYYY-MM-DD"))
			return
		}
		// Make the end bound inclusive of the whole day.
		endDate = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if endDate.Before(startDate) {
		c.JSON(http.StatusBadRequest, response.Fail("bad_date", "end_date must not precede start_date"))
		return
	}

	stats, err := h.statsService.GetStats(c.Request.Context(), startDate, endDate)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(stats))
}
