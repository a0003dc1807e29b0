package handler

import (
	"net/http"

	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/service"
	"freightops/pkg/pagination"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audits := router.Group("/api/audit-logs")
	audits.Use(middleware.RequireActor())
	{
		audits.GET("", middleware.RequireOperation(authz.OpAuditRead), h.GetAuditLogs)
	}
}

// GetAuditLogs handles GET /api/audit-logs with entity/action filters
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Action:     c.Query("action"),
		Page:       p.Page,
		Limit:      p.Limit,
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(logs, total)))
}
