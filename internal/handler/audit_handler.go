package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService service.AuditService
	gate         *policy.Gate
	logger       *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, gate *policy.Gate, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, gate: gate, logger: logger}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.Authorize(h.gate, policy.ResourceAuditLog, policy.ViewAny))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated records with the acting user preloaded
// @Summary      Get audit logs
// @Description  Activity history, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by entity name or id"
// @Param        action  query     string  false  "Filter by action, e.g. ROLE_UPDATED"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	q := parseListQuery(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditListRequest{
		Search: q.Search,
		Action: c.Query("action"),
		Page:   q.Page,
		Limit:  q.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, q.Page, q.Limit, total))
}
