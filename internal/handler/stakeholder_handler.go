package handler

import (
	"fmt"
	"net/http"
	"time"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StakeholderHandler struct {
	service service.StakeholderService
	gate    *policy.Gate
	logger  *zap.Logger
}

func NewStakeholderHandler(s service.StakeholderService, gate *policy.Gate, logger *zap.Logger) *StakeholderHandler {
	return &StakeholderHandler{service: s, gate: gate, logger: logger}
}

func (h *StakeholderHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/stakeholders")
	{
		g.GET("", middleware.Authorize(h.gate, policy.ResourceStakeholder, policy.ViewAny), h.List)
		g.GET("/export", middleware.Authorize(h.gate, policy.ResourceStakeholder, policy.ViewAny), h.Export)
		g.POST("", middleware.Authorize(h.gate, policy.ResourceStakeholder, policy.Create), h.Create)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}

func (h *StakeholderHandler) listRequest(c *gin.Context) (service.StakeholderListRequest, listQuery) {
	q := parseListQuery(c)
	return service.StakeholderListRequest{
		Search:    q.Search,
		Type:      c.Query("type"),
		OrderBy:   q.OrderBy,
		Direction: q.Direction,
		Page:      q.Page,
		Limit:     q.Limit,
	}, q
}

// List godoc
// @Summary      List stakeholders
// @Tags         stakeholders
// @Produce      json
// @Security     BearerAuth
// @Param        search  query  string  false  "Search by name, mobile or email"
// @Param        type    query  string  false  "Government | Autonomous | NGO | Private Sector | Other"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.StakeholderResponse}
// @Router       /api/stakeholders [get]
func (h *StakeholderHandler) List(c *gin.Context) {
	req, q := h.listRequest(c)
	items, total, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, q.Page, q.Limit, total))
}

// Export godoc
// @Summary      Export stakeholders
// @Description  All stakeholders matching the filters as an xlsx workbook
// @Tags         stakeholders
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        search  query  string  false  "Search by name, mobile or email"
// @Param        type    query  string  false  "Stakeholder type"
// @Success      200
// @Router       /api/stakeholders/export [get]
func (h *StakeholderHandler) Export(c *gin.Context) {
	req, _ := h.listRequest(c)
	data, err := h.service.Export(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	filename := fmt.Sprintf("stakeholders-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *StakeholderHandler) load(c *gin.Context, ability string) (*model.Stakeholder, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	sh, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if !authorize(c, h.gate, policy.ResourceStakeholder, ability, sh) {
		return nil, false
	}
	return sh, true
}

// Get godoc
// @Summary      Get stakeholder
// @Tags         stakeholders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Stakeholder ID"
// @Success      200  {object}  response.Response{data=service.StakeholderResponse}
// @Router       /api/stakeholders/{id} [get]
func (h *StakeholderHandler) Get(c *gin.Context) {
	sh, ok := h.load(c, policy.View)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToStakeholderResponse(sh)))
}

// Create godoc
// @Summary      Create stakeholder
// @Tags         stakeholders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.StakeholderRequest  true  "Stakeholder"
// @Success      201      {object}  response.Response{data=service.StakeholderResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/stakeholders [post]
func (h *StakeholderHandler) Create(c *gin.Context) {
	var req service.StakeholderRequest
	if !bindJSON(c, &req) {
		return
	}
	sh, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sh))
}

// Update godoc
// @Summary      Update stakeholder
// @Description  A blank password keeps the current one
// @Tags         stakeholders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Stakeholder ID"
// @Param        payload  body      service.StakeholderRequest  true  "Stakeholder"
// @Success      200      {object}  response.Response{data=service.StakeholderResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/stakeholders/{id} [put]
func (h *StakeholderHandler) Update(c *gin.Context) {
	sh, ok := h.load(c, policy.Update)
	if !ok {
		return
	}
	var req service.StakeholderRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), middleware.ActorFrom(c), sh, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// Delete godoc
// @Summary      Delete stakeholder
// @Tags         stakeholders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Stakeholder ID"
// @Success      200  {object}  response.Response
// @Router       /api/stakeholders/{id} [delete]
func (h *StakeholderHandler) Delete(c *gin.Context) {
	sh, ok := h.load(c, policy.Delete)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.ActorFrom(c), sh); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Stakeholder deleted successfully"))
}
