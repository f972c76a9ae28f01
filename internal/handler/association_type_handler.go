package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AssociationTypeHandler struct {
	service service.AssociationTypeService
	gate    *policy.Gate
	logger  *zap.Logger
}

func NewAssociationTypeHandler(s service.AssociationTypeService, gate *policy.Gate, logger *zap.Logger) *AssociationTypeHandler {
	return &AssociationTypeHandler{service: s, gate: gate, logger: logger}
}

func (h *AssociationTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/association-types")
	{
		g.GET("", middleware.Authorize(h.gate, policy.ResourceAssociationType, policy.ViewAny), h.List)
		g.POST("", middleware.Authorize(h.gate, policy.ResourceAssociationType, policy.Create), h.Create)
		g.POST("/bulk-delete", middleware.Authorize(h.gate, policy.ResourceAssociationType, policy.Delete), h.BulkDelete)
		g.POST("/bulk-status", middleware.Authorize(h.gate, policy.ResourceAssociationType, policy.Update), h.BulkStatus)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}

// List godoc
// @Summary      List association types
// @Tags         association-types
// @Produce      json
// @Security     BearerAuth
// @Param        search     query  string  false  "Search by name or app key"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.AssociationTypeResponse}
// @Router       /api/association-types [get]
func (h *AssociationTypeHandler) List(c *gin.Context) {
	q := parseListQuery(c)
	items, total, err := h.service.List(c.Request.Context(), service.AssociationTypeListRequest{
		Search:    q.Search,
		OrderBy:   q.OrderBy,
		Direction: q.Direction,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, items, q.Page, q.Limit, total))
}

func (h *AssociationTypeHandler) load(c *gin.Context, ability string) (*model.AssociationType, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	at, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if !authorize(c, h.gate, policy.ResourceAssociationType, ability, at) {
		return nil, false
	}
	return at, true
}

// Get godoc
// @Summary      Get association type
// @Tags         association-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Association type ID"
// @Success      200  {object}  response.Response{data=service.AssociationTypeResponse}
// @Router       /api/association-types/{id} [get]
func (h *AssociationTypeHandler) Get(c *gin.Context) {
	at, ok := h.load(c, policy.View)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToAssociationTypeResponse(at)))
}

// Create godoc
// @Summary      Create association type
// @Tags         association-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.AssociationTypeRequest  true  "Association type"
// @Success      201      {object}  response.Response{data=service.AssociationTypeResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/association-types [post]
func (h *AssociationTypeHandler) Create(c *gin.Context) {
	var req service.AssociationTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	at, err := h.service.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, at))
}

// Update godoc
// @Summary      Update association type
// @Description  Omitted appKey, validUntil, token and isActive keep their stored values
// @Tags         association-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Association type ID"
// @Param        payload  body      service.AssociationTypeRequest  true  "Association type"
// @Success      200      {object}  response.Response{data=service.AssociationTypeResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/association-types/{id} [put]
func (h *AssociationTypeHandler) Update(c *gin.Context) {
	at, ok := h.load(c, policy.Update)
	if !ok {
		return
	}
	var req service.AssociationTypeRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.service.Update(c.Request.Context(), middleware.ActorFrom(c), at, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// Delete godoc
// @Summary      Delete association type
// @Tags         association-types
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Association type ID"
// @Success      200  {object}  response.Response
// @Router       /api/association-types/{id} [delete]
func (h *AssociationTypeHandler) Delete(c *gin.Context) {
	at, ok := h.load(c, policy.Delete)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.ActorFrom(c), at); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Association type deleted successfully"))
}

// BulkDelete godoc
// @Summary      Delete several association types
// @Tags         association-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BulkIDsRequest  true  "IDs"
// @Success      200      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/association-types/bulk-delete [post]
func (h *AssociationTypeHandler) BulkDelete(c *gin.Context) {
	var req service.BulkIDsRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.service.BulkDelete(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": n}))
}

// BulkStatus godoc
// @Summary      Activate or deactivate several association types
// @Tags         association-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BulkStatusRequest  true  "IDs and status"
// @Success      200      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/association-types/bulk-status [post]
func (h *AssociationTypeHandler) BulkStatus(c *gin.Context) {
	var req service.BulkStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.service.BulkStatus(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": n}))
}
