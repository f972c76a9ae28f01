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

type FormHandler struct {
	formService service.FormService
	gate        *policy.Gate
	logger      *zap.Logger
}

func NewFormHandler(formService service.FormService, gate *policy.Gate, logger *zap.Logger) *FormHandler {
	return &FormHandler{formService: formService, gate: gate, logger: logger}
}

func (h *FormHandler) RegisterRoutes(router *gin.RouterGroup) {
	forms := router.Group("/forms")
	{
		forms.GET("", middleware.Authorize(h.gate, policy.ResourceFormBuilder, policy.ViewAny), h.ListForms)
		forms.GET("/inputs", middleware.Authorize(h.gate, policy.ResourceFormBuilder, policy.ViewAny), h.ListInputs)
		forms.POST("", middleware.Authorize(h.gate, policy.ResourceFormBuilder, policy.Create), h.CreateForm)
		forms.GET("/:id", middleware.Authorize(h.gate, policy.ResourceFormBuilder, policy.View), h.GetForm)
		forms.PUT("/:id", h.UpdateForm)
		forms.DELETE("/:id", h.DeleteForm)
	}
}

// ListForms godoc
// @Summary      List forms
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        search  query  string  false  "Search by name"
// @Param        type    query  string  false  "Assessment | Monitoring"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.FormResponse}
// @Router       /api/forms [get]
func (h *FormHandler) ListForms(c *gin.Context) {
	q := parseListQuery(c)
	forms, total, err := h.formService.List(c.Request.Context(), service.FormListRequest{
		Search:    q.Search,
		Type:      c.Query("type"),
		OrderBy:   q.OrderBy,
		Direction: q.Direction,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, forms, q.Page, q.Limit, total))
}

// ListInputs returns the input types a form element can use
// @Summary      Form input types
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.FormInput}
// @Router       /api/forms/inputs [get]
func (h *FormHandler) ListInputs(c *gin.Context) {
	inputs, err := h.formService.Inputs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inputs))
}

// GetForm godoc
// @Summary      Get form with its elements
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Form ID"
// @Success      200  {object}  response.Response{data=service.FormResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/forms/{id} [get]
func (h *FormHandler) GetForm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	form, err := h.formService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, form))
}

// CreateForm godoc
// @Summary      Create form
// @Description  Elements are stored in request order
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.FormRequest  true  "Form"
// @Success      201      {object}  response.Response{data=service.FormResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/forms [post]
func (h *FormHandler) CreateForm(c *gin.Context) {
	var req service.FormRequest
	if !bindJSON(c, &req) {
		return
	}
	form, err := h.formService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, form))
}

func (h *FormHandler) load(c *gin.Context, ability string) (*model.DynamicForm, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	form, err := h.formService.Find(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if !authorize(c, h.gate, policy.ResourceFormBuilder, ability, form) {
		return nil, false
	}
	return form, true
}

// UpdateForm godoc
// @Summary      Update form
// @Description  Elements are matched by input id: matches are updated, new ones inserted, missing ones removed
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Form ID"
// @Param        payload  body      service.FormRequest  true  "Form"
// @Success      200      {object}  response.Response{data=service.FormResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/forms/{id} [put]
func (h *FormHandler) UpdateForm(c *gin.Context) {
	form, ok := h.load(c, policy.Update)
	if !ok {
		return
	}
	var req service.FormRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.formService.Update(c.Request.Context(), middleware.ActorFrom(c), form, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// DeleteForm godoc
// @Summary      Delete form
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Form ID"
// @Success      200  {object}  response.Response
// @Router       /api/forms/{id} [delete]
func (h *FormHandler) DeleteForm(c *gin.Context) {
	form, ok := h.load(c, policy.Delete)
	if !ok {
		return
	}
	if err := h.formService.Delete(c.Request.Context(), middleware.ActorFrom(c), form); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Form deleted successfully"))
}
