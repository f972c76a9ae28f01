package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/permission"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RoleHandler struct {
	roleService service.RoleService
	gate        *policy.Gate
	logger      *zap.Logger
}

func NewRoleHandler(roleService service.RoleService, gate *policy.Gate, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{roleService: roleService, gate: gate, logger: logger}
}

// RegisterRoutes expects router to already run RequireAuth.
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/roles")
	{
		roles.GET("", middleware.Authorize(h.gate, policy.ResourceRole, policy.ViewAny), h.ListRoles)
		// only the user form needs this list
		roles.GET("/assignable", middleware.RequireAnyPermission(
			permission.Permission(permission.ModuleUser, permission.AbilityCreate),
			permission.Permission(permission.ModuleUser, permission.AbilityUpdate),
		), h.AssignableRoles)
		roles.POST("", middleware.Authorize(h.gate, policy.ResourceRole, policy.Create), h.CreateRole)
		roles.GET("/:id/edit", h.EditRole)
		roles.PUT("/:id", h.UpdateRole)
		roles.DELETE("/:id", h.DeleteRole)
		roles.POST("/:id/restore", middleware.Authorize(h.gate, policy.ResourceRole, policy.Restore), h.RestoreRole)
	}

	router.GET("/permissions/tree", h.PermissionTree)
}

// ListRoles godoc
// @Summary      List roles
// @Description  Paginated roles visible to the current user
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        search     query  string  false  "Search by name"
// @Param        order_by   query  string  false  "name | created_at"
// @Param        direction  query  string  false  "asc | desc"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	q := parseListQuery(c)
	roles, total, err := h.roleService.List(c.Request.Context(), middleware.ActorFrom(c), service.RoleListRequest{
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
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, roles, q.Page, q.Limit, total))
}

// CreateRole godoc
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RoleRequest  true  "Role"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.RoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// EditRole returns the role with its permission pre-selection and tree
// @Summary      Role edit view
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleEditResponse}
// @Router       /api/roles/{id}/edit [get]
func (h *RoleHandler) EditRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !authorize(c, h.gate, policy.ResourceRole, policy.Update, role) {
		return
	}

	view, err := h.roleService.Edit(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// UpdateRole godoc
// @Summary      Update role
// @Description  Locked roles keep their name; only the permission set changes
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Role ID"
// @Param        payload  body      service.RoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !authorize(c, h.gate, policy.ResourceRole, policy.Update, role) {
		return
	}

	var req service.RoleRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.roleService.Update(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// DeleteRole godoc
// @Summary      Delete role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !authorize(c, h.gate, policy.ResourceRole, policy.Delete, role) {
		return
	}

	if err := h.roleService.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Role deleted successfully"))
}

// RestoreRole godoc
// @Summary      Restore a deleted role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/roles/{id}/restore [post]
func (h *RoleHandler) RestoreRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Restore(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// AssignableRoles lists the roles the current user may give to users
func (h *RoleHandler) AssignableRoles(c *gin.Context) {
	roles, err := h.roleService.AssignableRoles(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// PermissionTree returns the catalog tree limited to the current user's abilities
func (h *RoleHandler) PermissionTree(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.roleService.PermissionTree(middleware.ActorFrom(c))))
}
