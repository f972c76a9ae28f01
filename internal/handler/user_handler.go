package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService service.UserService
	auth        *middleware.Auth
	gate        *policy.Gate
	logger      *zap.Logger
}

// NewUserHandler sets up the routing dependencies for auth and User endpoints
func NewUserHandler(userService service.UserService, auth *middleware.Auth, gate *policy.Gate, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, auth: auth, gate: gate, logger: logger}
}

// RegisterPublicRoutes binds the endpoints that run without a session
func (h *UserHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/refresh", h.RefreshToken)
	router.POST("/logout", h.Logout)
}

// RegisterRoutes binds the authenticated endpoints; router must run RequireAuth
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", h.GetMe)

	users := router.Group("/users")
	{
		users.GET("", middleware.Authorize(h.gate, policy.ResourceUser, policy.ViewAny), h.ListUsers)
		users.GET("/:id", h.GetUserByID)
		users.POST("", middleware.Authorize(h.gate, policy.ResourceUser, policy.Create), h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.PUT("/:id/password", h.ChangePassword)
		users.DELETE("/:id", h.DeleteUser)
	}
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password. Tokens are returned and set as HttpOnly cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Login credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	tokenRes, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	h.auth.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// RefreshToken godoc
// @Summary      Refresh token
// @Description  Rotates the refresh token and issues a new access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshTokenRequest  false  "Refresh token (falls back to the cookie)"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/refresh [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	// cookie first, body as fallback
	refreshToken, cookieErr := c.Cookie("refresh_token")
	var req service.RefreshTokenRequest

	if cookieErr != nil || refreshToken == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
			return
		}
	} else {
		req = service.RefreshTokenRequest{RefreshToken: refreshToken}
	}

	tokenRes, err := h.userService.RefreshToken(c.Request.Context(), req)
	if err != nil {
		h.auth.ClearTokenCookies(c)
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	h.auth.SetTokenCookies(c, tokenRes.Token, tokenRes.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout revokes the refresh token and clears auth cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie("refresh_token")
	if refreshToken == "" {
		var req service.RefreshTokenRequest
		_ = c.ShouldBindJSON(&req)
		refreshToken = req.RefreshToken
	}
	if err := h.userService.Logout(c.Request.Context(), refreshToken); err != nil {
		h.logger.Warn("Failed to revoke refresh token", zap.Error(err))
	}

	h.auth.ClearTokenCookies(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe godoc
// @Summary      Get current user
// @Description  The authenticated user with the permission codes of their role
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.userService.Me(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}

// ListUsers godoc
// @Summary      List users
// @Description  Paginated users, excluding the caller and the roles hidden from them
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search     query  string  false  "Search by name, email or phone"
// @Param        role_id    query  string  false  "Filter by role"
// @Param        order_by   query  string  false  "name | email | designation | is_active | created_at"
// @Param        direction  query  string  false  "asc | desc"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=[]service.UserResponse}
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	q := parseListQuery(c)
	req := service.UserListRequest{
		Search:    q.Search,
		OrderBy:   q.OrderBy,
		Direction: q.Direction,
		Page:      q.Page,
		Limit:     q.Limit,
	}
	if raw := c.Query("role_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			req.RoleID = &id
		}
	}

	users, total, err := h.userService.List(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, users, q.Page, q.Limit, total))
}

// loadUser resolves :id and checks ability against the loaded user.
func (h *UserHandler) loadUser(c *gin.Context, ability string) (*model.User, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	if !authorize(c, h.gate, policy.ResourceUser, ability, user) {
		return nil, false
	}
	return user, true
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.loadUser(c, policy.View)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.ToUserResponse(user)))
}

// CreateUser godoc
// @Summary      Create a new user
// @Description  Generates a password and mails it to the new account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UserRequest  true  "User"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req service.UserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// UpdateUser godoc
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "User ID"
// @Param        payload  body      service.UserRequest  true  "User"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	user, ok := h.loadUser(c, policy.Update)
	if !ok {
		return
	}
	var req service.UserRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.userService.Update(c.Request.Context(), middleware.ActorFrom(c), user, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}

// ChangePassword godoc
// @Summary      Set a user's password
// @Description  Revokes the user's refresh tokens
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "User ID"
// @Param        payload  body      service.ChangePasswordRequest  true  "Password"
// @Success      200      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/users/{id}/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	user, ok := h.loadUser(c, policy.Password)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), middleware.ActorFrom(c), user, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Password updated successfully"))
}

// DeleteUser godoc
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c, policy.Delete)
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), middleware.ActorFrom(c), user); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}
