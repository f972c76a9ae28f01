package handler

import (
	"errors"
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/policy"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps the service error taxonomy onto HTTP statuses. Unknown
// errors are logged and answered with a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if verr, ok := service.IsValidation(err); ok {
		c.JSON(http.StatusUnprocessableEntity, response.ValidationError(http.StatusUnprocessableEntity, verr.Fields))
		return
	}
	if rej, ok := service.IsRejected(err); ok {
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, rej.Reason))
		return
	}
	if denied, ok := policy.IsDenied(err); ok {
		status := http.StatusForbidden
		if denied.Decision.NotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, response.Error(status, denied.Decision.Message))
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Not found."))
		return
	}

	if logger != nil {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Something went wrong. Please try again later."))
}

// bindJSON decodes the body; a malformed payload answers 400.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

// pathID parses the :id parameter; anything that is not a uuid cannot exist.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Not found."))
		return uuid.Nil, false
	}
	return id, true
}

// authorize checks an ability against a loaded target.
func authorize(c *gin.Context, gate *policy.Gate, resource, ability string, target any) bool {
	if err := gate.Check(middleware.ActorFrom(c), resource, ability, target); err != nil {
		respondError(c, nil, err)
		return false
	}
	return true
}

// listQuery gathers the common list parameters.
type listQuery struct {
	pagination.Params
	Search    string
	OrderBy   string
	Direction string
}

func parseListQuery(c *gin.Context) listQuery {
	orderBy := c.Query("order_by")
	if orderBy == "" {
		orderBy = c.Query("orderBy")
	}
	return listQuery{
		Params:    pagination.Parse(c),
		Search:    c.Query("search"),
		OrderBy:   orderBy,
		Direction: c.DefaultQuery("direction", "desc"),
	}
}
