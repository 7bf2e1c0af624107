package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gdugdh24/nearmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string      `json:"error"`
	Code  domain.Kind `json:"code"`
}

// SuccessResponse represents success response
type SuccessResponse struct {
	Message string `json:"message"`
}

var statusByKind = map[domain.Kind]int{
	domain.KindValidation:   http.StatusBadRequest,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindPrecondition: http.StatusPreconditionFailed,
	domain.KindExists:       http.StatusConflict,
	domain.KindInvalidOp:    http.StatusUnprocessableEntity,
	domain.KindUnavailable:  http.StatusNotFound,
	domain.KindUnauthorized: http.StatusUnauthorized,
}

// respondError renders err with the status of its kind. Internal errors are
// logged and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  domain.KindInternal,
		})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: kind})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: domain.KindValidation})
}

// currentUser returns the authenticated profile id or writes a 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
			Code:  domain.KindUnauthorized,
		})
	}
	return id, ok
}

// pathID parses a uuid path parameter or writes a 400.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back to def when absent.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
