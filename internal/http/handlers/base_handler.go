// README: Base handler utilities (JSON helpers, error mapping, path ids).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebud/internal/http/middleware"
	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/journey"
	"ridebud/internal/modules/matching"
	"ridebud/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps module sentinels to HTTP statuses. Anything
// unrecognised is logged and reported as a bare 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, journey.ErrBadRequest), errors.Is(err, matching.ErrMissingData):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, journey.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, journey.ErrNotFound), errors.Is(err, journey.ErrNotMatched), errors.Is(err, carpool.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, journey.ErrInvalidState), errors.Is(err, journey.ErrAlreadyMatched):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, journey.ErrStaleWrite):
		writeError(c, http.StatusConflict, "stale write")
	default:
		middleware.Logger(c).WithError(err).Error("request failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// pathID reads the :id parameter and answers 400 itself when it is malformed.
func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !types.ValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return types.ID(id), true
}

// caller returns the authenticated rider, answering 401 when there is none.
func caller(c *gin.Context) (types.ID, bool) {
	uid := middleware.CallerUID(c)
	if uid == "" {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return "", false
	}
	return types.ID(uid), true
}
