package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placehub/placement-backend/internal/response"
	"github.com/placehub/placement-backend/internal/service"
)

// failService maps a service-layer error onto the API error envelope.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotOwner)
	case errors.Is(err, service.ErrInvalidSpec):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSpec)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
	case errors.Is(err, service.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrNotReady)
	case errors.Is(err, service.ErrInFlightAttempts):
		response.Fail(c, http.StatusConflict, response.ErrInFlightAttempts)
	case errors.Is(err, service.ErrNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrNotAvailable)
	case errors.Is(err, service.ErrAlreadyAttempted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
	case errors.Is(err, service.ErrAttemptInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptInProgress)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrOutOfRange)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
