package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/sanmon-backend/internal/response"
	"github.com/stemsi/sanmon-backend/internal/scheduler"
	"github.com/stemsi/sanmon-backend/internal/service"
)

// failFromError maps service error kinds to statuses and error codes.
func failFromError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrClassNotFound)
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrClassExists)
	case errors.Is(err, scheduler.ErrBusy):
		response.Fail(c, http.StatusConflict, response.ErrJobBusy)
	case errors.Is(err, service.ErrMail):
		response.Logger(c).Warn().Err(err).Msg("mail delivery failed")
		response.Fail(c, http.StatusBadGateway, response.ErrMailDelivery)
	case errors.Is(err, service.ErrStorage):
		response.Logger(c).Error().Err(err).Msg("storage failure")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStorage)
	default:
		response.Logger(c).Error().Err(err).Msg("unexpected error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
