package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/repository"
	"github.com/stemsi/exstem-session/internal/response"
	"github.com/stemsi/exstem-session/internal/service"
)

// errorStatus maps a service or catalog error to its HTTP status and code.
// Unknown errors are internal.
func errorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusForbidden, response.ErrNotEligible
	case errors.Is(err, service.ErrInvalidSession):
		return http.StatusForbidden, response.ErrInvalidSession
	case errors.Is(err, service.ErrExamNotActive):
		return http.StatusUnprocessableEntity, response.ErrExamNotActive
	case errors.Is(err, service.ErrAlreadyAttempted):
		return http.StatusConflict, response.ErrAlreadyAttempted
	case errors.Is(err, service.ErrSessionNotActive):
		return http.StatusConflict, response.ErrSessionNotActive
	case errors.Is(err, service.ErrAlreadySubmitted):
		return http.StatusConflict, response.ErrAlreadySubmitted
	case errors.Is(err, service.ErrNotExpired):
		return http.StatusConflict, response.ErrNotExpired
	case errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failWith writes the error envelope for a service error. Internal errors are
// logged; every other error is an expected outcome reported to the client.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	status, code := errorStatus(err)
	if code == response.ErrInternal {
		reqLog := response.RequestLogger(c, log)
		reqLog.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	response.Fail(c, status, code)
}
