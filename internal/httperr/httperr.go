package httperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type HTTPError struct {
	Code    string      `json:"error_code"`
	Message string      `json:"message"`
	Items   []StaleItem `json:"items,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

func Conflict(c *gin.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

// FromError maps a use case error onto the HTTP taxonomy.
func FromError(c *gin.Context, err error) {
	if se, ok := AsStale(err); ok {
		c.JSON(http.StatusConflict, HTTPError{
			Code:    "stale_state",
			Message: "Some items are no longer available.",
			Items:   se.Items,
		})
		return
	}

	if IsDeadlineExpired(err) {
		Write(c, http.StatusGone, "deadline_expired", "The payment window for this slot has closed.")
		return
	}

	if IsConflict(err) || IsExclusionConflict(err) {
		Conflict(c, "slot_conflict", "The slot is already taken.")
		return
	}

	var be BusinessError
	if errors.As(err, &be) {
		switch {
		case strings.HasSuffix(be.Code, "_not_found"):
			NotFound(c, be.Code, "Resource not found.")
		case be.Code == "forbidden":
			Forbidden(c, be.Code, "Not allowed.")
		case be.Code == "invalid_state":
			Conflict(c, be.Code, "Operation not allowed in the current state.")
		default:
			BadRequest(c, be.Code, "Invalid request.")
		}
		return
	}

	log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
	Internal(c, "internal_error", "Unexpected error.")
}
