package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/httperr"
)

// idParam reads a positive numeric path parameter. It writes the 400 itself
// and reports false when the value is unusable.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		httperr.BadRequest(c, "invalid_"+name, "Invalid identifier.")
		return 0, false
	}
	return uint(id), true
}

func ptr[T any](v T) *T {
	return &v
}
