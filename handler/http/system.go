package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckHealth reports the reachability of the external collaborators.
func (h *Handler) CheckHealth(c *gin.Context) {
	status := h.sysService.CheckHealth(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	sendJSON(c, code, status)
}
