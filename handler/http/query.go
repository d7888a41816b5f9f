package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueryKnowledgeBase godoc
// @Summary Answer a question grounded in the knowledge base
// @Tags query
// @Param text query string true "Input text for the model"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /bedrock/query [get]
func (h *Handler) QueryKnowledgeBase(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}

	response, err := h.queryService.QueryKnowledgeBase(c.Request.Context(), text)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"response": response})
}

// InvokeModel godoc
// @Summary Invoke the model directly with the assistant system prompt
// @Tags query
// @Param text query string true "Input text for the model"
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /bedrock/invoke [get]
func (h *Handler) InvokeModel(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("text is required"))
		return
	}

	response, err := h.queryService.InvokeModel(c.Request.Context(), text)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"response": response})
}
