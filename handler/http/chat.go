package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"kbchat/src/core/assistant"
)

type chatRequest struct {
	Message          string `json:"message" binding:"required"`
	UseKnowledgeBase bool   `json:"use_knowledge_base"`
	SessionID        string `json:"session_id"`
}

// Chat godoc
// @Summary Answer a chat message, optionally grounded in the knowledge base
// @Tags chat
// @Accept json
// @Produce json
// @Param body body chatRequest true "Chat message"
// @Success 200 {object} assistant.Answer
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), assistant.AskInput{
		SessionID:        req.SessionID,
		Message:          req.Message,
		UseKnowledgeBase: req.UseKnowledgeBase,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, answer)
}

// ChatHistory godoc
// @Summary Get chat history
// @Tags chat
// @Param sessionId query string true "Chat session ID"
// @Produce json
// @Success 200 {array} assistant.ChatMessage
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat/history [get]
func (h *Handler) ChatHistory(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("sessionId is required"))
		return
	}

	history, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, history)
}
