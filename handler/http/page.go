package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web
var webFS embed.FS

var chatTemplate = template.Must(template.ParseFS(webFS, "web/templates/chat.html"))

// ChatPage renders the chat UI.
func (h *Handler) ChatPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := chatTemplate.Execute(c.Writer, nil); err != nil {
		_ = c.Error(err)
	}
}
