package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kbchat/src/core/assistant"
	"kbchat/src/infrastructure/job"
	"kbchat/src/storage/minioctrl"
	"kbchat/src/storage/postgres/documentctrl"
)

// SyncEnqueuer schedules a knowledge base sync after a document upload.
type SyncEnqueuer interface {
	EnqueueDocumentSync(ctx context.Context, documentID int64) (*job.Job, error)
}

type Handler struct {
	chatService     assistant.ChatService
	queryService    assistant.QueryService
	sysService      assistant.SystemService
	documentService *documentctrl.DocumentService
	minioService    *minioctrl.MinioService
	syncEnqueuer    SyncEnqueuer
	pdfBucket       string
	downloadExpiry  time.Duration
}

func NewHandler(
	chatService assistant.ChatService,
	queryService assistant.QueryService,
	sysService assistant.SystemService,
	documentService *documentctrl.DocumentService,
	minioService *minioctrl.MinioService,
	syncEnqueuer SyncEnqueuer,
	pdfBucket string,
) *Handler {
	return &Handler{
		chatService:     chatService,
		queryService:    queryService,
		sysService:      sysService,
		documentService: documentService,
		minioService:    minioService,
		syncEnqueuer:    syncEnqueuer,
		pdfBucket:       pdfBucket,
		downloadExpiry:  15 * time.Minute,
	}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Chat UI
	r.GET("/", h.ChatPage)
	staticFS, err := fs.Sub(webFS, "web/static")
	if err == nil {
		r.StaticFS("/static", http.FS(staticFS))
	}

	// Chat routes
	r.POST("/chat", h.Chat)
	r.GET("/chat/history", h.ChatHistory)

	// One-shot query routes
	r.GET("/bedrock/query", h.QueryKnowledgeBase)
	r.GET("/bedrock/invoke", h.InvokeModel)

	// Document routes
	r.POST("/documents", h.UploadDocument)
	r.GET("/documents", h.ListDocuments)
	r.GET("/documents/:id/download", h.DownloadDocument)

	// System routes
	r.GET("/health", h.CheckHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery),
		errors.Is(err, assistant.ErrQueryTooLong),
		errors.Is(err, assistant.ErrInvalidQuery):
		code = "INVALID_QUERY"
		status = http.StatusBadRequest
	case errors.Is(err, assistant.ErrThrottled):
		code = "THROTTLED"
		status = http.StatusTooManyRequests
	case errors.Is(err, assistant.ErrTimeout):
		code = "UPSTREAM_TIMEOUT"
		status = http.StatusGatewayTimeout
	case errors.Is(err, assistant.ErrNotConfigured):
		code = "NOT_CONFIGURED"
		status = http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrUpstream):
		code = "UPSTREAM_ERROR"
		status = http.StatusBadGateway
	default:
		if status == 0 || status == http.StatusInternalServerError {
			code = "INTERNAL_ERROR"
			status = http.StatusInternalServerError
		} else {
			code = "BAD_REQUEST"
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
