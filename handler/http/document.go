package http

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kbchat/src/infrastructure/log"
	"kbchat/src/infrastructure/metrics"
)

// UploadDocument stores a source PDF in the document store, records it and
// schedules a knowledge base sync.
func (h *Handler) UploadDocument(c *gin.Context) {
	// Get file from request
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("no file uploaded"))
		return
	}
	defer file.Close()

	// Validate file type
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		sendError(c, http.StatusBadRequest, fmt.Errorf("only PDF files are allowed"))
		return
	}

	// Generate unique object name
	objectName := fmt.Sprintf("%s.pdf", uuid.New().String())

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file"))
		return
	}

	if err := h.minioService.PutPDF(c.Request.Context(), h.pdfBucket, objectName, fileBytes); err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to store file"))
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), header.Filename, fmt.Sprintf("%s/%s", h.pdfBucket, objectName))
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to record document"))
		return
	}
	metrics.DocumentsUploaded.Inc()

	if h.syncEnqueuer != nil {
		if _, err := h.syncEnqueuer.EnqueueDocumentSync(c.Request.Context(), doc.ID); err != nil {
			// The document is stored; sync can be retried out of band.
			log.Error(err, "failed to enqueue document sync", "document_id", doc.ID)
		}
	}

	sendJSON(c, http.StatusCreated, gin.H{
		"id":          doc.ID,
		"filename":    doc.Filename,
		"sync_status": doc.SyncStatus,
	})
}

// ListDocuments returns a paginated list of uploaded documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	limit := 10
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		if _, err := fmt.Sscanf(limitParam, "%d", &limit); err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid limit parameter"))
			return
		}
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		if _, err := fmt.Sscanf(offsetParam, "%d", &offset); err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("invalid offset parameter"))
			return
		}
	}

	docs, err := h.documentService.List(c.Request.Context(), limit, offset)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to list documents"))
		return
	}

	sendJSON(c, http.StatusOK, gin.H{
		"documents": docs,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// DownloadDocument redirects to a presigned URL for the stored PDF so cited
// sources can be opened from the chat page.
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid document id"))
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to get document"))
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("document not found: %d", id),
		})
		return
	}

	bucket, object := h.minioService.GetBucketAndObjectFromURL(doc.MinioURL)
	if bucket == "" {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("invalid document location"))
		return
	}

	url, err := h.minioService.PresignedGetURL(c.Request.Context(), bucket, object, doc.Filename, h.downloadExpiry)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to presign document"))
		return
	}

	c.Redirect(http.StatusFound, url)
}
