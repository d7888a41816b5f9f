package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SyncStatus tracks how far a document has progressed toward being
// searchable in the managed knowledge base.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusReady   SyncStatus = "ready"
	SyncStatusFailed  SyncStatus = "failed"
)

type Document struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	Filename   string     `gorm:"not null" json:"filename"`
	MinioURL   string     `gorm:"not null;column:minio_url" json:"minio_url"` // bucket name + object name
	SyncStatus SyncStatus `gorm:"not null;default:pending" json:"sync_status"`
	SyncError  *string    `json:"sync_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type DocumentService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	// Initialize snowflake node
	node, err := snowflake.NewNode(1) // Node number 1
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &DocumentService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).First(&doc, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %v", result.Error)
	}
	return &doc, nil
}

// List returns a paginated list of documents
func (s *DocumentService) List(ctx context.Context, limit int, offset int) ([]Document, error) {
	var docs []Document

	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %v", result.Error)
	}

	return docs, nil
}

func (s *DocumentService) Create(ctx context.Context, filename, minioURL string) (*Document, error) {
	doc := &Document{
		ID:         s.snowflake.Generate().Int64(),
		Filename:   filename,
		MinioURL:   minioURL,
		SyncStatus: SyncStatusPending,
	}

	result := s.db.WithContext(ctx).Create(doc)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create document: %v", result.Error)
	}

	return doc, nil
}

// UpdateSyncStatus moves a document through the sync lifecycle. A nil
// syncErr clears any previous failure detail.
func (s *DocumentService) UpdateSyncStatus(ctx context.Context, id int64, status SyncStatus, syncErr *string) error {
	result := s.db.WithContext(ctx).Model(&Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sync_status": status,
		"sync_error":  syncErr,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update sync status: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document not found: %d", id)
	}

	return nil
}
