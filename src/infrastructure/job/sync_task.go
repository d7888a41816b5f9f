package job

import (
	"context"
	"fmt"
	"time"

	"kbchat/src/infrastructure/integrations/bedrock"
	"kbchat/src/infrastructure/log"
	"kbchat/src/storage/postgres/documentctrl"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultSyncTimeout  = 30 * time.Minute
)

// IngestionStarter triggers knowledge base ingestion and reports its state.
type IngestionStarter interface {
	StartSync(ctx context.Context) (string, error)
	SyncState(ctx context.Context, jobID string) (bedrock.SyncState, string, error)
}

// DocumentSyncTask makes an uploaded document searchable by running a
// knowledge base ingestion job and tracking it to completion.
type DocumentSyncTask struct {
	documents    *documentctrl.DocumentService
	ingestion    IngestionStarter
	pollInterval time.Duration
	syncTimeout  time.Duration
}

func NewDocumentSyncTask(documents *documentctrl.DocumentService, ingestion IngestionStarter) *DocumentSyncTask {
	return &DocumentSyncTask{
		documents:    documents,
		ingestion:    ingestion,
		pollInterval: defaultPollInterval,
		syncTimeout:  defaultSyncTimeout,
	}
}

func (t *DocumentSyncTask) Run(ctx context.Context, payload DocumentSyncPayload) error {
	doc, err := t.documents.GetByID(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %d", payload.DocumentID)
	}

	if err := t.documents.UpdateSyncStatus(ctx, doc.ID, documentctrl.SyncStatusSyncing, nil); err != nil {
		return err
	}

	ingestionJobID, err := t.ingestion.StartSync(ctx)
	if err != nil {
		return t.fail(ctx, doc.ID, err)
	}

	log.Info("ingestion job started",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"ingestion_job_id", ingestionJobID)

	state, detail, err := t.waitForCompletion(ctx, ingestionJobID)
	if err != nil {
		return t.fail(ctx, doc.ID, err)
	}
	if state == bedrock.SyncStateFailed {
		return t.fail(ctx, doc.ID, fmt.Errorf("ingestion job failed: %s", detail))
	}

	return t.documents.UpdateSyncStatus(ctx, doc.ID, documentctrl.SyncStatusReady, nil)
}

// waitForCompletion polls the ingestion job until it reaches a terminal state.
func (t *DocumentSyncTask) waitForCompletion(ctx context.Context, ingestionJobID string) (bedrock.SyncState, string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.syncTimeout)
	defer cancel()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		state, detail, err := t.ingestion.SyncState(ctx, ingestionJobID)
		if err != nil {
			return "", "", err
		}
		if state != bedrock.SyncStateInProgress {
			return state, detail, nil
		}

		select {
		case <-ctx.Done():
			return "", "", fmt.Errorf("timed out waiting for ingestion job %s: %w", ingestionJobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// fail records the failure on the document and returns the original error so
// the job itself is marked failed as well.
func (t *DocumentSyncTask) fail(ctx context.Context, documentID int64, cause error) error {
	detail := cause.Error()
	if err := t.documents.UpdateSyncStatus(ctx, documentID, documentctrl.SyncStatusFailed, &detail); err != nil {
		log.Error(err, "failed to record sync failure", "document_id", documentID)
	}
	return cause
}
