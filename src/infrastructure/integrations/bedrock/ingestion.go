package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/google/uuid"
)

// SyncState is the terminal-aware state of a knowledge base ingestion job.
type SyncState string

const (
	SyncStateInProgress SyncState = "in_progress"
	SyncStateComplete   SyncState = "complete"
	SyncStateFailed     SyncState = "failed"
)

// agentAPI is the subset of the bedrock-agent client used for ingestion.
type agentAPI interface {
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
	GetIngestionJob(ctx context.Context, params *bedrockagent.GetIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetIngestionJobOutput, error)
	GetKnowledgeBase(ctx context.Context, params *bedrockagent.GetKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetKnowledgeBaseOutput, error)
}

// IngestionClient triggers and tracks knowledge base ingestion jobs so newly
// uploaded documents become searchable.
type IngestionClient struct {
	agent           agentAPI
	knowledgeBaseID string
	dataSourceID    string
}

func NewIngestionClient(agent agentAPI, knowledgeBaseID, dataSourceID string) *IngestionClient {
	return &IngestionClient{
		agent:           agent,
		knowledgeBaseID: knowledgeBaseID,
		dataSourceID:    dataSourceID,
	}
}

// Ping verifies the configured knowledge base is reachable with the current
// credentials.
func (c *IngestionClient) Ping(ctx context.Context) error {
	if c.knowledgeBaseID == "" {
		return fmt.Errorf("knowledge base is not configured")
	}

	if _, err := c.agent.GetKnowledgeBase(ctx, &bedrockagent.GetKnowledgeBaseInput{
		KnowledgeBaseId: aws.String(c.knowledgeBaseID),
	}); err != nil {
		return fmt.Errorf("bedrock ping failed: %w", translateError(err))
	}

	return nil
}

// StartSync starts an ingestion job and returns its identifier.
func (c *IngestionClient) StartSync(ctx context.Context) (string, error) {
	if c.knowledgeBaseID == "" || c.dataSourceID == "" {
		return "", fmt.Errorf("ingestion is not configured: knowledge base and data source are required")
	}

	out, err := c.agent.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(c.knowledgeBaseID),
		DataSourceId:    aws.String(c.dataSourceID),
		ClientToken:     aws.String(uuid.New().String()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start ingestion job: %w", translateError(err))
	}
	if out.IngestionJob == nil || aws.ToString(out.IngestionJob.IngestionJobId) == "" {
		return "", fmt.Errorf("ingestion job started without an identifier")
	}

	return aws.ToString(out.IngestionJob.IngestionJobId), nil
}

// SyncState reports the current state of an ingestion job. The returned
// detail carries the failure reasons when the job failed.
func (c *IngestionClient) SyncState(ctx context.Context, jobID string) (SyncState, string, error) {
	out, err := c.agent.GetIngestionJob(ctx, &bedrockagent.GetIngestionJobInput{
		KnowledgeBaseId: aws.String(c.knowledgeBaseID),
		DataSourceId:    aws.String(c.dataSourceID),
		IngestionJobId:  aws.String(jobID),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to get ingestion job: %w", translateError(err))
	}
	if out.IngestionJob == nil {
		return "", "", fmt.Errorf("ingestion job not found: %s", jobID)
	}

	switch out.IngestionJob.Status {
	case agenttypes.IngestionJobStatusComplete:
		return SyncStateComplete, "", nil
	case agenttypes.IngestionJobStatusFailed:
		var detail string
		for _, reason := range out.IngestionJob.FailureReasons {
			if detail != "" {
				detail += "; "
			}
			detail += reason
		}
		return SyncStateFailed, detail, nil
	default:
		return SyncStateInProgress, "", nil
	}
}
