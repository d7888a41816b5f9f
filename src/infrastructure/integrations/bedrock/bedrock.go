package bedrock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agenttypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"kbchat/src/core/assistant"
	"kbchat/src/infrastructure/metrics"
)

// Metadata keys Bedrock attaches to retrieved references.
const (
	metadataTitleKey    = "x-amz-bedrock-kb-document-title"
	metadataAltTitleKey = "x-amzn-bedrock-kb-doc-title"
	metadataPageKey     = "x-amz-bedrock-kb-document-page-number"
)

// Inference settings for direct model invocation.
const (
	converseMaxTokens   = int32(512)
	converseTemperature = float32(0.5)
)

// Config identifies the model and knowledge base to query. A non-zero
// Timeout bounds each upstream call in addition to the request context.
type Config struct {
	ModelID         string
	ModelARN        string
	KnowledgeBaseID string
	Timeout         time.Duration
}

// runtimeAPI is the subset of the bedrock-runtime client used here.
type runtimeAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// agentRuntimeAPI is the subset of the bedrock-agent-runtime client used here.
type agentRuntimeAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// Client implements assistant.Generator on top of AWS Bedrock.
type Client struct {
	runtime      runtimeAPI
	agentRuntime agentRuntimeAPI
	cfg          Config
}

func NewClient(runtime runtimeAPI, agentRuntime agentRuntimeAPI, cfg Config) *Client {
	return &Client{
		runtime:      runtime,
		agentRuntime: agentRuntime,
		cfg:          cfg,
	}
}

// RetrieveAndGenerate answers the query grounded in the configured knowledge base.
func (c *Client) RetrieveAndGenerate(ctx context.Context, query string) (*assistant.Generation, error) {
	if c.cfg.KnowledgeBaseID == "" || c.cfg.ModelARN == "" {
		return nil, assistant.ErrNotConfigured
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := c.agentRuntime.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &agenttypes.RetrieveAndGenerateInput{
			Text: aws.String(query),
		},
		RetrieveAndGenerateConfiguration: &agenttypes.RetrieveAndGenerateConfiguration{
			Type: agenttypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &agenttypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(c.cfg.KnowledgeBaseID),
				ModelArn:        aws.String(c.cfg.ModelARN),
			},
		},
	})
	metrics.UpstreamDuration.WithLabelValues("retrieve_and_generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, translateError(err)
	}

	if out.Output == nil || aws.ToString(out.Output.Text) == "" {
		return nil, fmt.Errorf("%w: model returned no content", assistant.ErrUpstream)
	}

	return &assistant.Generation{
		Text:      aws.ToString(out.Output.Text),
		Citations: mapCitations(out.Citations),
	}, nil
}

// Converse invokes the model directly with a system prompt and a single user message.
func (c *Client) Converse(ctx context.Context, system, prompt string) (string, error) {
	if c.cfg.ModelID == "" {
		return "", assistant.ErrNotConfigured
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.cfg.ModelID),
		System: []runtimetypes.SystemContentBlock{
			&runtimetypes.SystemContentBlockMemberText{Value: system},
		},
		Messages: []runtimetypes.Message{
			{
				Role: runtimetypes.ConversationRoleUser,
				Content: []runtimetypes.ContentBlock{
					&runtimetypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &runtimetypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(converseMaxTokens),
			Temperature: aws.Float32(converseTemperature),
		},
	})
	metrics.UpstreamDuration.WithLabelValues("converse").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", translateError(err)
	}

	text := converseText(out)
	if text == "" {
		return "", fmt.Errorf("%w: model returned no content", assistant.ErrUpstream)
	}

	return text, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// converseText concatenates the text blocks of a Converse response.
func converseText(out *bedrockruntime.ConverseOutput) string {
	msg, ok := out.Output.(*runtimetypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}

	var text string
	for _, block := range msg.Value.Content {
		if t, ok := block.(*runtimetypes.ContentBlockMemberText); ok {
			text += t.Value
		}
	}
	return text
}

// mapCitations flattens the retrieved references of every citation into the
// orchestrator's citation shape.
func mapCitations(citations []agenttypes.Citation) []assistant.Citation {
	var result []assistant.Citation

	for _, citation := range citations {
		for _, ref := range citation.RetrievedReferences {
			c := assistant.Citation{
				SourceURI: referenceURI(ref.Location),
				Title:     metadataString(ref.Metadata, metadataTitleKey, metadataAltTitleKey),
			}
			c.DocumentID = assistant.DocumentNameFromURI(c.SourceURI)
			if c.DocumentID == "" {
				c.DocumentID = c.Title
			}
			if ref.Content != nil {
				c.Excerpt = aws.ToString(ref.Content.Text)
			}
			if page, ok := metadataNumber(ref.Metadata, metadataPageKey); ok {
				c.Page = int(page)
			}
			if c.DocumentID == "" && c.Excerpt == "" {
				continue
			}
			result = append(result, c)
		}
	}

	return result
}

func referenceURI(loc *agenttypes.RetrievalResultLocation) string {
	if loc == nil {
		return ""
	}
	if loc.S3Location != nil && aws.ToString(loc.S3Location.Uri) != "" {
		return aws.ToString(loc.S3Location.Uri)
	}
	if loc.WebLocation != nil {
		return aws.ToString(loc.WebLocation.Url)
	}
	return ""
}

// translateError maps AWS failures onto the orchestrator error taxonomy.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", assistant.ErrTimeout, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException":
			return fmt.Errorf("%w: %s", assistant.ErrThrottled, err)
		case "ValidationException":
			return fmt.Errorf("%w: %s", assistant.ErrInvalidQuery, err)
		case "ResourceNotFoundException":
			return fmt.Errorf("%w: %s", assistant.ErrNotConfigured, err)
		}
	}

	return fmt.Errorf("%w: %s", assistant.ErrUpstream, err)
}
