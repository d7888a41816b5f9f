package assistant

import (
	"context"
	"errors"
	"time"
)

// Answer modes returned to the chat UI.
const (
	ModeKnowledgeBase = "knowledge_base"
	ModeGeneral       = "general"
)

// DefaultSystemPrompt steers answer formatting for the medical knowledge assistant.
const DefaultSystemPrompt = "You are a medical knowledge assistant.\n" +
	"Format answers as follows:\n" +
	"- When needing to list out the retrieved contents, use bullet points, one sentence per line.\n" +
	"- Each point must be concise and on its own line.\n" +
	"- Always cite the source with document name."

var (
	ErrEmptyQuery    = errors.New("query must not be empty")
	ErrQueryTooLong  = errors.New("query exceeds the maximum length")
	ErrNotConfigured = errors.New("knowledge base is not configured")
	ErrThrottled     = errors.New("generation service is throttling requests")
	ErrTimeout       = errors.New("generation service timed out")
	ErrInvalidQuery  = errors.New("generation service rejected the query")
	ErrUpstream      = errors.New("generation service request failed")
)

// Citation points at the source document location supporting part of an answer.
type Citation struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title,omitempty"`
	SourceURI  string  `json:"sourceUri,omitempty"`
	Page       int     `json:"page,omitempty"`
	Excerpt    string  `json:"excerpt,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// Generation is the raw result returned by the managed generation service.
type Generation struct {
	Text      string
	Citations []Citation
}

// Answer is a finalized response ready for the chat UI.
type Answer struct {
	SessionID string     `json:"sessionId"`
	MessageID string     `json:"messageId"`
	Text      string     `json:"response"`
	Mode      string     `json:"type"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ChatMessage is a single turn of a chat session.
type ChatMessage struct {
	SessionID string    `json:"sessionId"`
	MessageID string    `json:"messageId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Interaction is an analytics record of one question/answer exchange.
type Interaction struct {
	SessionID  string     `json:"session_id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Mode       string     `json:"mode"`
	Citations  []Citation `json:"citations,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Generator defines operations against the managed retrieval/generation service.
type Generator interface {
	// RetrieveAndGenerate answers a query grounded in the knowledge base
	RetrieveAndGenerate(ctx context.Context, query string) (*Generation, error)
	// Converse answers a query with the model directly under a system prompt
	Converse(ctx context.Context, system, prompt string) (string, error)
}

// HistoryStore persists chat transcripts per session.
type HistoryStore interface {
	SaveMessage(ctx context.Context, msg *ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]ChatMessage, error)
}

// AnswerCache stores finalized answers for repeated questions.
// Get returns (nil, nil) on a cache miss.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*Answer, error)
	Set(ctx context.Context, key string, answer *Answer) error
}

// InteractionLogger records exchanges for offline inspection. Failures are
// never surfaced to the caller.
type InteractionLogger interface {
	LogInteraction(ctx context.Context, entry Interaction) error
}

// ChatService handles conversational exchanges with history.
type ChatService interface {
	Ask(ctx context.Context, in AskInput) (*Answer, error)
	History(ctx context.Context, sessionID string) ([]ChatMessage, error)
}

// QueryService exposes the one-shot query endpoints without session state.
type QueryService interface {
	QueryKnowledgeBase(ctx context.Context, text string) (string, error)
	InvokeModel(ctx context.Context, text string) (string, error)
}

// SystemService reports component health.
type SystemService interface {
	CheckHealth(ctx context.Context) *HealthStatus
}

// AskInput carries one user turn into the orchestrator.
type AskInput struct {
	SessionID        string
	Message          string
	UseKnowledgeBase bool
}
