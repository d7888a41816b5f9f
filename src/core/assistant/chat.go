package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbchat/src/infrastructure/log"
	"kbchat/src/infrastructure/metrics"
)

const defaultMaxQuestionLen = 2000

type chatService struct {
	generator      Generator
	history        HistoryStore
	cache          AnswerCache
	interactions   InteractionLogger
	systemPrompt   string
	maxQuestionLen int
}

// ChatOption configures the chat service.
type ChatOption func(*chatService)

// WithAnswerCache enables answer caching for repeated questions.
func WithAnswerCache(cache AnswerCache) ChatOption {
	return func(s *chatService) {
		s.cache = cache
	}
}

// WithInteractionLogger enables best-effort analytics logging.
func WithInteractionLogger(l InteractionLogger) ChatOption {
	return func(s *chatService) {
		s.interactions = l
	}
}

// WithMaxQuestionLength overrides the maximum accepted question length.
func WithMaxQuestionLength(n int) ChatOption {
	return func(s *chatService) {
		if n > 0 {
			s.maxQuestionLen = n
		}
	}
}

func NewChatService(generator Generator, history HistoryStore, systemPrompt string, opts ...ChatOption) ChatService {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	s := &chatService{
		generator:      generator,
		history:        history,
		systemPrompt:   systemPrompt,
		maxQuestionLen: defaultMaxQuestionLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *chatService) Ask(ctx context.Context, in AskInput) (*Answer, error) {
	question := strings.TrimSpace(in.Message)
	if question == "" {
		return nil, ErrEmptyQuery
	}
	if len(question) > s.maxQuestionLen {
		return nil, ErrQueryTooLong
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	mode := ModeGeneral
	if in.UseKnowledgeBase {
		mode = ModeKnowledgeBase
	}

	answer, err := s.resolveAnswer(ctx, mode, question)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues(mode, "ok").Inc()

	answer.SessionID = sessionID
	answer.MessageID = uuid.New().String()
	answer.CreatedAt = time.Now().UTC()

	if err := s.saveTurn(ctx, sessionID, question, answer); err != nil {
		return nil, err
	}

	return answer, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	return s.history.ListMessages(ctx, sessionID)
}

// resolveAnswer returns a finalized answer from the cache or the generation
// service. Session and message identifiers are left for the caller to fill.
func (s *chatService) resolveAnswer(ctx context.Context, mode, question string) (*Answer, error) {
	key := cacheKey(mode, question)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Error(err, "answer cache lookup failed", "mode", mode)
		} else if cached != nil {
			metrics.QueryCacheHits.Inc()
			return &Answer{Text: cached.Text, Mode: cached.Mode, Citations: cached.Citations}, nil
		}
	}

	start := time.Now()
	answer := &Answer{Mode: mode}

	switch mode {
	case ModeKnowledgeBase:
		generation, err := s.generator.RetrieveAndGenerate(ctx, question)
		if err != nil {
			return nil, err
		}
		answer.Text = FinalizeAnswer(generation.Text, PDFFilenames(generation.Citations))
		answer.Citations = generation.Citations
	default:
		raw, err := s.generator.Converse(ctx, s.systemPrompt, question)
		if err != nil {
			return nil, err
		}
		answer.Text = FinalizeAnswer(raw, nil)
	}

	s.logInteraction(ctx, question, answer, time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, answer); err != nil {
			log.Error(err, "answer cache store failed", "mode", mode)
		}
	}

	return answer, nil
}

// saveTurn persists the user question and the assistant answer as one exchange.
func (s *chatService) saveTurn(ctx context.Context, sessionID, question string, answer *Answer) error {
	userMsg := &ChatMessage{
		SessionID: sessionID,
		MessageID: uuid.New().String(),
		Role:      "user",
		Content:   question,
		CreatedAt: answer.CreatedAt,
	}
	if err := s.history.SaveMessage(ctx, userMsg); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}

	assistantMsg := &ChatMessage{
		SessionID: sessionID,
		MessageID: answer.MessageID,
		Role:      "assistant",
		Content:   answer.Text,
		CreatedAt: answer.CreatedAt,
	}
	if err := s.history.SaveMessage(ctx, assistantMsg); err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}

	return nil
}

func (s *chatService) logInteraction(ctx context.Context, question string, answer *Answer, elapsed time.Duration) {
	if s.interactions == nil {
		return
	}

	entry := Interaction{
		Question:   question,
		Answer:     answer.Text,
		Mode:       answer.Mode,
		Citations:  answer.Citations,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.interactions.LogInteraction(ctx, entry); err != nil {
		log.Error(err, "failed to log interaction", "mode", answer.Mode)
	}
}

func cacheKey(mode, question string) string {
	sum := sha256.Sum256([]byte(mode + "\n" + question))
	return "answer:" + hex.EncodeToString(sum[:])
}
