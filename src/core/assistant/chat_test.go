package assistant_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"kbchat/src/core/assistant"
)

type fakeGenerator struct {
	generation    *assistant.Generation
	converseText  string
	err           error
	retrieveCalls int
	converseCalls int
	lastSystem    string
}

func (g *fakeGenerator) RetrieveAndGenerate(ctx context.Context, query string) (*assistant.Generation, error) {
	g.retrieveCalls++
	if g.err != nil {
		return nil, g.err
	}
	return g.generation, nil
}

func (g *fakeGenerator) Converse(ctx context.Context, system, prompt string) (string, error) {
	g.converseCalls++
	g.lastSystem = system
	if g.err != nil {
		return "", g.err
	}
	return g.converseText, nil
}

type fakeHistory struct {
	messages []assistant.ChatMessage
	saveErr  error
}

func (h *fakeHistory) SaveMessage(ctx context.Context, msg *assistant.ChatMessage) error {
	if h.saveErr != nil {
		return h.saveErr
	}
	h.messages = append(h.messages, *msg)
	return nil
}

func (h *fakeHistory) ListMessages(ctx context.Context, sessionID string) ([]assistant.ChatMessage, error) {
	var result []assistant.ChatMessage
	for _, msg := range h.messages {
		if msg.SessionID == sessionID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type fakeCache struct {
	entries map[string]*assistant.Answer
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*assistant.Answer)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (*assistant.Answer, error) {
	return c.entries[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, answer *assistant.Answer) error {
	c.entries[key] = answer
	return nil
}

func TestAskValidation(t *testing.T) {
	generator := &fakeGenerator{converseText: "hello"}
	history := &fakeHistory{}
	svc := assistant.NewChatService(generator, history, "", assistant.WithMaxQuestionLength(10))

	tests := []struct {
		name    string
		message string
		wantErr error
	}{
		{
			name:    "empty message",
			message: "",
			wantErr: assistant.ErrEmptyQuery,
		},
		{
			name:    "whitespace only",
			message: "   \n\t",
			wantErr: assistant.ErrEmptyQuery,
		},
		{
			name:    "too long",
			message: strings.Repeat("a", 11),
			wantErr: assistant.ErrQueryTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ask(context.Background(), assistant.AskInput{Message: tt.message})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Ask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if generator.retrieveCalls != 0 || generator.converseCalls != 0 {
		t.Errorf("generator called %d/%d times for invalid input, want 0/0",
			generator.retrieveCalls, generator.converseCalls)
	}
	if len(history.messages) != 0 {
		t.Errorf("history has %d messages after invalid input, want 0", len(history.messages))
	}
}

func TestAskKnowledgeBaseMode(t *testing.T) {
	generator := &fakeGenerator{
		generation: &assistant.Generation{
			Text: "Take with food.",
			Citations: []assistant.Citation{
				{DocumentID: "guide.pdf", SourceURI: "s3://kb/docs/guide.pdf"},
			},
		},
	}
	history := &fakeHistory{}
	svc := assistant.NewChatService(generator, history, "")

	answer, err := svc.Ask(context.Background(), assistant.AskInput{
		Message:          "How should I take it?",
		UseKnowledgeBase: true,
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Mode != assistant.ModeKnowledgeBase {
		t.Errorf("Mode = %q, want %q", answer.Mode, assistant.ModeKnowledgeBase)
	}
	if answer.SessionID == "" {
		t.Error("SessionID is empty, want a generated session id")
	}
	if answer.MessageID == "" {
		t.Error("MessageID is empty")
	}
	if !strings.Contains(answer.Text, "Sources: guide.pdf") {
		t.Errorf("Text = %q, want it to cite guide.pdf", answer.Text)
	}
	if !strings.HasSuffix(answer.Text, "\n") {
		t.Errorf("Text = %q, want trailing newline", answer.Text)
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("len(Citations) = %d, want 1", len(answer.Citations))
	}
	if generator.retrieveCalls != 1 || generator.converseCalls != 0 {
		t.Errorf("generator calls = %d/%d, want 1 retrieve and 0 converse",
			generator.retrieveCalls, generator.converseCalls)
	}
}

func TestAskGeneralModeUsesSystemPrompt(t *testing.T) {
	generator := &fakeGenerator{converseText: "General answer."}
	history := &fakeHistory{}
	svc := assistant.NewChatService(generator, history, "")

	answer, err := svc.Ask(context.Background(), assistant.AskInput{Message: "Hi there"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.Mode != assistant.ModeGeneral {
		t.Errorf("Mode = %q, want %q", answer.Mode, assistant.ModeGeneral)
	}
	if generator.lastSystem != assistant.DefaultSystemPrompt {
		t.Errorf("system prompt = %q, want the default prompt", generator.lastSystem)
	}
	if answer.Text != "General answer.\n" {
		t.Errorf("Text = %q, want %q", answer.Text, "General answer.\n")
	}
}

func TestAskSavesBothTurns(t *testing.T) {
	generator := &fakeGenerator{converseText: "Answer."}
	history := &fakeHistory{}
	svc := assistant.NewChatService(generator, history, "")

	answer, err := svc.Ask(context.Background(), assistant.AskInput{
		SessionID: "session-1",
		Message:   "Question?",
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.SessionID != "session-1" {
		t.Errorf("SessionID = %q, want session-1", answer.SessionID)
	}

	msgs, err := svc.History(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "Question?" {
		t.Errorf("first message = %+v, want the user question", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != answer.Text {
		t.Errorf("second message = %+v, want the assistant answer", msgs[1])
	}
}

func TestAskCacheHitSkipsGenerator(t *testing.T) {
	generator := &fakeGenerator{converseText: "Cached answer."}
	history := &fakeHistory{}
	cache := newFakeCache()
	svc := assistant.NewChatService(generator, history, "", assistant.WithAnswerCache(cache))

	if _, err := svc.Ask(context.Background(), assistant.AskInput{Message: "Same question"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	second, err := svc.Ask(context.Background(), assistant.AskInput{Message: "Same question"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if generator.converseCalls != 1 {
		t.Errorf("converse calls = %d, want 1 after cache hit", generator.converseCalls)
	}
	if second.Text != "Cached answer.\n" {
		t.Errorf("Text = %q, want the cached answer", second.Text)
	}
	// Both exchanges are persisted even when the answer came from the cache.
	if len(history.messages) != 4 {
		t.Errorf("len(history) = %d, want 4", len(history.messages))
	}
}

func TestAskGeneratorErrorPassthrough(t *testing.T) {
	wrapped := fmt.Errorf("%w: boom", assistant.ErrUpstream)
	generator := &fakeGenerator{err: wrapped}
	history := &fakeHistory{}
	svc := assistant.NewChatService(generator, history, "")

	_, err := svc.Ask(context.Background(), assistant.AskInput{Message: "Question?"})
	if !errors.Is(err, assistant.ErrUpstream) {
		t.Errorf("Ask() error = %v, want ErrUpstream", err)
	}
	if len(history.messages) != 0 {
		t.Errorf("len(history) = %d after failure, want 0", len(history.messages))
	}
}
