package assistant

import (
	"context"
	"strings"
)

// queryService serves the stateless one-shot endpoints. No history is kept
// and no cache is consulted.
type queryService struct {
	generator    Generator
	systemPrompt string
}

func NewQueryService(generator Generator, systemPrompt string) QueryService {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &queryService{
		generator:    generator,
		systemPrompt: systemPrompt,
	}
}

func (s *queryService) QueryKnowledgeBase(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyQuery
	}

	generation, err := s.generator.RetrieveAndGenerate(ctx, text)
	if err != nil {
		return "", err
	}

	return FinalizeAnswer(generation.Text, PDFFilenames(generation.Citations)), nil
}

func (s *queryService) InvokeModel(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyQuery
	}

	raw, err := s.generator.Converse(ctx, s.systemPrompt, text)
	if err != nil {
		return "", err
	}

	return FinalizeAnswer(raw, nil), nil
}
