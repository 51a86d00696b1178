package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrEmptyResponse = errors.New("llm returned no text")

type session struct {
	model        *Model
	instructions string

	mu      sync.Mutex
	history []exchange
}

func (s *session) Prompt(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	s.mu.Lock()
	messages := toChatMessages(s.instructions, s.history, prompt)
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("request.model", s.model.model),
		attribute.Int("request.messages", len(messages)),
	)

	response, err := s.model.complete(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history, exchange{prompt: prompt, response: response})
	s.mu.Unlock()

	return response, nil
}

func (m *Model) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    m.model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return "", fmt.Errorf("chat completion failed with status %d: %s: %w", apiErr.StatusCode, apiErr.Message, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return completionText(completion)
}

// completionText returns the text of the first choice. A refusal counts as
// text so the user hears it.
func completionText(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	message := completion.Choices[0].Message
	text := strings.TrimSpace(message.Content)
	if text == "" {
		text = strings.TrimSpace(message.Refusal)
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
