package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koscakluka/ema-live/core/llms"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1/"
	defaultModel      = "gpt-4o-mini"
	defaultMaxRetries = 2
)

var _ llms.LanguageModel = (*Model)(nil)

// Model talks to the OpenAI Chat Completions API, or to any server exposing
// a compatible one (see [WithBaseURL]).
type Model struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	httpClient *http.Client

	client openai.Client
}

type ModelOption func(*Model)

// WithAPIKey sets the API key. Defaults to the OPENAI_API_KEY environment
// variable.
func WithAPIKey(apiKey string) ModelOption {
	return func(m *Model) { m.apiKey = apiKey }
}

func WithModel(model string) ModelOption {
	return func(m *Model) { m.model = model }
}

// WithBaseURL points the model at another OpenAI compatible API, e.g.
// https://api.groq.com/openai/v1.
func WithBaseURL(baseURL string) ModelOption {
	return func(m *Model) { m.baseURL = strings.TrimRight(baseURL, "/") + "/" }
}

func WithHTTPClient(client *http.Client) ModelOption {
	return func(m *Model) { m.httpClient = client }
}

// WithMaxRetries sets how often rate limited or failed requests are retried.
func WithMaxRetries(maxRetries int) ModelOption {
	return func(m *Model) { m.maxRetries = maxRetries }
}

func NewModel(opts ...ModelOption) *Model {
	model := &Model{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		maxRetries: defaultMaxRetries,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(model)
	}

	model.client = openai.NewClient(
		option.WithAPIKey(model.apiKey),
		option.WithBaseURL(model.baseURL),
		option.WithHTTPClient(model.httpClient),
		option.WithMaxRetries(model.maxRetries),
	)
	return model
}

// Availability looks the configured model up. Hosted models are never
// downloadable, so the result is either available or unavailable.
func (m *Model) Availability(ctx context.Context) (llms.Availability, error) {
	ctx, span := tracer.Start(ctx, "check llm availability")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", m.model))

	if m.apiKey == "" {
		return llms.AvailabilityUnavailable, nil
	}

	_, err := m.client.Models.Get(ctx, m.model)
	if err == nil {
		return llms.AvailabilityAvailable, nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		span.SetAttributes(attribute.Int("response.status_code", apiErr.StatusCode))
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			logger.Debug("llm model not usable", "model", m.model, "status", apiErr.StatusCode)
			return llms.AvailabilityUnavailable, nil
		}
	}

	err = fmt.Errorf("failed to look up model: %w", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return llms.AvailabilityUnavailable, err
}

// NewSession does not contact the API; the instructions are sent with every
// prompt.
func (m *Model) NewSession(_ context.Context, opts ...llms.SessionOption) (llms.Session, error) {
	options := llms.NewSessionOptions(opts...)
	return &session{model: m, instructions: options.Instructions}, nil
}
