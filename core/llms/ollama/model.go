package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/llms/openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultHost  = "http://127.0.0.1:11434"
	defaultModel = "llama3.2:3b"
)

var _ llms.LanguageModel = (*Model)(nil)

// Model runs prompts against a local Ollama server. Models the server does
// not have yet are reported as downloadable and pulled when a session is
// created. Prompts go through the server's OpenAI compatible API; only model
// management uses the native one.
type Model struct {
	host   string
	model  string
	client *http.Client
	chat   *openai.Model

	mu      sync.Mutex
	pulling bool
}

type ModelOption func(*Model)

// WithHost sets the server address. Defaults to the OLLAMA_HOST environment
// variable, then to the local default port.
func WithHost(host string) ModelOption {
	return func(m *Model) { m.host = normalizeHost(host) }
}

func WithModel(model string) ModelOption {
	return func(m *Model) { m.model = model }
}

func WithHTTPClient(client *http.Client) ModelOption {
	return func(m *Model) { m.client = client }
}

func NewModel(opts ...ModelOption) *Model {
	model := &Model{
		host:   normalizeHost(os.Getenv("OLLAMA_HOST")),
		model:  defaultModel,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(model)
	}

	model.chat = openai.NewModel(
		openai.WithBaseURL(model.host+"/v1"),
		// Ollama ignores the key but the client insists on one.
		openai.WithAPIKey("ollama"),
		openai.WithModel(model.model),
		openai.WithHTTPClient(model.client),
	)
	return model
}

func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return defaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

// Availability reports unavailable when the server cannot be reached.
func (m *Model) Availability(ctx context.Context) (llms.Availability, error) {
	ctx, span := tracer.Start(ctx, "check llm availability")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", m.model))

	m.mu.Lock()
	pulling := m.pulling
	m.mu.Unlock()
	if pulling {
		return llms.AvailabilityDownloading, nil
	}

	installed, err := m.installed(ctx)
	if errors.Is(err, errServerUnreachable) {
		logger.Debug("ollama server unreachable", "host", m.host, "error", err)
		return llms.AvailabilityUnavailable, nil
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llms.AvailabilityUnavailable, err
	}

	if installed {
		return llms.AvailabilityAvailable, nil
	}
	return llms.AvailabilityDownloadable, nil
}

// NewSession pulls the model first if the server does not have it, which
// blocks until the download completes.
func (m *Model) NewSession(ctx context.Context, opts ...llms.SessionOption) (llms.Session, error) {
	ctx, span := tracer.Start(ctx, "create llm session")
	defer span.End()

	installed, err := m.installed(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !installed {
		if err := m.pull(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	return m.chat.NewSession(ctx, opts...)
}

var errServerUnreachable = errors.New("ollama server unreachable")

func (m *Model) installed(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("error creating HTTP request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errServerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ollama http %d on /api/tags", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("error unmarshalling response body: %w", err)
	}

	for _, installed := range tags.Models {
		if sameModel(installed.Name, m.model) || sameModel(installed.Model, m.model) {
			return true, nil
		}
	}
	return false, nil
}

// sameModel treats an untagged name as the latest tag, like Ollama does.
func sameModel(installed, wanted string) bool {
	if installed == "" {
		return false
	}
	if !strings.Contains(wanted, ":") {
		wanted += ":latest"
	}
	if !strings.Contains(installed, ":") {
		installed += ":latest"
	}
	return installed == wanted
}

func (m *Model) pull(ctx context.Context) error {
	m.mu.Lock()
	m.pulling = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.pulling = false
		m.mu.Unlock()
	}()

	logger.Info("pulling ollama model", "model", m.model)
	requestBodyBytes, err := json.Marshal(pullRequest{Model: m.model, Stream: false})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed on /api/pull: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if err := checkResponse(resp.StatusCode, payload); err != nil {
		return fmt.Errorf("failed to pull %s: %w", m.model, err)
	}

	var pulled pullResponse
	if err := json.Unmarshal(payload, &pulled); err == nil && pulled.Status != "" && pulled.Status != "success" {
		return fmt.Errorf("failed to pull %s: %s", m.model, pulled.Status)
	}
	return nil
}

func checkResponse(statusCode int, payload []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil && parsed.Error != "" {
		return fmt.Errorf("ollama http %d: %s", statusCode, parsed.Error)
	}
	return fmt.Errorf("ollama http %d", statusCode)
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
}
