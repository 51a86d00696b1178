package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/koscakluka/ema-live/core/llms"
	"github.com/openai/openai-go"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   chatRequest
}

type fakeOpenAIServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest

	modelStatus int
	replies     []string
	failPrompt  bool
}

func newFakeOpenAIServer(t *testing.T) *fakeOpenAIServer {
	t.Helper()

	fake := &fakeOpenAIServer{modelStatus: http.StatusOK}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded := recordedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if r.Method == http.MethodPost {
			if err := json.NewDecoder(r.Body).Decode(&recorded.body); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}

		fake.mu.Lock()
		fake.requests = append(fake.requests, recorded)
		failPrompt := fake.failPrompt
		reply := ""
		if len(fake.replies) > 0 && !failPrompt {
			reply = fake.replies[0]
			fake.replies = fake.replies[1:]
		}
		fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/models/"):
			w.WriteHeader(fake.modelStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":       strings.TrimPrefix(r.URL.Path, "/models/"),
				"object":   "model",
				"created":  0,
				"owned_by": "tests",
			})
		case r.URL.Path == "/chat/completions" && failPrompt:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests","code":"rate_limit_exceeded"}}`))
		case r.URL.Path == "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion",
				"created": 0,
				"model":   recorded.body.Model,
				"choices": []any{map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fake.server.Close)
	return fake
}

func (f *fakeOpenAIServer) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newTestModel(fake *fakeOpenAIServer, opts ...ModelOption) *Model {
	return NewModel(append([]ModelOption{
		WithAPIKey("key"),
		WithBaseURL(fake.server.URL),
		WithMaxRetries(0),
	}, opts...)...)
}

func TestAvailabilityClassifiesModelLookup(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		status   int
		expected llms.Availability
		wantErr  bool
	}{
		{name: "found", apiKey: "key", status: http.StatusOK, expected: llms.AvailabilityAvailable},
		{name: "unknown model", apiKey: "key", status: http.StatusNotFound, expected: llms.AvailabilityUnavailable},
		{name: "bad key", apiKey: "key", status: http.StatusUnauthorized, expected: llms.AvailabilityUnavailable},
		{name: "no key", apiKey: "", status: http.StatusOK, expected: llms.AvailabilityUnavailable},
		{name: "server error", apiKey: "key", status: http.StatusBadGateway, expected: llms.AvailabilityUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeOpenAIServer(t)
			fake.modelStatus = tt.status
			model := newTestModel(fake, WithAPIKey(tt.apiKey), WithModel("gpt-test"))

			availability, err := model.Availability(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if availability != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, availability)
			}

			if tt.apiKey == "" {
				if got := len(fake.recorded()); got != 0 {
					t.Fatalf("expected no request without api key, got %d", got)
				}
				return
			}
			requests := fake.recorded()
			if len(requests) != 1 || requests[0].path != "/models/gpt-test" || requests[0].auth != "Bearer key" {
				t.Fatalf("unexpected model lookup: %+v", requests)
			}
		})
	}
}

func TestSessionKeepsHistoryAcrossPrompts(t *testing.T) {
	fake := newFakeOpenAIServer(t)
	fake.replies = []string{"Hi there!", "It is sunny."}
	model := newTestModel(fake, WithBaseURL(fake.server.URL+"/"), WithModel("gpt-test"))

	session, err := model.NewSession(context.Background(), llms.WithInstructions("Be brief."))
	if err != nil {
		t.Fatalf("expected session, got %v", err)
	}

	if reply, err := session.Prompt(context.Background(), "hello"); err != nil || reply != "Hi there!" {
		t.Fatalf("expected first reply, got %q, %v", reply, err)
	}
	if reply, err := session.Prompt(context.Background(), "how is the weather"); err != nil || reply != "It is sunny." {
		t.Fatalf("expected second reply, got %q, %v", reply, err)
	}

	requests := fake.recorded()
	if len(requests) != 2 {
		t.Fatalf("expected two prompt requests, got %d", len(requests))
	}
	second := requests[1]
	if second.path != "/chat/completions" || second.body.Model != "gpt-test" {
		t.Fatalf("unexpected request: %+v", second)
	}

	expected := []chatMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "Hi there!"},
		{Role: "user", Content: "how is the weather"},
	}
	if len(second.body.Messages) != len(expected) {
		t.Fatalf("expected %d messages, got %+v", len(expected), second.body.Messages)
	}
	for i := range expected {
		if second.body.Messages[i] != expected[i] {
			t.Fatalf("message %d: expected %+v, got %+v", i, expected[i], second.body.Messages[i])
		}
	}
}

func TestPromptFailureIsReportedAndNotRemembered(t *testing.T) {
	fake := newFakeOpenAIServer(t)
	fake.failPrompt = true
	model := newTestModel(fake)

	session, _ := model.NewSession(context.Background())
	_, err := session.Prompt(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected the api error to stay reachable, got %v", err)
	}

	fake.mu.Lock()
	fake.failPrompt = false
	fake.replies = []string{"ok"}
	fake.mu.Unlock()

	if _, err := session.Prompt(context.Background(), "again"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	requests := fake.recorded()
	if got := len(requests[len(requests)-1].body.Messages); got != 1 {
		t.Fatalf("expected failed prompt to be left out of history, got %d messages", got)
	}
}

func TestPromptRejectsEmptyResponse(t *testing.T) {
	fake := newFakeOpenAIServer(t)
	fake.replies = []string{"   "}
	model := newTestModel(fake)

	session, _ := model.NewSession(context.Background())
	if _, err := session.Prompt(context.Background(), "hello"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
