package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/llms/ollama"
	"github.com/koscakluka/ema-live/core/llms/openai"
	"github.com/spf13/viper"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama-3.3-70b-versatile"
)

func newLanguageModel() (llms.LanguageModel, error) {
	model := viper.GetString("model")

	switch provider := strings.ToLower(viper.GetString("llm")); provider {
	case "openai":
		var opts []openai.ModelOption
		if apiKey := viper.GetString("openai_api_key"); apiKey != "" {
			opts = append(opts, openai.WithAPIKey(apiKey))
		}
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		return openai.NewModel(opts...), nil

	case "groq":
		apiKey := viper.GetString("groq_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("GROQ_API_KEY")
		}
		if model == "" {
			model = groqDefaultModel
		}
		return openai.NewModel(
			openai.WithBaseURL(groqBaseURL),
			openai.WithAPIKey(apiKey),
			openai.WithModel(model),
		), nil

	case "ollama":
		var opts []ollama.ModelOption
		if host := viper.GetString("ollama_host"); host != "" {
			opts = append(opts, ollama.WithHost(host))
		}
		if model != "" {
			opts = append(opts, ollama.WithModel(model))
		}
		return ollama.NewModel(opts...), nil

	default:
		return nil, fmt.Errorf("unknown language model provider %q", provider)
	}
}

// deepgramAPIKey returns the configured key, falling back to the variable the
// Deepgram engines read themselves.
func deepgramAPIKey() string {
	if apiKey := viper.GetString("deepgram_api_key"); apiKey != "" {
		return apiKey
	}
	return os.Getenv("DEEPGRAM_API_KEY")
}

func newLogger(w *os.File) (*slog.Logger, error) {
	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return slog.New(handler), nil
}
