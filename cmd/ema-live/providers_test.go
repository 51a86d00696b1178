package main

import (
	"testing"

	"github.com/koscakluka/ema-live/core/llms/ollama"
	"github.com/koscakluka/ema-live/core/llms/openai"
	"github.com/spf13/viper"
)

func TestNewLanguageModelSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, model any)
		wantErr  bool
	}{
		{provider: "openai", check: func(t *testing.T, model any) {
			if _, ok := model.(*openai.Model); !ok {
				t.Fatalf("expected openai model, got %T", model)
			}
		}},
		{provider: "groq", check: func(t *testing.T, model any) {
			if _, ok := model.(*openai.Model); !ok {
				t.Fatalf("expected openai compatible model, got %T", model)
			}
		}},
		{provider: "Ollama", check: func(t *testing.T, model any) {
			if _, ok := model.(*ollama.Model); !ok {
				t.Fatalf("expected ollama model, got %T", model)
			}
		}},
		{provider: "llamafile", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("llm", tt.provider)

			model, err := newLanguageModel()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error for provider %q", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, model)
		})
	}
}
