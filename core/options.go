package orchestration

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/speechtotext"
	"github.com/koscakluka/ema-live/core/texttospeech"
)

const (
	DefaultInstructions = "You are a helpful and friendly voice assistant. " +
		"Reply with short answers without formatting and provide helpful information.  " +
		"Don't reply with content that is not related to the question and ask for clarifications if the question is not clear."
	DefaultSilenceThreshold     = 1000 * time.Millisecond
	DefaultSpeakingPollInterval = 500 * time.Millisecond
	DefaultLanguage             = "en-US"
)

type AgentOption func(*Agent)

func WithRecognizer(recognizer speechtotext.Recognizer) AgentOption {
	return func(a *Agent) {
		a.recognition.recognizer = recognizer
	}
}

// WithSynthesizer sets the engine replies are spoken with. Without one the
// agent only emits text and never reports speaking.
func WithSynthesizer(synthesizer texttospeech.Synthesizer) AgentOption {
	return func(a *Agent) {
		a.synthesizer = synthesizer
	}
}

func WithLanguageModel(languageModel llms.LanguageModel) AgentOption {
	return func(a *Agent) {
		a.languageModel = languageModel
	}
}

// WithInstructions replaces the system instructions the session is created
// with. Empty instructions keep the default.
func WithInstructions(instructions string) AgentOption {
	return func(a *Agent) {
		if instructions != "" {
			a.instructions = instructions
		}
	}
}

// WithSilenceThreshold sets how long the user has to stay silent after a
// final fragment before the turn is dispatched.
func WithSilenceThreshold(threshold time.Duration) AgentOption {
	return func(a *Agent) {
		if threshold > 0 {
			a.turnTimer.threshold = threshold
		}
	}
}

// WithVoice selects a synthesizer voice by name. A name the synthesizer does
// not know falls back to its default voice.
func WithVoice(voice string) AgentOption {
	return func(a *Agent) {
		a.voice = voice
	}
}

func WithLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithSpeakingPollInterval(interval time.Duration) AgentOption {
	return func(a *Agent) {
		if interval > 0 {
			a.speakingMonitor.interval = interval
		}
	}
}

// WithLanguage sets the BCP 47 tag recognition runs with.
func WithLanguage(language string) AgentOption {
	return func(a *Agent) {
		if language != "" {
			a.recognition.language = language
		}
	}
}

// WithRecognitionEncoding describes the audio fed to the recognizer. The
// recognizer's default is used when it is not set.
func WithRecognitionEncoding(encodingInfo audio.EncodingInfo) AgentOption {
	return func(a *Agent) {
		a.recognition.encodingInfo = encodingInfo
	}
}

// WithInterimInterruptions makes interim results cancel active speech too.
// Interim text is still never accumulated or emitted.
func WithInterimInterruptions(enabled bool) AgentOption {
	return func(a *Agent) {
		a.interimInterruptions = enabled
	}
}
