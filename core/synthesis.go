package orchestration

import (
	"context"

	"github.com/koscakluka/ema-live/core/texttospeech"
)

const logTextLimit = 40

// speak submits text with the configured voice. Voices are looked up on every
// call since engines may load them lazily.
func (a *Agent) speak(ctx context.Context, text string) error {
	a.logger.Info("tts speak", "text", truncate(text, logTextLimit))

	var opts []texttospeech.SpeakOption
	if voice, ok := a.resolveVoice(); ok {
		opts = append(opts, texttospeech.WithVoice(voice.Name))
	}
	return a.synthesizer.Speak(ctx, text, opts...)
}

func (a *Agent) resolveVoice() (texttospeech.Voice, bool) {
	if a.voice == "" {
		return texttospeech.Voice{}, false
	}

	for _, voice := range a.synthesizer.Voices() {
		if voice.Name == a.voice {
			a.logger.Info("tts voice", "name", voice.Name, "language", voice.Language)
			return voice, true
		}
	}

	a.logger.Warn(`voice "` + a.voice + `" not found. using default voice.`)
	return texttospeech.Voice{}, false
}

func (a *Agent) interrupt() {
	a.logger.Info("interruption detected")
	a.cancelSpeech()
}

func (a *Agent) cancelSpeech() {
	if err := a.synthesizer.Cancel(); err != nil {
		a.logger.Warn("failed to cancel speech", "error", err)
	}
}

func (a *Agent) synthesisActive() bool {
	return a.synthesizer != nil && a.synthesizer.Speaking()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
