package texttospeech

import (
	"context"

	"github.com/koscakluka/ema-live/core/audio"
)

// Synthesizer turns text into audible speech.
type Synthesizer interface {
	// Speak submits text for playback and returns once it is queued. Text
	// submitted by consecutive calls is spoken in order.
	Speak(ctx context.Context, text string, opts ...SpeakOption) error
	// Cancel aborts the current utterance and drops everything queued.
	Cancel() error
	// Speaking reports whether any submitted speech has not finished playing.
	Speaking() bool
	Voices() []Voice
}

type Voice struct {
	Name     string
	Language string
	Default  bool
}

// DefaultVoice returns the voice flagged as default, falling back to the
// first one.
func DefaultVoice(voices []Voice) (Voice, bool) {
	for _, voice := range voices {
		if voice.Default {
			return voice, true
		}
	}
	if len(voices) > 0 {
		return voices[0], true
	}
	return Voice{}, false
}

// AudioOutput plays synthesized audio.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	// ClearBuffer drops all audio and marks not yet played. Dropped marks are
	// never reported.
	ClearBuffer()
	// Mark calls onPlayed with name once all audio sent before the mark has
	// been played.
	Mark(name string, onPlayed func(name string)) error
}
