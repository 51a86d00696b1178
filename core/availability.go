package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/speechtotext"
	"github.com/koscakluka/ema-live/core/texttospeech"
)

const warmUpInstructions = "You are a helpful and friendly voice assistant."

// Capabilities are the engines an agent needs. A nil field means the
// capability is absent.
type Capabilities struct {
	Recognizer    speechtotext.Recognizer
	Synthesizer   texttospeech.Synthesizer
	LanguageModel llms.LanguageModel
}

type ProbeOption func(*probeOptions)

type probeOptions struct {
	warmUpDone func(error)
}

// WithWarmUpDone registers a callback for the end of a download started by
// the probe. It is not called when no download was started. A download only
// lives as long as the process does, so short lived callers have to wait for
// it.
func WithWarmUpDone(callback func(err error)) ProbeOption {
	return func(o *probeOptions) { o.warmUpDone = callback }
}

// Available reports whether an agent could run with capabilities. A model
// that still has to be downloaded is asked to start downloading by creating
// a throwaway session in the background; the result is then
// [llms.AvailabilityDownloading].
func Available(ctx context.Context, capabilities Capabilities, opts ...ProbeOption) (llms.Availability, error) {
	options := probeOptions{warmUpDone: func(error) {}}
	for _, opt := range opts {
		opt(&options)
	}

	if capabilities.Recognizer == nil || capabilities.Synthesizer == nil || capabilities.LanguageModel == nil {
		return llms.AvailabilityUnavailable, nil
	}

	availability, err := capabilities.LanguageModel.Availability(ctx)
	if err != nil {
		return llms.AvailabilityUnavailable, fmt.Errorf("failed to check language model availability: %w", err)
	}
	if availability != llms.AvailabilityDownloadable {
		return availability, nil
	}

	go func() {
		ctx := context.WithoutCancel(ctx)
		_, err := capabilities.LanguageModel.NewSession(ctx, llms.WithInstructions(warmUpInstructions))
		if err != nil {
			defaultLogger.Debug("language model warm up failed", "error", err)
		}
		options.warmUpDone(err)
	}()
	return llms.AvailabilityDownloading, nil
}
