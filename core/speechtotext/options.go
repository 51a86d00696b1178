package speechtotext

import "github.com/koscakluka/ema-live/core/audio"

type RecognitionOptions struct {
	// Continuous keeps the stream open across utterances instead of ending
	// after the first final result.
	Continuous bool
	// InterimResults requests non-final results in addition to final ones.
	InterimResults bool
	// Language is a BCP 47 language tag, e.g. "en-US".
	Language string

	// ResultCallback is called for every result the engine produces, in
	// order.
	ResultCallback func(Result)
	// ErrorCallback is called when the engine reports a failure.
	ErrorCallback func(error)
	// EndCallback is called once when the stream terminates, for any reason.
	EndCallback func()

	EncodingInfo audio.EncodingInfo
}

type RecognitionOption func(*RecognitionOptions)

func WithContinuous(continuous bool) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.Continuous = continuous
	}
}

func WithInterimResults(interimResults bool) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.InterimResults = interimResults
	}
}

func WithLanguage(language string) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.Language = language
	}
}

func WithResultCallback(callback func(Result)) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.ResultCallback = callback
	}
}

func WithErrorCallback(callback func(error)) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.ErrorCallback = callback
	}
}

func WithEndCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.EndCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RecognitionOption {
	return func(o *RecognitionOptions) {
		if encodingInfo.IsZero() {
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

// NewRecognitionOptions applies opts over defaults. Callbacks left unset are
// replaced with no-ops so engines can call them unconditionally.
func NewRecognitionOptions(opts ...RecognitionOption) RecognitionOptions {
	options := RecognitionOptions{
		Language:     "en-US",
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.ResultCallback == nil {
		options.ResultCallback = func(Result) {}
	}
	if options.ErrorCallback == nil {
		options.ErrorCallback = func(error) {}
	}
	if options.EndCallback == nil {
		options.EndCallback = func() {}
	}
	return options
}
