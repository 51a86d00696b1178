package texttospeech

type SpeakOptions struct {
	// Voice is the name of one of the synthesizer's [Voice]s. Empty selects
	// the default voice.
	Voice string
}

type SpeakOption func(*SpeakOptions)

func WithVoice(voice string) SpeakOption {
	return func(o *SpeakOptions) { o.Voice = voice }
}

func NewSpeakOptions(opts ...SpeakOption) SpeakOptions {
	options := SpeakOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
