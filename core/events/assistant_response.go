package events

const (
	// KindAssistant identifies a generated assistant reply.
	KindAssistant Kind = "assistant"
	// KindSpeaking identifies a change of the synthesis speaking flag.
	KindSpeaking Kind = "speaking"
)

// AssistantResponse carries the reply generated for a dispatched turn.
type AssistantResponse struct {
	Base
	Text string
}

// NewAssistantResponse creates an assistant response event.
func NewAssistantResponse(text string) AssistantResponse {
	return AssistantResponse{Base: NewBase(), Text: text}
}

func (AssistantResponse) Kind() Kind { return KindAssistant }

// SpeakingChanged carries the new value of the synthesis speaking flag.
type SpeakingChanged struct {
	Base
	Speaking bool
}

// NewSpeakingChanged creates a speaking edge event.
func NewSpeakingChanged(speaking bool) SpeakingChanged {
	return SpeakingChanged{Base: NewBase(), Speaking: speaking}
}

func (SpeakingChanged) Kind() Kind { return KindSpeaking }
