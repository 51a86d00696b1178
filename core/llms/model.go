package llms

import "context"

// LanguageModel generates text replies. A model is only usable through a
// [Session] created from it.
type LanguageModel interface {
	// Availability classifies whether sessions can be created right now.
	Availability(ctx context.Context) (Availability, error)
	// NewSession creates a conversation. Creating a session for a model that
	// is [AvailabilityDownloadable] starts acquiring it.
	NewSession(ctx context.Context, opts ...SessionOption) (Session, error)
}

// Session is a single conversation with a language model. It keeps its own
// history, so every prompt sees the previous prompts and replies.
type Session interface {
	Prompt(ctx context.Context, text string) (string, error)
}

type Availability string

const (
	AvailabilityUnavailable  Availability = "unavailable"
	AvailabilityAvailable    Availability = "available"
	AvailabilityDownloadable Availability = "downloadable"
	AvailabilityDownloading  Availability = "downloading"
)

func (a Availability) String() string { return string(a) }

type SessionOptions struct {
	Instructions string
}

type SessionOption func(*SessionOptions)

// WithInstructions sets the system instructions the session starts with.
func WithInstructions(instructions string) SessionOption {
	return func(o *SessionOptions) { o.Instructions = instructions }
}

func NewSessionOptions(opts ...SessionOption) SessionOptions {
	options := SessionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
