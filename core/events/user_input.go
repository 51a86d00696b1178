package events

// KindUser identifies a finalized user transcript fragment.
const KindUser Kind = "user"

// UserTranscript carries a finalized, trimmed user transcript fragment.
type UserTranscript struct {
	Base
	Text string
}

// NewUserTranscript creates a user transcript event.
func NewUserTranscript(text string) UserTranscript {
	return UserTranscript{Base: NewBase(), Text: text}
}

func (UserTranscript) Kind() Kind { return KindUser }
