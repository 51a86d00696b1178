package speechtotext

import (
	"context"
	"fmt"
)

// Recognizer starts continuous recognition streams.
type Recognizer interface {
	// Recognize starts a new stream. Results, errors and the end of the
	// stream are delivered through the callbacks in opts, possibly from
	// another goroutine.
	Recognize(ctx context.Context, opts ...RecognitionOption) (Recognition, error)
}

// Recognition is a handle to a running stream.
type Recognition interface {
	// Stop requests the stream to terminate. The end callback still fires
	// once the stream has terminated.
	Stop() error
}

// Result is one ordered result event. Segments holds every segment the
// engine reported so far for the stream; the last one is the most recent.
type Result struct {
	Segments []Segment
}

// Segment is one recognized span of speech with its alternatives, best
// first.
type Segment struct {
	IsFinal      bool
	Alternatives []Alternative
}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Last returns the most recent segment of the result.
func (r Result) Last() (Segment, bool) {
	if len(r.Segments) == 0 {
		return Segment{}, false
	}
	return r.Segments[len(r.Segments)-1], true
}

// Transcript returns the transcript of the best alternative.
func (s Segment) Transcript() string {
	if len(s.Alternatives) == 0 {
		return ""
	}
	return s.Alternatives[0].Transcript
}

// Error is an engine-reported recognition failure.
type Error struct {
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("speech recognition error: %s", e.Code)
	}
	return fmt.Sprintf("speech recognition error: %s: %s", e.Code, e.Description)
}
