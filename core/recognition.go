package orchestration

import (
	"context"
	"strings"

	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/speechtotext"
)

type recognitionCallbacks struct {
	onFinal   func(text string)
	onInterim func()
	onError   func(err error)
	onEnd     func()
}

// recognitionSupervisor owns the agent's single recognition stream. Engine
// callbacks are scheduled onto the event loop and dropped if the stream they
// came from is no longer the current one.
type recognitionSupervisor struct {
	recognizer   speechtotext.Recognizer
	language     string
	encodingInfo audio.EncodingInfo

	handle     speechtotext.Recognition
	generation uint64
}

func (s *recognitionSupervisor) active() bool {
	return s.handle != nil
}

// start opens a stream unless one is already running.
func (s *recognitionSupervisor) start(ctx context.Context, schedule func(task func()), callbacks recognitionCallbacks) error {
	if s.active() {
		return nil
	}

	s.generation++
	generation := s.generation
	current := func(task func()) {
		schedule(func() {
			if generation == s.generation {
				task()
			}
		})
	}

	handle, err := s.recognizer.Recognize(ctx,
		speechtotext.WithContinuous(true),
		speechtotext.WithInterimResults(true),
		speechtotext.WithLanguage(s.language),
		speechtotext.WithEncodingInfo(s.encodingInfo),
		speechtotext.WithResultCallback(func(result speechtotext.Result) {
			current(func() { s.route(result, callbacks) })
		}),
		speechtotext.WithErrorCallback(func(err error) {
			current(func() { callbacks.onError(err) })
		}),
		speechtotext.WithEndCallback(func() {
			current(func() {
				s.handle = nil
				callbacks.onEnd()
			})
		}),
	)
	if err != nil {
		s.generation++
		return err
	}

	s.handle = handle
	return nil
}

// stop ends the current stream. Its end callback is ignored, so a deliberate
// stop never triggers a restart.
func (s *recognitionSupervisor) stop() error {
	s.generation++
	if !s.active() {
		return nil
	}
	handle := s.handle
	s.handle = nil
	return handle.Stop()
}

func (s *recognitionSupervisor) route(result speechtotext.Result, callbacks recognitionCallbacks) {
	segment, ok := result.Last()
	if !ok {
		return
	}
	if !segment.IsFinal {
		callbacks.onInterim()
		return
	}

	if text := strings.TrimSpace(segment.Transcript()); text != "" {
		callbacks.onFinal(text)
	}
}
