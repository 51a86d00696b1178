package orchestration

import (
	"context"
	"slices"
	"testing"

	"github.com/koscakluka/ema-live/core/speechtotext"
)

type routedResults struct {
	finals   []string
	interims int
	errors   []error
	ends     int
}

func (r *routedResults) callbacks() recognitionCallbacks {
	return recognitionCallbacks{
		onFinal:   func(text string) { r.finals = append(r.finals, text) },
		onInterim: func() { r.interims++ },
		onError:   func(err error) { r.errors = append(r.errors, err) },
		onEnd:     func() { r.ends++ },
	}
}

func runNow(task func()) { task() }

func TestRecognitionSupervisorRoutesLastSegment(t *testing.T) {
	supervisor := recognitionSupervisor{}
	routed := &routedResults{}
	callbacks := routed.callbacks()

	supervisor.route(speechtotext.Result{}, callbacks)
	supervisor.route(resultOf("  ", true), callbacks)
	supervisor.route(resultOf("hel", false), callbacks)
	supervisor.route(resultOf("  hello  ", true), callbacks)
	supervisor.route(speechtotext.Result{Segments: []speechtotext.Segment{
		resultOf("hello", true).Segments[0],
		resultOf("and th", false).Segments[0],
	}}, callbacks)

	if !slices.Equal(routed.finals, []string{"hello"}) {
		t.Fatalf("expected only the trimmed final text, got %q", routed.finals)
	}
	if routed.interims != 2 {
		t.Fatalf("expected two interim results, got %d", routed.interims)
	}
}

func TestRecognitionSupervisorDropsCallbacksAfterStop(t *testing.T) {
	recognizer := &stubRecognizer{}
	supervisor := recognitionSupervisor{recognizer: recognizer, language: DefaultLanguage}
	routed := &routedResults{}

	if err := supervisor.start(context.Background(), runNow, routed.callbacks()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := supervisor.start(context.Background(), runNow, routed.callbacks()); err != nil {
		t.Fatalf("unexpected error on second start: %v", err)
	}
	if count := recognizer.recognizeCount(); count != 1 {
		t.Fatalf("expected a single stream, got %d", count)
	}

	stream := recognizer.current()
	stream.final("before")

	if err := supervisor.stop(); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	if supervisor.active() {
		t.Fatalf("expected no active stream after stop")
	}

	stream.final("after")
	stream.end()

	if !slices.Equal(routed.finals, []string{"before"}) {
		t.Fatalf("expected results after stop to be dropped, got %q", routed.finals)
	}
	if routed.ends != 0 {
		t.Fatalf("expected the end of a stopped stream to be ignored, got %d", routed.ends)
	}
}

func TestRecognitionSupervisorClearsHandleOnEnd(t *testing.T) {
	recognizer := &stubRecognizer{}
	supervisor := recognitionSupervisor{recognizer: recognizer}
	routed := &routedResults{}

	if err := supervisor.start(context.Background(), runNow, routed.callbacks()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recognizer.current().end()

	if supervisor.active() {
		t.Fatalf("expected the ended stream to be released")
	}
	if routed.ends != 1 {
		t.Fatalf("expected end to be forwarded once, got %d", routed.ends)
	}
}
