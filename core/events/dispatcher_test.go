package events

import (
	"errors"
	"slices"
	"testing"
)

func TestDispatcherDeliversInRegistrationOrder(t *testing.T) {
	dispatcher := NewDispatcher()

	order := []string{}
	dispatcher.Subscribe(KindUser, func(Event) { order = append(order, "first") })
	dispatcher.Subscribe(KindUser, func(Event) { order = append(order, "second") })
	dispatcher.Subscribe(KindAssistant, func(Event) { order = append(order, "assistant") })

	dispatcher.Emit(NewUserTranscript("hello"))

	if !slices.Equal(order, []string{"first", "second"}) {
		t.Fatalf("expected [first second], got %v", order)
	}
}

func TestDispatcherInvokesRepeatedRegistrationEachTime(t *testing.T) {
	dispatcher := NewDispatcher()

	calls := 0
	listener := func(Event) { calls++ }
	dispatcher.Subscribe(KindStart, listener)
	dispatcher.Subscribe(KindStart, listener)

	dispatcher.Emit(NewStarted())

	if calls != 2 {
		t.Fatalf("expected listener to run once per registration, got %d calls", calls)
	}
}

func TestDispatcherSubscribeDuringEmitAppliesToNextEmit(t *testing.T) {
	dispatcher := NewDispatcher()

	lateCalls := 0
	dispatcher.Subscribe(KindStop, func(Event) {
		dispatcher.Subscribe(KindStop, func(Event) { lateCalls++ })
	})

	dispatcher.Emit(NewStopped())
	if lateCalls != 0 {
		t.Fatalf("expected late listener to be skipped on current emit, got %d calls", lateCalls)
	}

	dispatcher.Emit(NewStopped())
	if lateCalls != 1 {
		t.Fatalf("expected late listener to run on next emit, got %d calls", lateCalls)
	}
}

func TestOnRegistersTypedListener(t *testing.T) {
	dispatcher := NewDispatcher()

	var transcripts []string
	var failures []error
	On(dispatcher, func(event UserTranscript) { transcripts = append(transcripts, event.Text) })
	On(dispatcher, func(event Failed) { failures = append(failures, event.Err) })

	boom := errors.New("boom")
	dispatcher.Emit(NewUserTranscript("hello"))
	dispatcher.Emit(NewAssistantResponse("ignored"))
	dispatcher.Emit(NewFailed(boom))

	if !slices.Equal(transcripts, []string{"hello"}) {
		t.Fatalf("expected [hello], got %v", transcripts)
	}
	if len(failures) != 1 || !errors.Is(failures[0], boom) {
		t.Fatalf("expected the boom failure, got %v", failures)
	}
	if got := dispatcher.ListenerCount(KindUser); got != 1 {
		t.Fatalf("expected one user listener, got %d", got)
	}
}
