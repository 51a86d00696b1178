package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-live/core/events"
)

func TestTranscriptModelAppliesEvents(t *testing.T) {
	feed := make(chan events.Event)
	var model tea.Model = newTranscriptModel(feed, "ema")
	model, _ = model.Update(tea.WindowSizeMsg{Width: 40, Height: 20})

	for _, event := range []events.Event{
		events.NewStarted(),
		events.NewUserTranscript("what is the weather like"),
		events.NewSpeakingChanged(true),
		events.NewAssistantResponse("It is sunny with a light breeze from the west all afternoon."),
		events.NewFailed(errors.New("socket closed")),
	} {
		model, _ = model.Update(agentEventMsg{event: event})
	}

	transcript := model.(transcriptModel)
	if len(transcript.lines) != 3 {
		t.Fatalf("expected three transcript lines, got %d", len(transcript.lines))
	}
	if transcript.status != "listening" || !transcript.speaking {
		t.Fatalf("expected listening and speaking, got %q and %t", transcript.status, transcript.speaking)
	}

	content := transcript.contentView()
	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		if width := len([]rune(stripStyles(line))); width > 40 {
			t.Fatalf("expected lines wrapped to the viewport, got %d runes in %q", width, line)
		}
	}
	if !strings.Contains(content, "socket closed") {
		t.Fatalf("expected error line in transcript, got %q", content)
	}
}

func TestTranscriptModelQuitsOnKey(t *testing.T) {
	model := newTranscriptModel(make(chan events.Event), "ema")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

// stripStyles drops ANSI escape sequences.
func stripStyles(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
