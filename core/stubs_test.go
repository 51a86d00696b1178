package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-live/core/events"
	"github.com/koscakluka/ema-live/core/llms"
	"github.com/koscakluka/ema-live/core/speechtotext"
	"github.com/koscakluka/ema-live/core/texttospeech"
)

// journal is a shared, ordered record of collaborator calls and emitted
// events.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) contains(entry string) bool {
	return j.index(entry) >= 0
}

func (j *journal) index(entry string) int {
	for i, e := range j.snapshot() {
		if e == entry {
			return i
		}
	}
	return -1
}

func (j *journal) count(prefix string) int {
	count := 0
	for _, e := range j.snapshot() {
		if strings.HasPrefix(e, prefix) {
			count++
		}
	}
	return count
}

func recordEvents(agent *Agent, j *journal) {
	events.On(agent, func(events.Started) { j.add("start") })
	events.On(agent, func(events.Stopped) { j.add("stop") })
	events.On(agent, func(e events.Failed) { j.add("error:" + e.Err.Error()) })
	events.On(agent, func(e events.UserTranscript) { j.add("user:" + e.Text) })
	events.On(agent, func(e events.AssistantResponse) { j.add("assistant:" + e.Text) })
	events.On(agent, func(e events.SpeakingChanged) { j.add(fmt.Sprintf("speaking:%t", e.Speaking)) })
}

type stubRecognizer struct {
	mu           sync.Mutex
	recognizeErr error
	stopErr      error
	streams      []*stubRecognition
}

func (r *stubRecognizer) Recognize(_ context.Context, opts ...speechtotext.RecognitionOption) (speechtotext.Recognition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizeErr != nil {
		return nil, r.recognizeErr
	}

	stream := &stubRecognition{
		options: speechtotext.NewRecognitionOptions(opts...),
		stopErr: r.stopErr,
	}
	r.streams = append(r.streams, stream)
	return stream, nil
}

func (r *stubRecognizer) recognizeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

func (r *stubRecognizer) current() *stubRecognition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.streams) == 0 {
		return nil
	}
	return r.streams[len(r.streams)-1]
}

type stubRecognition struct {
	options speechtotext.RecognitionOptions
	stopErr error
	stops   atomic.Int32
}

func (s *stubRecognition) Stop() error {
	s.stops.Add(1)
	if s.stopErr != nil {
		return s.stopErr
	}
	go s.options.EndCallback()
	return nil
}

func (s *stubRecognition) final(text string) {
	s.options.ResultCallback(resultOf(text, true))
}

func (s *stubRecognition) interim(text string) {
	s.options.ResultCallback(resultOf(text, false))
}

func (s *stubRecognition) fail(err error) {
	s.options.ErrorCallback(err)
}

func (s *stubRecognition) end() {
	s.options.EndCallback()
}

func resultOf(text string, isFinal bool) speechtotext.Result {
	return speechtotext.Result{Segments: []speechtotext.Segment{{
		IsFinal:      isFinal,
		Alternatives: []speechtotext.Alternative{{Transcript: text, Confidence: 0.9}},
	}}}
}

type spokenText struct {
	text  string
	voice string
}

type stubSynthesizer struct {
	journal  *journal
	voices   []texttospeech.Voice
	speakErr error
	speaking atomic.Bool

	mu      sync.Mutex
	spoken  []spokenText
	cancels int
}

func (s *stubSynthesizer) Speak(_ context.Context, text string, opts ...texttospeech.SpeakOption) error {
	options := texttospeech.NewSpeakOptions(opts...)

	s.mu.Lock()
	s.spoken = append(s.spoken, spokenText{text: text, voice: options.Voice})
	s.mu.Unlock()

	s.journal.add("speak:" + text)
	if s.speakErr != nil {
		return s.speakErr
	}
	s.speaking.Store(true)
	return nil
}

func (s *stubSynthesizer) Cancel() error {
	s.mu.Lock()
	s.cancels++
	s.mu.Unlock()

	s.journal.add("cancel")
	s.speaking.Store(false)
	return nil
}

func (s *stubSynthesizer) Speaking() bool {
	return s.speaking.Load()
}

func (s *stubSynthesizer) Voices() []texttospeech.Voice {
	return s.voices
}

func (s *stubSynthesizer) spokenTexts() []spokenText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spokenText(nil), s.spoken...)
}

func (s *stubSynthesizer) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

type stubLanguageModel struct {
	journal         *journal
	availability    llms.Availability
	availabilityErr error
	newSessionErr   error
	// respond overrides the default reply when set.
	respond func(prompt string) (string, error)
	// gate, when set, holds every prompt until a value is received.
	gate chan struct{}

	mu                sync.Mutex
	availabilityCalls int
	instructions      []string
	prompts           []string
	inFlight          int
	maxInFlight       int
}

func (m *stubLanguageModel) Availability(context.Context) (llms.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availabilityCalls++
	return m.availability, m.availabilityErr
}

func (m *stubLanguageModel) NewSession(_ context.Context, opts ...llms.SessionOption) (llms.Session, error) {
	options := llms.NewSessionOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructions = append(m.instructions, options.Instructions)
	if m.newSessionErr != nil {
		return nil, m.newSessionErr
	}
	return &stubSession{model: m}, nil
}

func (m *stubLanguageModel) promptsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *stubLanguageModel) sessionInstructions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.instructions...)
}

type stubSession struct {
	model *stubLanguageModel
}

func (s *stubSession) Prompt(ctx context.Context, text string) (string, error) {
	m := s.model

	m.mu.Lock()
	m.prompts = append(m.prompts, text)
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	m.mu.Unlock()

	if m.journal != nil {
		m.journal.add("prompt:" + text)
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()

	if m.respond != nil {
		return m.respond(text)
	}
	return "reply to " + text, nil
}

type harness struct {
	agent       *Agent
	recognizer  *stubRecognizer
	synthesizer *stubSynthesizer
	model       *stubLanguageModel
	journal     *journal
}

// newHarness builds an agent wired to stubs with a 60ms silence threshold
// and a 10ms speaking poll. configure runs before the agent is created.
func newHarness(t *testing.T, configure func(h *harness), opts ...AgentOption) *harness {
	t.Helper()

	j := &journal{}
	h := &harness{
		recognizer:  &stubRecognizer{},
		synthesizer: &stubSynthesizer{journal: j},
		model:       &stubLanguageModel{journal: j, availability: llms.AvailabilityAvailable},
		journal:     j,
	}
	if configure != nil {
		configure(h)
	}

	agent, err := NewAgent(context.Background(), append([]AgentOption{
		WithRecognizer(h.recognizer),
		WithSynthesizer(h.synthesizer),
		WithLanguageModel(h.model),
		WithSilenceThreshold(60 * time.Millisecond),
		WithSpeakingPollInterval(10 * time.Millisecond),
		WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	t.Cleanup(func() { _ = agent.Stop() })

	recordEvents(agent, j)
	h.agent = agent
	return h
}

func (h *harness) start(t *testing.T) *stubRecognition {
	t.Helper()

	if err := h.agent.Start(context.Background()); err != nil {
		t.Fatalf("failed to start agent: %v", err)
	}
	stream := h.recognizer.current()
	if stream == nil {
		t.Fatalf("expected a recognition stream after start")
	}
	return stream
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}
