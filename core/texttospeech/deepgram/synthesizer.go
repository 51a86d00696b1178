package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultEndpoint = "wss://api.deepgram.com/v1/speak"

var (
	ErrMissingAPIKey = errors.New("deepgram api key not found")
	ErrMissingOutput = errors.New("deepgram synthesizer has no audio output")
)

var _ texttospeech.Synthesizer = (*Synthesizer)(nil)

// Synthesizer speaks text through Deepgram Aura. Utterances share one
// websocket per voice and are flushed one by one; each flush becomes a
// playback mark on the audio output, and an utterance counts as spoken once
// its mark has been played.
type Synthesizer struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
	output   texttospeech.AudioOutput

	mu      sync.Mutex
	current *connection
	// pending holds marks of utterances that have not finished playing.
	pending map[string]struct{}
}

type SynthesizerOption func(*Synthesizer)

// WithAPIKey sets the API key. Defaults to the DEEPGRAM_API_KEY environment
// variable.
func WithAPIKey(apiKey string) SynthesizerOption {
	return func(s *Synthesizer) { s.apiKey = apiKey }
}

func WithEndpoint(endpoint string) SynthesizerOption {
	return func(s *Synthesizer) { s.endpoint = endpoint }
}

func WithAudioOutput(output texttospeech.AudioOutput) SynthesizerOption {
	return func(s *Synthesizer) { s.output = output }
}

func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	synthesizer := &Synthesizer{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		endpoint: defaultEndpoint,
		dialer:   websocket.DefaultDialer,
		pending:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(synthesizer)
	}
	return synthesizer
}

func (s *Synthesizer) Voices() []texttospeech.Voice {
	voices := make([]texttospeech.Voice, 0, len(auraVoices))
	for _, voice := range auraVoices {
		voices = append(voices, voice.Voice)
	}
	return voices
}

func (s *Synthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

func (s *Synthesizer) Speak(ctx context.Context, text string, opts ...texttospeech.SpeakOption) error {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	if s.output == nil {
		return ErrMissingOutput
	}

	options := texttospeech.NewSpeakOptions(opts...)
	model := modelFor(options.Voice)
	span.SetAttributes(attribute.String("deepgram.model", model))

	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.current
	if conn == nil || conn.model != model {
		if conn != nil {
			// Let the previous voice finish what it was given.
			_ = conn.writeJSON(controlMessage{Type: "Close"})
		}

		var err error
		if conn, err = s.connect(ctx, model); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		s.current = conn
		go s.readAndProcessMessages(conn)
	}

	mark := uuid.NewString()
	if err := conn.writeJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		err = fmt.Errorf("failed to send text to deepgram: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := conn.writeJSON(controlMessage{Type: "Flush"}); err != nil {
		err = fmt.Errorf("failed to flush deepgram buffer: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	conn.flushes = append(conn.flushes, mark)
	s.pending[mark] = struct{}{}
	return nil
}

// Cancel drops the connection together with everything it still has to
// synthesize and clears the audio that is waiting to be played.
func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	conn := s.current
	s.current = nil
	s.pending = map[string]struct{}{}
	s.mu.Unlock()

	var err error
	if conn != nil {
		conn.cancelled.Store(true)
		_ = conn.writeJSON(controlMessage{Type: "Clear"})
		if closeErr := conn.ws.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close deepgram websocket: %w", closeErr)
		}
	}

	if s.output != nil {
		s.output.ClearBuffer()
	}
	return err
}

func (s *Synthesizer) connect(ctx context.Context, model string) (*connection, error) {
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	speakURL, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram endpoint: %w", err)
	}

	encodingInfo := s.output.EncodingInfo()
	queryParams := speakURL.Query()
	queryParams.Set("encoding", encodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	queryParams.Set("model", model)
	queryParams.Set("container", "none")
	speakURL.RawQuery = queryParams.Encode()

	ws, _, err := s.dialer.DialContext(ctx, speakURL.String(), http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return &connection{ws: ws, model: model}, nil
}

func (s *Synthesizer) readAndProcessMessages(conn *connection) {
	defer s.connectionEnded(conn)

	for {
		msgType, msg, err := conn.ws.ReadMessage()
		if err != nil {
			if !conn.cancelled.Load() &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("deepgram speak websocket closed unexpectedly", "error", err)
			}
			return
		}
		if conn.cancelled.Load() {
			continue
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) == 0 {
				continue
			}
			if err := s.output.SendAudio(msg); err != nil {
				logger.Warn("failed to forward synthesized audio", "error", err)
			}

		case websocket.TextMessage:
			var parsedMsg struct {
				Type        string `json:"type"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case string(api.TypeFlushedResponse):
				s.flushed(conn)
			case "Warning", "Error":
				logger.Warn("deepgram speak message", "type", parsedMsg.Type, "description", parsedMsg.Description)
			}
		}
	}
}

// flushed hands the oldest outstanding mark of the connection to the output,
// since Deepgram answers flushes in order.
func (s *Synthesizer) flushed(conn *connection) {
	s.mu.Lock()
	if len(conn.flushes) == 0 {
		s.mu.Unlock()
		return
	}
	mark := conn.flushes[0]
	conn.flushes = conn.flushes[1:]
	_, stillPending := s.pending[mark]
	s.mu.Unlock()

	if !stillPending {
		return
	}
	if err := s.output.Mark(mark, s.markPlayed); err != nil {
		logger.Warn("failed to mark synthesized audio", "error", err)
		s.markPlayed(mark)
	}
}

func (s *Synthesizer) markPlayed(mark string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, mark)
}

// connectionEnded forgets utterances the connection never flushed.
func (s *Synthesizer) connectionEnded(conn *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mark := range conn.flushes {
		delete(s.pending, mark)
	}
	conn.flushes = nil
	if s.current == conn {
		s.current = nil
	}
	_ = conn.ws.Close()
}

type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	model   string

	// flushes is guarded by the synthesizer's mutex.
	flushes   []string
	cancelled atomic.Bool
}

func (c *connection) writeJSON(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

type controlMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
