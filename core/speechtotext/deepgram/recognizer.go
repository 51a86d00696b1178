package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel    = "nova-3"
)

var (
	ErrAlreadyRecognizing = errors.New("deepgram recognizer already has an active stream")
	ErrNotRecognizing     = errors.New("deepgram recognizer has no active stream")
	ErrMissingAPIKey      = errors.New("deepgram api key not found")
)

var _ speechtotext.Recognizer = (*Recognizer)(nil)

// Recognizer streams audio to Deepgram live transcription. It owns at most
// one stream at a time; audio sent with [Recognizer.SendAudio] goes to the
// active stream.
type Recognizer struct {
	apiKey       string
	model        string
	endpoint     string
	endpointing  time.Duration
	closeTimeout time.Duration
	dialer       *websocket.Dialer

	mu     sync.Mutex
	active *recognition
}

type RecognizerOption func(*Recognizer)

// WithAPIKey sets the API key. Defaults to the DEEPGRAM_API_KEY environment
// variable.
func WithAPIKey(apiKey string) RecognizerOption {
	return func(r *Recognizer) { r.apiKey = apiKey }
}

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) { r.model = model }
}

// WithEndpoint overrides the websocket endpoint, e.g. for a self-hosted
// deployment.
func WithEndpoint(endpoint string) RecognizerOption {
	return func(r *Recognizer) { r.endpoint = endpoint }
}

// WithEndpointing sets how much trailing silence Deepgram waits for before
// finalizing a segment.
func WithEndpointing(endpointing time.Duration) RecognizerOption {
	return func(r *Recognizer) { r.endpointing = endpointing }
}

func NewRecognizer(opts ...RecognizerOption) *Recognizer {
	recognizer := &Recognizer{
		apiKey:       os.Getenv("DEEPGRAM_API_KEY"),
		model:        defaultModel,
		endpoint:     defaultEndpoint,
		endpointing:  300 * time.Millisecond,
		closeTimeout: 2 * time.Second,
		dialer:       websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(recognizer)
	}
	return recognizer
}

func (r *Recognizer) Recognize(ctx context.Context, opts ...speechtotext.RecognitionOption) (speechtotext.Recognition, error) {
	ctx, span := tracer.Start(ctx, "start recognition")
	defer span.End()

	options := speechtotext.NewRecognitionOptions(opts...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil && !r.active.isEnded() {
		span.RecordError(ErrAlreadyRecognizing)
		return nil, ErrAlreadyRecognizing
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		err = fmt.Errorf("invalid encoding: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	options.EncodingInfo = encoding

	listenURL, err := r.listenURL(options)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("deepgram.model", r.model),
		attribute.String("deepgram.language", options.Language),
		attribute.Bool("deepgram.interim_results", options.InterimResults),
	)

	conn, _, err := r.dialer.DialContext(ctx, listenURL, http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		err = fmt.Errorf("failed to open socket connection to deepgram: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	stream := newRecognition(conn, options, r.closeTimeout)
	r.active = stream
	go stream.readAndProcessMessages()
	go stream.keepAlive()

	return stream, nil
}

// SendAudio forwards captured audio to the active stream.
func (r *Recognizer) SendAudio(audio []byte) error {
	r.mu.Lock()
	stream := r.active
	r.mu.Unlock()

	if stream == nil || stream.isEnded() {
		return ErrNotRecognizing
	}
	return stream.sendAudio(audio)
}

func (r *Recognizer) listenURL(options speechtotext.RecognitionOptions) (string, error) {
	if r.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	listenURL, err := url.Parse(r.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram endpoint: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("endpointing", strconv.FormatInt(r.endpointing.Milliseconds(), 10))
	if options.InterimResults {
		queryParams.Set("interim_results", "true")
	}

	listenURL.RawQuery = queryParams.Encode()
	return listenURL.String(), nil
}
