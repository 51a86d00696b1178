package deepgram

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-live/core/speechtotext"
)

const (
	// maxRetainedSegments bounds the result history handed to callbacks on
	// long-running streams.
	maxRetainedSegments = 64

	typeErrorResponse = "Error"
	typeKeepAlive     = "KeepAlive"
)

type recognition struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	options      speechtotext.RecognitionOptions
	closeTimeout time.Duration

	// segments is only touched by the read goroutine.
	segments []speechtotext.Segment

	lastAudioAt atomic.Int64

	stopOnce      sync.Once
	stopRequested atomic.Bool
	endOnce       sync.Once
	ended         chan struct{}
}

func newRecognition(conn *websocket.Conn, options speechtotext.RecognitionOptions, closeTimeout time.Duration) *recognition {
	stream := &recognition{
		conn:         conn,
		options:      options,
		closeTimeout: closeTimeout,
		ended:        make(chan struct{}),
	}
	stream.lastAudioAt.Store(time.Now().UnixNano())
	return stream
}

// Stop asks Deepgram to flush and close the stream. The connection is closed
// forcefully if the server does not close it within the close timeout.
func (s *recognition) Stop() error {
	if s.isEnded() {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		s.stopRequested.Store(true)
		if writeErr := s.writeJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); writeErr != nil {
			err = fmt.Errorf("failed to close deepgram stream: %w", writeErr)
			_ = s.conn.Close()
			return
		}

		time.AfterFunc(s.closeTimeout, func() {
			if !s.isEnded() {
				_ = s.conn.Close()
			}
		})
	})
	return err
}

func (s *recognition) isEnded() bool {
	select {
	case <-s.ended:
		return true
	default:
		return false
	}
}

func (s *recognition) end() {
	s.endOnce.Do(func() {
		close(s.ended)
		_ = s.conn.Close()
		s.options.EndCallback()
	})
}

func (s *recognition) sendAudio(audio []byte) error {
	s.lastAudioAt.Store(time.Now().UnixNano())

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (s *recognition) sendSilence(audio []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write silence to deepgram client: %w", err)
	}
	return nil
}

func (s *recognition) writeJSON(msg controlMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *recognition) readAndProcessMessages() {
	defer s.end()

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.stopRequested.Load() &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("failed to read deepgram websocket message", "error", err)
				s.options.ErrorCallback(&speechtotext.Error{Code: "network", Description: err.Error()})
			}
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}
		s.processMessage(msg)
	}
}

func (s *recognition) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch parsedMsg.Type {
	case string(api.TypeMessageResponse):
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if !msgResp.IsFinal && !s.options.InterimResults {
			return
		}

		s.appendSegment(toSegment(msgResp))
		segments := make([]speechtotext.Segment, len(s.segments))
		copy(segments, s.segments)
		s.options.ResultCallback(speechtotext.Result{Segments: segments})

		if !s.options.Continuous && msgResp.SpeechFinal {
			if err := s.Stop(); err != nil {
				logger.Warn("failed to stop single utterance stream", "error", err)
			}
		}

	case typeErrorResponse:
		var msgResp errorResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram error", "error", err)
			return
		}
		code := msgResp.Variant
		if code == "" {
			code = "deepgram"
		}
		description := msgResp.Description
		if description == "" {
			description = msgResp.Message
		}
		s.options.ErrorCallback(&speechtotext.Error{Code: code, Description: description})
	}
}

// appendSegment replaces a trailing interim segment, since Deepgram keeps
// revising it until it becomes final.
func (s *recognition) appendSegment(segment speechtotext.Segment) {
	if n := len(s.segments); n > 0 && !s.segments[n-1].IsFinal {
		s.segments[n-1] = segment
	} else {
		s.segments = append(s.segments, segment)
	}

	if len(s.segments) > maxRetainedSegments {
		s.segments = s.segments[len(s.segments)-maxRetainedSegments:]
	}
}

func toSegment(msgResp api.MessageResponse) speechtotext.Segment {
	segment := speechtotext.Segment{IsFinal: msgResp.IsFinal}
	for _, alternative := range msgResp.Channel.Alternatives {
		segment.Alternatives = append(segment.Alternatives, speechtotext.Alternative{
			Transcript: alternative.Transcript,
			Confidence: alternative.Confidence,
		})
	}
	return segment
}

// keepAlive pads short pauses with silence so endpointing can finalize the
// last segment, then falls back to KeepAlive messages so Deepgram does not
// close an idle stream.
func (s *recognition) keepAlive() {
	type keepAliveState string
	const (
		stateWaiting   keepAliveState = "waiting"
		stateSilence   keepAliveState = "silence"
		stateKeepAlive keepAliveState = "keepAlive"

		tick              = 50 * time.Millisecond
		silencePadding    = time.Second
		keepAliveInterval = 5 * time.Second
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	silence := s.options.EncodingInfo.Silence(tick)
	state := stateWaiting
	var silenceStartedAt, lastKeepAliveAt time.Time
	for {
		select {
		case <-s.ended:
			return
		case <-ticker.C:
			if s.stopRequested.Load() {
				continue
			}

			idle := time.Since(time.Unix(0, s.lastAudioAt.Load()))
			switch state {
			case stateWaiting:
				if idle > tick {
					state = stateSilence
					silenceStartedAt = time.Now()
				}

			case stateSilence:
				if idle < tick {
					state = stateWaiting
					continue
				}
				if time.Since(silenceStartedAt) >= silencePadding {
					state = stateKeepAlive
					lastKeepAliveAt = time.Now()
					continue
				}
				if err := s.sendSilence(silence); err != nil {
					logger.Debug("failed to send silence", "error", err)
				}

			case stateKeepAlive:
				if idle < tick {
					state = stateWaiting
					continue
				}
				if time.Since(lastKeepAliveAt) >= keepAliveInterval {
					lastKeepAliveAt = time.Now()
					if err := s.writeJSON(controlMessage{Type: typeKeepAlive}); err != nil {
						logger.Debug("failed to send keep alive", "error", err)
					}
				}
			}
		}
	}
}

type controlMessage struct {
	Type string `json:"type"`
}

type errorResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
	Variant     string `json:"variant"`
}
