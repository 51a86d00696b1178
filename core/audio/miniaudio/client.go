package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
	"github.com/koscakluka/ema-live/core/texttospeech"
)

const defaultPlaybackSampleRate = 24000

var _ texttospeech.AudioOutput = (*Client)(nil)

// Client owns the default capture and playback devices. Playback is started
// right away so synthesized audio can be queued at any time; capture only
// runs between StartCapture and StopCapture.
type Client struct {
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	capture  audio.EncodingInfo
	playback audio.EncodingInfo
}

func WithCaptureSampleRate(sampleRate int) ClientOption {
	return func(o *clientOptions) { o.capture.SampleRate = sampleRate }
}

func WithPlaybackSampleRate(sampleRate int) ClientOption {
	return func(o *clientOptions) { o.playback.SampleRate = sampleRate }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	options := clientOptions{
		capture:  audio.EncodingInfo{SampleRate: audio.DefaultSampleRate, Format: audio.FormatLinear16},
		playback: audio.EncodingInfo{SampleRate: defaultPlaybackSampleRate, Format: audio.FormatLinear16},
	}
	for _, opt := range opts {
		opt(&options)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := &Client{audioContext: audioCtx}

	if err := client.playbackClient.Init(audioCtx, options.playback); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}
	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx, options.capture); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) CaptureEncodingInfo() audio.EncodingInfo {
	return c.captureClient.encodingInfo
}

// EncodingInfo describes the audio playback expects.
func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.playbackClient.encodingInfo
}

func (c *Client) Close() {
	err := errors.Join(c.captureClient.Uninit(), c.playbackClient.Uninit())
	if err != nil && !errors.Is(err, ErrDeviceNotInitialized) {
		logger.Warn("failed to release audio devices", "error", err)
	}
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
