package miniaudio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

var ErrDeviceNotInitialized = errors.New("device not initialized")

type playbackClient struct {
	device       *malgo.Device
	encodingInfo audio.EncodingInfo
	buffer       playbackBuffer

	mu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, encodingInfo audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	format, err := toMalgoFormat(encodingInfo.Format)
	if err != nil {
		return err
	}

	sampleRate := uint32(encodingInfo.SampleRate)
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = audio.DefaultChannels
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	config.Periods = 4

	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	c.encodingInfo = encodingInfo
	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.buffer.reset()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	} else if !c.device.IsStarted() {
		return fmt.Errorf("playback device not started")
	}

	c.buffer.write(audio)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.buffer.reset()
}

func (c *playbackClient) Mark(name string, onPlayed func(string)) error {
	c.buffer.mark(name, onPlayed)
	return nil
}

// Buffered reports how much audio is waiting to be played.
func (c *playbackClient) Buffered() time.Duration {
	return c.buffer.buffered(c.encodingInfo)
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	}

	c.device.Uninit()
	c.device = nil
	return nil
}

func (c *playbackClient) processAudio(pOutput, _ []byte, _ uint32) {
	played := c.buffer.read(pOutput)
	if len(played) == 0 {
		return
	}

	// Marks must not run on the device thread.
	go func() {
		for _, mark := range played {
			mark.onPlayed(mark.name)
		}
	}()
}

func toMalgoFormat(format audio.Format) (malgo.FormatType, error) {
	switch format {
	case audio.FormatLinear16:
		return malgo.FormatS16, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("unsupported device format: %s", format)
	}
}
