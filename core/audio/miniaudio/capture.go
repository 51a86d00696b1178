package miniaudio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

type captureClient struct {
	device       *malgo.Device
	encodingInfo audio.EncodingInfo

	// onAudio is read on the device thread without taking mu.
	onAudio atomic.Pointer[func(audio []byte)]

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, encodingInfo audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	format, err := toMalgoFormat(encodingInfo.Format)
	if err != nil {
		return err
	}
	bytesPerFrame := malgo.SampleSizeInBytes(format) * audio.DefaultChannels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(encodingInfo.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = audio.DefaultChannels
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = uint32(encodingInfo.SampleRate) / 50 // 20ms
	config.Periods = 3

	c.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			if onAudio := c.onAudio.Load(); onAudio != nil {
				// The device reuses its buffer.
				(*onAudio)(append([]byte(nil), pInput[:n]...))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	c.encodingInfo = encodingInfo
	return nil
}

func (c *captureClient) Start(onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	}

	c.onAudio.Store(&onAudio)
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.onAudio.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return ErrDeviceNotInitialized
	}

	c.onAudio.Store(nil)
	if !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onAudio.Store(nil)
	return nil
}
