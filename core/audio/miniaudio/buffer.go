package miniaudio

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-live/core/audio"
)

type playbackMark struct {
	name     string
	position int
	onPlayed func(string)
}

// playbackBuffer queues audio for the playback device. Marks keep their
// position relative to the start of the queued audio.
type playbackBuffer struct {
	mu    sync.Mutex
	audio []byte
	marks []playbackMark
}

func (b *playbackBuffer) write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, audio...)
}

func (b *playbackBuffer) mark(name string, onPlayed func(string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = append(b.marks, playbackMark{name: name, position: len(b.audio), onPlayed: onPlayed})
}

func (b *playbackBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = nil
	b.marks = nil
}

func (b *playbackBuffer) buffered(encodingInfo audio.EncodingInfo) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return encodingInfo.Duration(len(b.audio))
}

// read fills out with queued audio, padding with silence, and returns the
// marks whose audio has now been handed to the device.
func (b *playbackBuffer) read(out []byte) []playbackMark {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.audio)
	clear(out[n:])
	b.audio = b.audio[n:]
	if len(b.audio) == 0 {
		b.audio = nil
	}

	passed := 0
	for passed < len(b.marks) && b.marks[passed].position <= n {
		passed++
	}
	played := b.marks[:passed:passed]
	b.marks = b.marks[passed:]
	for i := range b.marks {
		b.marks[i].position -= n
	}
	return played
}
