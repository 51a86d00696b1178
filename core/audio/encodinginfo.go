package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

type Format string

const (
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
	FormatLinear16 Format = "linear16"
)

func (f Format) Name() string { return string(f) }

// SampleSize is the size of a single sample in bytes, or -1 for unknown
// formats.
func (f Format) SampleSize() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return -1
}

// SilenceValue is the byte that encodes silence in the format.
func (f Format) SilenceValue() byte {
	switch f {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	}
	return 0
}

// EncodingInfo describes raw mono PCM audio exchanged between capture,
// recognition, synthesis and playback.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: FormatLinear16}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

// BytesPerSecond of mono audio in this encoding.
func (e EncodingInfo) BytesPerSecond() int {
	if e.Format.SampleSize() <= 0 {
		return 0
	}
	return e.SampleRate * e.Format.SampleSize() * DefaultChannels
}

// Duration of size bytes of audio in this encoding.
func (e EncodingInfo) Duration(size int) time.Duration {
	bytesPerSecond := e.BytesPerSecond()
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(size) * time.Second / time.Duration(bytesPerSecond)
}

// Silence returns d worth of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	size := int(d * time.Duration(e.BytesPerSecond()) / time.Second)
	if sampleSize := e.Format.SampleSize(); sampleSize > 1 {
		size -= size % sampleSize
	}

	chunk := make([]byte, size)
	if silence := e.Format.SilenceValue(); silence != 0 {
		for i := range chunk {
			chunk[i] = silence
		}
	}
	return chunk
}
