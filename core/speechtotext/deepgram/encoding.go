package deepgram

import (
	"fmt"

	"github.com/koscakluka/ema-live/core/audio"
)

func convertEncoding(encoding audio.EncodingInfo) (audio.EncodingInfo, error) {
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return audio.EncodingInfo{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.FormatLinear16:
	case audio.FormatALaw, audio.FormatMulaw:
		if encoding.SampleRate != 8000 {
			return audio.EncodingInfo{}, fmt.Errorf("unsupported sample rate %d for %s encoding", encoding.SampleRate, encoding.Format)
		}
	default:
		return audio.EncodingInfo{}, fmt.Errorf("unsupported encoding %q", encoding.Format)
	}

	return encoding, nil
}
