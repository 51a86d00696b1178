package deepgram

import "github.com/koscakluka/ema-live/core/texttospeech"

type auraVoice struct {
	texttospeech.Voice
	model string
}

var auraVoices = []auraVoice{
	{Voice: texttospeech.Voice{Name: "asteria", Language: "en-US", Default: true}, model: "aura-2-asteria-en"},
	{Voice: texttospeech.Voice{Name: "thalia", Language: "en-US"}, model: "aura-2-thalia-en"},
	{Voice: texttospeech.Voice{Name: "luna", Language: "en-US"}, model: "aura-2-luna-en"},
	{Voice: texttospeech.Voice{Name: "orion", Language: "en-US"}, model: "aura-2-orion-en"},
	{Voice: texttospeech.Voice{Name: "arcas", Language: "en-US"}, model: "aura-2-arcas-en"},
	{Voice: texttospeech.Voice{Name: "draco", Language: "en-GB"}, model: "aura-2-draco-en"},
	{Voice: texttospeech.Voice{Name: "pandora", Language: "en-GB"}, model: "aura-2-pandora-en"},
	{Voice: texttospeech.Voice{Name: "hyperion", Language: "en-AU"}, model: "aura-2-hyperion-en"},
	{Voice: texttospeech.Voice{Name: "celeste", Language: "es-CO"}, model: "aura-2-celeste-es"},
	{Voice: texttospeech.Voice{Name: "nestor", Language: "es-ES"}, model: "aura-2-nestor-es"},
}

// modelFor maps a voice name to its Aura model. Unknown names get the
// default voice.
func modelFor(name string) string {
	for _, voice := range auraVoices {
		if voice.Name == name {
			return voice.model
		}
	}
	for _, voice := range auraVoices {
		if voice.Default {
			return voice.model
		}
	}
	return auraVoices[0].model
}
