// Package synthesis defines the contract between the speech engine and a
// speech synthesizer. A synthesizer turns one utterance of text into audio,
// streaming chunks to a callback until the utterance finishes or is
// cancelled.
package synthesis

import "github.com/voco-dev/voco/core/audio"

// Voice configures how an utterance is rendered. Rate and Pitch are
// multipliers around the synthesizer's natural voice; not every backend
// honors both knobs.
type Voice struct {
	Model string
	Rate  float64
	Pitch float64
}

const DefaultVoiceModel = "aura-2-thalia-en"

func DefaultVoice() Voice {
	return Voice{Model: DefaultVoiceModel, Rate: 1.0, Pitch: 1.0}
}

type SpeakOptions struct {
	// AudioCallback is called for every audio chunk the synthesizer
	// produces, in playback order.
	AudioCallback func(audio []byte)
	// ErrorCallback is called when the synthesizer encounters an error, this
	// usually means the utterance has been cancelled.
	ErrorCallback func(error)

	Voice        Voice
	EncodingInfo audio.EncodingInfo
}

type SpeakOption func(*SpeakOptions)

func WithAudioCallback(callback func(audio []byte)) SpeakOption {
	return func(o *SpeakOptions) {
		o.AudioCallback = callback
	}
}

func WithErrorCallback(callback func(error)) SpeakOption {
	return func(o *SpeakOptions) {
		o.ErrorCallback = callback
	}
}

func WithVoice(voice Voice) SpeakOption {
	return func(o *SpeakOptions) {
		if voice.Model != "" {
			o.Voice.Model = voice.Model
		}
		if voice.Rate > 0 {
			o.Voice.Rate = voice.Rate
		}
		if voice.Pitch > 0 {
			o.Voice.Pitch = voice.Pitch
		}
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SpeakOption {
	return func(o *SpeakOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}
