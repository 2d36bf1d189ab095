package speech

import (
	"context"

	"github.com/voco-dev/voco/core/audio"
	"github.com/voco-dev/voco/core/synthesis"
)

type EngineOption func(*Engine)

// WithRecognizer injects the recognition capability. Leaving it out leaves
// the engine permanently unsupported, which is the deterministic way to
// exercise capability-absent paths.
func WithRecognizer(recognizer Recognizer) EngineOption {
	return func(e *Engine) { e.recognizer = recognizer }
}

func WithSynthesizer(synthesizer Synthesizer) EngineOption {
	return func(e *Engine) { e.synthesizer = synthesizer }
}

// WithAudioOutput routes synthesized audio chunks to a playback device.
func WithAudioOutput(output AudioOutput) EngineOption {
	return func(e *Engine) { e.audioOutput = output }
}

func WithLanguage(language string) EngineOption {
	return func(e *Engine) {
		if language != "" {
			e.language = language
		}
	}
}

func WithVoice(voice synthesis.Voice) EngineOption {
	return func(e *Engine) { e.voice = voice }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) EngineOption {
	return func(e *Engine) {
		if !encodingInfo.IsZero() {
			e.encodingInfo = encodingInfo
		}
	}
}

// WithStatusCallback registers a listener for status transitions. The
// callback runs under the engine lock and must not call back into the
// engine; errCode and errMessage are non-empty only for the error and
// unsupported states.
func WithStatusCallback(callback func(status Status, errCode ErrorCode, errMessage string)) EngineOption {
	return func(e *Engine) {
		if callback != nil {
			e.onStatus = callback
		}
	}
}

// WithContext sets the base context used for device operations; cancelling
// it is equivalent to tearing the engine down.
func WithContext(ctx context.Context) EngineOption {
	return func(e *Engine) {
		if ctx != nil {
			e.baseContext = ctx
		}
	}
}
