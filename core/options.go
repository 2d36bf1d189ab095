package orchestration

import (
	"context"
	"time"

	"github.com/voco-dev/voco/core/events"
	"github.com/voco-dev/voco/core/speech"
	"github.com/voco-dev/voco/core/synthesis"
)

type OrchestratorOption func(*Orchestrator)

func WithRecognizer(recognizer speech.Recognizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, speech.WithRecognizer(recognizer))
	}
}

func WithSynthesizer(synthesizer speech.Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, speech.WithSynthesizer(synthesizer))
	}
}

// AudioInput is a microphone capture client. Capture runs only while a
// listening turn is active.
type AudioInput interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInputClient = client }
}

// WithAudioOutput routes synthesized audio to a playback device.
func WithAudioOutput(output speech.AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, speech.WithAudioOutput(output))
	}
}

func WithLanguage(language string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, speech.WithLanguage(language))
	}
}

func WithVoice(voice synthesis.Voice) OrchestratorOption {
	return func(o *Orchestrator) {
		o.engineOptions = append(o.engineOptions, speech.WithVoice(voice))
	}
}

func WithResponder(responder Responder) OrchestratorOption {
	return func(o *Orchestrator) {
		if responder != nil {
			o.responder = responder
		}
	}
}

// WithThinkingDelay sets the artificial pause before a reply. Zero disables
// it; negative values are clamped to zero.
func WithThinkingDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if delay < 0 {
			delay = 0
		}
		o.thinkingDelay = delay
	}
}

// WithGreeting replaces the message the log is seeded with. An empty
// greeting leaves the log empty at session start.
func WithGreeting(greeting string) OrchestratorOption {
	return func(o *Orchestrator) { o.greeting = greeting }
}

// WithEventHandler registers a handler for every orchestration event. The
// handler is called from whichever goroutine produced the event and should
// hand off quickly.
func WithEventHandler(handler func(event events.Event)) OrchestratorOption {
	return func(o *Orchestrator) {
		if handler != nil {
			o.emitEvent = handler
		}
	}
}

func WithStatusChangedCallback(callback func(status speech.Status)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onStatusChanged = callback }
}

func WithInterimCallback(callback func(transcript string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onInterim = callback }
}

func WithMessageAppendedCallback(callback func(role, content string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onMessageAppended = callback }
}

func WithThinkingChangedCallback(callback func(thinking bool)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onThinkingChanged = callback }
}

func WithErrorCallback(callback func(code speech.ErrorCode, message string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onError = callback }
}
