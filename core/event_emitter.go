package orchestration

import (
	"github.com/voco-dev/voco/core/events"
	"github.com/voco-dev/voco/core/speech"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

type callbackOptions struct {
	onStatusChanged   func(status speech.Status)
	onInterim         func(transcript string)
	onMessageAppended func(role, content string)
	onThinkingChanged func(thinking bool)
	onError           func(code speech.ErrorCode, message string)
}

// newCallbackEventEmitter adapts per-concern callbacks over the event
// stream, then forwards every event to next.
func newCallbackEventEmitter(opts callbackOptions, next eventEmitter) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.StatusChanged:
			if opts.onStatusChanged != nil {
				opts.onStatusChanged(speech.Status(typedEvent.Status))
			}
		case events.InterimUpdated:
			if opts.onInterim != nil {
				opts.onInterim(typedEvent.Transcript)
			}
		case events.MessageAppended:
			if opts.onMessageAppended != nil {
				opts.onMessageAppended(typedEvent.Role, typedEvent.Content)
			}
		case events.ThinkingChanged:
			if opts.onThinkingChanged != nil {
				opts.onThinkingChanged(typedEvent.Thinking)
			}
		case events.EngineError:
			if opts.onError != nil {
				opts.onError(speech.ErrorCode(typedEvent.Code), typedEvent.Message)
			}
		}
		next(event)
	}
}
