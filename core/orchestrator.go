// Package orchestration sequences conversation turns: it bridges the speech
// engine's transcript events to a response generator and serializes
// listening and speaking so they never overlap.
package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voco-dev/voco/core/events"
	"github.com/voco-dev/voco/core/respond"
	"github.com/voco-dev/voco/core/speech"
)

// Responder maps a finalized utterance to a reply. It is the orchestrator's
// only view of the response generator.
type Responder interface {
	Generate(text string) (respond.Response, error)
}

const (
	DefaultThinkingDelay = 600 * time.Millisecond
	DefaultGreeting      = "Hi! I'm Voco. Start listening and talk to me, or type below."
)

// Orchestrator owns the conversation log and cycles Idle, Listening,
// Responding and Speaking for the lifetime of the session. It never touches
// the recognition or synthesis devices directly, only through the engine.
type Orchestrator struct {
	engine     *speech.Engine
	responder  Responder
	audioInput *audioInput

	conversation conversationLog

	mu       sync.Mutex
	interim  string
	thinking bool

	// turnMu serializes response cycles: at most one final transcript is
	// processed at a time. pendingTurns counts cycles that have been
	// accepted but not finished, including ones still queued on turnMu;
	// the listening gate checks it because the engine status alone cannot
	// see queued turns.
	turnMu       sync.Mutex
	pendingTurns atomic.Int32

	thinkingDelay    time.Duration
	greeting         string
	engineOptions    []speech.EngineOption
	audioInputClient AudioInput

	emitEvent   eventEmitter
	callbacks   callbackOptions
	baseContext context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		thinkingDelay: DefaultThinkingDelay,
		greeting:      DefaultGreeting,
		emitEvent:     noopEventEmitter,
		baseContext:   ctx,
		cancel:        cancel,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.responder == nil {
		o.responder = respond.NewGenerator()
	}
	o.emitEvent = newCallbackEventEmitter(o.callbacks, o.emitEvent)

	engineOptions := append([]speech.EngineOption{
		speech.WithContext(o.baseContext),
		speech.WithStatusCallback(o.handleStatus),
	}, o.engineOptions...)
	o.engine = speech.NewEngine(engineOptions...)

	o.audioInput = newAudioInput(o.audioInputClient, func(chunk []byte) {
		if err := o.engine.SendAudio(chunk); err != nil {
			logger.Warn("failed to forward captured audio", "error", err)
		}
	})

	if o.greeting != "" {
		o.emitMessage(o.conversation.append(RoleAssistant, o.greeting))
	}

	return o
}

// ToggleListening starts or stops a listening turn. It is a no-op without a
// microphone capability and never starts a turn while a response is being
// produced or spoken.
func (o *Orchestrator) ToggleListening() {
	if !o.engine.Capabilities().Microphone {
		return
	}

	switch o.engine.Status() {
	case speech.StatusListening:
		o.stopListening()
	case speech.StatusProcessing, speech.StatusSpeaking:
		// Listening and speaking are strictly turn-exclusive.
		return
	default:
		if o.IsThinking() || o.pendingTurns.Load() > 0 {
			return
		}
		o.startListening()
	}
}

func (o *Orchestrator) startListening() {
	if started := o.engine.StartListening(o.handleFinal, o.handleSegment); !started {
		return
	}

	if err := o.audioInput.StartCapture(o.baseContext); err != nil {
		span := trace.SpanFromContext(o.baseContext)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.engine.StopListening()
	}
}

func (o *Orchestrator) stopListening() {
	if err := o.audioInput.StopCapture(); err != nil {
		logger.Warn("failed to stop audio capture", "error", err)
	}
	o.engine.StopListening()
	o.setInterim("")
}

// SubmitText runs a turn for text that did not come from the recognizer. It
// stays available as the fallback input path whatever the engine status is.
func (o *Orchestrator) SubmitText(content string) {
	text := strings.TrimSpace(content)
	if text == "" {
		return
	}

	o.pendingTurns.Add(1)
	go o.engine.Process(func() error {
		defer o.pendingTurns.Add(-1)
		return o.respondTo(text)
	})
}

func (o *Orchestrator) handleSegment(segment speech.Segment) {
	o.setInterim(segment.InterimTranscript)
}

// handleFinal is the engine's final-transcript callback. Whitespace-only
// transcripts produce no message and no response cycle.
func (o *Orchestrator) handleFinal(transcript string) error {
	o.pendingTurns.Add(1)
	defer o.pendingTurns.Add(-1)

	o.setInterim("")
	if err := o.audioInput.StopCapture(); err != nil {
		logger.Warn("failed to stop audio capture", "error", err)
	}

	text := strings.TrimSpace(transcript)
	if text == "" {
		return nil
	}
	return o.respondTo(text)
}

func (o *Orchestrator) handleStatus(status speech.Status, errCode speech.ErrorCode, errMessage string) {
	o.emitEvent(events.NewStatusChanged(string(status)))
	if status == speech.StatusError {
		o.emitEvent(events.NewEngineError(string(errCode), errMessage))
	}
}

func (o *Orchestrator) setInterim(transcript string) {
	o.mu.Lock()
	changed := o.interim != transcript
	o.interim = transcript
	o.mu.Unlock()

	if changed {
		o.emitEvent(events.NewInterimUpdated(transcript))
	}
}

func (o *Orchestrator) setThinking(thinking bool) {
	o.mu.Lock()
	changed := o.thinking != thinking
	o.thinking = thinking
	o.mu.Unlock()

	if changed {
		o.emitEvent(events.NewThinkingChanged(thinking))
	}
}

func (o *Orchestrator) emitMessage(message Message) {
	o.emitEvent(events.NewMessageAppended(
		message.ID.String(), string(message.Role), message.Content, message.Timestamp))
}

// Status returns the engine status the UI gates its affordances on.
func (o *Orchestrator) Status() speech.Status { return o.engine.Status() }

// Err returns the code and message of the last engine error, if any.
func (o *Orchestrator) Err() (speech.ErrorCode, string) { return o.engine.Err() }

func (o *Orchestrator) Capabilities() speech.Capabilities { return o.engine.Capabilities() }

// Messages returns a point-in-time copy of the conversation log.
func (o *Orchestrator) Messages() []Message { return o.conversation.Snapshot() }

func (o *Orchestrator) InterimTranscript() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interim
}

func (o *Orchestrator) IsThinking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.thinking
}

// Close tears the session down: capture stops, device handles are released
// and any suspended synthesis resolves. Safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.cancel()

		if err := o.audioInput.Close(); err != nil {
			recordedErr := fmt.Errorf("failed to close audio input: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		if err := o.engine.Close(); err != nil {
			recordedErr := fmt.Errorf("failed to close speech engine: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
	})
}
