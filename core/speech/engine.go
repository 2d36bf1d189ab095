// Package speech implements the speech engine: it owns the recognition and
// synthesis device handles, reconciles interim and final recognition results
// and drives the status machine that the turn orchestrator layers over.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voco-dev/voco/core/audio"
	"github.com/voco-dev/voco/core/recognition"
	"github.com/voco-dev/voco/core/synthesis"
)

// Recognizer is the platform recognition capability. Implementations deliver
// result batches, errors and end-of-capture through the callbacks registered
// via Listen; one Listen call covers one listening session.
type Recognizer interface {
	Listen(ctx context.Context, opts ...recognition.ListenOption) error
	Stop() error
	SendAudio(audio []byte) error
}

// Synthesizer renders one utterance of text as speech, blocking until the
// utterance completes or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts ...synthesis.SpeakOption) error
}

// AudioOutput receives synthesized audio chunks for playback.
type AudioOutput interface {
	SendAudio(audio []byte) error
}

type speakHandle struct {
	cancel context.CancelFunc
}

// Engine wraps the recognition and synthesis devices behind a status-driven
// contract. All state transitions go through the engine; callers observe
// them through Status and the optional status callback, never through
// callbacks thrown as errors.
type Engine struct {
	mu         sync.Mutex
	status     Status
	errCode    ErrorCode
	errMessage string

	recognizer   Recognizer
	synthesizer  Synthesizer
	audioOutput  AudioOutput
	capabilities Capabilities
	language     string
	voice        synthesis.Voice
	encodingInfo audio.EncodingInfo

	// session identifies the active listening session. Callbacks carry the
	// session they were registered under; stale ones are dropped so an end
	// or error event from a previous session cannot corrupt the status.
	session uuid.UUID

	activeSpeak *speakHandle

	onStatus    func(status Status, errCode ErrorCode, errMessage string)
	baseContext context.Context
	closeOnce   sync.Once
	closed      bool
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		status:       StatusIdle,
		language:     "en-US",
		voice:        synthesis.DefaultVoice(),
		encodingInfo: audio.GetDefaultEncodingInfo(),
		baseContext:  context.Background(),
		onStatus:     func(Status, ErrorCode, string) {},
	}

	for _, opt := range opts {
		opt(e)
	}

	// Capability is probed once: a recognizer does not appear mid-session.
	e.capabilities = Capabilities{
		Microphone:      e.recognizer != nil,
		SpeechSynthesis: e.synthesizer != nil,
	}
	if e.recognizer == nil {
		e.status = StatusUnsupported
		e.errCode = ErrorUnsupported
		e.errMessage = ErrorUnsupported.message()
	}

	return e
}

// transition must be called with e.mu held. The status callback is invoked
// under the lock and must not call back into the engine.
func (e *Engine) transition(status Status) {
	e.status = status
	e.onStatus(status, e.errCode, e.errMessage)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the code and human-readable message of the last error, or
// empty values when the engine is not in an error state.
func (e *Engine) Err() (ErrorCode, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errCode, e.errMessage
}

func (e *Engine) Capabilities() Capabilities {
	return e.capabilities
}

// StartListening begins a capture session and registers the two result
// callbacks. It returns false without side effects when no recognizer is
// available, and false after recording an error when the device fails to
// start. onFinal's error return is absorbed into the error status so a
// failing response cycle cannot crash the engine.
func (e *Engine) StartListening(onFinal func(transcript string) error, onSegment func(segment Segment)) bool {
	e.mu.Lock()
	if e.closed || e.recognizer == nil {
		e.mu.Unlock()
		return false
	}

	session := uuid.New()
	e.session = session
	recognizer := e.recognizer
	ctx := e.baseContext
	language := e.language
	encodingInfo := e.encodingInfo
	e.mu.Unlock()

	err := recognizer.Listen(ctx,
		recognition.WithLanguage(language),
		recognition.WithEncodingInfo(encodingInfo),
		recognition.WithResultCallback(func(batch recognition.Batch) {
			e.handleBatch(session, batch, onFinal, onSegment)
		}),
		recognition.WithErrorCallback(func(code, message string) {
			e.handleError(session, code, message)
		}),
		recognition.WithEndCallback(func() {
			e.handleEnd(session)
		}),
	)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != session {
		// Stopped or closed while the device was starting.
		return false
	}
	if err != nil {
		e.session = uuid.Nil
		e.errCode = ErrorUnknown
		if errors.Is(err, context.Canceled) {
			e.errCode = ErrorAborted
		}
		e.errMessage = fmt.Sprintf("failed to start capture: %v", err)
		e.transition(StatusError)
		return false
	}

	e.errCode = ""
	e.errMessage = ""
	e.transition(StatusListening)
	return true
}

// StopListening aborts the capture session without emitting a final
// transcript for the partial utterance. Idempotent; safe when not listening.
func (e *Engine) StopListening() {
	e.mu.Lock()
	if e.closed || e.session == uuid.Nil {
		e.mu.Unlock()
		return
	}

	e.session = uuid.Nil
	recognizer := e.recognizer
	if e.status == StatusListening {
		e.transition(StatusIdle)
	}
	e.mu.Unlock()

	if err := recognizer.Stop(); err != nil {
		span := trace.SpanFromContext(e.baseContext)
		span.RecordError(fmt.Errorf("failed to stop capture: %w", err))
	}
}

func (e *Engine) handleBatch(session uuid.UUID, batch recognition.Batch, onFinal func(string) error, onSegment func(Segment)) {
	e.mu.Lock()
	if e.closed || e.session != session {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	segment, finalTranscript := reconcile(batch)
	if onSegment != nil {
		onSegment(segment)
	}
	if !segment.IsFinal {
		return
	}

	e.mu.Lock()
	if e.closed || e.session != session {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if onFinal == nil {
		return
	}
	e.Process(func() error {
		return onFinal(finalTranscript)
	})
}

// Process runs one response cycle: status moves to processing, fn runs, and
// its failure is absorbed into the error status instead of propagating. The
// engine stays usable afterwards. Process also serves text submitted
// directly, which follows the same cycle without a listening session.
func (e *Engine) Process(fn func() error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.transition(StatusProcessing)
	e.mu.Unlock()

	err := fn()

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.errCode = ErrorUnknown
		e.errMessage = fmt.Sprintf("failed to produce a response: %v", err)
		e.transition(StatusError)
		return
	}
	if e.status == StatusProcessing {
		// Text turns run even without a recognizer; unsupported stays the
		// resting status for such engines.
		if e.recognizer == nil {
			e.errCode = ErrorUnsupported
			e.errMessage = ErrorUnsupported.message()
			e.transition(StatusUnsupported)
			return
		}
		e.transition(StatusIdle)
	}
}

func (e *Engine) handleError(session uuid.UUID, code, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.session != session {
		return
	}

	e.session = uuid.Nil
	e.errCode = mapErrorCode(code)
	if message == "" {
		message = e.errCode.message()
	}
	e.errMessage = message
	e.transition(StatusError)
}

func (e *Engine) handleEnd(session uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.session != session {
		return
	}

	e.session = uuid.Nil
	// End-of-capture racing with a synthesis turn must not clobber it, and
	// a response error from this session's final transcript stays visible
	// until the next session starts.
	if e.status == StatusSpeaking || e.status == StatusError {
		return
	}
	e.transition(StatusIdle)
}

// Speak renders text as speech, suspending the caller until the utterance
// finishes or is superseded. Starting a new Speak call cancels any in-flight
// synthesis; the superseded call resolves without error so no turn is left
// waiting. With no synthesizer configured, Speak is a silent no-op.
func (e *Engine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	if e.closed || e.synthesizer == nil {
		e.mu.Unlock()
		return nil
	}

	if e.activeSpeak != nil {
		e.activeSpeak.cancel()
	}
	speakCtx, cancel := context.WithCancel(ctx)
	call := &speakHandle{cancel: cancel}
	e.activeSpeak = call
	synthesizer := e.synthesizer
	voice := e.voice
	encodingInfo := e.encodingInfo
	sink := e.audioOutput
	e.transition(StatusSpeaking)
	e.mu.Unlock()

	opts := []synthesis.SpeakOption{
		synthesis.WithVoice(voice),
		synthesis.WithEncodingInfo(encodingInfo),
	}
	if sink != nil {
		opts = append(opts, synthesis.WithAudioCallback(func(chunk []byte) {
			if err := sink.SendAudio(chunk); err != nil {
				logger.Warn("failed to play synthesized audio", "error", err)
			}
		}))
	}

	err := synthesizer.Speak(speakCtx, text, opts...)
	cancel()

	e.mu.Lock()
	if e.activeSpeak == call {
		e.activeSpeak = nil
		if e.status == StatusSpeaking {
			e.transition(StatusIdle)
		}
	}
	e.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}
	return nil
}

// Close tears the engine down, releasing the recognition and synthesis
// device handles on every exit path. No callbacks fire afterwards.
func (e *Engine) Close() error {
	var closeErr error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.session = uuid.Nil
		if e.activeSpeak != nil {
			e.activeSpeak.cancel()
			e.activeSpeak = nil
		}
		recognizer := e.recognizer
		synthesizer := e.synthesizer
		e.mu.Unlock()

		if recognizer != nil {
			if err := recognizer.Stop(); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("failed to stop capture: %w", err))
			}
			if err := closeDevice(recognizer); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("failed to release recognition device: %w", err))
			}
		}
		if synthesizer != nil {
			if err := closeDevice(synthesizer); err != nil {
				closeErr = errors.Join(closeErr, fmt.Errorf("failed to release synthesis device: %w", err))
			}
		}

		if closeErr != nil {
			span := trace.SpanFromContext(e.baseContext)
			span.RecordError(closeErr)
			span.SetStatus(codes.Error, closeErr.Error())
		}
	})
	return closeErr
}

// closeDevice releases a device handle through whichever close method the
// implementation exposes.
func closeDevice(device any) error {
	switch d := device.(type) {
	case interface{ Close(context.Context) error }:
		return d.Close(context.Background())
	case interface{ Close(context.Context) }:
		d.Close(context.Background())
	case interface{ Close() error }:
		return d.Close()
	case interface{ Close() }:
		d.Close()
	}
	return nil
}

// SendAudio forwards captured microphone audio to the recognizer. Chunks
// arriving outside a listening session are dropped.
func (e *Engine) SendAudio(chunk []byte) error {
	e.mu.Lock()
	recognizer := e.recognizer
	active := e.session != uuid.Nil
	e.mu.Unlock()

	if recognizer == nil || !active {
		return nil
	}
	return recognizer.SendAudio(chunk)
}
