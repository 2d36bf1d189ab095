package speech

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/voco-dev/voco/core/recognition"
	"github.com/voco-dev/voco/core/synthesis"
)

type stubRecognizer struct {
	listenErr error
	opts      recognition.ListenOptions

	stopCalls      atomic.Int32
	closeCalls     atomic.Int32
	sendAudioCalls atomic.Int32
}

func (r *stubRecognizer) Listen(_ context.Context, opts ...recognition.ListenOption) error {
	r.opts = recognition.ListenOptions{}
	for _, opt := range opts {
		opt(&r.opts)
	}
	return r.listenErr
}

func (r *stubRecognizer) Stop() error {
	r.stopCalls.Add(1)
	return nil
}

func (r *stubRecognizer) SendAudio(audio []byte) error {
	r.sendAudioCalls.Add(1)
	return nil
}

func (r *stubRecognizer) Close() {
	r.closeCalls.Add(1)
}

type stubSynthesizer struct {
	speak func(ctx context.Context, text string) error
}

func (s *stubSynthesizer) Speak(ctx context.Context, text string, _ ...synthesis.SpeakOption) error {
	if s.speak == nil {
		return nil
	}
	return s.speak(ctx, text)
}

func finalBatch(transcripts ...string) recognition.Batch {
	results := make([]recognition.Result, 0, len(transcripts))
	for _, transcript := range transcripts {
		results = append(results, result(transcript, true))
	}
	return recognition.Batch{Results: results}
}

func TestNewEngineWithoutRecognizerIsUnsupported(t *testing.T) {
	e := NewEngine()

	if got := e.Status(); got != StatusUnsupported {
		t.Fatalf("expected unsupported status, got %q", got)
	}
	if e.Capabilities().Microphone {
		t.Fatalf("expected no microphone capability")
	}
	code, message := e.Err()
	if code != ErrorUnsupported || message == "" {
		t.Fatalf("expected unsupported error details, got %q %q", code, message)
	}

	if e.StartListening(nil, nil) {
		t.Fatalf("expected listening to be refused without a recognizer")
	}
	if got := e.Status(); got != StatusUnsupported {
		t.Fatalf("expected unsupported to be permanent, got %q", got)
	}
}

func TestStartListeningTransitionsToListening(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	if !e.StartListening(nil, nil) {
		t.Fatalf("expected listening to start")
	}
	if got := e.Status(); got != StatusListening {
		t.Fatalf("expected listening status, got %q", got)
	}
	if recognizer.opts.Language != "en-US" {
		t.Fatalf("expected default language forwarded, got %q", recognizer.opts.Language)
	}
}

func TestStartListeningDeviceFailureRecordsError(t *testing.T) {
	recognizer := &stubRecognizer{listenErr: errors.New("device busy")}
	e := NewEngine(WithRecognizer(recognizer))

	if e.StartListening(nil, nil) {
		t.Fatalf("expected listening to fail")
	}
	if got := e.Status(); got != StatusError {
		t.Fatalf("expected error status, got %q", got)
	}
	code, _ := e.Err()
	if code != ErrorUnknown {
		t.Fatalf("expected unknown error code, got %q", code)
	}
}

func TestStartListeningCancelledContextMapsToAborted(t *testing.T) {
	recognizer := &stubRecognizer{listenErr: context.Canceled}
	e := NewEngine(WithRecognizer(recognizer))

	e.StartListening(nil, nil)

	code, _ := e.Err()
	if code != ErrorAborted {
		t.Fatalf("expected aborted error code, got %q", code)
	}
}

func TestListeningClearsPreviousError(t *testing.T) {
	recognizer := &stubRecognizer{listenErr: errors.New("boom")}
	e := NewEngine(WithRecognizer(recognizer))
	e.StartListening(nil, nil)

	recognizer.listenErr = nil
	if !e.StartListening(nil, nil) {
		t.Fatalf("expected retry to succeed")
	}
	code, message := e.Err()
	if code != "" || message != "" {
		t.Fatalf("expected error cleared on a new session, got %q %q", code, message)
	}
}

func TestInterimBatchDoesNotTriggerFinalCallback(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	finalCalls := atomic.Int32{}
	var segments []Segment
	e.StartListening(
		func(string) error { finalCalls.Add(1); return nil },
		func(segment Segment) { segments = append(segments, segment) },
	)

	recognizer.opts.ResultCallback(recognition.Batch{
		Results: []recognition.Result{result("hello", false)},
	})

	if got := finalCalls.Load(); got != 0 {
		t.Fatalf("expected no final callback for an interim batch, got %d", got)
	}
	if len(segments) != 1 || segments[0].InterimTranscript != "hello" || segments[0].IsFinal {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if got := e.Status(); got != StatusListening {
		t.Fatalf("expected to keep listening, got %q", got)
	}
}

func TestFinalBatchTriggersFinalCallbackExactlyOnce(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	finalCalls := atomic.Int32{}
	var finalTranscript string
	e.StartListening(func(transcript string) error {
		finalCalls.Add(1)
		finalTranscript = transcript
		return nil
	}, nil)

	recognizer.opts.ResultCallback(finalBatch("hello world"))

	if got := finalCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one final callback, got %d", got)
	}
	if finalTranscript != "hello world" {
		t.Fatalf("expected final transcript %q, got %q", "hello world", finalTranscript)
	}
	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle after the response cycle, got %q", got)
	}
}

func TestFinalCallbackFailureBecomesErrorStatus(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	e.StartListening(func(string) error {
		return errors.New("responder unavailable")
	}, nil)
	recognizer.opts.ResultCallback(finalBatch("hello"))

	if got := e.Status(); got != StatusError {
		t.Fatalf("expected error status, got %q", got)
	}
	code, message := e.Err()
	if code != ErrorUnknown || message == "" {
		t.Fatalf("expected absorbed response error, got %q %q", code, message)
	}

	// The error is recoverable; a new session starts cleanly.
	if !e.StartListening(nil, nil) {
		t.Fatalf("expected listening to restart after a response error")
	}
}

func TestWhitespaceOnlyFinalBatchDeliversEmptyTranscript(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	var finalTranscript string
	finalCalls := atomic.Int32{}
	e.StartListening(func(transcript string) error {
		finalCalls.Add(1)
		finalTranscript = transcript
		return nil
	}, nil)

	recognizer.opts.ResultCallback(finalBatch("   "))

	if got := finalCalls.Load(); got != 1 {
		t.Fatalf("expected the final callback even for a blank utterance, got %d", got)
	}
	if finalTranscript != "" {
		t.Fatalf("expected empty final transcript, got %q", finalTranscript)
	}
}

func TestStopListeningDropsLaterCallbacks(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	finalCalls := atomic.Int32{}
	e.StartListening(func(string) error { finalCalls.Add(1); return nil }, nil)
	e.StopListening()

	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle after stop, got %q", got)
	}
	if got := recognizer.stopCalls.Load(); got != 1 {
		t.Fatalf("expected the device stopped once, got %d", got)
	}

	// Late callbacks from the aborted session must not resurrect it.
	recognizer.opts.ResultCallback(finalBatch("stale"))
	recognizer.opts.ErrorCallback("network", "socket closed")
	recognizer.opts.EndCallback()

	if got := finalCalls.Load(); got != 0 {
		t.Fatalf("expected no final callback after stop, got %d", got)
	}
	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected stale callbacks to be dropped, got %q", got)
	}
}

func TestStopListeningIsIdempotent(t *testing.T) {
	e := NewEngine(WithRecognizer(&stubRecognizer{}))
	e.StopListening()
	e.StopListening()

	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle, got %q", got)
	}
}

func TestRecognitionErrorMapsPlatformSignal(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))
	e.StartListening(nil, nil)

	recognizer.opts.ErrorCallback("not-allowed", "")

	if got := e.Status(); got != StatusError {
		t.Fatalf("expected error status, got %q", got)
	}
	code, message := e.Err()
	if code != ErrorPermissionDenied {
		t.Fatalf("expected permission-denied, got %q", code)
	}
	if message != ErrorPermissionDenied.message() {
		t.Fatalf("expected the default message for the code, got %q", message)
	}
}

func TestEndOfCaptureReturnsToIdle(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))
	e.StartListening(nil, nil)

	recognizer.opts.EndCallback()

	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle after natural end of capture, got %q", got)
	}
}

func TestEndOfCaptureKeepsResponseError(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	e.StartListening(func(string) error {
		return errors.New("responder unavailable")
	}, nil)
	recognizer.opts.ResultCallback(finalBatch("hello"))
	if got := e.Status(); got != StatusError {
		t.Fatalf("expected error status after the failed response, got %q", got)
	}

	// The recognizer reports end-of-capture for the same session right
	// after the final result; it must not erase the error.
	recognizer.opts.EndCallback()

	if got := e.Status(); got != StatusError {
		t.Fatalf("expected end-of-capture to preserve the error, got %q", got)
	}
	code, message := e.Err()
	if code != ErrorUnknown || message == "" {
		t.Fatalf("expected the response error retained, got %q %q", code, message)
	}
}

func TestEndOfCaptureDoesNotClobberSpeaking(t *testing.T) {
	recognizer := &stubRecognizer{}
	var endCapture func()
	synthesizer := &stubSynthesizer{speak: func(context.Context, string) error {
		endCapture()
		return nil
	}}
	e := NewEngine(WithRecognizer(recognizer), WithSynthesizer(synthesizer))

	e.StartListening(nil, nil)
	endCapture = recognizer.opts.EndCallback

	if err := e.Speak(context.Background(), "reply"); err != nil {
		t.Fatalf("expected speak to succeed, got %v", err)
	}
	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle after the utterance, got %q", got)
	}
}

func TestSpeakWithoutSynthesizerIsNoop(t *testing.T) {
	e := NewEngine(WithRecognizer(&stubRecognizer{}))

	if err := e.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected status unchanged, got %q", got)
	}
}

func TestSpeakSupersededCallResolvesWithoutError(t *testing.T) {
	started := make(chan struct{})
	synthesizer := &stubSynthesizer{speak: func(ctx context.Context, text string) error {
		if text == "first" {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}}
	e := NewEngine(WithRecognizer(&stubRecognizer{}), WithSynthesizer(synthesizer))

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- e.Speak(context.Background(), "first")
	}()
	<-started

	if err := e.Speak(context.Background(), "second"); err != nil {
		t.Fatalf("expected the superseding call to succeed, got %v", err)
	}
	if err := <-firstErr; err != nil {
		t.Fatalf("expected the superseded call to resolve without error, got %v", err)
	}
	if got := e.Status(); got != StatusIdle {
		t.Fatalf("expected idle after both calls, got %q", got)
	}
}

func TestSpeakSynthesisFailureIsReturned(t *testing.T) {
	synthesizer := &stubSynthesizer{speak: func(context.Context, string) error {
		return errors.New("voice model rejected")
	}}
	e := NewEngine(WithRecognizer(&stubRecognizer{}), WithSynthesizer(synthesizer))

	if err := e.Speak(context.Background(), "hello"); err == nil {
		t.Fatalf("expected synthesis failure to be returned")
	}
}

func TestProcessAbsorbsFailureIntoErrorStatus(t *testing.T) {
	e := NewEngine(WithRecognizer(&stubRecognizer{}))

	statuses := []Status{}
	e.onStatus = func(status Status, _ ErrorCode, _ string) {
		statuses = append(statuses, status)
	}

	e.Process(func() error { return nil })
	e.Process(func() error { return errors.New("boom") })

	want := []Status{StatusProcessing, StatusIdle, StatusProcessing, StatusError}
	if len(statuses) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected transitions %v, got %v", want, statuses)
		}
	}
}

func TestProcessWithoutRecognizerRestoresUnsupported(t *testing.T) {
	e := NewEngine()

	e.Process(func() error { return nil })

	if got := e.Status(); got != StatusUnsupported {
		t.Fatalf("expected a text turn to end back in unsupported, got %q", got)
	}
	code, _ := e.Err()
	if code != ErrorUnsupported {
		t.Fatalf("expected the unsupported error retained, got %q", code)
	}
}

func TestSendAudioIsDroppedOutsideSession(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	if err := e.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("expected dropped chunk to succeed, got %v", err)
	}
	if got := recognizer.sendAudioCalls.Load(); got != 0 {
		t.Fatalf("expected no audio forwarded outside a session, got %d", got)
	}

	e.StartListening(nil, nil)
	if err := e.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("expected forwarding to succeed, got %v", err)
	}
	if got := recognizer.sendAudioCalls.Load(); got != 1 {
		t.Fatalf("expected one chunk forwarded, got %d", got)
	}
}

func TestCloseReleasesDevicesAndSilencesCallbacks(t *testing.T) {
	recognizer := &stubRecognizer{}
	e := NewEngine(WithRecognizer(recognizer))

	finalCalls := atomic.Int32{}
	e.StartListening(func(string) error { finalCalls.Add(1); return nil }, nil)

	if err := e.Close(); err != nil {
		t.Fatalf("expected clean close, got %v", err)
	}
	if got := recognizer.stopCalls.Load(); got != 1 {
		t.Fatalf("expected capture stopped on close, got %d", got)
	}
	if got := recognizer.closeCalls.Load(); got != 1 {
		t.Fatalf("expected the device released on close, got %d", got)
	}

	recognizer.opts.ResultCallback(finalBatch("after close"))
	if got := finalCalls.Load(); got != 0 {
		t.Fatalf("expected no callbacks after close, got %d", got)
	}

	if e.StartListening(nil, nil) {
		t.Fatalf("expected listening refused after close")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("expected repeated close to be a no-op, got %v", err)
	}
}
