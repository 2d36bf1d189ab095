package orchestration

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voco-dev/voco/core/recognition"
	"github.com/voco-dev/voco/core/respond"
	"github.com/voco-dev/voco/core/speech"
)

type stubRecognizer struct {
	listenErr   error
	opts        recognition.ListenOptions
	listenCalls atomic.Int32
	stopCalls   atomic.Int32
}

func (r *stubRecognizer) Listen(_ context.Context, opts ...recognition.ListenOption) error {
	r.listenCalls.Add(1)
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

func (r *stubRecognizer) SendAudio([]byte) error { return nil }

type stubCapture struct {
	startErr   error
	startCalls atomic.Int32
	stopCalls  atomic.Int32
	onAudio    func(audio []byte)
}

func (c *stubCapture) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.startCalls.Add(1)
	c.onAudio = onAudio
	return c.startErr
}

func (c *stubCapture) StopCapture() error {
	c.stopCalls.Add(1)
	return nil
}

type stubResponder struct {
	generate func(text string) (respond.Response, error)
}

func (r *stubResponder) Generate(text string) (respond.Response, error) {
	if r.generate == nil {
		return respond.Response{Text: "ok"}, nil
	}
	return r.generate(text)
}

type appendedMessage struct {
	role    string
	content string
}

func waitForMessage(t *testing.T, ch <-chan appendedMessage) appendedMessage {
	t.Helper()
	select {
	case message := <-ch:
		return message
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for a message")
		return appendedMessage{}
	}
}

func waitForStatus(t *testing.T, ch <-chan speech.Status, want speech.Status) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case status := <-ch:
			if status == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

func finalBatch(transcript string) recognition.Batch {
	return recognition.Batch{Results: []recognition.Result{{
		Alternatives: []recognition.Alternative{{Transcript: transcript, Confidence: 0.9}},
		IsFinal:      true,
	}}}
}

func interimBatch(transcript string) recognition.Batch {
	return recognition.Batch{Results: []recognition.Result{{
		Alternatives: []recognition.Alternative{{Transcript: transcript, Confidence: 0.5}},
	}}}
}

func TestNewOrchestratorSeedsGreeting(t *testing.T) {
	o := NewOrchestrator()
	defer o.Close()

	messages := o.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected the greeting message, got %d messages", len(messages))
	}
	if messages[0].Role != RoleAssistant || messages[0].Content != DefaultGreeting {
		t.Fatalf("unexpected greeting message %+v", messages[0])
	}
}

func TestWithGreetingEmptyDisablesSeed(t *testing.T) {
	o := NewOrchestrator(WithGreeting(""))
	defer o.Close()

	if got := len(o.Messages()); got != 0 {
		t.Fatalf("expected an empty log, got %d messages", got)
	}
}

func TestToggleListeningIsNoopWithoutMicrophone(t *testing.T) {
	o := NewOrchestrator()
	defer o.Close()

	before := len(o.Messages())
	o.ToggleListening()

	if got := o.Status(); got != speech.StatusUnsupported {
		t.Fatalf("expected unsupported status untouched, got %q", got)
	}
	if got := len(o.Messages()); got != before {
		t.Fatalf("expected the log untouched, got %d messages", got)
	}
}

func TestToggleListeningStartsAndStopsCapture(t *testing.T) {
	recognizer := &stubRecognizer{}
	capture := &stubCapture{}
	o := NewOrchestrator(WithRecognizer(recognizer), WithAudioInput(capture))
	defer o.Close()

	o.ToggleListening()
	if got := o.Status(); got != speech.StatusListening {
		t.Fatalf("expected listening, got %q", got)
	}
	if got := capture.startCalls.Load(); got != 1 {
		t.Fatalf("expected capture started once, got %d", got)
	}

	o.ToggleListening()
	if got := o.Status(); got != speech.StatusIdle {
		t.Fatalf("expected idle after the second toggle, got %q", got)
	}
	if got := capture.stopCalls.Load(); got != 1 {
		t.Fatalf("expected capture stopped once, got %d", got)
	}
	if got := recognizer.stopCalls.Load(); got != 1 {
		t.Fatalf("expected the recognizer stopped once, got %d", got)
	}
}

func TestCaptureFailureRollsBackListening(t *testing.T) {
	recognizer := &stubRecognizer{}
	capture := &stubCapture{startErr: errors.New("device claimed")}
	o := NewOrchestrator(WithRecognizer(recognizer), WithAudioInput(capture))
	defer o.Close()

	o.ToggleListening()

	if got := o.Status(); got != speech.StatusIdle {
		t.Fatalf("expected rollback to idle, got %q", got)
	}
	if got := recognizer.stopCalls.Load(); got != 1 {
		t.Fatalf("expected the recognizer session aborted, got %d stops", got)
	}
}

func TestSubmitTextRunsFullTurn(t *testing.T) {
	messages := make(chan appendedMessage, 8)
	statuses := make(chan speech.Status, 8)
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithRecognizer(&stubRecognizer{}),
		WithMessageAppendedCallback(func(role, content string) {
			messages <- appendedMessage{role: role, content: content}
		}),
		WithStatusChangedCallback(func(status speech.Status) {
			statuses <- status
		}),
	)
	defer o.Close()

	o.SubmitText("  hello there  ")

	user := waitForMessage(t, messages)
	if user.role != string(RoleUser) || user.content != "hello there" {
		t.Fatalf("expected the trimmed user message first, got %+v", user)
	}

	assistant := waitForMessage(t, messages)
	if assistant.role != string(RoleAssistant) {
		t.Fatalf("expected an assistant reply, got %+v", assistant)
	}
	if !strings.Contains(assistant.content, respond.DefaultAssistantName) {
		t.Fatalf("expected the default greeting reply, got %q", assistant.content)
	}

	waitForStatus(t, statuses, speech.StatusIdle)

	log := o.Messages()
	if len(log) != 2 {
		t.Fatalf("expected user and assistant messages in the log, got %d", len(log))
	}
}

func TestSubmitTextIgnoresBlankInput(t *testing.T) {
	o := NewOrchestrator(WithGreeting(""))
	defer o.Close()

	o.SubmitText("   \n\t ")

	if got := len(o.Messages()); got != 0 {
		t.Fatalf("expected no messages for blank input, got %d", got)
	}
	if got := o.Status(); got != speech.StatusUnsupported {
		t.Fatalf("expected status untouched, got %q", got)
	}
}

func TestResponderFailureKeepsUserMessage(t *testing.T) {
	statuses := make(chan speech.Status, 8)
	responder := &stubResponder{generate: func(string) (respond.Response, error) {
		return respond.Response{}, errors.New("model unavailable")
	}}
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithResponder(responder),
		WithStatusChangedCallback(func(status speech.Status) {
			statuses <- status
		}),
	)
	defer o.Close()

	o.SubmitText("hello")
	waitForStatus(t, statuses, speech.StatusError)

	log := o.Messages()
	if len(log) != 1 || log[0].Role != RoleUser {
		t.Fatalf("expected only the user message to survive, got %+v", log)
	}
	code, message := o.Err()
	if code != speech.ErrorUnknown || message == "" {
		t.Fatalf("expected an absorbed response error, got %q %q", code, message)
	}
}

func TestVoiceTurnFlowsFromInterimToReply(t *testing.T) {
	recognizer := &stubRecognizer{}
	capture := &stubCapture{}
	messages := make(chan appendedMessage, 8)
	statuses := make(chan speech.Status, 16)
	interims := make(chan string, 8)
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithRecognizer(recognizer),
		WithAudioInput(capture),
		WithMessageAppendedCallback(func(role, content string) {
			messages <- appendedMessage{role: role, content: content}
		}),
		WithStatusChangedCallback(func(status speech.Status) {
			statuses <- status
		}),
		WithInterimCallback(func(transcript string) {
			interims <- transcript
		}),
	)
	defer o.Close()

	o.ToggleListening()
	waitForStatus(t, statuses, speech.StatusListening)

	recognizer.opts.ResultCallback(interimBatch("what time"))
	select {
	case transcript := <-interims:
		if transcript != "what time" {
			t.Fatalf("expected the interim transcript, got %q", transcript)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the interim transcript")
	}
	if got := o.InterimTranscript(); got != "what time" {
		t.Fatalf("expected the interim transcript retained, got %q", got)
	}

	recognizer.opts.ResultCallback(finalBatch("what time is it"))

	user := waitForMessage(t, messages)
	if user.role != string(RoleUser) || user.content != "what time is it" {
		t.Fatalf("expected the final transcript as the user message, got %+v", user)
	}
	assistant := waitForMessage(t, messages)
	if assistant.role != string(RoleAssistant) || !strings.HasPrefix(assistant.content, "It is ") {
		t.Fatalf("expected a time reply, got %+v", assistant)
	}

	waitForStatus(t, statuses, speech.StatusIdle)
	if got := o.InterimTranscript(); got != "" {
		t.Fatalf("expected the interim transcript cleared, got %q", got)
	}
	if got := capture.stopCalls.Load(); got == 0 {
		t.Fatalf("expected capture stopped when the transcript finalized")
	}
}

func TestBlankFinalTranscriptProducesNoMessages(t *testing.T) {
	recognizer := &stubRecognizer{}
	statuses := make(chan speech.Status, 8)
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithRecognizer(recognizer),
		WithStatusChangedCallback(func(status speech.Status) { statuses <- status }),
	)
	defer o.Close()

	o.ToggleListening()
	waitForStatus(t, statuses, speech.StatusListening)

	recognizer.opts.ResultCallback(finalBatch("   "))
	waitForStatus(t, statuses, speech.StatusIdle)

	if got := len(o.Messages()); got != 0 {
		t.Fatalf("expected no messages for a blank utterance, got %d", got)
	}
}

func TestToggleListeningRefusedWhileResponding(t *testing.T) {
	recognizer := &stubRecognizer{}
	thinking := make(chan bool, 4)
	release := make(chan struct{})
	responder := &stubResponder{generate: func(string) (respond.Response, error) {
		<-release
		return respond.Response{Text: "done"}, nil
	}}
	statuses := make(chan speech.Status, 8)
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithRecognizer(recognizer),
		WithResponder(responder),
		WithThinkingChangedCallback(func(isThinking bool) { thinking <- isThinking }),
		WithStatusChangedCallback(func(status speech.Status) { statuses <- status }),
	)
	defer o.Close()

	o.SubmitText("hello")
	select {
	case <-thinking:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the turn to start")
	}

	o.ToggleListening()
	if got := recognizer.listenCalls.Load(); got != 0 {
		t.Fatalf("expected no listening session while responding, got %d", got)
	}

	close(release)
	waitForStatus(t, statuses, speech.StatusIdle)
}

func TestToggleListeningRefusedWhileTurnQueued(t *testing.T) {
	recognizer := &stubRecognizer{}
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	secondEntered := make(chan struct{})
	releaseSecond := make(chan struct{})
	responder := &stubResponder{generate: func(text string) (respond.Response, error) {
		switch text {
		case "first":
			close(firstEntered)
			<-releaseFirst
		case "second":
			close(secondEntered)
			<-releaseSecond
		}
		return respond.Response{Text: "ok"}, nil
	}}
	messages := make(chan appendedMessage, 8)
	statuses := make(chan speech.Status, 16)
	o := NewOrchestrator(
		WithGreeting(""),
		WithThinkingDelay(0),
		WithRecognizer(recognizer),
		WithResponder(responder),
		WithMessageAppendedCallback(func(role, content string) {
			messages <- appendedMessage{role: role, content: content}
		}),
		WithStatusChangedCallback(func(status speech.Status) { statuses <- status }),
	)
	defer o.Close()

	o.SubmitText("first")
	select {
	case <-firstEntered:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the first turn")
	}

	// The second turn queues behind the first; both have moved the engine
	// to processing.
	o.SubmitText("second")
	waitForStatus(t, statuses, speech.StatusProcessing)
	waitForStatus(t, statuses, speech.StatusProcessing)

	// Finishing the first turn flips the status to idle even though the
	// second turn is still pending.
	close(releaseFirst)
	waitForStatus(t, statuses, speech.StatusIdle)
	select {
	case <-secondEntered:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the second turn")
	}

	o.ToggleListening()
	if got := recognizer.listenCalls.Load(); got != 0 {
		t.Fatalf("expected no listening session while a turn is queued, got %d", got)
	}

	close(releaseSecond)
	for seen := 0; seen < 4; seen++ {
		waitForMessage(t, messages)
	}
}

func TestRecognitionErrorSurfacesThroughCallback(t *testing.T) {
	recognizer := &stubRecognizer{}
	errorsCh := make(chan string, 4)
	o := NewOrchestrator(
		WithGreeting(""),
		WithRecognizer(recognizer),
		WithErrorCallback(func(code speech.ErrorCode, _ string) {
			errorsCh <- string(code)
		}),
	)
	defer o.Close()

	o.ToggleListening()
	recognizer.opts.ErrorCallback("network", "socket closed")

	select {
	case code := <-errorsCh:
		if code != string(speech.ErrorNetwork) {
			t.Fatalf("expected network error code, got %q", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}
	if got := o.Status(); got != speech.StatusError {
		t.Fatalf("expected error status, got %q", got)
	}
}
