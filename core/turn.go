package orchestration

import (
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// respondTo runs one response cycle for a finalized utterance: append the
// user message, pause briefly, generate the reply, append it, speak it.
// The caller (engine.Process) absorbs the returned error into the error
// status, so a responder failure never loses the user's message.
func (o *Orchestrator) respondTo(text string) error {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	ctx, span := tracer.Start(o.baseContext, "process turn")
	defer span.End()

	o.emitMessage(o.conversation.append(RoleUser, text))

	o.setThinking(true)
	defer o.setThinking(false)

	// Turn-taking smoothing only; zero disables the pause entirely.
	if o.thinkingDelay > 0 {
		timer := time.NewTimer(o.thinkingDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}

	response, err := o.responder.Generate(text)
	if err != nil {
		recordedErr := fmt.Errorf("failed to generate response: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}
	span.SetAttributes(attribute.String("intent", response.Intent))

	reply := response.Text
	if followUp := strings.TrimSpace(response.FollowUp); followUp != "" {
		reply += "\n\n" + followUp
	}

	// The reply lands in the log before synthesis starts so the transcript
	// updates immediately.
	o.setThinking(false)
	o.emitMessage(o.conversation.append(RoleAssistant, reply))

	if err := o.engine.Speak(ctx, reply); err != nil {
		// The reply is already in the log; failed playback does not fail
		// the turn.
		span.RecordError(err)
		logger.Warn("failed to speak reply", "error", err)
	}

	return nil
}
