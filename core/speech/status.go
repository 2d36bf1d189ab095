package speech

// Status is the engine's single source of truth for what the session is
// doing. Exactly one value is active at a time; consumers gate their
// operations on it (e.g. a new listening turn must not start while the
// engine is speaking).
type Status string

const (
	// StatusIdle means the engine is armed and waiting for input.
	StatusIdle Status = "idle"
	// StatusListening means a capture session is active and the recognizer
	// is producing results.
	StatusListening Status = "listening"
	// StatusProcessing means a final transcript has been handed off and the
	// response cycle is in flight.
	StatusProcessing Status = "processing"
	// StatusSpeaking means a synthesized reply is being rendered.
	StatusSpeaking Status = "speaking"
	// StatusUnsupported means no recognition capability is available. It is
	// permanent for the session.
	StatusUnsupported Status = "unsupported"
	// StatusError means the last operation failed; the error is recoverable
	// and listening may be retried.
	StatusError Status = "error"
)

// Capabilities reports which platform facilities the engine was constructed
// with. Derived once; read-only to consumers.
type Capabilities struct {
	Microphone      bool
	SpeechSynthesis bool
}
