package speech

// ErrorCode classifies recognition and response failures. Every code except
// ErrorUnsupported is recoverable: the caller may start listening again.
type ErrorCode string

const (
	ErrorPermissionDenied ErrorCode = "permission-denied"
	ErrorNoSpeech         ErrorCode = "no-speech"
	ErrorNetwork          ErrorCode = "network"
	ErrorAborted          ErrorCode = "aborted"
	ErrorUnsupported      ErrorCode = "unsupported"
	ErrorUnknown          ErrorCode = "unknown"
)

// mapErrorCode maps a platform error signal string onto the taxonomy. Known
// signals map 1:1; everything else collapses to unknown.
func mapErrorCode(code string) ErrorCode {
	switch code {
	case "permission-denied", "not-allowed", "service-not-allowed":
		return ErrorPermissionDenied
	case "no-speech":
		return ErrorNoSpeech
	case "network":
		return ErrorNetwork
	case "aborted":
		return ErrorAborted
	case "unsupported":
		return ErrorUnsupported
	default:
		return ErrorUnknown
	}
}

// message returns the human-readable description surfaced alongside the
// error status when the platform did not provide one.
func (c ErrorCode) message() string {
	switch c {
	case ErrorPermissionDenied:
		return "microphone access was denied"
	case ErrorNoSpeech:
		return "no speech was detected"
	case ErrorNetwork:
		return "the recognition service could not be reached"
	case ErrorAborted:
		return "listening was aborted"
	case ErrorUnsupported:
		return "speech recognition is not available"
	default:
		return "something went wrong during recognition"
	}
}
