package events

const KindEngineError Kind = "engine.error"

type EngineError struct {
	Base
	Code    string
	Message string
}

func (e EngineError) String() string { return e.Code + ": " + e.Message }

func NewEngineError(code, message string) EngineError {
	return EngineError{Base: NewBase(KindEngineError), Code: code, Message: message}
}
