package events

const KindThinkingChanged Kind = "turn.thinking_changed"

type ThinkingChanged struct {
	Base
	Thinking bool
}

func (e ThinkingChanged) String() string {
	if e.Thinking {
		return "thinking"
	}
	return "done thinking"
}

func NewThinkingChanged(thinking bool) ThinkingChanged {
	return ThinkingChanged{Base: NewBase(KindThinkingChanged), Thinking: thinking}
}
