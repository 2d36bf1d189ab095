// Package respond implements a rule-based response generator: text in,
// reply text out. It exists so the orchestrator has a concrete collaborator
// to drive; anything implementing the same contract can replace it.
package respond

import (
	"fmt"
	"strings"
	"time"
)

const DefaultAssistantName = "Voco"

// Response is one generated reply. FollowUp, when present, is rendered after
// Text separated by a blank line.
type Response struct {
	Text     string
	FollowUp string
	Intent   string
}

const (
	IntentGreeting     = "greeting"
	IntentName         = "name"
	IntentTime         = "time"
	IntentDate         = "date"
	IntentCapabilities = "capabilities"
	IntentThanks       = "thanks"
	IntentGoodbye      = "goodbye"
	IntentFallback     = "fallback"
)

type Generator struct {
	rules         []Rule
	now           func() time.Time
	assistantName string
}

type GeneratorOption func(*Generator)

// WithRules prepends rules to the built-in table, so custom rules win when
// both match.
func WithRules(rules ...Rule) GeneratorOption {
	return func(g *Generator) {
		g.rules = append(append([]Rule{}, rules...), g.rules...)
	}
}

// WithClock fixes the time source, for deterministic time and date replies.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func WithAssistantName(name string) GeneratorOption {
	return func(g *Generator) {
		if name != "" {
			g.assistantName = name
		}
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rules:         defaultRules(),
		now:           time.Now,
		assistantName: DefaultAssistantName,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate maps text to a reply. It never blocks and fails only on input the
// orchestrator's empty-input guard should already have rejected.
func (g *Generator) Generate(text string) (Response, error) {
	if strings.TrimSpace(text) == "" {
		return Response{}, fmt.Errorf("cannot respond to empty input")
	}

	intent := classify(g.rules, text)
	switch intent {
	case IntentGreeting:
		return Response{
			Text:     fmt.Sprintf("Hello! I'm %s, your voice assistant.", g.assistantName),
			FollowUp: "What can I do for you?",
			Intent:   intent,
		}, nil
	case IntentName:
		return Response{
			Text:   fmt.Sprintf("I'm %s. I listen, think a little, and talk back.", g.assistantName),
			Intent: intent,
		}, nil
	case IntentTime:
		return Response{
			Text:   "It is " + g.now().Format("3:04 PM") + ".",
			Intent: intent,
		}, nil
	case IntentDate:
		return Response{
			Text:   "Today is " + g.now().Format("Monday, January 2") + ".",
			Intent: intent,
		}, nil
	case IntentCapabilities:
		return Response{
			Text:   "I can chat with you by voice. Ask me about the time or the date, or just say hello.",
			Intent: intent,
		}, nil
	case IntentThanks:
		return Response{
			Text:   "You're welcome!",
			Intent: intent,
		}, nil
	case IntentGoodbye:
		return Response{
			Text:   "Goodbye! Talk to you soon.",
			Intent: intent,
		}, nil
	default:
		return Response{
			Text:     fmt.Sprintf("I heard you say %q.", strings.TrimSpace(text)),
			FollowUp: "I'm still learning. Try asking for the time or the date.",
			Intent:   IntentFallback,
		}, nil
	}
}
