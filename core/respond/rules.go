package respond

import "strings"

// Rule binds an intent to the keywords that trigger it. Single-word keywords
// match whole tokens; multi-word keywords match as phrases.
type Rule struct {
	Intent   string   `json:"intent" jsonschema:"required"`
	Keywords []string `json:"keywords" jsonschema:"required,minItems=1"`
}

func defaultRules() []Rule {
	return []Rule{
		{Intent: IntentName, Keywords: []string{"your name", "who are you"}},
		{Intent: IntentCapabilities, Keywords: []string{"what can you do", "help me", "capabilities"}},
		{Intent: IntentTime, Keywords: []string{"time"}},
		{Intent: IntentDate, Keywords: []string{"date", "what day", "today"}},
		{Intent: IntentThanks, Keywords: []string{"thanks", "thank you"}},
		{Intent: IntentGoodbye, Keywords: []string{"bye", "goodbye", "see you"}},
		{Intent: IntentGreeting, Keywords: []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening"}},
	}
}

// classify returns the intent of the first rule with a matching keyword, or
// IntentFallback when nothing matches.
func classify(rules []Rule, text string) string {
	normalized, tokens := normalize(text)

	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.ContainsRune(keyword, ' ') {
				if strings.Contains(normalized, keyword) {
					return rule.Intent
				}
				continue
			}
			for _, token := range tokens {
				if token == keyword {
					return rule.Intent
				}
			}
		}
	}
	return IntentFallback
}

// normalize lowercases text and strips everything but letters, digits and
// spaces, returning the cleaned string and its tokens.
func normalize(text string) (string, []string) {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '\t', r == '\n':
			b.WriteRune(' ')
		}
	}
	normalized := b.String()
	return normalized, strings.Fields(normalized)
}
