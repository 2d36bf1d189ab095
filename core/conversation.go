package orchestration

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one utterance in the conversation. Immutable once created.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Content   string
	Timestamp time.Time
}

// conversationLog is the append-only ordered conversation history. Entries
// are never removed or reordered; the log lives for the session and is only
// replaced by a fresh session.
type conversationLog struct {
	mu       sync.RWMutex
	messages []Message
}

func (l *conversationLog) append(role Role, content string) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	l.messages = append(l.messages, message)
	return message
}

// Snapshot returns a point-in-time copy of the log.
func (l *conversationLog) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	messages := make([]Message, len(l.messages))
	copy(messages, l.messages)
	return messages
}

func (l *conversationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
