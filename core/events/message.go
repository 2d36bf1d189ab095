package events

import "time"

const KindMessageAppended Kind = "conversation.message_appended"

type MessageAppended struct {
	Base
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
}

func (e MessageAppended) String() string { return e.Role + ": " + e.Content }

func NewMessageAppended(id, role, content string, createdAt time.Time) MessageAppended {
	return MessageAppended{
		Base:      NewBase(KindMessageAppended),
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt,
	}
}
