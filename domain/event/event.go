package event

import (
	"pong-chat/domain"
)

// DomainEvent is emitted after a successful store mutation and fanned out
// to in-process sinks (search index, stats).
type DomainEvent interface {
	Key() domain.ConversationKey
}

type MessageSent struct {
	Message domain.Message
}

func (e MessageSent) Key() domain.ConversationKey {
	return e.Message.Key()
}

type MessageRead struct {
	Message domain.Message
}

func (e MessageRead) Key() domain.ConversationKey {
	return e.Message.Key()
}

type MessageDeleted struct {
	ID         string
	SenderID   string
	ReceiverID string
}

func (e MessageDeleted) Key() domain.ConversationKey {
	return domain.NewConversationKey(e.SenderID, e.ReceiverID)
}
