//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"time"

	"pong-chat/domain"
)

// IMessageRepository is the durable, append-only store of direct messages.
// Listing methods return messages newest first and never a nil slice.
type IMessageRepository interface {
	StoreMessage(ctx context.Context, message domain.Message) error
	GetMessage(ctx context.Context, id string) (domain.Message, bool, error)
	GetConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	GetMessagesForUser(ctx context.Context, userID string) ([]domain.Message, error)
	// MarkAsRead sets the read timestamp only if it is still absent.
	MarkAsRead(ctx context.Context, id string, at time.Time) (domain.Message, bool, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)
	Close() error
}

// DiskMessage is the encoded form of a message. Timestamps are Unix
// nanoseconds so that ordering survives any encoding.
type DiskMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	At         int64  `json:"at"`
	ReadAt     *int64 `json:"read_at,omitempty"`
}

func fromDomainMessage(m domain.Message) DiskMessage {
	dm := DiskMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		At:         m.CreatedAt.UnixNano(),
	}
	if m.ReadAt != nil {
		readAt := m.ReadAt.UnixNano()
		dm.ReadAt = &readAt
	}
	return dm
}

func toDomainMessage(dm DiskMessage) domain.Message {
	m := domain.Message{
		ID:         dm.ID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Content:    dm.Content,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
	}
	if dm.ReadAt != nil {
		readAt := time.Unix(0, *dm.ReadAt).UTC()
		m.ReadAt = &readAt
	}
	return m
}
