//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"pong-chat/contract"
	"pong-chat/domain"
	"pong-chat/domain/event"
	"pong-chat/errors"
	"pong-chat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageService interface {
	Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error)
	GetByID(ctx context.Context, id string) (domain.Message, bool, error)
	GetConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	GetUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	MarkAsRead(ctx context.Context, id string) (domain.Message, bool, error)
	MarkAsReadBy(ctx context.Context, id, readerID string) (domain.Message, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteBy(ctx context.Context, id, requesterID string) (bool, error)
}

// ICensor rewrites forbidden words out of message content.
type ICensor interface {
	Censor(content string) (string, []string)
}

type MessageService struct {
	log                *slog.Logger
	repository         repositories.IMessageRepository
	publisher          contract.IEventPublisher
	censor             ICensor
	maxContentLength   int
	persistenceTimeout time.Duration
}

// NewMessageService builds the message store. publisher and censor are optional.
// A maxContentLength of zero disables the length check.
func NewMessageService(
	log *slog.Logger,
	repository repositories.IMessageRepository,
	publisher contract.IEventPublisher,
	censor ICensor,
	maxContentLength int,
	persistenceTimeout time.Duration,
) *MessageService {
	return &MessageService{
		log:                log,
		repository:         repository,
		publisher:          publisher,
		censor:             censor,
		maxContentLength:   maxContentLength,
		persistenceTimeout: persistenceTimeout,
	}
}

// Send validates, stores and announces a new direct message.
// No store write happens when validation fails.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (domain.Message, error) {
	if err := s.validate(senderID, receiverID, content); err != nil {
		return domain.Message{}, err
	}

	if s.censor != nil {
		censored, words := s.censor.Censor(content)
		if len(words) > 0 {
			s.log.Debug("Message content censored", "sender_id", senderID, "matches", len(words))
		}
		content = censored
	}

	message := domain.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repository.StoreMessage(ctx, message); err != nil {
		s.log.Error("Failed to store message", "sender_id", senderID, "receiver_id", receiverID, "error", err)
		return domain.Message{}, persistenceError(err)
	}

	s.publish(event.MessageSent{Message: message})
	return message, nil
}

func (s *MessageService) validate(senderID, receiverID, content string) error {
	switch {
	case strings.TrimSpace(senderID) == "":
		return errors.ErrEmptySender
	case strings.TrimSpace(receiverID) == "":
		return errors.ErrEmptyReceiver
	case strings.TrimSpace(content) == "":
		return errors.ErrEmptyContent
	case s.maxContentLength > 0 && utf8.RuneCountInString(content) > s.maxContentLength:
		return fmt.Errorf("%w: %d characters max", errors.ErrContentTooLong, s.maxContentLength)
	}
	return nil
}

func (s *MessageService) GetByID(ctx context.Context, id string) (domain.Message, bool, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Message{}, false, errors.ErrEmptyMessageID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	message, found, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return domain.Message{}, false, persistenceError(err)
	}
	return message, found, nil
}

// GetConversation returns the messages exchanged between two users in both
// directions, newest first.
func (s *MessageService) GetConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	if strings.TrimSpace(userA) == "" || strings.TrimSpace(userB) == "" {
		return nil, errors.ErrEmptyUserID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	messages, err := s.repository.GetConversation(ctx, userA, userB)
	if err != nil {
		return nil, persistenceError(err)
	}
	return messages, nil
}

// GetUserConversations partitions every message involving userID by
// counterpart. Conversations are ordered by their latest message, newest first.
func (s *MessageService) GetUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.ErrEmptyUserID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	messages, err := s.repository.GetMessagesForUser(ctx, userID)
	if err != nil {
		return nil, persistenceError(err)
	}

	groups := lo.GroupBy(messages, func(m domain.Message) domain.ConversationKey {
		return m.Key()
	})

	conversations := make([]domain.Conversation, 0, len(groups))
	for key, group := range groups {
		conversations = append(conversations, domain.Conversation{
			Key:         key,
			Counterpart: key.Counterpart(userID),
			Messages:    group,
			Unread: lo.CountBy(group, func(m domain.Message) bool {
				return m.ReceiverID == userID && !m.IsRead()
			}),
		})
	}
	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i].Messages[0].CreatedAt, conversations[j].Messages[0].CreatedAt
		if a.Equal(b) {
			return conversations[i].Counterpart < conversations[j].Counterpart
		}
		return a.After(b)
	})
	return conversations, nil
}

// MarkAsRead records the first read of a message. Marking an already read
// message returns it unchanged, marking an unknown one returns found=false.
func (s *MessageService) MarkAsRead(ctx context.Context, id string) (domain.Message, bool, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Message{}, false, errors.ErrEmptyMessageID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	message, found, err := s.repository.MarkAsRead(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.Message{}, false, persistenceError(err)
	}
	if found {
		s.publish(event.MessageRead{Message: message})
	}
	return message, found, nil
}

// MarkAsReadBy only lets the receiver of a message mark it.
func (s *MessageService) MarkAsReadBy(ctx context.Context, id, readerID string) (domain.Message, bool, error) {
	message, found, err := s.GetByID(ctx, id)
	if err != nil || !found {
		return domain.Message{}, found, err
	}
	if message.ReceiverID != readerID {
		return domain.Message{}, true, fmt.Errorf("%w: only the receiver can mark a message as read", errors.ErrForbidden)
	}
	return s.MarkAsRead(ctx, id)
}

// Delete removes a message. Deleting an absent message returns false.
func (s *MessageService) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.ErrEmptyMessageID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	message, found, err := s.repository.GetMessage(ctx, id)
	if err != nil {
		return false, persistenceError(err)
	}
	if !found {
		return false, nil
	}
	removed, err := s.repository.DeleteMessage(ctx, id)
	if err != nil {
		return false, persistenceError(err)
	}
	if removed {
		s.publish(event.MessageDeleted{ID: id, SenderID: message.SenderID, ReceiverID: message.ReceiverID})
	}
	return removed, nil
}

// DeleteBy only lets the sender of a message delete it.
func (s *MessageService) DeleteBy(ctx context.Context, id, requesterID string) (bool, error) {
	message, found, err := s.GetByID(ctx, id)
	if err != nil || !found {
		return false, err
	}
	if message.SenderID != requesterID {
		return false, fmt.Errorf("%w: only the sender can delete a message", errors.ErrForbidden)
	}
	return s.Delete(ctx, id)
}

func (s *MessageService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, s.persistenceTimeout)
}

// withTimeout bounds ctx by d, a non positive d means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *MessageService) publish(e event.DomainEvent) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
}
