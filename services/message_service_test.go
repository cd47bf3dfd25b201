package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"pong-chat/contract"
	"pong-chat/domain"
	"pong-chat/domain/event"
	"pong-chat/errors"
	"pong-chat/mocks"
	"pong-chat/repositories"

	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newBadgerRepository(t *testing.T) repositories.IMessageRepository {
	db, err := database.LoadBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.NewBadgerMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
}

func newMessageService(t *testing.T, publisher *mocks.MockIEventPublisher) *MessageService {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	var p contract.IEventPublisher
	if publisher != nil {
		p = publisher
	}
	return NewMessageService(log, newBadgerRepository(t), p, nil, 500, time.Second)
}

func TestMessageService_Send_Then_GetConversation(t *testing.T) {
	svc := newMessageService(t, nil)
	ctx := context.Background()

	for _, tt := range []struct{ sender, receiver, content string }{
		{"1", "2", "hello"},
		{"2", "1", "good game"},
		{"1", "2", "rematch ?"},
		{"7", "7", "note to self"},
		{"42", "1337", "ünïcødé 🏓"},
	} {
		req := require.New(t)

		// When a valid message is sent
		_, err := svc.Send(ctx, tt.sender, tt.receiver, tt.content)
		req.NoError(err)
		time.Sleep(time.Millisecond)

		// Then it is the newest message of the conversation
		messages, err := svc.GetConversation(ctx, tt.sender, tt.receiver)
		req.NoError(err)
		req.NotEmpty(messages)
		req.Equal(tt.content, messages[0].Content)
		req.Equal(tt.sender, messages[0].SenderID)
	}
}

func TestMessageService_Send_Assigns_Identity_And_Time(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	before := time.Now().UTC()

	message, err := svc.Send(context.Background(), "1", "2", "hello")

	req.NoError(err)
	req.NotEmpty(message.ID)
	req.False(message.CreatedAt.Before(before))
	req.Nil(message.ReadAt)

	stored, found, err := svc.GetByID(context.Background(), message.ID)
	req.NoError(err)
	req.True(found)
	req.Equal(message, stored)
}

func TestMessageService_Send_Publishes_Event(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockIEventPublisher(ctrl)
	svc := newMessageService(t, publisher)

	var published event.DomainEvent
	publisher.EXPECT().Publish(gomock.Any()).Do(func(e event.DomainEvent) { published = e }).Times(1)

	message, err := svc.Send(context.Background(), "1", "2", "hello")

	req.NoError(err)
	req.Equal(event.MessageSent{Message: message}, published)
}

func TestMessageService_Send_Validation(t *testing.T) {
	tests := []struct {
		name                      string
		sender, receiver, content string
		want                      error
	}{
		{"empty sender", "", "2", "hello", errors.ErrEmptySender},
		{"blank receiver", "1", "   ", "hello", errors.ErrEmptyReceiver},
		{"empty content", "1", "2", "", errors.ErrEmptyContent},
		{"blank content", "1", "2", " \t\n", errors.ErrEmptyContent},
		{"content too long", "1", "2", strings.Repeat("é", 11), errors.ErrContentTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			repository := mocks.NewMockIMessageRepository(ctrl)
			publisher := mocks.NewMockIEventPublisher(ctrl)
			svc := NewMessageService(logs.GetLoggerFromLevel(slog.LevelDebug), repository, publisher, nil, 10, time.Second)

			// Then nothing is written nor published
			repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Times(0)
			publisher.EXPECT().Publish(gomock.Any()).Times(0)

			_, err := svc.Send(context.Background(), tt.sender, tt.receiver, tt.content)

			req.ErrorIs(err, tt.want)
			req.ErrorIs(err, errors.ErrValidation)
		})
	}
}

func TestMessageService_Send_Persistence_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	publisher := mocks.NewMockIEventPublisher(ctrl)
	svc := NewMessageService(logs.GetLoggerFromLevel(slog.LevelDebug), repository, publisher, nil, 0, time.Second)

	// Given the store is failing
	repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(stderrors.New("disk full")).Times(1)
	publisher.EXPECT().Publish(gomock.Any()).Times(0)

	// When sending
	_, err := svc.Send(context.Background(), "1", "2", "hello")

	// Then
	req.ErrorIs(err, errors.ErrPersistence)
	req.Equal(errors.CodePersistenceFailed, errors.MapToCode(err))
}

func TestMessageService_Send_Is_Bounded_By_Persistence_Timeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	svc := NewMessageService(logs.GetLoggerFromLevel(slog.LevelDebug), repository, nil, nil, 0, 20*time.Millisecond)

	repository.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ domain.Message) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)

	_, err := svc.Send(context.Background(), "1", "2", "hello")

	req.ErrorIs(err, errors.ErrPersistence)
}

func TestMessageService_Send_Censors_Content(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	censor := mocks.NewMockICensor(ctrl)
	svc := NewMessageService(logs.GetLoggerFromLevel(slog.LevelDebug), newBadgerRepository(t), nil, censor, 0, time.Second)

	censor.EXPECT().Censor("you badger").Return("you ******", []string{"badger"}).Times(1)

	message, err := svc.Send(context.Background(), "1", "2", "you badger")

	req.NoError(err)
	req.Equal("you ******", message.Content)
}

func TestMessageService_MarkAsRead_Unknown_Message(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)

	_, found, err := svc.MarkAsRead(context.Background(), "does-not-exist")

	req.NoError(err)
	req.False(found)
}

func TestMessageService_MarkAsRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	ctx := context.Background()
	sent, err := svc.Send(ctx, "1", "2", "hello")
	req.NoError(err)

	first, found, err := svc.MarkAsRead(ctx, sent.ID)
	req.NoError(err)
	req.True(found)
	req.NotNil(first.ReadAt)

	time.Sleep(2 * time.Millisecond)
	second, found, err := svc.MarkAsRead(ctx, sent.ID)
	req.NoError(err)
	req.True(found)
	req.Equal(first.ReadAt, second.ReadAt)
}

func TestMessageService_MarkAsReadBy_Only_Receiver(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	ctx := context.Background()
	sent, err := svc.Send(ctx, "1", "2", "hello")
	req.NoError(err)

	_, _, err = svc.MarkAsReadBy(ctx, sent.ID, "1")
	req.ErrorIs(err, errors.ErrForbidden)

	read, found, err := svc.MarkAsReadBy(ctx, sent.ID, "2")
	req.NoError(err)
	req.True(found)
	req.True(read.IsRead())
}

func TestMessageService_GetConversation_Direction_Agnostic(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	ctx := context.Background()

	for _, m := range [][3]string{{"A", "B", "1"}, {"B", "A", "2"}, {"A", "B", "3"}, {"A", "C", "4"}} {
		_, err := svc.Send(ctx, m[0], m[1], m[2])
		req.NoError(err)
	}

	ab, err := svc.GetConversation(ctx, "A", "B")
	req.NoError(err)
	ba, err := svc.GetConversation(ctx, "B", "A")
	req.NoError(err)

	req.Len(ab, 3)
	req.ElementsMatch(ab, ba)
}

func TestMessageService_GetConversation_Blank_User(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)

	_, err := svc.GetConversation(context.Background(), "A", " ")

	req.ErrorIs(err, errors.ErrValidation)
}

func TestMessageService_GetUserConversations_Partitions_By_Counterpart(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	ctx := context.Background()

	// Given A talked with B, C and D, and B talked with C
	exchanges := [][3]string{
		{"A", "B", "hi B"},
		{"C", "A", "hi A"},
		{"B", "A", "hey"},
		{"A", "D", "hi D"},
		{"B", "C", "not about A"},
		{"C", "A", "still there?"},
	}
	for _, m := range exchanges {
		_, err := svc.Send(ctx, m[0], m[1], m[2])
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}

	// When grouping A's messages
	conversations, err := svc.GetUserConversations(ctx, "A")
	req.NoError(err)

	// Then there is one group per counterpart
	req.Len(conversations, 3)
	total := 0
	for _, conversation := range conversations {
		for _, m := range conversation.Messages {
			req.True(m.Involves("A"))
			req.Equal(conversation.Counterpart, m.Counterpart("A"))
		}
		total += len(conversation.Messages)
	}
	req.Equal(5, total)

	// And groups are ordered by their latest message
	req.Equal([]string{"C", "D", "B"}, []string{
		conversations[0].Counterpart, conversations[1].Counterpart, conversations[2].Counterpart,
	})
	req.Equal(2, conversations[0].Unread)
	req.Equal(0, conversations[1].Unread)
	req.Equal(1, conversations[2].Unread)
}

func TestMessageService_GetUserConversations_Empty(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)

	conversations, err := svc.GetUserConversations(context.Background(), "nobody")

	req.NoError(err)
	req.Empty(conversations)
}

func TestMessageService_Delete_Twice(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockIEventPublisher(ctrl)
	svc := newMessageService(t, publisher)
	ctx := context.Background()

	publisher.EXPECT().Publish(gomock.AssignableToTypeOf(event.MessageSent{})).Times(1)
	publisher.EXPECT().Publish(gomock.AssignableToTypeOf(event.MessageDeleted{})).Times(1)

	sent, err := svc.Send(ctx, "1", "2", "hello")
	req.NoError(err)

	// When deleting twice
	removed, err := svc.Delete(ctx, sent.ID)
	req.NoError(err)
	req.True(removed)
	removed, err = svc.Delete(ctx, sent.ID)

	// Then the second call has nothing left to remove
	req.NoError(err)
	req.False(removed)
}

func TestMessageService_DeleteBy_Only_Sender(t *testing.T) {
	req := require.New(t)
	svc := newMessageService(t, nil)
	ctx := context.Background()
	sent, err := svc.Send(ctx, "1", "2", "hello")
	req.NoError(err)

	_, err = svc.DeleteBy(ctx, sent.ID, "2")
	req.ErrorIs(err, errors.ErrForbidden)

	removed, err := svc.DeleteBy(ctx, sent.ID, "1")
	req.NoError(err)
	req.True(removed)

	removed, err = svc.DeleteBy(ctx, sent.ID, "1")
	req.NoError(err)
	req.False(removed)
}
