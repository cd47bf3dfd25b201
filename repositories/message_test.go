package repositories

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"pong-chat/domain"

	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type repositoryFactory func(t *testing.T) IMessageRepository

func backends() map[string]repositoryFactory {
	return map[string]repositoryFactory{
		"badger": func(t *testing.T) IMessageRepository {
			db, err := database.LoadBadger(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			return NewBadgerMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
		},
		"sqlite": func(t *testing.T) IMessageRepository {
			db, err := OpenSQLite(filepath.Join(t.TempDir(), "messages.db"))
			require.NoError(t, err)
			repository, err := NewSQLiteMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))
			require.NoError(t, err)
			t.Cleanup(func() { _ = repository.Close() })
			return repository
		},
	}
}

func forEachBackend(t *testing.T, test func(t *testing.T, repository IMessageRepository)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			test(t, factory(t))
		})
	}
}

func newMessage(id, from, to, content string, at time.Time) domain.Message {
	return domain.Message{ID: id, SenderID: from, ReceiverID: to, Content: content, CreatedAt: at}
}

func TestMessageRepository_Store_And_Get(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)

		// Given a stored message
		message := newMessage("m1", "1", "2", "hello", at)
		req.NoError(repository.StoreMessage(ctx, message))

		// When fetching it back
		fetched, found, err := repository.GetMessage(ctx, "m1")

		// Then it is identical, nanoseconds included
		req.NoError(err)
		req.True(found)
		req.Equal(message, fetched)
	})
}

func TestMessageRepository_Get_Unknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)

		_, found, err := repository.GetMessage(context.Background(), "missing")

		req.NoError(err)
		req.False(found)
	})
}

func TestMessageRepository_Store_Duplicate_ID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Now().UTC()

		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "first", at)))
		req.Error(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "second", at)))

		fetched, _, err := repository.GetMessage(ctx, "m1")
		req.NoError(err)
		req.Equal("first", fetched.Content)
	})
}

func TestMessageRepository_GetConversation_Is_Direction_Agnostic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Now().UTC()

		// Given messages in both directions and one unrelated message
		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "ping", at)))
		req.NoError(repository.StoreMessage(ctx, newMessage("m2", "2", "1", "pong", at.Add(time.Second))))
		req.NoError(repository.StoreMessage(ctx, newMessage("m3", "1", "3", "other", at.Add(2*time.Second))))

		// When reading the conversation from both sides
		ab, err := repository.GetConversation(ctx, "1", "2")
		req.NoError(err)
		ba, err := repository.GetConversation(ctx, "2", "1")
		req.NoError(err)

		// Then both sides see the same messages, newest first
		req.Equal(ab, ba)
		req.Len(ab, 2)
		req.Equal("m2", ab[0].ID)
		req.Equal("m1", ab[1].ID)
	})
}

func TestMessageRepository_GetConversation_Empty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)

		messages, err := repository.GetConversation(context.Background(), "1", "2")

		req.NoError(err)
		req.NotNil(messages)
		req.Empty(messages)
	})
}

func TestMessageRepository_Ids_Do_Not_Collide(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Now().UTC()

		// "1" and "12" share a textual prefix
		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "a", at)))
		req.NoError(repository.StoreMessage(ctx, newMessage("m2", "12", "3", "b", at.Add(time.Second))))

		messages, err := repository.GetMessagesForUser(ctx, "1")
		req.NoError(err)
		req.Len(messages, 1)
		req.Equal("m1", messages[0].ID)
	})
}

func TestMessageRepository_GetMessagesForUser_Newest_First(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Now().UTC()

		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "a", at)))
		req.NoError(repository.StoreMessage(ctx, newMessage("m2", "3", "1", "b", at.Add(time.Minute))))
		req.NoError(repository.StoreMessage(ctx, newMessage("m3", "1", "4", "c", at.Add(2*time.Minute))))
		req.NoError(repository.StoreMessage(ctx, newMessage("m4", "2", "3", "d", at.Add(3*time.Minute))))

		messages, err := repository.GetMessagesForUser(ctx, "1")

		req.NoError(err)
		req.Len(messages, 3)
		req.Equal([]string{"m3", "m2", "m1"}, []string{messages[0].ID, messages[1].ID, messages[2].ID})
	})
}

func TestMessageRepository_MarkAsRead_Keeps_First_Timestamp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		at := time.Now().UTC()
		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "hello", at)))

		// When marking twice
		first, found, err := repository.MarkAsRead(ctx, "m1", at.Add(time.Minute))
		req.NoError(err)
		req.True(found)
		second, found, err := repository.MarkAsRead(ctx, "m1", at.Add(time.Hour))
		req.NoError(err)
		req.True(found)

		// Then the first read timestamp wins
		req.NotNil(first.ReadAt)
		req.True(first.ReadAt.Equal(at.Add(time.Minute)))
		req.Equal(first, second)

		stored, _, err := repository.GetMessage(ctx, "m1")
		req.NoError(err)
		req.Equal(first, stored)
	})
}

func TestMessageRepository_MarkAsRead_Unknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)

		_, found, err := repository.MarkAsRead(context.Background(), "missing", time.Now())

		req.NoError(err)
		req.False(found)
	})
}

func TestMessageRepository_Delete_Twice(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "hello", time.Now().UTC())))

		removed, err := repository.DeleteMessage(ctx, "m1")
		req.NoError(err)
		req.True(removed)

		removed, err = repository.DeleteMessage(ctx, "m1")
		req.NoError(err)
		req.False(removed)

		// Then no index still points at it
		messages, err := repository.GetConversation(ctx, "1", "2")
		req.NoError(err)
		req.Empty(messages)
		messages, err = repository.GetMessagesForUser(ctx, "2")
		req.NoError(err)
		req.Empty(messages)
	})
}

func TestMessageRepository_Self_Message(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repository IMessageRepository) {
		req := require.New(t)
		ctx := context.Background()
		req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "1", "note to self", time.Now().UTC())))

		messages, err := repository.GetMessagesForUser(ctx, "1")
		req.NoError(err)
		req.Len(messages, 1)

		removed, err := repository.DeleteMessage(ctx, "m1")
		req.NoError(err)
		req.True(removed)
	})
}

func TestBadgerMessageRepository_Close_Releases_Owned_Database(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	path := filepath.Join(t.TempDir(), "badger")

	// Given a repository opening its own database
	repository, err := OpenBadgerMessageRepository(path, log)
	req.NoError(err)
	req.NotNil(repository.DB())
	req.NoError(repository.StoreMessage(ctx, newMessage("m1", "1", "2", "hello", time.Now().UTC())))

	// When closing it
	req.NoError(repository.Close())

	// Then the directory can be opened again with the stored message
	db, err := database.LoadBadger(path)
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	_, found, err := NewBadgerMessageRepository(db, log).GetMessage(ctx, "m1")
	req.NoError(err)
	req.True(found)
}
