package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"pong-chat/domain"
	"pong-chat/domain/event"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *Index {
	index, err := OpenIndex(t.TempDir(), logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func sent(id, sender, receiver, content string, at time.Time) event.DomainEvent {
	return event.MessageSent{Message: domain.Message{
		ID: id, SenderID: sender, ReceiverID: receiver, Content: content, CreatedAt: at,
	}}
}

func ids(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestIndex_Search_Only_Own_Messages(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Given messages between several players
	req.NoError(index.Consume(ctx, sent("m1", "1", "2", "rematch tonight?", now)))
	req.NoError(index.Consume(ctx, sent("m2", "3", "4", "rematch at noon", now.Add(time.Second))))
	req.NoError(index.Consume(ctx, sent("m3", "2", "1", "sure, good luck", now.Add(2*time.Second))))

	// When player 1 searches
	hits, err := index.Search(ctx, "1", NewSearchQuery("rematch"))
	req.NoError(err)

	// Then only its own conversation is searched
	req.Equal([]string{"m1"}, ids(hits))
	req.Equal("1", hits[0].SenderID)
	req.Equal("2", hits[0].ReceiverID)
	req.Equal("rematch tonight?", hits[0].Content)
	req.True(now.Equal(hits[0].CreatedAt))

	// And player 4 only sees the other one
	hits, err = index.Search(ctx, "4", NewSearchQuery("rematch"))
	req.NoError(err)
	req.Equal([]string{"m2"}, ids(hits))
}

func TestIndex_Search_Filters(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()
	now := time.Now().UTC()

	english := "Would you like to play another game of pong with me this evening after dinner?"
	french := "Est-ce que tu veux jouer une autre partie de pong avec moi ce soir après le dîner ?"
	req.NoError(index.Consume(ctx, sent("en", "1", "2", english, now)))
	req.NoError(index.Consume(ctx, sent("fr", "1", "3", french, now.Add(time.Second))))

	// Given no terms, every message of the user matches
	hits, err := index.Search(ctx, "1", NewSearchQuery(""))
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, ids(hits))

	// Given a counterpart filter
	hits, err = index.Search(ctx, "1", NewSearchQuery("pong --with 3"))
	req.NoError(err)
	req.Equal([]string{"fr"}, ids(hits))

	// Given a language filter
	hits, err = index.Search(ctx, "1", NewSearchQuery("pong --lang "+DetectLanguage(english)))
	req.NoError(err)
	req.Contains(ids(hits), "en")
	req.Equal(DetectLanguage(english), hits[0].Language)
}

func TestIndex_Forgets_Deleted_Messages(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()

	req.NoError(index.Consume(ctx, sent("m1", "1", "2", "secret strategy", time.Now())))
	req.NoError(index.Consume(ctx, event.MessageDeleted{ID: "m1", SenderID: "1", ReceiverID: "2"}))

	hits, err := index.Search(ctx, "1", NewSearchQuery("strategy"))
	req.NoError(err)
	req.Empty(hits)

	// Deleting twice is harmless
	req.NoError(index.Consume(ctx, event.MessageDeleted{ID: "m1"}))
}

func TestIndex_Limit(t *testing.T) {
	req := require.New(t)
	index := newIndex(t)
	ctx := context.Background()
	now := time.Now()

	for i, id := range []string{"a", "b", "c", "d"} {
		req.NoError(index.Consume(ctx, sent(id, "1", "2", "gg", now.Add(time.Duration(i)*time.Second))))
	}

	hits, err := index.Search(ctx, "1", NewSearchQuery("gg --limit 2"))
	req.NoError(err)
	req.Len(hits, 2)
}

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
	}{
		{"", Query{Limit: DefaultLimit}},
		{"rematch tonight", Query{Terms: "rematch tonight", Limit: DefaultLimit}},
		{"gg --with 42 --lang FR --limit 5", Query{Terms: "gg", With: "42", Language: "fr", Limit: 5}},
		{"gg --limit 1000", Query{Terms: "gg", Limit: MaxLimit}},
		{"gg --limit abc", Query{Terms: "gg", Limit: DefaultLimit}},
		{"gg --unknown flag", Query{Terms: "gg --unknown flag", Limit: DefaultLimit}},
		{"gg --with", Query{Terms: "gg --with", Limit: DefaultLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NewSearchQuery(tt.input)
			tt.want.RawInput = tt.input
			require.Equal(t, tt.want, got)
		})
	}
}
