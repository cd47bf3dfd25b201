package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pong-chat/domain"
	"pong-chat/domain/event"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/search"
)

const (
	fieldID         = "_id"
	fieldSender     = "sender_id"
	fieldReceiver   = "receiver_id"
	fieldContent    = "content"
	fieldLanguage   = "lang"
	fieldCreatedAt  = "created_at"
	undetermined    = "und"
	sortByRelevance = "-_score"
	sortByNewest    = "-" + fieldCreatedAt
)

// Hit is one message matching a search.
type Hit struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"createdAt"`
	Score      float64   `json:"score"`
}

// Index keeps a full text index of sent messages. It is fed by domain
// events and can be rebuilt from the message store at any time.
type Index struct {
	log    *slog.Logger
	writer *bluge.Writer
}

// OpenIndex opens an on-disk index, or an in-memory one when path is empty.
func OpenIndex(path string, log *slog.Logger) (*Index, error) {
	config := bluge.InMemoryOnlyConfig()
	if path != "" {
		config = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &Index{log: log, writer: writer}, nil
}

// Consume indexes sent messages and forgets deleted ones.
func (i *Index) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageSent:
		return i.Index(evt.Message)
	case event.MessageDeleted:
		if err := i.writer.Delete(bluge.Identifier(evt.ID)); err != nil {
			return fmt.Errorf("failed to remove message %s from index: %w", evt.ID, err)
		}
		return nil
	default:
		return nil
	}
}

func (i *Index) Index(m domain.Message) error {
	doc := bluge.NewDocument(m.ID).
		AddField(bluge.NewKeywordField(fieldSender, m.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldReceiver, m.ReceiverID).StoreValue()).
		AddField(bluge.NewTextField(fieldContent, m.Content).StoreValue()).
		AddField(bluge.NewKeywordField(fieldLanguage, DetectLanguage(m.Content)).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, m.CreatedAt).StoreValue().Sortable())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("failed to index message %s: %w", m.ID, err)
	}
	return nil
}

// Search returns the messages userID takes part in matching q, best match first.
func (i *Index) Search(ctx context.Context, userID string, q Query) ([]Hit, error) {
	participant := bluge.NewBooleanQuery().
		AddShould(bluge.NewTermQuery(userID).SetField(fieldSender)).
		AddShould(bluge.NewTermQuery(userID).SetField(fieldReceiver)).
		SetMinShould(1)

	query := bluge.NewBooleanQuery().AddMust(participant)
	if terms := strings.TrimSpace(q.Terms); terms != "" {
		query.AddMust(bluge.NewMatchQuery(terms).SetField(fieldContent))
	}
	if q.With != "" {
		query.AddMust(bluge.NewBooleanQuery().
			AddShould(bluge.NewTermQuery(q.With).SetField(fieldSender)).
			AddShould(bluge.NewTermQuery(q.With).SetField(fieldReceiver)).
			SetMinShould(1))
	}
	if q.Language != "" {
		query.AddMust(bluge.NewTermQuery(q.Language).SetField(fieldLanguage))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	request := bluge.NewTopNSearch(clampLimit(q.Limit), query).
		SortBy([]string{sortByRelevance, sortByNewest})
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0)
	match, err := matches.Next()
	for err == nil && match != nil {
		hits = append(hits, toHit(match))
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	i.log.Debug("Search executed", "user_id", userID, "terms", q.Terms, "hits", len(hits))
	return hits, nil
}

func toHit(match *search.DocumentMatch) Hit {
	hit := Hit{Score: match.Score}
	_ = match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case fieldID:
			hit.ID = string(value)
		case fieldSender:
			hit.SenderID = string(value)
		case fieldReceiver:
			hit.ReceiverID = string(value)
		case fieldContent:
			hit.Content = string(value)
		case fieldLanguage:
			hit.Language = string(value)
		case fieldCreatedAt:
			if at, err := bluge.DecodeDateTime(value); err == nil {
				hit.CreatedAt = at.UTC()
			}
		}
		return true
	})
	return hit
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// DetectLanguage returns the ISO 639-1 code of text, "und" when unsure.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return undetermined
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return undetermined
}
