package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pong-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

const (
	messagePrefix   = "msg:"
	userIndexPrefix = "idx:user:"
	pairIndexPrefix = "idx:pair:"
	// Highest 19-digit padded timestamp, used as the reverse scan start.
	maxPaddedTimestamp = "9999999999999999999"
)

type BadgerMessageRepository struct {
	db     *badger.DB
	log    *slog.Logger
	ownsDB bool
}

// NewBadgerMessageRepository works on a database owned by the caller, Close leaves it open.
func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db, log: log}
}

// OpenBadgerMessageRepository opens its own database at path, Close closes it.
func OpenBadgerMessageRepository(path string, log *slog.Logger) (*BadgerMessageRepository, error) {
	db, err := database.LoadBadger(path)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return &BadgerMessageRepository{db: db, log: log, ownsDB: true}, nil
}

// DB exposes the underlying database to the debug inspector.
func (r *BadgerMessageRepository) DB() *badger.DB {
	return r.db
}

// StoreMessage persists a message and its secondary index keys in one transaction.
// Index keys are formatted as "{prefix}{owner}:{timestamp_padded}:{id}" so that:
//  1. a reverse prefix scan returns the newest messages first (19-digit zero padding);
//  2. two messages stored at the same nanosecond never overwrite each other.
func (r *BadgerMessageRepository) StoreMessage(_ context.Context, message domain.Message) error {
	dm := fromDomainMessage(message)
	value, err := json.Marshal(dm)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := messageKey(dm.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("message %s already exists", dm.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
		for _, indexKey := range indexKeys(dm) {
			if err := txn.Set(indexKey, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BadgerMessageRepository) GetMessage(_ context.Context, id string) (domain.Message, bool, error) {
	var dm DiskMessage
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		dm, found, err = getDiskMessage(txn, id)
		return err
	})
	if err != nil || !found {
		return domain.Message{}, false, err
	}
	return toDomainMessage(dm), true, nil
}

func (r *BadgerMessageRepository) GetConversation(_ context.Context, userA, userB string) ([]domain.Message, error) {
	key := domain.NewConversationKey(userA, userB)
	return r.scanIndex(pairIndexPrefix + key.String() + ":")
}

func (r *BadgerMessageRepository) GetMessagesForUser(_ context.Context, userID string) ([]domain.Message, error) {
	return r.scanIndex(userIndexPrefix + lengthPrefixed(userID) + ":")
}

func (r *BadgerMessageRepository) MarkAsRead(_ context.Context, id string, at time.Time) (domain.Message, bool, error) {
	var message domain.Message
	found := false
	err := r.db.Update(func(txn *badger.Txn) error {
		dm, ok, err := getDiskMessage(txn, id)
		if err != nil || !ok {
			return err
		}
		found = true
		message = toDomainMessage(dm).WithReadAt(at)
		if dm.ReadAt != nil {
			return nil
		}
		value, err := json.Marshal(fromDomainMessage(message))
		if err != nil {
			return err
		}
		return txn.Set(messageKey(id), value)
	})
	if err != nil {
		return domain.Message{}, false, err
	}
	return message, found, nil
}

func (r *BadgerMessageRepository) DeleteMessage(_ context.Context, id string) (bool, error) {
	removed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		dm, ok, err := getDiskMessage(txn, id)
		if err != nil || !ok {
			return err
		}
		if err := txn.Delete(messageKey(id)); err != nil {
			return err
		}
		for _, indexKey := range indexKeys(dm) {
			if err := txn.Delete(indexKey); err != nil {
				return err
			}
		}
		removed = true
		return nil
	})
	return removed, err
}

// Close only closes a database opened by OpenBadgerMessageRepository.
func (r *BadgerMessageRepository) Close() error {
	if !r.ownsDB {
		return nil
	}
	return r.db.Close()
}

// scanIndex walks an index prefix from the newest entry to the oldest and
// resolves each entry to its message.
func (r *BadgerMessageRepository) scanIndex(prefixStr string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(prefixStr), []byte(maxPaddedTimestamp)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			id := idFromIndexKey(string(it.Item().Key()[len(prefix):]))
			dm, ok, err := getDiskMessage(txn, id)
			if err != nil {
				return err
			}
			if !ok {
				r.log.Warn("Dangling message index entry", "key", string(it.Item().Key()))
				continue
			}
			messages = append(messages, toDomainMessage(dm))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func getDiskMessage(txn *badger.Txn, id string) (DiskMessage, bool, error) {
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return DiskMessage{}, false, nil
	}
	if err != nil {
		return DiskMessage{}, false, err
	}
	var dm DiskMessage
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &dm)
	})
	if err != nil {
		return DiskMessage{}, false, err
	}
	return dm, true, nil
}

func messageKey(id string) []byte {
	return []byte(messagePrefix + id)
}

func indexKeys(dm DiskMessage) [][]byte {
	suffix := fmt.Sprintf(":%019d:%s", dm.At, dm.ID)
	keys := [][]byte{
		[]byte(userIndexPrefix + lengthPrefixed(dm.SenderID) + suffix),
		[]byte(pairIndexPrefix + domain.NewConversationKey(dm.SenderID, dm.ReceiverID).String() + suffix),
	}
	if dm.ReceiverID != dm.SenderID {
		keys = append(keys, []byte(userIndexPrefix+lengthPrefixed(dm.ReceiverID)+suffix))
	}
	return keys
}

// idFromIndexKey extracts the id from "{timestamp_padded}:{id}".
func idFromIndexKey(rest string) string {
	if len(rest) < len(maxPaddedTimestamp)+1 {
		return rest
	}
	return rest[len(maxPaddedTimestamp)+1:]
}

func lengthPrefixed(s string) string {
	return fmt.Sprintf("%d:%s", len(s), s)
}
