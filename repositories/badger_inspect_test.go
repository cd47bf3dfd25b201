package repositories

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageMapper(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	readAt := at.Add(time.Minute).UnixNano()
	dm := DiskMessage{ID: "m1", SenderID: "1", ReceiverID: "22", Content: "gg wp", At: at.UnixNano(), ReadAt: &readAt}
	value, err := json.Marshal(dm)
	req.NoError(err)

	// When mapping the stored message
	row := MessageMapper(string(messageKey("m1")), value)

	// Then its value is decoded
	req.Equal("MESSAGE", row.Type)
	req.Equal("m1", row.EntityID)
	req.Equal("1 -> 22", row.Namespace)
	req.Equal("gg wp", row.Detail)
	req.Equal("2026-03-01 10:00:00", row.Timestamp)
	req.Equal("read 2026-03-01 10:01:00", row.Scores)

	// When mapping its index keys
	keys := indexKeys(dm)
	req.Len(keys, 3)
	sender := MessageMapper(string(keys[0]), nil)
	pair := MessageMapper(string(keys[1]), nil)
	receiver := MessageMapper(string(keys[2]), nil)

	// Then each one points back at the message
	req.Equal("USER_INDEX", sender.Type)
	req.Equal("1", sender.Namespace)
	req.Equal("22", receiver.Namespace)
	req.Equal("PAIR_INDEX", pair.Type)
	req.Equal("1 <-> 22", pair.Namespace)
	for _, index := range []string{sender.EntityID, pair.EntityID, receiver.EntityID} {
		req.Equal("m1", index)
	}
	req.Equal("2026-03-01 10:00:00", pair.Timestamp)
	req.Equal("msg:m1", pair.Detail)
}

func TestMessageMapper_Unreadable_Entries(t *testing.T) {
	req := require.New(t)

	broken := MessageMapper("msg:m1", []byte("{"))
	req.Equal("RAW", broken.Type)
	req.Equal("Error: unmarshal failed", broken.Detail)

	unread := DiskMessage{ID: "m2", SenderID: "1", ReceiverID: "2", At: 1}
	value, err := json.Marshal(unread)
	req.NoError(err)
	req.Equal("unread", MessageMapper("msg:m2", value).Scores)

	// Keys outside the message store keep the generic columns
	req.Equal("RAW", MessageMapper("idx:user:oops", nil).Type)
	req.Equal("RAW", MessageMapper("config:version", []byte("1")).Type)
}
