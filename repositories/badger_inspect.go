package repositories

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mama165/sdk-go/database"
)

// MessageMapper renders message store entries for the Badger debug inspector.
// Messages are decoded, index keys show the owner, timestamp and message id they carry.
func MessageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, messagePrefix):
		return messageInspectRow(row, val)
	case strings.HasPrefix(key, userIndexPrefix):
		owner, rest, ok := cutLengthPrefixed(key[len(userIndexPrefix):])
		if !ok {
			return row
		}
		row.Type = "USER_INDEX"
		row.Namespace = owner
		return indexInspectRow(row, rest)
	case strings.HasPrefix(key, pairIndexPrefix):
		low, rest, ok := cutLengthPrefixed(key[len(pairIndexPrefix):])
		if !ok {
			return row
		}
		high, rest, ok := cutLengthPrefixed(strings.TrimPrefix(rest, ":"))
		if !ok {
			return row
		}
		row.Type = "PAIR_INDEX"
		row.Namespace = low + " <-> " + high
		return indexInspectRow(row, rest)
	}
	return row
}

func messageInspectRow(row database.InspectRow, val []byte) database.InspectRow {
	var dm DiskMessage
	if err := json.Unmarshal(val, &dm); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = "MESSAGE"
	row.Timestamp = time.Unix(0, dm.At).UTC().Format(time.DateTime)
	row.EntityID = dm.ID
	row.Namespace = dm.SenderID + " -> " + dm.ReceiverID
	row.Detail = dm.Content
	row.Scores = "unread"
	if dm.ReadAt != nil {
		row.Scores = "read " + time.Unix(0, *dm.ReadAt).UTC().Format(time.DateTime)
	}
	return row
}

// indexInspectRow fills the row from the ":{timestamp_padded}:{id}" key tail.
func indexInspectRow(row database.InspectRow, tail string) database.InspectRow {
	tail = strings.TrimPrefix(tail, ":")
	row.EntityID = idFromIndexKey(tail)
	row.Detail = messagePrefix + row.EntityID
	if len(tail) >= len(maxPaddedTimestamp) {
		if at, err := strconv.ParseInt(tail[:len(maxPaddedTimestamp)], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, at).UTC().Format(time.DateTime)
		}
	}
	return row
}

// cutLengthPrefixed splits "{len}:{value}{rest}" as written by lengthPrefixed.
func cutLengthPrefixed(s string) (value, rest string, ok bool) {
	size, after, found := strings.Cut(s, ":")
	if !found {
		return "", "", false
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 || n > len(after) {
		return "", "", false
	}
	return after[:n], after[n:], true
}
