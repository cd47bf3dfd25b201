package domain

import "fmt"

// ConversationKey identifies the unordered pair of users of a conversation.
// NewConversationKey(a, b) and NewConversationKey(b, a) are equal.
type ConversationKey struct {
	Low  string
	High string
}

func NewConversationKey(a, b string) ConversationKey {
	if b < a {
		a, b = b, a
	}
	return ConversationKey{Low: a, High: b}
}

// Counterpart returns the member of the pair that is not userID.
func (k ConversationKey) Counterpart(userID string) string {
	if k.Low == userID {
		return k.High
	}
	return k.Low
}

// String is length-prefixed so ids containing separators cannot collide.
func (k ConversationKey) String() string {
	return fmt.Sprintf("%d:%s:%d:%s", len(k.Low), k.Low, len(k.High), k.High)
}

// Conversation is derived from stored messages, never persisted.
type Conversation struct {
	Key         ConversationKey `json:"-"`
	Counterpart string          `json:"counterpart"`
	Messages    []Message       `json:"messages"` // newest first
	Unread      int             `json:"unread"`
}
