// Package domain contains core concepts of the chat system.
// This file defines direct messages and related rules.
// Messages are immutable once stored, except for their read marker.
package domain

import (
	"time"
)

// Message is a direct message between two users.
type Message struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

func (m Message) IsRead() bool {
	return m.ReadAt != nil
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterpart returns the other participant seen from userID.
func (m Message) Counterpart(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Key returns the conversation the message belongs to.
func (m Message) Key() ConversationKey {
	return NewConversationKey(m.SenderID, m.ReceiverID)
}

// WithReadAt returns a copy marked as read at the given time.
// A message that is already read keeps its first read timestamp.
func (m Message) WithReadAt(at time.Time) Message {
	if m.ReadAt != nil {
		return m
	}
	readAt := at.UTC()
	m.ReadAt = &readAt
	return m
}
