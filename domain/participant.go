// Package domain contains core concepts of the chat system.
// This file defines presence and identity of connected participants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is the user directory's view of a participant.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// PresenceEntry lives as long as one live connection.
type PresenceEntry struct {
	ConnectionID string
	UserID       string
	DisplayName  string
	ConnectedAt  time.Time
}

type ConnectionState int

const (
	Connected ConnectionState = iota
	Identified
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Identified:
		return "identified"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
