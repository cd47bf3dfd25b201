package protocol

import (
	"encoding/json"
	"time"

	"pong-chat/domain"
)

// Type identifies a websocket event.
type Type string

const (
	// Client -> Server
	TypeIdentify       Type = "identify"
	TypeSendMessage    Type = "send-message"
	TypeGetOnlineUsers Type = "get-online-users"

	// Server -> Client
	TypeIdentifySuccess Type = "identify-success"
	TypeIdentifyError   Type = "identify-error"
	TypeOnlineUsers     Type = "online-users"
	TypeNewMessage      Type = "new-message"
	TypeSendConfirmed   Type = "send-confirmed"
	TypeSendFailed      Type = "send-failed"
	TypeError           Type = "error"
)

// Envelope wraps every websocket frame with a type field.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is implemented by every client event. The set is closed.
type Inbound interface {
	Type() Type
	inbound()
}

type Identify struct {
	UserID string `json:"userId" validate:"notblank"`
}

type SendMessage struct {
	SenderID   string `json:"senderId" validate:"notblank"`
	ReceiverID string `json:"receiverId" validate:"notblank"`
	Content    string `json:"content" validate:"notblank"`
	SenderName string `json:"senderName"`
}

type GetOnlineUsers struct{}

func (Identify) Type() Type       { return TypeIdentify }
func (SendMessage) Type() Type    { return TypeSendMessage }
func (GetOnlineUsers) Type() Type { return TypeGetOnlineUsers }

func (Identify) inbound()       {}
func (SendMessage) inbound()    {}
func (GetOnlineUsers) inbound() {}

// Outbound is implemented by every server event. The set is closed.
type Outbound interface {
	Type() Type
	outbound()
}

type IdentifySuccess struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type IdentifyError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type OnlineUsers struct {
	UserIDs []string `json:"userIds"`
}

// MessagePayload is the wire shape of a stored message.
type MessagePayload struct {
	ID         string     `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

type NewMessage struct {
	MessagePayload
	SenderName string `json:"senderName,omitempty"`
}

type SendConfirmed struct {
	MessagePayload
}

type SendFailed struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (IdentifySuccess) Type() Type { return TypeIdentifySuccess }
func (IdentifyError) Type() Type   { return TypeIdentifyError }
func (OnlineUsers) Type() Type     { return TypeOnlineUsers }
func (NewMessage) Type() Type      { return TypeNewMessage }
func (SendConfirmed) Type() Type   { return TypeSendConfirmed }
func (SendFailed) Type() Type      { return TypeSendFailed }
func (ErrorMessage) Type() Type    { return TypeError }

func (IdentifySuccess) outbound() {}
func (IdentifyError) outbound()   {}
func (OnlineUsers) outbound()     {}
func (NewMessage) outbound()      {}
func (SendConfirmed) outbound()   {}
func (SendFailed) outbound()      {}
func (ErrorMessage) outbound()    {}

func ToMessagePayload(m domain.Message) MessagePayload {
	return MessagePayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		ReadAt:     m.ReadAt,
	}
}
