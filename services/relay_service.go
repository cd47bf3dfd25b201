package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pong-chat/contract"
	"pong-chat/domain"
	"pong-chat/errors"
	"pong-chat/observability"
	"pong-chat/protocol"
)

// Connection is the relay-side state of one client connection.
type Connection struct {
	ID   string
	sink contract.ConnectionSink
	// Identity proven during the transport handshake, empty when anonymous.
	assertedUserID string

	mu          sync.Mutex
	state       domain.ConnectionState
	userID      string
	displayName string
}

func (c *Connection) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the identified user, empty before a successful identify.
func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Connection) DisplayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayName
}

type RelayConfig struct {
	DirectoryTimeout      time.Duration
	SinkTimeout           time.Duration
	BroadcastOnDisconnect bool
}

// RelayService drives the per-connection state machine
// Connected -> Identified -> Closed. It is transport agnostic: frames come in
// through Handle and leave through the connection sinks.
// No failure while handling a frame closes the connection.
type RelayService struct {
	log        *slog.Logger
	registry   contract.IRegistry
	directory  contract.IUserDirectory
	messages   IMessageService
	authorizer SendAuthorizer
	monitoring *observability.MonitoringManager
	config     RelayConfig
}

// NewRelayService wires the relay. A nil authorizer allows every send.
func NewRelayService(
	log *slog.Logger,
	registry contract.IRegistry,
	directory contract.IUserDirectory,
	messages IMessageService,
	authorizer SendAuthorizer,
	monitoring *observability.MonitoringManager,
	config RelayConfig,
) *RelayService {
	return &RelayService{
		log:        log,
		registry:   registry,
		directory:  directory,
		messages:   messages,
		authorizer: authorizer,
		monitoring: monitoring,
		config:     config,
	}
}

// Connect opens the relay state of a new connection.
func (s *RelayService) Connect(connectionID string, sink contract.ConnectionSink, assertedUserID string) *Connection {
	s.monitoring.IncrConnectionsOpened()
	s.log.Debug("Connection opened", "connection_id", connectionID, "asserted_user_id", assertedUserID)
	return &Connection{
		ID:             connectionID,
		sink:           sink,
		assertedUserID: assertedUserID,
		state:          domain.Connected,
	}
}

// Handle decodes one inbound frame and dispatches it. Frames are expected to
// be handled sequentially per connection.
func (s *RelayService) Handle(ctx context.Context, conn *Connection, raw []byte) {
	if conn.State() == domain.Closed {
		s.log.Debug("Dropping frame on closed connection", "connection_id", conn.ID)
		return
	}

	in, err := protocol.Decode(raw)
	if err != nil {
		s.rejectFrame(ctx, conn, err)
		return
	}

	switch msg := in.(type) {
	case protocol.Identify:
		s.Identify(ctx, conn, msg.UserID)
	case protocol.SendMessage:
		s.SendMessage(ctx, conn, msg)
	case protocol.GetOnlineUsers:
		s.GetOnlineUsers(ctx, conn)
	}
}

// rejectFrame answers an undecodable frame with the failure event matching
// its type when the type could be read.
func (s *RelayService) rejectFrame(ctx context.Context, conn *Connection, err error) {
	s.log.Debug("Rejected frame", "connection_id", conn.ID, "error", err)
	code := errors.MapToCode(err)

	var decodeErr *protocol.DecodeError
	t := protocol.Type("")
	if errors.As(err, &decodeErr) {
		t = decodeErr.Type
	}
	switch t {
	case protocol.TypeIdentify:
		s.monitoring.IncrIdentifyFailures()
		s.emit(ctx, conn.sink, protocol.IdentifyError{Code: code, Error: err.Error()})
	case protocol.TypeSendMessage:
		s.monitoring.IncrSendFailures()
		s.emit(ctx, conn.sink, protocol.SendFailed{Code: code, Error: err.Error()})
	default:
		s.emit(ctx, conn.sink, protocol.ErrorMessage{Code: code, Message: err.Error()})
	}
}

// Identify resolves userID through the directory and binds it to the
// connection. On failure the connection state and the registry are untouched.
func (s *RelayService) Identify(ctx context.Context, conn *Connection, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		s.identifyFailed(ctx, conn, userID, errors.ErrEmptyUserID)
		return
	}
	if conn.assertedUserID != "" && conn.assertedUserID != userID {
		s.identifyFailed(ctx, conn, userID, errors.ErrIdentityMismatch)
		return
	}

	lookupCtx, cancel := withTimeout(ctx, s.config.DirectoryTimeout)
	user, err := s.directory.LookupUser(lookupCtx, userID)
	cancel()
	if err != nil {
		s.identifyFailed(ctx, conn, userID, err)
		return
	}

	displayName := user.FullName
	if displayName == "" {
		displayName = userID
	}

	conn.mu.Lock()
	if conn.state == domain.Closed {
		conn.mu.Unlock()
		s.log.Debug("Connection closed during identify", "connection_id", conn.ID, "user_id", userID)
		return
	}
	s.registry.Register(conn.ID, userID, displayName, conn.sink)
	conn.state = domain.Identified
	conn.userID = userID
	conn.displayName = displayName
	conn.mu.Unlock()

	s.monitoring.IncrIdentified()
	s.log.Info("User identified", "connection_id", conn.ID, "user_id", userID)
	s.emit(ctx, conn.sink, protocol.IdentifySuccess{UserID: userID, DisplayName: displayName})
	s.broadcastOnlineUsers(ctx)
}

func (s *RelayService) identifyFailed(ctx context.Context, conn *Connection, userID string, err error) {
	s.monitoring.IncrIdentifyFailures()
	s.log.Warn("Identify failed", "connection_id", conn.ID, "user_id", userID, "error", err)
	s.emit(ctx, conn.sink, protocol.IdentifyError{Code: errors.MapToCode(err), Error: err.Error()})
}

// SendMessage authorizes, persists and relays a message. The receiver's
// connections get new-message, the originating connection gets send-confirmed.
// On failure only the originating connection hears about it.
func (s *RelayService) SendMessage(ctx context.Context, conn *Connection, msg protocol.SendMessage) {
	if s.authorizer != nil {
		if err := s.authorizer.AuthorizeSend(ctx, conn.UserID(), msg.SenderID, msg.ReceiverID); err != nil {
			s.sendFailed(ctx, conn, err)
			return
		}
	}

	message, err := s.messages.Send(ctx, msg.SenderID, msg.ReceiverID, msg.Content)
	if err != nil {
		s.sendFailed(ctx, conn, err)
		return
	}

	senderName := msg.SenderName
	if senderName == "" {
		senderName = conn.DisplayName()
	}
	s.DeliverNewMessage(ctx, message, senderName)
	s.emit(ctx, conn.sink, protocol.SendConfirmed{MessagePayload: protocol.ToMessagePayload(message)})
}

func (s *RelayService) sendFailed(ctx context.Context, conn *Connection, err error) {
	s.monitoring.IncrSendFailures()
	s.log.Warn("Send failed", "connection_id", conn.ID, "error", err)
	s.emit(ctx, conn.sink, protocol.SendFailed{Code: errors.MapToCode(err), Error: err.Error()})
}

// DeliverNewMessage pushes a stored message to every connection of its
// receiver. An offline receiver gets nothing, the message stays stored.
func (s *RelayService) DeliverNewMessage(ctx context.Context, message domain.Message, senderName string) int {
	sinks := s.registry.GetSinksForUser(message.ReceiverID)
	out := protocol.NewMessage{MessagePayload: protocol.ToMessagePayload(message), SenderName: senderName}
	for _, sink := range sinks {
		s.emit(ctx, sink, out)
	}
	return len(sinks)
}

// GetOnlineUsers answers the requesting connection only.
func (s *RelayService) GetOnlineUsers(ctx context.Context, conn *Connection) {
	s.emit(ctx, conn.sink, protocol.OnlineUsers{UserIDs: s.registry.ListOnlineUserIDs()})
}

// Disconnect unregisters the connection and closes it. Calling it twice is harmless.
func (s *RelayService) Disconnect(ctx context.Context, conn *Connection) {
	conn.mu.Lock()
	if conn.state == domain.Closed {
		conn.mu.Unlock()
		return
	}
	wasIdentified := conn.state == domain.Identified
	conn.state = domain.Closed
	conn.mu.Unlock()

	s.registry.Unregister(conn.ID)
	s.log.Debug("Connection closed", "connection_id", conn.ID, "identified", wasIdentified)
	if wasIdentified && s.config.BroadcastOnDisconnect {
		s.broadcastOnlineUsers(ctx)
	}
}

func (s *RelayService) broadcastOnlineUsers(ctx context.Context) {
	out := protocol.OnlineUsers{UserIDs: s.registry.ListOnlineUserIDs()}
	for _, sink := range s.registry.GetAllSinks() {
		s.emit(ctx, sink, out)
	}
}

// emit delivers one event to one sink within the sink timeout. Delivery
// failures are logged and never propagated.
func (s *RelayService) emit(ctx context.Context, sink contract.ConnectionSink, out protocol.Outbound) {
	sinkCtx, cancel := withTimeout(ctx, s.config.SinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, out); err != nil {
		s.monitoring.IncrDeliveryFailures()
		s.log.Warn("Event delivery failed", "type", out.Type(), "error", err)
		return
	}
	s.monitoring.IncrDeliveries()
}
