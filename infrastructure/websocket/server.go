package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pong-chat/auth"
	"pong-chat/errors"
	"pong-chat/protocol"
	"pong-chat/services"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type ServerConfig struct {
	BufferSize     int
	AllowedOrigins []string
	MaxFrameSize   int64
	PongWait       time.Duration
	PingInterval   time.Duration
	WriteWait      time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		BufferSize:   64,
		MaxFrameSize: 64 * 1024,
		PongWait:     60 * time.Second,
		PingInterval: 30 * time.Second,
		WriteWait:    10 * time.Second,
	}
}

// Server upgrades HTTP requests to websocket connections and bridges them
// to the relay. Each connection has one read pump handling frames in order
// and one write pump draining its sink.
type Server struct {
	log      *slog.Logger
	relay    *services.RelayService
	tokens   *auth.TokenManager
	config   ServerConfig
	upgrader gws.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer builds the transport. With a nil token manager the handshake
// identity comes from the X-User-ID header and is optional.
func NewServer(log *slog.Logger, relay *services.RelayService, tokens *auth.TokenManager, config ServerConfig) *Server {
	defaults := DefaultServerConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = defaults.MaxFrameSize
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.PingInterval <= 0 || config.PingInterval >= config.PongWait {
		config.PingInterval = config.PongWait / 2
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}

	s := &Server{
		log:     log,
		relay:   relay,
		tokens:  tokens,
		config:  config,
		closing: make(chan struct{}),
	}
	s.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || lo.Contains(s.config.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	asserted, err := auth.Identify(s.tokens, r)
	if err != nil {
		s.log.Warn("Rejected websocket handshake", "remote", r.RemoteAddr, "error", err)
		http.Error(w, err.Error(), errors.MapToHTTPStatus(err))
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	sink := NewSink(s.config.BufferSize)
	conn := s.relay.Connect(uuid.NewString(), sink, asserted)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writePump(ws, sink, conn.ID)
	go func() {
		select {
		case <-s.closing:
			_ = ws.Close()
		case <-ctx.Done():
		}
	}()

	s.readPump(ctx, ws, conn)

	s.relay.Disconnect(context.WithoutCancel(ctx), conn)
	sink.Close()
	_ = ws.Close()
}

func (s *Server) readPump(ctx context.Context, ws *gws.Conn, conn *services.Connection) {
	ws.SetReadLimit(s.config.MaxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(s.config.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.config.PongWait))
	})

	for {
		messageType, data, err := ws.ReadMessage()
		if err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure, gws.CloseNoStatusReceived) {
				s.log.Warn("Websocket read failed", "connection_id", conn.ID, "error", err)
			}
			return
		}
		if messageType != gws.TextMessage && messageType != gws.BinaryMessage {
			continue
		}
		s.relay.Handle(ctx, conn, data)
	}
}

func (s *Server) writePump(ws *gws.Conn, sink *Sink, connectionID string) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case out := <-sink.Events():
			data, err := protocol.Encode(out)
			if err != nil {
				s.log.Error("Failed to encode event", "connection_id", connectionID, "type", out.Type(), "error", err)
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := ws.WriteMessage(gws.TextMessage, data); err != nil {
				s.log.Debug("Websocket write failed", "connection_id", connectionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := ws.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		case <-sink.Done():
			_ = ws.WriteControl(gws.CloseMessage,
				gws.FormatCloseMessage(gws.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteWait))
			return
		}
	}
}

// Close drops every open connection and waits for their cleanup.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
	s.wg.Wait()
}
