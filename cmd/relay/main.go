package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pong-chat/auth"
	"pong-chat/infrastructure/http/client"
	"pong-chat/infrastructure/http/server"
	"pong-chat/infrastructure/websocket"
	"pong-chat/moderation"
	"pong-chat/observability"
	"pong-chat/repositories"
	"pong-chat/runtime"
	"pong-chat/runtime/workers"
	"pong-chat/search"
	"pong-chat/services"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred closes run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Message store
	repository, err := openRepository(config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing message store...")
		_ = repository.Close()
	}()

	index, err := search.OpenIndex(config.BlugeFilepath, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = index.Close()
	}()

	censor, err := buildCensor(config, log)
	if err != nil {
		return exitConfig, err
	}

	// 3. Domain events & supervision
	monitoring := observability.NewMonitoringManager(log)
	registry := runtime.NewRegistry(log)
	fanout := workers.NewEventFanout(log, config.EventBufferSize, config.SinkTimeout, index, monitoring).
		OnDrop(monitoring.IncrEventsDropped)

	supervisor := workers.NewSupervisor(log).OnRestart(func(string, error) {
		monitoring.IncrWorkerRestarts()
	})
	supervisor.Add(fanout, workers.NewReporterWorker(log, monitoring, registry, config.ReportInterval))
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 4. Services
	messages := services.NewMessageService(log, repository, fanout, censor,
		config.MaxContentLength, config.PersistenceTimeout)
	directory := client.NewUserDirectoryClient(log, config.UserDirectoryURL, config.DirectoryTimeout)

	var tokens *auth.TokenManager
	if config.JWTSecret != "" {
		tokens = auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	}
	relayAuthorizer, restAuthorizer := buildAuthorizers(config, directory)

	relay := services.NewRelayService(log, registry, directory, messages, relayAuthorizer, monitoring,
		services.RelayConfig{
			DirectoryTimeout:      config.DirectoryTimeout,
			SinkTimeout:           config.SinkTimeout,
			BroadcastOnDisconnect: config.BroadcastOnDisconnect,
		})

	// 5. HTTP & websocket server
	wsConfig := websocket.DefaultServerConfig()
	wsConfig.BufferSize = config.ConnectionBufferSize
	wsConfig.AllowedOrigins = config.Origins()
	wsServer := websocket.NewServer(log, relay, tokens, wsConfig)

	router := server.NewRouter(log, tokens,
		server.NewMessageHandler(log, messages, relay, restAuthorizer, index),
		server.NewPresenceHandler(registry, monitoring),
		wsServer)
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay", "address", config.Address(), "storage", config.StorageDriver)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	wsServer.Close()
	supervisor.Stop()
	<-supervisorDone

	log.Info("Program stopped cleanly")
	return code, runErr
}

func openRepository(config Config, log *slog.Logger) (repositories.IMessageRepository, error) {
	switch config.StorageDriver {
	case storageBadger:
		repository, err := repositories.OpenBadgerMessageRepository(config.BadgerFilepath, log)
		if err != nil {
			return nil, err
		}
		if config.DebugPort > 0 {
			startInspector(repository, config.DebugPort, log)
		}
		return repository, nil
	default:
		db, err := repositories.OpenSQLite(config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("database opening failed: %w", err)
		}
		repository, err := repositories.NewSQLiteMessageRepository(db, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return repository, nil
	}
}

// startInspector serves the Badger web inspector on the debug port.
func startInspector(repository *repositories.BadgerMessageRepository, port int, log *slog.Logger) {
	endpoint := "/inspect"
	url := fmt.Sprintf("http://localhost:%d%s?prefix=msg:", port, endpoint)
	log.Info("Debug Badger inspector available", "url", url)
	database.StartDebugServer(repository.DB(), port, endpoint, repositories.MessageMapper)
}

// buildCensor returns nil when no word list is configured.
func buildCensor(config Config, log *slog.Logger) (services.ICensor, error) {
	if config.CensoredWordsFile == "" {
		return nil, nil
	}
	char, err := config.CharacterRune()
	if err != nil {
		return nil, err
	}
	path, err := filepath.Abs(config.CensoredWordsFile)
	if err != nil {
		return nil, err
	}
	data, err := moderation.LoadCensoredWords(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(data.Words, char, log)
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderator, nil
}

// buildAuthorizers returns the websocket and REST send policies. Identified
// senders are required once tokens are in use, friendship on demand.
func buildAuthorizers(config Config, directory *client.UserDirectoryClient) (services.SendAuthorizer, services.SendAuthorizer) {
	var relayChain services.ChainAuthorizer
	var rest services.SendAuthorizer
	if config.JWTSecret != "" {
		relayChain = append(relayChain, services.IdentifiedSenderAuthorizer{})
	}
	if config.RequireFriendship {
		friendship := services.NewFriendshipAuthorizer(directory, config.DirectoryTimeout)
		relayChain = append(relayChain, friendship)
		rest = friendship
	}
	if len(relayChain) == 0 {
		return nil, rest
	}
	return relayChain, rest
}
