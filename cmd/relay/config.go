package main

import (
	"fmt"
	"strings"
	"time"

	"pong-chat/errors"
)

const (
	storageSQLite = "sqlite"
	storageBadger = "badger"
)

type Config struct {
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=3003"`
	LogLevel              string        `env:"LOG_LEVEL,default=INFO"`
	StorageDriver         string        `env:"STORAGE_DRIVER,default=sqlite"`
	SQLitePath            string        `env:"SQLITE_PATH,default=chat.db"`
	BadgerFilepath        string        `env:"BADGER_FILEPATH,default=data/badger"`
	BlugeFilepath         string        `env:"BLUGE_FILEPATH"`
	UserDirectoryURL      string        `env:"USER_DIRECTORY_URL,required=true"`
	DirectoryTimeout      time.Duration `env:"DIRECTORY_TIMEOUT,default=3s"`
	PersistenceTimeout    time.Duration `env:"PERSISTENCE_TIMEOUT,default=5s"`
	SinkTimeout           time.Duration `env:"SINK_TIMEOUT,default=2s"`
	ConnectionBufferSize  int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	EventBufferSize       int           `env:"EVENT_BUFFER_SIZE,default=1024"`
	MaxContentLength      int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	RequireFriendship     bool          `env:"REQUIRE_FRIENDSHIP,default=false"`
	BroadcastOnDisconnect bool          `env:"BROADCAST_ON_DISCONNECT,default=false"`
	JWTSecret             string        `env:"JWT_SECRET"`
	AuthTokenDuration     time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	CensoredWordsFile     string        `env:"CENSORED_WORDS_FILE"`
	CharReplacement       string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ReportInterval        time.Duration `env:"REPORT_INTERVAL,default=1m"`
	AllowedOrigins        string        `env:"ALLOWED_ORIGINS"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort             int           `env:"DEBUG_PORT"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}

// Origins splits ALLOWED_ORIGINS. An empty list allows every origin.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case storageSQLite, storageBadger:
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownStorage, c.StorageDriver)
	}
	if _, err := c.CharacterRune(); err != nil {
		return err
	}
	if c.ConnectionBufferSize <= 0 || c.EventBufferSize <= 0 {
		return fmt.Errorf("buffer sizes must be positive")
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("REPORT_INTERVAL must be positive, got %s", c.ReportInterval)
	}
	return nil
}
