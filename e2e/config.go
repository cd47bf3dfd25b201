package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR is host:port of a running relay, the suite is skipped without it
	RelayAddr string `envconfig:"RELAY_ADDR"`
	// Users known by the user directory the relay talks to
	UserA string `envconfig:"E2E_USER_A" default:"1"`
	UserB string `envconfig:"E2E_USER_B" default:"2"`
	// E2E_TOKEN_A/B are sent during the handshake when the relay requires tokens
	TokenA string `envconfig:"E2E_TOKEN_A"`
	TokenB string `envconfig:"E2E_TOKEN_B"`
	// E2E_DEBUG_JSON dumps every frame received
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
