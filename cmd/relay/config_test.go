package main

import (
	"testing"
	"time"

	"pong-chat/errors"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{"USER_DIRECTORY_URL": "http://users:3001"}, &config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal("0.0.0.0:3003", config.Address())
	req.Equal(storageSQLite, config.StorageDriver)
	req.Equal(3*time.Second, config.DirectoryTimeout)
	req.False(config.BroadcastOnDisconnect)
	req.Zero(config.DebugPort)
	req.Empty(config.Origins())
}

func TestConfig_Requires_User_Directory(t *testing.T) {
	var config Config
	err := env.Unmarshal(env.EnvSet{}, &config)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	req := require.New(t)
	valid := Config{
		StorageDriver:        storageBadger,
		CharReplacement:      "#",
		ConnectionBufferSize: 1,
		EventBufferSize:      1,
		ReportInterval:       time.Minute,
	}
	req.NoError(valid.Validate())

	unknown := valid
	unknown.StorageDriver = "postgres"
	req.ErrorIs(unknown.Validate(), errors.ErrUnknownStorage)

	badChar := valid
	badChar.CharReplacement = "**"
	req.Error(badChar.Validate())

	noBuffer := valid
	noBuffer.EventBufferSize = 0
	req.Error(noBuffer.Validate())

	// A ticker cannot run on a zero or negative period
	noInterval := valid
	noInterval.ReportInterval = 0
	req.Error(noInterval.Validate())
	noInterval.ReportInterval = -time.Second
	req.Error(noInterval.Validate())
}

func TestConfig_Origins(t *testing.T) {
	config := Config{AllowedOrigins: " https://pong.example ,, http://localhost:5173"}
	require.Equal(t, []string{"https://pong.example", "http://localhost:5173"}, config.Origins())
}
