package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"pong-chat/protocol"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const readTimeout = 5 * time.Second

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR is not set, skipping end-to-end scenarios")
	}
}

// Client is one websocket connection to the relay.
type Client struct {
	suite *BaseRelaySuite
	name  string
	conn  *websocket.Conn
}

// Dial opens a websocket connection, printing a colorized header for the step.
func (s *BaseRelaySuite) Dial(name, token string) *Client {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	u := url.URL{Scheme: "ws", Host: s.Config.RelayAddr, Path: "/ws"}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	s.Require().NoError(err, "Failed to connect to relay at "+u.String())
	s.T().Cleanup(func() { _ = conn.Close() })
	return &Client{suite: s, name: name, conn: conn}
}

func (c *Client) Send(t protocol.Type, data any) {
	raw, err := json.Marshal(data)
	c.suite.Require().NoError(err)
	frame, err := json.Marshal(protocol.Envelope{Type: t, Data: raw})
	c.suite.Require().NoError(err)
	c.suite.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one of type t arrives and decodes it into into.
func (c *Client) Expect(t protocol.Type, into any) {
	deadline := time.Now().Add(readTimeout)
	for {
		c.suite.Require().NoError(c.conn.SetReadDeadline(deadline))
		_, data, err := c.conn.ReadMessage()
		c.suite.Require().NoError(err, "%s waiting for %s", c.name, t)

		var env protocol.Envelope
		c.suite.Require().NoError(json.Unmarshal(data, &env))
		if c.suite.Config.DebugJSON {
			c.suite.T().Logf("%s <- %s", c.name, string(data))
		}
		if env.Type != t {
			continue
		}
		if into != nil {
			c.suite.Require().NoError(json.Unmarshal(env.Data, into))
		}
		return
	}
}

func (c *Client) Identify(userID string) protocol.IdentifySuccess {
	c.Send(protocol.TypeIdentify, protocol.Identify{UserID: userID})
	var success protocol.IdentifySuccess
	c.Expect(protocol.TypeIdentifySuccess, &success)
	return success
}
