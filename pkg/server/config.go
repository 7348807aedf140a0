package server

import (
	"net/http"
	"time"
)

// Config holds server configuration.
type Config struct {
	// ReadTimeout is the maximum time to wait for a message from the host.
	// Heartbeats keep idle connections inside it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout is the maximum time for the ClientHello to arrive.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxSessions caps concurrent connections. Zero means unlimited.
	MaxSessions int

	// WebSocketPath is where hosts connect. Default: "/ws".
	WebSocketPath string

	// Title is the document title of the served page.
	Title string

	// ClientScript is the path of the host script referenced by the page.
	ClientScript string

	// StyleSheets are linked from the served page.
	StyleSheets []string

	// CheckOrigin validates the Origin header of upgrade requests.
	// Default: same-origin check of gorilla/websocket.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		WebSocketPath:     "/ws",
		Title:             "retain",
		ClientScript:      "/client.js",
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.WebSocketPath == "" {
		out.WebSocketPath = d.WebSocketPath
	}
	if out.Title == "" {
		out.Title = d.Title
	}
	if out.ClientScript == "" {
		out.ClientScript = d.ClientScript
	}
	return &out
}
