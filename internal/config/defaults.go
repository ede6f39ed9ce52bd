package config

import (
	"fmt"
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultBackend           = BackendHosted
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultSessionFile       = ".candidate-tracker/session.json"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultConnectTimeout    = 10 * time.Second
	DefaultTopic             = "candidates_realtime"
	DefaultSchema            = "public"
	DefaultTable             = "candidates"
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultBucket            = "resumes"
	DefaultLocalDir          = "data/resumes"
	DefaultMaxUploadSize     = 10 << 20
	DefaultServerPort        = 8080
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultPollInterval      = 5 * time.Minute
	DefaultPollTimeout       = 30 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}

	// Hosted defaults
	c.Hosted.URL = strings.TrimRight(c.Hosted.URL, "/")
	if c.Hosted.Timeout == 0 {
		c.Hosted.Timeout = DefaultAPITimeout
	}
	if c.Hosted.MaxRetries == nil {
		n := DefaultMaxRetries
		c.Hosted.MaxRetries = &n
	}

	// Auth defaults
	if c.Auth.SessionFile == "" {
		c.Auth.SessionFile = DefaultSessionFile
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// Realtime defaults
	if c.Realtime.URL == "" && c.Hosted.URL != "" {
		c.Realtime.URL = RealtimeURLFromHosted(c.Hosted.URL)
	}
	if c.Realtime.Topic == "" {
		c.Realtime.Topic = DefaultTopic
	}
	if c.Realtime.Schema == "" {
		c.Realtime.Schema = DefaultSchema
	}
	if c.Realtime.Table == "" {
		c.Realtime.Table = DefaultTable
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Realtime.HeartbeatInterval == 0 {
		c.Realtime.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}

	// Storage defaults
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = DefaultBucket
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = DefaultLocalDir
	}
	if c.Storage.MaxUploadSize == 0 {
		c.Storage.MaxUploadSize = DefaultMaxUploadSize
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = fmt.Sprintf("http://localhost:%d/resumes", c.Server.Port)
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = DefaultConnectTimeout
	}
}

// RealtimeURLFromHosted derives the realtime WebSocket endpoint from a
// project URL: https://x.supabase.co -> wss://x.supabase.co/realtime/v1/websocket.
func RealtimeURLFromHosted(hostedURL string) string {
	u := strings.TrimRight(hostedURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime/v1/websocket"
}
