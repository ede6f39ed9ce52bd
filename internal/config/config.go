package config

import "time"

// Backend selects where candidates, resumes and change events live.
type Backend string

const (
	// BackendHosted talks to a hosted backend-as-a-service over REST and
	// the realtime WebSocket.
	BackendHosted Backend = "hosted"

	// BackendPostgres uses a PostgreSQL database directly, with
	// LISTEN/NOTIFY as the change feed and a local resume directory.
	BackendPostgres Backend = "postgres"
)

// Config is the root configuration for the dashboard service.
type Config struct {
	Backend  Backend        `yaml:"backend"`
	Hosted   HostedConfig   `yaml:"hosted"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DBConfig       `yaml:"database"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Poller   PollerConfig   `yaml:"poller"`
	Log      LogConfig      `yaml:"log"`
}

// HostedConfig holds the backend-as-a-service project settings.
type HostedConfig struct {
	URL        string        `yaml:"url"`      // Project URL (e.g., https://xyz.supabase.co)
	AnonKey    string        `yaml:"anon_key"` // Public anon key sent as apikey header
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries *int          `yaml:"max_retries"` // Unset means DefaultMaxRetries; 0 disables retries
}

// Retries returns the retry count for idempotent requests.
func (h HostedConfig) Retries() int {
	if h.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *h.MaxRetries
}

// AuthConfig holds sign-in settings.
type AuthConfig struct {
	Email       string `yaml:"email"`        // Used by "login" when no flag is given
	SessionFile string `yaml:"session_file"` // Persisted session (hosted backend)
	UserID      string `yaml:"user_id"`      // Fixed identity (postgres backend)
	UserEmail   string `yaml:"user_email"`   // Fixed identity (postgres backend)
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"ssl_mode"`
	MaxConns       int           `yaml:"max_conns"`
	MinConns       int           `yaml:"min_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// RealtimeConfig holds change-feed subscription settings.
type RealtimeConfig struct {
	URL               string        `yaml:"url"`   // WebSocket URL; derived from hosted.url when empty
	Topic             string        `yaml:"topic"` // Channel name
	Schema            string        `yaml:"schema"`
	Table             string        `yaml:"table"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds resume storage settings.
type StorageConfig struct {
	Bucket        string `yaml:"bucket"`          // Hosted storage bucket
	LocalDir      string `yaml:"local_dir"`       // Resume directory (postgres backend)
	PublicBaseURL string `yaml:"public_base_url"` // Base URL for locally served resumes
	MaxUploadSize int64  `yaml:"max_upload_size"` // Bytes
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PollerConfig holds reconciliation poller settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
