package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendHosted:
		if c.Hosted.URL == "" {
			return errors.New("hosted.url is required")
		}
		if c.Hosted.AnonKey == "" {
			return errors.New("hosted.anon_key is required")
		}
		if c.Hosted.Retries() < 0 {
			return errors.New("hosted.max_retries must be >= 0")
		}
		if c.Realtime.URL == "" {
			return errors.New("realtime.url is required")
		}
	case BackendPostgres:
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Auth.UserID == "" {
			return errors.New("auth.user_id is required for the postgres backend")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendHosted, BackendPostgres, c.Backend)
	}

	if c.Realtime.Topic == "" {
		return errors.New("realtime.topic is required")
	}
	if c.Realtime.Table == "" {
		return errors.New("realtime.table is required")
	}
	if c.Realtime.ReconnectDelay <= 0 {
		return errors.New("realtime.reconnect_delay must be > 0")
	}
	if c.Realtime.HeartbeatInterval <= 0 {
		return errors.New("realtime.heartbeat_interval must be > 0")
	}

	if c.Storage.MaxUploadSize < 1 {
		return errors.New("storage.max_upload_size must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Poller.Interval < 0 {
		return errors.New("poller.interval must be >= 0")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
