package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/auth"
	"github.com/rickgao/candidate-tracker/internal/config"
	"github.com/rickgao/candidate-tracker/internal/connection"
	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/database"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/pgnotify"
	"github.com/rickgao/candidate-tracker/internal/realtime"
	"github.com/rickgao/candidate-tracker/internal/server"
	"github.com/rickgao/candidate-tracker/internal/storage"
	"github.com/rickgao/candidate-tracker/internal/store"
)

// app is a wired dashboard and the resources to release on shutdown.
type app struct {
	dash    *dashboard.Dashboard
	files   *storage.Local // postgres backend only
	closers []func()
}

func (a *app) close() {
	a.dash.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) serverOptions(cfg *config.Config, logger *slog.Logger) []server.Option {
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxUploadSize(cfg.Storage.MaxUploadSize),
	}
	if a.files != nil {
		opts = append(opts, server.WithResumeFiles(a.files))
	}
	return opts
}

func realtimeConfig(cfg config.RealtimeConfig) realtime.Config {
	return realtime.Config{
		Topic: cfg.Topic,
		Filter: realtime.ChangeFilter{
			Event:  "*",
			Schema: cfg.Schema,
			Table:  cfg.Table,
		},
		ReconnectDelay:    cfg.ReconnectDelay,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}
}

// buildApp wires the backend selected by cfg.Backend.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...dashboard.Option) (*app, error) {
	opts = append([]dashboard.Option{dashboard.WithLogger(logger)}, opts...)

	switch cfg.Backend {
	case config.BackendHosted:
		return buildHosted(cfg, logger, opts)
	case config.BackendPostgres:
		return buildPostgres(ctx, cfg, logger, opts)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newAPIClient(cfg *config.Config, logger *slog.Logger, opts ...api.ClientOption) *api.Client {
	opts = append([]api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.Hosted.Timeout),
		api.WithRetries(cfg.Hosted.Retries(), time.Second),
		api.WithBucket(cfg.Storage.Bucket),
	}, opts...)
	return api.NewClient(cfg.Hosted.URL, cfg.Hosted.AnonKey, opts...)
}

func newSessions(cfg *config.Config, logger *slog.Logger) (*auth.Manager, *api.Client) {
	authClient := newAPIClient(cfg, logger)
	return auth.NewManager(authClient, auth.NewFileStore(cfg.Auth.SessionFile), logger), authClient
}

func buildHosted(cfg *config.Config, logger *slog.Logger, opts []dashboard.Option) (*app, error) {
	sessions, _ := newSessions(cfg, logger)
	client := newAPIClient(cfg, logger, api.WithTokenSource(sessions.TokenSource()))

	sockCfg := connection.DefaultSocketConfig()
	sockCfg.URL = cfg.Realtime.URL
	sockCfg.APIKey = cfg.Hosted.AnonKey
	sockCfg.AccessToken = sessions.SocketToken()
	sockCfg.Client.WriteTimeout = cfg.Realtime.WriteTimeout
	socket := connection.NewSocket(sockCfg, logger)

	dash := dashboard.New(dashboard.Hosted(client), sessions, opts...)
	rt := realtime.NewManager(realtimeConfig(cfg.Realtime), socket, dash, realtime.WithLogger(logger))
	dash.Attach(rt)

	return &app{
		dash: dash,
		closers: []func(){
			func() { socket.Close() },
		},
	}, nil
}

func buildPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts []dashboard.Option) (*app, error) {
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxUploadSize, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	identity := auth.Static{User: model.User{ID: cfg.Auth.UserID, Email: cfg.Auth.UserEmail}}
	listener := pgnotify.NewListener(pool, logger)

	dash := dashboard.New(dashboard.SelfHosted(store.New(pool, logger), files), identity, opts...)
	rt := realtime.NewManager(realtimeConfig(cfg.Realtime), listener, dash, realtime.WithLogger(logger))
	dash.Attach(rt)

	return &app{
		dash:    dash,
		files:   files,
		closers: []func(){pool.Close},
	}, nil
}
