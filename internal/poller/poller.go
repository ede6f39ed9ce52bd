package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Refresher reloads state from the backend.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc is a function adapter for Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 5m)
	Timeout  time.Duration // Per-refresh timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Minute,
		Timeout:  30 * time.Second,
	}
}

// Stats counts completed refresh cycles.
type Stats struct {
	Cycles int64
	Errors int64
}

// Poller periodically refreshes a Refresher.
type Poller struct {
	cfg    Config
	target Refresher
	logger *slog.Logger

	cycles atomic.Int64
	errors atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. Zero config fields take their defaults.
func New(cfg Config, target Refresher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:    cfg,
		target: target,
		logger: logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("reconciliation poller started", "interval", p.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("reconciliation poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled. It is the blocking form of Start
// for use under an errgroup.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()
	return p.Stop(stopCtx)
}

// Stats returns the cycle counters.
func (p *Poller) Stats() Stats {
	return Stats{Cycles: p.cycles.Load(), Errors: p.errors.Load()}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll runs one bounded refresh.
func (p *Poller) poll() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	err := p.target.Refresh(ctx)
	p.cycles.Add(1)
	if err != nil {
		if p.ctx.Err() != nil {
			return
		}
		p.errors.Add(1)
		p.logger.Warn("reconciliation failed", "err", err)
		return
	}

	p.logger.Debug("reconciliation complete", "duration", time.Since(start))
}
