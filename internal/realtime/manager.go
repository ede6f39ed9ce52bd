package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns one subscription to the change channel and keeps it alive.
//
// Status changes and row changes reach the Handler through a serial queue,
// so callbacks never overlap and rows arrive in channel delivery order.
// Handlers may call Send and Close; calling Open or ManualReconnect from a
// handler is allowed but its callbacks run after the current one returns.
type Manager struct {
	cfg     Config
	channel Channel
	handler Handler
	clock   Clock
	logger  *slog.Logger

	mu     sync.Mutex
	sub    Subscription
	gen    uint64 // Bumped by Open and Close; callbacks from older generations are dropped
	status Status

	reconnectTimer Timer
	reconnectSeq   uint64
	heartbeatTimer Timer
	heartbeatSeq   uint64

	events serialQueue
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the clock used for reconnect and heartbeat timers.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a Manager. Nothing happens until Open is called.
func NewManager(cfg Config, ch Channel, h Handler, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		channel: ch,
		handler: h,
		clock:   SystemClock{},
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("topic", cfg.Topic)

	return m
}

// Open establishes the subscription, closing any existing one first.
// The connecting status is reported before any network interaction. Open
// never blocks on the acknowledgment and never returns an error: failures
// surface as a disconnected status followed by a scheduled reconnect.
func (m *Manager) Open() {
	m.mu.Lock()
	old := m.sub
	m.sub = nil
	m.gen++
	gen := m.gen
	m.stopReconnectLocked()
	m.stopHeartbeatLocked()
	m.setStatusLocked(StatusConnecting, "")
	m.mu.Unlock()

	m.events.drain()

	if old != nil {
		m.unsubscribe(old)
	}

	sub, err := m.channel.Subscribe(m.cfg.Topic, m.cfg.Filter, Callbacks{
		OnChange: func(msg ChangeMessage) { m.handleChange(gen, msg) },
		OnAck:    func(err error) { m.handleAck(gen, err) },
		OnError:  func(err error) { m.handleError(gen, err) },
	})
	if err != nil {
		m.logger.Error("failed to set up realtime subscription", "error", err)
		m.fail(gen, fmt.Sprintf("setup realtime subscription: %v", err))
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Closed or reopened while subscribing.
		m.mu.Unlock()
		m.unsubscribe(sub)
		return
	}
	m.sub = sub
	m.startHeartbeatLocked()
	m.mu.Unlock()

	m.logger.Debug("realtime subscription requested")
}

// Close cancels pending timers and releases the subscription. It is safe to
// call at any time and any number of times, and it leaves the last reported
// status untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopReconnectLocked()
	m.stopHeartbeatLocked()
	old := m.sub
	m.sub = nil
	m.gen++
	m.mu.Unlock()

	if old != nil {
		m.unsubscribe(old)
		m.logger.Info("realtime subscription closed")
	}
}

// ManualReconnect reports connecting, cancels any pending automatic
// reconnect and reopens the subscription immediately.
func (m *Manager) ManualReconnect() {
	m.logger.Info("manual reconnect requested")

	m.mu.Lock()
	m.setStatusLocked(StatusConnecting, "")
	m.stopReconnectLocked()
	m.mu.Unlock()

	m.events.drain()
	m.Open()
}

// Send pushes a broadcast over the live subscription. Without one it does
// nothing; send failures are logged and dropped.
func (m *Manager) Send(b Broadcast) {
	m.mu.Lock()
	sub := m.sub
	m.mu.Unlock()

	if sub == nil {
		return
	}
	if b.Type == "" {
		b.Type = BroadcastType
	}
	if err := sub.Send(b); err != nil {
		m.logger.Debug("broadcast send failed", "event", b.Event, "error", err)
	}
}

// handleChange routes one change message to exactly one handler method.
func (m *Manager) handleChange(gen uint64, msg ChangeMessage) {
	var fn func()
	switch msg.Kind {
	case KindInsert:
		row := msg.New
		fn = func() { m.handler.OnInsert(row) }
	case KindUpdate:
		oldRow, newRow := msg.Old, msg.New
		fn = func() { m.handler.OnUpdate(oldRow, newRow) }
	case KindDelete:
		row := msg.Old
		fn = func() { m.handler.OnDelete(row) }
	default:
		m.logger.Debug("dropping change with unknown kind", "kind", msg.Kind)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("dropping change from stale subscription", "kind", msg.Kind)
		return
	}
	m.events.enqueue(func() {
		if m.current(gen) {
			fn()
		}
	})
	m.mu.Unlock()

	m.events.drain()
}

// handleAck processes the subscribe acknowledgment.
func (m *Manager) handleAck(gen uint64, err error) {
	if err != nil {
		m.logger.Error("realtime subscription rejected", "error", err)
		m.fail(gen, err.Error())
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.setStatusLocked(StatusConnected, "")
	m.mu.Unlock()

	m.events.drain()
	m.logger.Info("realtime connected")
}

// handleError processes an asynchronous error or drop.
func (m *Manager) handleError(gen uint64, err error) {
	msg := "realtime channel closed"
	if err != nil {
		msg = err.Error()
	}
	m.logger.Warn("realtime channel error", "error", msg)
	m.fail(gen, msg)
}

// fail moves to disconnected and schedules one reconnect attempt.
func (m *Manager) fail(gen uint64, msg string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.setStatusLocked(StatusDisconnected, msg)
	m.scheduleReconnectLocked()
	m.mu.Unlock()

	m.events.drain()
}

// current reports whether gen is still the live generation.
func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

// setStatusLocked records the status and queues the callback.
func (m *Manager) setStatusLocked(status Status, errMsg string) {
	m.status = status
	m.events.enqueue(func() { m.handler.OnStatusChange(status, errMsg) })
}

// scheduleReconnectLocked replaces any pending reconnect with a new one.
func (m *Manager) scheduleReconnectLocked() {
	m.stopReconnectLocked()
	m.reconnectSeq++
	seq := m.reconnectSeq

	m.logger.Info("scheduling reconnect", "delay", m.cfg.ReconnectDelay)
	m.reconnectTimer = m.clock.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.fireReconnect(seq)
	})
}

func (m *Manager) fireReconnect(seq uint64) {
	m.mu.Lock()
	if seq != m.reconnectSeq || m.reconnectTimer == nil {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.mu.Unlock()

	m.logger.Info("attempting reconnect")
	m.Open()
}

func (m *Manager) stopReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// startHeartbeatLocked replaces any running heartbeat.
func (m *Manager) startHeartbeatLocked() {
	m.stopHeartbeatLocked()
	m.heartbeatSeq++
	m.scheduleHeartbeatLocked(m.heartbeatSeq)
}

func (m *Manager) scheduleHeartbeatLocked(seq uint64) {
	m.heartbeatTimer = m.clock.AfterFunc(m.cfg.HeartbeatInterval, func() {
		m.beat(seq)
	})
}

// beat sends one heartbeat while connected and schedules the next.
// Failures are not treated as connectivity loss.
func (m *Manager) beat(seq uint64) {
	m.mu.Lock()
	if seq != m.heartbeatSeq || m.heartbeatTimer == nil {
		m.mu.Unlock()
		return
	}
	m.scheduleHeartbeatLocked(seq)
	sub := m.sub
	connected := m.status == StatusConnected
	now := m.clock.Now()
	m.mu.Unlock()

	if sub == nil || !connected {
		return
	}
	if err := sub.Send(NewBroadcast(EventHeartbeat, HeartbeatPayload{Timestamp: now.UnixMilli()})); err != nil {
		m.logger.Debug("heartbeat send failed", "error", err)
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
		m.heartbeatTimer = nil
	}
}

func (m *Manager) unsubscribe(sub Subscription) {
	if err := sub.Unsubscribe(); err != nil {
		m.logger.Debug("unsubscribe failed", "error", err)
	}
}

// DecodeRow unmarshals a change row into T.
func DecodeRow[T any](row json.RawMessage) (T, error) {
	var v T
	if len(row) == 0 {
		return v, ErrEmptyRow
	}
	if err := json.Unmarshal(row, &v); err != nil {
		return v, fmt.Errorf("decode row: %w", err)
	}
	return v, nil
}
