package pgnotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/candidate-tracker/internal/realtime"
	"github.com/rickgao/candidate-tracker/internal/store"
)

var (
	// ErrClosed is returned when sending on an unsubscribed subscription.
	ErrClosed = errors.New("subscription closed")

	// ErrNotListening is returned by Send before LISTEN has completed.
	ErrNotListening = errors.New("not listening")

	// ErrConnectionLost is reported when the LISTEN session ends.
	ErrConnectionLost = errors.New("notification connection lost")
)

// DefaultSendTimeout bounds a pg_notify broadcast.
const DefaultSendTimeout = 5 * time.Second

// Pool is the subset of *pgxpool.Pool a Listener uses.
type Pool interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Listener is a realtime.Channel backed by PostgreSQL LISTEN/NOTIFY. Each
// subscription holds one pooled connection for its LISTEN session.
type Listener struct {
	pool        Pool
	logger      *slog.Logger
	sendTimeout time.Duration
}

var _ realtime.Channel = (*Listener)(nil)

// NewListener creates a Listener over pool.
func NewListener(pool Pool, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		pool:        pool,
		logger:      logger.With("component", "pgnotify"),
		sendTimeout: DefaultSendTimeout,
	}
}

// Subscribe starts listening on topic in the background. The LISTEN result
// is reported through cb.OnAck.
func (l *Listener) Subscribe(topic string, filter realtime.ChangeFilter, cb realtime.Callbacks) (realtime.Subscription, error) {
	if !store.ValidChannel(topic) {
		return nil, fmt.Errorf("invalid notify channel %q", topic)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		listener: l,
		topic:    topic,
		filter:   filter,
		cb:       cb,
		cancel:   cancel,
		logger:   l.logger.With("topic", topic),
	}
	go sub.run(ctx)
	return sub, nil
}

type subscription struct {
	listener *Listener
	topic    string
	filter   realtime.ChangeFilter
	cb       realtime.Callbacks
	cancel   context.CancelFunc
	logger   *slog.Logger

	mu        sync.Mutex
	listening bool
	closed    bool
}

// Send publishes b to every listener on the topic with pg_notify.
func (s *subscription) Send(b realtime.Broadcast) error {
	s.mu.Lock()
	closed, listening := s.closed, s.listening
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !listening {
		return ErrNotListening
	}
	if b.Type == "" {
		b.Type = realtime.BroadcastType
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.listener.sendTimeout)
	defer cancel()
	if _, err := s.listener.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, s.topic, string(data)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Unsubscribe stops the LISTEN session. It does not wait for the session
// goroutine, so it may be called from a callback.
func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.listening = false
	s.mu.Unlock()

	s.cancel()
	return nil
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// run owns the LISTEN connection. Callbacks are invoked only from here, so
// they are ordered and never concurrent.
func (s *subscription) run(ctx context.Context) {
	conn, err := s.listener.pool.Acquire(ctx)
	if err != nil {
		s.emit(func() { s.cb.OnAck(fmt.Errorf("acquire connection: %w", err)) })
		return
	}
	defer s.release(conn)

	listen := "LISTEN " + pgx.Identifier{s.topic}.Sanitize()
	if _, err := conn.Exec(ctx, listen); err != nil {
		s.emit(func() { s.cb.OnAck(fmt.Errorf("listen: %w", err)) })
		return
	}

	s.mu.Lock()
	if !s.closed {
		s.listening = true
	}
	s.mu.Unlock()

	s.logger.Debug("listening")
	s.emit(func() { s.cb.OnAck(nil) })

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.listening = false
			s.mu.Unlock()
			s.emit(func() { s.cb.OnError(fmt.Errorf("%w: %w", ErrConnectionLost, err)) })
			return
		}
		s.deliver(n.Payload)
	}
}

// release unlistens and returns the connection to the pool. A connection
// that cannot unlisten is closed so the pool discards it.
func (s *subscription) release(conn *pgxpool.Conn) {
	if !conn.Conn().IsClosed() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
			conn.Conn().Close(ctx)
		}
		cancel()
	}
	conn.Release()
}

func (s *subscription) deliver(payload string) {
	n, err := parseNotification(payload)
	if err != nil {
		s.logger.Warn("dropping malformed notification", "error", err)
		return
	}
	if n.Type == realtime.BroadcastType {
		s.logger.Debug("peer broadcast received", "event", n.Event)
		return
	}

	kind := realtime.ChangeKind(n.Type)
	if !s.filter.Matches(kind, n.Schema, n.Table) {
		return
	}
	msg := realtime.ChangeMessage{
		Kind: kind,
		Old:  nonNull(n.OldRecord),
		New:  nonNull(n.Record),
	}
	s.emit(func() { s.cb.OnChange(msg) })
}

// emit runs fn unless the subscription has been unsubscribed.
func (s *subscription) emit(fn func()) {
	if s.isClosed() {
		return
	}
	fn()
}
