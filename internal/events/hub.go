package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/realtime"
)

// Event is a published dashboard notice.
type Event struct {
	ID        uint64               `json:"id"`
	Kind      dashboard.NoticeKind `json:"kind"`
	Candidate *model.Candidate     `json:"candidate,omitempty"`
	Status    realtime.Status      `json:"status,omitempty"`
	Error     string               `json:"error,omitempty"`
	At        time.Time            `json:"at"`
}

// Config holds per-subscriber buffer sizes.
type Config struct {
	InitialBuffer int // Default: 16
	MaxBuffer     int // Default: 1024
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		InitialBuffer: 16,
		MaxBuffer:     1024,
	}
}

// Stats contains hub statistics.
type Stats struct {
	Subscribers int
	Published   int64
}

// Hub broadcasts events to every current subscriber.
type Hub struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	seq    uint64
	closed bool
}

// NewHub creates a Hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InitialBuffer < 1 {
		cfg.InitialBuffer = DefaultConfig().InitialBuffer
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.With("component", "events"),
		now:    time.Now,
		subs:   make(map[uint64]*Subscription),
	}
}

// Notify publishes a dashboard notice. It never blocks and is suitable as
// a dashboard.WithNotifier callback.
func (h *Hub) Notify(n dashboard.Notice) {
	ev := Event{Kind: n.Kind, At: h.now().UTC()}
	if n.Kind == dashboard.NoticeStatus {
		ev.Status = n.Status
		ev.Error = n.Error
	} else {
		c := n.Candidate
		ev.Candidate = &c
	}
	h.Publish(ev)
}

// Publish assigns the next sequence number to ev and delivers it.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.seq++
	ev.ID = h.seq
	for _, s := range h.subs {
		s.buf.Send(ev)
	}
}

// Subscribe registers a new subscriber. On a closed hub the subscription
// is already closed.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription{
		id:  h.nextID,
		hub: h,
		buf: NewBuffer[Event](h.cfg.InitialBuffer, h.cfg.MaxBuffer),
	}
	if h.closed {
		s.buf.Close()
		return s
	}
	h.subs[s.id] = s
	h.logger.Debug("subscriber added", "id", s.id, "subscribers", len(h.subs))
	return s
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, s := range h.subs {
		s.buf.Close()
		delete(h.subs, id)
	}
}

// Stats returns hub statistics.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Subscribers: len(h.subs), Published: int64(h.seq)}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; ok {
		delete(h.subs, id)
		h.logger.Debug("subscriber removed", "id", id, "subscribers", len(h.subs))
	}
}

// Subscription is one subscriber's event queue.
type Subscription struct {
	id   uint64
	hub  *Hub
	buf  *Buffer[Event]
	once sync.Once
}

// Receive blocks for the next event. It returns false once the
// subscription is closed and drained.
func (s *Subscription) Receive() (Event, bool) {
	return s.buf.Receive()
}

// Drain returns every event already queued without blocking.
func (s *Subscription) Drain() []Event {
	return s.buf.DrainTo(0)
}

// Dropped reports how many events were discarded because the reader fell
// behind.
func (s *Subscription) Dropped() int64 {
	return s.buf.Stats().Dropped
}

// Close detaches the subscription. It is safe to call more than once and
// from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		s.buf.Close()
	})
}
