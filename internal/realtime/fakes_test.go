package realtime

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward by d, firing due timers in time order. Timers
// scheduled by a firing callback fire too if they fall inside the window.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(end) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = end
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

// pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeChannel records subscriptions and lets tests drive their callbacks.
type fakeChannel struct {
	mu       sync.Mutex
	setupErr error
	subs     []*fakeSub
}

func (c *fakeChannel) Subscribe(topic string, filter ChangeFilter, cb Callbacks) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setupErr != nil {
		return nil, c.setupErr
	}
	s := &fakeSub{topic: topic, filter: filter, cb: cb}
	c.subs = append(c.subs, s)
	return s, nil
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *fakeChannel) last() *fakeSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return nil
	}
	return c.subs[len(c.subs)-1]
}

func (c *fakeChannel) sub(i int) *fakeSub {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[i]
}

// live counts subscriptions that have not been unsubscribed.
func (c *fakeChannel) live() int {
	c.mu.Lock()
	subs := append([]*fakeSub(nil), c.subs...)
	c.mu.Unlock()

	n := 0
	for _, s := range subs {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

func (c *fakeChannel) setSetupErr(err error) {
	c.mu.Lock()
	c.setupErr = err
	c.mu.Unlock()
}

type fakeSub struct {
	topic  string
	filter ChangeFilter
	cb     Callbacks

	mu           sync.Mutex
	sent         []Broadcast
	sendErr      error
	unsubscribed int
}

func (s *fakeSub) Send(b Broadcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, b)
	return nil
}

func (s *fakeSub) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed++
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed > 0
}

func (s *fakeSub) broadcasts() []Broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Broadcast(nil), s.sent...)
}

func (s *fakeSub) ack() { s.cb.OnAck(nil) }

func (s *fakeSub) reject(err error) { s.cb.OnAck(err) }

func (s *fakeSub) drop(err error) { s.cb.OnError(err) }

func (s *fakeSub) deliver(msg ChangeMessage) { s.cb.OnChange(msg) }

// event is one recorded handler callback.
type event struct {
	kind   string // insert, update, delete, status
	old    string
	new    string
	status Status
	errMsg string
}

type recorder struct {
	mu     sync.Mutex
	events []event
	// hook runs after each recorded event, outside the lock.
	hook func(event)
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

func (r *recorder) OnInsert(row json.RawMessage) {
	r.add(event{kind: "insert", new: string(row)})
}

func (r *recorder) OnUpdate(oldRow, newRow json.RawMessage) {
	r.add(event{kind: "update", old: string(oldRow), new: string(newRow)})
}

func (r *recorder) OnDelete(row json.RawMessage) {
	r.add(event{kind: "delete", old: string(row)})
}

func (r *recorder) OnStatusChange(status Status, errMsg string) {
	r.add(event{kind: "status", status: status, errMsg: errMsg})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func (r *recorder) statuses() []Status {
	var out []Status
	for _, e := range r.all() {
		if e.kind == "status" {
			out = append(out, e.status)
		}
	}
	return out
}

func (r *recorder) rows() []event {
	var out []event
	for _, e := range r.all() {
		if e.kind != "status" {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) lastStatus() event {
	evs := r.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].kind == "status" {
			return evs[i]
		}
	}
	return event{}
}

var errBoom = errors.New("boom")

func newTestManager() (*Manager, *fakeChannel, *recorder, *fakeClock) {
	ch := &fakeChannel{}
	rec := &recorder{}
	clock := newFakeClock()
	m := NewManager(DefaultConfig(), ch, rec, WithClock(clock))
	return m, ch, rec, clock
}

func insert(row string) ChangeMessage {
	return ChangeMessage{Kind: KindInsert, New: json.RawMessage(row)}
}

func update(oldRow, newRow string) ChangeMessage {
	return ChangeMessage{Kind: KindUpdate, Old: json.RawMessage(oldRow), New: json.RawMessage(newRow)}
}

func remove(row string) ChangeMessage {
	return ChangeMessage{Kind: KindDelete, Old: json.RawMessage(row)}
}
