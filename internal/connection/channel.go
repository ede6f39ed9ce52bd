package connection

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/candidate-tracker/internal/realtime"
)

// channelState tracks a channel through its join.
type channelState int

const (
	stateJoining channelState = iota
	stateJoined
	stateErrored
)

// channel is one joined Phoenix topic. It implements realtime.Subscription.
type channel struct {
	socket  *Socket
	topic   string
	filter  realtime.ChangeFilter
	cb      realtime.Callbacks
	joinRef string
	logger  *slog.Logger

	// emitMu serializes callbacks. It is never held by Unsubscribe or Send,
	// so callbacks may call either.
	emitMu sync.Mutex

	mu        sync.Mutex
	state     channelState
	joinSent  bool
	closed    bool
	joinTimer *time.Timer
}

var _ realtime.Subscription = (*channel)(nil)

// Send pushes a broadcast to the channel's peers.
func (ch *channel) Send(b realtime.Broadcast) error {
	ch.mu.Lock()
	closed, state := ch.closed, ch.state
	ch.mu.Unlock()

	if closed {
		return ErrAlreadyClosed
	}
	if state != stateJoined {
		return ErrNotJoined
	}

	c := ch.socket.current()
	if c == nil {
		return ErrNotConnected
	}
	if b.Type == "" {
		b.Type = realtime.BroadcastType
	}
	return ch.socket.push(c, ch.topic, EventBroadcast, b, ch.socket.nextRef(), ch.joinRef)
}

// Unsubscribe leaves the channel. Later calls are no-ops.
func (ch *channel) Unsubscribe() error {
	if !ch.detach() {
		return nil
	}
	return ch.socket.leave(ch)
}

// detach silences the channel. It reports whether this call did it.
func (ch *channel) detach() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return false
	}
	ch.closed = true
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	return true
}

func (ch *channel) isClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

func (ch *channel) sentJoin() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.joinSent
}

// startJoinTimer arms the join timeout and marks the join as sent.
func (ch *channel) startJoinTimer(d time.Duration) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.joinSent = true
	if d <= 0 || ch.closed {
		return
	}
	ch.joinTimer = time.AfterFunc(d, func() {
		ch.logger.Warn("join timed out", "timeout", d)
		ch.fail(ErrTimeout)
	})
}

// handle processes one frame addressed to this channel.
func (ch *channel) handle(msg Message) {
	switch msg.Event {
	case EventReply:
		if msg.Ref != ch.joinRef {
			return
		}
		var reply ReplyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			ch.fail(fmt.Errorf("decode join reply: %w", err))
			return
		}
		if reply.Status != "ok" {
			var reason ReplyError
			json.Unmarshal(reply.Response, &reason)
			if reason.Reason == "" {
				reason.Reason = reply.Status
			}
			ch.fail(fmt.Errorf("%w: %s", ErrJoinRejected, reason.Reason))
			return
		}
		ch.joined()

	case EventPostgresChanges:
		var p PostgresChangesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			ch.logger.Warn("dropping malformed change", "error", err)
			return
		}
		kind := realtime.ChangeKind(p.Data.Type)
		if !ch.filter.Matches(kind, p.Data.Schema, p.Data.Table) {
			return
		}
		ch.emit(func() {
			ch.cb.OnChange(realtime.ChangeMessage{
				Kind: kind,
				Old:  nonNull(p.Data.OldRecord),
				New:  nonNull(p.Data.Record),
			})
		})

	case EventSystem:
		var p SystemPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if p.Status == "error" {
			ch.fail(fmt.Errorf("%w: %s", ErrChannelError, p.Message))
			return
		}
		ch.logger.Debug("system message", "extension", p.Extension, "message", p.Message)

	case EventError:
		ch.fail(ErrChannelError)

	case EventClose:
		ch.fail(ErrChannelClosed)

	case EventBroadcast:
		ch.logger.Debug("peer broadcast received")

	default:
		ch.logger.Debug("ignoring event", "event", msg.Event)
	}
}

// joined reports a successful join once.
func (ch *channel) joined() {
	ch.mu.Lock()
	if ch.state != stateJoining {
		ch.mu.Unlock()
		return
	}
	ch.state = stateJoined
	ch.stopJoinTimerLocked()
	ch.mu.Unlock()

	ch.logger.Debug("joined")
	ch.emit(func() { ch.cb.OnAck(nil) })
}

// fail reports err once: as the join result while joining, as an
// asynchronous error afterwards.
func (ch *channel) fail(err error) {
	ch.mu.Lock()
	prev := ch.state
	if prev == stateErrored {
		ch.mu.Unlock()
		return
	}
	ch.state = stateErrored
	ch.stopJoinTimerLocked()
	ch.mu.Unlock()

	if prev == stateJoining {
		ch.emit(func() { ch.cb.OnAck(err) })
		return
	}
	ch.emit(func() { ch.cb.OnError(err) })
}

func (ch *channel) stopJoinTimerLocked() {
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
}

// emit runs fn unless the channel has been unsubscribed.
func (ch *channel) emit(fn func()) {
	ch.emitMu.Lock()
	defer ch.emitMu.Unlock()
	if ch.isClosed() {
		return
	}
	fn()
}

// nonNull maps a JSON null to an empty row.
func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
