package realtime

import (
	"encoding/json"
	"time"
)

// Status is the manager's belief about channel reachability.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// ChangeKind tags a row-level change message.
type ChangeKind string

const (
	KindInsert ChangeKind = "INSERT"
	KindUpdate ChangeKind = "UPDATE"
	KindDelete ChangeKind = "DELETE"
)

// ChangeMessage is a row-level change delivered by a Channel. Rows are
// opaque JSON; the manager routes them without decoding.
type ChangeMessage struct {
	Kind ChangeKind
	Old  json.RawMessage // Previous row (UPDATE, DELETE)
	New  json.RawMessage // Current row (INSERT, UPDATE)
}

// ChangeFilter selects which row changes a subscription receives.
type ChangeFilter struct {
	Event  string `json:"event"` // "*", "INSERT", "UPDATE" or "DELETE"
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// Matches reports whether a change of kind on schema.table passes the filter.
func (f ChangeFilter) Matches(kind ChangeKind, schema, table string) bool {
	if f.Schema != "" && f.Schema != schema {
		return false
	}
	if f.Table != "" && f.Table != table {
		return false
	}
	return f.Event == "" || f.Event == "*" || f.Event == string(kind)
}

// BroadcastType is the type tag of every application-level broadcast.
const BroadcastType = "broadcast"

// Broadcast is an application-level message pushed to channel peers.
type Broadcast struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// NewBroadcast builds a Broadcast with the broadcast type tag.
func NewBroadcast(event string, payload any) Broadcast {
	return Broadcast{Type: BroadcastType, Event: event, Payload: payload}
}

// Broadcast event names sent by the service.
const (
	EventHeartbeat        = "heartbeat"
	EventCandidateCreated = "candidate_created"
	EventStatusUpdated    = "status_updated"
	EventCandidateDeleted = "candidate_deleted"
	EventFileUploaded     = "file_uploaded"
)

// HeartbeatPayload is the body of a heartbeat broadcast.
type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}

// Callbacks receive subscription lifecycle and change notifications from a
// Channel. A Channel must invoke OnChange in delivery order and never
// concurrently for the same subscription.
type Callbacks struct {
	OnChange func(ChangeMessage)
	OnAck    func(err error) // Subscribe acknowledged; err != nil on rejection
	OnError  func(err error) // Asynchronous error or drop after subscribing
}

// Channel is a managed publish/subscribe facility delivering row changes.
type Channel interface {
	// Subscribe registers cb for changes matching filter on the named
	// topic. It must not block waiting for the acknowledgment; the result
	// is reported later through cb.OnAck. A returned error means the
	// subscription could not be set up at all.
	Subscribe(topic string, filter ChangeFilter, cb Callbacks) (Subscription, error)
}

// Subscription is a live channel subscription.
type Subscription interface {
	// Send pushes a broadcast to channel peers.
	Send(b Broadcast) error

	// Unsubscribe detaches the subscription. Calling it more than once is
	// a no-op.
	Unsubscribe() error
}

// Handler receives typed change and status callbacks from the Manager.
// Calls are serialized and preserve channel delivery order.
type Handler interface {
	OnInsert(row json.RawMessage)
	OnUpdate(oldRow, newRow json.RawMessage)
	OnDelete(row json.RawMessage)
	OnStatusChange(status Status, errMsg string)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Insert       func(row json.RawMessage)
	Update       func(oldRow, newRow json.RawMessage)
	Delete       func(row json.RawMessage)
	StatusChange func(status Status, errMsg string)
}

func (h HandlerFuncs) OnInsert(row json.RawMessage) {
	if h.Insert != nil {
		h.Insert(row)
	}
}

func (h HandlerFuncs) OnUpdate(oldRow, newRow json.RawMessage) {
	if h.Update != nil {
		h.Update(oldRow, newRow)
	}
}

func (h HandlerFuncs) OnDelete(row json.RawMessage) {
	if h.Delete != nil {
		h.Delete(row)
	}
}

func (h HandlerFuncs) OnStatusChange(status Status, errMsg string) {
	if h.StatusChange != nil {
		h.StatusChange(status, errMsg)
	}
}

// Config configures the Manager.
type Config struct {
	Topic             string        // Channel name (e.g., candidates_realtime)
	Filter            ChangeFilter  // Rows to receive
	ReconnectDelay    time.Duration // Fixed delay before each reconnect attempt
	HeartbeatInterval time.Duration // Heartbeat broadcast period while connected
}

// DefaultConfig returns the reference settings: all changes on
// public.candidates, 5s reconnect delay, 30s heartbeat.
func DefaultConfig() Config {
	return Config{
		Topic: "candidates_realtime",
		Filter: ChangeFilter{
			Event:  "*",
			Schema: "public",
			Table:  "candidates",
		},
		ReconnectDelay:    5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}
