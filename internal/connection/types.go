package connection

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/candidate-tracker/internal/realtime"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrNotJoined       = errors.New("channel not joined")
	ErrStaleConnection = errors.New("connection stale (no heartbeat reply)")
	ErrTimeout         = errors.New("timeout")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrChannelError    = errors.New("channel error")
	ErrChannelClosed   = errors.New("channel closed by server")
	ErrJoinRejected    = errors.New("join rejected")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Phoenix events.
const (
	EventJoin            = "phx_join"
	EventLeave           = "phx_leave"
	EventReply           = "phx_reply"
	EventError           = "phx_error"
	EventClose           = "phx_close"
	EventHeartbeat       = "heartbeat"
	EventBroadcast       = "broadcast"
	EventPostgresChanges = "postgres_changes"
	EventSystem          = "system"
	EventAccessToken     = "access_token"
)

// PhoenixTopic is the socket-level topic used for heartbeats.
const PhoenixTopic = "phoenix"

// TopicPrefix is prepended to every channel name on the wire.
const TopicPrefix = "realtime:"

// Message is the Phoenix wire envelope.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// JoinPayload is sent with phx_join.
type JoinPayload struct {
	Config      JoinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

// JoinConfig declares what a channel listens to.
type JoinConfig struct {
	Broadcast       BroadcastConfig         `json:"broadcast"`
	Presence        PresenceConfig          `json:"presence"`
	PostgresChanges []realtime.ChangeFilter `json:"postgres_changes"`
	Private         bool                    `json:"private"`
}

// BroadcastConfig controls broadcast delivery on a channel.
type BroadcastConfig struct {
	Self bool `json:"self"` // Echo our own broadcasts back
	Ack  bool `json:"ack"`  // Server acknowledges each broadcast
}

// PresenceConfig carries the presence key; unused but required by the server.
type PresenceConfig struct {
	Key string `json:"key"`
}

// ReplyPayload is the body of phx_reply.
type ReplyPayload struct {
	Status   string          `json:"status"` // "ok" or "error"
	Response json.RawMessage `json:"response"`
}

// ReplyError is the response body of an error reply.
type ReplyError struct {
	Reason string `json:"reason"`
}

// PostgresChangesPayload is the body of a postgres_changes message.
type PostgresChangesPayload struct {
	IDs  []int64    `json:"ids"`
	Data ChangeData `json:"data"`
}

// ChangeData describes one row change.
type ChangeData struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	CommitTimestamp string          `json:"commit_timestamp"`
	Type            string          `json:"type"` // INSERT, UPDATE, DELETE
	Record          json.RawMessage `json:"record"`
	OldRecord       json.RawMessage `json:"old_record"`
	Errors          json.RawMessage `json:"errors"`
}

// SystemPayload is the body of a system message.
type SystemPayload struct {
	Status    string `json:"status"` // "ok" or "error"
	Message   string `json:"message"`
	Extension string `json:"extension"`
	Channel   string `json:"channel"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL including query parameters
	PingInterval     time.Duration // Interval between WebSocket pings
	PingTimeout      time.Duration // Max time without pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial handshake limit
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       1000,
	}
}

// TokenSource supplies the user's access token for channel joins.
type TokenSource func() (string, error)

// SocketConfig configures a Socket.
type SocketConfig struct {
	URL               string        // wss://<project>/realtime/v1/websocket
	APIKey            string        // Project anon key, sent as the apikey query parameter
	AccessToken       TokenSource   // Optional; sent with each join
	HeartbeatInterval time.Duration // Phoenix heartbeat period
	JoinTimeout       time.Duration // Time to wait for the join reply
	Client            ClientConfig
}

// DefaultSocketConfig returns sensible defaults.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		HeartbeatInterval: 25 * time.Second,
		JoinTimeout:       10 * time.Second,
		Client:            DefaultClientConfig(),
	}
}
