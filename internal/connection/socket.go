package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/candidate-tracker/internal/realtime"
)

// protocolVersion is the Phoenix serializer version sent as vsn.
const protocolVersion = "1.0.0"

// Socket is a realtime.Channel backed by one Phoenix WebSocket shared by
// all of its subscriptions.
type Socket struct {
	cfg       SocketConfig
	logger    *slog.Logger
	newClient func(ClientConfig, *slog.Logger) Client

	dialMu sync.Mutex // Serializes dials

	mu           sync.Mutex
	client       Client
	channels     map[string]*channel // Wire topic → channel
	heartbeatRef string              // Outstanding heartbeat; empty when answered
	ref          uint64
	closed       bool
}

var _ realtime.Channel = (*Socket)(nil)

// NewSocket creates a Socket. Nothing is dialed until the first Subscribe.
func NewSocket(cfg SocketConfig, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.Default()
	}

	return &Socket{
		cfg:       cfg,
		logger:    logger.With("component", "realtime_socket"),
		newClient: NewClient,
		channels:  make(map[string]*channel),
	}
}

// Subscribe registers a channel for topic and joins it in the background.
// The join reply is reported through cb.OnAck.
func (s *Socket) Subscribe(topic string, filter realtime.ChangeFilter, cb realtime.Callbacks) (realtime.Subscription, error) {
	ch := &channel{
		socket:  s,
		topic:   TopicPrefix + topic,
		filter:  filter,
		cb:      cb,
		joinRef: uuid.NewString(),
		logger:  s.logger.With("topic", topic),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrAlreadyClosed
	}
	if old := s.channels[ch.topic]; old != nil {
		s.logger.Warn("replacing channel that was never unsubscribed", "topic", topic)
		old.detach()
	}
	s.channels[ch.topic] = ch
	s.mu.Unlock()

	go s.join(ch)

	return ch, nil
}

// Close hangs up the socket and detaches every channel without reporting
// anything to their callbacks.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	c := s.client
	s.client = nil
	chans := s.takeChannelsLocked()
	s.mu.Unlock()

	for _, ch := range chans {
		ch.detach()
	}
	if c != nil {
		return c.Close()
	}
	return nil
}

// join connects if needed and sends phx_join for ch.
func (s *Socket) join(ch *channel) {
	c, err := s.connect()
	if err != nil {
		s.forget(ch)
		ch.fail(fmt.Errorf("connect realtime socket: %w", err))
		return
	}

	payload := JoinPayload{
		Config: JoinConfig{
			PostgresChanges: []realtime.ChangeFilter{ch.filter},
		},
	}
	if s.cfg.AccessToken != nil {
		token, err := s.cfg.AccessToken()
		if err != nil {
			s.forget(ch)
			ch.fail(fmt.Errorf("access token: %w", err))
			return
		}
		payload.AccessToken = token
	}

	if ch.isClosed() {
		s.hangupIfIdle()
		return
	}

	ch.startJoinTimer(s.cfg.JoinTimeout)
	if err := s.push(c, ch.topic, EventJoin, payload, ch.joinRef, ch.joinRef); err != nil {
		s.forget(ch)
		ch.fail(fmt.Errorf("send join: %w", err))
		return
	}

	ch.logger.Debug("join sent")
}

// connect returns the live client, dialing one if there is none.
func (s *Socket) connect() (Client, error) {
	s.dialMu.Lock()
	defer s.dialMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrAlreadyClosed
	}
	if s.client != nil {
		c := s.client
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.Client
	cfg.URL = endpoint
	c := s.newClient(cfg, s.logger)

	if err := c.Connect(context.Background()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return nil, ErrAlreadyClosed
	}
	s.client = c
	s.heartbeatRef = ""
	s.mu.Unlock()

	go s.readLoop(c)
	go s.heartbeatLoop(c)

	s.logger.Info("realtime socket connected")

	return c, nil
}

// endpoint builds the socket URL with the apikey and vsn parameters.
func (s *Socket) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	q := u.Query()
	if s.cfg.APIKey != "" {
		q.Set("apikey", s.cfg.APIKey)
	}
	q.Set("vsn", protocolVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop routes frames from c until it closes or fails.
func (s *Socket) readLoop(c Client) {
	for {
		select {
		case <-c.Done():
			return
		case msg := <-c.Messages():
			s.route(msg.Data)
		case err := <-c.Errors():
			// Deliver what was read before the failure.
		drain:
			for {
				select {
				case msg := <-c.Messages():
					s.route(msg.Data)
				default:
					break drain
				}
			}
			s.lost(c, err)
			return
		}
	}
}

// route dispatches one frame to its channel.
func (s *Socket) route(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	if msg.Topic == PhoenixTopic {
		if msg.Event == EventReply {
			s.heartbeatReplied(msg.Ref)
		}
		return
	}

	s.mu.Lock()
	ch := s.channels[msg.Topic]
	s.mu.Unlock()

	if ch == nil {
		s.logger.Debug("frame for unknown topic", "topic", msg.Topic, "event", msg.Event)
		return
	}
	if msg.JoinRef != "" && msg.JoinRef != ch.joinRef {
		s.logger.Debug("frame from earlier join", "topic", msg.Topic, "event", msg.Event)
		return
	}

	ch.handle(msg)
}

// lost tears down c after a fatal error and fails every channel on it.
func (s *Socket) lost(c Client, err error) {
	s.mu.Lock()
	if s.client != c {
		s.mu.Unlock()
		return
	}
	s.client = nil
	chans := s.takeChannelsLocked()
	s.mu.Unlock()

	c.Close()
	s.logger.Warn("realtime socket lost", "error", err, "channels", len(chans))

	for _, ch := range chans {
		ch.fail(fmt.Errorf("realtime socket: %w", err))
	}
}

// heartbeatLoop sends Phoenix heartbeats on c. A heartbeat still
// unanswered when the next one is due marks the socket stale.
func (s *Socket) heartbeatLoop(c Client) {
	if s.cfg.HeartbeatInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.client != c {
				s.mu.Unlock()
				return
			}
			if s.heartbeatRef != "" {
				s.mu.Unlock()
				s.lost(c, ErrStaleConnection)
				return
			}
			ref := s.nextRefLocked()
			s.heartbeatRef = ref
			s.mu.Unlock()

			if err := s.push(c, PhoenixTopic, EventHeartbeat, struct{}{}, ref, ""); err != nil {
				s.logger.Debug("heartbeat send failed", "error", err)
			}
		}
	}
}

func (s *Socket) heartbeatReplied(ref string) {
	s.mu.Lock()
	if ref != "" && ref == s.heartbeatRef {
		s.heartbeatRef = ""
	}
	s.mu.Unlock()
}

// leave removes ch, sends phx_leave and hangs up when no channel is left.
func (s *Socket) leave(ch *channel) error {
	s.mu.Lock()
	if s.channels[ch.topic] == ch {
		delete(s.channels, ch.topic)
	}
	c := s.client
	idle := len(s.channels) == 0
	var ref string
	if c != nil {
		ref = s.nextRefLocked()
	}
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	var err error
	if ch.sentJoin() {
		if err = s.push(c, ch.topic, EventLeave, struct{}{}, ref, ch.joinRef); err != nil {
			err = fmt.Errorf("send leave: %w", err)
		}
	}
	if idle {
		s.hangup(c)
	}
	return err
}

// forget removes ch without touching the wire.
func (s *Socket) forget(ch *channel) {
	s.mu.Lock()
	if s.channels[ch.topic] == ch {
		delete(s.channels, ch.topic)
	}
	s.mu.Unlock()
}

func (s *Socket) hangupIfIdle() {
	s.mu.Lock()
	c := s.client
	idle := len(s.channels) == 0
	s.mu.Unlock()

	if c != nil && idle {
		s.hangup(c)
	}
}

func (s *Socket) hangup(c Client) {
	s.mu.Lock()
	if s.client == c {
		s.client = nil
	}
	s.mu.Unlock()

	c.Close()
	s.logger.Info("realtime socket closed")
}

// current returns the live client or nil.
func (s *Socket) current() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Socket) nextRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRefLocked()
}

func (s *Socket) nextRefLocked() string {
	s.ref++
	return strconv.FormatUint(s.ref, 10)
}

func (s *Socket) takeChannelsLocked() []*channel {
	chans := make([]*channel, 0, len(s.channels))
	for _, ch := range s.channels {
		chans = append(chans, ch)
	}
	s.channels = make(map[string]*channel)
	return chans
}

// push encodes and writes one frame.
func (s *Socket) push(c Client, topic, event string, payload any, ref, joinRef string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	data, err := json.Marshal(Message{
		Topic:   topic,
		Event:   event,
		Payload: body,
		Ref:     ref,
		JoinRef: joinRef,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	return c.Send(data)
}
