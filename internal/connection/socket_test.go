package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/candidate-tracker/internal/realtime"
)

// phoenixServer is a minimal Phoenix channel server.
type phoenixServer struct {
	t      *testing.T
	server *httptest.Server

	// Behaviour, set before the first connection.
	rejectJoin       string
	silentJoin       bool
	ignoreHeartbeats bool
	afterJoin        func(topic, joinRef string) []Message

	mu     sync.Mutex
	frames []Message
	query  url.Values
	conns  []*websocket.Conn
	dials  int
}

func newPhoenixServer(t *testing.T, configure func(*phoenixServer)) *phoenixServer {
	ps := &phoenixServer{t: t}
	if configure != nil {
		configure(ps)
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()

		ps.mu.Lock()
		ps.query = r.URL.Query()
		ps.conns = append(ps.conns, conn)
		ps.dials++
		ps.mu.Unlock()

		ps.serve(conn)
	}))
	t.Cleanup(ps.server.Close)

	return ps
}

func (ps *phoenixServer) serve(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			ps.t.Logf("bad frame: %s", data)
			continue
		}

		ps.mu.Lock()
		ps.frames = append(ps.frames, msg)
		ps.mu.Unlock()

		switch msg.Event {
		case EventHeartbeat:
			if ps.ignoreHeartbeats {
				continue
			}
			ps.write(conn, reply(msg.Topic, msg.Ref, "", "ok", `{}`))

		case EventJoin:
			if ps.silentJoin {
				continue
			}
			if ps.rejectJoin != "" {
				ps.write(conn, reply(msg.Topic, msg.Ref, msg.JoinRef, "error", fmt.Sprintf(`{"reason":%q}`, ps.rejectJoin)))
				continue
			}
			ps.write(conn, reply(msg.Topic, msg.Ref, msg.JoinRef, "ok", `{"postgres_changes":[{"id":1}]}`))
			if ps.afterJoin != nil {
				for _, m := range ps.afterJoin(msg.Topic, msg.JoinRef) {
					ps.write(conn, m)
				}
			}

		case EventLeave:
			ps.write(conn, reply(msg.Topic, msg.Ref, msg.JoinRef, "ok", `{}`))
		}
	}
}

func (ps *phoenixServer) write(conn *websocket.Conn, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		ps.t.Errorf("marshal: %v", err)
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

// dropAll closes every server-side connection.
func (ps *phoenixServer) dropAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, c := range ps.conns {
		c.Close()
	}
	ps.conns = nil
}

func (ps *phoenixServer) url() string {
	return "ws" + strings.TrimPrefix(ps.server.URL, "http") + "/realtime/v1/websocket"
}

func (ps *phoenixServer) received(event string) []Message {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	var out []Message
	for _, m := range ps.frames {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (ps *phoenixServer) dialCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.dials
}

func reply(topic, ref, joinRef, status, response string) Message {
	return Message{
		Topic:   topic,
		Event:   EventReply,
		Payload: json.RawMessage(fmt.Sprintf(`{"status":%q,"response":%s}`, status, response)),
		Ref:     ref,
		JoinRef: joinRef,
	}
}

func change(topic, joinRef, kind, table, record, oldRecord string) Message {
	return Message{
		Topic: topic,
		Event: EventPostgresChanges,
		Payload: json.RawMessage(fmt.Sprintf(
			`{"ids":[1],"data":{"schema":"public","table":%q,"commit_timestamp":"2024-01-15T10:30:00Z","type":%q,"record":%s,"old_record":%s,"errors":null}}`,
			table, kind, record, oldRecord)),
		JoinRef: joinRef,
	}
}

// callbackLog collects subscription callbacks on channels.
type callbackLog struct {
	acks    chan error
	errs    chan error
	changes chan realtime.ChangeMessage
}

func newCallbackLog() *callbackLog {
	return &callbackLog{
		acks:    make(chan error, 10),
		errs:    make(chan error, 10),
		changes: make(chan realtime.ChangeMessage, 10),
	}
}

func (l *callbackLog) callbacks() realtime.Callbacks {
	return realtime.Callbacks{
		OnChange: func(m realtime.ChangeMessage) { l.changes <- m },
		OnAck:    func(err error) { l.acks <- err },
		OnError:  func(err error) { l.errs <- err },
	}
}

func (l *callbackLog) ack(t *testing.T) error {
	t.Helper()
	select {
	case err := <-l.acks:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ack")
		return nil
	}
}

func (l *callbackLog) err(t *testing.T) error {
	t.Helper()
	select {
	case err := <-l.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error")
		return nil
	}
}

func (l *callbackLog) change(t *testing.T) realtime.ChangeMessage {
	t.Helper()
	select {
	case m := <-l.changes:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
		return realtime.ChangeMessage{}
	}
}

func testSocketConfig(url string) SocketConfig {
	return SocketConfig{
		URL:               url,
		APIKey:            "anon-key",
		HeartbeatInterval: time.Hour,
		JoinTimeout:       2 * time.Second,
		Client:            testClientConfig(""),
	}
}

var candidatesFilter = realtime.ChangeFilter{Event: "*", Schema: "public", Table: "candidates"}

func TestSocket_JoinAck(t *testing.T) {
	ps := newPhoenixServer(t, nil)

	cfg := testSocketConfig(ps.url())
	cfg.AccessToken = func() (string, error) { return "user-token", nil }
	sock := NewSocket(cfg, nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)

	assert.NoError(t, log.ack(t))

	ps.mu.Lock()
	query := ps.query
	ps.mu.Unlock()
	assert.Equal(t, "anon-key", query.Get("apikey"))
	assert.Equal(t, "1.0.0", query.Get("vsn"))

	joins := ps.received(EventJoin)
	require.Len(t, joins, 1)
	assert.Equal(t, "realtime:candidates_realtime", joins[0].Topic)
	assert.Equal(t, joins[0].Ref, joins[0].JoinRef)

	var payload JoinPayload
	require.NoError(t, json.Unmarshal(joins[0].Payload, &payload))
	assert.Equal(t, "user-token", payload.AccessToken)
	assert.Equal(t, []realtime.ChangeFilter{candidatesFilter}, payload.Config.PostgresChanges)
}

func TestSocket_PostgresChanges(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.afterJoin = func(topic, joinRef string) []Message {
			return []Message{
				change(topic, joinRef, "INSERT", "candidates", `{"id":"a1"}`, `{}`),
				change(topic, joinRef, "INSERT", "audit_log", `{"id":"x"}`, `{}`),
				change(topic, joinRef, "UPDATE", "candidates", `{"id":"a1","status":"Hired"}`, `{"id":"a1"}`),
				change(topic, "some-other-join", "INSERT", "candidates", `{"id":"stale"}`, `{}`),
				change(topic, joinRef, "DELETE", "candidates", `null`, `{"id":"a1"}`),
			}
		}
	})

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	ins := log.change(t)
	assert.Equal(t, realtime.KindInsert, ins.Kind)
	assert.JSONEq(t, `{"id":"a1"}`, string(ins.New))

	upd := log.change(t)
	assert.Equal(t, realtime.KindUpdate, upd.Kind)
	assert.JSONEq(t, `{"id":"a1","status":"Hired"}`, string(upd.New))
	assert.JSONEq(t, `{"id":"a1"}`, string(upd.Old))

	del := log.change(t)
	assert.Equal(t, realtime.KindDelete, del.Kind)
	assert.JSONEq(t, `{"id":"a1"}`, string(del.Old))
	assert.Nil(t, del.New)

	select {
	case m := <-log.changes:
		t.Errorf("unexpected extra change %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSocket_JoinRejected(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.rejectJoin = "unauthorized"
	})

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)

	err = log.ack(t)
	assert.ErrorIs(t, err, ErrJoinRejected)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestSocket_JoinTimeout(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.silentJoin = true
	})

	cfg := testSocketConfig(ps.url())
	cfg.JoinTimeout = 50 * time.Millisecond
	sock := NewSocket(cfg, nil)
	defer sock.Close()

	log := newCallbackLog()
	sub, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)

	assert.ErrorIs(t, sub.Send(realtime.NewBroadcast("x", nil)), ErrNotJoined)

	err = log.ack(t)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "timeout", err.Error())
}

func TestSocket_DialFailure(t *testing.T) {
	ps := newPhoenixServer(t, nil)
	endpoint := ps.url()
	ps.server.Close()

	sock := NewSocket(testSocketConfig(endpoint), nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err, "subscribe never blocks on the network")

	err = log.ack(t)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "connect realtime socket:"), err.Error())
}

func TestSocket_ServerDropReportsError(t *testing.T) {
	ps := newPhoenixServer(t, nil)

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	ps.dropAll()

	err = log.err(t)
	assert.True(t, strings.HasPrefix(err.Error(), "realtime socket:"), err.Error())

	select {
	case extra := <-log.errs:
		t.Errorf("error reported twice: %v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSocket_StaleHeartbeat(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.ignoreHeartbeats = true
	})

	cfg := testSocketConfig(ps.url())
	cfg.HeartbeatInterval = 30 * time.Millisecond
	sock := NewSocket(cfg, nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	assert.ErrorIs(t, log.err(t), ErrStaleConnection)
	assert.NotEmpty(t, ps.received(EventHeartbeat))
}

func TestSocket_HeartbeatRepliesKeepSocketAlive(t *testing.T) {
	ps := newPhoenixServer(t, nil)

	cfg := testSocketConfig(ps.url())
	cfg.HeartbeatInterval = 20 * time.Millisecond
	sock := NewSocket(cfg, nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	time.Sleep(150 * time.Millisecond)

	select {
	case err := <-log.errs:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
	hbs := ps.received(EventHeartbeat)
	require.NotEmpty(t, hbs)
	assert.Equal(t, PhoenixTopic, hbs[0].Topic)
}

func TestSocket_SendBroadcast(t *testing.T) {
	ps := newPhoenixServer(t, nil)

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	sub, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	err = sub.Send(realtime.NewBroadcast(realtime.EventStatusUpdated, map[string]string{"id": "a1", "status": "Hired"}))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(ps.received(EventBroadcast)) == 1
	}, time.Second, 10*time.Millisecond)

	msg := ps.received(EventBroadcast)[0]
	assert.Equal(t, "realtime:candidates_realtime", msg.Topic)
	assert.JSONEq(t,
		`{"type":"broadcast","event":"status_updated","payload":{"id":"a1","status":"Hired"}}`,
		string(msg.Payload))
}

func TestSocket_UnsubscribeLeavesAndHangsUp(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.afterJoin = func(topic, joinRef string) []Message {
			return []Message{change(topic, joinRef, "INSERT", "candidates", `{"id":"a1"}`, `{}`)}
		}
	})

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	sub, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))
	log.change(t)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	require.Eventually(t, func() bool {
		return len(ps.received(EventLeave)) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Nil(t, sock.current(), "idle socket hung up")
	assert.ErrorIs(t, sub.Send(realtime.NewBroadcast("x", nil)), ErrAlreadyClosed)

	// A new subscription dials again.
	log2 := newCallbackLog()
	_, err = sock.Subscribe("candidates_realtime", candidatesFilter, log2.callbacks())
	require.NoError(t, err)
	require.NoError(t, log2.ack(t))
	assert.Equal(t, 2, ps.dialCount())

	select {
	case err := <-log.errs:
		t.Errorf("callback after unsubscribe: %v", err)
	default:
	}
}

func TestSocket_SystemError(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.afterJoin = func(topic, joinRef string) []Message {
			return []Message{{
				Topic:   topic,
				Event:   EventSystem,
				Payload: json.RawMessage(`{"status":"error","message":"replication slot busy","extension":"postgres_changes","channel":"candidates_realtime"}`),
			}}
		}
	})

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	log := newCallbackLog()
	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, log.callbacks())
	require.NoError(t, err)
	require.NoError(t, log.ack(t))

	err = log.err(t)
	assert.ErrorIs(t, err, ErrChannelError)
	assert.Contains(t, err.Error(), "replication slot busy")
}

func TestSocket_ClosedRejectsSubscribe(t *testing.T) {
	sock := NewSocket(testSocketConfig("ws://localhost:1"), nil)
	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())

	_, err := sock.Subscribe("candidates_realtime", candidatesFilter, newCallbackLog().callbacks())
	assert.True(t, errors.Is(err, ErrAlreadyClosed))
}

func TestSocket_ManagerEndToEnd(t *testing.T) {
	ps := newPhoenixServer(t, func(ps *phoenixServer) {
		ps.afterJoin = func(topic, joinRef string) []Message {
			return []Message{change(topic, joinRef, "INSERT", "candidates", `{"id":"a1"}`, `{}`)}
		}
	})

	sock := NewSocket(testSocketConfig(ps.url()), nil)
	defer sock.Close()

	statuses := make(chan realtime.Status, 20)
	inserts := make(chan string, 20)
	h := realtime.HandlerFuncs{
		Insert:       func(row json.RawMessage) { inserts <- string(row) },
		StatusChange: func(s realtime.Status, _ string) { statuses <- s },
	}

	cfg := realtime.DefaultConfig()
	cfg.ReconnectDelay = 50 * time.Millisecond
	m := realtime.NewManager(cfg, sock, h)
	defer m.Close()

	next := func() realtime.Status {
		t.Helper()
		select {
		case s := <-statuses:
			return s
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for status")
			return ""
		}
	}

	m.Open()
	assert.Equal(t, realtime.StatusConnecting, next())
	assert.Equal(t, realtime.StatusConnected, next())

	select {
	case row := <-inserts:
		assert.JSONEq(t, `{"id":"a1"}`, row)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for insert")
	}

	ps.dropAll()
	assert.Equal(t, realtime.StatusDisconnected, next())
	assert.Equal(t, realtime.StatusConnecting, next())
	assert.Equal(t, realtime.StatusConnected, next())
	assert.Equal(t, 2, ps.dialCount())
}
