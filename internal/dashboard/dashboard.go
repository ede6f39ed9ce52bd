package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/auth"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/realtime"
	"github.com/rickgao/candidate-tracker/internal/store"
)

var (
	// ErrInvalidStatus is returned by UpdateStatus for an unknown status.
	ErrInvalidStatus = errors.New("invalid candidate status")

	// ErrPendingCreate is returned when a write targets an optimistic row
	// the backend has not confirmed yet.
	ErrPendingCreate = errors.New("candidate is still being created")
)

// IsNotFound reports whether err means the candidate does not exist in
// either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, api.ErrNotFound) || errors.Is(err, store.ErrNotFound)
}

// Realtime is the part of realtime.Manager the dashboard drives.
type Realtime interface {
	Open()
	Close()
	ManualReconnect()
	Send(b realtime.Broadcast)
}

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	NoticeCreated NoticeKind = "created"
	NoticeUpdated NoticeKind = "updated"
	NoticeDeleted NoticeKind = "deleted"
	NoticeStatus  NoticeKind = "status"
)

// Notice describes a remote change applied to the mirror or a realtime
// status transition.
type Notice struct {
	Kind      NoticeKind
	Candidate model.Candidate // Created, updated or deleted row
	Status    realtime.Status // NoticeStatus only
	Error     string          // NoticeStatus only
}

// StatusSnapshot is the realtime indicator shown to users.
type StatusSnapshot struct {
	Status      realtime.Status `json:"status"`
	Error       string          `json:"error,omitempty"`
	LastUpdate  time.Time       `json:"last_update"`
	UpdateCount int64           `json:"update_count"`
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) {
		d.logger = logger
	}
}

// WithNotifier registers fn to be told about remote changes. fn runs on
// the realtime callback path and must not block.
func WithNotifier(fn func(Notice)) Option {
	return func(d *Dashboard) {
		d.notify = fn
	}
}

// WithNow overrides the clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(d *Dashboard) {
		d.now = now
	}
}

// Dashboard keeps a live mirror of the candidate list and performs
// optimistic writes against the backend. It implements realtime.Handler.
type Dashboard struct {
	backend  Backend
	identity auth.Identity
	logger   *slog.Logger
	notify   func(Notice)
	now      func() time.Time

	mirror Mirror

	mu          sync.Mutex
	rt          Realtime
	status      realtime.Status
	statusErr   string
	lastUpdate  time.Time
	updateCount int64
	deleting    map[string]*pendingDelete
}

// pendingDelete tracks remote changes to a row whose optimistic delete is
// still in flight.
type pendingDelete struct {
	latest *model.Candidate
	gone   bool
}

var _ realtime.Handler = (*Dashboard)(nil)

// New creates a Dashboard. Call Attach with the realtime manager built
// around it before Start.
func New(backend Backend, identity auth.Identity, opts ...Option) *Dashboard {
	d := &Dashboard{
		backend:  backend,
		identity: identity,
		now:      time.Now,
		status:   realtime.StatusDisconnected,
		deleting: make(map[string]*pendingDelete),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "dashboard")
	return d
}

// Attach sets the realtime manager used for live updates and broadcasts.
func (d *Dashboard) Attach(rt Realtime) {
	d.mu.Lock()
	d.rt = rt
	d.mu.Unlock()
}

func (d *Dashboard) manager() Realtime {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rt
}

// Start loads the candidate list and opens the realtime subscription. A
// failed initial load is returned but the subscription is opened anyway.
func (d *Dashboard) Start(ctx context.Context) error {
	err := d.Refresh(ctx)
	if rt := d.manager(); rt != nil {
		rt.Open()
	}
	return err
}

// Stop closes the realtime subscription.
func (d *Dashboard) Stop() {
	if rt := d.manager(); rt != nil {
		rt.Close()
	}
}

// Reconnect reloads the list and forces a fresh realtime subscription.
func (d *Dashboard) Reconnect(ctx context.Context) {
	if err := d.Refresh(ctx); err != nil {
		d.logger.Warn("refresh before reconnect failed", "error", err)
	}
	if rt := d.manager(); rt != nil {
		rt.ManualReconnect()
	}
}

// Refresh replaces the mirror with the backend's current list.
func (d *Dashboard) Refresh(ctx context.Context) error {
	rows, err := d.backend.FetchCandidates(ctx)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	d.mirror.Reset(rows)
	d.touch()
	return nil
}

// Candidates returns the mirrored candidates matching f, newest first.
func (d *Dashboard) Candidates(f model.Filter) []model.Candidate {
	return f.Apply(d.mirror.Snapshot())
}

// Stats counts mirrored candidates per status.
func (d *Dashboard) Stats() model.Stats {
	return model.Tally(d.mirror.Snapshot())
}

// Status returns the realtime indicator.
func (d *Dashboard) Status() StatusSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return StatusSnapshot{
		Status:      d.status,
		Error:       d.statusErr,
		LastUpdate:  d.lastUpdate,
		UpdateCount: d.updateCount,
	}
}

func (d *Dashboard) touch() {
	d.mu.Lock()
	d.lastUpdate = d.now()
	d.updateCount++
	d.mu.Unlock()
}

func (d *Dashboard) broadcast(event string, payload any) {
	if rt := d.manager(); rt != nil {
		rt.Send(realtime.NewBroadcast(event, payload))
	}
}

// -----------------------------------------------------------------------------
// Realtime handler
// -----------------------------------------------------------------------------

// OnInsert prepends a new remote row unless it is already mirrored.
func (d *Dashboard) OnInsert(row json.RawMessage) {
	c, ok := d.decode("insert", row)
	if !ok {
		return
	}
	if d.mirror.Prepend(c) {
		d.touch()
		d.emit(NoticeCreated, c)
	}
}

// OnUpdate replaces the mirrored row with the remote one.
func (d *Dashboard) OnUpdate(_, newRow json.RawMessage) {
	c, ok := d.decode("update", newRow)
	if !ok {
		return
	}
	d.mu.Lock()
	applied := d.mirror.Replace(c)
	if p, ok := d.deleting[c.ID]; ok && !applied {
		p.latest = &c
	}
	d.mu.Unlock()

	if applied {
		d.touch()
		d.emit(NoticeUpdated, c)
	}
}

// OnDelete removes the mirrored row.
func (d *Dashboard) OnDelete(row json.RawMessage) {
	c, ok := d.decode("delete", row)
	if !ok {
		return
	}
	d.mu.Lock()
	removed, _, found := d.mirror.Remove(c.ID)
	if p, ok := d.deleting[c.ID]; ok {
		p.gone = true
	}
	d.mu.Unlock()

	if found {
		d.touch()
		if removed.FullName != "" {
			c = removed
		}
		d.emit(NoticeDeleted, c)
	}
}

// OnStatusChange records the realtime status.
func (d *Dashboard) OnStatusChange(status realtime.Status, errMsg string) {
	d.mu.Lock()
	d.status = status
	d.statusErr = errMsg
	d.mu.Unlock()
	d.logger.Debug("realtime status", "status", status, "error", errMsg)
	if d.notify != nil {
		d.notify(Notice{Kind: NoticeStatus, Status: status, Error: errMsg})
	}
}

func (d *Dashboard) decode(kind string, row json.RawMessage) (model.Candidate, bool) {
	c, err := realtime.DecodeRow[model.Candidate](row)
	if err != nil || c.ID == "" {
		d.logger.Warn("ignoring undecodable change", "kind", kind, "error", err)
		return model.Candidate{}, false
	}
	return c, true
}

func (d *Dashboard) emit(kind NoticeKind, c model.Candidate) {
	if d.notify != nil {
		d.notify(Notice{Kind: kind, Candidate: c})
	}
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// Create adds a candidate. The row appears in the mirror immediately under
// a temporary id and is swapped for the stored row once the backend
// confirms it, or removed if the backend rejects it.
func (d *Dashboard) Create(ctx context.Context, in model.NewCandidate) (*model.Candidate, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := d.identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := d.identity.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	now := d.now()
	optimistic := model.Candidate{
		UserID:          user.ID,
		FullName:        in.FullName,
		AppliedPosition: in.AppliedPosition,
		Status:          in.Status,
		ResumeURL:       in.ResumeURL,
		CreatedAt:       model.NewTimestamp(now),
	}
	for ms := now.UnixMilli(); ; ms++ {
		optimistic.ID = model.TempIDPrefix + strconv.FormatInt(ms, 10)
		if d.mirror.Prepend(optimistic) {
			break
		}
	}

	created, err := d.backend.CreateCandidate(ctx, in, model.Owner{UserID: user.ID, AccessToken: token})
	if err != nil {
		d.mirror.Remove(optimistic.ID)
		d.logger.Warn("create candidate failed", "error", err)
		return nil, err
	}

	d.mirror.Confirm(optimistic.ID, *created)
	d.broadcast(realtime.EventCandidateCreated, CandidateCreated{
		Candidate: *created,
		User:      user.Email,
		Timestamp: d.now().UTC(),
	})
	return created, nil
}

// UpdateStatus changes a candidate's status optimistically. On failure the
// previous status is restored unless a remote update has replaced the
// optimistic value meanwhile.
func (d *Dashboard) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Candidate, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	prev, mirrored := d.mirror.Get(id)
	if mirrored && prev.IsTemporary() {
		return nil, fmt.Errorf("%w: %s", ErrPendingCreate, id)
	}
	if mirrored {
		d.mirror.Update(id, func(c *model.Candidate) { c.Status = status })
	}

	updated, err := d.backend.UpdateStatus(ctx, id, status)
	if err != nil {
		if mirrored {
			d.mirror.Update(id, func(c *model.Candidate) {
				if c.Status == status {
					c.Status = prev.Status
				}
			})
		}
		d.logger.Warn("update status failed", "id", id, "error", err)
		return nil, err
	}

	d.mirror.Replace(*updated)
	d.broadcast(realtime.EventStatusUpdated, StatusUpdated{
		ID:        id,
		Status:    status,
		Timestamp: d.now().UTC(),
	})
	return updated, nil
}

// Delete removes a candidate optimistically and restores it at its old
// position if the backend refuses. A remote update seen meanwhile is
// restored instead of the removed row; a remote delete leaves it gone.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if c, ok := d.mirror.Get(id); ok && c.IsTemporary() {
		return fmt.Errorf("%w: %s", ErrPendingCreate, id)
	}

	d.mu.Lock()
	p := &pendingDelete{}
	d.deleting[id] = p
	removed, pos, mirrored := d.mirror.Remove(id)
	d.mu.Unlock()

	err := d.backend.DeleteCandidate(ctx, id)

	d.mu.Lock()
	if d.deleting[id] == p {
		delete(d.deleting, id)
	}
	if err != nil && mirrored && !p.gone {
		if p.latest != nil {
			removed = *p.latest
		}
		d.mirror.Restore(pos, removed)
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("delete candidate failed", "id", id, "error", err)
		return err
	}

	d.broadcast(realtime.EventCandidateDeleted, CandidateDeleted{
		ID:        id,
		Timestamp: d.now().UTC(),
	})
	return nil
}

// UploadResume stores a resume and announces it to peers.
func (d *Dashboard) UploadResume(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*model.Resume, error) {
	res, err := d.backend.UploadResume(ctx, name, body, size, contentType)
	if err != nil {
		return nil, err
	}

	d.broadcast(realtime.EventFileUploaded, FileUploaded{
		FileName: res.FileName,
		FileSize: res.Size,
	})
	return res, nil
}
