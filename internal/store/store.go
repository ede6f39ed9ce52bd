package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/candidate-tracker/internal/model"
)

var (
	// ErrNotFound is returned when a candidate id matches no row.
	ErrNotFound = errors.New("candidate not found")

	// ErrNoOwner is returned by CreateCandidate without an owner user id.
	ErrNoOwner = errors.New("candidate owner required")
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads and writes the candidates table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New creates a store over db.
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

const candidateColumns = `id::text, user_id, full_name, applied_position, status, resume_url, created_at`

// FetchCandidates returns every candidate, newest first.
func (s *Store) FetchCandidates(ctx context.Context) ([]model.Candidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	out, err := pgx.CollectRows(rows, collectCandidate)
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	return out, nil
}

// CreateCandidate inserts a candidate owned by owner.UserID.
func (s *Store) CreateCandidate(ctx context.Context, in model.NewCandidate, owner model.Owner) (*model.Candidate, error) {
	if owner.UserID == "" {
		return nil, ErrNoOwner
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO candidates (user_id, full_name, applied_position, status, resume_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+candidateColumns,
		owner.UserID, in.FullName, in.AppliedPosition, string(in.Status), in.ResumeURL,
	)
	c, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("insert candidate: %w", err)
	}

	s.logger.Debug("candidate created", "id", c.ID)
	return &c, nil
}

// UpdateStatus sets the status of candidate id.
func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Candidate, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE candidates SET status = $2
		WHERE id = $1
		RETURNING `+candidateColumns,
		key, string(status),
	)
	c, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update candidate: %w", err)
	}
	return &c, nil
}

// DeleteCandidate removes candidate id.
func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// parseID maps ids that cannot exist in a uuid column, including
// optimistic temp ids, to ErrNotFound.
func parseID(id string) (string, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return "", ErrNotFound
	}
	return key.String(), nil
}

func collectCandidate(row pgx.CollectableRow) (model.Candidate, error) {
	return scanCandidate(row)
}

func scanCandidate(row pgx.Row) (model.Candidate, error) {
	var (
		c         model.Candidate
		status    string
		createdAt time.Time
	)
	err := row.Scan(&c.ID, &c.UserID, &c.FullName, &c.AppliedPosition, &status, &c.ResumeURL, &createdAt)
	if err != nil {
		return model.Candidate{}, err
	}
	c.Status = model.Status(status)
	c.CreatedAt = model.NewTimestamp(createdAt)
	return c, nil
}
