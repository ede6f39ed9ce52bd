package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/candidate-tracker/internal/model"
)

const candidatesPath = "/rest/v1/candidates"

// FetchCandidates returns every candidate visible to the caller, newest
// first.
func (c *Client) FetchCandidates(ctx context.Context) ([]model.Candidate, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	q := url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
	}

	var out []model.Candidate
	if err := c.get(ctx, candidatesPath, q, token, &out); err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	if out == nil {
		out = []model.Candidate{}
	}
	return out, nil
}

// CreateCandidate inserts a candidate through the add-candidate function,
// which attributes the row to the owner of accessToken.
func (c *Client) CreateCandidate(ctx context.Context, in model.NewCandidate, accessToken string) (*model.Candidate, error) {
	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	var resp addCandidateResponse
	err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/functions/v1/add-candidate",
		token:  accessToken,
		body:   in,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}

	if resp.Error != "" {
		msg := resp.Details
		if msg == "" {
			msg = resp.Error
		}
		return nil, &FunctionError{Message: msg}
	}
	if resp.Candidate == nil {
		return nil, &FunctionError{Message: "response carried no candidate"}
	}
	return resp.Candidate, nil
}

// UpdateStatus sets the status of candidate id and returns the updated row.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Candidate, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	var rows []model.Candidate
	err = c.send(ctx, request{
		method: http.MethodPatch,
		path:   candidatesPath,
		query:  url.Values{"id": {"eq." + id}},
		token:  token,
		body:   statusPatch{Status: status},
		header: http.Header{"Prefer": {"return=representation"}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// DeleteCandidate removes candidate id.
func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}

	err = c.send(ctx, request{
		method: http.MethodDelete,
		path:   candidatesPath,
		query:  url.Values{"id": {"eq." + id}},
		token:  token,
	}, nil)
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	return nil
}
