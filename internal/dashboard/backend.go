package dashboard

import (
	"context"
	"io"

	"github.com/rickgao/candidate-tracker/internal/api"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/storage"
	"github.com/rickgao/candidate-tracker/internal/store"
)

// Backend performs candidate CRUD and resume uploads.
type Backend interface {
	FetchCandidates(ctx context.Context) ([]model.Candidate, error)
	CreateCandidate(ctx context.Context, in model.NewCandidate, owner model.Owner) (*model.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
	UploadResume(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*model.Resume, error)
}

type hostedBackend struct {
	*api.Client
}

// Hosted returns a Backend over the hosted REST API. Candidates are
// created with the owner's access token.
func Hosted(c *api.Client) Backend {
	return hostedBackend{Client: c}
}

func (h hostedBackend) CreateCandidate(ctx context.Context, in model.NewCandidate, owner model.Owner) (*model.Candidate, error) {
	return h.Client.CreateCandidate(ctx, in, owner.AccessToken)
}

type selfHostedBackend struct {
	*store.Store
	*storage.Local
}

// SelfHosted returns a Backend over a postgres store and a local resume
// directory.
func SelfHosted(s *store.Store, files *storage.Local) Backend {
	return selfHostedBackend{Store: s, Local: files}
}
