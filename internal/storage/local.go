// Package storage keeps uploaded resumes in a local directory for the
// self-hosted backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rickgao/candidate-tracker/internal/model"
)

var (
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("resume exceeds upload size limit")

	// ErrInvalidName is returned for object names that would escape the
	// resume directory.
	ErrInvalidName = errors.New("invalid resume name")
)

// Local stores resumes under dir and links them below publicBase.
type Local struct {
	dir        string
	publicBase string
	maxSize    int64
	logger     *slog.Logger
}

// NewLocal creates the resume directory if needed. publicBase is the URL
// prefix the HTTP server serves the directory under.
func NewLocal(dir, publicBase string, maxSize int64, logger *slog.Logger) (*Local, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create resume directory: %w", err)
	}
	return &Local{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
		maxSize:    maxSize,
		logger:     logger.With("component", "storage"),
	}, nil
}

// UploadResume writes body under a random name that keeps the extension
// of originalName.
func (l *Local) UploadResume(ctx context.Context, originalName string, body io.Reader, size int64, contentType string) (*model.Resume, error) {
	if l.maxSize > 0 && size > l.maxSize {
		return nil, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := model.ResumeObjectName(originalName)
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create resume file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := body
	if l.maxSize > 0 {
		src = io.LimitReader(body, l.maxSize+1)
	}
	written, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write resume file: %w", err)
	}
	if l.maxSize > 0 && written > l.maxSize {
		return nil, ErrTooLarge
	}

	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		return nil, fmt.Errorf("store resume file: %w", err)
	}

	l.logger.Debug("resume stored", "object", name, "size", written, "content_type", contentType)
	return &model.Resume{
		FileName:  name,
		PublicURL: l.PublicURL(name),
		Size:      written,
	}, nil
}

// PublicURL returns the download URL of a stored resume.
func (l *Local) PublicURL(name string) string {
	return l.publicBase + "/" + url.PathEscape(name)
}

// Open returns a stored resume for reading.
func (l *Local) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(l.dir, name))
}
