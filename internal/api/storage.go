package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rickgao/candidate-tracker/internal/model"
)

// UploadResume stores body in the resume bucket under a random name that
// keeps the extension of originalName.
func (c *Client) UploadResume(ctx context.Context, originalName string, body io.Reader, size int64, contentType string) (*model.Resume, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload resume: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name := model.ResumeObjectName(originalName)
	var resp uploadResponse
	err = c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/storage/v1/object/" + url.PathEscape(c.bucket) + "/" + url.PathEscape(name),
		token:       token,
		raw:         body,
		contentType: contentType,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("upload resume: %w", err)
	}

	c.logger.Debug("resume uploaded", "object", name, "size", size)
	return &model.Resume{
		FileName:  name,
		PublicURL: c.PublicURL(name),
		Size:      size,
	}, nil
}

// PublicURL returns the public download URL of a resume object.
func (c *Client) PublicURL(name string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(c.bucket) + "/" + url.PathEscape(name)
}
