package model

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ResumeObjectName returns a random object name for an uploaded resume,
// keeping the original file's extension.
func ResumeObjectName(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	return uuid.NewString() + ext
}
