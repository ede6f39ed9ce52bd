package dashboard

import (
	"time"

	"github.com/rickgao/candidate-tracker/internal/model"
)

// Broadcast payloads announced to other sessions after a local write.

// CandidateCreated is the payload of candidate_created.
type CandidateCreated struct {
	Candidate model.Candidate `json:"candidate"`
	User      string          `json:"user"`
	Timestamp time.Time       `json:"timestamp"`
}

// StatusUpdated is the payload of status_updated.
type StatusUpdated struct {
	ID        string       `json:"id"`
	Status    model.Status `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

// CandidateDeleted is the payload of candidate_deleted.
type CandidateDeleted struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// FileUploaded is the payload of file_uploaded.
type FileUploaded struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}
