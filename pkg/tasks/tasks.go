// Package tasks defines the messages sent over the ingestion queue.
package tasks

import (
	"errors"

	"github.com/google/uuid"

	"github.com/alex-lapipa/lawton-engine/internal/model"
)

// ErrPermanent marks a task failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent task failure")

// IngestTask carries one queued ingestion request.
type IngestTask struct {
	TaskID  string              `json:"task_id"`
	Request model.IngestRequest `json:"request"`
}

// NewIngestTask wraps req in a task with a fresh id.
func NewIngestTask(req model.IngestRequest) IngestTask {
	return IngestTask{TaskID: uuid.New().String(), Request: req}
}

// Key identifies the task for retry accounting. Tasks queued without an
// id fall back to the document path.
func (t IngestTask) Key() string {
	if t.TaskID != "" {
		return t.TaskID
	}
	return t.Request.Path
}

// PartitionKey routes every task of one document to the same partition.
func (t IngestTask) PartitionKey() string {
	return t.Request.Path
}
