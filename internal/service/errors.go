// Package service implements the ingestion and retrieval pipelines.
package service

import "errors"

// ErrUnauthorized is returned when the service key is missing or wrong.
var ErrUnauthorized = errors.New("Unauthorized")

// ErrQueueDisabled is returned by Enqueue when no task producer is configured.
var ErrQueueDisabled = errors.New("ingestion queue is not configured")

// ValidationError reports a request missing required fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError reports a failed document or chunk store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
