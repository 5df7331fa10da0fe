package service

import (
	"fmt"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrTranscriptionNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "transcription")
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

type ErrFileTooLarge struct {
	error
}

func NewErrFileTooLarge(limit int64) *ErrFileTooLarge {
	return &ErrFileTooLarge{fmt.Errorf("file exceeds the upload limit of %d bytes", limit)}
}

type ErrUploadFailed struct {
	error
}

func NewErrUploadFailed(err error) *ErrUploadFailed {
	return &ErrUploadFailed{fmt.Errorf("failed to save uploaded file: %w", err)}
}

type ErrServiceUnavailable struct {
	error
}

func NewErrServiceUnavailable(reason string) *ErrServiceUnavailable {
	return &ErrServiceUnavailable{fmt.Errorf("service unavailable: %s", reason)}
}
