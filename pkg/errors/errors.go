package errors

import (
	"errors"
	"fmt"
)

type ResourceNotFoundError struct {
	Resource string
	ID       string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewResourceNotFoundError(resource, id string) error {
	return &ResourceNotFoundError{Resource: resource, ID: id}
}

func NewExtractionNotFoundError(id string) error {
	return NewResourceNotFoundError("extraction", id)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// InvalidUploadError is returned when an upload request carries no files or
// a file that is not a PDF.
type InvalidUploadError struct {
	Reason string
}

func (e *InvalidUploadError) Error() string {
	return "invalid upload: " + e.Reason
}

func NewInvalidUploadError(format string, args ...any) error {
	return &InvalidUploadError{Reason: fmt.Sprintf(format, args...)}
}

func IsInvalidUploadError(err error) bool {
	var e *InvalidUploadError
	return errors.As(err, &e)
}
