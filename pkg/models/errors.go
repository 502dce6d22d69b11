package models

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks caller errors: bad sizes, empty inputs, mismatched lengths.
	ErrPrecondition = errors.New("precondition failed")
	// ErrEmptyBatch is returned when a batch size of zero or less is requested.
	ErrEmptyBatch = fmt.Errorf("%w: batch size must be positive", ErrPrecondition)
	// ErrDimensionMismatch is returned when a vector does not fit its collection.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrTransient marks provider failures worth retrying (rate limits, 5xx, timeouts).
	ErrTransient = errors.New("transient provider error")
	// ErrProviderUnavailable is returned once retries are exhausted.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrPartialUpload is returned when an upsert batch fails after earlier batches committed.
	ErrPartialUpload = errors.New("partial upload")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
)

// NewPreconditionError wraps ErrPrecondition with a formatted message.
func NewPreconditionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// DimensionMismatchError reports a vector whose length differs from the collection's.
// It matches both ErrDimensionMismatch and ErrPrecondition.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf(
		"embedding dimension mismatch for collection %q: collection has %d, got %d. "+
			"please ensure the configured embedding model matches the collection",
		e.Collection, e.Expected, e.Actual,
	)
}

func (e *DimensionMismatchError) Unwrap() []error {
	return []error{ErrDimensionMismatch, ErrPrecondition}
}

func NewDimensionMismatchError(collection string, expected, actual int) *DimensionMismatchError {
	return &DimensionMismatchError{Collection: collection, Expected: expected, Actual: actual}
}

// TransientError wraps a provider failure that may succeed when retried.
type TransientError struct {
	Provider      string
	OriginalError error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient error: %v", e.Provider, e.OriginalError)
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.OriginalError}
}

func NewTransientError(provider string, originalError error) *TransientError {
	return &TransientError{Provider: provider, OriginalError: originalError}
}

// ProviderUnavailableError is returned when a provider kept failing transiently
// until the retry policy gave up.
type ProviderUnavailableError struct {
	Provider      string
	Attempts      int
	OriginalError error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf(
		"%s unavailable after %d attempt(s) (original error: %v)",
		e.Provider, e.Attempts, e.OriginalError,
	)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return ErrProviderUnavailable
}

func NewProviderUnavailableError(provider string, attempts int, originalError error) *ProviderUnavailableError {
	return &ProviderUnavailableError{Provider: provider, Attempts: attempts, OriginalError: originalError}
}

// PartialUploadError carries enough detail for a caller to resume an upsert.
// Batches before FailedBatch are committed. FailedBatch is zero based.
type PartialUploadError struct {
	Collection       string
	CompletedBatches int
	FailedBatch      int
	TotalBatches     int
	OriginalError    error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf(
		"partial upload to %q: %d of %d batches committed, batch %d failed: %v",
		e.Collection, e.CompletedBatches, e.TotalBatches, e.FailedBatch+1, e.OriginalError,
	)
}

func (e *PartialUploadError) Unwrap() []error {
	return []error{ErrPartialUpload, e.OriginalError}
}

func NewPartialUploadError(collection string, completed, failed, total int, originalError error) *PartialUploadError {
	return &PartialUploadError{
		Collection:       collection,
		CompletedBatches: completed,
		FailedBatch:      failed,
		TotalBatches:     total,
		OriginalError:    originalError,
	}
}

// StorageError wraps a vector service failure that is not one of the typed errors above.
type StorageError struct {
	Message       string
	OriginalError error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *StorageError) Unwrap() error {
	return e.OriginalError
}

func NewStorageError(message string, originalError error) *StorageError {
	return &StorageError{Message: message, OriginalError: originalError}
}

// LLMError wraps a failed completion call.
type LLMError struct {
	Message       string
	OriginalError error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *LLMError) Unwrap() error {
	return e.OriginalError
}

func NewLLMError(message string, originalError error) *LLMError {
	return &LLMError{Message: message, OriginalError: originalError}
}
