package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		err     error
		matches []error
		not     []error
	}{
		{
			name:    "dimension mismatch is a precondition",
			err:     NewDimensionMismatchError("c", 3, 4),
			matches: []error{ErrDimensionMismatch, ErrPrecondition},
			not:     []error{ErrTransient},
		},
		{
			name:    "empty batch is a precondition",
			err:     fmt.Errorf("embed: %w", ErrEmptyBatch),
			matches: []error{ErrEmptyBatch, ErrPrecondition},
		},
		{
			name:    "transient keeps its cause",
			err:     NewTransientError("mistral", cause),
			matches: []error{ErrTransient, cause},
			not:     []error{ErrProviderUnavailable},
		},
		{
			name:    "provider unavailable",
			err:     NewProviderUnavailableError("mistral", 5, cause),
			matches: []error{ErrProviderUnavailable},
			not:     []error{ErrTransient},
		},
		{
			name:    "partial upload keeps its cause",
			err:     NewPartialUploadError("c", 2, 2, 5, cause),
			matches: []error{ErrPartialUpload, cause},
		},
		{
			name:    "not found",
			err:     NewNotFoundError("collection x"),
			matches: []error{ErrNotFound},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, target := range tc.matches {
				assert.ErrorIs(t, tc.err, target)
			}
			for _, target := range tc.not {
				assert.NotErrorIs(t, tc.err, target)
			}
		})
	}
}

func TestPartialUploadError_Message(t *testing.T) {
	err := NewPartialUploadError("chats", 2, 2, 5, errors.New("timeout"))
	assert.Equal(t, `partial upload to "chats": 2 of 5 batches committed, batch 3 failed: timeout`, err.Error())

	var pe *PartialUploadError
	assert.ErrorAs(t, fmt.Errorf("upsert: %w", err), &pe)
	assert.Equal(t, 2, pe.CompletedBatches)
}

func TestMessage_String(t *testing.T) {
	ts, err := time.Parse(MessageTimeLayout, "24/02/2019, 11:27:29")
	assert.NoError(t, err)

	m := Message{Timestamp: ts, Author: "A", Text: "hi"}
	assert.Equal(t, "[24/02/2019, 11:27:29] A: hi", m.String())
}
