package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		notFound     bool
		invalid      bool
		conflict     bool
		unauthorized bool
	}{
		{name: "app not found", err: NewNotFoundError("sync run", nil), notFound: true},
		{name: "resource not found", err: NewResourceNotFoundError("sync run", "abc"), notFound: true},
		{name: "validation", err: NewValidationError("missing eventId", nil), invalid: true},
		{name: "sync in progress", err: NewSyncInProgressError("run-1"), conflict: true},
		{name: "unauthorized", err: NewUnauthorizedError("bad token", nil), unauthorized: true},
		{name: "wrapped conflict", err: fmt.Errorf("trigger: %w", NewSyncInProgressError("run-2")), conflict: true},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NewNotFoundError("x", nil)), notFound: true},
		{name: "plain", err: fmt.Errorf("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.invalid, IsInvalidInput(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
		})
	}
}

func TestAppError_Message(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewInternalError("failed to persist sync run", cause)

	assert.Equal(t, "INTERNAL: failed to persist sync run (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "sync already in progress: run-9", NewSyncInProgressError("run-9").Error())
}
