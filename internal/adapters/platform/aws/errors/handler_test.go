package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rdsops/snapshot-reconciler/internal/errors"
)

// mockAPIError carries an AWS-style error code the way smithy errors do.
type mockAPIError struct {
	code string
	msg  string
}

func (m *mockAPIError) Error() string     { return m.msg }
func (m *mockAPIError) ErrorCode() string { return m.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errors.Code
	}{
		{
			name:     "snapshot not found fault code",
			err:      &mockAPIError{code: "DBSnapshotNotFound", msg: "snapshot missing"},
			expected: errors.CodeResourceNotFound,
		},
		{
			name:     "snapshot not found fault type name",
			err:      &mockAPIError{code: "DBSnapshotNotFoundFault", msg: "snapshot missing"},
			expected: errors.CodeResourceNotFound,
		},
		{
			name:     "instance not found",
			err:      &mockAPIError{code: "DBInstanceNotFound", msg: "instance missing"},
			expected: errors.CodeResourceNotFound,
		},
		{
			name:     "throttling",
			err:      &mockAPIError{code: "Throttling", msg: "Rate exceeded"},
			expected: errors.CodeThrottled,
		},
		{
			name:     "snapshot quota",
			err:      &mockAPIError{code: "SnapshotQuotaExceeded", msg: "too many snapshots"},
			expected: errors.CodeThrottled,
		},
		{
			name:     "access denied code",
			err:      &mockAPIError{code: "AccessDenied", msg: "no permission"},
			expected: errors.CodePlatformAuth,
		},
		{
			name:     "auth failure by message",
			err:      fmt.Errorf("AuthFailure: credentials rejected"),
			expected: errors.CodePlatformAuth,
		},
		{
			name:     "not found by message",
			err:      fmt.Errorf("resource not found"),
			expected: errors.CodeResourceNotFound,
		},
		{
			name:     "throttle by message",
			err:      fmt.Errorf("Rate exceeded for operation"),
			expected: errors.CodeThrottled,
		},
		{
			name:     "context canceled",
			err:      context.Canceled,
			expected: errors.CodePlatformAPIError,
		},
		{
			name:     "unclassified api error",
			err:      &mockAPIError{code: "InvalidParameterValue", msg: "bad input"},
			expected: errors.CodePlatformAPIError,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("connection reset"),
			expected: errors.CodePlatformAPIError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestHandleWrapsWithResourceContext(t *testing.T) {
	err := Handle(context.Background(), "DB snapshot", "s1",
		&mockAPIError{code: "DBSnapshotNotFound", msg: "snapshot missing"})

	assert.True(t, errors.Is(err, errors.CodeResourceNotFound))
	assert.Contains(t, err.Error(), "s1")
	assert.Contains(t, err.Error(), "DB snapshot")
}

func TestHandleNilError(t *testing.T) {
	err := Handle(context.Background(), "DB snapshot", "s1", nil)
	assert.True(t, errors.Is(err, errors.CodeInternal))
}

func TestHandleCanceledContextWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Handle(ctx, "DB snapshot", "s1", fmt.Errorf("some transport error"))
	assert.True(t, errors.Is(err, errors.CodePlatformAPIError))
	assert.Contains(t, err.Error(), "context canceled")
}
