package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindTransient(t *testing.T) {
	assert.True(t, KindRateLimited.Transient())
	assert.True(t, KindUnreachable.Transient())
	assert.False(t, KindInvalidConfig.Transient())
	assert.False(t, KindRejected.Transient())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRateLimited, KindOf(NewError(KindRateLimited, "slow down")))
	assert.Equal(t, KindUnreachable, KindOf(fmt.Errorf("wrapped: %w", NewError(KindUnreachable, "down"))))
	assert.Equal(t, KindUnreachable, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindRejected, KindOf(errors.New("some failure")))
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindUnreachable, "payment api", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{429, KindRateLimited},
		{401, KindInvalidConfig},
		{403, KindInvalidConfig},
		{500, KindUnreachable},
		{503, KindUnreachable},
		{402, KindRejected},
		{422, KindRejected},
	}

	for _, tt := range tests {
		err := FromHTTPStatus(tt.status, "detail")
		assert.NotNil(t, err, "status %d", tt.status)
		assert.Equal(t, tt.kind, err.Kind, "status %d", tt.status)
	}

	assert.Nil(t, FromHTTPStatus(200, ""))
	assert.Nil(t, FromHTTPStatus(204, ""))
}
