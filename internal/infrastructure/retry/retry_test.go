package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/shared"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return errors.New("i/o timeout")
	})

	assert.EqualError(t, err, "i/o timeout")
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", shared.ErrNotFound},
		{"validation", shared.NewValidationError("bad input")},
		{"context cancelled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastPolicy(), func() error {
				calls++
				return tt.err
			})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestGet(t *testing.T) {
	calls := 0
	v, err := Get(context.Background(), fastPolicy(), func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("broken pipe")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestNoRetry(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), NoRetry(), func() error {
		calls++
		return errors.New("boom")
	})
	assert.Equal(t, 1, calls)
}
