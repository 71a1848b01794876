package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked"), true},
		{"database table is locked", errors.New("database table is locked"), true},
		{"SQLITE_BUSY", errors.New("SQLITE_BUSY"), true},
		{"SQLITE_LOCKED", errors.New("SQLITE_LOCKED"), true},
		{"error code 5", errors.New("error (5): database busy"), true},
		{"unrelated error", errors.New("connection refused"), false},
		{"constraint violation", errors.New("UNIQUE constraint failed: users.email"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, isBusyError(tt.err))
		})
	}
}

func TestBackoffPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := newBackoffPolicy(5)
	for attempt := 0; attempt < 10; attempt++ {
		d := p.delay(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, p.ceiling)
	}
	assert.GreaterOrEqual(t, p.delay(0), p.base)
}

func TestBackoffPolicy_Do(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after busy errors", func(t *testing.T) {
		t.Parallel()
		p := newBackoffPolicy(3)
		p.base = time.Millisecond
		calls := 0
		err := p.do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		p := newBackoffPolicy(3)
		calls := 0
		err := p.do(context.Background(), func() error {
			calls++
			return errors.New("syntax error")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		p := newBackoffPolicy(2)
		p.base = time.Millisecond
		calls := 0
		err := p.do(context.Background(), func() error {
			calls++
			return errors.New("SQLITE_BUSY")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		t.Parallel()
		p := newBackoffPolicy(10)
		p.base = time.Second
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.do(ctx, func() error {
			return errors.New("SQLITE_BUSY")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
