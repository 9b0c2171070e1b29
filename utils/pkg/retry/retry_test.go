package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// statusError mimics the smithy ResponseError surface used by the S3 client.
type statusError struct{ code int }

func (e *statusError) Error() string       { return http.StatusText(e.code) }
func (e *statusError) HTTPStatusCode() int { return e.code }

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts: attempts,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestOrderLake_Retry_Do(t *testing.T) {
	t.Parallel()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		var retried []int
		cfg := fastConfig(3)
		cfg.OnRetry = func(attempt int, err error) {
			retried = append(retried, attempt)
			require.Error(t, err)
		}
		err := Do(context.Background(), cfg, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("dial tcp: connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, attempts)
		require.Equal(t, []int{2, 3}, retried)
	})

	t.Run("wraps last error when attempts are exhausted", func(t *testing.T) {
		t.Parallel()
		original := errors.New("connection reset by peer")
		attempts := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			attempts++
			return original
		})
		require.ErrorIs(t, err, original)
		require.Contains(t, err.Error(), "failed after 3 attempts")
		require.Equal(t, 3, attempts)
	})

	t.Run("returns non-retryable error immediately", func(t *testing.T) {
		t.Parallel()
		original := errors.New("code: 62, syntax error")
		attempts := 0
		err := Do(context.Background(), fastConfig(3), func() error {
			attempts++
			return original
		})
		require.Equal(t, original, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		attempts := 0
		err := Do(ctx, Config{MaxAttempts: 5, BaseBackoff: 50 * time.Millisecond, MaxBackoff: time.Second}, func() error {
			attempts++
			cancel()
			return errors.New("timeout")
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, attempts)
	})

	t.Run("treats zero attempts as one", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		err := Do(context.Background(), Config{}, func() error {
			attempts++
			return errors.New("eof")
		})
		require.Error(t, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("custom classifier", func(t *testing.T) {
		t.Parallel()
		errDeadlock := errors.New("deadlock detected")
		cfg := fastConfig(3)
		cfg.Retryable = func(err error) bool { return errors.Is(err, errDeadlock) }
		attempts := 0
		err := Do(context.Background(), cfg, func() error {
			attempts++
			return errDeadlock
		})
		require.ErrorIs(t, err, errDeadlock)
		require.Equal(t, 3, attempts)
	})
}

func TestOrderLake_Retry_IsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: false},
		{name: "net timeout", err: &net.DNSError{Err: "i/o timeout", IsTimeout: true}, want: true},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:9000: connection refused"), want: true},
		{name: "clickhouse overload", err: errors.New("code: 202, Too many simultaneous queries"), want: true},
		{name: "unexpected EOF", err: errors.New("unexpected EOF"), want: true},
		{name: "s3 503", err: &statusError{code: http.StatusServiceUnavailable}, want: true},
		{name: "s3 429", err: &statusError{code: http.StatusTooManyRequests}, want: true},
		{name: "s3 404", err: &statusError{code: http.StatusNotFound}, want: false},
		{name: "s3 403", err: &statusError{code: http.StatusForbidden}, want: false},
		{name: "constraint violation", err: errors.New("violates foreign key constraint"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestOrderLake_Retry_CalculateBackoff(t *testing.T) {
	t.Parallel()

	for attempt := 1; attempt <= 6; attempt++ {
		got := calculateBackoff(100*time.Millisecond, time.Second, attempt)
		want := 100 * time.Millisecond * time.Duration(1<<uint(attempt))
		if want > time.Second {
			want = time.Second
		}
		require.GreaterOrEqual(t, got, want/2)
		require.LessOrEqual(t, got, want)
	}
}
