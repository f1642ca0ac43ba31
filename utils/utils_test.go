package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")

	result, err := cb.Execute(context.Background(), func() (any, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")

	wantErr := errors.New("publish failed")
	result, err := cb.Execute(context.Background(), func() (any, error) {
		return nil, wantErr
	})

	assert.Equal(t, wantErr, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_OpensOnFailureRatio(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 5
	cb.failureRatio = 0.6

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		cb.Execute(ctx, func() (any, error) { return "ok", nil })
	}
	for i := 0; i < 4; i++ {
		cb.Execute(ctx, func() (any, error) { return nil, errors.New("down") })
	}

	assert.Equal(t, StateOpen, cb.state)

	// Requests are rejected without invoking the callback.
	_, err := cb.Execute(ctx, func() (any, error) {
		t.Fatal("callback ran while circuit open")
		return nil, nil
	})
	assert.ErrorContains(t, err, "circuit breaker is open")
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 3
	cb.failureRatio = 0.5
	cb.timeout = 50 * time.Millisecond

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		cb.Execute(ctx, func() (any, error) { return nil, errors.New("down") })
	}
	require.Equal(t, StateOpen, cb.state)

	time.Sleep(80 * time.Millisecond)

	// First success in half-open closes the circuit again.
	_, err := cb.Execute(ctx, func() (any, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	assert.Panics(t, func() {
		cb.Execute(ctx, func() (any, error) {
			panic("boom")
		})
	})

	result, err := cb.Execute(ctx, func() (any, error) {
		return "recovered", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Execute(ctx, func() (any, error) { return "ok", nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(50), cb.counts.Requests)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ReadyToTrip(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 10
	cb.failureRatio = 0.6

	cb.counts.Requests = 5
	cb.counts.TotalFailures = 5
	assert.False(t, cb.readyToTrip(), "below request threshold")

	cb.counts.Requests = 10
	cb.counts.TotalFailures = 3
	assert.False(t, cb.readyToTrip(), "below failure ratio")

	cb.counts.TotalFailures = 6
	assert.True(t, cb.readyToTrip(), "at failure ratio")
}

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, RedisHealthCheck(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	err := RedisHealthCheck(db)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
}

func TestGenerateCode_LengthAndCharset(t *testing.T) {
	code, err := GenerateCode(4)

	require.NoError(t, err)
	assert.Len(t, code, 8)
	for _, r := range code {
		assert.Contains(t, "0123456789ABCDEF", string(r))
	}
}

func TestGenerateCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(4)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
