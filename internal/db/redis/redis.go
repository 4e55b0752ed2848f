// Package redis dials the Redis instance behind the event queue and holds
// the circuit breaker the queue routes its commands through.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/farmline/backend/internal/config"
)

// ErrCircuitOpen is returned while the breaker is fast-failing commands.
var ErrCircuitOpen = errors.New("redis circuit breaker is open")

// Connect dials Redis and verifies the connection with a ping, retrying
// with exponential backoff before giving up.
func Connect(ctx context.Context, cfg config.RedisConfig, log *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URI,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	const maxAttempts = 5
	backoff := 500 * time.Millisecond

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Infow("Connected to Redis", "addr", cfg.URI, "attempt", attempt)
			return client, nil
		}

		log.Warnw("Redis connection failed, retrying",
			"attempt", attempt, "maxAttempts", maxAttempts, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("connecting to Redis: %w", ctx.Err())
		}
		if backoff *= 2; backoff > 8*time.Second {
			backoff = 8 * time.Second
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, err)
}

// CircuitState is the breaker's position.
type CircuitState int

const (
	// CircuitClosed lets commands through.
	CircuitClosed CircuitState = iota
	// CircuitOpen fast-fails commands until the reset timeout passes.
	CircuitOpen
	// CircuitHalfOpen lets a single trial command decide the next state.
	CircuitHalfOpen
)

// CircuitBreaker trips after a run of consecutive failures so a dead Redis
// cannot stall every action on connection timeouts.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold uint
	failureCount     uint
	resetTimeout     time.Duration
	lastFailureTime  time.Time
	state            CircuitState
}

// NewCircuitBreaker creates a closed breaker that opens after
// failureThreshold consecutive failures and probes again after
// resetTimeout.
func NewCircuitBreaker(failureThreshold uint, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            CircuitClosed,
	}
}

// Do runs one operation through the breaker. While the circuit is open
// every call fails fast with ErrCircuitOpen; once the reset timeout passes
// a single trial operation goes through and its outcome decides whether
// the circuit closes again.
func (cb *CircuitBreaker) Do(op func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	if err := op(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// State reports the breaker's position, for health reporting.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen {
		if time.Since(cb.lastFailureTime) < cb.resetTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
	}
	return true
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailureTime = time.Now()
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}
	cb.failureCount++
	if cb.failureCount >= cb.failureThreshold {
		cb.state = CircuitOpen
	}
}
