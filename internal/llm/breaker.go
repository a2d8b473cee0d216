package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/solaracontrol/mission-control/pkg/logger"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// BreakerConfig configures the circuit breaker around a provider.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
	// Interval clears failure counts while closed.
	Interval time.Duration
}

// BreakerClient wraps a Client with circuit breaker protection. While the
// circuit is open calls fail fast with a *ProviderError.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker[*CompletionResponse]
}

// NewBreakerClient wraps inner with a circuit breaker. Zero config values use defaults.
func NewBreakerClient(inner Client, cfg BreakerConfig, log *logger.Logger) *BreakerClient {
	log = logger.OrNop(log)

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*CompletionResponse](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerClient{inner: inner, breaker: cb}
}

// Complete routes the call through the circuit breaker.
func (b *BreakerClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	resp, err := b.breaker.Execute(func() (*CompletionResponse, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &ProviderError{Provider: b.inner.Name(), Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// Name returns the wrapped provider name.
func (b *BreakerClient) Name() string { return b.inner.Name() }

// State returns the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

var _ Client = (*BreakerClient)(nil)
