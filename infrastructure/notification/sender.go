package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

// SenderConfig configures HTTP delivery.
type SenderConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// BreakerThreshold is the number of consecutive failed deliveries that
	// opens an endpoint's circuit.
	BreakerThreshold int
	BreakerTimeout   time.Duration
	UserAgent        string
}

// DefaultSenderConfig returns the delivery defaults.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Timeout:          10 * time.Second,
		MaxRetries:       3,
		RetryDelay:       500 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		UserAgent:        "policykeeper-webhook/1.0",
	}
}

// Sender posts event batches to endpoints.
type Sender struct {
	config   SenderConfig
	client   *http.Client
	retrier  retry.Retry[struct{}]
	breakers map[string]circuitbreaker.CircuitBreaker[struct{}]
	mu       sync.Mutex
}

// NewSender creates a sender. Zero fields take their defaults.
func NewSender(config SenderConfig) *Sender {
	def := DefaultSenderConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = def.BreakerThreshold
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = def.BreakerTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// 4xx answers will not change on retry.
			NonRetryableErrors: []error{ErrEndpointRejected},
		}),
		breakers: make(map[string]circuitbreaker.CircuitBreaker[struct{}]),
	}
}

// Send posts events to ep as one JSON array.
func (s *Sender) Send(ctx context.Context, ep *Endpoint, events []event.Event) error {
	if ep == nil || ep.URL == "" {
		return ErrInvalidEndpoint
	}

	body, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	_, err = s.breaker(ep.URL).Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.post(ctx, ep, body)
		})
	})
	return err
}

func (s *Sender) post(ctx context.Context, ep *Endpoint, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.config.UserAgent)
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}
	if ep.Secret != "" {
		for k, v := range signedHeaders(body, ep.Secret, time.Now()) {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrEndpointUnavailable, resp.StatusCode, snippet)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrEndpointRejected, resp.StatusCode, snippet)
	}
}

func (s *Sender) breaker(url string) circuitbreaker.CircuitBreaker[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[url]; ok {
		return cb
	}
	threshold := uint32(s.config.BreakerThreshold) // #nosec G115 -- positive, set in NewSender
	cb := circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    s.config.BreakerTimeout,
		Timeout:     s.config.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	s.breakers[url] = cb
	return cb
}

// BreakerState reports the circuit state for url, or "unknown" before the
// first delivery.
func (s *Sender) BreakerState(url string) string {
	s.mu.Lock()
	cb, ok := s.breakers[url]
	s.mu.Unlock()
	if !ok {
		return "unknown"
	}
	return cb.State().String()
}
