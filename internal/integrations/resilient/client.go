// Package resilient wraps outbound HTTP calls with client-side rate limiting,
// bounded retry with exponential backoff and a circuit breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = gobreaker.ErrOpenState

// StatusError is returned when the upstream keeps answering with a server error
type StatusError struct {
	Upstream   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Upstream, e.StatusCode)
}

// Observer receives per-call outcomes and breaker transitions
type Observer interface {
	ObserveUpstream(upstream string, success bool, elapsed time.Duration)
	SetBreakerState(upstream string, state gobreaker.State)
}

type Config struct {
	// Name identifies the upstream in logs and metrics
	Name    string
	Timeout time.Duration

	// MaxAttempts counts the first try; values below 1 mean 1
	MaxAttempts  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Limit is the sustained request rate; zero disables limiting
	Limit rate.Limit
	Burst int

	// Breaker trips once MinRequests have been seen and the failure ratio reaches FailureRatio
	BreakerTimeout time.Duration
	MinRequests    uint32
	FailureRatio   float64
}

// DefaultConfig returns a three-attempt client with a breaker and no rate limit
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		RetryWaitMin:   500 * time.Millisecond,
		RetryWaitMax:   4 * time.Second,
		BreakerTimeout: 30 * time.Second,
		MinRequests:    5,
		FailureRatio:   0.6,
	}
}

// Every converts "one request per interval" into a rate limit
func Every(interval time.Duration) rate.Limit {
	return rate.Every(interval)
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	observer   Observer
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, observer Observer, logger *slog.Logger) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	limit := cfg.Limit
	burst := cfg.Burst
	if limit == 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		observer:   observer,
		logger:     logger,
		sleep:      sleepContext,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if observer != nil {
				observer.SetBreakerState(name, to)
			}
		},
	})

	return c
}

// Do sends req through the limiter and breaker, retrying transport errors,
// 429 and 5xx responses. Requests with a body must be replayable (GetBody set,
// which http.NewRequest does for in-memory readers). Responses below 500 are
// returned to the caller untouched, including 4xx.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.doWithRetry(ctx, req)
	})

	if c.observer != nil {
		c.observer.ObserveUpstream(c.cfg.Name, err == nil, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get is a convenience wrapper around Do
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.Do(ctx, req)
}

// State returns the breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s rate limiter: %w", c.cfg.Name, err)
		}

		attemptReq, err := replay(ctx, req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%s request failed: %w", c.cfg.Name, err)
			if !isRetryable(err) {
				return nil, lastErr
			}
			c.logger.Debug("retrying upstream request",
				slog.String("upstream", c.cfg.Name),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			_ = resp.Body.Close()
			lastErr = &StatusError{Upstream: c.cfg.Name, StatusCode: resp.StatusCode}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if c.cfg.RetryWaitMax > 0 && wait > c.cfg.RetryWaitMax {
		wait = c.cfg.RetryWaitMax
	}
	return wait
}

func replay(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
