package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/kbukum/foundation/httpclient"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryIf decides whether an attempt is retried. resp is nil when err is not.
	RetryIf func(resp *http.Response, err error) bool
	// OnRetry is called before each retry.
	OnRetry func(attempt int, resp *http.Response, err error, backoff time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries transport failures other than cancellation, 429
// and 5xx responses except 501.
func DefaultRetryIf(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented)
}

// Retry re-sends requests that RetryIf accepts, waiting with exponential
// backoff between attempts, or longer when the response sets Retry-After
// (capped at MaxBackoff). Requests whose body cannot be replayed are sent
// once.
func Retry(cfg RetryConfig) httpclient.Middleware {
	cfg = normalize(cfg)
	return func(next http.RoundTripper) http.RoundTripper {
		return httpclient.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

			for attempt := 1; ; attempt++ {
				resp, err := next.RoundTrip(req)
				if !replayable || attempt == cfg.MaxAttempts || !cfg.RetryIf(resp, err) {
					return resp, err
				}

				backoff := calculateBackoff(attempt, cfg)
				if resp != nil {
					if wait := httpclient.RetryAfter(resp.Header, time.Now()); wait > backoff {
						backoff = min(wait, cfg.MaxBackoff)
					}
				}
				if cfg.OnRetry != nil {
					cfg.OnRetry(attempt, resp, err, backoff)
				}
				if resp != nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}

				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}

				if req.GetBody != nil {
					body, err := req.GetBody()
					if err != nil {
						return nil, fmt.Errorf("retry: rewind body: %w", err)
					}
					req = req.Clone(ctx)
					req.Body = body
				}
			}
		})
	}
}

func normalize(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	return cfg
}

// calculateBackoff calculates the backoff duration for an attempt.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	// initial * factor^(attempt-1)
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.Jitter > 0 {
		jitterRange := backoff * cfg.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterRange
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialBackoff)
	}
	return time.Duration(backoff)
}
