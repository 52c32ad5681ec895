package retry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Policy wraps any outbound call with bounded retries. Rate-limited failures
// wait and retry without consuming an attempt; permanent failures never retry.
type Policy struct {
	MaxAttempts      int
	Delay            time.Duration
	RateLimitMinWait time.Duration
	RateLimitMaxWait time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	logger *logger_i.Logger
}

func NewPolicy() *Policy {
	return &Policy{
		MaxAttempts:      config.MaxRetries,
		Delay:            config.RetryDelay,
		RateLimitMinWait: config.RateLimitMinWait,
		RateLimitMaxWait: config.RateLimitMaxWait,
		sleep:            sleepCtx,
		logger:           logger_i.NewLogger("RetryPolicy"),
	}
}

// NewTestPolicy swaps real sleeping for an observer so tests run instantly.
func NewTestPolicy(maxAttempts int, slept func(d time.Duration)) *Policy {
	p := NewPolicy()
	p.MaxAttempts = maxAttempts
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if slept != nil {
			slept(d)
		}
		return ctx.Err()
	}
	return p
}

func (p *Policy) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	attempt := 0
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if IsRateLimited(err) {
			wait := p.waitFor(err)
			p.logger.Warn("Rate limit hit, waiting before retry", "op", label, "wait", wait)
			if serr := p.sleep(ctx, wait); serr != nil {
				return err
			}
			// rate limits do not consume an attempt
			continue
		}

		if IsPermanent(err) {
			return err
		}

		attempt++
		if attempt >= p.MaxAttempts {
			p.logger.Error("All attempts failed", "op", label, "attempts", attempt, "error", err)
			return fmt.Errorf("%s failed after %d attempts: %w", label, attempt, err)
		}
		p.logger.Warn("Attempt failed, retrying", "op", label, "attempt", attempt, "max", p.MaxAttempts, "error", err)
		if serr := p.sleep(ctx, p.Delay); serr != nil {
			return err
		}
	}
}

// Do is the value-returning shape of Policy.Do for call sites that produce a
// result. Both shapes share the same loop.
func Do[T any](ctx context.Context, p *Policy, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, label, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// RateLimitError is the explicit throttle signal adapters raise when the
// service hands back a retry-after hint or a window reset time.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return "rate limited: " + e.Err.Error()
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix (bad request,
// missing resource, auth rejection with a non-transient cause).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

var rateLimitHints = []string{"429", "rate limit", "quota exceeded", "throttled", "too many requests"}

func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range rateLimitHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
			return true
		}
	}
	return false
}

var retryAfterPattern = regexp.MustCompile(`retry after (\d+) seconds?`)

// waitFor picks the rate-limit wait: explicit hint, then reset-time delta,
// then a "retry after N seconds" message, then the configured base wait.
func (p *Policy) waitFor(err error) time.Duration {
	wait := p.RateLimitMinWait

	var rle *RateLimitError
	if errors.As(err, &rle) {
		if rle.RetryAfter > 0 {
			wait = rle.RetryAfter
		} else if !rle.ResetAt.IsZero() {
			if d := time.Until(rle.ResetAt); d > 0 {
				wait = d
			} else {
				wait = 0
			}
		}
	} else if m := retryAfterPattern.FindStringSubmatch(strings.ToLower(err.Error())); m != nil {
		if secs, perr := strconv.Atoi(m[1]); perr == nil {
			wait = time.Duration(secs) * time.Second
		}
	}

	if wait > p.RateLimitMaxWait {
		wait = p.RateLimitMaxWait
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
