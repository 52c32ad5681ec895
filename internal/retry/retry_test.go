package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	p := NewTestPolicy(3, nil)

	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	p := NewTestPolicy(3, nil)

	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := NewTestPolicy(3, nil)

	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("always failing")
	})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewTestPolicy(3, nil)

	calls := 0
	permanent := Permanent(errors.New("bad request"))
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("Expected the permanent error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Permanent error must not retry, got %d calls", calls)
	}
}

func TestDoRateLimitDoesNotConsumeAttempt(t *testing.T) {
	var slept []time.Duration
	p := NewTestPolicy(2, func(d time.Duration) { slept = append(slept, d) })

	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		// two throttles, then two real failures, then success: if throttles
		// consumed attempts this would fail
		switch calls {
		case 1, 2:
			return &RateLimitError{RetryAfter: 5 * time.Second}
		case 3:
			return errors.New("transient")
		default:
			return nil
		}
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}
	if len(slept) != 3 {
		t.Fatalf("Expected 3 sleeps, got %d", len(slept))
	}
	if slept[0] != 5*time.Second || slept[1] != 5*time.Second {
		t.Errorf("Expected the RetryAfter hint to drive the wait, got %v", slept[:2])
	}
}

func TestWaitForParsesRetryAfterMessage(t *testing.T) {
	p := NewTestPolicy(3, nil)

	wait := p.waitFor(errors.New("throttled, retry after 42 seconds"))
	if wait != 42*time.Second {
		t.Errorf("Expected 42s from message hint, got %v", wait)
	}
}

func TestWaitForCapsAtMax(t *testing.T) {
	p := NewTestPolicy(3, nil)

	wait := p.waitFor(&RateLimitError{RetryAfter: time.Hour})
	if wait != p.RateLimitMaxWait {
		t.Errorf("Expected wait capped at %v, got %v", p.RateLimitMaxWait, wait)
	}
}

func TestWaitForDefaultsToMinWait(t *testing.T) {
	p := NewTestPolicy(3, nil)

	wait := p.waitFor(errors.New("429 too many requests"))
	if wait != p.RateLimitMinWait {
		t.Errorf("Expected base wait %v, got %v", p.RateLimitMinWait, wait)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{&RateLimitError{}, true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("Quota Exceeded for this resource"), true},
		{errors.New("request throttled"), true},
		{errors.New("connection refused"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRateLimited(tt.err); got != tt.expected {
			t.Errorf("IsRateLimited(%v) = %v; want %v", tt.err, got, tt.expected)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{Permanent(errors.New("bad input")), true},
		{context.Canceled, true},
		{context.DeadlineExceeded, true},
		{errors.New("connection refused"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsPermanent(tt.err); got != tt.expected {
			t.Errorf("IsPermanent(%v) = %v; want %v", tt.err, got, tt.expected)
		}
	}
}

func TestGenericDoReturnsValue(t *testing.T) {
	p := NewTestPolicy(3, nil)

	calls := 0
	got, err := Do(context.Background(), p, "op", func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}
