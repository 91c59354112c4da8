package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyRetriesRetryableErrors(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsRetryable}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return newStatusError(429, "rate limited")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryPolicyStopsOnNonRetryable(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsRetryable}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return newStatusError(400, "bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error retried: %d attempts", calls)
	}
}

func TestRetryPolicyExhaustionReturnsLastError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsRetryable}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return newStatusError(500+calls, "server error")
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Status != 503 {
		t.Errorf("expected last attempt's error (503), got %d", pe.Status)
	}
}

func TestRetryPolicyZeroValueNeverRetries(t *testing.T) {
	var policy RetryPolicy

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return newStatusError(500, "server error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("zero-value policy made %d attempts", calls)
	}
}

func TestRetryPolicyHonorsContextDuringBackoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour, Retryable: IsRetryable}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		return newStatusError(500, "server error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", calls)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limit", newStatusError(429, "slow down"), true},
		{"server error", newStatusError(500, "boom"), true},
		{"bad gateway", newStatusError(502, "gateway"), true},
		{"bad request", newStatusError(400, "nope"), false},
		{"unauthorized", newStatusError(401, "key"), false},
		{"not found", newStatusError(404, "gone"), false},
		{"transport", newTransportError(errors.New("connection refused")), true},
		{"terminal provider error", &Error{Message: "malformed payload"}, false},
		{"unrelated error", errors.New("not a provider error"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.retryable)
			}
		})
	}
}
