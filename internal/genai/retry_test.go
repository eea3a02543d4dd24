package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second, BackoffFactor: 2}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 0},
		{attempt: 2, want: time.Second},
		{attempt: 3, want: 2 * time.Second},
		{attempt: 4, want: 4 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryFirstAttemptWins(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, BackoffFactor: 2}
	calls := 0
	got, err := retry(context.Background(), policy, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 3 {
			return "", errors.New("boom")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustion(t *testing.T) {
	policy := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, BackoffFactor: 2}
	boom := errors.New("boom")
	calls := 0
	_, err := retry(context.Background(), policy, func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", boom
	})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected a TransportError, got %v", err)
	}
	if transportErr.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", transportErr.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Error("the last attempt error must be wrapped")
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetryCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 4, BaseDelay: time.Minute, BackoffFactor: 2}
	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = retry(ctx, policy, func(ctx context.Context, attempt int) (string, error) {
			calls++
			return "", errors.New("boom")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not abort on cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before the canceled wait, got %d", calls)
	}
}

func TestRetryCanceledContextIsNotTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := retry(ctx, DefaultPolicy(), func(ctx context.Context, attempt int) (string, error) {
		return "", ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		t.Error("a canceled call must not be labeled a transport failure")
	}
}
