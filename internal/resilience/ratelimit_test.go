package resilience

import (
	"context"
	"testing"
	"time"
)

func TestWindowLimiter_AdmitsUpToLimit(t *testing.T) {
	limiter := NewWindowLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		done := make(chan error, 1)
		go func() { done <- limiter.Wait(ctx) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Wait %d returned error: %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("Wait %d blocked inside the window budget", i)
		}
	}

	if got := limiter.Remaining(); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}
}

func TestWindowLimiter_DelaysOverLimit(t *testing.T) {
	limiter := NewWindowLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait %d returned error: %v", i, err)
		}
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("third Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("third Wait returned after %v, expected it to block until the window rolled", elapsed)
	}
}

func TestWindowLimiter_CancelledContext(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Hour)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected context error from Wait on a full window")
	}
}

func TestWindowLimiter_NilDisables(t *testing.T) {
	var limiter *WindowLimiter
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("nil limiter Wait returned error: %v", err)
		}
	}
}
