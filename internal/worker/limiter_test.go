package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestPerMinute(t *testing.T) {
	if PerMinute(0) != nil {
		t.Error("expected nil limiter for 0 requests per minute")
	}

	l := PerMinute(60)
	if l == nil {
		t.Fatal("expected limiter")
	}
	if err := l.Wait(context.Background(), "gemini-2.5-flash"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	// The next token for the same model is a second away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "gemini-2.5-flash"); err == nil {
		t.Error("second immediate request should be limited")
	}
	if err := l.Wait(context.Background(), "gemini-3-flash-preview"); err != nil {
		t.Errorf("other model should have its own budget: %v", err)
	}
}

func TestLimiter_NilIsUnlimited(t *testing.T) {
	var l *Limiter
	for i := 0; i < 5; i++ {
		if err := l.Wait(context.Background(), "model"); err != nil {
			t.Fatalf("nil limiter wait failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "model"); err == nil {
		t.Error("expected cancelled context error")
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.Wait(context.Background(), "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("expected error when deadline is shorter than the next token")
	}
}

func TestHostKey(t *testing.T) {
	host, err := HostKey("http://example.com/foo")
	if err != nil {
		t.Fatalf("HostKey failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := HostKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
