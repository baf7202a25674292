package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestNewRateLimiterStartsFull verifies the bucket starts at full capacity.
func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10.0)
	tokens := rl.GetCurrentTokens()
	if tokens < 9.9 { // Allow small float imprecision
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

// TestTryAcquireConsumesToken verifies token consumption.
func TestTryAcquireConsumesToken(t *testing.T) {
	rl := NewRateLimiter(1.0, 5.0)

	// Should succeed 5 times (burst capacity)
	for i := 0; i < 5; i++ {
		if !rl.tryAcquire() {
			t.Fatalf("tryAcquire() failed on attempt %d", i+1)
		}
	}

	// 6th should fail (bucket exhausted, no time for refill)
	if rl.tryAcquire() {
		t.Error("tryAcquire() should fail when bucket is empty")
	}
}

// TestTokenRefill verifies tokens refill over time.
func TestTokenRefill(t *testing.T) {
	rl := NewRateLimiter(10.0, 10.0) // 10 tokens/sec

	// Drain all tokens
	for i := 0; i < 10; i++ {
		rl.tryAcquire()
	}

	// Wait for partial refill
	time.Sleep(200 * time.Millisecond) // Should refill ~2 tokens

	tokens := rl.GetCurrentTokens()
	if tokens < 1.5 || tokens > 3.0 {
		t.Errorf("expected ~2 tokens after 200ms at 10/sec, got %.2f", tokens)
	}
}

// TestTokenRefillCapsAtMax verifies tokens don't exceed max capacity.
func TestTokenRefillCapsAtMax(t *testing.T) {
	rl := NewRateLimiter(100.0, 5.0) // Very fast refill, low max

	time.Sleep(100 * time.Millisecond)

	tokens := rl.GetCurrentTokens()
	if tokens > 5.1 { // Allow tiny float imprecision
		t.Errorf("tokens should cap at 5, got %.2f", tokens)
	}
}

// TestWaitBlocksUntilTokenAvailable verifies Wait blocks and then succeeds.
func TestWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter(10.0, 1.0) // 10 tokens/sec, 1 max

	// Consume the only token
	rl.tryAcquire()

	// Wait should block briefly then succeed
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Wait() returned error: %v", err)
	}

	// Should have waited ~100ms (1 token / 10 tokens/sec)
	if elapsed < 50*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("Wait() took %v, expected ~100ms", elapsed)
	}
}

// TestWaitRespectsContextCancellation verifies Wait returns on context cancel.
func TestWaitRespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.1, 1.0) // Very slow refill

	// Consume the only token
	rl.tryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if err == nil {
		t.Error("Wait() should return error when context is cancelled")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestDrainEmptiesBucket verifies Drain sets tokens to zero.
func TestDrainEmptiesBucket(t *testing.T) {
	rl := NewRateLimiter(1.0, 100.0)

	if tokens := rl.GetCurrentTokens(); tokens < 99.0 {
		t.Fatalf("expected ~100 tokens at start, got %.2f", tokens)
	}

	rl.Drain()

	// Allow tiny refill from time between Drain and GetCurrentTokens
	tokens := rl.GetCurrentTokens()
	if tokens > 0.1 {
		t.Errorf("after Drain: tokens = %.2f, want ~0", tokens)
	}
}

// TestScopedConstructors verifies the portal-scoped limiters start full.
func TestScopedConstructors(t *testing.T) {
	tests := []struct {
		name    string
		limiter *RateLimiter
		want    float64
	}{
		{"portal", NewPortalRateLimiter(), PortalBurstCapacity},
		{"update", NewUpdateRateLimiter(), UpdateBurstCapacity},
		{"publish", NewPublishRateLimiter(), PublishBurstCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tokens := tt.limiter.GetCurrentTokens(); tokens < tt.want-0.1 {
				t.Errorf("GetCurrentTokens() = %.2f, want ~%.0f", tokens, tt.want)
			}
		})
	}
}
