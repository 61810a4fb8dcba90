package ratelimit

import (
	"testing"
	"time"
)

func TestAllowEnforcesLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over the limit allowed")
	}

	// Other clients are tracked independently
	if !rl.Allow("5.6.7.8") {
		t.Error("unrelated client denied")
	}
	if got := rl.ActiveClients(); got != 2 {
		t.Errorf("active clients = %d, want 2", got)
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") {
		t.Fatal("first request denied")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("second request allowed within window")
	}

	// Age the entry past the window
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow("1.2.3.4") {
		t.Error("request denied after the window reset")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
