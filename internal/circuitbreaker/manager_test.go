package circuitbreaker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestManagerGetOrCreate(t *testing.T) {
	manager := NewManager(Config{MaxFailures: 2, Timeout: time.Second, MaxRequests: 1}, quietLogger())

	first := manager.GetOrCreate("api.stripe.com")
	if first == nil {
		t.Fatal("expected circuit breaker, got nil")
	}
	if first.Name() != "api.stripe.com" {
		t.Errorf("expected breaker to be named after host, got %q", first.Name())
	}
	if first.maxFailures != 2 {
		t.Errorf("expected defaults to apply, got maxFailures=%d", first.maxFailures)
	}

	if again := manager.GetOrCreate("api.stripe.com"); again != first {
		t.Error("expected same breaker instance for the same host")
	}
	if other := manager.GetOrCreate("localhost:12111"); other == first {
		t.Error("expected a separate breaker per host")
	}
}

func TestManagerHostsAreIsolated(t *testing.T) {
	manager := NewManager(Config{MaxFailures: 1, Timeout: time.Minute, MaxRequests: 1}, quietLogger())

	down := manager.GetOrCreate("down.example.com")
	up := manager.GetOrCreate("up.example.com")

	_ = down.Execute(context.Background(), fail(errServer))

	if down.State() != StateOpen {
		t.Fatalf("expected failing host to open, got %s", down.State())
	}
	if err := up.Execute(context.Background(), succeed); err != nil {
		t.Errorf("healthy host was affected: %v", err)
	}

	metrics := manager.AllMetrics()
	if len(metrics) != 2 {
		t.Fatalf("expected metrics for 2 hosts, got %d", len(metrics))
	}
	if metrics["down.example.com"].State != "open" {
		t.Errorf("unexpected state in metrics: %s", metrics["down.example.com"].State)
	}

	manager.ResetAll()
	if down.State() != StateClosed {
		t.Errorf("expected ResetAll to close every breaker")
	}
}

func TestManagerConcurrentGetOrCreate(t *testing.T) {
	manager := NewManager(Config{MaxFailures: 3, Timeout: time.Second, MaxRequests: 1}, quietLogger())

	const workers = 32
	results := make([]*CircuitBreaker, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = manager.GetOrCreate("api.stripe.com")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different breaker instance", i)
		}
	}
}
