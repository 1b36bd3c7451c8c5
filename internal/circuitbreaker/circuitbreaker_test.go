package circuitbreaker

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
	"github.com/maltehedderich/steam-api-go/internal/logger"
)

var errUpstream = errors.New("upstream failure")

func init() {
	logger.Init(logger.InfoLevel, "json", &bytes.Buffer{})
}

func testBreaker(clk clock.Clock, failures, successes, maxRequests int) *CircuitBreaker {
	return New("steam-test", &Config{
		FailureThreshold: failures,
		SuccessThreshold: successes,
		Timeout:          time.Minute,
		MaxRequests:      maxRequests,
	}, WithClock(clk))
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FailureThreshold != 5 || cfg.SuccessThreshold != 2 || cfg.Timeout != 60*time.Second || cfg.MaxRequests != 3 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if tt.state.String() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.state.String())
			}
		})
	}
}

func TestExecute_PassesErrorThrough(t *testing.T) {
	cb := testBreaker(nil, 3, 2, 2)

	if err := cb.Execute(fail); err != errUpstream {
		t.Errorf("expected upstream error, got %v", err)
	}
	if stats := cb.GetStats(); stats.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", stats.Failures)
	}

	if err := cb.Execute(succeed); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if stats := cb.GetStats(); stats.Failures != 0 {
		t.Errorf("success in closed state should reset failures, got %d", stats.Failures)
	}
}

func TestCircuitOpens(t *testing.T) {
	cb := testBreaker(nil, 3, 2, 2)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected state %s, got %s", StateOpen, cb.GetState())
	}

	err := cb.Execute(func() error {
		t.Error("function should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitHalfOpenThenCloses(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	cb := testBreaker(clk, 2, 2, 3)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	clk.Advance(59 * time.Second)
	if err := cb.Execute(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit still open before timeout, got %v", err)
	}

	clk.Advance(time.Second)
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected probe request to pass, got %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected state %s, got %s", StateHalfOpen, cb.GetState())
	}

	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected second probe to pass, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected state %s, got %s", StateClosed, cb.GetState())
	}
}

func TestHalfOpenFailureGoesBackToOpen(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	cb := testBreaker(clk, 2, 2, 3)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clk.Advance(time.Minute)

	_ = cb.Execute(succeed)
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected state %s, got %s", StateHalfOpen, cb.GetState())
	}

	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Errorf("expected state %s, got %s", StateOpen, cb.GetState())
	}
}

func TestHalfOpenMaxRequests(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	cb := testBreaker(clk, 2, 3, 2)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	clk.Advance(time.Minute)

	for i := 0; i < 2; i++ {
		if err := cb.Execute(succeed); err != nil {
			t.Fatalf("probe %d: expected no error, got %v", i, err)
		}
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected state %s, got %s", StateHalfOpen, cb.GetState())
	}

	err := cb.Execute(func() error {
		t.Error("function should not be called when max requests exceeded")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestClassifier(t *testing.T) {
	ignored := errors.New("not found")
	cb := New("steam-classified", &Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute, MaxRequests: 1},
		WithClassifier(func(err error) bool { return err != nil && !errors.Is(err, ignored) }))

	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { return ignored }); err != ignored {
			t.Fatalf("expected error to be passed through, got %v", err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Errorf("ignored errors should not open the circuit, state %s", cb.GetState())
	}

	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Errorf("classified failure should open the circuit, state %s", cb.GetState())
	}
}

func TestReset(t *testing.T) {
	cb := testBreaker(nil, 2, 2, 2)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected state %s, got %s", StateOpen, cb.GetState())
	}

	cb.Reset()

	stats := cb.GetStats()
	if stats.State != "closed" || stats.Failures != 0 || stats.Successes != 0 {
		t.Errorf("unexpected stats after reset: %+v", stats)
	}
}

func TestConcurrentAccess(t *testing.T) {
	cb := testBreaker(nil, 100, 2, 50)

	var wg sync.WaitGroup
	iterations := 100
	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(succeed)
		}()
	}
	wg.Wait()

	if stats := cb.GetStats(); stats.Successes != iterations {
		t.Errorf("expected %d successes, got %d", iterations, stats.Successes)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(&Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute, MaxRequests: 1})

	api := m.Get("api.steampowered.com")
	if m.Get("api.steampowered.com") != api {
		t.Error("expected the same breaker for the same host")
	}
	store := m.Get("store.steampowered.com")

	_ = api.Execute(fail)
	if api.GetState() != StateOpen || store.GetState() != StateClosed {
		t.Errorf("breakers should be independent, got api=%s store=%s", api.GetState(), store.GetState())
	}
	if len(m.GetStats()) != 2 {
		t.Errorf("expected 2 breakers in stats, got %d", len(m.GetStats()))
	}

	if err := m.Reset("api.steampowered.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if api.GetState() != StateClosed {
		t.Errorf("expected api breaker closed after reset, got %s", api.GetState())
	}
	if err := m.Reset("missing"); err == nil {
		t.Error("expected error resetting unknown breaker")
	}

	_ = store.Execute(fail)
	m.ResetAll()
	if store.GetState() != StateClosed {
		t.Errorf("expected store breaker closed after ResetAll, got %s", store.GetState())
	}
}

func TestManagerConcurrentGet(t *testing.T) {
	m := NewManager(nil)

	var wg sync.WaitGroup
	results := make([]*CircuitBreaker, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Get("api.steampowered.com")
		}(i)
	}
	wg.Wait()

	for _, cb := range results {
		if cb != results[0] {
			t.Fatal("concurrent Get returned different breakers for the same name")
		}
	}
}
