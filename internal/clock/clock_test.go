package clock

import (
	"sync"
	"testing"
	"time"
)

func TestManual_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	if !clk.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, clk.Now())
	}

	clk.Advance(90 * time.Minute)
	if got := clk.Now().Sub(start); got != 90*time.Minute {
		t.Errorf("expected 90m elapsed, got %v", got)
	}

	later := start.Add(48 * time.Hour)
	clk.Set(later)
	if !clk.Now().Equal(later) {
		t.Errorf("expected %v after Set, got %v", later, clk.Now())
	}
}

func TestManual_ConcurrentAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewManual(start)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clk.Advance(time.Second)
			_ = clk.Now()
		}()
	}
	wg.Wait()

	if got := clk.Now().Sub(start); got != 100*time.Second {
		t.Errorf("expected 100s elapsed, got %v", got)
	}
}

func TestOrSystem(t *testing.T) {
	if _, ok := OrSystem(nil).(System); !ok {
		t.Error("expected nil clock to fall back to System")
	}

	manual := NewManual(time.Now())
	if OrSystem(manual) != Clock(manual) {
		t.Error("expected non-nil clock to be returned unchanged")
	}
}
