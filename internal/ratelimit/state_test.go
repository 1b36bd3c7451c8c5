package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

func newTestState() (*State, *clock.Manual) {
	clk := clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewState(clk), clk
}

func TestState_Defaults(t *testing.T) {
	s, _ := newTestState()

	if s.RetryWindow() != DefaultRetryWindow {
		t.Errorf("expected default retry window %v, got %v", DefaultRetryWindow, s.RetryWindow())
	}
	if st := s.Status(); st.Limited {
		t.Error("new state should not be limited")
	}
	if _, blocked := s.Blocked(); blocked {
		t.Error("new state should not block")
	}
}

func TestState_BlockedWithinRetryWindow(t *testing.T) {
	s, clk := newTestState()

	st := s.MarkLimited()
	if !st.Limited || st.MinutesLeft != 60 {
		t.Fatalf("unexpected status after MarkLimited: %+v", st)
	}

	clk.Advance(25 * time.Minute)
	st, blocked := s.Blocked()
	if !blocked {
		t.Fatal("expected requests to be blocked inside the retry window")
	}
	if st.MinutesSince != 25 || st.MinutesLeft != 35 {
		t.Errorf("expected 25 since / 35 left, got %+v", st)
	}

	clk.Advance(35 * time.Minute)
	if _, blocked := s.Blocked(); blocked {
		t.Error("expected requests to pass once the retry window elapsed")
	}
	if !s.Status().Limited {
		t.Error("flag should stay raised until cleared")
	}

	s.Clear()
	if s.Status().Limited {
		t.Error("expected flag to be cleared")
	}
}

func TestState_SetRetryWindow(t *testing.T) {
	s, clk := newTestState()
	s.SetRetryWindow(5 * time.Minute)
	s.SetRetryWindow(0)

	if s.RetryWindow() != 5*time.Minute {
		t.Fatalf("expected 5m retry window, got %v", s.RetryWindow())
	}

	s.MarkLimited()
	clk.Advance(4 * time.Minute)
	if _, blocked := s.Blocked(); !blocked {
		t.Error("expected block after 4 minutes of a 5 minute window")
	}
	clk.Advance(time.Minute)
	if _, blocked := s.Blocked(); blocked {
		t.Error("expected no block after 5 minutes")
	}
}

func TestState_CounterRollsOncePerWindow(t *testing.T) {
	s, clk := newTestState()
	start := s.Requests().WindowStart

	for i := int64(1); i <= 3; i++ {
		if got := s.Increment(); got != i {
			t.Fatalf("expected count %d, got %d", i, got)
		}
	}

	// Exactly 24h later the window has not yet been exceeded.
	clk.Advance(CounterWindow)
	if got := s.Increment(); got != 4 {
		t.Errorf("expected count 4 at window boundary, got %d", got)
	}

	clk.Advance(time.Second)
	if got := s.Increment(); got != 1 {
		t.Errorf("expected count to reset to 1, got %d", got)
	}
	rc := s.Requests()
	if !rc.WindowStart.Equal(start.Add(CounterWindow + time.Second)) {
		t.Errorf("unexpected window start %v", rc.WindowStart)
	}

	clk.Advance(time.Hour)
	if got := s.Increment(); got != 2 {
		t.Errorf("expected count 2 in new window, got %d", got)
	}
}

func TestState_ConcurrentIncrement(t *testing.T) {
	s, _ := newTestState()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment()
		}()
	}
	wg.Wait()

	if got := s.Requests().Count; got != 200 {
		t.Errorf("expected 200 requests counted, got %d", got)
	}
}
