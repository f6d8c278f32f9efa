package timectrl

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFrameClockRunsForDuration(t *testing.T) {
	fc := NewFrameClock(5*time.Millisecond, Accelerated)

	done := fc.Start(15 * time.Millisecond)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("clock did not finish")
	}

	if got := fc.Frames(); got != 3 {
		t.Fatalf("Frames() = %d, want 3", got)
	}
}

func TestFrameClockNotifiesListeners(t *testing.T) {
	fc := NewFrameClock(2*time.Millisecond, Accelerated)

	var calls int32
	var lastDt time.Duration
	fc.AddListener(func(dt time.Duration) {
		atomic.AddInt32(&calls, 1)
		lastDt = dt
	})

	<-fc.Start(10 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("listener called %d times, want 5", got)
	}
	if lastDt != 2*time.Millisecond {
		t.Fatalf("listener dt = %v, want the frame interval", lastDt)
	}
}

func TestFrameClockStop(t *testing.T) {
	fc := NewFrameClock(time.Millisecond, RealTime)

	done := fc.Start(0) // run until stopped
	time.Sleep(10 * time.Millisecond)
	fc.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("clock did not stop")
	}
	if fc.Frames() == 0 {
		t.Fatalf("expected at least one frame before Stop")
	}

	// Stop is idempotent.
	fc.Stop()
}

func TestFrameClockRealTimePacing(t *testing.T) {
	fc := NewFrameClock(10*time.Millisecond, RealTime)

	start := time.Now()
	<-fc.Start(30 * time.Millisecond)
	elapsed := time.Since(start)

	if elapsed < 25*time.Millisecond {
		t.Fatalf("real-time clock finished too fast: %v", elapsed)
	}
	if got := fc.Frames(); got != 3 {
		t.Fatalf("Frames() = %d, want 3", got)
	}
}
