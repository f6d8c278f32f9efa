package timectrl

import (
	"sync"
	"time"
)

// Mode describes how the FrameClock paces frames.
type Mode int

const (
	// RealTime emits one frame per tick of wall-clock time.
	RealTime Mode = iota
	// Accelerated emits frames as quickly as the loop can run, each still
	// worth one Tick of host time.
	Accelerated
)

// FrameClock drives the host loop: it emits frames at a fixed interval and
// notifies registered listeners with the frame's real delta time. The engine
// applies its own timescale on top; the clock knows nothing about simulated
// time.
type FrameClock struct {
	mu       sync.RWMutex
	Tick     time.Duration
	Mode     Mode
	frames   int
	stopOnce sync.Once
	stop     chan struct{}

	listeners []func(dt time.Duration)
}

// NewFrameClock constructs a clock.
func NewFrameClock(tick time.Duration, mode Mode) *FrameClock {
	return &FrameClock{
		Tick: tick,
		Mode: mode,
		stop: make(chan struct{}),
	}
}

// Frames returns the number of frames emitted so far.
func (fc *FrameClock) Frames() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.frames
}

// AddListener registers a callback invoked on every frame. Listeners must be
// registered before Start.
func (fc *FrameClock) AddListener(fn func(dt time.Duration)) {
	fc.listeners = append(fc.listeners, fn)
}

// Stop terminates a running clock after the current frame.
func (fc *FrameClock) Stop() {
	fc.stopOnce.Do(func() { close(fc.stop) })
}

// Start runs the clock for the specified wall-equivalent duration in a
// separate goroutine; zero runs until Stop. It returns a channel that is
// closed when the clock finishes.
func (fc *FrameClock) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		elapsed := time.Duration(0)

		var ticker *time.Ticker
		if fc.Mode == RealTime {
			ticker = time.NewTicker(fc.Tick)
			defer ticker.Stop()
		}

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticker != nil {
				select {
				case <-ticker.C:
				case <-fc.stop:
					return
				}
			} else {
				select {
				case <-fc.stop:
					return
				default:
				}
			}

			elapsed += fc.Tick

			fc.mu.Lock()
			fc.frames++
			fc.mu.Unlock()

			for _, fn := range fc.listeners {
				fn(fc.Tick)
			}
		}
	}()
	return done
}
