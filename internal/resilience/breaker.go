package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned (or handed to the fallback) when the breaker
// refuses to issue a call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the breaker state machine position
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// BreakerConfig tunes a circuit breaker
type BreakerConfig struct {
	// WindowSize is the number of most recent outcomes sampled for the
	// failure rate. The breaker never opens before the window is full.
	WindowSize int
	// FailureRate in [0,1]; the circuit opens when the windowed rate
	// reaches this threshold.
	FailureRate float64
	// OpenTimeout is how long the circuit stays open before a half-open
	// probe is allowed through.
	OpenTimeout time.Duration
}

// Breaker is a sliding-window failure-rate circuit breaker. One instance
// guards one logical downstream operation and is shared by every caller of
// that operation; construct isolated instances in tests.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    State
	window   []bool // true = failure
	idx      int
	filled   int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a closed breaker
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 10
	}
	if cfg.FailureRate <= 0 {
		cfg.FailureRate = 0.5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		window: make([]bool, cfg.WindowSize),
		now:    time.Now,
	}
}

// Name returns the operation this breaker guards
func (b *Breaker) Name() string { return b.name }

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may be issued. While open it returns false
// until OpenTimeout has elapsed, then transitions to half-open and lets a
// probe through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = StateHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess feeds a successful outcome into the window. A half-open
// probe success closes the circuit and clears the window.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.reset()
		return
	}
	b.record(false)
}

// RecordFailure feeds a technical failure into the window. Business
// rejections must not be recorded. A half-open probe failure reopens the
// circuit immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trip()
		return
	}

	b.record(true)
	if b.state == StateClosed && b.filled == len(b.window) && b.failureRate() >= b.cfg.FailureRate {
		b.trip()
	}
}

func (b *Breaker) record(failure bool) {
	b.window[b.idx] = failure
	b.idx = (b.idx + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
}

func (b *Breaker) failureRate() float64 {
	if b.filled == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	return float64(failures) / float64(b.filled)
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.reset()
}

func (b *Breaker) reset() {
	for i := range b.window {
		b.window[i] = false
	}
	b.idx = 0
	b.filled = 0
}
