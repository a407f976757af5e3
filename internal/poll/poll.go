// Package poll runs a fixed-interval status check until the remote work
// reaches a terminal state, the attempt budget runs out, or too many checks
// in a row fail.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Default polling parameters
const (
	DefaultInterval    = 2000 * time.Millisecond
	DefaultMaxAttempts = 60
	DefaultMaxErrors   = 10
)

// Outcome is the terminal result of a poll
type Outcome string

const (
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
	TimedOut  Outcome = "timed_out"
	Errored   Outcome = "errored" // too many consecutive check errors
	Cancelled Outcome = "cancelled"
)

// Status is one status report from the remote service
type Status struct {
	State        string `json:"status"`
	Progress     int    `json:"progress,omitempty"`
	CurrentStep  string `json:"currentStep,omitempty"`
	ExtractionID string `json:"extractionId,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Terminal reports whether the status ends polling, and how
func (s Status) Terminal() (Outcome, bool) {
	switch strings.ToLower(s.State) {
	case "completed":
		return Completed, true
	case "failed", "error":
		return Failed, true
	}
	return "", false
}

// CheckFunc queries the current status; attempt starts at 1
type CheckFunc func(ctx context.Context, attempt int) (Status, error)

// Ticker is the subset of time.Ticker used by the loop
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Config parameterises the loop
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	MaxErrors   int
	// NewTicker creates the interval ticker; defaults to NewRealTicker
	NewTicker func(time.Duration) Ticker
	// OnStatus is called after every successful non-terminal check
	OnStatus func(attempt int, s Status)
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = DefaultMaxErrors
	}
	if c.NewTicker == nil {
		c.NewTicker = NewRealTicker
	}
	return c
}

// Result describes how a poll ended
type Result struct {
	Outcome  Outcome
	Status   Status
	Attempts int
	Err      error
}

// ErrTooManyErrors is set on Errored results
var ErrTooManyErrors = errors.New("too many consecutive status check errors")

// Run polls until a terminal outcome. The first check happens one interval
// after the call. Non-terminal responses are budgeted by MaxAttempts; check
// errors are tolerated until MaxErrors happen in a row.
func Run(ctx context.Context, cfg Config, check CheckFunc) Result {
	cfg = cfg.withDefaults()
	ticker := cfg.NewTicker(cfg.Interval)
	defer ticker.Stop()

	attempts := 0
	consecutiveErrors := 0
	var last Status
	for {
		if ctx.Err() != nil {
			return Result{Outcome: Cancelled, Status: last, Attempts: attempts, Err: ctx.Err()}
		}
		select {
		case <-ctx.Done():
			return Result{Outcome: Cancelled, Status: last, Attempts: attempts, Err: ctx.Err()}
		case <-ticker.C():
		}

		attempts++
		status, err := check(ctx, attempts)
		if err != nil {
			if ctx.Err() != nil {
				return Result{Outcome: Cancelled, Status: last, Attempts: attempts, Err: ctx.Err()}
			}
			consecutiveErrors++
			slog.Warn("Status check failed", "attempt", attempts, "consecutive_errors", consecutiveErrors, "error", err)
			if consecutiveErrors >= cfg.MaxErrors {
				return Result{Outcome: Errored, Status: last, Attempts: attempts, Err: errors.Join(ErrTooManyErrors, err)}
			}
		} else {
			consecutiveErrors = 0
			last = status
			if outcome, ok := status.Terminal(); ok {
				return Result{Outcome: outcome, Status: status, Attempts: attempts}
			}
			if cfg.OnStatus != nil {
				cfg.OnStatus(attempts, status)
			}
		}

		if attempts >= cfg.MaxAttempts {
			return Result{Outcome: TimedOut, Status: last, Attempts: attempts}
		}
	}
}

// Poller runs at most one poll loop at a time. Starting a new loop cancels
// the previous one and waits for it to exit.
type Poller struct {
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Poller with the given configuration
func New(cfg Config) *Poller {
	return &Poller{cfg: cfg}
}

// Start cancels any running loop and starts a new one. The returned channel
// receives exactly one Result.
func (p *Poller) Start(ctx context.Context, check CheckFunc) <-chan Result {
	p.Cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	results := make(chan Result, 1)
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		defer cancel()
		results <- Run(ctx, p.cfg, check)
	}()
	return results
}

// Cancel stops the running loop, if any, and waits for it to exit
func (p *Poller) Cancel() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether a loop is currently running
func (p *Poller) Active() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
