// Package closure watches order snapshots for the moment staff close out a
// table, and resets the guest's local state exactly once when it can
// positively confirm the closure across settled (non-loading) snapshots.
package closure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tableside/tableside/pkg/enums"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/metrics"

	"github.com/tableside/tableside/internal/upstream"
)

// Observation is one settled or in-flight look at the table's orders.
type Observation struct {
	Loading bool
	Orders  []upstream.Order
}

// Notification is the transient "table closed" banner surfaced to the UI.
type Notification struct {
	Message   string    `json:"message"`
	FiredAt   time.Time `json:"fired_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Params configure the detector.
type Params struct {
	Logger          *logger.Logger
	Metrics         *metrics.EngineMetrics
	Debounce        time.Duration
	NotificationTTL time.Duration

	// Recheck takes a fresh observation when the debounce timer fires; the
	// condition is re-verified, never assumed to have held.
	Recheck func(ctx context.Context) Observation
	// Step gates firing: a reset must not destroy a cart the guest is
	// composing, so the detector stands down while the timeline shows
	// placing.
	Step func() enums.TimelineStep
	// Reset clears the draft store and its durable persistence.
	Reset func(ctx context.Context) error
}

// Detector debounces the "all orders terminal, none active" condition and
// fires the one-shot reset. The fired flag is scoped to one table
// assignment; ResetSession rearms it.
type Detector struct {
	logg            *logger.Logger
	metrics         *metrics.EngineMetrics
	debounce        time.Duration
	notificationTTL time.Duration
	recheck         func(ctx context.Context) Observation
	step            func() enums.TimelineStep
	reset           func(ctx context.Context) error

	mu           sync.Mutex
	fired        bool
	timer        *time.Timer
	notification *Notification
}

// NewDetector validates the wiring and builds a detector.
func NewDetector(params Params) (*Detector, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Recheck == nil {
		return nil, fmt.Errorf("recheck func required")
	}
	if params.Step == nil {
		return nil, fmt.Errorf("step func required")
	}
	if params.Reset == nil {
		return nil, fmt.Errorf("reset func required")
	}
	if params.NotificationTTL <= 0 {
		return nil, fmt.Errorf("notification ttl must be positive")
	}
	return &Detector{
		logg:            params.Logger,
		metrics:         params.Metrics,
		debounce:        params.Debounce,
		notificationTTL: params.NotificationTTL,
		recheck:         params.Recheck,
		step:            params.Step,
		reset:           params.Reset,
	}, nil
}

// Observe feeds the detector one snapshot. Mid-fetch snapshots are ignored;
// an empty order list is the normal new-guest case, not a closure; a
// reappearing active order cancels any pending debounce.
func (d *Detector) Observe(ctx context.Context, obs Observation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fired || obs.Loading {
		return
	}
	if len(obs.Orders) == 0 {
		d.cancelTimerLocked()
		return
	}

	hasActive, hasTerminal := classify(obs.Orders)
	if hasActive {
		d.cancelTimerLocked()
		return
	}
	if !hasTerminal {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.debounce, func() {
			d.fire(ctx)
		})
	}
}

func (d *Detector) fire(ctx context.Context) {
	obs := d.recheck(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = nil
	if d.fired {
		return
	}

	hasActive, hasTerminal := classify(obs.Orders)
	holds := !obs.Loading && len(obs.Orders) > 0 && hasTerminal && !hasActive
	if !holds || d.step() == enums.TimelineStepPlacing {
		// Condition evaporated (or the guest is mid-edit); the next settled
		// observation restarts the debounce if it still applies.
		return
	}

	if err := d.reset(ctx); err != nil {
		d.logg.Error(ctx, "table closure reset failed", err)
		return
	}

	d.fired = true
	now := time.Now()
	d.notification = &Notification{
		Message:   "Your table has been closed. Ready for a new order!",
		FiredAt:   now,
		ExpiresAt: now.Add(d.notificationTTL),
	}
	d.metrics.IncClosureReset()
	d.logg.Info(ctx, "table closed, local state reset")
}

// Notification returns the active banner, or nil after expiry or dismissal.
func (d *Detector) Notification() *Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.notification == nil {
		return nil
	}
	if time.Now().After(d.notification.ExpiresAt) {
		d.notification = nil
		return nil
	}
	copied := *d.notification
	return &copied
}

// Dismiss drops the banner early.
func (d *Detector) Dismiss() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notification = nil
}

// ResetSession rearms the detector for a new table assignment.
func (d *Detector) ResetSession() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = false
	d.notification = nil
	d.cancelTimerLocked()
}

// Fired reports whether the one-shot reset has happened this assignment.
func (d *Detector) Fired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

func (d *Detector) cancelTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func classify(orders []upstream.Order) (hasActive, hasTerminal bool) {
	for _, order := range orders {
		if order.StatusID.IsActive() {
			hasActive = true
		}
		if order.StatusID.IsTerminal() {
			hasTerminal = true
		}
	}
	return hasActive, hasTerminal
}
