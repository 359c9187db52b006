// Package poll implements the refresh cadence shared by every consumer view.
//
// There is no push channel anywhere in the system: the customer tracker, the
// kitchen display, the waiter-call board, and the order dashboard each own a
// single polling loop and reconcile by replacing their state wholesale on
// every successful fetch. Staleness is therefore bounded by the view's
// interval and is a property of the design, not a bug.
package poll

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// View identifies a polling consumer role.
type View string

const (
	ViewCustomerTracker View = "customer_tracker"
	ViewKitchenDisplay  View = "kitchen_display"
	ViewWaiterCalls     View = "waiter_calls"
	ViewDashboard       View = "dashboard"
)

// Intervals is the per-view polling policy. One instance is built from
// config and injected into every view, replacing per-view ad hoc timers.
type Intervals struct {
	CustomerTracker time.Duration
	KitchenDisplay  time.Duration
	WaiterCalls     time.Duration
	Dashboard       time.Duration
}

// DefaultIntervals mirrors the shipped view cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		CustomerTracker: 30 * time.Second,
		KitchenDisplay:  10 * time.Second,
		WaiterCalls:     5 * time.Second,
		Dashboard:       15 * time.Second,
	}
}

// For returns the interval for a view, defaulting to the dashboard cadence
// for unknown views.
func (iv Intervals) For(view View) time.Duration {
	switch view {
	case ViewCustomerTracker:
		return iv.CustomerTracker
	case ViewKitchenDisplay:
		return iv.KitchenDisplay
	case ViewWaiterCalls:
		return iv.WaiterCalls
	default:
		return iv.Dashboard
	}
}

// FetchFunc re-fetches the view's data and applies it. A non-nil error is
// logged and the previous state stays in place until the next tick.
type FetchFunc func(ctx context.Context) error

// Poller owns exactly one ticker for one mounted view. The owner that calls
// Run is the only one that may stop it, by cancelling the context; remounts
// create a fresh Poller, so timers never accumulate.
type Poller struct {
	view     View
	interval time.Duration
	fetch    FetchFunc

	refresh chan struct{}
	busy    atomic.Bool
}

func New(view View, intervals Intervals, fetch FetchFunc) *Poller {
	return &Poller{
		view:     view,
		interval: intervals.For(view),
		fetch:    fetch,
		refresh:  make(chan struct{}, 1),
	}
}

// Run fetches once immediately, then on every tick until ctx is cancelled.
// It blocks; callers run it as a goroutine tied to the view's lifetime.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.doFetch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.doFetch(ctx)
		case <-p.refresh:
			// Manual refresh short-circuits the timer; reset so the next
			// automatic tick is a full interval away.
			ticker.Reset(p.interval)
			p.doFetch(ctx)
		}
	}
}

// Refresh requests an immediate re-fetch. Returns false when a fetch is
// already in flight or a refresh is already queued, so a button mash cannot
// stack concurrent requests.
func (p *Poller) Refresh() bool {
	if p.busy.Load() {
		return false
	}
	select {
	case p.refresh <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *Poller) doFetch(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)

	if err := p.fetch(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// Transient failures never kill the view; retry on the next tick.
		log.Printf("ERROR: poll %s: %v", p.view, err)
	}
}
