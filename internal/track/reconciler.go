// Package track runs the price-tracking reconciliation loop: every tracked
// item of every user is re-priced, drops are detected, per-user state is
// written back in a single batched update and notifications are emitted.
package track

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/store"
)

// PriceResolver resolves a live price for one item. Failures never surface as
// errors; they come back as an unresolved result.
type PriceResolver interface {
	Resolve(ctx context.Context, item domain.TrackedItem) domain.PriceResult
}

// Notifier emits one price-drop notification.
type Notifier interface {
	NotifyDrop(ctx context.Context, chatID int64, item domain.TrackedItem, refund int64) error
}

// UserFailure records a store write that failed for one user during a pass.
type UserFailure struct {
	ChatID int64
	Err    error
}

// PassError aggregates per-user failures from one reconciliation pass. The
// pass itself still completes; failed users are simply untouched until the
// next run.
type PassError struct {
	Failures []UserFailure
}

func (e *PassError) Error() string {
	if len(e.Failures) == 0 {
		return "no failures"
	}
	msg := fmt.Sprintf("%d user(s) failed:", len(e.Failures))
	for _, f := range e.Failures {
		msg += fmt.Sprintf(" user %d: %v;", f.ChatID, f.Err)
	}
	return msg
}

func (e *PassError) asError() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}

// Report summarizes one reconciliation pass.
type Report struct {
	StartedAt     time.Time
	Duration      time.Duration
	Users         int
	ItemsChecked  int
	ItemsResolved int
	Drops         int
	Notified      int
	WriteFailures int
}

// Reconciler drives the reconciliation pass. It mutates only the price fields
// of tracked items and persists a user's whole tracking list at most once per
// pass.
type Reconciler struct {
	store    store.Store
	resolver PriceResolver
	notifier Notifier
	logger   *slog.Logger
	nowFn    func() time.Time

	mu   sync.Mutex
	last *Report
}

// NewReconciler wires the reconciliation loop to its collaborators.
func NewReconciler(st store.Store, resolver PriceResolver, notifier Notifier, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    st,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (r *Reconciler) WithClock(nowFn func() time.Time) *Reconciler {
	if nowFn != nil {
		r.nowFn = nowFn
	}
	return r
}

// LastReport returns the report of the most recent completed pass, or nil.
func (r *Reconciler) LastReport() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

// RunPass executes one full reconciliation pass. Only the initial user listing
// can fail the pass; everything after — resolution failures, notification
// failures, store-write failures — is isolated to its item or user, logged,
// and reflected in the returned PassError/report. Users are processed
// sequentially, each one's items in stored order.
func (r *Reconciler) RunPass(ctx context.Context) (Report, error) {
	started := r.nowFn()
	report := Report{StartedAt: started}

	users, err := r.store.GetAllUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}

	var passErr PassError
	for i := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		user := &users[i]
		report.Users++
		if err := r.reconcileUser(ctx, user, &report); err != nil {
			report.WriteFailures++
			passErr.Failures = append(passErr.Failures, UserFailure{ChatID: user.ChatID, Err: err})
			r.logger.Error("persisting tracking list failed",
				"chat_id", user.ChatID, "error", err)
		}
	}

	report.Duration = r.nowFn().Sub(started)
	r.logger.Info("reconciliation pass complete",
		"users", report.Users,
		"items", report.ItemsChecked,
		"resolved", report.ItemsResolved,
		"drops", report.Drops,
		"notified", report.Notified,
		"write_failures", report.WriteFailures,
		"duration", report.Duration,
	)

	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	return report, passErr.asError()
}

// reconcileUser walks one user's items and performs at most one store write.
// The returned error is a store-write failure only; item-level problems never
// abort the user.
func (r *Reconciler) reconcileUser(ctx context.Context, user *domain.User, report *Report) error {
	dirty := false

	for i := range user.Tracking {
		item := &user.Tracking[i]
		if !item.Resolvable() {
			r.logger.Debug("skipping untrackable item", "chat_id", user.ChatID, "item_id", item.ID)
			continue
		}
		report.ItemsChecked++

		res := r.resolver.Resolve(ctx, *item)
		if !res.Resolved {
			// Leave the last known price alone; the next pass is the retry.
			continue
		}
		report.ItemsResolved++

		price := res.Price
		item.CurrentPrice = &price
		dirty = true

		if price < item.PricePaid {
			refund := item.PricePaid - price
			report.Drops++
			if err := r.notifier.NotifyDrop(ctx, user.ChatID, *item, refund); err != nil {
				r.logger.Error("drop notification failed",
					"chat_id", user.ChatID, "item_id", item.ID, "error", err)
			} else {
				report.Notified++
			}
		}
	}

	if !dirty {
		return nil
	}
	return r.store.ReplaceTracking(ctx, user.ChatID, user.Tracking)
}
