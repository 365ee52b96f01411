// Package quota decides whether a user may create or view a product right
// now, based on their subscription plan and a trailing 24 hour window.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
)

const (
	Window = 24 * time.Hour

	// DefaultProductLimit applies to users without a subscription plan.
	DefaultProductLimit = 1
	// DefaultViewLimit applies to users without a subscription plan.
	DefaultViewLimit = 5
)

// Store is what the evaluator reads and writes.
type Store interface {
	GetSubscriptionByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	CountProductsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	HasViewed(ctx context.Context, userID, productID int64) (bool, error)
	CountViewsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	UpsertView(ctx context.Context, userID, productID int64, at time.Time) error
	LockUser(ctx context.Context, userID int64) error
}

// TxFunc runs fn with a Store bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// SQLTx adapts the MySQL store to TxFunc.
func SQLTx(st *store.Store) TxFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return st.WithTx(ctx, func(tx *store.Store) error { return fn(tx) })
	}
}

// Decision is the outcome of a quota check. A denial is a Decision with
// Allowed false, not an error.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Limit     int  `json:"limit"`
	Unlimited bool `json:"unlimited"`
	Count     int  `json:"count"`
}

// LimitLabel renders the limit for user-facing messages.
func (d Decision) LimitLabel() string {
	if d.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(d.Limit)
}

// Evaluator applies the plan limits.
type Evaluator struct {
	store Store
	tx    TxFunc
	inTx  bool
	now   func() time.Time
}

// New builds an evaluator. With a nil tx the guarded methods run without a
// transaction and without locking.
func New(st Store, tx TxFunc) *Evaluator {
	return &Evaluator{store: st, tx: tx, now: time.Now}
}

// WithClock replaces the time source.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	cp := *e
	cp.now = now
	return &cp
}

// With returns an evaluator reading through st, typically a store bound to
// the caller's transaction.
func (e *Evaluator) With(st Store) *Evaluator {
	cp := *e
	cp.store = st
	cp.tx = nil
	cp.inTx = true
	return &cp
}

// Lock serialises quota decisions for one user until the surrounding
// transaction ends. Outside a transaction it does nothing.
func (e *Evaluator) Lock(ctx context.Context, userID int64) error {
	if !e.inTx {
		return nil
	}
	if err := e.store.LockUser(ctx, userID); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (e *Evaluator) subscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := e.store.GetSubscriptionByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription: %w", err)
	}
	return sub, nil
}

// CanCreateProduct compares products created in the trailing window
// against the plan cap plus extra slots.
func (e *Evaluator) CanCreateProduct(ctx context.Context, userID int64) (Decision, error) {
	sub, err := e.subscription(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	limit := DefaultProductLimit
	if sub != nil && sub.Plan != nil {
		limit = sub.Plan.MaxProductsPerDay + sub.ExtraSlots
	}

	count, err := e.store.CountProductsSince(ctx, userID, e.now().Add(-Window))
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: count < limit, Limit: limit, Count: count}, nil
}

// CanViewProduct always allows a product the user has opened before.
// Otherwise every view row refreshed in the trailing window counts
// against the plan's daily views; a plan value of 0 is unlimited.
func (e *Evaluator) CanViewProduct(ctx context.Context, userID, productID int64) (Decision, error) {
	sub, err := e.subscription(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Limit: DefaultViewLimit}
	if sub != nil && sub.Plan != nil {
		d.Limit = sub.Plan.MaxProductViewsPerDay
		d.Unlimited = d.Limit == 0
	}

	seen, err := e.store.HasViewed(ctx, userID, productID)
	if err != nil {
		return Decision{}, err
	}

	d.Count, err = e.store.CountViewsSince(ctx, userID, e.now().Add(-Window))
	if err != nil {
		return Decision{}, err
	}
	d.Allowed = seen || d.Unlimited || d.Count < d.Limit
	return d, nil
}

// RecordView upserts the view row for an allowed view.
func (e *Evaluator) RecordView(ctx context.Context, userID, productID int64) error {
	return e.store.UpsertView(ctx, userID, productID, e.now())
}

// ViewProduct checks the view quota and records the view in one
// transaction holding the user's row lock. The view is recorded only when
// allowed.
func (e *Evaluator) ViewProduct(ctx context.Context, userID, productID int64) (Decision, error) {
	var d Decision
	err := e.run(ctx, func(q *Evaluator) error {
		if err := q.Lock(ctx, userID); err != nil {
			return err
		}
		var err error
		d, err = q.CanViewProduct(ctx, userID, productID)
		if err != nil || !d.Allowed {
			return err
		}
		return q.RecordView(ctx, userID, productID)
	})
	return d, err
}

func (e *Evaluator) run(ctx context.Context, fn func(q *Evaluator) error) error {
	if e.tx == nil {
		return fn(e)
	}
	return e.tx(ctx, func(st Store) error { return fn(e.With(st)) })
}

// ProductLimitMessage is shown when product creation is denied.
func ProductLimitMessage(d Decision) string {
	return fmt.Sprintf("You have reached your daily limit of %s products. Buy more slots or upgrade your plan.", d.LimitLabel())
}

// ViewLimitMessage is shown when a product view is denied.
func ViewLimitMessage(d Decision) string {
	return fmt.Sprintf("You have reached your daily limit of %s product views.", d.LimitLabel())
}
