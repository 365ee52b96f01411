package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Subscription defines the model for the 'subscriptions' table (1:1 with users).
// The pending fields form a single-slot upgrade request queue.
type Subscription struct {
	ID                int64           `json:"id" db:"id"`
	UserID            int64           `json:"userId" db:"user_id"`
	PlanID            *int64          `json:"planId,omitempty" db:"plan_id"`
	DurationID        *int64          `json:"durationId,omitempty" db:"duration_id"`
	AmountPaid        decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	ExtraSlots        int             `json:"extraSlots" db:"extra_slots"`
	StartDate         time.Time       `json:"startDate" db:"start_date"`
	EndDate           *time.Time      `json:"endDate,omitempty" db:"end_date"`
	IsApproved        bool            `json:"isApproved" db:"is_approved"`
	PendingPlanID     *int64          `json:"pendingPlanId,omitempty" db:"pending_plan_id"`
	PendingDurationID *int64          `json:"pendingDurationId,omitempty" db:"pending_duration_id"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`

	// These fields are not in the DB, but will be
	// populated by the store for the admin view.
	Plan            *PlanType             `json:"plan,omitempty" db:"-"`
	Duration        *SubscriptionDuration `json:"duration,omitempty" db:"-"`
	PendingPlan     *PlanType             `json:"pendingPlan,omitempty" db:"-"`
	PendingDuration *SubscriptionDuration `json:"pendingDuration,omitempty" db:"-"`
	UserEmail       string                `json:"userEmail,omitempty" db:"-"`
	UserName        string                `json:"userName,omitempty" db:"-"`
}

// HasPending reports whether an upgrade request is waiting for review.
func (s *Subscription) HasPending() bool {
	return s.PendingPlanID != nil && s.PendingDurationID != nil
}

// IsActive reports whether the subscription is still valid: free tier
// (no plan), unlimited (no end date) or not yet expired.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.PlanID == nil {
		return true
	}
	return s.EndDate == nil || !s.EndDate.Before(now)
}

// RemainingDays returns the days left until EndDate, never negative.
// Partial days round up, so a plan ending later today reports 1 rather
// than the 0 a whole-days floor would give. unlimited is true when there is
// no end date.
func (s *Subscription) RemainingDays(now time.Time) (days int, unlimited bool) {
	if s.EndDate == nil {
		return 0, true
	}
	left := s.EndDate.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return int(math.Ceil(left.Hours() / 24)), false
}

// RemainingLabel renders RemainingDays the way the dashboard shows it.
func (s *Subscription) RemainingLabel(now time.Time) any {
	days, unlimited := s.RemainingDays(now)
	if unlimited {
		return "Unlimited"
	}
	return days
}

// PaymentRecord is an immutable row written when an upgrade is approved.
type PaymentRecord struct {
	ID             int64           `json:"id" db:"id"`
	SubscriptionID int64           `json:"subscriptionId" db:"subscription_id"`
	UserID         int64           `json:"userId" db:"user_id"`
	PlanTypeID     int64           `json:"planTypeId" db:"plan_type_id"`
	DurationID     int64           `json:"durationId" db:"duration_id"`
	PlanName       string          `json:"planName" db:"plan_name"`
	DurationDays   int             `json:"durationDays" db:"duration_days"`
	Price          decimal.Decimal `json:"price" db:"price"`
	AmountPaid     decimal.Decimal `json:"amountPaid" db:"amount_paid"`
	Method         string          `json:"method" db:"method"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}
