package models

import "github.com/shopspring/decimal"

// PlanType defines the model for the 'plan_types' table.
// MaxProductViewsPerDay of 0 means unlimited.
type PlanType struct {
	ID                    int64  `json:"id" db:"id"`
	Name                  string `json:"name" db:"name"`
	MaxProductsPerDay     int    `json:"maxProductsPerDay" db:"max_products_per_day"`
	BaseSlots             int    `json:"baseSlots" db:"base_slots"`
	MaxProductViewsPerDay int    `json:"maxProductViewsPerDay" db:"max_product_views_per_day"`
}

// SubscriptionDuration defines the model for the 'subscription_durations' table.
type SubscriptionDuration struct {
	ID           int64 `json:"id" db:"id"`
	DurationDays int   `json:"durationDays" db:"duration_days"`
}

// SubscriptionPlan is the price of one (plan type, duration) pair.
type SubscriptionPlan struct {
	ID         int64           `json:"id" db:"id"`
	PlanTypeID int64           `json:"planTypeId" db:"plan_type_id"`
	DurationID int64           `json:"durationId" db:"duration_id"`
	Price      decimal.Decimal `json:"price" db:"price"`

	PlanName     string `json:"planName,omitempty" db:"-"`
	DurationDays int    `json:"durationDays,omitempty" db:"-"`
}
