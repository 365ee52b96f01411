package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/shopspring/decimal"
)

func (s *Service) PlanTypes(ctx context.Context) ([]models.PlanType, error) {
	return s.store.ListPlanTypes(ctx)
}

func (s *Service) Durations(ctx context.Context) ([]models.SubscriptionDuration, error) {
	return s.store.ListDurations(ctx)
}

func (s *Service) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.store.ListPlans(ctx)
}

func (s *Service) CreatePlanType(ctx context.Context, p *models.PlanType) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	if p.MaxProductsPerDay < 0 || p.BaseSlots < 0 || p.MaxProductViewsPerDay < 0 {
		return errors.New("plan limits cannot be negative")
	}
	return s.store.CreatePlanType(ctx, p)
}

func (s *Service) CreateDuration(ctx context.Context, d *models.SubscriptionDuration) error {
	if d.DurationDays <= 0 {
		return errors.New("duration must be at least one day")
	}
	return s.store.CreateDuration(ctx, d)
}

// SetPrice defines or updates the price of a (plan type, duration) pair.
func (s *Service) SetPrice(ctx context.Context, planID, durationID int64, price decimal.Decimal) (*models.SubscriptionPlan, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	plan, err := s.store.GetPlanType(ctx, planID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownPlan
	}
	if err != nil {
		return nil, err
	}
	duration, err := s.store.GetDuration(ctx, durationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownDuration
	}
	if err != nil {
		return nil, err
	}

	p := &models.SubscriptionPlan{
		PlanTypeID:   planID,
		DurationID:   durationID,
		Price:        price,
		PlanName:     plan.Name,
		DurationDays: duration.DurationDays,
	}
	if err := s.store.UpsertPlan(ctx, p); err != nil {
		return nil, fmt.Errorf("save plan price: %w", err)
	}
	return p, nil
}
