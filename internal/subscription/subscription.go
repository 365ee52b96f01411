// Package subscription runs the plan upgrade workflow: a user requests a
// plan and duration, an admin approves or rejects it after collecting the
// payment out of band.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/invoice"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownPlan      = errors.New("plan type not found")
	ErrUnknownDuration  = errors.New("subscription duration not found")
	ErrPlanUnavailable  = errors.New("selected plan and duration not available")
	ErrPaymentMissing   = errors.New("payment not received yet")
	ErrNoPendingRequest = errors.New("no pending upgrade request")
	ErrNoPayment        = errors.New("no payment recorded for this subscription")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrInvalidSlots     = errors.New("extra slots cannot be negative")
)

// NotAvailable is shown in the price matrix for undefined pairs.
const NotAvailable = "-"

// Store is what the workflow reads and writes.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	ListPlanTypes(ctx context.Context) ([]models.PlanType, error)
	GetPlanType(ctx context.Context, id int64) (*models.PlanType, error)
	CreatePlanType(ctx context.Context, p *models.PlanType) error
	ListDurations(ctx context.Context) ([]models.SubscriptionDuration, error)
	GetDuration(ctx context.Context, id int64) (*models.SubscriptionDuration, error)
	CreateDuration(ctx context.Context, d *models.SubscriptionDuration) error
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetPlanPrice(ctx context.Context, planTypeID, durationID int64) (decimal.Decimal, error)
	UpsertPlan(ctx context.Context, p *models.SubscriptionPlan) error

	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	GetSubscriptionByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	LockSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	SetPendingRequest(ctx context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal) error
	ActivatePlan(ctx context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal, start, end time.Time) error
	ClearPendingRequest(ctx context.Context, subscriptionID int64) error
	SetExtraSlots(ctx context.Context, subscriptionID int64, slots int) error
	ListSubscriptions(ctx context.Context, pendingOnly bool) ([]models.Subscription, error)

	CreatePaymentRecord(ctx context.Context, r *models.PaymentRecord) error
	LatestPaymentRecord(ctx context.Context, subscriptionID int64) (*models.PaymentRecord, error)
	ListPaymentRecords(ctx context.Context, subscriptionID int64) ([]models.PaymentRecord, error)

	AddNotification(ctx context.Context, userID int64, message, link string) error
}

// TxFunc runs fn with a Store bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// SQLTx adapts the MySQL store to TxFunc.
func SQLTx(st *store.Store) TxFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return st.WithTx(ctx, func(tx *store.Store) error { return fn(tx) })
	}
}

type Config struct {
	// BasePlanID is the plan every user starts on.
	BasePlanID int64
	// InvoiceOnApproval mails a PDF invoice with the approval email.
	InvoiceOnApproval bool
	// SellerName is printed on invoices.
	SellerName string
}

type Service struct {
	store  Store
	tx     TxFunc
	mailer email.Mailer
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

func New(st Store, tx TxFunc, mailer email.Mailer, logger *slog.Logger, cfg Config) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(Store) error) error { return fn(st) }
	}
	return &Service{store: st, tx: tx, mailer: mailer, logger: logger, cfg: cfg, now: time.Now}
}

// Ensure returns the user's subscription, creating it on the base plan
// (approved, no end date) on first access.
func (s *Service) Ensure(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := s.store.GetSubscriptionByUser(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	basePlan := s.cfg.BasePlanID
	sub, err = s.store.CreateSubscription(ctx, &models.Subscription{
		UserID:     userID,
		PlanID:     &basePlan,
		AmountPaid: decimal.Zero,
		StartDate:  s.now(),
		IsApproved: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// Price looks up the price of a (plan type, duration) pair.
func (s *Service) Price(ctx context.Context, planID, durationID int64) (decimal.Decimal, error) {
	if _, err := s.store.GetPlanType(ctx, planID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, ErrUnknownPlan
		}
		return decimal.Zero, err
	}
	if _, err := s.store.GetDuration(ctx, durationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, ErrUnknownDuration
		}
		return decimal.Zero, err
	}

	price, err := s.store.GetPlanPrice(ctx, planID, durationID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, ErrPlanUnavailable
	}
	return price, err
}

// UpgradeOptions is what the upgrade page shows.
type UpgradeOptions struct {
	Subscription  *models.Subscription          `json:"subscription"`
	IsActive      bool                          `json:"isActive"`
	RemainingDays any                           `json:"remainingDays"`
	PlanTypes     []models.PlanType             `json:"planTypes"`
	Durations     []models.SubscriptionDuration `json:"durations"`
	Prices        map[int64]map[int64]string    `json:"prices"`
}

// Options lists the plans a user can upgrade to with a plan x duration
// price matrix. Undefined pairs show NotAvailable.
func (s *Service) Options(ctx context.Context, userID int64) (*UpgradeOptions, error) {
	sub, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	planTypes, err := s.store.ListPlanTypes(ctx)
	if err != nil {
		return nil, err
	}
	durations, err := s.store.ListDurations(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	opts := &UpgradeOptions{
		Subscription:  sub,
		IsActive:      sub.IsActive(now),
		RemainingDays: sub.RemainingLabel(now),
		PlanTypes:     []models.PlanType{},
		Durations:     durations,
		Prices:        map[int64]map[int64]string{},
	}
	for _, pt := range planTypes {
		if pt.ID == s.cfg.BasePlanID {
			continue
		}
		opts.PlanTypes = append(opts.PlanTypes, pt)
		row := make(map[int64]string, len(durations))
		for _, d := range durations {
			row[d.ID] = NotAvailable
		}
		opts.Prices[pt.ID] = row
	}
	for _, p := range plans {
		if row, ok := opts.Prices[p.PlanTypeID]; ok {
			row[p.DurationID] = p.Price.StringFixed(2)
		}
	}
	return opts, nil
}

// RequestUpgrade records a pending upgrade, replacing any earlier request
// that was never resolved. amount_paid is set to the plan price.
func (s *Service) RequestUpgrade(ctx context.Context, userID, planID, durationID int64) (*models.Subscription, error) {
	price, err := s.Price(ctx, planID, durationID)
	if err != nil {
		return nil, err
	}
	sub, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPendingRequest(ctx, sub.ID, planID, durationID, price); err != nil {
		return nil, fmt.Errorf("save upgrade request: %w", err)
	}
	s.logger.Info("subscription upgrade requested", "user_id", userID, "plan_id", planID, "duration_id", durationID)
	return s.store.GetSubscription(ctx, sub.ID)
}

// ApproveInput carries what the admin confirmed about the payment.
type ApproveInput struct {
	// AmountPaid overrides the stored amount when set.
	AmountPaid *decimal.Decimal
	Method     string
}

// Approve activates the pending plan. The state change, payment record and
// in-app notification commit together; the email (and invoice) are sent
// afterwards and failures there are only logged.
func (s *Service) Approve(ctx context.Context, subscriptionID int64, in ApproveInput) (*models.Subscription, error) {
	method := in.Method
	if method == "" {
		method = "manual"
	}

	var (
		record *models.PaymentRecord
		end    time.Time
	)
	err := s.tx(ctx, func(st Store) error {
		sub, err := st.LockSubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}

		amount := sub.AmountPaid
		if in.AmountPaid != nil {
			amount = *in.AmountPaid
		}
		if !amount.IsPositive() {
			return ErrPaymentMissing
		}
		if !sub.HasPending() {
			return ErrNoPendingRequest
		}

		planID, durationID := *sub.PendingPlanID, *sub.PendingDurationID
		price, err := st.GetPlanPrice(ctx, planID, durationID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlanUnavailable
		}
		if err != nil {
			return err
		}
		plan, err := st.GetPlanType(ctx, planID)
		if err != nil {
			return fmt.Errorf("load plan type: %w", err)
		}
		duration, err := st.GetDuration(ctx, durationID)
		if err != nil {
			return fmt.Errorf("load duration: %w", err)
		}

		start := s.now()
		end = start.AddDate(0, 0, duration.DurationDays)
		if err := st.ActivatePlan(ctx, sub.ID, planID, durationID, amount, start, end); err != nil {
			return err
		}

		record = &models.PaymentRecord{
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			PlanTypeID:     planID,
			DurationID:     durationID,
			PlanName:       plan.Name,
			DurationDays:   duration.DurationDays,
			Price:          price,
			AmountPaid:     amount,
			Method:         method,
			CreatedAt:      start,
		}
		if err := st.CreatePaymentRecord(ctx, record); err != nil {
			return err
		}

		msg := fmt.Sprintf("Your subscription has been upgraded to %s for %d days.", plan.Name, duration.DurationDays)
		return st.AddNotification(ctx, sub.UserID, msg, "/subscription/upgrade")
	})
	if err != nil {
		return nil, err
	}

	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription approved", "subscription_id", sub.ID, "user_id", sub.UserID, "plan", record.PlanName, "amount", record.AmountPaid.String())

	msg := email.SubscriptionApproved(sub.UserEmail, sub.UserName, record.PlanName, record.DurationDays, record.Price, end)
	if s.cfg.InvoiceOnApproval {
		if pdf, number, err := s.renderInvoice(sub, record); err != nil {
			s.logger.Error("failed to render invoice", "subscription_id", sub.ID, "error", err)
		} else {
			msg.Attachments = append(msg.Attachments, email.Invoice(sub.UserEmail, sub.UserName, number, pdf).Attachments...)
		}
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send approval email", "subscription_id", sub.ID, "error", err)
	}
	return sub, nil
}

// Reject drops the pending request. The active plan stays as it was.
func (s *Service) Reject(ctx context.Context, subscriptionID int64) (*models.Subscription, error) {
	err := s.tx(ctx, func(st Store) error {
		sub, err := st.LockSubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.PendingPlanID == nil {
			return ErrNoPendingRequest
		}
		if err := st.ClearPendingRequest(ctx, sub.ID); err != nil {
			return err
		}
		return st.AddNotification(ctx, sub.UserID, "Your subscription upgrade request was rejected.", "/subscription/upgrade")
	})
	if err != nil {
		return nil, err
	}

	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription rejected", "subscription_id", sub.ID, "user_id", sub.UserID)

	if err := s.mailer.Send(ctx, email.SubscriptionRejected(sub.UserEmail, sub.UserName)); err != nil {
		s.logger.Error("failed to send rejection email", "subscription_id", sub.ID, "error", err)
	}
	return sub, nil
}

// SetExtraSlots records the product slots bought on top of the plan cap.
func (s *Service) SetExtraSlots(ctx context.Context, subscriptionID int64, slots int) (*models.Subscription, error) {
	if slots < 0 {
		return nil, ErrInvalidSlots
	}
	if err := s.store.SetExtraSlots(ctx, subscriptionID, slots); err != nil {
		return nil, err
	}
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("extra slots updated", "subscription_id", sub.ID, "user_id", sub.UserID, "extra_slots", slots)
	return sub, nil
}

// SendInvoice mails the invoice for the latest payment. Unlike the email
// sent on approval, failures are returned to the caller.
func (s *Service) SendInvoice(ctx context.Context, subscriptionID int64) (string, error) {
	sub, err := s.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return "", err
	}
	record, err := s.store.LatestPaymentRecord(ctx, subscriptionID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoPayment
	}
	if err != nil {
		return "", err
	}

	pdf, number, err := s.renderInvoice(sub, record)
	if err != nil {
		return "", err
	}
	if err := s.mailer.Send(ctx, email.Invoice(sub.UserEmail, sub.UserName, number, pdf)); err != nil {
		return "", fmt.Errorf("send invoice: %w", err)
	}
	return number, nil
}

func (s *Service) renderInvoice(sub *models.Subscription, record *models.PaymentRecord) ([]byte, string, error) {
	inv := invoice.Invoice{
		PaymentID:    record.ID,
		IssuedAt:     record.CreatedAt,
		SellerName:   s.cfg.SellerName,
		CustomerName: sub.UserName,
		Email:        sub.UserEmail,
		PlanName:     record.PlanName,
		DurationDays: record.DurationDays,
		Price:        record.Price,
		AmountPaid:   record.AmountPaid,
		Method:       record.Method,
		ValidUntil:   sub.EndDate,
	}
	pdf, err := invoice.Render(inv)
	if err != nil {
		return nil, "", err
	}
	return pdf, inv.Number(), nil
}

// List returns subscriptions for the admin view.
func (s *Service) List(ctx context.Context, pendingOnly bool) ([]models.Subscription, error) {
	return s.store.ListSubscriptions(ctx, pendingOnly)
}

func (s *Service) Payments(ctx context.Context, subscriptionID int64) ([]models.PaymentRecord, error) {
	if _, err := s.store.GetSubscription(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentRecords(ctx, subscriptionID)
}
