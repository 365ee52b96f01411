package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/shopspring/decimal"
)

//
// --- Reference data: plan types, durations, prices ---
//

func (s *Store) ListPlanTypes(ctx context.Context) ([]models.PlanType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, max_products_per_day, base_slots, max_product_views_per_day
		FROM plan_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list plan types: %w", err)
	}
	defer rows.Close()

	var plans []models.PlanType
	for rows.Next() {
		var p models.PlanType
		if err := rows.Scan(&p.ID, &p.Name, &p.MaxProductsPerDay, &p.BaseSlots, &p.MaxProductViewsPerDay); err != nil {
			return nil, fmt.Errorf("scan plan type: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *Store) GetPlanType(ctx context.Context, id int64) (*models.PlanType, error) {
	var p models.PlanType
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, max_products_per_day, base_slots, max_product_views_per_day
		FROM plan_types WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.MaxProductsPerDay, &p.BaseSlots, &p.MaxProductViewsPerDay)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) CreatePlanType(ctx context.Context, p *models.PlanType) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_types (name, max_products_per_day, base_slots, max_product_views_per_day)
		VALUES (?, ?, ?, ?)`, p.Name, p.MaxProductsPerDay, p.BaseSlots, p.MaxProductViewsPerDay)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert plan type: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) ListDurations(ctx context.Context) ([]models.SubscriptionDuration, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, duration_days FROM subscription_durations ORDER BY duration_days")
	if err != nil {
		return nil, fmt.Errorf("list durations: %w", err)
	}
	defer rows.Close()

	var durations []models.SubscriptionDuration
	for rows.Next() {
		var d models.SubscriptionDuration
		if err := rows.Scan(&d.ID, &d.DurationDays); err != nil {
			return nil, fmt.Errorf("scan duration: %w", err)
		}
		durations = append(durations, d)
	}
	return durations, rows.Err()
}

func (s *Store) GetDuration(ctx context.Context, id int64) (*models.SubscriptionDuration, error) {
	var d models.SubscriptionDuration
	err := s.db.QueryRowContext(ctx, "SELECT id, duration_days FROM subscription_durations WHERE id = ?", id).
		Scan(&d.ID, &d.DurationDays)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Store) CreateDuration(ctx context.Context, d *models.SubscriptionDuration) error {
	res, err := s.db.ExecContext(ctx, "INSERT INTO subscription_durations (duration_days) VALUES (?)", d.DurationDays)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert duration: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Store) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sp.id, sp.plan_type_id, sp.duration_id, sp.price, pt.name, d.duration_days
		FROM subscription_plans sp
		JOIN plan_types pt ON pt.id = sp.plan_type_id
		JOIN subscription_durations d ON d.id = sp.duration_id
		ORDER BY sp.plan_type_id, d.duration_days`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.SubscriptionPlan
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.PlanTypeID, &p.DurationID, &p.Price, &p.PlanName, &p.DurationDays); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlanPrice returns ErrNotFound when no price is defined for the pair.
func (s *Store) GetPlanPrice(ctx context.Context, planTypeID, durationID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		"SELECT price FROM subscription_plans WHERE plan_type_id = ? AND duration_id = ?",
		planTypeID, durationID).Scan(&price)
	if err != nil {
		return decimal.Zero, notFound(err)
	}
	return price, nil
}

// UpsertPlan sets the price of a (plan type, duration) pair.
func (s *Store) UpsertPlan(ctx context.Context, p *models.SubscriptionPlan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription_plans (plan_type_id, duration_id, price) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE price = VALUES(price)`, p.PlanTypeID, p.DurationID, p.Price)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return s.db.QueryRowContext(ctx,
		"SELECT id FROM subscription_plans WHERE plan_type_id = ? AND duration_id = ?",
		p.PlanTypeID, p.DurationID).Scan(&p.ID)
}

//
// --- Subscriptions ---
//

const subscriptionSelect = `
	SELECT s.id, s.user_id, s.plan_id, s.duration_id, s.amount_paid, s.extra_slots,
	       s.start_date, s.end_date, s.is_approved, s.pending_plan_id, s.pending_duration_id,
	       s.created_at, s.updated_at,
	       pt.name, pt.max_products_per_day, pt.base_slots, pt.max_product_views_per_day,
	       d.duration_days,
	       ppt.name, ppt.max_products_per_day, ppt.base_slots, ppt.max_product_views_per_day,
	       pd.duration_days,
	       u.email, u.first_name, u.last_name
	FROM subscriptions s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN plan_types pt ON pt.id = s.plan_id
	LEFT JOIN subscription_durations d ON d.id = s.duration_id
	LEFT JOIN plan_types ppt ON ppt.id = s.pending_plan_id
	LEFT JOIN subscription_durations pd ON pd.id = s.pending_duration_id`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub                                  models.Subscription
		planID, durationID                   sql.NullInt64
		pendingPlanID, pendingDurationID     sql.NullInt64
		endDate                              sql.NullTime
		planName, pendingPlanName            sql.NullString
		planMax, planSlots, planViews        sql.NullInt64
		pendingMax, pendingSlots, pendingVws sql.NullInt64
		days, pendingDays                    sql.NullInt64
		first, last                          string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &planID, &durationID, &sub.AmountPaid, &sub.ExtraSlots,
		&sub.StartDate, &endDate, &sub.IsApproved, &pendingPlanID, &pendingDurationID,
		&sub.CreatedAt, &sub.UpdatedAt,
		&planName, &planMax, &planSlots, &planViews,
		&days,
		&pendingPlanName, &pendingMax, &pendingSlots, &pendingVws,
		&pendingDays,
		&sub.UserEmail, &first, &last,
	)
	if err != nil {
		return nil, err
	}
	sub.PlanID = int64Ptr(planID)
	sub.DurationID = int64Ptr(durationID)
	sub.PendingPlanID = int64Ptr(pendingPlanID)
	sub.PendingDurationID = int64Ptr(pendingDurationID)
	sub.EndDate = timePtr(endDate)
	sub.UserName = (&models.User{FirstName: first, LastName: last}).FullName()

	if planID.Valid && planName.Valid {
		sub.Plan = &models.PlanType{ID: planID.Int64, Name: planName.String,
			MaxProductsPerDay: int(planMax.Int64), BaseSlots: int(planSlots.Int64), MaxProductViewsPerDay: int(planViews.Int64)}
	}
	if durationID.Valid && days.Valid {
		sub.Duration = &models.SubscriptionDuration{ID: durationID.Int64, DurationDays: int(days.Int64)}
	}
	if pendingPlanID.Valid && pendingPlanName.Valid {
		sub.PendingPlan = &models.PlanType{ID: pendingPlanID.Int64, Name: pendingPlanName.String,
			MaxProductsPerDay: int(pendingMax.Int64), BaseSlots: int(pendingSlots.Int64), MaxProductViewsPerDay: int(pendingVws.Int64)}
	}
	if pendingDurationID.Valid && pendingDays.Valid {
		sub.PendingDuration = &models.SubscriptionDuration{ID: pendingDurationID.Int64, DurationDays: int(pendingDays.Int64)}
	}
	return &sub, nil
}

func (s *Store) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, subscriptionSelect+" WHERE s.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return sub, nil
}

func (s *Store) GetSubscriptionByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, subscriptionSelect+" WHERE s.user_id = ?", userID))
	if err != nil {
		return nil, notFound(err)
	}
	return sub, nil
}

// LockSubscription reloads the subscription while holding its row lock.
// It must run inside WithTx.
func (s *Store) LockSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	if s.tx == nil {
		return nil, fmt.Errorf("lock subscription %d: not in a transaction", id)
	}
	var locked int64
	if err := s.db.QueryRowContext(ctx, "SELECT id FROM subscriptions WHERE id = ? FOR UPDATE", id).Scan(&locked); err != nil {
		return nil, notFound(err)
	}
	return s.GetSubscription(ctx, id)
}

// CreateSubscription inserts sub unless the user already has one; either
// way the stored row is returned.
func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if sub.StartDate.IsZero() {
		sub.StartDate = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan_id, duration_id, amount_paid, extra_slots, start_date, end_date, is_approved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
		sub.UserID, sub.PlanID, sub.DurationID, sub.AmountPaid, sub.ExtraSlots, sub.StartDate, sub.EndDate, sub.IsApproved)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return s.GetSubscriptionByUser(ctx, sub.UserID)
}

// SetPendingRequest records an upgrade request, replacing any earlier one.
func (s *Store) SetPendingRequest(ctx context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET pending_plan_id = ?, pending_duration_id = ?, amount_paid = ?, is_approved = FALSE
		WHERE id = ?`, planID, durationID, amount, subscriptionID)
	if err != nil {
		return fmt.Errorf("set pending request: %w", err)
	}
	return checkAffected(res)
}

// ActivatePlan makes planID/durationID the active plan for [start, end)
// and clears the pending request.
func (s *Store) ActivatePlan(ctx context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal, start, end time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan_id = ?, duration_id = ?, amount_paid = ?, start_date = ?, end_date = ?,
		    is_approved = TRUE, pending_plan_id = NULL, pending_duration_id = NULL
		WHERE id = ?`, planID, durationID, amount, start, end, subscriptionID)
	if err != nil {
		return fmt.Errorf("activate plan: %w", err)
	}
	return checkAffected(res)
}

// ClearPendingRequest drops the pending request and marks the
// subscription not approved. The active plan is untouched.
func (s *Store) ClearPendingRequest(ctx context.Context, subscriptionID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET pending_plan_id = NULL, pending_duration_id = NULL, is_approved = FALSE
		WHERE id = ?`, subscriptionID)
	if err != nil {
		return fmt.Errorf("clear pending request: %w", err)
	}
	return checkAffected(res)
}

// SetExtraSlots sets the purchased product slots added to the plan cap.
func (s *Store) SetExtraSlots(ctx context.Context, subscriptionID int64, slots int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE subscriptions SET extra_slots = ? WHERE id = ?", slots, subscriptionID)
	if err != nil {
		return fmt.Errorf("set extra slots: %w", err)
	}
	return checkAffected(res)
}

// ListSubscriptions returns subscriptions by last update; pendingOnly keeps
// the rows waiting for review.
func (s *Store) ListSubscriptions(ctx context.Context, pendingOnly bool) ([]models.Subscription, error) {
	query := subscriptionSelect
	if pendingOnly {
		query += " WHERE s.pending_plan_id IS NOT NULL AND s.pending_duration_id IS NOT NULL"
	}
	query += " ORDER BY s.updated_at DESC, s.id DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

//
// --- Payment records ---
//

func (s *Store) CreatePaymentRecord(ctx context.Context, r *models.PaymentRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records
		(subscription_id, user_id, plan_type_id, duration_id, plan_name, duration_days, price, amount_paid, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SubscriptionID, r.UserID, r.PlanTypeID, r.DurationID, r.PlanName, r.DurationDays,
		r.Price, r.AmountPaid, r.Method, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

const paymentColumns = `id, subscription_id, user_id, plan_type_id, duration_id, plan_name, duration_days, price, amount_paid, method, created_at`

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	var r models.PaymentRecord
	err := row.Scan(&r.ID, &r.SubscriptionID, &r.UserID, &r.PlanTypeID, &r.DurationID,
		&r.PlanName, &r.DurationDays, &r.Price, &r.AmountPaid, &r.Method, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) LatestPaymentRecord(ctx context.Context, subscriptionID int64) (*models.PaymentRecord, error) {
	r, err := scanPayment(s.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payment_records
		WHERE subscription_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, subscriptionID))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *Store) ListPaymentRecords(ctx context.Context, subscriptionID int64) ([]models.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payment_records
		WHERE subscription_id = ?
		ORDER BY created_at DESC, id DESC`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	records := []models.PaymentRecord{}
	for rows.Next() {
		r, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
