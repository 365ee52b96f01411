package subscription

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/shopspring/decimal"
)

type pair struct{ plan, duration int64 }

type fakeStore struct {
	users         map[int64]*models.User
	planTypes     map[int64]models.PlanType
	durations     map[int64]models.SubscriptionDuration
	prices        map[pair]decimal.Decimal
	subs          map[int64]*models.Subscription
	payments      []models.PaymentRecord
	notifications []models.Notification
	nextID        int64
	locked        []int64
	failNotify    error
}

func newFakeStore() *fakeStore {
	f := &fakeStore{
		users:     map[int64]*models.User{},
		planTypes: map[int64]models.PlanType{},
		durations: map[int64]models.SubscriptionDuration{},
		prices:    map[pair]decimal.Decimal{},
		subs:      map[int64]*models.Subscription{},
		nextID:    100,
	}
	f.planTypes[1] = models.PlanType{ID: 1, Name: "Basic", MaxProductsPerDay: 1, MaxProductViewsPerDay: 5}
	f.planTypes[2] = models.PlanType{ID: 2, Name: "Standard", MaxProductsPerDay: 3, MaxProductViewsPerDay: 20}
	f.planTypes[3] = models.PlanType{ID: 3, Name: "Premium", MaxProductsPerDay: 10}
	f.durations[1] = models.SubscriptionDuration{ID: 1, DurationDays: 30}
	f.durations[2] = models.SubscriptionDuration{ID: 2, DurationDays: 90}
	f.prices[pair{2, 1}] = decimal.RequireFromString("29.00")
	f.prices[pair{3, 1}] = decimal.RequireFromString("59.00")
	f.users[1] = &models.User{ID: 1, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", IsActive: true}
	return f
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// tx runs fn against a copy of the subscriptions and keeps it only when fn
// succeeds, so tests can observe rollbacks.
func (f *fakeStore) tx(_ context.Context, fn func(Store) error) error {
	subs := make(map[int64]*models.Subscription, len(f.subs))
	for id, s := range f.subs {
		cp := *s
		subs[id] = &cp
	}
	payments := append([]models.PaymentRecord(nil), f.payments...)
	notifications := append([]models.Notification(nil), f.notifications...)

	if err := fn(f); err != nil {
		f.subs, f.payments, f.notifications = subs, payments, notifications
		return err
	}
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListPlanTypes(context.Context) ([]models.PlanType, error) {
	var out []models.PlanType
	for _, p := range f.planTypes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetPlanType(_ context.Context, id int64) (*models.PlanType, error) {
	p, ok := f.planTypes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) CreatePlanType(_ context.Context, p *models.PlanType) error {
	p.ID = f.id()
	f.planTypes[p.ID] = *p
	return nil
}

func (f *fakeStore) ListDurations(context.Context) ([]models.SubscriptionDuration, error) {
	var out []models.SubscriptionDuration
	for _, d := range f.durations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DurationDays < out[j].DurationDays })
	return out, nil
}

func (f *fakeStore) GetDuration(_ context.Context, id int64) (*models.SubscriptionDuration, error) {
	d, ok := f.durations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (f *fakeStore) CreateDuration(_ context.Context, d *models.SubscriptionDuration) error {
	d.ID = f.id()
	f.durations[d.ID] = *d
	return nil
}

func (f *fakeStore) ListPlans(context.Context) ([]models.SubscriptionPlan, error) {
	var out []models.SubscriptionPlan
	for k, price := range f.prices {
		out = append(out, models.SubscriptionPlan{PlanTypeID: k.plan, DurationID: k.duration, Price: price})
	}
	return out, nil
}

func (f *fakeStore) GetPlanPrice(_ context.Context, planTypeID, durationID int64) (decimal.Decimal, error) {
	p, ok := f.prices[pair{planTypeID, durationID}]
	if !ok {
		return decimal.Zero, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpsertPlan(_ context.Context, p *models.SubscriptionPlan) error {
	f.prices[pair{p.PlanTypeID, p.DurationID}] = p.Price
	p.ID = f.id()
	return nil
}

func (f *fakeStore) decorate(sub *models.Subscription) *models.Subscription {
	cp := *sub
	if u, ok := f.users[cp.UserID]; ok {
		cp.UserEmail = u.Email
		cp.UserName = u.FullName()
	}
	if cp.PlanID != nil {
		if p, ok := f.planTypes[*cp.PlanID]; ok {
			cp.Plan = &p
		}
	}
	return &cp
}

func (f *fakeStore) GetSubscription(_ context.Context, id int64) (*models.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.decorate(sub), nil
}

func (f *fakeStore) GetSubscriptionByUser(_ context.Context, userID int64) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.UserID == userID {
			return f.decorate(sub), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) LockSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	f.locked = append(f.locked, id)
	return f.GetSubscription(ctx, id)
}

func (f *fakeStore) CreateSubscription(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if existing, err := f.GetSubscriptionByUser(ctx, sub.UserID); err == nil {
		return existing, nil
	}
	cp := *sub
	cp.ID = f.id()
	f.subs[cp.ID] = &cp
	return f.decorate(&cp), nil
}

func (f *fakeStore) SetPendingRequest(_ context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal) error {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return store.ErrNotFound
	}
	sub.PendingPlanID, sub.PendingDurationID = &planID, &durationID
	sub.AmountPaid = amount
	sub.IsApproved = false
	return nil
}

func (f *fakeStore) ActivatePlan(_ context.Context, subscriptionID, planID, durationID int64, amount decimal.Decimal, start, end time.Time) error {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return store.ErrNotFound
	}
	sub.PlanID, sub.DurationID = &planID, &durationID
	sub.AmountPaid = amount
	sub.StartDate, sub.EndDate = start, &end
	sub.IsApproved = true
	sub.PendingPlanID, sub.PendingDurationID = nil, nil
	return nil
}

func (f *fakeStore) ClearPendingRequest(_ context.Context, subscriptionID int64) error {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return store.ErrNotFound
	}
	sub.PendingPlanID, sub.PendingDurationID = nil, nil
	sub.IsApproved = false
	return nil
}

func (f *fakeStore) SetExtraSlots(_ context.Context, subscriptionID int64, slots int) error {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return store.ErrNotFound
	}
	sub.ExtraSlots = slots
	return nil
}

func (f *fakeStore) ListSubscriptions(_ context.Context, pendingOnly bool) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if pendingOnly && !sub.HasPending() {
			continue
		}
		out = append(out, *f.decorate(sub))
	}
	return out, nil
}

func (f *fakeStore) CreatePaymentRecord(_ context.Context, r *models.PaymentRecord) error {
	r.ID = f.id()
	f.payments = append(f.payments, *r)
	return nil
}

func (f *fakeStore) LatestPaymentRecord(_ context.Context, subscriptionID int64) (*models.PaymentRecord, error) {
	for i := len(f.payments) - 1; i >= 0; i-- {
		if f.payments[i].SubscriptionID == subscriptionID {
			r := f.payments[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListPaymentRecords(_ context.Context, subscriptionID int64) ([]models.PaymentRecord, error) {
	var out []models.PaymentRecord
	for _, r := range f.payments {
		if r.SubscriptionID == subscriptionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) AddNotification(_ context.Context, userID int64, message, link string) error {
	if f.failNotify != nil {
		return f.failNotify
	}
	f.notifications = append(f.notifications, models.Notification{UserID: userID, Message: message, LinkURL: link})
	return nil
}

type recordingMailer struct {
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var errSMTPDown = errors.New("smtp down")
