package handlers

import (
	"context"
	"time"

	"github.com/01moynul/techxchange-golang/internal/catalog"
	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/identity"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/quota"
	"github.com/01moynul/techxchange-golang/internal/subscription"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) Register(ctx context.Context, in identity.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockIdentity) Login(ctx context.Context, address, password string) (string, *models.User, error) {
	args := m.Called(ctx, address, password)
	u, _ := args.Get(1).(*models.User)
	return args.String(0), u, args.Error(2)
}

func (m *mockIdentity) Logout(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockIdentity) Activate(ctx context.Context, ids []int64) (*identity.ActivationResult, error) {
	args := m.Called(ctx, ids)
	r, _ := args.Get(0).(*identity.ActivationResult)
	return r, args.Error(1)
}

func (m *mockIdentity) ForgotPassword(ctx context.Context, address string) error {
	return m.Called(ctx, address).Error(0)
}

func (m *mockIdentity) ResetPassword(ctx context.Context, uidb64, token, pw, confirm string) error {
	return m.Called(ctx, uidb64, token, pw, confirm).Error(0)
}

func (m *mockIdentity) ChangePassword(ctx context.Context, userID int64, current, pw, confirm string) error {
	return m.Called(ctx, userID, current, pw, confirm).Error(0)
}

func (m *mockIdentity) EscrowedPassword(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockIdentity) Profile(ctx context.Context, userID int64) (*models.User, *models.BusinessProfile, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	b, _ := args.Get(1).(*models.BusinessProfile)
	return u, b, args.Error(2)
}

func (m *mockIdentity) ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserRow, error) {
	args := m.Called(ctx, f)
	rows, _ := args.Get(0).([]models.UserRow)
	return rows, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Home(ctx context.Context) (*catalog.Home, error) {
	args := m.Called(ctx)
	h, _ := args.Get(0).(*catalog.Home)
	return h, args.Error(1)
}

func (m *mockCatalog) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Error(1)
}

func (m *mockCatalog) CreateProduct(ctx context.Context, userID int64, in catalog.CreateProductInput) (*models.Product, quota.Decision, error) {
	args := m.Called(ctx, userID, in)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Get(1).(quota.Decision), args.Error(2)
}

func (m *mockCatalog) ViewProduct(ctx context.Context, userID, productID int64) (*models.Product, quota.Decision, error) {
	args := m.Called(ctx, userID, productID)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Get(1).(quota.Decision), args.Error(2)
}

func (m *mockCatalog) RecentlyViewed(ctx context.Context, userID int64) ([]models.ViewedProduct, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]models.ViewedProduct)
	return v, args.Error(1)
}

func (m *mockCatalog) ProductsByOwner(ctx context.Context, userID int64) ([]models.Product, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Error(1)
}

func (m *mockCatalog) Viewers(ctx context.Context, ownerID int64) ([]models.ProductViewers, error) {
	args := m.Called(ctx, ownerID)
	v, _ := args.Get(0).([]models.ProductViewers)
	return v, args.Error(1)
}

func (m *mockCatalog) DeleteProduct(ctx context.Context, actor *models.User, productID int64) error {
	return m.Called(ctx, actor, productID).Error(0)
}

func (m *mockCatalog) UploadProfilePicture(ctx context.Context, userID int64, data []byte) (string, error) {
	args := m.Called(ctx, userID, data)
	return args.String(0), args.Error(1)
}

func (m *mockCatalog) ProfilePictureURL(u *models.User) string {
	return m.Called(u).String(0)
}

func (m *mockCatalog) Categories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	args := m.Called(ctx, activeOnly)
	c, _ := args.Get(0).([]models.Category)
	return c, args.Error(1)
}

func (m *mockCatalog) CreateCategory(ctx context.Context, adminID int64, in catalog.CreateCategoryInput) (*models.Category, error) {
	args := m.Called(ctx, adminID, in)
	c, _ := args.Get(0).(*models.Category)
	return c, args.Error(1)
}

func (m *mockCatalog) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalog) Banners(ctx context.Context, activeOnly bool) ([]models.PromotionBanner, error) {
	args := m.Called(ctx, activeOnly)
	b, _ := args.Get(0).([]models.PromotionBanner)
	return b, args.Error(1)
}

func (m *mockCatalog) CreateBanner(ctx context.Context, in catalog.CreateBannerInput) (*models.PromotionBanner, error) {
	args := m.Called(ctx, in)
	b, _ := args.Get(0).(*models.PromotionBanner)
	return b, args.Error(1)
}

func (m *mockCatalog) DeleteBanner(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalog) ViewedHistory(ctx context.Context, userID int64) ([]models.ViewedProduct, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).([]models.ViewedProduct)
	return v, args.Error(1)
}

type mockSubscriptions struct{ mock.Mock }

func (m *mockSubscriptions) Ensure(ctx context.Context, userID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) Price(ctx context.Context, planID, durationID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, planID, durationID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockSubscriptions) Options(ctx context.Context, userID int64) (*subscription.UpgradeOptions, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).(*subscription.UpgradeOptions)
	return o, args.Error(1)
}

func (m *mockSubscriptions) RequestUpgrade(ctx context.Context, userID, planID, durationID int64) (*models.Subscription, error) {
	args := m.Called(ctx, userID, planID, durationID)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) Approve(ctx context.Context, subscriptionID int64, in subscription.ApproveInput) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID, in)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) Reject(ctx context.Context, subscriptionID int64) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) SendInvoice(ctx context.Context, subscriptionID int64) (string, error) {
	args := m.Called(ctx, subscriptionID)
	return args.String(0), args.Error(1)
}

func (m *mockSubscriptions) List(ctx context.Context, pendingOnly bool) ([]models.Subscription, error) {
	args := m.Called(ctx, pendingOnly)
	s, _ := args.Get(0).([]models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) Payments(ctx context.Context, subscriptionID int64) ([]models.PaymentRecord, error) {
	args := m.Called(ctx, subscriptionID)
	p, _ := args.Get(0).([]models.PaymentRecord)
	return p, args.Error(1)
}

func (m *mockSubscriptions) SetExtraSlots(ctx context.Context, subscriptionID int64, slots int) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID, slots)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptions) PlanTypes(ctx context.Context) ([]models.PlanType, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]models.PlanType)
	return p, args.Error(1)
}

func (m *mockSubscriptions) Durations(ctx context.Context) ([]models.SubscriptionDuration, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).([]models.SubscriptionDuration)
	return d, args.Error(1)
}

func (m *mockSubscriptions) Plans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]models.SubscriptionPlan)
	return p, args.Error(1)
}

func (m *mockSubscriptions) CreatePlanType(ctx context.Context, p *models.PlanType) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockSubscriptions) CreateDuration(ctx context.Context, d *models.SubscriptionDuration) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockSubscriptions) SetPrice(ctx context.Context, planID, durationID int64, price decimal.Decimal) (*models.SubscriptionPlan, error) {
	args := m.Called(ctx, planID, durationID, price)
	p, _ := args.Get(0).(*models.SubscriptionPlan)
	return p, args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	args := m.Called(ctx, userID)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}

type mockStats struct{ mock.Mock }

func (m *mockStats) AdminStats(ctx context.Context, now time.Time) (*models.AdminStats, error) {
	args := m.Called(ctx, now)
	s, _ := args.Get(0).(*models.AdminStats)
	return s, args.Error(1)
}

type recordingMailer struct {
	sent []email.Message
}

func (r *recordingMailer) Send(_ context.Context, msg email.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}
