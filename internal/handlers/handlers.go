package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/01moynul/techxchange-golang/internal/catalog"
	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/identity"
	"github.com/01moynul/techxchange-golang/internal/middleware"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/quota"
	"github.com/01moynul/techxchange-golang/internal/storage"
	"github.com/01moynul/techxchange-golang/internal/subscription"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// IdentityService is implemented by *identity.Service.
type IdentityService interface {
	Register(ctx context.Context, in identity.RegisterInput) (*models.User, error)
	Login(ctx context.Context, address, password string) (string, *models.User, error)
	Logout(ctx context.Context, userID int64) error
	Activate(ctx context.Context, ids []int64) (*identity.ActivationResult, error)
	ForgotPassword(ctx context.Context, address string) error
	ResetPassword(ctx context.Context, uidb64, token, pw, confirm string) error
	ChangePassword(ctx context.Context, userID int64, current, pw, confirm string) error
	EscrowedPassword(ctx context.Context, userID int64) (string, error)
	Profile(ctx context.Context, userID int64) (*models.User, *models.BusinessProfile, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserRow, error)
}

// CatalogService is implemented by *catalog.Service.
type CatalogService interface {
	Home(ctx context.Context) (*catalog.Home, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	CreateProduct(ctx context.Context, userID int64, in catalog.CreateProductInput) (*models.Product, quota.Decision, error)
	ViewProduct(ctx context.Context, userID, productID int64) (*models.Product, quota.Decision, error)
	RecentlyViewed(ctx context.Context, userID int64) ([]models.ViewedProduct, error)
	ViewedHistory(ctx context.Context, userID int64) ([]models.ViewedProduct, error)
	ProductsByOwner(ctx context.Context, userID int64) ([]models.Product, error)
	Viewers(ctx context.Context, ownerID int64) ([]models.ProductViewers, error)
	DeleteProduct(ctx context.Context, actor *models.User, productID int64) error
	UploadProfilePicture(ctx context.Context, userID int64, data []byte) (string, error)
	ProfilePictureURL(u *models.User) string
	Categories(ctx context.Context, activeOnly bool) ([]models.Category, error)
	CreateCategory(ctx context.Context, adminID int64, in catalog.CreateCategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	Banners(ctx context.Context, activeOnly bool) ([]models.PromotionBanner, error)
	CreateBanner(ctx context.Context, in catalog.CreateBannerInput) (*models.PromotionBanner, error)
	DeleteBanner(ctx context.Context, id int64) error
}

// SubscriptionService is implemented by *subscription.Service.
type SubscriptionService interface {
	Ensure(ctx context.Context, userID int64) (*models.Subscription, error)
	Price(ctx context.Context, planID, durationID int64) (decimal.Decimal, error)
	Options(ctx context.Context, userID int64) (*subscription.UpgradeOptions, error)
	RequestUpgrade(ctx context.Context, userID, planID, durationID int64) (*models.Subscription, error)
	Approve(ctx context.Context, subscriptionID int64, in subscription.ApproveInput) (*models.Subscription, error)
	Reject(ctx context.Context, subscriptionID int64) (*models.Subscription, error)
	SendInvoice(ctx context.Context, subscriptionID int64) (string, error)
	List(ctx context.Context, pendingOnly bool) ([]models.Subscription, error)
	Payments(ctx context.Context, subscriptionID int64) ([]models.PaymentRecord, error)
	SetExtraSlots(ctx context.Context, subscriptionID int64, slots int) (*models.Subscription, error)
	PlanTypes(ctx context.Context) ([]models.PlanType, error)
	Durations(ctx context.Context) ([]models.SubscriptionDuration, error)
	Plans(ctx context.Context) ([]models.SubscriptionPlan, error)
	CreatePlanType(ctx context.Context, p *models.PlanType) error
	CreateDuration(ctx context.Context, d *models.SubscriptionDuration) error
	SetPrice(ctx context.Context, planID, durationID int64, price decimal.Decimal) (*models.SubscriptionPlan, error)
}

// NotificationStore is implemented by *store.Store.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
}

// StatsStore is implemented by *store.Store.
type StatsStore interface {
	AdminStats(ctx context.Context, now time.Time) (*models.AdminStats, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Identity      IdentityService
	Catalog       CatalogService
	Subscriptions SubscriptionService
	Notifications NotificationStore
	Stats         StatsStore
	Mailer        email.Mailer
	Logger        *slog.Logger

	// AdminEmail receives user exports requested with ?email=1.
	AdminEmail string
}

// currentUser returns the user set by AuthMiddleware. Routes using it are
// always behind the middleware.
func currentUser(c *gin.Context) *models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// paramID parses a positive integer path parameter, answering 400 when it
// is malformed.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", name)})
		return 0, false
	}
	return id, true
}

// serverError logs err and answers 500 with msg.
func (h *Handlers) serverError(c *gin.Context, msg string, err error) {
	h.Logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > storage.MaxImageSize {
		return nil, storage.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
}

// formFiles reads every file uploaded under field. A missing field yields
// no files.
func formFiles(c *gin.Context, field string) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	var out [][]byte
	for _, fh := range form.File[field] {
		data, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// formFile reads a single optional upload.
func formFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return readFile(fh)
}

// isImageError reports whether err is an upload validation failure.
func isImageError(err error) bool {
	return errors.Is(err, storage.ErrEmptyFile) || errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrNotAnImage)
}
