// Package catalog manages products, categories, promotion banners and the
// images stored for them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/quota"
	"github.com/01moynul/techxchange-golang/internal/storage"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/gosimple/slug"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrUnknownCategory = errors.New("category does not exist")
	ErrForbidden       = errors.New("you are not allowed to modify this product")
	ErrQuotaExceeded   = errors.New("daily quota exceeded")
)

// HomeBannerLimit is how many active banners the home page shows.
const HomeBannerLimit = 4

// Store is what the catalog reads and writes. It includes the quota reads
// so product creation and views can run their quota check in the same
// transaction.
type Store interface {
	quota.Store

	ProductSlugExists(ctx context.Context, slug string) (bool, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	ListProductsByOwner(ctx context.Context, userID int64) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ViewedProducts(ctx context.Context, userID int64, since time.Time) ([]models.ViewedProduct, error)
	ProductViewers(ctx context.Context, ownerID int64) ([]models.ProductViewers, error)

	CategorySlugExists(ctx context.Context, slug string) (bool, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context, activeOnly, homeOnly bool) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateBanner(ctx context.Context, b *models.PromotionBanner) error
	GetBanner(ctx context.Context, id int64) (*models.PromotionBanner, error)
	ListBanners(ctx context.Context, activeOnly bool, limit int) ([]models.PromotionBanner, error)
	DeleteBanner(ctx context.Context, id int64) error

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetProfilePicture(ctx context.Context, userID int64, key *string) error
}

// TxFunc runs fn with a Store bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// SQLTx adapts the MySQL store to TxFunc.
func SQLTx(st *store.Store) TxFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return st.WithTx(ctx, func(tx *store.Store) error { return fn(tx) })
	}
}

type Service struct {
	store   Store
	tx      TxFunc
	quota   *quota.Evaluator
	objects storage.ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

func New(st Store, tx TxFunc, objects storage.ObjectStore, logger *slog.Logger) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(Store) error) error { return fn(st) }
	}
	return &Service{
		store:   st,
		tx:      tx,
		quota:   quota.New(st, nil),
		objects: objects,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for quota windows.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.quota = s.quota.WithClock(now)
}

// UniqueSlug slugifies name and appends -1, -2, ... until exists reports
// the candidate as free.
func UniqueSlug(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "item"
	}
	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

// deleteObject removes key from the object store, logging failures.
func (s *Service) deleteObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete stored object", "key", key, "error", err)
	}
}

//
// --- Products ---
//

// CreateProductInput carries a new listing. Images are raw file contents;
// the first one becomes the default image.
type CreateProductInput struct {
	Name          string
	CategoryID    int64
	Brand         string
	Specification string
	Description   string
	Images        [][]byte
}

func (s *Service) withImageURLs(p *models.Product) {
	for i := range p.Images {
		p.Images[i].URL = s.objects.URL(p.Images[i].ObjectKey)
	}
}

// CreateProduct checks the daily product quota and stores the product
// under the user's row lock. A denial returns ErrQuotaExceeded together
// with the decision.
func (s *Service) CreateProduct(ctx context.Context, userID int64, in CreateProductInput) (*models.Product, quota.Decision, error) {
	// 1. --- Validate input before taking the lock ---
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, quota.Decision{}, ErrNameRequired
	}
	exts := make([]string, len(in.Images))
	for i, data := range in.Images {
		ext, err := storage.CheckImage(data)
		if err != nil {
			return nil, quota.Decision{}, fmt.Errorf("image %d: %w", i+1, err)
		}
		exts[i] = ext
	}

	var (
		p        *models.Product
		decision quota.Decision
		uploaded []string
	)
	err := s.tx(ctx, func(st Store) error {
		// 2. --- Quota ---
		q := s.quota.With(st)
		if err := q.Lock(ctx, userID); err != nil {
			return err
		}
		var err error
		decision, err = q.CanCreateProduct(ctx, userID)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return ErrQuotaExceeded
		}

		// 3. --- Category and slug ---
		if _, err := st.GetCategory(ctx, in.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownCategory
			}
			return err
		}
		productSlug, err := UniqueSlug(ctx, name, st.ProductSlugExists)
		if err != nil {
			return err
		}

		// 4. --- Upload images ---
		now := s.now()
		p = &models.Product{
			Name:          name,
			CategoryID:    in.CategoryID,
			Slug:          productSlug,
			Brand:         strings.TrimSpace(in.Brand),
			Specification: strings.TrimSpace(in.Specification),
			Description:   strings.TrimSpace(in.Description),
			IsActive:      true,
			CreatedBy:     userID,
			CreatedAt:     now,
			Images:        []models.ProductImage{},
		}
		for i, data := range in.Images {
			key := storage.ProductImageKey(productSlug, exts[i])
			if err := s.objects.Put(ctx, key, data); err != nil {
				return err
			}
			uploaded = append(uploaded, key)
			p.Images = append(p.Images, models.ProductImage{
				ObjectKey: key,
				IsDefault: i == 0,
				CreatedAt: now,
			})
		}

		// 5. --- Insert ---
		return st.CreateProduct(ctx, p)
	})
	if err != nil {
		for _, key := range uploaded {
			s.deleteObject(ctx, key)
		}
		return nil, decision, err
	}

	s.withImageURLs(p)
	s.logger.Info("product created", "product_id", p.ID, "user_id", userID, "images", len(p.Images))
	return p, decision, nil
}

// ViewProduct applies the daily view quota and returns the product when
// the view is allowed. A denial returns ErrQuotaExceeded with the decision.
func (s *Service) ViewProduct(ctx context.Context, userID, productID int64) (*models.Product, quota.Decision, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, quota.Decision{}, err
	}
	if !p.IsActive {
		return nil, quota.Decision{}, store.ErrNotFound
	}

	var decision quota.Decision
	err = s.tx(ctx, func(st Store) error {
		decision, err = s.quota.With(st).ViewProduct(ctx, userID, productID)
		return err
	})
	if err != nil {
		return nil, decision, err
	}
	if !decision.Allowed {
		return nil, decision, ErrQuotaExceeded
	}

	s.withImageURLs(p)
	return p, decision, nil
}

// RecentlyViewed lists the products the user opened in the quota window.
func (s *Service) RecentlyViewed(ctx context.Context, userID int64) ([]models.ViewedProduct, error) {
	return s.viewed(ctx, userID, s.now().Add(-quota.Window))
}

// ViewedHistory lists every product the user has opened.
func (s *Service) ViewedHistory(ctx context.Context, userID int64) ([]models.ViewedProduct, error) {
	return s.viewed(ctx, userID, time.Time{})
}

func (s *Service) viewed(ctx context.Context, userID int64, since time.Time) ([]models.ViewedProduct, error) {
	viewed, err := s.store.ViewedProducts(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	for i := range viewed {
		s.withImageURLs(&viewed[i].Product)
	}
	return viewed, nil
}

func (s *Service) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range products {
		s.withImageURLs(&products[i])
	}
	return products, nil
}

func (s *Service) ProductsByOwner(ctx context.Context, userID int64) ([]models.Product, error) {
	products, err := s.store.ListProductsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		s.withImageURLs(&products[i])
	}
	return products, nil
}

// Viewers groups the users who viewed each of the owner's products.
func (s *Service) Viewers(ctx context.Context, ownerID int64) ([]models.ProductViewers, error) {
	groups, err := s.store.ProductViewers(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		s.withImageURLs(&groups[i].Product)
	}
	return groups, nil
}

// DeleteProduct removes a product owned by actor (any product for admins).
// Image objects are removed best-effort after the rows are gone.
func (s *Service) DeleteProduct(ctx context.Context, actor *models.User, productID int64) error {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p.CreatedBy != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.store.DeleteProduct(ctx, p.ID); err != nil {
		return err
	}
	for _, img := range p.Images {
		s.deleteObject(ctx, img.ObjectKey)
	}
	s.logger.Info("product deleted", "product_id", p.ID, "by", actor.ID)
	return nil
}

//
// --- Profile picture ---
//

// UploadProfilePicture stores a new picture, points the profile at it and
// removes the previous object best-effort. It returns the public URL.
func (s *Service) UploadProfilePicture(ctx context.Context, userID int64, data []byte) (string, error) {
	ext, err := storage.CheckImage(data)
	if err != nil {
		return "", err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := storage.ProfilePictureKey(userID, ext)
	if err := s.objects.Put(ctx, key, data); err != nil {
		return "", err
	}
	if err := s.store.SetProfilePicture(ctx, userID, &key); err != nil {
		s.deleteObject(ctx, key)
		return "", err
	}
	if u.Profile != nil && u.Profile.ProfilePictureKey != nil {
		s.deleteObject(ctx, *u.Profile.ProfilePictureKey)
	}
	return s.objects.URL(key), nil
}

// ProfilePictureURL returns the public URL of the user's picture, or "".
func (s *Service) ProfilePictureURL(u *models.User) string {
	if u.Profile == nil || u.Profile.ProfilePictureKey == nil {
		return ""
	}
	return s.objects.URL(*u.Profile.ProfilePictureKey)
}
