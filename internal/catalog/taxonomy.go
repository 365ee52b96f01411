package catalog

import (
	"context"
	"strings"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/storage"
)

//
// --- Categories ---
//

type CreateCategoryInput struct {
	Name          string
	IncludeInHome bool
	IsActive      bool
	Image         []byte
}

func (s *Service) withCategoryURL(c *models.Category) {
	if c.ImageKey != nil {
		c.ImageURL = s.objects.URL(*c.ImageKey)
	}
}

// CreateCategory stores the category and its optional image, keyed by the
// category slug.
func (s *Service) CreateCategory(ctx context.Context, adminID int64, in CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	var ext string
	if len(in.Image) > 0 {
		var err error
		if ext, err = storage.CheckImage(in.Image); err != nil {
			return nil, err
		}
	}

	categorySlug, err := UniqueSlug(ctx, name, s.store.CategorySlugExists)
	if err != nil {
		return nil, err
	}
	c := &models.Category{
		Name:          name,
		Slug:          categorySlug,
		IncludeInHome: in.IncludeInHome,
		IsActive:      in.IsActive,
		CreatedBy:     &adminID,
	}
	if ext != "" {
		key := storage.CategoryImageKey(categorySlug, ext)
		if err := s.objects.Put(ctx, key, in.Image); err != nil {
			return nil, err
		}
		c.ImageKey = &key
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		if c.ImageKey != nil {
			s.deleteObject(ctx, *c.ImageKey)
		}
		return nil, err
	}
	s.withCategoryURL(c)
	return c, nil
}

// Categories lists categories; activeOnly hides inactive ones.
func (s *Service) Categories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx, activeOnly, false)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		s.withCategoryURL(&categories[i])
	}
	return categories, nil
}

// DeleteCategory removes the category (and, through the schema, its
// products) and then its image object.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	if c.ImageKey != nil {
		s.deleteObject(ctx, *c.ImageKey)
	}
	return nil
}

//
// --- Promotion banners ---
//

type CreateBannerInput struct {
	Title    string
	Subtitle string
	Link     string
	IsActive bool
	Image    []byte
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) withBannerURL(b *models.PromotionBanner) {
	if b.ImageKey != nil {
		b.ImageURL = s.objects.URL(*b.ImageKey)
	}
}

func (s *Service) CreateBanner(ctx context.Context, in CreateBannerInput) (*models.PromotionBanner, error) {
	b := &models.PromotionBanner{
		Title:    optional(in.Title),
		Subtitle: optional(in.Subtitle),
		Link:     optional(in.Link),
		IsActive: in.IsActive,
	}
	if len(in.Image) > 0 {
		ext, err := storage.CheckImage(in.Image)
		if err != nil {
			return nil, err
		}
		key := storage.BannerKey(ext)
		if err := s.objects.Put(ctx, key, in.Image); err != nil {
			return nil, err
		}
		b.ImageKey = &key
	}

	if err := s.store.CreateBanner(ctx, b); err != nil {
		if b.ImageKey != nil {
			s.deleteObject(ctx, *b.ImageKey)
		}
		return nil, err
	}
	s.withBannerURL(b)
	return b, nil
}

func (s *Service) Banners(ctx context.Context, activeOnly bool) ([]models.PromotionBanner, error) {
	banners, err := s.store.ListBanners(ctx, activeOnly, 0)
	if err != nil {
		return nil, err
	}
	for i := range banners {
		s.withBannerURL(&banners[i])
	}
	return banners, nil
}

func (s *Service) DeleteBanner(ctx context.Context, id int64) error {
	b, err := s.store.GetBanner(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBanner(ctx, id); err != nil {
		return err
	}
	if b.ImageKey != nil {
		s.deleteObject(ctx, *b.ImageKey)
	}
	return nil
}

// Home is the landing page content.
type Home struct {
	Categories []models.Category        `json:"categories"`
	Banners    []models.PromotionBanner `json:"banners"`
}

// Home returns the active home-page categories and up to HomeBannerLimit
// active banners.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	categories, err := s.store.ListCategories(ctx, true, true)
	if err != nil {
		return nil, err
	}
	banners, err := s.store.ListBanners(ctx, true, HomeBannerLimit)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		s.withCategoryURL(&categories[i])
	}
	for i := range banners {
		s.withBannerURL(&banners[i])
	}
	if categories == nil {
		categories = []models.Category{}
	}
	if banners == nil {
		banners = []models.PromotionBanner{}
	}
	return &Home{Categories: categories, Banners: banners}, nil
}
