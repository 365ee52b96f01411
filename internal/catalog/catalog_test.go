package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/quota"
	"github.com/01moynul/techxchange-golang/internal/storage"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func newService(t *testing.T) (*Service, *fakeStore, *memObjects) {
	t.Helper()
	st := newFakeStore()
	objects := newMemObjects()
	svc := New(st, st.tx, objects, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.SetClock(func() time.Time { return fixedNow })

	st.categories[500] = &models.Category{ID: 500, Name: "Lighting", Slug: "lighting", IsActive: true}
	st.users[1] = &models.User{ID: 1, Email: "seller@example.com", Role: models.RoleCustomer, IsActive: true}
	st.users[2] = &models.User{ID: 2, Email: "other@example.com", Role: models.RoleCustomer, IsActive: true}
	st.users[9] = &models.User{ID: 9, Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true}
	st.nextID = 1000
	return svc, st, objects
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"desk-lamp": true, "desk-lamp-1": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	got, err := UniqueSlug(context.Background(), "Desk Lamp", exists)
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp-2", got)

	got, err = UniqueSlug(context.Background(), "Floor Lamp", exists)
	require.NoError(t, err)
	assert.Equal(t, "floor-lamp", got)

	_, err = UniqueSlug(context.Background(), "x", func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	})
	assert.ErrorContains(t, err, "db down")
}

func TestCreateProduct(t *testing.T) {
	svc, st, objects := newService(t)

	p, d, err := svc.CreateProduct(context.Background(), 1, CreateProductInput{
		Name:       "Desk Lamp",
		CategoryID: 500,
		Brand:      " Lumo ",
		Images:     [][]byte{pngBytes, pngBytes},
	})
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, quota.DefaultProductLimit, d.Limit)
	assert.Equal(t, "desk-lamp", p.Slug)
	assert.Equal(t, "Lumo", p.Brand)
	assert.Equal(t, int64(1), p.CreatedBy)
	assert.Equal(t, []int64{1}, st.locks)

	require.Len(t, p.Images, 2)
	assert.True(t, p.Images[0].IsDefault)
	assert.False(t, p.Images[1].IsDefault)
	for _, img := range p.Images {
		assert.True(t, strings.HasPrefix(img.ObjectKey, "products/desk-lamp/"))
		assert.True(t, strings.HasSuffix(img.ObjectKey, ".png"))
		assert.Equal(t, "https://cdn.example.com/"+img.ObjectKey, img.URL)
		assert.Contains(t, objects.objects, img.ObjectKey)
	}
	assert.Contains(t, st.products, p.ID)
}

func TestCreateProduct_QuotaExceeded(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	_, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Desk Lamp", CategoryID: 500})
	require.NoError(t, err)

	_, d, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Floor Lamp", CategoryID: 500, Images: [][]byte{pngBytes}})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, "You have reached your daily limit of 1 products. Buy more slots or upgrade your plan.", quota.ProductLimitMessage(d))
	assert.Len(t, st.products, 1)
	assert.Empty(t, objects.objects)
}

func TestCreateProduct_PlanLimitWithExtraSlots(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	st.subs[1] = &models.Subscription{UserID: 1, ExtraSlots: 1, Plan: &models.PlanType{MaxProductsPerDay: 1}}

	for _, name := range []string{"One", "Two"} {
		_, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: name, CategoryID: 500})
		require.NoError(t, err)
	}
	_, d, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Three", CategoryID: 500})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 2, d.Limit)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "  ", CategoryID: 500})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, _, err = svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Lamp", CategoryID: 500, Images: [][]byte{[]byte("plain text")}})
	assert.ErrorIs(t, err, storage.ErrNotAnImage)

	_, _, err = svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Lamp", CategoryID: 42})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.Empty(t, st.products)
}

func TestCreateProduct_InsertFailureRemovesUploads(t *testing.T) {
	svc, st, objects := newService(t)
	st.failInsert = errors.New("insert failed")

	_, _, err := svc.CreateProduct(context.Background(), 1, CreateProductInput{
		Name: "Desk Lamp", CategoryID: 500, Images: [][]byte{pngBytes},
	})
	assert.ErrorContains(t, err, "insert failed")
	assert.Empty(t, objects.objects)
	assert.Len(t, objects.deleted, 1)
}

func TestCreateProduct_SlugCollision(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	first, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Desk Lamp", CategoryID: 500})
	require.NoError(t, err)
	second, _, err := svc.CreateProduct(ctx, 2, CreateProductInput{Name: "Desk Lamp", CategoryID: 500})
	require.NoError(t, err)

	assert.Equal(t, "desk-lamp", first.Slug)
	assert.Equal(t, "desk-lamp-1", second.Slug)
	assert.Len(t, st.products, 2)
}

func seedProducts(st *fakeStore, owner int64, n int) []int64 {
	var ids []int64
	for i := 0; i < n; i++ {
		id := st.id()
		st.products[id] = &models.Product{ID: id, Name: "P", CreatedBy: owner, CategoryID: 500, IsActive: true,
			CreatedAt: fixedNow.Add(-48 * time.Hour), Images: []models.ProductImage{}}
		ids = append(ids, id)
	}
	return ids
}

func TestViewProduct_DefaultLimit(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	ids := seedProducts(st, 2, 7)

	for _, id := range ids[:5] {
		p, d, err := svc.ViewProduct(ctx, 1, id)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, id, p.ID)
	}

	_, d, err := svc.ViewProduct(ctx, 1, ids[5])
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, "You have reached your daily limit of 5 product views.", quota.ViewLimitMessage(d))
	_, recorded := st.views[viewKey{1, ids[5]}]
	assert.False(t, recorded)

	// A product already opened stays reachable.
	_, d, err = svc.ViewProduct(ctx, 1, ids[0])
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	viewed, err := svc.RecentlyViewed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, viewed, 5)
}

func TestViewedHistory(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	ids := seedProducts(st, 2, 3)
	st.views[viewKey{1, ids[0]}] = fixedNow.Add(-time.Hour)
	st.views[viewKey{1, ids[1]}] = fixedNow.Add(-72 * time.Hour)
	st.views[viewKey{1, ids[2]}] = fixedNow.Add(-30 * 24 * time.Hour)
	st.views[viewKey{9, ids[0]}] = fixedNow.Add(-time.Hour)

	recent, err := svc.RecentlyViewed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ids[0], recent[0].ID)

	history, err := svc.ViewedHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestViewProduct_Unlimited(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	st.subs[1] = &models.Subscription{UserID: 1, Plan: &models.PlanType{MaxProductViewsPerDay: 0}}

	for _, id := range seedProducts(st, 2, 8) {
		_, d, err := svc.ViewProduct(ctx, 1, id)
		require.NoError(t, err)
		assert.True(t, d.Unlimited)
	}
	assert.Len(t, st.views, 8)
}

func TestViewProduct_NotFound(t *testing.T) {
	svc, st, _ := newService(t)

	_, _, err := svc.ViewProduct(context.Background(), 1, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)

	id := seedProducts(st, 2, 1)[0]
	st.products[id].IsActive = false
	_, _, err = svc.ViewProduct(context.Background(), 1, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, st.views)
}

func TestDeleteProduct(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	p, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Desk Lamp", CategoryID: 500, Images: [][]byte{pngBytes}})
	require.NoError(t, err)

	err = svc.DeleteProduct(ctx, st.users[2], p.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, st.products, p.ID)

	require.NoError(t, svc.DeleteProduct(ctx, st.users[9], p.ID))
	assert.NotContains(t, st.products, p.ID)
	assert.Empty(t, objects.objects)
}

func TestDeleteProduct_ObjectFailureIsIgnored(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	p, _, err := svc.CreateProduct(ctx, 1, CreateProductInput{Name: "Desk Lamp", CategoryID: 500, Images: [][]byte{pngBytes}})
	require.NoError(t, err)
	objects.failDel = errors.New("bucket unavailable")

	require.NoError(t, svc.DeleteProduct(ctx, st.users[1], p.ID))
	assert.NotContains(t, st.products, p.ID)
}

func TestUploadProfilePicture_ReplacesPrevious(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	first, err := svc.UploadProfilePicture(ctx, 1, pngBytes)
	require.NoError(t, err)
	firstKey := *st.users[1].Profile.ProfilePictureKey
	assert.Equal(t, "https://cdn.example.com/"+firstKey, first)
	assert.True(t, strings.HasPrefix(firstKey, "profile_pictures/1/"))

	second, err := svc.UploadProfilePicture(ctx, 1, pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, objects.objects, firstKey)
	assert.Len(t, objects.objects, 1)

	_, err = svc.UploadProfilePicture(ctx, 1, nil)
	assert.ErrorIs(t, err, storage.ErrEmptyFile)
}

func TestCategories(t *testing.T) {
	svc, st, objects := newService(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, 9, CreateCategoryInput{Name: "Lighting", IsActive: true, IncludeInHome: true, Image: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "lighting-1", c.Slug)
	require.NotNil(t, c.ImageKey)
	assert.Equal(t, "categories/lighting-1.png", *c.ImageKey)
	assert.Equal(t, "https://cdn.example.com/categories/lighting-1.png", c.ImageURL)

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Categories, 1)
	assert.Equal(t, c.ID, home.Categories[0].ID)
	assert.Empty(t, home.Banners)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	assert.NotContains(t, st.categories, c.ID)
	assert.Empty(t, objects.objects)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), store.ErrNotFound)
}

func TestBanners_HomeShowsFourActive(t *testing.T) {
	svc, _, objects := newService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateBanner(ctx, CreateBannerInput{Title: "Sale", IsActive: true, Image: pngBytes})
		require.NoError(t, err)
	}
	hidden, err := svc.CreateBanner(ctx, CreateBannerInput{Title: "Hidden"})
	require.NoError(t, err)
	assert.Nil(t, hidden.ImageKey)

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Len(t, home.Banners, HomeBannerLimit)
	for _, b := range home.Banners {
		assert.True(t, b.IsActive)
		assert.NotEmpty(t, b.ImageURL)
	}

	all, err := svc.Banners(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	require.NoError(t, svc.DeleteBanner(ctx, all[0].ID))
	assert.Len(t, objects.objects, 4)
}
