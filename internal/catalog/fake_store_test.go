package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
)

type viewKey struct{ user, product int64 }

type fakeStore struct {
	users      map[int64]*models.User
	subs       map[int64]*models.Subscription
	categories map[int64]*models.Category
	products   map[int64]*models.Product
	banners    map[int64]*models.PromotionBanner
	views      map[viewKey]time.Time
	nextID     int64
	locks      []int64
	failInsert error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]*models.User{},
		subs:       map[int64]*models.Subscription{},
		categories: map[int64]*models.Category{},
		products:   map[int64]*models.Product{},
		banners:    map[int64]*models.PromotionBanner{},
		views:      map[viewKey]time.Time{},
		nextID:     1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

// tx drops products written by fn when it fails.
func (f *fakeStore) tx(ctx context.Context, fn func(Store) error) error {
	before := map[int64]bool{}
	for id := range f.products {
		before[id] = true
	}
	if err := fn(f); err != nil {
		for id := range f.products {
			if !before[id] {
				delete(f.products, id)
			}
		}
		return err
	}
	return nil
}

// quota.Store

func (f *fakeStore) GetSubscriptionByUser(_ context.Context, userID int64) (*models.Subscription, error) {
	sub, ok := f.subs[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) CountProductsSince(_ context.Context, userID int64, since time.Time) (int, error) {
	n := 0
	for _, p := range f.products {
		if p.CreatedBy == userID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) HasViewed(_ context.Context, userID, productID int64) (bool, error) {
	_, ok := f.views[viewKey{userID, productID}]
	return ok, nil
}

func (f *fakeStore) CountViewsSince(_ context.Context, userID int64, since time.Time) (int, error) {
	n := 0
	for k, at := range f.views {
		if k.user == userID && !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UpsertView(_ context.Context, userID, productID int64, at time.Time) error {
	f.views[viewKey{userID, productID}] = at
	return nil
}

func (f *fakeStore) LockUser(_ context.Context, userID int64) error {
	f.locks = append(f.locks, userID)
	return nil
}

// products

func (f *fakeStore) ProductSlugExists(_ context.Context, slug string) (bool, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, p *models.Product) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	p.ID = f.id()
	for i := range p.Images {
		p.Images[i].ID = f.id()
		p.Images[i].ProductID = p.ID
	}
	cp := *p
	cp.Images = append([]models.ProductImage(nil), p.Images...)
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	cp.Images = append([]models.ProductImage{}, p.Images...)
	return &cp, nil
}

func (f *fakeStore) ListProducts(_ context.Context, _ models.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) ListProductsByOwner(_ context.Context, userID int64) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.products {
		if p.CreatedBy == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeStore) ViewedProducts(_ context.Context, userID int64, since time.Time) ([]models.ViewedProduct, error) {
	out := []models.ViewedProduct{}
	for k, at := range f.views {
		if k.user != userID || at.Before(since) {
			continue
		}
		if p, ok := f.products[k.product]; ok {
			out = append(out, models.ViewedProduct{Product: *p, ViewedAt: at})
		}
	}
	return out, nil
}

func (f *fakeStore) ProductViewers(_ context.Context, ownerID int64) ([]models.ProductViewers, error) {
	return nil, errors.New("not used")
}

// categories

func (f *fakeStore) CategorySlugExists(_ context.Context, slug string) (bool, error) {
	for _, c := range f.categories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c *models.Category) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	c.ID = f.id()
	cp := *c
	f.categories[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListCategories(_ context.Context, activeOnly, homeOnly bool) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range f.categories {
		if (activeOnly || homeOnly) && !c.IsActive {
			continue
		}
		if homeOnly && !c.IncludeInHome {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

// banners

func (f *fakeStore) CreateBanner(_ context.Context, b *models.PromotionBanner) error {
	b.ID = f.id()
	cp := *b
	f.banners[b.ID] = &cp
	return nil
}

func (f *fakeStore) GetBanner(_ context.Context, id int64) (*models.PromotionBanner, error) {
	b, ok := f.banners[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListBanners(_ context.Context, activeOnly bool, limit int) ([]models.PromotionBanner, error) {
	out := []models.PromotionBanner{}
	for id := int64(1); id < f.nextID; id++ {
		b, ok := f.banners[id]
		if !ok || (activeOnly && !b.IsActive) {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeStore) DeleteBanner(_ context.Context, id int64) error {
	if _, ok := f.banners[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.banners, id)
	return nil
}

// users

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	if u.Profile != nil {
		profile := *u.Profile
		cp.Profile = &profile
	}
	return &cp, nil
}

func (f *fakeStore) SetProfilePicture(_ context.Context, userID int64, key *string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if u.Profile == nil {
		u.Profile = &models.UserProfile{UserID: userID}
	}
	u.Profile.ProfilePictureKey = key
	return nil
}

// memObjects is an in-memory object store.
type memObjects struct {
	objects map[string][]byte
	failPut error
	failDel error
	deleted []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Put(_ context.Context, key string, data []byte) error {
	if m.failPut != nil {
		return m.failPut
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if m.failDel != nil {
		return m.failDel
	}
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("no such key %s", key)
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) URL(key string) string {
	return "https://cdn.example.com/" + key
}
