package models

import (
	"time"
)

// Product is the model for the 'products' table.
type Product struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	CategoryID    int64     `json:"categoryId" db:"category_id"`
	Slug          string    `json:"slug" db:"slug"`
	Brand         string    `json:"brand" db:"brand"`
	Specification string    `json:"specification" db:"specification"`
	Description   string    `json:"description" db:"description"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedBy     int64     `json:"createdBy" db:"created_by"`
	UpdatedBy     *int64    `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table, populated manually)
	CategoryName string         `json:"categoryName,omitempty" db:"-"`
	CategorySlug string         `json:"categorySlug,omitempty" db:"-"`
	Images       []ProductImage `json:"images" db:"-"`
}

// DefaultImage returns the first image in display order, or nil.
func (p *Product) DefaultImage() *ProductImage {
	if len(p.Images) == 0 {
		return nil
	}
	return &p.Images[0]
}

// ProductImage is the model for the 'product_images' table.
// Images are ordered default first, then by creation time.
type ProductImage struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"productId" db:"product_id"`
	ObjectKey string    `json:"-" db:"object_key"`
	IsDefault bool      `json:"isDefault" db:"is_default"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	URL string `json:"url" db:"-"`
}

// ProductFilter narrows the public product listing.
type ProductFilter struct {
	Query        string
	CategorySlug string
}

// ProductView is the model for the 'product_views' table. One row per
// (user, product); repeat visits refresh ViewedAt.
type ProductView struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	ViewedAt  time.Time `json:"viewedAt" db:"viewed_at"`
}

// ProductViewers groups the users who viewed one of the caller's products.
type ProductViewers struct {
	Product Product `json:"product"`
	Viewers []User  `json:"viewers"`
}

// ViewedProduct is a product together with the time the user last opened it.
type ViewedProduct struct {
	Product
	ViewedAt time.Time `json:"viewedAt"`
}
