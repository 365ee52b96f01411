package models

import "time"

// Category defines the struct for the 'categories' table
type Category struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	ImageKey      *string   `json:"-" db:"image_key"`
	IncludeInHome bool      `json:"includeInHome" db:"include_in_home"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedBy     *int64    `json:"createdBy,omitempty" db:"created_by"`
	UpdatedBy     *int64    `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`

	ImageURL string `json:"imageUrl,omitempty" db:"-"`
}

// PromotionBanner is the model for the 'promotion_banners' table.
type PromotionBanner struct {
	ID        int64     `json:"id" db:"id"`
	Title     *string   `json:"title,omitempty" db:"title"`
	Subtitle  *string   `json:"subtitle,omitempty" db:"subtitle"`
	ImageKey  *string   `json:"-" db:"image_key"`
	Link      *string   `json:"link,omitempty" db:"link"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	ImageURL string `json:"imageUrl,omitempty" db:"-"`
}
