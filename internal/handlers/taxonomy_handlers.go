package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/techxchange-golang/internal/catalog"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/gin-gonic/gin"
)

//
// --- Category Handlers ---
//

// GetAllCategories is the handler for GET /v1/categories
// Customers see active categories; admins also see inactive ones.
func (h *Handlers) GetAllCategories(c *gin.Context) {
	activeOnly := !currentUser(c).IsAdmin()
	categories, err := h.Catalog.Categories(c.Request.Context(), activeOnly)
	if err != nil {
		h.serverError(c, "Failed to list categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}

// CreateCategory is the handler for POST /v1/admin/categories (multipart form).
// Fields: name, include_in_home, is_active (default true), image.
func (h *Handlers) CreateCategory(c *gin.Context) {
	// 1. --- Read the form ---
	image, err := formFile(c, "image")
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded image"})
		return
	}

	// 2. --- Insert ---
	category, err := h.Catalog.CreateCategory(c.Request.Context(), currentUser(c).ID, catalog.CreateCategoryInput{
		Name:          c.PostForm("name"),
		IncludeInHome: c.PostForm("include_in_home") == "true",
		IsActive:      c.DefaultPostForm("is_active", "true") == "true",
		Image:         image,
	})
	switch {
	case errors.Is(err, catalog.ErrNameRequired), isImageError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.serverError(c, "Failed to create category", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Category created successfully",
		"category": category,
	})
}

// DeleteCategory is the handler for DELETE /v1/admin/categories/:id
func (h *Handlers) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := h.Catalog.DeleteCategory(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to delete category", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

//
// --- Promotion Banner Handlers ---
//

// GetBanners is the handler for GET /v1/admin/banners
func (h *Handlers) GetBanners(c *gin.Context) {
	banners, err := h.Catalog.Banners(c.Request.Context(), false)
	if err != nil {
		h.serverError(c, "Failed to list banners", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banners": banners})
}

// CreateBanner is the handler for POST /v1/admin/banners (multipart form).
// Fields: title, subtitle, link, is_active (default true), image.
func (h *Handlers) CreateBanner(c *gin.Context) {
	image, err := formFile(c, "image")
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded image"})
		return
	}

	banner, err := h.Catalog.CreateBanner(c.Request.Context(), catalog.CreateBannerInput{
		Title:    c.PostForm("title"),
		Subtitle: c.PostForm("subtitle"),
		Link:     c.PostForm("link"),
		IsActive: c.DefaultPostForm("is_active", "true") == "true",
		Image:    image,
	})
	if isImageError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to create banner", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"banner": banner})
}

// DeleteBanner is the handler for DELETE /v1/admin/banners/:id
func (h *Handlers) DeleteBanner(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	err := h.Catalog.DeleteBanner(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Banner not found"})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to delete banner", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Banner deleted"})
}
