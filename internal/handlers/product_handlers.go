package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/techxchange-golang/internal/catalog"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/quota"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/gin-gonic/gin"
)

//
// --- Public ---
//

// Home is the handler for GET /v1/home.
func (h *Handlers) Home(c *gin.Context) {
	home, err := h.Catalog.Home(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to load home page", err)
		return
	}
	c.JSON(http.StatusOK, home)
}

//
// --- Products ---
//

// ListProducts is the handler for GET /v1/products
// Optional query params: q (search) and category (category slug).
func (h *Handlers) ListProducts(c *gin.Context) {
	products, err := h.Catalog.ListProducts(c.Request.Context(), models.ProductFilter{
		Query:        c.Query("q"),
		CategorySlug: c.Query("category"),
	})
	if err != nil {
		h.serverError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
	})
}

// CreateProduct is the handler for POST /v1/products (multipart form).
// Fields: name, category_id, brand, specification, description, images[].
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Read the form ---
	categoryID, err := strconv.ParseInt(c.PostForm("category_id"), 10, 64)
	if err != nil || categoryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category_id is required"})
		return
	}
	images, err := formFiles(c, "images")
	if err != nil {
		if isImageError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded images"})
		return
	}

	// 2. --- Quota check and insert ---
	user := currentUser(c)
	product, decision, err := h.Catalog.CreateProduct(c.Request.Context(), user.ID, catalog.CreateProductInput{
		Name:          c.PostForm("name"),
		CategoryID:    categoryID,
		Brand:         c.PostForm("brand"),
		Specification: c.PostForm("specification"),
		Description:   c.PostForm("description"),
		Images:        images,
	})
	switch {
	case errors.Is(err, catalog.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": quota.ProductLimitMessage(decision)})
		return
	case errors.Is(err, catalog.ErrNameRequired), errors.Is(err, catalog.ErrUnknownCategory), isImageError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.serverError(c, "Failed to create product", err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// GetProduct is the handler for GET /v1/products/:id
// Opening a product counts against the daily view quota. AJAX callers get
// the URL to navigate to instead of the product.
func (h *Handlers) GetProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	user := currentUser(c)
	product, decision, err := h.Catalog.ViewProduct(c.Request.Context(), user.ID, productID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case errors.Is(err, catalog.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": quota.ViewLimitMessage(decision)})
		return
	case err != nil:
		h.serverError(c, "Failed to load product", err)
		return
	}

	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		c.JSON(http.StatusOK, gin.H{"redirect_url": c.Request.URL.Path})
		return
	}

	viewed, err := h.Catalog.RecentlyViewed(c.Request.Context(), user.ID)
	if err != nil {
		h.serverError(c, "Failed to load viewed products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":        product,
		"viewedProducts": viewed,
	})
}

// DeleteProduct is the handler for DELETE /v1/products/:id
// Owners can delete their products; admins can delete any product.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	err := h.Catalog.DeleteProduct(c.Request.Context(), currentUser(c), productID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	case errors.Is(err, catalog.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to delete this product"})
		return
	case err != nil:
		h.serverError(c, "Failed to delete product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
