package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Customer Dashboard ---
//

// GetDashboardProfile is the handler for GET /v1/dashboard/profile
// It returns the user, their business profile and subscription status.
func (h *Handlers) GetDashboardProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c).ID

	// 1. User and business profile
	user, business, err := h.Identity.Profile(ctx, userID)
	if err != nil {
		h.serverError(c, "Failed to load profile", err)
		return
	}

	// 2. Subscription (created on first access)
	sub, err := h.Subscriptions.Ensure(ctx, userID)
	if err != nil {
		h.serverError(c, "Failed to load subscription", err)
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"businessProfile":   business,
		"profilePictureUrl": h.Catalog.ProfilePictureURL(user),
		"subscription":      sub,
		"isActive":          sub.IsActive(now),
		"remainingDays":     sub.RemainingLabel(now),
	})
}

// GetMyProducts is the handler for GET /v1/dashboard/products
func (h *Handlers) GetMyProducts(c *gin.Context) {
	products, err := h.Catalog.ProductsByOwner(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.serverError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetViewedProducts is the handler for GET /v1/dashboard/viewed-products
// It lists every product the user has opened.
func (h *Handlers) GetViewedProducts(c *gin.Context) {
	viewed, err := h.Catalog.ViewedHistory(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.serverError(c, "Failed to list viewed products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": viewed})
}

// GetProductViewers is the handler for GET /v1/dashboard/viewers
// It lists, per product of the user, who viewed it.
func (h *Handlers) GetProductViewers(c *gin.Context) {
	groups, err := h.Catalog.Viewers(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.serverError(c, "Failed to list viewers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": groups})
}
