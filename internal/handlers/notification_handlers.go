package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// GetMyNotifications is the handler for GET /v1/notifications
// It retrieves the notifications of the logged-in user, unread and newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	// 1. --- Get User ID ---
	userID := currentUser(c).ID

	// 2. --- Query ---
	notifications, err := h.Notifications.ListNotifications(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
	})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
// It marks a single notification as read.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	// 1. --- Get IDs ---
	userID := currentUser(c).ID
	notificationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// 2. --- Execute Update ---
	// Only the owner's notification is touched, so a missing row means it
	// either didn't exist or belongs to someone else.
	err := h.Notifications.MarkNotificationRead(c.Request.Context(), notificationID, userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found or you do not have permission to update it"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}
