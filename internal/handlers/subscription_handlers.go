package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/01moynul/techxchange-golang/internal/subscription"
	"github.com/gin-gonic/gin"
)

//
// --- Customer: Subscription Upgrade ---
//

// GetUpgradeOptions is the handler for GET /v1/subscription/upgrade
// It returns the current subscription and the plan x duration price matrix.
func (h *Handlers) GetUpgradeOptions(c *gin.Context) {
	opts, err := h.Subscriptions.Options(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.serverError(c, "Failed to load subscription plans", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

type UpgradeRequestInput struct {
	PlanID     int64 `json:"planId" binding:"required"`
	DurationID int64 `json:"durationId" binding:"required"`
}

// RequestUpgrade is the handler for POST /v1/subscription/upgrade
// It stores a pending upgrade request for admin review.
func (h *Handlers) RequestUpgrade(c *gin.Context) {
	var input UpgradeRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.Subscriptions.RequestUpgrade(c.Request.Context(), currentUser(c).ID, input.PlanID, input.DurationID)
	if err != nil {
		if status, msg, ok := subscriptionError(err); ok {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		h.serverError(c, "Failed to request upgrade", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Your upgrade request has been submitted and is awaiting admin approval.",
		"subscription": sub,
	})
}

// GetPrice is the handler for GET /v1/subscription/price?plan_id=&duration_id=
// An undefined (plan, duration) pair answers "Not Available".
func (h *Handlers) GetPrice(c *gin.Context) {
	planID, errPlan := strconv.ParseInt(c.Query("plan_id"), 10, 64)
	durationID, errDuration := strconv.ParseInt(c.Query("duration_id"), 10, 64)
	if errPlan != nil || errDuration != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_id and duration_id are required"})
		return
	}

	price, err := h.Subscriptions.Price(c.Request.Context(), planID, durationID)
	switch {
	case errors.Is(err, subscription.ErrPlanUnavailable):
		c.JSON(http.StatusOK, gin.H{"price": "Not Available"})
		return
	case errors.Is(err, subscription.ErrUnknownPlan), errors.Is(err, subscription.ErrUnknownDuration):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.serverError(c, "Failed to look up price", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

// subscriptionError maps workflow errors to responses.
func subscriptionError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, subscription.ErrPlanUnavailable):
		return http.StatusBadRequest, "Selected plan and duration combination is not available", true
	case errors.Is(err, subscription.ErrUnknownPlan), errors.Is(err, subscription.ErrUnknownDuration):
		return http.StatusNotFound, err.Error(), true
	case errors.Is(err, subscription.ErrPaymentMissing):
		return http.StatusConflict, "Cannot approve: payment not received yet", true
	case errors.Is(err, subscription.ErrNoPendingRequest):
		return http.StatusConflict, "There is no pending upgrade request", true
	case errors.Is(err, subscription.ErrNoPayment):
		return http.StatusConflict, "No payment has been recorded for this subscription", true
	case errors.Is(err, subscription.ErrInvalidPrice), errors.Is(err, subscription.ErrInvalidSlots):
		return http.StatusBadRequest, err.Error(), true
	}
	return 0, "", false
}
