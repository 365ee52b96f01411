package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/export"
	"github.com/01moynul/techxchange-golang/internal/identity"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
	"github.com/01moynul/techxchange-golang/internal/subscription"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

//
// --- Admin: Users ---
//

// userFilter reads the optional listing filters: active, verified, plan_id, q.
func userFilter(c *gin.Context) models.UserFilter {
	f := models.UserFilter{Search: c.Query("q")}
	if v, err := strconv.ParseBool(c.Query("active")); err == nil {
		f.Active = &v
	}
	if v, err := strconv.ParseBool(c.Query("verified")); err == nil {
		f.Verified = &v
	}
	if v, err := strconv.ParseInt(c.Query("plan_id"), 10, 64); err == nil {
		f.PlanID = &v
	}
	return f
}

// GetUsers is the handler for GET /v1/admin/users
func (h *Handlers) GetUsers(c *gin.Context) {
	users, err := h.Identity.ListUsers(c.Request.Context(), userFilter(c))
	if err != nil {
		h.serverError(c, "Failed to list users", err)
		return
	}
	if users == nil {
		users = []models.UserRow{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type ApproveUsersInput struct {
	UserIDs []int64 `json:"userIds" binding:"required,min=1"`
}

// ApproveUsers is the handler for POST /v1/admin/users/approve
// It activates the selected inactive users and emails them a password.
func (h *Handlers) ApproveUsers(c *gin.Context) {
	var input ApproveUsersInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.activate(c, input.UserIDs)
}

// ActivateUser is the handler for PATCH /v1/admin/users/:id/activate
func (h *Handlers) ActivateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.activate(c, []int64{id})
}

func (h *Handlers) activate(c *gin.Context, ids []int64) {
	res, err := h.Identity.Activate(c.Request.Context(), ids)
	if err != nil {
		h.serverError(c, "Failed to activate users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("%d user(s) approved and notified by email.", len(res.Activated)),
		"activated": res.Activated,
		"skipped":   res.Skipped,
	})
}

// ExportUsers is the handler for GET /v1/admin/users/export
// It downloads the filtered users as XLSX, or mails it to the admin
// address with ?email=1.
func (h *Handlers) ExportUsers(c *gin.Context) {
	users, err := h.Identity.ListUsers(c.Request.Context(), userFilter(c))
	if err != nil {
		h.serverError(c, "Failed to list users", err)
		return
	}
	xlsx, err := export.UsersWorkbook(users)
	if err != nil {
		h.serverError(c, "Failed to build export", err)
		return
	}

	now := time.Now()
	msg := email.UserExport(h.AdminEmail, xlsx, now)
	if c.Query("email") == "1" {
		if h.AdminEmail == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No admin email is configured"})
			return
		}
		if err := h.Mailer.Send(c.Request.Context(), msg); err != nil {
			h.serverError(c, "Failed to email export", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User export sent to " + h.AdminEmail})
		return
	}

	attachment := msg.Attachments[0]
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, attachment.Filename))
	c.Data(http.StatusOK, attachment.ContentType, attachment.Data)
}

// GetUserPassword is the handler for GET /v1/admin/users/:id/password
// It reveals the escrowed password, when escrow is enabled.
func (h *Handlers) GetUserPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	pw, err := h.Identity.EscrowedPassword(c.Request.Context(), id)
	if errors.Is(err, identity.ErrEscrowUnavailable) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Password is not available"})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to load password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"password": pw})
}

//
// --- Admin: Subscriptions ---
//

// GetSubscriptions is the handler for GET /v1/admin/subscriptions
// ?pending=true lists only subscriptions awaiting review.
func (h *Handlers) GetSubscriptions(c *gin.Context) {
	pendingOnly := c.Query("pending") == "true"
	subs, err := h.Subscriptions.List(c.Request.Context(), pendingOnly)
	if err != nil {
		h.serverError(c, "Failed to list subscriptions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// GetSubscriptionPayments is the handler for GET /v1/admin/subscriptions/:id/payments
func (h *Handlers) GetSubscriptionPayments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payments, err := h.Subscriptions.Payments(c.Request.Context(), id)
	if !h.subscriptionResult(c, err, "Failed to list payments") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

type UpdateSubscriptionInput struct {
	ExtraSlots *int `json:"extraSlots" binding:"required"`
}

// UpdateSubscription is the handler for PATCH /v1/admin/subscriptions/:id
// It sets the product slots bought on top of the plan's daily cap.
func (h *Handlers) UpdateSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input UpdateSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.Subscriptions.SetExtraSlots(c.Request.Context(), id, *input.ExtraSlots)
	if !h.subscriptionResult(c, err, "Failed to update subscription") {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Subscription updated",
		"subscription": sub,
	})
}

type ApproveSubscriptionInput struct {
	AmountPaid *decimal.Decimal `json:"amountPaid"`
	Method     string           `json:"method"`
}

// ApproveSubscription is the handler for POST /v1/admin/subscriptions/:id/approve
// The body is optional; amountPaid overrides the stored amount.
func (h *Handlers) ApproveSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input ApproveSubscriptionInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sub, err := h.Subscriptions.Approve(c.Request.Context(), id, subscription.ApproveInput{
		AmountPaid: input.AmountPaid,
		Method:     input.Method,
	})
	if !h.subscriptionResult(c, err, "Failed to approve subscription") {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Subscription approved",
		"subscription": sub,
	})
}

// RejectSubscription is the handler for POST /v1/admin/subscriptions/:id/reject
func (h *Handlers) RejectSubscription(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.Subscriptions.Reject(c.Request.Context(), id)
	if !h.subscriptionResult(c, err, "Failed to reject subscription") {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Subscription upgrade rejected",
		"subscription": sub,
	})
}

// SendInvoice is the handler for POST /v1/admin/subscriptions/:id/invoice
func (h *Handlers) SendInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	number, err := h.Subscriptions.SendInvoice(c.Request.Context(), id)
	if !h.subscriptionResult(c, err, "Failed to send invoice") {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Invoice sent",
		"invoice": number,
	})
}

// subscriptionResult answers the error response for err and reports
// whether the caller should carry on.
func (h *Handlers) subscriptionResult(c *gin.Context, err error, msg string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return false
	}
	if status, text, ok := subscriptionError(err); ok {
		c.JSON(status, gin.H{"error": text})
		return false
	}
	h.serverError(c, msg, err)
	return false
}

//
// --- Admin: Plan Reference Data ---
//

// GetPlanReference is the handler for GET /v1/admin/plans
// It returns plan types, durations and the defined prices.
func (h *Handlers) GetPlanReference(c *gin.Context) {
	ctx := c.Request.Context()
	planTypes, err := h.Subscriptions.PlanTypes(ctx)
	if err != nil {
		h.serverError(c, "Failed to list plan types", err)
		return
	}
	durations, err := h.Subscriptions.Durations(ctx)
	if err != nil {
		h.serverError(c, "Failed to list durations", err)
		return
	}
	plans, err := h.Subscriptions.Plans(ctx)
	if err != nil {
		h.serverError(c, "Failed to list plans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"planTypes": planTypes,
		"durations": durations,
		"plans":     plans,
	})
}

type PlanTypeInput struct {
	Name                  string `json:"name" binding:"required"`
	MaxProductsPerDay     int    `json:"maxProductsPerDay" binding:"min=0"`
	BaseSlots             int    `json:"baseSlots" binding:"min=0"`
	MaxProductViewsPerDay int    `json:"maxProductViewsPerDay" binding:"min=0"`
}

// CreatePlanType is the handler for POST /v1/admin/plan-types
func (h *Handlers) CreatePlanType(c *gin.Context) {
	var input PlanTypeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &models.PlanType{
		Name:                  input.Name,
		MaxProductsPerDay:     input.MaxProductsPerDay,
		BaseSlots:             input.BaseSlots,
		MaxProductViewsPerDay: input.MaxProductViewsPerDay,
	}
	if err := h.Subscriptions.CreatePlanType(c.Request.Context(), p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A plan type with this name already exists"})
			return
		}
		h.serverError(c, "Failed to create plan type", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"planType": p})
}

type DurationInput struct {
	DurationDays int `json:"durationDays" binding:"required,min=1"`
}

// CreateDuration is the handler for POST /v1/admin/durations
func (h *Handlers) CreateDuration(c *gin.Context) {
	var input DurationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := &models.SubscriptionDuration{DurationDays: input.DurationDays}
	if err := h.Subscriptions.CreateDuration(c.Request.Context(), d); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "This duration already exists"})
			return
		}
		h.serverError(c, "Failed to create duration", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"duration": d})
}

type PlanPriceInput struct {
	PlanTypeID int64           `json:"planTypeId" binding:"required"`
	DurationID int64           `json:"durationId" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

// SetPlanPrice is the handler for PUT /v1/admin/plans
func (h *Handlers) SetPlanPrice(c *gin.Context) {
	var input PlanPriceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := h.Subscriptions.SetPrice(c.Request.Context(), input.PlanTypeID, input.DurationID, input.Price)
	if err != nil {
		if status, msg, ok := subscriptionError(err); ok {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		h.serverError(c, "Failed to save price", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

//
// --- Admin: Stats ---
//

// GetAdminStats is the handler for GET /v1/admin/stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	stats, err := h.Stats.AdminStats(c.Request.Context(), time.Now())
	if err != nil {
		h.serverError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
