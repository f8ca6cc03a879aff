package handler

import (
	"cartly/internal/domain"
	"cartly/internal/middleware"
	"cartly/internal/models"
	"cartly/internal/repository"
	"cartly/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments    *service.PaymentService
	redemptions *service.RedemptionService
	paymentRepo *repository.PaymentRepository
	audit       service.AuditWriter
}

func NewPaymentHandler(payments *service.PaymentService, redemptions *service.RedemptionService, paymentRepo *repository.PaymentRepository, audit service.AuditWriter) *PaymentHandler {
	return &PaymentHandler{payments: payments, redemptions: redemptions, paymentRepo: paymentRepo, audit: audit}
}

// recordAdminAction puts the acting admin on the audit trail for manual
// payment transitions.
func (h *PaymentHandler) recordAdminAction(c *gin.Context, action, ref string) {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "payment",
		ResourceID: ref,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if claims := middleware.GetClaims(c); claims != nil {
		uid := claims.UserID
		entry.UserID = &uid
	}
	_ = h.audit.Create(entry)
}

type createPaymentRequest struct {
	OrderID       string          `json:"order_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	Gateway       string          `json:"gateway" binding:"required"`
	PromotionCode string          `json:"promotion_code"`
}

// Create opens a payment; an optional promotion code is reserved first and
// handed to the service, so the gateway is charged the discounted amount and
// a failed reservation creates nothing.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "order_id, amount and gateway are required")
		return
	}
	if !req.Amount.IsPositive() {
		respondBadRequest(c, "amount must be positive")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	userID := middleware.GetUserID(c)

	var usage *models.PromotionUsage
	if req.PromotionCode != "" {
		u, err := h.redemptions.Reserve(c.Request.Context(), req.PromotionCode, req.OrderID, service.RequestMeta{
			UserID:    userID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		usage = u
	}

	p, checkoutURL, err := h.payments.Create(c.Request.Context(), req.OrderID, userID, req.Amount, req.Currency, req.Gateway, usage)
	if err != nil {
		if usage != nil {
			_ = h.redemptions.Release(usage.ID, domain.UsageCancelled)
		}
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"payment": p, "checkout_url": checkoutURL})
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payments.Get(c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	txns, err := h.payments.Transactions(p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"payment": p, "transactions": txns})
}

func (h *PaymentHandler) ListMine(c *gin.Context) {
	payments, err := h.paymentRepo.ListByUser(middleware.GetUserID(c), pageLimit(c), pageOffset(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payments)
}

type confirmRequest struct {
	GatewayTxnID string `json:"gateway_txn_id"`
}

func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	_ = c.ShouldBindJSON(&req)
	p, err := h.payments.Confirm(c.Param("ref"), req.GatewayTxnID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recordAdminAction(c, "payment_confirm", p.Reference)
	respondOK(c, p)
}

func (h *PaymentHandler) BeginProcessing(c *gin.Context) {
	p, err := h.payments.BeginProcessing(c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.recordAdminAction(c, "payment_process", p.Reference)
	respondOK(c, p)
}

type failRequest struct {
	Reason    string `json:"reason"`
	ErrorCode string `json:"error_code"`
}

func (h *PaymentHandler) Fail(c *gin.Context) {
	var req failRequest
	_ = c.ShouldBindJSON(&req)
	p, err := h.payments.Fail(c.Param("ref"), req.Reason, req.ErrorCode)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recordAdminAction(c, "payment_fail", p.Reference)
	respondOK(c, p)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)
	p, err := h.payments.Cancel(c.Param("ref"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount"` // nil = full remaining
	Reason string           `json:"reason"`
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	var req refundRequest
	_ = c.ShouldBindJSON(&req)
	p, err := h.payments.Refund(c.Request.Context(), c.Param("ref"), req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recordAdminAction(c, "payment_refund", p.Reference)
	respondOK(c, p)
}

type attachDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// AttachDiscount reserves the code against the payment's order and applies it.
func (h *PaymentHandler) AttachDiscount(c *gin.Context) {
	var req attachDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code is required")
		return
	}
	p, err := h.payments.Get(c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	usage, err := h.redemptions.Reserve(c.Request.Context(), req.Code, p.OrderID, service.RequestMeta{
		UserID:    middleware.GetUserID(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	p, err = h.payments.AttachDiscount(p.Reference, usage)
	if err != nil {
		// The reservation must not outlive a failed attach.
		_ = h.redemptions.Release(usage.ID, domain.UsageCancelled)
		respondError(c, err)
		return
	}
	respondOK(c, p)
}

// DetachDiscount removes the promotion and restores the original amount.
func (h *PaymentHandler) DetachDiscount(c *gin.Context) {
	p, err := h.payments.DetachDiscount(c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, p)
}
