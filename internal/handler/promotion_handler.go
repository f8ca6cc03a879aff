package handler

import (
	"strconv"

	"cartly/internal/domain"
	"cartly/internal/middleware"
	"cartly/internal/models"
	"cartly/internal/repository"
	"cartly/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PromotionHandler struct {
	redemptions *service.RedemptionService
	promoRepo   *repository.PromotionRepository
	usageRepo   *repository.UsageRepository
}

func NewPromotionHandler(redemptions *service.RedemptionService, promoRepo *repository.PromotionRepository, usageRepo *repository.UsageRepository) *PromotionHandler {
	return &PromotionHandler{redemptions: redemptions, promoRepo: promoRepo, usageRepo: usageRepo}
}

type applyRequest struct {
	Code    string `json:"code" binding:"required"`
	OrderID string `json:"order_id" binding:"required"`
}

// Apply reserves a redemption for the order.
func (h *PromotionHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code and order_id are required")
		return
	}
	usage, err := h.redemptions.Reserve(c.Request.Context(), req.Code, req.OrderID, service.RequestMeta{
		UserID:    middleware.GetUserID(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, usage)
}

// Validate runs eligibility without reserving.
func (h *PromotionHandler) Validate(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code and order_id are required")
		return
	}
	discount, err := h.redemptions.Validate(c.Request.Context(), req.Code, req.OrderID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"code": req.Code, "discount_amount": discount})
}

type calculateRequest struct {
	Code        string          `json:"code" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
}

// Calculate computes the discount for a bare amount.
func (h *PromotionHandler) Calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code and amount are required")
		return
	}
	discount, err := h.redemptions.Calculate(req.Code, req.Amount, req.ShippingFee)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"code":            req.Code,
		"discount_amount": discount,
		"final_amount":    req.Amount.Sub(discount),
	})
}

// AutoApply returns the best eligible auto-apply promotion for an order.
func (h *PromotionHandler) AutoApply(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		respondBadRequest(c, "order_id is required")
		return
	}
	promo, discount, err := h.redemptions.AutoApply(c.Request.Context(), orderID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"promotion": promo, "discount_amount": discount})
}

// CancelUsage releases a redemption as CANCELLED. Idempotent.
func (h *PromotionHandler) CancelUsage(c *gin.Context) {
	h.releaseUsage(c, domain.UsageCancelled)
}

// RefundUsage releases a redemption as REFUNDED. Idempotent.
func (h *PromotionHandler) RefundUsage(c *gin.Context) {
	h.releaseUsage(c, domain.UsageRefunded)
}

func (h *PromotionHandler) releaseUsage(c *gin.Context, status domain.UsageStatus) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid usage id")
		return
	}
	if err := h.redemptions.Release(uint(id), status); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"usage_id": id, "status": status})
}

// ListMyUsages returns the caller's redemption history.
func (h *PromotionHandler) ListMyUsages(c *gin.Context) {
	usages, err := h.usageRepo.ListByUser(middleware.GetUserID(c), pageLimit(c), pageOffset(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, usages)
}

// Admin CRUD below.

func (h *PromotionHandler) Create(c *gin.Context) {
	var promo models.Promotion
	if err := c.ShouldBindJSON(&promo); err != nil {
		respondBadRequest(c, "invalid promotion payload")
		return
	}
	if promo.Code == "" || promo.Kind == "" {
		respondBadRequest(c, "code and kind are required")
		return
	}
	if err := h.promoRepo.Create(&promo); err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, promo)
}

func (h *PromotionHandler) List(c *gin.Context) {
	promos, err := h.promoRepo.List(c.Query("active") == "true", pageLimit(c), pageOffset(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, promos)
}

func (h *PromotionHandler) Get(c *gin.Context) {
	promo, err := h.promoRepo.GetByCode(c.Param("code"))
	if err != nil {
		respondError(c, domain.ErrPromoNotFound)
		return
	}
	respondOK(c, promo)
}

func (h *PromotionHandler) Update(c *gin.Context) {
	promo, err := h.promoRepo.GetByCode(c.Param("code"))
	if err != nil {
		respondError(c, domain.ErrPromoNotFound)
		return
	}
	var patch models.Promotion
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid promotion payload")
		return
	}
	// Stock counters are owned by the redemption ledger; edits here must not
	// touch them.
	patch.ID = promo.ID
	patch.Code = promo.Code
	patch.Stock = promo.Stock
	patch.UsedCount = promo.UsedCount
	if err := h.promoRepo.Update(&patch); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, patch)
}

func (h *PromotionHandler) Deactivate(c *gin.Context) {
	promo, err := h.promoRepo.GetByCode(c.Param("code"))
	if err != nil {
		respondError(c, domain.ErrPromoNotFound)
		return
	}
	if err := h.promoRepo.Deactivate(promo.ID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"code": promo.Code, "active": false})
}

func pageLimit(c *gin.Context) int {
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 && n <= 100 {
		return n
	}
	return 20
}

func pageOffset(c *gin.Context) int {
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n >= 0 {
		return n
	}
	return 0
}
