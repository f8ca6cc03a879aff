package repository

import (
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"

	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Create(u *models.PromotionUsage) error {
	return r.db.Create(u).Error
}

func (r *UsageRepository) GetByID(id uint) (*models.PromotionUsage, error) {
	var u models.PromotionUsage
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActiveByOrderID finds the APPLIED redemption for an order, if any.
func (r *UsageRepository) GetActiveByOrderID(orderID string) (*models.PromotionUsage, error) {
	var u models.PromotionUsage
	err := r.db.Where("active_order_id = ?", orderID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountAppliedByUser counts APPLIED redemptions only; cancelled and refunded
// ones give the user their attempt back.
func (r *UsageRepository) CountAppliedByUser(promotionID, userID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND user_id = ? AND status = ?", promotionID, userID, domain.UsageApplied).
		Count(&c).Error
	return c, err
}

func (r *UsageRepository) ListByUser(userID uint, limit, offset int) ([]models.PromotionUsage, error) {
	var usages []models.PromotionUsage
	err := r.db.Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&usages).Error
	return usages, err
}

// MarkTerminal moves an APPLIED usage to CANCELLED or REFUNDED exactly once.
// The status precondition makes the transition one-shot: a second caller gets
// zero rows affected and must not release stock again.
func (r *UsageRepository) MarkTerminal(id uint, status domain.UsageStatus, at time.Time) (bool, error) {
	fields := map[string]interface{}{
		"status":          status,
		"active_order_id": nil,
	}
	switch status {
	case domain.UsageCancelled:
		fields["cancelled_at"] = at
	case domain.UsageRefunded:
		fields["refunded_at"] = at
	}
	res := r.db.Model(&models.PromotionUsage{}).
		Where("id = ? AND status = ?", id, domain.UsageApplied).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
