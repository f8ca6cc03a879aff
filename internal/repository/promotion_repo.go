package repository

import (
	"strings"

	"cartly/internal/models"

	"gorm.io/gorm"
)

type PromotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) Create(p *models.Promotion) error {
	p.Code = strings.ToLower(p.Code)
	return r.db.Create(p).Error
}

func (r *PromotionRepository) GetByID(id uint) (*models.Promotion, error) {
	var p models.Promotion
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByCode matches case-insensitively; codes are stored lowercase.
func (r *PromotionRepository) GetByCode(code string) (*models.Promotion, error) {
	var p models.Promotion
	err := r.db.Where("code = ?", strings.ToLower(strings.TrimSpace(code))).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepository) List(activeOnly bool, limit, offset int) ([]models.Promotion, error) {
	var promos []models.Promotion
	q := r.db.Order("priority DESC, id DESC").Limit(limit).Offset(offset)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Find(&promos).Error
	return promos, err
}

func (r *PromotionRepository) Update(p *models.Promotion) error {
	p.Code = strings.ToLower(p.Code)
	return r.db.Save(p).Error
}

func (r *PromotionRepository) Deactivate(id uint) error {
	return r.db.Model(&models.Promotion{}).Where("id = ?", id).Update("active", false).Error
}

// AutoApplyCandidates returns active auto-apply promotions with stock left,
// best priority first.
func (r *PromotionRepository) AutoApplyCandidates() ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.
		Where("active = ? AND auto_apply = ? AND stock > 0", true, true).
		Order("priority DESC, id ASC").
		Find(&promos).Error
	return promos, err
}

// ReserveStock performs the single atomic conditional decrement that guards
// against overselling: it only succeeds while stock is still positive, so
// concurrent callers racing past eligibility evaluation are serialized here.
func (r *PromotionRepository) ReserveStock(id uint) (bool, error) {
	res := r.db.Model(&models.Promotion{}).
		Where("id = ? AND stock > 0", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - 1"),
			"used_count": gorm.Expr("used_count + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseStock returns one redemption to the pool. The used_count guard keeps
// a stray double-release from driving the counter negative.
func (r *PromotionRepository) ReleaseStock(id uint) error {
	return r.db.Model(&models.Promotion{}).
		Where("id = ? AND used_count > 0", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + 1"),
			"used_count": gorm.Expr("used_count - 1"),
		}).Error
}
