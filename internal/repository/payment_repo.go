package repository

import (
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReference(ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("reference = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByUser(userID uint, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&payments).Error
	return payments, err
}

// UpdateFromStatus saves the payment only if its stored status still matches
// what the caller read. Zero rows affected means another transition committed
// first; the caller reports a state conflict instead of overwriting it.
func (r *PaymentRepository) UpdateFromStatus(p *models.Payment, expect domain.PaymentStatus) (bool, error) {
	res := r.db.Model(p).
		Where("status = ?", expect).
		Select("*").Omit("id", "reference", "created_at", "deleted_at").
		Updates(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateFromRefundState is UpdateFromStatus with the refund accounting in the
// precondition. A partial refund on a PARTIALLY_REFUNDED payment does not
// change the status, so status alone cannot serialize two concurrent refunds;
// the balance the caller read has to still be the balance on disk.
func (r *PaymentRepository) UpdateFromRefundState(p *models.Payment, expectStatus domain.PaymentStatus, expectRefunded decimal.Decimal) (bool, error) {
	res := r.db.Model(p).
		Where("status = ? AND refunded_amount = ?", expectStatus, expectRefunded).
		Select("*").Omit("id", "reference", "created_at", "deleted_at").
		Updates(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindExpiredPending feeds the expiry sweep.
func (r *PaymentRepository) FindExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.PaymentPending, now).
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
