package repository

import (
	"cartly/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a ledger entry. Rows are never updated after creation.
func (r *TransactionRepository) Create(t *models.PaymentTransaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) ListByPayment(paymentID uint) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := r.db.Where("payment_id = ?", paymentID).Order("id ASC").Find(&txns).Error
	return txns, err
}
