package models

import (
	"encoding/json"
	"time"

	"cartly/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Promotion struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	Code           string              `gorm:"size:64;uniqueIndex;not null" json:"code"` // stored lowercase, matched case-insensitively
	Name           string              `gorm:"size:255" json:"name"`
	Description    string              `gorm:"type:text" json:"description"`
	Kind           domain.DiscountKind `gorm:"size:20;not null" json:"kind"`
	Percent        decimal.Decimal     `gorm:"type:decimal(5,2);default:0" json:"percent"`
	DiscountAmount decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"discount_amount"`
	MaxDiscount    decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"max_discount"` // 0 = uncapped
	MinOrderAmount decimal.Decimal     `gorm:"type:decimal(12,2);default:0" json:"min_order_amount"`
	UserGroup      string              `gorm:"size:50" json:"user_group"` // empty = any group

	// Applicability sets, stored as JSON arrays of ids. Empty = no constraint.
	ApplicableProducts   string `gorm:"type:text" json:"applicable_products"`
	ApplicableCategories string `gorm:"type:text" json:"applicable_categories"`
	ExcludedCategories   string `gorm:"type:text" json:"excluded_categories"`
	ApplicableBrands     string `gorm:"type:text" json:"applicable_brands"`
	ExcludedBrands       string `gorm:"type:text" json:"excluded_brands"`

	FirstTimeOnly  bool                `gorm:"default:false" json:"first_time_only"`
	MaxUsesPerUser int                 `gorm:"default:0" json:"max_uses_per_user"` // 0 = unlimited
	StartsAt       time.Time           `json:"starts_at"`
	EndsAt         time.Time           `json:"ends_at"`
	Stock          int                 `gorm:"not null;default:0" json:"stock"`
	UsedCount      int                 `gorm:"not null;default:0" json:"used_count"`
	Active         bool                `gorm:"default:true;index" json:"active"`
	Featured       bool                `gorm:"default:false" json:"featured"`
	Stackable      bool                `gorm:"default:false" json:"stackable"`
	AutoApply      bool                `gorm:"default:false;index" json:"auto_apply"`
	Priority       int                 `gorm:"default:0" json:"priority"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (Promotion) TableName() string {
	return "promotions"
}

// IDList decodes a JSON id-array column; malformed or empty input yields nil.
func IDList(s string) []uint {
	if s == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}
