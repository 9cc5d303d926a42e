package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRate rows are append-only: the rate in effect at a point in time is the
// most recently started one at or before it. Superseded rates stay untouched
// so historical invoices keep their original tax.
type TaxRate struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	RatePercent decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"rate_percent"`
	StartsAt    time.Time       `gorm:"not null;index" json:"starts_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *TaxRate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
