package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SlotTypeInPerson = "in_person"
	SlotTypeRemote   = "remote"
)

type Slot struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CreatedByID uuid.UUID       `gorm:"not null;index" json:"created_by_id"`
	StartAt     time.Time       `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time       `gorm:"not null" json:"end_at"`
	Price       decimal.Decimal `gorm:"type:numeric(16,6);not null" json:"price"`
	Reduction   *int            `gorm:"" json:"reduction"`
	SlotType    string          `gorm:"size:20;not null;default:'remote'" json:"slot_type"`

	CreatedBy User `gorm:"foreignkey:CreatedByID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Slot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
