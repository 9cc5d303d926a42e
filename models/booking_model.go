package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// A slot can carry at most one live (non-cancelled) booking. The partial
// unique index below is the single source of truth for that rule: a racing
// insert loses with a duplicate-key error instead of double-booking the slot.
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SlotID     uuid.UUID  `gorm:"not null;uniqueIndex:udx_bookings_live_slot,where:canceled_at IS NULL" json:"slot_id"`
	BookedByID uuid.UUID  `gorm:"not null;index" json:"booked_by_id"`
	OrderID    *uuid.UUID `gorm:"index" json:"order_id"`

	Subject     *string `gorm:"size:255" json:"subject"`
	Description *string `gorm:"type:text" json:"description"`
	HelpType    *string `gorm:"size:50" json:"help_type"`

	CanceledAt *time.Time `json:"canceled_at"`

	Slot     Slot `gorm:"foreignkey:SlotID" json:"slot,omitempty"`
	BookedBy User `gorm:"foreignkey:BookedByID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Live reports whether the booking still holds its slot.
func (b *Booking) Live() bool {
	return b.CanceledAt == nil
}
