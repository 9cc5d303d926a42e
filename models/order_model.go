package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPending           = "pending"
	OrderStatusWaitingForPayment = "waiting_for_payment"
	OrderStatusPaid              = "paid"
	OrderStatusFailed            = "failed"
)

// Order aggregates a student's bookings into a single payable unit. A student
// holds at most one open (pending or waiting_for_payment) order at a time,
// enforced by the partial unique index on booker_id. Orders are never
// deleted, only status-transitioned.
type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderNumber string    `gorm:"size:32;not null;uniqueIndex" json:"order_number"`
	BookerID    uuid.UUID `gorm:"not null;uniqueIndex:udx_orders_open_booker,where:status = 'pending' OR status = 'waiting_for_payment'" json:"booker_id"`
	Status      string    `gorm:"size:30;not null;default:'pending'" json:"status"`

	CheckoutSessionID *string    `gorm:"size:255" json:"checkout_session_id"`
	CheckoutExpiresAt *time.Time `json:"checkout_expires_at"`
	PaymentIntentID   *string    `gorm:"size:255" json:"payment_intent_id"`
	PaymentMethod     *string    `gorm:"size:50" json:"payment_method"`
	PaidAt            *time.Time `json:"paid_at"`

	TotalOriginal   decimal.Decimal `gorm:"type:numeric(16,6);not null;default:0" json:"total_original"`
	TotalDiscounted decimal.Decimal `gorm:"type:numeric(16,6);not null;default:0" json:"total_discounted"`
	TotalReduction  decimal.Decimal `gorm:"type:numeric(16,6);not null;default:0" json:"total_reduction"`

	Bookings []Booking `gorm:"foreignkey:OrderID" json:"bookings,omitempty"`
	Booker   User      `gorm:"foreignkey:BookerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Open reports whether the order can still accept bookings or enter checkout.
func (o *Order) Open() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusWaitingForPayment
}
