package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
	"github.com/mwangikib/tutorspace/notifications"
	"github.com/mwangikib/tutorspace/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderNumberAttempts bounds the retry loop when two orders created in the
// same instant propose the same daily sequence number.
const orderNumberAttempts = 5

// OrderService drives the order state machine:
//
//	pending -> waiting_for_payment -> paid
//	waiting_for_payment -> pending   (checkout timeout, or explicit reset)
//	pending|waiting_for_payment -> failed (payment rejected)
//	pending|failed -> pending        (explicit reset, bookings released)
//
// Every transition is a conditional update guarded by the current status, so
// concurrent attempts (say a payment confirmation racing the expiry sweep)
// have at-most-once effect.
type OrderService struct {
	db             *gorm.DB
	now            func() time.Time
	checkoutWindow time.Duration
}

func NewOrderService(db *gorm.DB, checkoutWindow time.Duration) *OrderService {
	return &OrderService{db: db, now: time.Now, checkoutWindow: checkoutWindow}
}

// GetOrCreateCurrentOrder returns the student's open order, creating a fresh
// pending one when none exists. Safe under concurrent creation: the partial
// unique index on booker_id admits a single open order, and the loser of a
// race re-reads the winner's row.
func (s *OrderService) GetOrCreateCurrentOrder(tx *gorm.DB, studentID uuid.UUID) (*models.Order, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		var existing models.Order
		err := tx.Where("booker_id = ? AND status IN ?", studentID,
			[]string{models.OrderStatusPending, models.OrderStatusWaitingForPayment}).
			First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		number, err := utils.NextOrderNumber(tx, s.now())
		if err != nil {
			return nil, err
		}
		order := models.Order{
			OrderNumber: number,
			BookerID:    studentID,
			Status:      models.OrderStatusPending,
		}
		err = tx.Create(&order).Error
		if err == nil {
			return &order, nil
		}
		// Duplicate key: either another request just opened this student's
		// order, or the daily sequence collided. Loop re-reads, then retries
		// with a fresh number.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return nil, err
	}
	return nil, apperrors.Conflict("could not allocate a unique order number")
}

// GetCurrentOrder returns the student's open order with its bookings.
func (s *OrderService) GetCurrentOrder(studentID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.
		Preload("Bookings", "canceled_at IS NULL").
		Preload("Bookings.Slot").
		Where("booker_id = ? AND status IN ?", studentID,
			[]string{models.OrderStatusPending, models.OrderStatusWaitingForPayment}).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no open order")
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) GetOrderByID(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.
		Preload("Bookings", "canceled_at IS NULL").
		Preload("Bookings.Slot").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return &order, nil
}

// FindOrderByCheckoutSession resolves a payment webhook's session reference.
func (s *OrderService) FindOrderByCheckoutSession(sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.First(&order, "checkout_session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no order for checkout session")
		}
		return nil, err
	}
	return &order, nil
}

// AttachBooking adds a booking to an order. Only legal while the order is
// pending; running totals are recomputed immediately.
func (s *OrderService) AttachBooking(tx *gorm.DB, order *models.Order, booking *models.Booking) error {
	if order.Status != models.OrderStatusPending {
		return apperrors.InvalidState("bookings can only be added to a pending order")
	}
	booking.OrderID = &order.ID
	if err := tx.Model(booking).Update("order_id", order.ID).Error; err != nil {
		return err
	}
	return s.recomputeTotals(tx, order.ID)
}

// DetachBooking removes a cancelled booking's contribution from its order.
func (s *OrderService) DetachBooking(tx *gorm.DB, orderID uuid.UUID) error {
	return s.recomputeTotals(tx, orderID)
}

// recomputeTotals refreshes the running totals from the order's live
// bookings. Never called once an order is paid: the paid transition freezes
// the totals for invoicing.
func (s *OrderService) recomputeTotals(tx *gorm.DB, orderID uuid.UUID) error {
	var bookings []models.Booking
	err := tx.Preload("Slot").
		Where("order_id = ? AND canceled_at IS NULL", orderID).
		Find(&bookings).Error
	if err != nil {
		return err
	}

	totals := ComputeOrderTotals(bookings)
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"total_original":   totals.Original,
		"total_discounted": totals.Discounted,
		"total_reduction":  totals.Reduction,
	}).Error
}

// StartCheckout opens the payment window: pending -> waiting_for_payment
// with a checkout session reference and an expiry timestamp.
func (s *OrderService) StartCheckout(orderID, requesterID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.BookerID != requesterID {
		return nil, apperrors.Forbidden("this is not your order")
	}
	if len(order.Bookings) == 0 {
		return nil, apperrors.Validation("order has no bookings to pay for")
	}

	sessionID := uuid.NewString()
	expiresAt := s.now().Add(s.checkoutWindow)

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":              models.OrderStatusWaitingForPayment,
			"checkout_session_id": sessionID,
			"checkout_expires_at": expiresAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.InvalidState("checkout can only start on a pending order")
	}

	return s.GetOrderByID(orderID)
}

// ConfirmPayment applies the gateway's success outcome:
// waiting_for_payment -> paid. The totals are recomputed from the live
// bookings one final time and frozen together with the payment date, so the
// invoice survives later changes to the underlying slots.
func (s *OrderService) ConfirmPayment(orderID uuid.UUID, paymentIntentID, paymentMethod string) (*models.Order, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusWaitingForPayment).
			Updates(map[string]interface{}{
				"status":            models.OrderStatusPaid,
				"payment_intent_id": paymentIntentID,
				"payment_method":    paymentMethod,
				"paid_at":           s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.transitionRefused(tx, orderID, "payment can only be confirmed while waiting for payment")
		}
		return s.recomputeTotals(tx, orderID)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	go notifications.NotifyOrderPaid(s.db, order)
	return order, nil
}

// FailPayment applies the gateway's rejection: pending or
// waiting_for_payment -> failed. The checkout window closes but the session
// reference is kept, so a replayed failure webhook still resolves the order
// and gets acknowledged instead of a 404. Bookings stay attached; the
// student can reset the order and start over.
func (s *OrderService) FailPayment(orderID uuid.UUID) (*models.Order, error) {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID,
			[]string{models.OrderStatusPending, models.OrderStatusWaitingForPayment}).
		Updates(map[string]interface{}{
			"status":              models.OrderStatusFailed,
			"checkout_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.transitionRefused(s.db, orderID, "payment can only fail on an open order"); err != nil {
			return nil, err
		}
	}
	return s.GetOrderByID(orderID)
}

// ResetCheckout is the student abandoning the current attempt. From
// waiting_for_payment it behaves like a timeout: back to pending with the
// bookings kept. From pending or failed it empties the order: every booking
// is cancelled, its slot released, and the totals cleared.
func (s *OrderService) ResetCheckout(orderID, requesterID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.BookerID != requesterID {
		return nil, apperrors.Forbidden("this is not your order")
	}

	switch order.Status {
	case models.OrderStatusWaitingForPayment:
		res := s.db.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusWaitingForPayment).
			Updates(map[string]interface{}{
				"status":              models.OrderStatusPending,
				"checkout_session_id": nil,
				"checkout_expires_at": nil,
				"payment_intent_id":   nil,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race with the payment webhook or the sweep.
			return nil, apperrors.InvalidState("order changed state during reset")
		}

	case models.OrderStatusPending, models.OrderStatusFailed:
		var released []models.Booking
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Slot").
				Where("order_id = ? AND canceled_at IS NULL", orderID).
				Find(&released).Error; err != nil {
				return err
			}

			res := tx.Model(&models.Order{}).
				Where("id = ? AND status IN ?", orderID,
					[]string{models.OrderStatusPending, models.OrderStatusFailed}).
				Updates(map[string]interface{}{
					"status":              models.OrderStatusPending,
					"checkout_session_id": nil,
					"checkout_expires_at": nil,
					"payment_intent_id":   nil,
					"total_original":      decimal.Zero,
					"total_discounted":    decimal.Zero,
					"total_reduction":     decimal.Zero,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.InvalidState("order changed state during reset")
			}

			return tx.Model(&models.Booking{}).
				Where("order_id = ? AND canceled_at IS NULL", orderID).
				Updates(map[string]interface{}{
					"canceled_at": s.now(),
					"order_id":    nil,
				}).Error
		})
		if err != nil {
			return nil, err
		}
		for i := range released {
			go notifications.NotifySlotReleased(s.db, &released[i].Slot)
		}

	default:
		return nil, apperrors.InvalidState("a %s order cannot be reset", order.Status)
	}

	return s.GetOrderByID(orderID)
}

// RunExpirySweep releases every order whose checkout window elapsed without
// a payment confirmation: waiting_for_payment -> pending, checkout fields
// cleared, bookings kept. Idempotent, and a confirmation or a fresh checkout
// racing the sweep wins harmlessly because the per-order update is guarded
// by both the status and the expiry.
// One order's failure is logged and does not abort the batch.
func (s *OrderService) RunExpirySweep() (int, error) {
	now := s.now()

	var expired []uuid.UUID
	err := s.db.Model(&models.Order{}).
		Where("status = ? AND checkout_expires_at IS NOT NULL AND checkout_expires_at <= ?",
			models.OrderStatusWaitingForPayment, now).
		Pluck("id", &expired).Error
	if err != nil {
		return 0, err
	}

	released := 0
	for _, orderID := range expired {
		ok, err := s.releaseIfExpired(orderID, now)
		if err != nil {
			log.Printf("🔥 Expiry sweep failed for order %s: %v", orderID, err)
			continue
		}
		if ok {
			released++
		}
	}

	return released, nil
}

// releaseIfExpired applies the timeout transition to one order. The WHERE
// clause re-checks the expiry, not just the status: an order reset and
// re-checked-out after the sweep listed it carries a fresh window and must
// not be released.
func (s *OrderService) releaseIfExpired(orderID uuid.UUID, now time.Time) (bool, error) {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND checkout_expires_at IS NOT NULL AND checkout_expires_at <= ?",
			orderID, models.OrderStatusWaitingForPayment, now).
		Updates(map[string]interface{}{
			"status":              models.OrderStatusPending,
			"checkout_session_id": nil,
			"checkout_expires_at": nil,
			"payment_intent_id":   nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// transitionRefused turns a zero-rows-affected conditional update into the
// right error: the order is either gone or in a state the transition does
// not accept.
func (s *OrderService) transitionRefused(tx *gorm.DB, orderID uuid.UUID, msg string) error {
	var order models.Order
	if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("order not found")
		}
		return err
	}
	return apperrors.InvalidState("%s (order is %s)", msg, order.Status)
}
