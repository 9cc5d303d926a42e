package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
	"github.com/mwangikib/tutorspace/notifications"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingService binds students to slots. The double-booking guard is the
// partial unique index on bookings.slot_id, not an availability check: the
// insert itself is the arbiter, and a duplicate-key error from a racing
// request comes back as ConflictError.
type BookingService struct {
	db           *gorm.DB
	now          func() time.Time
	orders       *OrderService
	allowOverlap bool
}

func NewBookingService(db *gorm.DB, orders *OrderService, allowOverlap bool) *BookingService {
	return &BookingService{db: db, now: time.Now, orders: orders, allowOverlap: allowOverlap}
}

type BookingMetadata struct {
	Subject     *string
	Description *string
	HelpType    *string
}

// BookSlot reserves a slot for a student and attaches the booking to the
// student's open order, creating one when needed. Runs as a single
// transaction: either the booking exists, hangs off an order and the totals
// reflect it, or nothing happened.
func (s *BookingService) BookSlot(studentID, slotID uuid.UUID, meta BookingMetadata) (*models.Booking, error) {
	var booking models.Booking

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Locking the slot row serializes the insert against a concurrent
		// UpdateSlot or DeleteSlot on the same slot.
		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("slot not found")
			}
			return err
		}
		if slot.StartAt.Before(s.now()) {
			return apperrors.Conflict("slot has already started")
		}
		if slot.CreatedByID == studentID {
			return apperrors.Forbidden("you cannot book your own slot")
		}

		if !s.allowOverlap {
			overlapping, err := s.hasOverlappingBooking(tx, studentID, slot)
			if err != nil {
				return err
			}
			if overlapping {
				return apperrors.Conflict("you already hold a booking in this time window")
			}
		}

		booking = models.Booking{
			SlotID:      slot.ID,
			BookedByID:  studentID,
			Subject:     meta.Subject,
			Description: meta.Description,
			HelpType:    meta.HelpType,
		}
		if err := tx.Create(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("slot no longer available")
			}
			return err
		}

		order, err := s.orders.GetOrCreateCurrentOrder(tx, studentID)
		if err != nil {
			return err
		}
		return s.orders.AttachBooking(tx, order, &booking)
	})
	if err != nil {
		return nil, err
	}

	go notifications.NotifyBookingCreated(s.db, &booking)
	return &booking, nil
}

// CancelBooking releases the slot before payment. The owning order keeps
// existing (possibly empty, still pending); a paid order's bookings are
// frozen and cannot be cancelled.
func (s *BookingService) CancelBooking(studentID, bookingID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("booking not found")
			}
			return err
		}
		if booking.BookedByID != studentID {
			return apperrors.Forbidden("this is not your booking")
		}
		if booking.CanceledAt != nil {
			return apperrors.Conflict("booking is already cancelled")
		}

		var orderID *uuid.UUID
		if booking.OrderID != nil {
			// Locked read: a payment confirmation racing this cancel blocks on
			// the order row, so the status seen here holds until commit.
			var order models.Order
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&order, "id = ?", booking.OrderID).Error; err != nil {
				return err
			}
			if order.Status == models.OrderStatusPaid {
				return apperrors.Conflict("booking belongs to a paid order and cannot be cancelled")
			}
			orderID = booking.OrderID
		}

		err := tx.Model(&booking).Updates(map[string]interface{}{
			"canceled_at": s.now(),
			"order_id":    nil,
		}).Error
		if err != nil {
			return err
		}

		if orderID != nil {
			if err := s.orders.DetachBooking(tx, *orderID); err != nil {
				return err
			}
		}

		var slot models.Slot
		if err := tx.First(&slot, "id = ?", booking.SlotID).Error; err == nil {
			go notifications.NotifySlotReleased(s.db, &slot)
		}
		return nil
	})
}

// GetStudentBookings lists a student's live bookings, soonest first.
func (s *BookingService) GetStudentBookings(studentID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Preload("Slot").
		Joins("JOIN slots ON bookings.slot_id = slots.id").
		Where("bookings.booked_by_id = ? AND bookings.canceled_at IS NULL", studentID).
		Order("slots.start_at asc").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// hasOverlappingBooking reports whether the student already holds a live
// booking whose slot collides with the given time window.
func (s *BookingService) hasOverlappingBooking(tx *gorm.DB, studentID uuid.UUID, slot models.Slot) (bool, error) {
	var count int64
	err := tx.Model(&models.Booking{}).
		Joins("JOIN slots ON bookings.slot_id = slots.id").
		Where("bookings.booked_by_id = ? AND bookings.canceled_at IS NULL", studentID).
		Where("slots.start_at < ? AND slots.end_at > ?", slot.EndAt, slot.StartAt).
		Count(&count).Error
	return count > 0, err
}
