package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotService owns slot records: creation, modification, deletion and
// availability queries. A slot is only mutable by its creator while it is
// unbooked and still in the future.
type SlotService struct {
	db  *gorm.DB
	now func() time.Time

	// allowOverlap controls whether ListAvailableSlots hides slots that
	// overlap a window the student has already booked elsewhere, and whether
	// BookSlot accepts such slots. Policy flag, not a hard invariant.
	allowOverlap bool
}

func NewSlotService(db *gorm.DB, allowOverlap bool) *SlotService {
	return &SlotService{db: db, now: time.Now, allowOverlap: allowOverlap}
}

type CreateSlotParams struct {
	StartAt   time.Time
	EndAt     time.Time
	Price     decimal.Decimal
	Reduction *int
	SlotType  string
}

type UpdateSlotParams struct {
	StartAt   *time.Time
	EndAt     *time.Time
	Price     *decimal.Decimal
	Reduction *int
	SlotType  *string
}

func validateSlotFields(start, end time.Time, price decimal.Decimal, reduction *int, slotType string) error {
	if !start.Before(end) {
		return apperrors.Validation("slot start time must be before end time")
	}
	if price.IsNegative() {
		return apperrors.Validation("slot price must not be negative")
	}
	if reduction != nil && (*reduction < 0 || *reduction > 100) {
		return apperrors.Validation("slot reduction must be between 0 and 100")
	}
	if slotType != models.SlotTypeInPerson && slotType != models.SlotTypeRemote {
		return apperrors.Validation("slot type must be %s or %s", models.SlotTypeInPerson, models.SlotTypeRemote)
	}
	return nil
}

func (s *SlotService) CreateSlot(creatorID uuid.UUID, p CreateSlotParams) (*models.Slot, error) {
	if p.SlotType == "" {
		p.SlotType = models.SlotTypeRemote
	}
	if err := validateSlotFields(p.StartAt, p.EndAt, p.Price, p.Reduction, p.SlotType); err != nil {
		return nil, err
	}

	slot := models.Slot{
		CreatedByID: creatorID,
		StartAt:     p.StartAt,
		EndAt:       p.EndAt,
		Price:       p.Price,
		Reduction:   p.Reduction,
		SlotType:    p.SlotType,
	}
	if err := s.db.Create(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *SlotService) GetSlotByID(slotID uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	if err := s.db.First(&slot, "id = ?", slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("slot not found")
		}
		return nil, err
	}
	return &slot, nil
}

// hasLiveBooking reports whether a non-cancelled booking holds the slot.
func hasLiveBooking(tx *gorm.DB, slotID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.Booking{}).
		Where("slot_id = ? AND canceled_at IS NULL", slotID).
		Count(&count).Error
	return count > 0, err
}

func (s *SlotService) UpdateSlot(slotID, requesterID uuid.UUID, p UpdateSlotParams) (*models.Slot, error) {
	var updated models.Slot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// The row lock serializes against BookSlot, which locks the same row
		// before inserting: the live-booking check below cannot go stale.
		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("slot not found")
			}
			return err
		}
		if slot.CreatedByID != requesterID {
			return apperrors.Forbidden("only the slot's creator may modify it")
		}
		if slot.StartAt.Before(s.now()) {
			return apperrors.Conflict("slot has already started and can no longer be modified")
		}
		booked, err := hasLiveBooking(tx, slot.ID)
		if err != nil {
			return err
		}
		if booked {
			return apperrors.Conflict("slot has an active booking and can no longer be modified")
		}

		if p.StartAt != nil {
			slot.StartAt = *p.StartAt
		}
		if p.EndAt != nil {
			slot.EndAt = *p.EndAt
		}
		if p.Price != nil {
			slot.Price = *p.Price
		}
		if p.Reduction != nil {
			slot.Reduction = p.Reduction
		}
		if p.SlotType != nil {
			slot.SlotType = *p.SlotType
		}
		if err := validateSlotFields(slot.StartAt, slot.EndAt, slot.Price, slot.Reduction, slot.SlotType); err != nil {
			return err
		}

		if err := tx.Save(&slot).Error; err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *SlotService) DeleteSlot(slotID, requesterID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var slot models.Slot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&slot, "id = ?", slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("slot not found")
			}
			return err
		}
		if slot.CreatedByID != requesterID {
			return apperrors.Forbidden("only the slot's creator may delete it")
		}
		booked, err := hasLiveBooking(tx, slot.ID)
		if err != nil {
			return err
		}
		if booked {
			return apperrors.Conflict("slot has an active booking and cannot be deleted")
		}
		if slot.StartAt.Before(s.now()) {
			return apperrors.Conflict("slot has already started and cannot be deleted")
		}

		return tx.Delete(&slot).Error
	})
}

// ListAvailableSlots returns slots inside [from, to) that carry no live
// booking. With a student id and overlap disallowed, slots colliding with
// the student's own live bookings are filtered out too.
func (s *SlotService) ListAvailableSlots(forStudentID *uuid.UUID, from, to time.Time) ([]models.Slot, error) {
	q := s.db.
		Where("start_at >= ? AND start_at < ?", from, to).
		Where("NOT EXISTS (SELECT 1 FROM bookings WHERE bookings.slot_id = slots.id AND bookings.canceled_at IS NULL)").
		Order("start_at asc")

	if forStudentID != nil && !s.allowOverlap {
		q = q.Where(
			"NOT EXISTS (SELECT 1 FROM bookings b JOIN slots held ON b.slot_id = held.id "+
				"WHERE b.booked_by_id = ? AND b.canceled_at IS NULL "+
				"AND held.start_at < slots.end_at AND held.end_at > slots.start_at)",
			*forStudentID,
		)
	}

	var slots []models.Slot
	if err := q.Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}
