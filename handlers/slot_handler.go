package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/services"
	"github.com/shopspring/decimal"
)

type CreateSlotRequest struct {
	StartTime string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime   string `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Price     string `json:"price" validate:"required"`
	Reduction *int   `json:"reduction,omitempty"`
	SlotType  string `json:"slot_type" validate:"omitempty,oneof=in_person remote"`
}

type UpdateSlotRequest struct {
	StartTime *string `json:"start_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime   *string `json:"end_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Price     *string `json:"price,omitempty"`
	Reduction *int    `json:"reduction,omitempty"`
	SlotType  *string `json:"slot_type,omitempty" validate:"omitempty,oneof=in_person remote"`
}

func CreateSlot(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	var req CreateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be a decimal number"})
	}
	startTime, _ := time.Parse(time.RFC3339, req.StartTime)
	endTime, _ := time.Parse(time.RFC3339, req.EndTime)

	slot, err := slotService.CreateSlot(teacherID, services.CreateSlotParams{
		StartAt:   startTime,
		EndAt:     endTime,
		Price:     price,
		Reduction: req.Reduction,
		SlotType:  req.SlotType,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(slot)
}

func UpdateSlot(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	slotID, err := uuid.Parse(c.Params("slotId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	var req UpdateSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	params := services.UpdateSlotParams{
		Reduction: req.Reduction,
		SlotType:  req.SlotType,
	}
	if req.StartTime != nil {
		t, _ := time.Parse(time.RFC3339, *req.StartTime)
		params.StartAt = &t
	}
	if req.EndTime != nil {
		t, _ := time.Parse(time.RFC3339, *req.EndTime)
		params.EndAt = &t
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Price must be a decimal number"})
		}
		params.Price = &price
	}

	slot, err := slotService.UpdateSlot(slotID, teacherID, params)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(slot)
}

func DeleteSlot(c *fiber.Ctx) error {
	teacherID := currentUserID(c)

	slotID, err := uuid.Parse(c.Params("slotId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	if err := slotService.DeleteSlot(slotID, teacherID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Slot deleted successfully"})
}

func GetSlot(c *fiber.Ctx) error {
	slotID, err := uuid.Parse(c.Params("slotId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid slot id"})
	}

	slot, err := slotService.GetSlotByID(slotID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(slot)
}

// ListAvailableSlots answers the student-facing availability search. The
// window defaults to the next 30 days.
func ListAvailableSlots(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	from := time.Now()
	to := from.Add(30 * 24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from must be RFC3339"})
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to must be RFC3339"})
		}
		to = t
	}

	slots, err := slotService.ListAvailableSlots(&studentID, from, to)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(slots)
}
