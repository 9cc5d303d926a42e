package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/services"
)

type CreateBookingRequest struct {
	SlotID      string  `json:"slot_id" validate:"required,uuid"`
	Subject     *string `json:"subject,omitempty"`
	Description *string `json:"description,omitempty"`
	HelpType    *string `json:"help_type,omitempty" validate:"omitempty,oneof=homework exam_prep general"`
}

func CreateBooking(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	slotID, _ := uuid.Parse(req.SlotID)

	booking, err := bookingService.BookSlot(studentID, slotID, services.BookingMetadata{
		Subject:     req.Subject,
		Description: req.Description,
		HelpType:    req.HelpType,
	})
	if err != nil {
		return respondError(c, err)
	}

	order, err := orderService.GetCurrentOrder(studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"booking": booking,
		"order":   order,
	})
}

func CancelBooking(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	if err := bookingService.CancelBooking(studentID, bookingID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Booking cancelled and slot released"})
}

func GetMyBookings(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	bookings, err := bookingService.GetStudentBookings(studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(bookings)
}
