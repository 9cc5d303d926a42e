package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/services"
)

var validate = validator.New()

var (
	slotService    *services.SlotService
	bookingService *services.BookingService
	orderService   *services.OrderService
	taxRateService *services.TaxRateService
)

// Setup wires the services the handlers call. Called once from main.
func Setup(slots *services.SlotService, bookings *services.BookingService, orders *services.OrderService, taxRates *services.TaxRateService) {
	slotService = slots
	bookingService = bookings
	orderService = orders
	taxRateService = taxRates
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	return userID
}

// respondError maps a service error onto the HTTP boundary. Anything outside
// the apperrors taxonomy is a storage or programming fault and answers 500.
func respondError(c *fiber.Ctx, err error) error {
	code := apperrors.StatusCode(err)
	if code == fiber.StatusInternalServerError {
		log.Printf("🔥 Unexpected error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(code).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
