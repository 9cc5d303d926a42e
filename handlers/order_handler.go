package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func GetCurrentOrder(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	order, err := orderService.GetCurrentOrder(studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}

// StartCheckout opens the payment window on the student's pending order and
// hands back the checkout session reference an external gateway needs.
func StartCheckout(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order id"})
	}

	order, err := orderService.StartCheckout(orderID, studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"checkout_session_id": order.CheckoutSessionID,
		"expires_at":          order.CheckoutExpiresAt,
		"order":               order,
	})
}

func ResetCheckout(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order id"})
	}

	order, err := orderService.ResetCheckout(orderID, studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(order)
}

func GetOrderInvoice(c *fiber.Ctx) error {
	studentID := currentUserID(c)

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order id"})
	}

	invoice, err := taxRateService.OrderInvoice(orderID, studentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(invoice)
}
