package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
)

// PaymentWebhookPayload is what the external payment gateway posts back:
// the checkout session it was handed at StartCheckout, its own intent
// reference, and the outcome.
type PaymentWebhookPayload struct {
	CheckoutSessionID string `json:"checkout_session_id" validate:"required"`
	PaymentIntentID   string `json:"payment_intent_id"`
	PaymentMethod     string `json:"payment_method"`
	Outcome           string `json:"outcome" validate:"required,oneof=succeeded failed"`
}

// HandlePaymentWebhook translates a gateway callback into the order state
// machine. Replays are acknowledged without effect: a transition refused
// because the order already left waiting_for_payment answers 200.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	var payload PaymentWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	if err := validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	order, err := orderService.FindOrderByCheckoutSession(payload.CheckoutSessionID)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("Received payment webhook for order %s: %s", order.OrderNumber, payload.Outcome)

	if payload.Outcome == "succeeded" {
		if _, err := orderService.ConfirmPayment(order.ID, payload.PaymentIntentID, payload.PaymentMethod); err != nil {
			if apperrors.IsInvalidState(err) && order.Status == models.OrderStatusPaid {
				return c.JSON(fiber.Map{"message": "Webhook already processed"})
			}
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Payment confirmed"})
	}

	if _, err := orderService.FailPayment(order.ID); err != nil {
		if apperrors.IsInvalidState(err) {
			return c.JSON(fiber.Map{"message": "Acknowledged, order no longer open"})
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Acknowledged failed payment"})
}
