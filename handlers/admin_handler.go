package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateTaxRateRequest struct {
	RatePercent string `json:"rate_percent" validate:"required"`
	StartsAt    string `json:"starts_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func CreateTaxRate(c *fiber.Ctx) error {
	var req CreateTaxRateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rate, err := decimal.NewFromString(req.RatePercent)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rate must be a decimal number"})
	}
	startsAt, _ := time.Parse(time.RFC3339, req.StartsAt)

	created, err := taxRateService.CreateTaxRate(rate, startsAt)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func ListTaxRates(c *fiber.Ctx) error {
	rates, err := taxRateService.ListTaxRates()
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(rates)
}

// RunExpirySweep lets an external scheduler trigger the sweep on demand, in
// addition to the in-process cron.
func RunExpirySweep(c *fiber.Ctx) error {
	released, err := orderService.RunExpirySweep()
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"released": released})
}
