package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mwangikib/tutorspace/handlers"
	"github.com/mwangikib/tutorspace/middleware"
)

func OrderRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	orders := api.Group("/orders", middleware.Protected())
	orders.Get("/current", handlers.GetCurrentOrder)
	orders.Post("/:orderId/checkout", handlers.StartCheckout)
	orders.Post("/:orderId/reset", handlers.ResetCheckout)
	orders.Get("/:orderId/invoice", handlers.GetOrderInvoice)

	// The gateway calls back unauthenticated; it only knows the checkout
	// session reference handed out at StartCheckout.
	api.Post("/payments/webhook", handlers.HandlePaymentWebhook)
}
