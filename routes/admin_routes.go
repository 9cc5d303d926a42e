package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mwangikib/tutorspace/handlers"
	"github.com/mwangikib/tutorspace/middleware"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Post("/tax-rates", handlers.CreateTaxRate)
	admin.Get("/tax-rates", handlers.ListTaxRates)
	admin.Post("/orders/expiry-sweep", handlers.RunExpirySweep)
}
