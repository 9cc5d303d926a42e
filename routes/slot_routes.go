package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mwangikib/tutorspace/handlers"
	"github.com/mwangikib/tutorspace/middleware"
)

func SlotRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	slots := api.Group("/slots", middleware.Protected())
	slots.Get("/available", handlers.ListAvailableSlots)
	slots.Get("/:slotId", handlers.GetSlot)

	teacherSlots := api.Group("/slots", middleware.Protected(), middleware.TeacherRequired())
	teacherSlots.Post("", handlers.CreateSlot)
	teacherSlots.Patch("/:slotId", handlers.UpdateSlot)
	teacherSlots.Delete("/:slotId", handlers.DeleteSlot)
}
