package main

import (
	"log"
	"time"

	config "github.com/mwangikib/tutorspace/configs"
	"github.com/mwangikib/tutorspace/database"
	"github.com/mwangikib/tutorspace/handlers"
	"github.com/mwangikib/tutorspace/jobs"
	"github.com/mwangikib/tutorspace/notifications"
	"github.com/mwangikib/tutorspace/routes"
	"github.com/mwangikib/tutorspace/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	checkoutWindow := time.Duration(config.ConfigInt("CHECKOUT_WINDOW_MINUTES", 30)) * time.Minute
	allowOverlap := config.ConfigBool("ALLOW_OVERLAPPING_BOOKINGS", false)

	orderService := services.NewOrderService(database.DB, checkoutWindow)
	slotService := services.NewSlotService(database.DB, allowOverlap)
	bookingService := services.NewBookingService(database.DB, orderService, allowOverlap)
	taxRateService := services.NewTaxRateService(database.DB)

	handlers.Setup(slotService, bookingService, orderService, taxRateService)
	jobs.Init(orderService)

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.ReleaseExpiredCheckouts)
	c.Start()
	log.Println("✅ Cron job for checkout expiry scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "Tutorspace",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to Tutorspace API",
		})
	})

	routes.AuthRoutes(app)
	routes.SlotRoutes(app)
	routes.BookingRoutes(app)
	routes.OrderRoutes(app)
	routes.AdminRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
