package notifications

import (
	"fmt"
	"log"
	"time"

	"github.com/mwangikib/tutorspace/models"
	"gorm.io/gorm"
)

// Event helpers for the core's fire-and-forget notifications. Each resolves
// the affected users itself so callers only hand over the entity they just
// touched; lookup failures are logged and dropped.

func NotifyBookingCreated(db *gorm.DB, booking *models.Booking) {
	var slot models.Slot
	if err := db.Preload("CreatedBy").First(&slot, "id = ?", booking.SlotID).Error; err != nil {
		log.Printf("Notification skipped, cannot load slot %s: %v", booking.SlotID, err)
		return
	}
	var student models.User
	if err := db.First(&student, "id = ?", booking.BookedByID).Error; err != nil {
		log.Printf("Notification skipped, cannot load student %s: %v", booking.BookedByID, err)
		return
	}

	when := slot.StartAt.Format(time.RFC1123)
	SendEmail(student.FullName, student.Email, "Your Reservation Is In!",
		fmt.Sprintf("<h1>Slot Reserved</h1><p>Your session on %s is reserved. Complete checkout before the payment window closes to keep it.</p>", when))
	SendEmail(slot.CreatedBy.FullName, slot.CreatedBy.Email, "A Student Reserved Your Slot",
		fmt.Sprintf("<h1>New Reservation</h1><p>A student reserved your session on %s. It is confirmed once their order is paid.</p>", when))
}

func NotifyOrderPaid(db *gorm.DB, order *models.Order) {
	var booker models.User
	if err := db.First(&booker, "id = ?", order.BookerID).Error; err != nil {
		log.Printf("Notification skipped, cannot load booker %s: %v", order.BookerID, err)
		return
	}

	SendEmail(booker.FullName, booker.Email, "Payment Received for Order "+order.OrderNumber,
		fmt.Sprintf("<h1>Order Paid</h1><p>Your payment for order %s was received. Total: %s. Your sessions are confirmed.</p>",
			order.OrderNumber, order.TotalDiscounted.StringFixed(2)))
}

func NotifySlotReleased(db *gorm.DB, slot *models.Slot) {
	var teacher models.User
	if err := db.First(&teacher, "id = ?", slot.CreatedByID).Error; err != nil {
		log.Printf("Notification skipped, cannot load teacher %s: %v", slot.CreatedByID, err)
		return
	}

	SendEmail(teacher.FullName, teacher.Email, "Your Slot Is Available Again",
		fmt.Sprintf("<h1>Slot Released</h1><p>The reservation for your session on %s was released. The slot is bookable again.</p>",
			slot.StartAt.Format(time.RFC1123)))
}
