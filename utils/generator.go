package utils

import (
	"fmt"
	"time"

	"github.com/mwangikib/tutorspace/models"
	"gorm.io/gorm"
)

// FormatOrderNumber renders the human-readable order number for the given
// day and daily sequence, e.g. ORD-20260831-0007.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}

// NextOrderNumber proposes the next order number for the day: one past the
// number of orders already created today. The candidate is not reserved.
// The unique index on orders.order_number is the real guarantee, and the
// caller retries with a fresh candidate when the insert loses a race.
func NextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int64
	err := tx.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return FormatOrderNumber(now, count+1), nil
}
