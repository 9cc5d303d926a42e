package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite database with the same error
// translation the production Postgres connection uses, so unique-violation
// handling behaves identically. A single connection keeps concurrent test
// writes serialized the way Postgres row-level conflicts would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Slot{},
		&models.Booking{},
		&models.Order{},
		&models.TaxRate{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()

	user := models.User{
		FullName: role + " " + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "not-a-real-hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create %s: %v", role, err)
	}
	return &user
}

func createSlot(t *testing.T, db *gorm.DB, teacherID uuid.UUID, startsIn time.Duration, price string, reduction *int) *models.Slot {
	t.Helper()

	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("parse price %q: %v", price, err)
	}
	start := time.Now().UTC().Add(startsIn)
	slot := models.Slot{
		CreatedByID: teacherID,
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		Price:       p,
		Reduction:   reduction,
		SlotType:    models.SlotTypeRemote,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return &slot
}

func intPtr(v int) *int {
	return &v
}

// fixedClock pins a service's notion of now and can be advanced from tests.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}
