package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func bookOne(t *testing.T, db *gorm.DB, orders *OrderService, studentID uuid.UUID, price string) *models.Order {
	t.Helper()

	teacher := createUser(t, db, "teacher")
	slot := createSlot(t, db, teacher.ID, 24*time.Hour, price, nil)
	bookings := NewBookingService(db, orders, true)
	if _, err := bookings.BookSlot(studentID, slot.ID, BookingMetadata{}); err != nil {
		t.Fatalf("book %s slot: %v", price, err)
	}

	order, err := orders.GetCurrentOrder(studentID)
	if err != nil {
		t.Fatalf("current order: %v", err)
	}
	return order
}

func TestOrderNumberFormatAndUniqueness(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)

	alice := createUser(t, db, "student")
	bob := createUser(t, db, "student")

	a := bookOne(t, db, orders, alice.ID, "10")
	b := bookOne(t, db, orders, bob.ID, "10")

	prefix := "ORD-" + time.Now().Format("20060102") + "-"
	if !strings.HasPrefix(a.OrderNumber, prefix) {
		t.Errorf("order number %q lacks prefix %q", a.OrderNumber, prefix)
	}
	if a.OrderNumber == b.OrderNumber {
		t.Fatalf("two orders share number %q", a.OrderNumber)
	}
}

func TestStartCheckoutSetsWindow(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	clock := &fixedClock{t: time.Now().UTC().Truncate(time.Second)}
	orders.now = clock.Now

	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	checkedOut, err := orders.StartCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if checkedOut.Status != models.OrderStatusWaitingForPayment {
		t.Errorf("status = %q, want waiting_for_payment", checkedOut.Status)
	}
	if checkedOut.CheckoutSessionID == nil || *checkedOut.CheckoutSessionID == "" {
		t.Errorf("checkout session id not set")
	}
	wantExpiry := clock.Now().Add(30 * time.Minute)
	if checkedOut.CheckoutExpiresAt == nil || !checkedOut.CheckoutExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", checkedOut.CheckoutExpiresAt, wantExpiry)
	}
}

func TestStartCheckoutGuards(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	stranger := createUser(t, db, "student")

	_, err := orders.StartCheckout(uuid.New(), student.ID)
	if !apperrors.IsNotFound(err) {
		t.Fatalf("missing order: got %v, want NotFoundError", err)
	}

	order := bookOne(t, db, orders, student.ID, "100")

	_, err = orders.StartCheckout(order.ID, stranger.ID)
	if !apperrors.IsForbidden(err) {
		t.Fatalf("stranger checkout: got %v, want ForbiddenError", err)
	}

	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	_, err = orders.StartCheckout(order.ID, student.ID)
	if !apperrors.IsInvalidState(err) {
		t.Fatalf("checkout twice: got %v, want InvalidStateError", err)
	}
}

func TestIllegalTransitions(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	// Confirming payment on a pending order is not a listed transition.
	_, err := orders.ConfirmPayment(order.ID, "pi_test", "card")
	if !apperrors.IsInvalidState(err) {
		t.Fatalf("confirm on pending: got %v, want InvalidStateError", err)
	}

	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := orders.ConfirmPayment(order.ID, "pi_test", "card"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Paid is terminal.
	if _, err := orders.ConfirmPayment(order.ID, "pi_test", "card"); !apperrors.IsInvalidState(err) {
		t.Fatalf("confirm twice: got %v, want InvalidStateError", err)
	}
	if _, err := orders.FailPayment(order.ID); !apperrors.IsInvalidState(err) {
		t.Fatalf("fail after paid: got %v, want InvalidStateError", err)
	}
	if _, err := orders.ResetCheckout(order.ID, student.ID); !apperrors.IsInvalidState(err) {
		t.Fatalf("reset after paid: got %v, want InvalidStateError", err)
	}
	if _, err := orders.StartCheckout(order.ID, student.ID); !apperrors.IsInvalidState(err) {
		t.Fatalf("checkout after paid: got %v, want InvalidStateError", err)
	}
}

func TestConfirmPaymentSnapshotsTotals(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	bookings := NewBookingService(db, orders, true)
	teacher := createUser(t, db, "teacher")
	student := createUser(t, db, "student")

	fifty := createSlot(t, db, teacher.ID, 24*time.Hour, "50", nil)
	eighty := createSlot(t, db, teacher.ID, 48*time.Hour, "80", nil)
	if _, err := bookings.BookSlot(student.ID, fifty.ID, BookingMetadata{}); err != nil {
		t.Fatalf("book 50: %v", err)
	}
	if _, err := bookings.BookSlot(student.ID, eighty.ID, BookingMetadata{}); err != nil {
		t.Fatalf("book 80: %v", err)
	}

	order, err := orders.GetCurrentOrder(student.ID)
	if err != nil {
		t.Fatalf("current order: %v", err)
	}
	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	paid, err := orders.ConfirmPayment(order.ID, "pi_test", "card")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if paid.Status != models.OrderStatusPaid {
		t.Errorf("status = %q, want paid", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Errorf("paid_at not set")
	}
	if paid.PaymentIntentID == nil || *paid.PaymentIntentID != "pi_test" {
		t.Errorf("payment intent = %v, want pi_test", paid.PaymentIntentID)
	}
	if !paid.TotalOriginal.Equal(decimal.NewFromInt(130)) {
		t.Errorf("TotalOriginal = %s, want 130", paid.TotalOriginal)
	}
	if !paid.TotalDiscounted.Equal(decimal.NewFromInt(130)) {
		t.Errorf("TotalDiscounted = %s, want 130", paid.TotalDiscounted)
	}
	if !paid.TotalReduction.IsZero() {
		t.Errorf("TotalReduction = %s, want 0", paid.TotalReduction)
	}
	if paid.TotalDiscounted.GreaterThan(paid.TotalOriginal) {
		t.Errorf("discounted total exceeds original at payment time")
	}
}

func TestFailPayment(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	failed, err := orders.FailPayment(order.ID)
	if err != nil {
		t.Fatalf("fail payment: %v", err)
	}
	if failed.Status != models.OrderStatusFailed {
		t.Errorf("status = %q, want failed", failed.Status)
	}
	if failed.CheckoutExpiresAt != nil {
		t.Errorf("checkout window not closed on failure")
	}
	if failed.CheckoutSessionID == nil {
		t.Fatalf("session reference dropped on failure")
	}

	// A replayed failure webhook resolves the same session and is refused as
	// a state error, not a lookup miss.
	found, err := orders.FindOrderByCheckoutSession(*failed.CheckoutSessionID)
	if err != nil {
		t.Fatalf("find failed order by session: %v", err)
	}
	if found.ID != order.ID {
		t.Errorf("session resolved to order %s, want %s", found.ID, order.ID)
	}
	if _, err := orders.FailPayment(order.ID); !apperrors.IsInvalidState(err) {
		t.Fatalf("replayed failure: got %v, want InvalidStateError", err)
	}

	// A failed order resets back to pending and is reusable; its bookings
	// are detached and their slots released.
	reset, err := orders.ResetCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("reset failed order: %v", err)
	}
	if reset.Status != models.OrderStatusPending {
		t.Errorf("status after reset = %q, want pending", reset.Status)
	}
	if len(reset.Bookings) != 0 {
		t.Errorf("reset order kept %d bookings, want 0", len(reset.Bookings))
	}
	if !reset.TotalDiscounted.IsZero() || !reset.TotalOriginal.IsZero() {
		t.Errorf("totals not cleared: %s / %s", reset.TotalOriginal, reset.TotalDiscounted)
	}
}

func TestResetCheckoutFromWaitingKeepsBookings(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_intent_id", "pi_stale").Error
	if err != nil {
		t.Fatalf("seed stale intent: %v", err)
	}

	reset, err := orders.ResetCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.Status != models.OrderStatusPending {
		t.Errorf("status = %q, want pending", reset.Status)
	}
	if len(reset.Bookings) != 1 {
		t.Errorf("bookings = %d, want 1 (abandoning checkout keeps the cart)", len(reset.Bookings))
	}
	if reset.CheckoutSessionID != nil || reset.CheckoutExpiresAt != nil {
		t.Errorf("checkout fields not cleared")
	}
	if reset.PaymentIntentID != nil {
		t.Errorf("stale payment intent %q survived the reset", *reset.PaymentIntentID)
	}
}

func TestResetCheckoutFromPendingReleasesSlots(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	bookings := NewBookingService(db, orders, false)
	teacher := createUser(t, db, "teacher")
	student := createUser(t, db, "student")
	rival := createUser(t, db, "student")

	slot := createSlot(t, db, teacher.ID, 24*time.Hour, "100", nil)
	if _, err := bookings.BookSlot(student.ID, slot.ID, BookingMetadata{}); err != nil {
		t.Fatalf("book: %v", err)
	}
	order, err := orders.GetCurrentOrder(student.ID)
	if err != nil {
		t.Fatalf("current order: %v", err)
	}

	reset, err := orders.ResetCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(reset.Bookings) != 0 {
		t.Fatalf("reset pending order kept %d bookings", len(reset.Bookings))
	}

	// The slot must be bookable by someone else now.
	if _, err := bookings.BookSlot(rival.ID, slot.ID, BookingMetadata{}); err != nil {
		t.Fatalf("rebook after reset: %v", err)
	}
}

func TestExpirySweepReleasesTimedOutOrders(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	clock := &fixedClock{t: time.Now().UTC().Truncate(time.Second)}
	orders.now = clock.Now

	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")
	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Before the window elapses the sweep must not touch the order.
	released, err := orders.RunExpirySweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if released != 0 {
		t.Fatalf("sweep released %d orders before expiry", released)
	}

	clock.Advance(31 * time.Minute)

	released, err = orders.RunExpirySweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if released != 1 {
		t.Fatalf("sweep released %d orders, want 1", released)
	}

	swept, err := orders.GetOrderByID(order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if swept.Status != models.OrderStatusPending {
		t.Errorf("status = %q, want pending", swept.Status)
	}
	if len(swept.Bookings) != 1 {
		t.Errorf("bookings = %d, want 1 (timeout keeps the cart)", len(swept.Bookings))
	}
	if swept.CheckoutSessionID != nil || swept.CheckoutExpiresAt != nil {
		t.Errorf("checkout fields not cleared by the sweep")
	}

	// Idempotence: a second run is a no-op.
	released, err = orders.RunExpirySweep()
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if released != 0 {
		t.Fatalf("second sweep released %d orders, want 0", released)
	}
	again, err := orders.GetOrderByID(order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Status != swept.Status || len(again.Bookings) != len(swept.Bookings) {
		t.Errorf("second sweep changed state")
	}
}

// A checkout reset and reopened after the sweep listed the order carries a
// fresh window; the per-order release must re-check the expiry, not just the
// status, and leave it alone.
func TestExpirySweepSparesRefreshedCheckout(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	clock := &fixedClock{t: time.Now().UTC().Truncate(time.Second)}
	orders.now = clock.Now

	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")
	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	clock.Advance(31 * time.Minute)
	sweepNow := clock.Now()

	// The order leaves and re-enters waiting_for_payment before the release
	// reaches it.
	if _, err := orders.ResetCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	refreshed, err := orders.StartCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	released, err := orders.releaseIfExpired(order.ID, sweepNow)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released {
		t.Fatalf("release flipped an order whose window has not elapsed")
	}

	got, err := orders.GetOrderByID(order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.OrderStatusWaitingForPayment {
		t.Errorf("status = %q, want waiting_for_payment", got.Status)
	}
	if got.CheckoutSessionID == nil || *got.CheckoutSessionID != *refreshed.CheckoutSessionID {
		t.Errorf("fresh checkout session was clobbered")
	}
	if got.CheckoutExpiresAt == nil || !got.CheckoutExpiresAt.Equal(sweepNow.Add(30*time.Minute)) {
		t.Errorf("expiry = %v, want %v", got.CheckoutExpiresAt, sweepNow.Add(30*time.Minute))
	}
}

func TestExpirySweepDoesNotTouchPaidOrders(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	clock := &fixedClock{t: time.Now().UTC().Truncate(time.Second)}
	orders.now = clock.Now

	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")
	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := orders.ConfirmPayment(order.ID, "pi_test", "card"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	clock.Advance(31 * time.Minute)
	released, err := orders.RunExpirySweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if released != 0 {
		t.Fatalf("sweep released %d orders, want 0 (payment won the race)", released)
	}

	paid, err := orders.GetOrderByID(order.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if paid.Status != models.OrderStatusPaid {
		t.Errorf("status = %q, want paid", paid.Status)
	}
}

func TestFindOrderByCheckoutSession(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	checkedOut, err := orders.StartCheckout(order.ID, student.ID)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	found, err := orders.FindOrderByCheckoutSession(*checkedOut.CheckoutSessionID)
	if err != nil {
		t.Fatalf("find by session: %v", err)
	}
	if found.ID != order.ID {
		t.Errorf("found order %s, want %s", found.ID, order.ID)
	}

	if _, err := orders.FindOrderByCheckoutSession("cs_missing"); !apperrors.IsNotFound(err) {
		t.Fatalf("missing session: got %v, want NotFoundError", err)
	}
}

func TestOrderInvoice(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	taxRates := NewTaxRateService(db)

	if _, err := taxRates.CreateTaxRate(decimal.NewFromInt(16), time.Now().UTC().Add(-24*time.Hour)); err != nil {
		t.Fatalf("create tax rate: %v", err)
	}
	// A future rate must not apply yet.
	if _, err := taxRates.CreateTaxRate(decimal.NewFromInt(20), time.Now().UTC().Add(24*time.Hour)); err != nil {
		t.Fatalf("create future tax rate: %v", err)
	}

	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	// Unpaid orders have no invoice.
	if _, err := taxRates.OrderInvoice(order.ID, student.ID); !apperrors.IsInvalidState(err) {
		t.Fatalf("invoice before payment: got %v, want InvalidStateError", err)
	}

	if _, err := orders.StartCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := orders.ConfirmPayment(order.ID, "pi_test", "card"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	invoice, err := taxRates.OrderInvoice(order.ID, student.ID)
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if !invoice.TaxRatePercent.Equal(decimal.NewFromInt(16)) {
		t.Errorf("tax rate = %s, want 16", invoice.TaxRatePercent)
	}
	if !invoice.TotalWithTax.Equal(decimal.NewFromInt(116)) {
		t.Errorf("total with tax = %s, want 116", invoice.TotalWithTax)
	}
}

func TestCreateTaxRateValidation(t *testing.T) {
	db := newTestDB(t)
	taxRates := NewTaxRateService(db)

	if _, err := taxRates.CreateTaxRate(decimal.NewFromInt(-1), time.Now()); !apperrors.IsValidation(err) {
		t.Fatalf("negative rate: got %v, want ValidationError", err)
	}
	if _, err := taxRates.ActiveTaxRate(time.Now()); !apperrors.IsNotFound(err) {
		t.Fatalf("no rates: got %v, want NotFoundError", err)
	}
}

func TestStartCheckoutRequiresBookings(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderService(db, 30*time.Minute)
	student := createUser(t, db, "student")
	order := bookOne(t, db, orders, student.ID, "100")

	// Empty the order first.
	if _, err := orders.ResetCheckout(order.ID, student.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	_, err := orders.StartCheckout(order.ID, student.ID)
	if !apperrors.IsValidation(err) {
		t.Fatalf("empty order checkout: got %v, want ValidationError", err)
	}
}
