package services

import (
	"testing"
	"time"

	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestComputeBookingPrice(t *testing.T) {
	cases := []struct {
		name      string
		base      string
		reduction *int
		want      string
	}{
		{"no reduction", "100", nil, "100"},
		{"zero reduction", "100", intPtr(0), "100"},
		{"ten percent off hundred", "100", intPtr(10), "90"},
		{"full reduction", "80", intPtr(100), "0"},
		{"reduction clamped above 100", "80", intPtr(150), "0"},
		{"rounds half up", "33.335", intPtr(0), "33.34"},
		{"discount result rounds half up", "10.01", intPtr(25), "7.51"}, // 7.5075 -> 7.51
		{"six digit storage precision collapses", "49.999999", intPtr(0), "50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBookingPrice(dec(t, tc.base), tc.reduction)
			if !got.Equal(dec(t, tc.want)) {
				t.Errorf("ComputeBookingPrice(%s, %v) = %s, want %s", tc.base, tc.reduction, got, tc.want)
			}
		})
	}
}

func TestComputeOrderTotals(t *testing.T) {
	bookings := []models.Booking{
		{Slot: models.Slot{Price: dec(t, "100"), Reduction: intPtr(10)}},
		{Slot: models.Slot{Price: dec(t, "50")}},
	}

	totals := ComputeOrderTotals(bookings)

	if !totals.Original.Equal(dec(t, "150")) {
		t.Errorf("Original = %s, want 150", totals.Original)
	}
	if !totals.Discounted.Equal(dec(t, "140")) {
		t.Errorf("Discounted = %s, want 140", totals.Discounted)
	}
	if !totals.Reduction.Equal(dec(t, "10")) {
		t.Errorf("Reduction = %s, want 10", totals.Reduction)
	}
}

func TestComputeOrderTotalsSkipsCancelledBookings(t *testing.T) {
	now := time.Now()
	bookings := []models.Booking{
		{Slot: models.Slot{Price: dec(t, "100")}},
		{Slot: models.Slot{Price: dec(t, "999")}, CanceledAt: &now},
	}

	totals := ComputeOrderTotals(bookings)

	if !totals.Original.Equal(dec(t, "100")) {
		t.Errorf("Original = %s, want 100 (cancelled booking must not count)", totals.Original)
	}
}

func TestComputeOrderTotalsInvariant(t *testing.T) {
	bookings := []models.Booking{
		{Slot: models.Slot{Price: dec(t, "19.99"), Reduction: intPtr(15)}},
		{Slot: models.Slot{Price: dec(t, "42.50"), Reduction: intPtr(33)}},
		{Slot: models.Slot{Price: dec(t, "7")}},
	}

	totals := ComputeOrderTotals(bookings)

	if totals.Discounted.GreaterThan(totals.Original) {
		t.Errorf("Discounted %s exceeds Original %s", totals.Discounted, totals.Original)
	}
	if !totals.Reduction.Equal(totals.Original.Sub(totals.Discounted)) {
		t.Errorf("Reduction %s != Original-Discounted %s", totals.Reduction, totals.Original.Sub(totals.Discounted))
	}
}

func TestComputeInvoiceTotal(t *testing.T) {
	got := ComputeInvoiceTotal(dec(t, "100"), dec(t, "16"))
	if !got.Equal(dec(t, "116")) {
		t.Errorf("ComputeInvoiceTotal(100, 16) = %s, want 116", got)
	}

	got = ComputeInvoiceTotal(dec(t, "90.50"), dec(t, "7.7"))
	if !got.Equal(dec(t, "97.47")) { // 90.50 * 1.077 = 97.4685 -> 97.47
		t.Errorf("ComputeInvoiceTotal(90.50, 7.7) = %s, want 97.47", got)
	}
}
