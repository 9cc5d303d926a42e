package services

import (
	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
)

// Student-facing amounts are rounded to 2 minor-unit digits, half-up.
// Storage keeps numeric(16,6) but every computed price goes through this
// precision so totals are identical at booking, checkout and payment time.
const pricePrecision = 2

var oneHundred = decimal.NewFromInt(100)

type OrderTotals struct {
	Original   decimal.Decimal `json:"original"`
	Discounted decimal.Decimal `json:"discounted"`
	Reduction  decimal.Decimal `json:"reduction"`
}

// ComputeBookingPrice applies a slot's percentage reduction to its base
// price: base * (1 - reduction/100), rounded half-up.
func ComputeBookingPrice(basePrice decimal.Decimal, reduction *int) decimal.Decimal {
	base := roundPrice(basePrice)
	if reduction == nil || *reduction <= 0 {
		return base
	}
	pct := *reduction
	if pct > 100 {
		pct = 100
	}
	factor := oneHundred.Sub(decimal.NewFromInt(int64(pct))).Div(oneHundred)
	return roundPrice(basePrice.Mul(factor))
}

// ComputeOrderTotals sums the live bookings of an order. Cancelled bookings
// contribute nothing. Tax is applied at invoice time, never here.
func ComputeOrderTotals(bookings []models.Booking) OrderTotals {
	original := decimal.Zero
	discounted := decimal.Zero

	for i := range bookings {
		if !bookings[i].Live() {
			continue
		}
		slot := bookings[i].Slot
		original = original.Add(roundPrice(slot.Price))
		discounted = discounted.Add(ComputeBookingPrice(slot.Price, slot.Reduction))
	}

	return OrderTotals{
		Original:   original,
		Discounted: discounted,
		Reduction:  original.Sub(discounted),
	}
}

// ComputeInvoiceTotal adds tax on top of a discounted total.
func ComputeInvoiceTotal(discountedTotal, ratePercent decimal.Decimal) decimal.Decimal {
	tax := discountedTotal.Mul(ratePercent).Div(oneHundred)
	return roundPrice(discountedTotal.Add(tax))
}

// roundPrice rounds half-up (away from zero at the midpoint), which is what
// decimal.Round does for positive amounts. Prices are never negative here.
func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(pricePrecision)
}
