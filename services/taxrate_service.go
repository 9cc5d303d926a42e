package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mwangikib/tutorspace/apperrors"
	"github.com/mwangikib/tutorspace/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRateService keeps the append-only tax rate history and answers "which
// rate applied at time T". Rates are immutable once created.
type TaxRateService struct {
	db *gorm.DB
}

func NewTaxRateService(db *gorm.DB) *TaxRateService {
	return &TaxRateService{db: db}
}

func (s *TaxRateService) CreateTaxRate(ratePercent decimal.Decimal, startsAt time.Time) (*models.TaxRate, error) {
	if ratePercent.IsNegative() {
		return nil, apperrors.Validation("tax rate must not be negative")
	}

	rate := models.TaxRate{
		RatePercent: ratePercent,
		StartsAt:    startsAt,
	}
	if err := s.db.Create(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (s *TaxRateService) ListTaxRates() ([]models.TaxRate, error) {
	var rates []models.TaxRate
	if err := s.db.Order("starts_at desc").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// ActiveTaxRate returns the most recently started rate at or before the
// given time.
func (s *TaxRateService) ActiveTaxRate(at time.Time) (*models.TaxRate, error) {
	var rate models.TaxRate
	err := s.db.
		Where("starts_at <= ?", at).
		Order("starts_at desc").
		First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no tax rate in effect")
		}
		return nil, err
	}
	return &rate, nil
}

type Invoice struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	PaidAt          time.Time       `json:"paid_at"`
	TotalOriginal   decimal.Decimal `json:"total_original"`
	TotalDiscounted decimal.Decimal `json:"total_discounted"`
	TotalReduction  decimal.Decimal `json:"total_reduction"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	TotalWithTax    decimal.Decimal `json:"total_with_tax"`
}

// OrderInvoice builds the invoice view of a paid order: the frozen totals
// plus tax at the rate in effect on the payment date.
func (s *TaxRateService) OrderInvoice(orderID, requesterID uuid.UUID) (*Invoice, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	if order.BookerID != requesterID {
		return nil, apperrors.Forbidden("this is not your order")
	}
	if order.Status != models.OrderStatusPaid || order.PaidAt == nil {
		return nil, apperrors.InvalidState("invoices exist only for paid orders")
	}

	rate, err := s.ActiveTaxRate(*order.PaidAt)
	if err != nil {
		return nil, err
	}

	return &Invoice{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaidAt:          *order.PaidAt,
		TotalOriginal:   order.TotalOriginal,
		TotalDiscounted: order.TotalDiscounted,
		TotalReduction:  order.TotalReduction,
		TaxRatePercent:  rate.RatePercent,
		TotalWithTax:    ComputeInvoiceTotal(order.TotalDiscounted, rate.RatePercent),
	}, nil
}
