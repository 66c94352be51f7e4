package services

import (
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/models"
)

// Totals is the full monetary breakdown of a ticket.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	TipSuggested decimal.Decimal `json:"tip_suggested"`
	Total        decimal.Decimal `json:"total"`
}

// TotalsEngine computes ticket totals from line items. It is pure: the
// same items, discount and rates always produce the same breakdown, so
// recomputing never drifts.
type TotalsEngine struct {
	TaxRate decimal.Decimal
	TipRate decimal.Decimal
}

func NewTotalsEngine(taxRate, tipRate decimal.Decimal) *TotalsEngine {
	return &TotalsEngine{TaxRate: taxRate, TipRate: tipRate}
}

// Compute derives subtotal, tax, suggested tip and grand total. Tax and
// tip are rounded half-up to the minor unit exactly once per call, never
// accumulated across calls.
func (e *TotalsEngine) Compute(items []models.TicketItem, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, NewValidationError("discount must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, NewValidationError("item %d: quantity must be positive", item.ID)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, NewValidationError("item %d: unit price must not be negative", item.ID)
		}
		subtotal = subtotal.Add(item.ComputeLineSubtotal())
	}

	// decimal.Round rounds half away from zero, which on non-negative
	// amounts is exactly round-half-up to the minor unit.
	tax := subtotal.Mul(e.TaxRate).Round(2)
	total := subtotal.Sub(discount).Add(tax)
	tip := total.Mul(e.TipRate).Round(2)

	return Totals{
		Subtotal:     subtotal,
		Discount:     discount,
		Tax:          tax,
		TipSuggested: tip,
		Total:        total,
	}, nil
}

// ValidateItemFields rejects line item values the engine would refuse.
func ValidateItemFields(quantity int, unitPrice, discountPct decimal.Decimal) error {
	if quantity <= 0 {
		return NewValidationError("quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return NewValidationError("unit price must not be negative")
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(decimal.NewFromInt(100)) {
		return NewValidationError("discount percentage must be between 0 and 100")
	}
	return nil
}
