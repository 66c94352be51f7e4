package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pos/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testEngine() *TotalsEngine {
	return NewTotalsEngine(dec("0.19"), dec("0.10"))
}

func TestComputeTotals(t *testing.T) {
	engine := testEngine()

	items := []models.TicketItem{
		{ID: 1, Quantity: 2, UnitPrice: dec("1000")},
		{ID: 2, Quantity: 1, UnitPrice: dec("500")},
	}

	totals, err := engine.Compute(items, decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(dec("2500")), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(dec("475")), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(dec("2975")), "total = %s", totals.Total)
	assert.True(t, totals.TipSuggested.Equal(dec("297.50")), "tip = %s", totals.TipSuggested)
}

func TestComputeTotalsWithDiscounts(t *testing.T) {
	engine := testEngine()

	// 50% line discount: 2 * 1000 * 0.5 = 1000
	items := []models.TicketItem{
		{ID: 1, Quantity: 2, UnitPrice: dec("1000"), DiscountPct: dec("50")},
	}

	totals, err := engine.Compute(items, dec("100"))
	assert.NoError(t, err)
	assert.True(t, totals.Subtotal.Equal(dec("1000")))
	assert.True(t, totals.Tax.Equal(dec("190")))
	// total = 1000 - 100 + 190
	assert.True(t, totals.Total.Equal(dec("1090")))
}

func TestComputeTotalsRoundsHalfUpOnce(t *testing.T) {
	engine := testEngine()

	// 3 * 3.49 = 10.47, tax = 1.9893 -> 1.99 rounded half-up once
	items := []models.TicketItem{
		{ID: 1, Quantity: 3, UnitPrice: dec("3.49")},
	}

	totals, err := engine.Compute(items, decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, totals.Tax.Equal(dec("1.99")), "tax = %s", totals.Tax)

	// Recomputing on the same item set never drifts.
	again, err := engine.Compute(items, decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, totals.Total.Equal(again.Total))
	assert.True(t, totals.Tax.Equal(again.Tax))
	assert.True(t, totals.TipSuggested.Equal(again.TipSuggested))
}

func TestComputeTotalsEmptyItems(t *testing.T) {
	totals, err := testEngine().Compute(nil, decimal.Zero)
	assert.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	engine := testEngine()

	var validation *ValidationError

	_, err := engine.Compute([]models.TicketItem{{ID: 1, Quantity: 0, UnitPrice: dec("10")}}, decimal.Zero)
	assert.ErrorAs(t, err, &validation)

	_, err = engine.Compute([]models.TicketItem{{ID: 1, Quantity: 1, UnitPrice: dec("-10")}}, decimal.Zero)
	assert.ErrorAs(t, err, &validation)

	_, err = engine.Compute(nil, dec("-5"))
	assert.ErrorAs(t, err, &validation)
}

func TestValidateItemFields(t *testing.T) {
	assert.NoError(t, ValidateItemFields(1, dec("10"), dec("0")))
	assert.NoError(t, ValidateItemFields(2, dec("0"), dec("100")))
	assert.Error(t, ValidateItemFields(0, dec("10"), dec("0")))
	assert.Error(t, ValidateItemFields(1, dec("-1"), dec("0")))
	assert.Error(t, ValidateItemFields(1, dec("10"), dec("101")))
}
