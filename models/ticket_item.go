package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Preparation statuses, owned by the kitchen flow. Split and merge move
// items between tickets without touching these.
const (
	PrepStatusPending    = "pending"
	PrepStatusInProgress = "in_progress"
	PrepStatusReady      = "ready"
	PrepStatusServed     = "served"
)

type TicketItem struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	TicketID uint `gorm:"not null;index" json:"ticket_id"`
	// Omitting Ticket field from JSON to avoid recursive nesting
	Ticket      Ticket          `gorm:"foreignKey:TicketID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ProductID   uint            `gorm:"not null" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0.00" json:"discount_pct"`
	// Modifiers holds free-form preparation notes ("no onion", "extra hot").
	Modifiers    string          `gorm:"type:text" json:"modifiers"`
	LineSubtotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_subtotal"`
	PrepStatus   string          `gorm:"type:varchar(20);not null;default:'pending'" json:"prep_status"`
	// Position preserves insertion order within the owning ticket; the
	// split-by-diners partitioning and the kitchen display depend on it.
	Position  int       `gorm:"not null;index" json:"position"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// ComputeLineSubtotal returns quantity * unit_price reduced by the line
// discount percentage, rounded to the minor unit.
func (i *TicketItem) ComputeLineSubtotal() decimal.Decimal {
	gross := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	factor := decimal.NewFromInt(1).Sub(i.DiscountPct.Div(decimal.NewFromInt(100)))
	return gross.Mul(factor).Round(2)
}
