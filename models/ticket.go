package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket statuses. A ticket starts open; paid and voided are terminal.
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
	TicketStatusPaid   = "paid"
	TicketStatusVoided = "voided"
)

type Ticket struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference"`
	TableID      *uint           `gorm:"index" json:"table_id,omitempty"`
	Table        *Table          `gorm:"foreignKey:TableID" json:"table,omitempty"`
	ServerID     uint            `gorm:"not null;index" json:"server_id"`
	Server       *User           `gorm:"foreignKey:ServerID" json:"server,omitempty"`
	Status       string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0.00" json:"subtotal"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0.00" json:"discount"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0.00" json:"tax"`
	TipSuggested decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0.00" json:"tip_suggested"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0.00" json:"total"`
	// MergedInto points at the principal ticket when this ticket was
	// voided by a merge; empty otherwise.
	MergedInto *uint        `gorm:"index" json:"merged_into,omitempty"`
	VoidNote   string       `gorm:"type:text" json:"void_note,omitempty"`
	Items      []TicketItem `gorm:"foreignKey:TicketID" json:"items"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
	ClosedAt   *time.Time   `json:"closed_at,omitempty"`
}

// IsOpen reports whether item mutation and split/merge are still allowed.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// IsTerminal reports whether no further status change is possible.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusPaid || t.Status == TicketStatusVoided
}
