package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types published by the ticket lifecycle.
const (
	EventTicketCreated      = "ticket.created"
	EventItemAdded          = "item.added"
	EventItemUpdated        = "item.updated"
	EventItemRemoved        = "item.removed"
	EventTicketStateChanged = "ticket.state_changed"
	EventTicketSplit        = "ticket.split"
	EventTicketMerged       = "ticket.merged"
)

// Totals is the post-operation monetary snapshot carried on every event.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	TipSuggested decimal.Decimal `json:"tip_suggested"`
	Total        decimal.Decimal `json:"total"`
}

// Event is published after a lifecycle operation commits. Delivery is
// at-least-once; consumers must be idempotent on ticket and item ids.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TicketID   uint      `json:"ticket_id"`
	Reference  string    `json:"reference,omitempty"`
	ItemIDs    []uint    `json:"item_ids,omitempty"`
	Totals     *Totals   `json:"totals,omitempty"`
	RelatedIDs []uint    `json:"related_ticket_ids,omitempty"`
	ActorID    uint      `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New builds an event with a fresh id and timestamp.
func New(eventType string, ticketID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticketID,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier publishes lifecycle events to interested subscribers. Publish
// is fire-and-forget: implementations must never block the calling
// operation or surface delivery failures to it.
type Notifier interface {
	Publish(event Event)
}

// Fanout forwards every event to each wrapped notifier.
type Fanout []Notifier

func (f Fanout) Publish(event Event) {
	for _, n := range f {
		n.Publish(event)
	}
}
