package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
)

// SplitMeta carries optional attributes for tickets created by a split.
// A nil ServerID means the new ticket keeps the original server.
type SplitMeta struct {
	ServerID *uint `json:"server_id,omitempty"`
}

// SplitMergeService implements the structural ticket operations on top
// of the lifecycle manager's primitives. Both split and merge conserve
// the total item count and monetary value across the participating
// tickets: items transfer ownership, they are never copied or dropped.
type SplitMergeService struct {
	tickets *TicketService
}

func NewSplitMergeService(tickets *TicketService) *SplitMergeService {
	return &SplitMergeService{tickets: tickets}
}

// SplitByItems moves the named items from an open ticket onto a fresh
// ticket on the same table. At least one item must stay behind. Table
// occupancy is untouched: one physical table, now two open tabs.
func (s *SplitMergeService) SplitByItems(ctx context.Context, ticketID uint, itemIDs []uint, meta SplitMeta, actorID uint) (*models.Ticket, *models.Ticket, error) {
	if len(itemIDs) == 0 {
		return nil, nil, NewValidationError("item id set must not be empty")
	}
	seen := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			return nil, nil, NewValidationError("duplicate item id %d", id)
		}
		seen[id] = true
	}

	release, err := s.tickets.locks.acquire(ticketID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var original, split *models.Ticket
	err = s.tickets.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		original, err = s.tickets.openTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		items, err := s.tickets.repo.ItemsOf(ctx, ticketID)
		if err != nil {
			return err
		}
		byID := make(map[uint]bool, len(items))
		for _, item := range items {
			byID[item.ID] = true
		}
		for _, id := range itemIDs {
			if !byID[id] {
				return &NotFoundError{Entity: "item", ID: id}
			}
		}
		if len(itemIDs) >= len(items) {
			return NewBusinessError(CodeCannotMoveAllItems, "at least one item must remain on ticket %d", ticketID)
		}

		serverID := original.ServerID
		if meta.ServerID != nil {
			serverID = *meta.ServerID
		}
		split = &models.Ticket{
			Reference: uuid.NewString(),
			TableID:   original.TableID,
			ServerID:  serverID,
			Status:    models.TicketStatusOpen,
		}
		if err := s.tickets.repo.CreateTicket(ctx, split); err != nil {
			return err
		}

		// Ownership transfer: every field but the owning ticket survives,
		// including positions, so relative insertion order is preserved.
		if err := s.tickets.repo.ReassignItems(ctx, itemIDs, split.ID); err != nil {
			return err
		}

		if err := s.tickets.recompute(ctx, original); err != nil {
			return err
		}
		return s.tickets.recompute(ctx, split)
	})
	if err != nil {
		return nil, nil, mapStorageError(err)
	}

	evt := events.New(events.EventTicketSplit, original.ID)
	evt.RelatedIDs = []uint{split.ID}
	s.tickets.publish(evt, original, itemIDs, actorID)
	return original, split, nil
}

// SplitByDiners partitions an open ticket's items by insertion order
// into contiguous groups of ceil(item_count / n). The first group stays
// on the original; every following group becomes a new ticket. Returns
// all resulting tickets, original first.
func (s *SplitMergeService) SplitByDiners(ctx context.Context, ticketID uint, n int, actorID uint) ([]*models.Ticket, error) {
	if n < 2 {
		return nil, NewValidationError("diner count must be at least 2")
	}

	release, err := s.tickets.locks.acquire(ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result []*models.Ticket
	err = s.tickets.repo.Transaction(ctx, func(ctx context.Context) error {
		original, err := s.tickets.openTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		items, err := s.tickets.repo.ItemsOf(ctx, ticketID)
		if err != nil {
			return err
		}
		if n > len(items) {
			return NewValidationError("cannot split %d items between %d diners", len(items), n)
		}

		groupSize := (len(items) + n - 1) / n
		result = []*models.Ticket{original}

		for start := groupSize; start < len(items); start += groupSize {
			end := start + groupSize
			if end > len(items) {
				end = len(items)
			}
			group := items[start:end]
			ids := make([]uint, 0, len(group))
			for _, item := range group {
				ids = append(ids, item.ID)
			}

			split := &models.Ticket{
				Reference: uuid.NewString(),
				TableID:   original.TableID,
				ServerID:  original.ServerID,
				Status:    models.TicketStatusOpen,
			}
			if err := s.tickets.repo.CreateTicket(ctx, split); err != nil {
				return err
			}
			if err := s.tickets.repo.ReassignItems(ctx, ids, split.ID); err != nil {
				return err
			}
			if err := s.tickets.recompute(ctx, split); err != nil {
				return err
			}
			result = append(result, split)
		}

		return s.tickets.recompute(ctx, original)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	original := result[0]
	evt := events.New(events.EventTicketSplit, original.ID)
	for _, t := range result[1:] {
		evt.RelatedIDs = append(evt.RelatedIDs, t.ID)
	}
	s.tickets.publish(evt, original, nil, actorID)
	return result, nil
}

// MergeTickets consolidates every secondary ticket into the principal.
// All participants must be open and share the principal's table. Each
// secondary ends up voided with an audit note referencing the principal;
// the principal keeps the table.
func (s *SplitMergeService) MergeTickets(ctx context.Context, principalID uint, secondaryIDs []uint, actorID uint) (*models.Ticket, error) {
	if len(secondaryIDs) == 0 {
		return nil, NewValidationError("secondary ticket id set must not be empty")
	}
	seen := map[uint]bool{principalID: true}
	for _, id := range secondaryIDs {
		if seen[id] {
			return nil, NewValidationError("ticket %d listed more than once", id)
		}
		seen[id] = true
	}

	all := append([]uint{principalID}, secondaryIDs...)
	release, err := s.tickets.locks.acquireAll(all)
	if err != nil {
		return nil, err
	}
	defer release()

	var principal *models.Ticket
	err = s.tickets.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		principal, err = s.tickets.openTicket(ctx, principalID)
		if err != nil {
			return err
		}

		nextPos, err := s.tickets.repo.NextPosition(ctx, principalID)
		if err != nil {
			return err
		}

		for _, secondaryID := range secondaryIDs {
			secondary, err := s.tickets.openTicket(ctx, secondaryID)
			if err != nil {
				return err
			}
			if !sameTableRef(principal.TableID, secondary.TableID) {
				return NewBusinessError(CodeTableMismatch, "ticket %d is not on the principal's table", secondaryID)
			}

			items, err := s.tickets.repo.ItemsOf(ctx, secondaryID)
			if err != nil {
				return err
			}
			// Transferred items queue up after the principal's own, in
			// their original relative order; prep state rides along
			// untouched.
			for i := range items {
				items[i].TicketID = principalID
				items[i].Position = nextPos
				nextPos++
				if err := s.tickets.repo.SaveItem(ctx, &items[i]); err != nil {
					return err
				}
			}

			// The secondary's ticket-level discount follows its items so
			// the merged value matches the pre-merge sum.
			principal.Discount = principal.Discount.Add(secondary.Discount)
			if err := s.tickets.recompute(ctx, principal); err != nil {
				return err
			}

			now := time.Now()
			secondary.Status = models.TicketStatusVoided
			secondary.ClosedAt = &now
			secondary.MergedInto = &principalID
			secondary.VoidNote = fmt.Sprintf("merged into ticket %d by employee %d", principalID, actorID)
			secondary.Discount = decimal.Zero
			if err := s.tickets.recompute(ctx, secondary); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	evt := events.New(events.EventTicketMerged, principal.ID)
	evt.RelatedIDs = secondaryIDs
	s.tickets.publish(evt, principal, nil, actorID)
	return principal, nil
}

func sameTableRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
