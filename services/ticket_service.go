package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/repository"
)

// allowedTransitions is the full ticket state machine. Paid and voided
// are terminal; nothing ever transitions backwards.
var allowedTransitions = map[string][]string{
	models.TicketStatusOpen:   {models.TicketStatusClosed, models.TicketStatusVoided},
	models.TicketStatusClosed: {models.TicketStatusPaid, models.TicketStatusVoided},
}

// prepTransitions is the independent kitchen lifecycle of a line item.
var prepTransitions = map[string]string{
	models.PrepStatusPending:    models.PrepStatusInProgress,
	models.PrepStatusInProgress: models.PrepStatusReady,
	models.PrepStatusReady:      models.PrepStatusServed,
}

// ItemSpec describes a line item to add. UnitPrice overrides the product
// price when set; nil means charge the current product price.
type ItemSpec struct {
	ProductID   uint             `json:"product_id"`
	Quantity    int              `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPct decimal.Decimal  `json:"discount_pct"`
	Modifiers   string           `json:"modifiers"`
}

// ItemPatch carries the mutable fields of an existing line item; nil
// fields are left untouched.
type ItemPatch struct {
	Quantity    *int             `json:"quantity,omitempty"`
	DiscountPct *decimal.Decimal `json:"discount_pct,omitempty"`
	Modifiers   *string          `json:"modifiers,omitempty"`
}

// TicketService owns the ticket state machine, item mutations and the
// table occupancy side effects. Every operation runs in one repository
// transaction and is serialized per ticket; events and stock adjustments
// happen only after a successful commit.
type TicketService struct {
	repo     repository.TicketRepository
	tables   TableRegistry
	totals   *TotalsEngine
	stock    StockService
	notifier events.Notifier
	locks    *ticketLocks
	logger   *logrus.Logger
}

func NewTicketService(
	repo repository.TicketRepository,
	tables TableRegistry,
	totals *TotalsEngine,
	stock StockService,
	notifier events.Notifier,
	logger *logrus.Logger,
) *TicketService {
	return &TicketService{
		repo:     repo,
		tables:   tables,
		totals:   totals,
		stock:    stock,
		notifier: notifier,
		locks:    newTicketLocks(),
		logger:   logger,
	}
}

// Create opens a new empty ticket. With a table reference it performs a
// race-free check-and-set: the table row is locked for the duration of
// the transaction, so two concurrent creates against one free table
// cannot both succeed.
func (s *TicketService) Create(ctx context.Context, tableID *uint, serverID uint) (*models.Ticket, error) {
	ticket := &models.Ticket{
		Reference: uuid.NewString(),
		TableID:   tableID,
		ServerID:  serverID,
		Status:    models.TicketStatusOpen,
	}

	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		if tableID != nil {
			table, err := s.repo.GetTableForUpdate(ctx, *tableID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "table", ID: *tableID}
			}
			if err != nil {
				return err
			}
			if table.Status != models.TableStatusFree {
				return NewBusinessError(CodeTableUnavailable, "table %s is not free", table.TableNumber)
			}
			open, err := s.repo.CountOpenByTable(ctx, *tableID, 0)
			if err != nil {
				return err
			}
			if open > 0 {
				return NewBusinessError(CodeTableUnavailable, "table %s already has an open ticket", table.TableNumber)
			}
			if err := s.tables.SetState(ctx, *tableID, models.TableStatusOccupied); err != nil {
				return err
			}
		}
		return s.repo.CreateTicket(ctx, ticket)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	s.publish(events.New(events.EventTicketCreated, ticket.ID), ticket, nil, serverID)
	return ticket, nil
}

// Get returns a ticket with its items in insertion order.
func (s *TicketService) Get(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "ticket", ID: ticketID}
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListOpen returns every open ticket, oldest first.
func (s *TicketService) ListOpen(ctx context.Context) ([]models.Ticket, error) {
	return s.repo.ListOpenTickets(ctx)
}

// AddItem appends a line item to an open ticket and recomputes totals.
func (s *TicketService) AddItem(ctx context.Context, ticketID uint, spec ItemSpec, actorID uint) (*models.TicketItem, error) {
	release, err := s.locks.acquire(ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	var item *models.TicketItem
	var ticket *models.Ticket
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.openTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		unitPrice := decimal.Zero
		if spec.UnitPrice != nil {
			unitPrice = *spec.UnitPrice
		} else {
			product, err := s.repo.GetProduct(ctx, spec.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "product", ID: spec.ProductID}
			}
			if err != nil {
				return err
			}
			unitPrice = product.Price
		}

		if err := ValidateItemFields(spec.Quantity, unitPrice, spec.DiscountPct); err != nil {
			return err
		}

		position, err := s.repo.NextPosition(ctx, ticketID)
		if err != nil {
			return err
		}

		item = &models.TicketItem{
			TicketID:    ticketID,
			ProductID:   spec.ProductID,
			Quantity:    spec.Quantity,
			UnitPrice:   unitPrice,
			DiscountPct: spec.DiscountPct,
			Modifiers:   spec.Modifiers,
			PrepStatus:  models.PrepStatusPending,
			Position:    position,
		}
		item.LineSubtotal = item.ComputeLineSubtotal()
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, ticket)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	s.adjustStock(ctx, item.ProductID, -item.Quantity)
	s.publish(events.New(events.EventItemAdded, ticketID), ticket, []uint{item.ID}, actorID)
	return item, nil
}

// UpdateItem patches a line item on an open ticket and recomputes totals.
func (s *TicketService) UpdateItem(ctx context.Context, ticketID, itemID uint, patch ItemPatch, actorID uint) (*models.TicketItem, error) {
	release, err := s.locks.acquire(ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	var item *models.TicketItem
	var ticket *models.Ticket
	quantityDelta := 0
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.openTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		item, err = s.repo.GetItem(ctx, ticketID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err != nil {
			return err
		}

		if patch.Quantity != nil {
			quantityDelta = *patch.Quantity - item.Quantity
			item.Quantity = *patch.Quantity
		}
		if patch.DiscountPct != nil {
			item.DiscountPct = *patch.DiscountPct
		}
		if patch.Modifiers != nil {
			item.Modifiers = *patch.Modifiers
		}

		if err := ValidateItemFields(item.Quantity, item.UnitPrice, item.DiscountPct); err != nil {
			return err
		}
		item.LineSubtotal = item.ComputeLineSubtotal()
		if err := s.repo.SaveItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, ticket)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	if quantityDelta != 0 {
		s.adjustStock(ctx, item.ProductID, -quantityDelta)
	}
	s.publish(events.New(events.EventItemUpdated, ticketID), ticket, []uint{item.ID}, actorID)
	return item, nil
}

// RemoveItem deletes a line item from an open ticket. A ticket may stay
// open with zero items.
func (s *TicketService) RemoveItem(ctx context.Context, ticketID, itemID uint, actorID uint) error {
	release, err := s.locks.acquire(ticketID)
	if err != nil {
		return err
	}
	defer release()

	var item *models.TicketItem
	var ticket *models.Ticket
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.openTicket(ctx, ticketID)
		if err != nil {
			return err
		}

		item, err = s.repo.GetItem(ctx, ticketID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err != nil {
			return err
		}

		if err := s.repo.DeleteItem(ctx, item); err != nil {
			return err
		}
		return s.recompute(ctx, ticket)
	})
	if err != nil {
		return mapStorageError(err)
	}

	s.adjustStock(ctx, item.ProductID, item.Quantity)
	s.publish(events.New(events.EventItemRemoved, ticketID), ticket, []uint{item.ID}, actorID)
	return nil
}

// ChangeState moves a ticket through the state machine. Leaving open
// releases the table when no other open ticket references it.
func (s *TicketService) ChangeState(ctx context.Context, ticketID uint, target string, actorID uint) (*models.Ticket, error) {
	switch target {
	case models.TicketStatusOpen, models.TicketStatusClosed, models.TicketStatusPaid, models.TicketStatusVoided:
	default:
		return nil, NewValidationError("unknown ticket status %q", target)
	}

	release, err := s.locks.acquire(ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	var ticket *models.Ticket
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.repo.GetTicket(ctx, ticketID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "ticket", ID: ticketID}
		}
		if err != nil {
			return err
		}

		if !transitionAllowed(ticket.Status, target) {
			return NewBusinessError(CodeInvalidTransition, "cannot transition ticket from %s to %s", ticket.Status, target)
		}

		wasOpen := ticket.IsOpen()
		ticket.Status = target
		if wasOpen {
			now := time.Now()
			ticket.ClosedAt = &now
		}
		if err := s.repo.SaveTicket(ctx, ticket); err != nil {
			return err
		}

		if wasOpen && ticket.TableID != nil {
			return s.releaseTableIfIdle(ctx, *ticket.TableID, ticket.ID)
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	s.publish(events.New(events.EventTicketStateChanged, ticketID), ticket, nil, actorID)
	return ticket, nil
}

// AdvanceItemPrep moves a line item one step through the kitchen
// lifecycle: pending -> in_progress -> ready -> served. Split and merge
// never touch this state.
func (s *TicketService) AdvanceItemPrep(ctx context.Context, ticketID, itemID uint, target string, actorID uint) (*models.TicketItem, error) {
	release, err := s.locks.acquire(ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	var item *models.TicketItem
	var ticket *models.Ticket
	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.repo.GetTicket(ctx, ticketID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "ticket", ID: ticketID}
		}
		if err != nil {
			return err
		}

		item, err = s.repo.GetItem(ctx, ticketID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "item", ID: itemID}
		}
		if err != nil {
			return err
		}

		if prepTransitions[item.PrepStatus] != target {
			return NewBusinessError(CodeInvalidTransition, "cannot move item from %s to %s", item.PrepStatus, target)
		}
		item.PrepStatus = target
		return s.repo.SaveItem(ctx, item)
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	s.publish(events.New(events.EventItemUpdated, ticketID), ticket, []uint{item.ID}, actorID)
	return item, nil
}

// openTicket loads a ticket and enforces the open-state precondition
// shared by every item mutation.
func (s *TicketService) openTicket(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "ticket", ID: ticketID}
	}
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, NewBusinessError(CodeTicketNotOpen, "ticket %d is %s, not open", ticket.ID, ticket.Status)
	}
	return ticket, nil
}

// recompute rebuilds the ticket totals from its current item set and
// persists them. Rounding happens once per recomputation, so calling
// this any number of times on an unchanged item set is a no-op.
func (s *TicketService) recompute(ctx context.Context, ticket *models.Ticket) error {
	items, err := s.repo.ItemsOf(ctx, ticket.ID)
	if err != nil {
		return err
	}
	totals, err := s.totals.Compute(items, ticket.Discount)
	if err != nil {
		return err
	}
	ticket.Subtotal = totals.Subtotal
	ticket.Tax = totals.Tax
	ticket.TipSuggested = totals.TipSuggested
	ticket.Total = totals.Total
	ticket.Items = items
	return s.repo.SaveTicket(ctx, ticket)
}

// releaseTableIfIdle frees the table unless another open ticket (from an
// earlier split) still references it.
func (s *TicketService) releaseTableIfIdle(ctx context.Context, tableID, excludeTicketID uint) error {
	open, err := s.repo.CountOpenByTable(ctx, tableID, excludeTicketID)
	if err != nil {
		return err
	}
	if open == 0 {
		return s.tables.SetState(ctx, tableID, models.TableStatusFree)
	}
	return nil
}

func (s *TicketService) adjustStock(ctx context.Context, productID uint, delta int) {
	if s.stock == nil {
		return
	}
	// Inventory is a separate concern; an error here never fails the
	// committed ticket operation.
	if err := s.stock.Adjust(ctx, productID, delta); err != nil {
		s.logger.Warnf("tickets: stock adjustment for product %d failed: %v", productID, err)
	}
}

// publish emits a lifecycle event with the post-operation totals. Called
// only after a successful commit.
func (s *TicketService) publish(evt events.Event, ticket *models.Ticket, itemIDs []uint, actorID uint) {
	if s.notifier == nil {
		return
	}
	evt.ItemIDs = itemIDs
	evt.ActorID = actorID
	if ticket != nil {
		evt.Reference = ticket.Reference
		evt.Totals = &events.Totals{
			Subtotal:     ticket.Subtotal,
			Discount:     ticket.Discount,
			Tax:          ticket.Tax,
			TipSuggested: ticket.TipSuggested,
			Total:        ticket.Total,
		}
	}
	s.notifier.Publish(evt)
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// mapStorageError translates storage-level failures that have a domain
// meaning; anything else is surfaced as-is and treated as fatal to the
// operation.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var nf *NotFoundError
	var be *BusinessError
	var ce *ConflictError
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &be) || errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Msg: "concurrent modification detected, retry the operation"}
	}
	return err
}
