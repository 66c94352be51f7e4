package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
)

// seedTicket opens a ticket on table 1 and adds items with the given
// unit prices, one per price, quantity 1, in order.
func seedTicket(t *testing.T, svc *TicketService, prices ...string) (*models.Ticket, []models.TicketItem) {
	t.Helper()
	ctx := context.Background()

	ticket, err := svc.Create(ctx, uintPtr(1), 1)
	require.NoError(t, err)

	for _, p := range prices {
		price := dec(p)
		_, err := svc.AddItem(ctx, ticket.ID, ItemSpec{ProductID: 1, Quantity: 1, UnitPrice: &price}, 1)
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	return got, got.Items
}

func sumTotals(tickets ...*models.Ticket) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range tickets {
		sum = sum.Add(t.Total)
	}
	return sum
}

func TestSplitByItemsConservation(t *testing.T) {
	db, svc, split, notifier := setupTicketEnv(t)
	ctx := context.Background()

	// A: qty 2 @ 1000, B: qty 1 @ 500 -> total 2975 at 19% tax.
	ticket, err := svc.Create(ctx, uintPtr(1), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, ticket.ID, ItemSpec{ProductID: 1, Quantity: 2}, 1)
	require.NoError(t, err)
	itemB, err := svc.AddItem(ctx, ticket.ID, ItemSpec{ProductID: 2, Quantity: 1}, 1)
	require.NoError(t, err)

	before, err := svc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, before.Total.Equal(dec("2975")))

	original, branched, err := split.SplitByItems(ctx, ticket.ID, []uint{itemB.ID}, SplitMeta{}, 1)
	require.NoError(t, err)

	assert.True(t, original.Total.Equal(dec("2380")), "original total = %s", original.Total)
	assert.True(t, branched.Total.Equal(dec("595")), "split total = %s", branched.Total)
	assert.True(t, sumTotals(original, branched).Equal(before.Total))
	assert.Len(t, original.Items, 1)
	assert.Len(t, branched.Items, 1)

	// Same physical table, two open tabs; occupancy untouched.
	require.NotNil(t, branched.TableID)
	assert.Equal(t, *original.TableID, *branched.TableID)
	assert.Equal(t, models.TableStatusOccupied, tableStatus(t, db, 1))
	assert.Equal(t, models.TicketStatusOpen, branched.Status)

	splits := notifier.ofType(events.EventTicketSplit)
	require.Len(t, splits, 1)
	assert.Equal(t, []uint{branched.ID}, splits[0].RelatedIDs)
}

func TestSplitByItemsRejectsMovingEverything(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ticket, items := seedTicket(t, svc, "1000", "500")

	ids := []uint{items[0].ID, items[1].ID}
	_, _, err := split.SplitByItems(context.Background(), ticket.ID, ids, SplitMeta{}, 1)
	var business *BusinessError
	require.ErrorAs(t, err, &business)
	assert.Equal(t, CodeCannotMoveAllItems, business.Code)
}

func TestSplitByItemsValidation(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()
	ticket, items := seedTicket(t, svc, "1000", "500")

	var validation *ValidationError
	_, _, err := split.SplitByItems(ctx, ticket.ID, nil, SplitMeta{}, 1)
	assert.ErrorAs(t, err, &validation)

	_, _, err = split.SplitByItems(ctx, ticket.ID, []uint{items[0].ID, items[0].ID}, SplitMeta{}, 1)
	assert.ErrorAs(t, err, &validation)

	var notFound *NotFoundError
	_, _, err = split.SplitByItems(ctx, ticket.ID, []uint{9999}, SplitMeta{}, 1)
	assert.ErrorAs(t, err, &notFound)
}

func TestSplitByItemsRequiresOpenTicket(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()
	ticket, items := seedTicket(t, svc, "1000", "500")

	_, err := svc.ChangeState(ctx, ticket.ID, models.TicketStatusClosed, 1)
	require.NoError(t, err)

	_, _, err = split.SplitByItems(ctx, ticket.ID, []uint{items[0].ID}, SplitMeta{}, 1)
	var business *BusinessError
	require.ErrorAs(t, err, &business)
	assert.Equal(t, CodeTicketNotOpen, business.Code)
}

func TestSplitByDinersGroupSizes(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()
	ticket, items := seedTicket(t, svc, "100", "200", "300", "400", "500")

	tickets, err := split.SplitByDiners(ctx, ticket.ID, 3, 1)
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	// ceil(5/3) = 2 -> contiguous groups [2, 2, 1] in insertion order.
	assert.Len(t, tickets[0].Items, 2)
	assert.Len(t, tickets[1].Items, 2)
	assert.Len(t, tickets[2].Items, 1)

	assert.Equal(t, items[0].ID, tickets[0].Items[0].ID)
	assert.Equal(t, items[1].ID, tickets[0].Items[1].ID)
	assert.Equal(t, items[2].ID, tickets[1].Items[0].ID)
	assert.Equal(t, items[3].ID, tickets[1].Items[1].ID)
	assert.Equal(t, items[4].ID, tickets[2].Items[0].ID)
}

func TestSplitByDinersConservation(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()
	ticket, _ := seedTicket(t, svc, "123.45", "678.90", "11.11", "500", "42")

	before, err := svc.Get(ctx, ticket.ID)
	require.NoError(t, err)

	tickets, err := split.SplitByDiners(ctx, ticket.ID, 2, 1)
	require.NoError(t, err)

	itemCount := 0
	sum := decimal.Zero
	subtotalSum := decimal.Zero
	for _, tk := range tickets {
		itemCount += len(tk.Items)
		sum = sum.Add(tk.Total)
		subtotalSum = subtotalSum.Add(tk.Subtotal)
	}
	assert.Equal(t, 5, itemCount)
	assert.True(t, subtotalSum.Equal(before.Subtotal))
	// Tax rounds per ticket; the sum stays within one minor unit per
	// resulting ticket.
	tolerance := dec("0.01").Mul(decimal.NewFromInt(int64(len(tickets))))
	assert.True(t, sum.Sub(before.Total).Abs().LessThanOrEqual(tolerance),
		"sum %s vs before %s", sum, before.Total)
}

func TestSplitByDinersBounds(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()
	ticket, _ := seedTicket(t, svc, "100", "200", "300")

	var validation *ValidationError
	_, err := split.SplitByDiners(ctx, ticket.ID, 1, 1)
	assert.ErrorAs(t, err, &validation)

	_, err = split.SplitByDiners(ctx, ticket.ID, 4, 1)
	assert.ErrorAs(t, err, &validation)
}

func TestMergeTickets(t *testing.T) {
	_, svc, split, notifier := setupTicketEnv(t)
	ctx := context.Background()

	// Two open tabs on one table come from an earlier split.
	ticket, items := seedTicket(t, svc, "1000", "500", "250")
	principal, secondary, err := split.SplitByItems(ctx, ticket.ID, []uint{items[2].ID}, SplitMeta{}, 1)
	require.NoError(t, err)

	beforeSum := sumTotals(principal, secondary)
	beforeCount := len(principal.Items) + len(secondary.Items)

	merged, err := split.MergeTickets(ctx, principal.ID, []uint{secondary.ID}, 9)
	require.NoError(t, err)

	assert.Len(t, merged.Items, beforeCount)
	assert.True(t, merged.Total.Equal(beforeSum), "merged %s vs before %s", merged.Total, beforeSum)

	// Secondary is voided with the audit annotation and zeroed totals.
	voided, err := svc.Get(ctx, secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusVoided, voided.Status)
	require.NotNil(t, voided.MergedInto)
	assert.Equal(t, principal.ID, *voided.MergedInto)
	assert.Contains(t, voided.VoidNote, "employee 9")
	assert.True(t, voided.Total.IsZero())
	assert.Empty(t, voided.Items)

	// A voided secondary accepts no further items.
	_, err = svc.AddItem(ctx, secondary.ID, ItemSpec{ProductID: 1, Quantity: 1}, 1)
	var business *BusinessError
	require.ErrorAs(t, err, &business)
	assert.Equal(t, CodeTicketNotOpen, business.Code)

	mergedEvents := notifier.ofType(events.EventTicketMerged)
	require.Len(t, mergedEvents, 1)
	assert.Equal(t, []uint{secondary.ID}, mergedEvents[0].RelatedIDs)
}

func TestMergePreservesPrepState(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()

	ticket, items := seedTicket(t, svc, "1000", "500")
	principal, secondary, err := split.SplitByItems(ctx, ticket.ID, []uint{items[1].ID}, SplitMeta{}, 1)
	require.NoError(t, err)

	movedID := secondary.Items[0].ID
	_, err = svc.AdvanceItemPrep(ctx, secondary.ID, movedID, models.PrepStatusInProgress, 1)
	require.NoError(t, err)

	merged, err := split.MergeTickets(ctx, principal.ID, []uint{secondary.ID}, 1)
	require.NoError(t, err)

	var moved *models.TicketItem
	for i := range merged.Items {
		if merged.Items[i].ID == movedID {
			moved = &merged.Items[i]
		}
	}
	require.NotNil(t, moved)
	assert.Equal(t, models.PrepStatusInProgress, moved.PrepStatus)
}

func TestMergeTableMismatch(t *testing.T) {
	db, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()

	db.Create(&models.Table{TableNumber: "T2", Status: models.TableStatusFree, Seats: 2})

	first, err := svc.Create(ctx, uintPtr(1), 1)
	require.NoError(t, err)
	second, err := svc.Create(ctx, uintPtr(2), 1)
	require.NoError(t, err)

	_, err = split.MergeTickets(ctx, first.ID, []uint{second.ID}, 1)
	var business *BusinessError
	require.ErrorAs(t, err, &business)
	assert.Equal(t, CodeTableMismatch, business.Code)
}

func TestMergeValidation(t *testing.T) {
	_, svc, split, _ := setupTicketEnv(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, uintPtr(1), 1)
	require.NoError(t, err)

	var validation *ValidationError
	_, err = split.MergeTickets(ctx, ticket.ID, nil, 1)
	assert.ErrorAs(t, err, &validation)

	_, err = split.MergeTickets(ctx, ticket.ID, []uint{ticket.ID}, 1)
	assert.ErrorAs(t, err, &validation)
}
