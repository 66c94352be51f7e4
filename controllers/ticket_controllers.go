package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TicketController struct {
	tickets *services.TicketService
	split   *services.SplitMergeService
}

func NewTicketController(tickets *services.TicketService, split *services.SplitMergeService) *TicketController {
	return &TicketController{tickets: tickets, split: split}
}

// CreateTicket -> open a new ticket, optionally against a table
func (tc *TicketController) CreateTicket(c *gin.Context) {
	var req struct {
		TableID *uint `json:"table_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ticket, err := tc.tickets.Create(c.Request.Context(), req.TableID, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.InfoLogger.Printf("Ticket %d opened by employee %d", ticket.ID, ticket.ServerID)
	utils.RespondJSON(c, http.StatusCreated, "Ticket created", ticket)
}

// GetTicket -> detail of one ticket with items
func (tc *TicketController) GetTicket(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ticket, err := tc.tickets.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ticket detail", ticket)
}

// ListOpenTickets -> all open tickets, oldest first
func (tc *TicketController) ListOpenTickets(c *gin.Context) {
	tickets, err := tc.tickets.ListOpen(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Open tickets", tickets)
}

// AddItem -> append a line item to an open ticket
func (tc *TicketController) AddItem(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var spec services.ItemSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := tc.tickets.AddItem(c.Request.Context(), id, spec, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item added", item)
}

// UpdateItem -> patch quantity, discount or modifiers of a line item
func (tc *TicketController) UpdateItem(c *gin.Context) {
	ticketID, itemID, err := ticketItemParams(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var patch services.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := tc.tickets.UpdateItem(c.Request.Context(), ticketID, itemID, patch, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", item)
}

// RemoveItem -> delete a line item from an open ticket
func (tc *TicketController) RemoveItem(c *gin.Context) {
	ticketID, itemID, err := ticketItemParams(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := tc.tickets.RemoveItem(c.Request.Context(), ticketID, itemID, actorID(c)); err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", gin.H{"item_id": itemID})
}

// ChangeState -> move a ticket through open -> closed -> paid / voided
func (tc *TicketController) ChangeState(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ticket, err := tc.tickets.ChangeState(c.Request.Context(), id, req.Status, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	msg := fmt.Sprintf("Ticket %s (total %s)", ticket.Status, utils.FormatAmount(ticket.Total))
	utils.RespondJSON(c, http.StatusOK, msg, ticket)
}

// AdvanceItemPrep -> chef moves an item one step through the kitchen flow
func (tc *TicketController) AdvanceItemPrep(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "chef" && role != "staff" && role != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	ticketID, itemID, err := ticketItemParams(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := tc.tickets.AdvanceItemPrep(c.Request.Context(), ticketID, itemID, req.Status, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item prep updated", item)
}

// SplitByItems -> move named items onto a new ticket on the same table
func (tc *TicketController) SplitByItems(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		ItemIDs  []uint `json:"item_ids" binding:"required"`
		ServerID *uint  `json:"server_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	original, split, err := tc.split.SplitByItems(c.Request.Context(), id, req.ItemIDs, services.SplitMeta{ServerID: req.ServerID}, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.InfoLogger.Printf("Ticket %d split into %d (%d items moved)", original.ID, split.ID, len(req.ItemIDs))
	utils.RespondJSON(c, http.StatusOK, "Ticket split", gin.H{
		"original": original,
		"split":    split,
	})
}

// SplitByDiners -> partition items into n tabs by insertion order
func (tc *TicketController) SplitByDiners(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Diners int `json:"diners" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	tickets, err := tc.split.SplitByDiners(c.Request.Context(), id, req.Diners, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Ticket split by diners", tickets)
}

// MergeTickets -> consolidate secondary tickets into this one
func (tc *TicketController) MergeTickets(c *gin.Context) {
	id, err := ticketParam(c)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var req struct {
		SecondaryIDs []uint `json:"secondary_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	principal, err := tc.split.MergeTickets(c.Request.Context(), id, req.SecondaryIDs, actorID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	msg := fmt.Sprintf("Tickets merged (total %s)", utils.FormatAmount(principal.Total))
	utils.RespondJSON(c, http.StatusOK, msg, principal)
}

func ticketParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("ticket_id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ticket id")
	}
	return uint(id), nil
}

func ticketItemParams(c *gin.Context) (uint, uint, error) {
	ticketID, err := ticketParam(c)
	if err != nil {
		return 0, 0, err
	}
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid item id")
	}
	return ticketID, uint(itemID), nil
}
