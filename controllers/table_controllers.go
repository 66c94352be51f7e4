package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type TableController struct {
	DB       *gorm.DB
	registry services.TableRegistry
}

func NewTableController(db *gorm.DB, registry services.TableRegistry) *TableController {
	return &TableController{DB: db, registry: registry}
}

// CreateTable -> register a new physical table
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"table_number" binding:"required"`
		Seats       int    `json:"seats"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		TableNumber: req.TableNumber,
		Status:      models.TableStatusFree,
		Seats:       req.Seats,
	}
	if table.Seats == 0 {
		table.Seats = 4
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %s", table.TableNumber)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> every table with its occupancy state
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTableByID -> detail of one table
func (tc *TableController) GetTableByID(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// FindTablesByStatus -> e.g. list free tables for seating
func (tc *TableController) FindTablesByStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		status = models.TableStatusFree
	}
	var tables []models.Table
	if err := tc.DB.Where("status = ?", status).Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables with status: "+status, tables)
}

// UpdateTableStatus -> manual occupancy override through the registry,
// e.g. blocking a free table for maintenance
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "admin" && role != "staff" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	id, err := tableParam(c)
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
	if req.Status != models.TableStatusFree && req.Status != models.TableStatusOccupied {
		utils.RespondError(c, http.StatusBadRequest, services.NewValidationError("unknown table status %q", req.Status))
		return
	}

	if err := tc.registry.SetState(c.Request.Context(), id, req.Status); err != nil {
		respondDomainError(c, err)
		return
	}

	state, err := tc.registry.GetState(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %d status changed to %s", id, state)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", gin.H{"id": id, "status": state})
}

// DeleteTable -> remove a table that has no open tickets
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID := c.Param("table_id")
	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	var open int64
	tc.DB.Model(&models.Ticket{}).
		Where("table_id = ? AND status = ?", table.ID, models.TicketStatusOpen).
		Count(&open)
	if open > 0 {
		utils.RespondError(c, http.StatusConflict, services.NewBusinessError(services.CodeTableUnavailable, "table %s still has open tickets", table.TableNumber))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}

// GetFloorStats -> occupancy counters for the floor dashboard
func (tc *TableController) GetFloorStats(c *gin.Context) {
	var freeCount, occupiedCount int64
	tc.DB.Model(&models.Table{}).Where("status = ?", models.TableStatusFree).Count(&freeCount)
	tc.DB.Model(&models.Table{}).Where("status = ?", models.TableStatusOccupied).Count(&occupiedCount)

	utils.RespondJSON(c, http.StatusOK, "Floor stats", gin.H{
		"free":     freeCount,
		"occupied": occupiedCount,
		"total":    freeCount + occupiedCount,
	})
}

func tableParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("table_id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid table id")
	}
	return uint(id), nil
}
