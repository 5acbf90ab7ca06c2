package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/events"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

type TableController struct {
	DB *gorm.DB
}

func NewTableController(db *gorm.DB) *TableController {
	return &TableController{DB: db}
}

// CreateTable -> register a new dine-in table
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		Number:    req.Number,
		Status:    models.TableFree,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("table %s created", table.Number)
	utils.RespondJSON(c, http.StatusCreated, "Table created", table)
}

// GetAllTables -> every table with its occupancy
func (tc *TableController) GetAllTables(c *gin.Context) {
	var tables []models.Table
	if err := tc.DB.Order("number asc").Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// UpdateTableStatus -> staff moves a table between free and reserved.
// Occupied is owned by the order lifecycle and cannot be set by hand.
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if body.Status != models.TableFree && body.Status != models.TableReserved {
		utils.RespondError(c, http.StatusBadRequest,
			fmt.Errorf("status must be %q or %q", models.TableFree, models.TableReserved))
		return
	}

	tableID := paramUint(c, "table_id")

	// CAS away from occupied is forbidden: that transition belongs to
	// order completion/cancellation
	res := tc.DB.Model(&models.Table{}).
		Where("id = ? AND status != ?", tableID, models.TableOccupied).
		Updates(map[string]interface{}{"status": body.Status, "updated_at": time.Now()})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("table is occupied by an open order"))
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, tableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	events.BroadcastTableUpdate(table)
	utils.InfoLogger.Printf("table %s status changed to %s", table.Number, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}
