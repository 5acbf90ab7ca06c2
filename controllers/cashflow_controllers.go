package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

type CashflowController struct {
	DB *gorm.DB
}

func NewCashflowController(db *gorm.DB) *CashflowController {
	return &CashflowController{DB: db}
}

// GetMovements -> list cash movements, optionally for one day (?date=2026-08-28)
func (cf *CashflowController) GetMovements(c *gin.Context) {
	var movements []models.CashMovement
	q := cf.DB.Order("movement_date desc")

	if date := c.Query("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		q = q.Where("movement_date >= ? AND movement_date < ?", day, day.AddDate(0, 0, 1))
	}

	if err := q.Find(&movements).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cash movements", movements)
}

// GetDailySummary -> income totals per payment method for one day
func (cf *CashflowController) GetDailySummary(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var rows []struct {
		PaymentMethod string  `json:"payment_method"`
		Total         float64 `json:"total"`
		Count         int64   `json:"count"`
	}
	err = cf.DB.Model(&models.CashMovement{}).
		Select("payment_method, SUM(amount) as total, COUNT(*) as count").
		Where("type = ? AND movement_date >= ? AND movement_date < ?",
			models.CashMovementIncome, day, day.AddDate(0, 0, 1)).
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Daily summary", gin.H{
		"date":    date,
		"methods": rows,
	})
}
