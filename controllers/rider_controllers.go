package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

type RiderController struct {
	DB *gorm.DB
}

func NewRiderController(db *gorm.DB) *RiderController {
	return &RiderController{DB: db}
}

// CreateRider -> register a motoboy
func (rc *RiderController) CreateRider(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	rider := models.Rider{
		Name:      req.Name,
		Phone:     req.Phone,
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := rc.DB.Create(&rider).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Rider created", rider)
}

// GetAllRiders -> list riders, ?active=true filters to dispatchable ones
func (rc *RiderController) GetAllRiders(c *gin.Context) {
	var riders []models.Rider
	q := rc.DB.Order("name asc")
	if c.Query("active") == "true" {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&riders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of riders", riders)
}

// SetRiderActive -> activate/deactivate a rider
func (rc *RiderController) SetRiderActive(c *gin.Context) {
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	riderID := paramUint(c, "rider_id")
	if err := rc.DB.Model(&models.Rider{}).
		Where("id = ?", riderID).
		Updates(map[string]interface{}{"active": *body.Active, "updated_at": time.Now()}).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Rider updated", gin.H{"rider_id": riderID})
}
