package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

type CouponController struct {
	DB *gorm.DB
}

func NewCouponController(db *gorm.DB) *CouponController {
	return &CouponController{DB: db}
}

// CreateCoupon -> staff registers a discount code
func (cc *CouponController) CreateCoupon(c *gin.Context) {
	var req struct {
		Code          string  `json:"code" binding:"required"`
		Type          string  `json:"type" binding:"required"`
		DiscountValue float64 `json:"discount_value" binding:"required"`
		MinOrderValue float64 `json:"min_order_value"`
		MaxUses       int     `json:"max_uses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	coupon := models.Coupon{
		Code:          req.Code,
		Type:          req.Type,
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		MaxUses:       req.MaxUses,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := cc.DB.Create(&coupon).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Coupon created", coupon)
}

// GetAllCoupons -> staff listing
func (cc *CouponController) GetAllCoupons(c *gin.Context) {
	var coupons []models.Coupon
	if err := cc.DB.Find(&coupons).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of coupons", coupons)
}

// ValidateCoupon -> preview the discount for ?subtotal= without consuming
// a use; the real redemption happens atomically at order creation
func (cc *CouponController) ValidateCoupon(c *gin.Context) {
	subtotal, err := strconv.ParseFloat(c.Query("subtotal"), 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var coupon models.Coupon
	if err := cc.DB.Where("code = ?", c.Param("code")).First(&coupon).Error; err != nil {
		respondServiceError(c, services.ErrCouponNotFound)
		return
	}

	discount, err := services.CouponDiscount(&coupon, subtotal)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Coupon valid", gin.H{
		"code":     coupon.Code,
		"discount": discount,
	})
}
