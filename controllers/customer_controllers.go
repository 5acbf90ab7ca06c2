package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

type CustomerController struct {
	DB      *gorm.DB
	Loyalty *services.LoyaltyService
}

func NewCustomerController(db *gorm.DB, loyalty *services.LoyaltyService) *CustomerController {
	return &CustomerController{DB: db, Loyalty: loyalty}
}

// GetAllCustomers -> staff listing
func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	var customers []models.Customer
	if err := cc.DB.Find(&customers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customers", customers)
}

// GetCustomerByPhone -> lookup by the natural key, used by channels to
// prefill repeat orders
func (cc *CustomerController) GetCustomerByPhone(c *gin.Context) {
	var customer models.Customer
	if err := cc.DB.Where("phone = ?", c.Param("phone")).First(&customer).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", customer)
}

// GetLoyaltyHistory -> the customer's ledger plus the cached balance
func (cc *CustomerController) GetLoyaltyHistory(c *gin.Context) {
	customerID := paramUint(c, "customer_id")

	balance, err := cc.Loyalty.BalanceOf(customerID)
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	history, err := cc.Loyalty.History(customerID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Loyalty history", gin.H{
		"balance":      balance,
		"transactions": history,
	})
}

// ReconcileLoyalty -> on-demand drift correction between the cached
// balance and the ledger sum
func (cc *CustomerController) ReconcileLoyalty(c *gin.Context) {
	balance, err := cc.Loyalty.Reconcile(paramUint(c, "customer_id"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Balance reconciled", gin.H{"balance": balance})
}

// FlagCustomer -> toggle the is_suspicious flag
func (cc *CustomerController) FlagCustomer(c *gin.Context) {
	var body struct {
		IsSuspicious *bool `json:"is_suspicious" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	customerID := paramUint(c, "customer_id")
	if err := cc.DB.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("is_suspicious", *body.IsSuspicious).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("customer %d flagged suspicious=%v", customerID, *body.IsSuspicious)
	utils.RespondJSON(c, http.StatusOK, "Customer updated", gin.H{"customer_id": customerID})
}
