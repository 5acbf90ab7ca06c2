package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

type PaymentController struct {
	DB       *gorm.DB
	Payments *services.PaymentService
}

func NewPaymentController(db *gorm.DB, payments *services.PaymentService) *PaymentController {
	return &PaymentController{DB: db, Payments: payments}
}

// CreatePayment -> request settlement for an order. Manual methods settle
// immediately; PIX returns a pending charge with the QR artifacts.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var body struct {
		OrderID      uint   `json:"order_id" binding:"required"`
		Method       string `json:"payment_method" binding:"required"`
		PayerContact string `json:"payer_contact"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	payment, err := pc.Payments.CreateCharge(c.Request.Context(), body.OrderID, body.Method, body.PayerContact)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Payment success"
	if payment.Status == services.PaymentStatusPending {
		message = "Payment pending"
	}
	utils.RespondJSON(c, http.StatusCreated, message, payment)
}

// ConfirmPayment -> manual acknowledgment of an async charge; confirming
// twice is a no-op
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	payment, err := pc.Payments.Confirm(paramUint(c, "payment_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", payment)
}

// HandleCallback -> provider webhook; signature checked before anything
// else is trusted
func (pc *PaymentController) HandleCallback(c *gin.Context) {
	var body struct {
		ChargeRef string `json:"charge_ref" binding:"required"`
		Status    string `json:"status" binding:"required"`
		Amount    string `json:"amount"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := pc.Payments.HandleCallback(body.ChargeRef, body.Status, body.Amount, body.Signature); err != nil {
		utils.ErrorLogger.Printf("payment callback rejected: %v", err)
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Callback processed", nil)
}

// CheckPaymentStatus -> pull path, polls the provider for pending charges
func (pc *PaymentController) CheckPaymentStatus(c *gin.Context) {
	payment, err := pc.Payments.CheckStatus(c.Request.Context(), paramUint(c, "payment_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment status", payment)
}

// GetPaymentByID -> one payment
func (pc *PaymentController) GetPaymentByID(c *gin.Context) {
	payment, err := pc.Payments.GetByID(paramUint(c, "payment_id"))
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

// GetOrderPayment -> latest payment attempt for an order
func (pc *PaymentController) GetOrderPayment(c *gin.Context) {
	payment, err := pc.Payments.GetByOrderID(paramUint(c, "order_id"))
	if err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment detail", payment)
}

// GetPayments -> list, optionally filtered by ?status=
func (pc *PaymentController) GetPayments(c *gin.Context) {
	payments, err := pc.Payments.List(c.Query("status"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", payments)
}
