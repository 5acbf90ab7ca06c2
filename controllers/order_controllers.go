package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

type OrderController struct {
	DB     *gorm.DB
	Orders *services.OrderService
}

func NewOrderController(db *gorm.DB, orders *services.OrderService) *OrderController {
	return &OrderController{DB: db, Orders: orders}
}

// CreateOrder -> priced-draft submission from any channel
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Create(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("order %s created via %s (%s), total %.2f",
		order.Number, order.Channel, order.Kind, order.Total)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders -> list orders, optionally filtered by ?status=
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.Orders.List(c.Query("status"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> detail of one order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id := paramUint(c, "order_id")
	order, err := oc.Orders.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// ConfirmOrder -> new => confirmed
func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	order, err := oc.Orders.Confirm(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order confirmed", order)
}

// StartPreparing -> kitchen picks the order up
func (oc *OrderController) StartPreparing(c *gin.Context) {
	order, err := oc.Orders.StartPreparing(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order preparing", order)
}

// MarkReady -> preparing => ready
func (oc *OrderController) MarkReady(c *gin.Context) {
	order, err := oc.Orders.MarkReady(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order ready", order)
}

// MarkReadyForPayment -> ready => ready_for_payment
func (oc *OrderController) MarkReadyForPayment(c *gin.Context) {
	order, err := oc.Orders.MarkReadyForPayment(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order awaiting payment", order)
}

// DispatchOrder -> ready => out_for_delivery, rider optional
func (oc *OrderController) DispatchOrder(c *gin.Context) {
	var body struct {
		RiderID *uint `json:"rider_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Dispatch(paramUint(c, "order_id"), body.RiderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order out for delivery", order)
}

// CompleteOrder -> staff marks the order completed; forbidden while the
// payment method is still pending
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	order, err := oc.Orders.Complete(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order completed", order)
}

// CancelOrder -> any non-terminal state
func (oc *OrderController) CancelOrder(c *gin.Context) {
	order, err := oc.Orders.Cancel(paramUint(c, "order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

func paramUint(c *gin.Context, name string) uint {
	id, _ := strconv.Atoi(c.Param(name))
	return uint(id)
}
