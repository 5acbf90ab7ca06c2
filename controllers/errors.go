package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

var ErrNoPermission = errors.New("you don't have permission to access this resource")

// respondServiceError maps engine errors onto HTTP status codes so every
// controller reports conflicts and validation failures the same way.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrTableRequired),
		errors.Is(err, services.ErrAddressRequired),
		errors.Is(err, services.ErrCustomerRequired):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.Is(err, services.ErrOutOfRange),
		errors.Is(err, services.ErrAddressNotFound):
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, services.ErrTableNotFree),
		errors.Is(err, services.ErrCouponExhausted),
		errors.Is(err, services.ErrCouponMinOrder),
		errors.Is(err, services.ErrCouponNotFound),
		errors.Is(err, services.ErrInsufficientPoints),
		errors.Is(err, services.ErrSuspiciousCustomer),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrPaymentPending),
		errors.Is(err, services.ErrOrderTerminal),
		errors.Is(err, services.ErrOrderCancelled),
		errors.Is(err, services.ErrNotDelivery),
		errors.Is(err, services.ErrChargeNotPending):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrGatewayUnavailable):
		utils.RespondError(c, http.StatusBadGateway, err)
	case errors.Is(err, services.ErrGatewayMisconfigured):
		utils.RespondError(c, http.StatusInternalServerError, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
