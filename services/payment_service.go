package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/events"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// Payment statuses
const (
	PaymentStatusPending             = "pending"
	PaymentStatusSuccess             = "success"
	PaymentStatusFailed              = "failed"
	PaymentStatusExpired             = "expired"
	PaymentStatusNeedsReconciliation = "needs_reconciliation"
)

// PaymentService orchestrates charges. Every confirmation path — manual
// acknowledgment, provider callback, status poll — converges on the same
// settlement routine.
type PaymentService struct {
	db      *gorm.DB
	cfg     *config.Settings
	gateway Gateway
	orders  *OrderService
}

func NewPaymentService(db *gorm.DB, cfg *config.Settings, gateway Gateway, orders *OrderService) *PaymentService {
	return &PaymentService{
		db:      db,
		cfg:     cfg,
		gateway: gateway,
		orders:  orders,
	}
}

func manualMethod(method string) bool {
	switch method {
	case models.PayMethodCash, models.PayMethodCreditCard, models.PayMethodDebitCard:
		return true
	}
	return false
}

// CreateCharge requests settlement for an order. Manual methods settle
// synchronously; the PIX family returns a pending charge with the QR
// artifacts and parks the order in pending_payment. A gateway failure
// leaves the order in its current pre-payment state for retry or fallback.
func (s *PaymentService) CreateCharge(ctx context.Context, orderID uint, method, payerContact string) (*models.Payment, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCompleted {
		return nil, ErrOrderTerminal
	}
	if order.Status == OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	if manualMethod(method) {
		return s.settleManual(order, method)
	}
	if method != models.PayMethodPix {
		return nil, fmt.Errorf("unsupported payment method %q", method)
	}

	result, err := s.gateway.Charge(ctx, ChargeRequest{
		Amount:       order.Total,
		OrderRef:     order.Number,
		PayerContact: payerContact,
	})
	if err != nil {
		return nil, err
	}

	if result.Immediate {
		// restaurant configured the manual family for everything
		return s.settleManual(order, method)
	}

	payment := models.Payment{
		OrderID:       order.ID,
		Amount:        order.Total,
		Status:        PaymentStatusPending,
		PaymentMethod: method,
		ChargeRef:     result.ChargeRef,
		QRImage:       result.QRImage,
		CopyPasteCode: result.CopyPasteCode,
		ExpiresAt:     result.ExpiresAt,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if payment.ExpiresAt == nil {
		expires := time.Now().Add(s.cfg.ChargeTTL)
		payment.ExpiresAt = &expires
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if _, err := s.orders.MarkPendingPayment(order.ID, method); err != nil {
		return nil, err
	}

	events.BroadcastPaymentPending(payment)
	return &payment, nil
}

// settleManual records an immediate settlement and completes the order
// synchronously.
func (s *PaymentService) settleManual(order *models.Order, method string) (*models.Payment, error) {
	if err := s.orders.SetPaymentMethod(order.ID, method); err != nil {
		return nil, err
	}

	now := time.Now()
	payment := models.Payment{
		OrderID:       order.ID,
		Amount:        order.Total,
		Status:        PaymentStatusSuccess,
		PaymentMethod: method,
		PaidAt:        &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if _, err := s.orders.Complete(order.ID); err != nil {
		return nil, err
	}

	events.BroadcastPaymentUpdate(payment)
	return &payment, nil
}

// Confirm is the manual acknowledgment path for an asynchronous charge:
// staff saw the provider app confirm and presses the button. Confirming a
// charge that is not pending is a no-op.
func (s *PaymentService) Confirm(paymentID uint) (*models.Payment, error) {
	payment, err := s.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.settleCharge(payment); err != nil {
		return nil, err
	}
	return s.GetByID(paymentID)
}

// HandleCallback is the provider push path. The signature must match
// before anything is trusted.
func (s *PaymentService) HandleCallback(chargeRef, providerStatus, amount, signature string) error {
	pix, ok := s.gateway.(*PixGateway)
	if !ok {
		return fmt.Errorf("callback received but no async gateway configured")
	}
	if !pix.ValidateSignature(chargeRef, providerStatus, amount, signature) {
		return fmt.Errorf("invalid callback signature")
	}

	var payment models.Payment
	if err := s.db.Where("charge_ref = ?", chargeRef).First(&payment).Error; err != nil {
		return fmt.Errorf("unknown charge reference %s", chargeRef)
	}

	status := mapPixStatus(providerStatus)
	if status == ChargeSuccess && !amountMatches(payment.Amount, amount) {
		// signed but for the wrong amount: never settle the full order
		utils.ErrorLogger.Printf("charge %s reported paid with amount %q, expected %.2f, flagged for reconciliation",
			chargeRef, amount, payment.Amount)
		return s.db.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, PaymentStatusPending).
			Update("status", PaymentStatusNeedsReconciliation).Error
	}

	return s.applyChargeStatus(&payment, status)
}

// amountMatches compares the provider-reported amount with the stored
// charge amount. Providers that omit the field pass; a malformed or
// different value does not.
func amountMatches(expected float64, reported string) bool {
	if reported == "" {
		return true
	}
	v, err := strconv.ParseFloat(reported, 64)
	if err != nil {
		return false
	}
	return utils.Dec(v).Equal(utils.Dec(expected))
}

// CheckStatus is the pull path: poll the provider and reconcile.
func (s *PaymentService) CheckStatus(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != PaymentStatusPending {
		return payment, nil
	}

	status, err := s.gateway.Status(ctx, payment.ChargeRef)
	if err != nil {
		return nil, err
	}
	if err := s.applyChargeStatus(payment, status); err != nil {
		return nil, err
	}
	return s.GetByID(paymentID)
}

// applyChargeStatus routes a provider-reported state change.
func (s *PaymentService) applyChargeStatus(payment *models.Payment, status string) error {
	switch status {
	case ChargeSuccess:
		return s.settleCharge(payment)
	case ChargeFailed, ChargeExpired:
		// order stays where it was so the channel can retry or fall back
		target := PaymentStatusFailed
		if status == ChargeExpired {
			target = PaymentStatusExpired
		}
		res := s.db.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, PaymentStatusPending).
			Updates(map[string]interface{}{"status": target, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			payment.Status = target
			events.BroadcastPaymentUpdate(*payment)
		}
		return nil
	default:
		return nil // still pending
	}
}

// settleCharge marks the charge paid and completes the order, exactly
// once. The CAS on the payment row absorbs duplicate webhooks and double
// confirms; a charge settling after its order was cancelled, or after the
// charge was locally expired or failed, is routed to needs_reconciliation
// instead of being dropped.
func (s *PaymentService) settleCharge(payment *models.Payment) error {
	now := time.Now()
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":     PaymentStatusSuccess,
			"paid_at":    now,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.Payment
		if err := s.db.First(&current, payment.ID).Error; err != nil {
			return err
		}
		switch current.Status {
		case PaymentStatusSuccess:
			return nil // duplicate confirmation
		case PaymentStatusExpired, PaymentStatusFailed:
			// the money arrived after the charge was locally written off
			// (late webhook, or the provider's expiry clock lagging ours)
			utils.ErrorLogger.Printf("charge %s settled after being marked %s, flagged for reconciliation",
				payment.ChargeRef, current.Status)
			return s.db.Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, current.Status).
				Update("status", PaymentStatusNeedsReconciliation).Error
		}
		return ErrChargeNotPending
	}
	payment.Status = PaymentStatusSuccess
	payment.PaidAt = &now

	if _, err := s.orders.Complete(payment.OrderID); err != nil {
		if errors.Is(err, ErrOrderCancelled) {
			utils.ErrorLogger.Printf("charge %s settled for cancelled order %d, flagged for reconciliation",
				payment.ChargeRef, payment.OrderID)
			return s.db.Model(&models.Payment{}).
				Where("id = ?", payment.ID).
				Update("status", PaymentStatusNeedsReconciliation).Error
		}
		return err
	}

	events.BroadcastPaymentUpdate(*payment)
	return nil
}

// GetByID returns one payment.
func (s *PaymentService) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrderID returns the latest payment attempt for an order.
func (s *PaymentService) GetByOrderID(orderID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("order_id = ?", orderID).
		Order("created_at desc").First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// List returns payments filtered by optional status, newest first.
func (s *PaymentService) List(status string) ([]models.Payment, error) {
	var payments []models.Payment
	q := s.db.Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&payments).Error
	return payments, err
}
