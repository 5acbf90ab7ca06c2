package services

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// PaymentMetrics keeps simple counters over the monitor's lifetime.
type PaymentMetrics struct {
	SettledCharges int64
	ExpiredCharges int64
	FailedPolls    int64
}

// PaymentMonitor is the poll half of the callback-or-poll duality: a
// ticker-driven worker that expires stale pending charges and asks the
// provider about charges close to their expiry, feeding the same
// settlement routine the webhook uses.
type PaymentMonitor struct {
	db       *gorm.DB
	payments *PaymentService
	orders   *OrderService
	interval time.Duration
	stopCh   chan struct{}

	mutex   sync.Mutex
	metrics PaymentMetrics
}

func NewPaymentMonitor(db *gorm.DB, payments *PaymentService, orders *OrderService) *PaymentMonitor {
	return &PaymentMonitor{
		db:       db,
		payments: payments,
		orders:   orders,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the monitor goroutine.
func (pm *PaymentMonitor) Start() {
	go pm.run()
	utils.InfoLogger.Println("payment monitor started")
}

func (pm *PaymentMonitor) Stop() {
	close(pm.stopCh)
}

func (pm *PaymentMonitor) run() {
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pm.sweep()
		case <-pm.stopCh:
			return
		}
	}
}

// sweep walks all pending charges once.
func (pm *PaymentMonitor) sweep() {
	var payments []models.Payment
	if err := pm.db.Where("status = ?", PaymentStatusPending).Find(&payments).Error; err != nil {
		utils.ErrorLogger.Printf("monitor: failed to load pending payments: %v", err)
		return
	}

	now := time.Now()
	for i := range payments {
		payment := &payments[i]
		switch {
		case payment.ExpiresAt != nil && now.After(*payment.ExpiresAt):
			pm.expire(payment)
		case payment.ExpiresAt != nil && now.After(payment.ExpiresAt.Add(-10*time.Minute)):
			// close to expiry: ask the provider in case the callback was lost
			pm.poll(payment)
		}
	}
}

// expire marks the charge expired and cancels its order, releasing the
// table and reversing any redemption debit through the normal cancel path.
func (pm *PaymentMonitor) expire(payment *models.Payment) {
	if err := pm.payments.applyChargeStatus(payment, ChargeExpired); err != nil {
		utils.ErrorLogger.Printf("monitor: failed to expire charge %s: %v", payment.ChargeRef, err)
		return
	}

	if _, err := pm.orders.Cancel(payment.OrderID); err != nil {
		utils.ErrorLogger.Printf("monitor: failed to cancel order %d for expired charge: %v",
			payment.OrderID, err)
		return
	}

	pm.mutex.Lock()
	pm.metrics.ExpiredCharges++
	pm.mutex.Unlock()
	utils.InfoLogger.Printf("charge %s expired, order %d cancelled", payment.ChargeRef, payment.OrderID)
}

func (pm *PaymentMonitor) poll(payment *models.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	status, err := pm.payments.gateway.Status(ctx, payment.ChargeRef)
	if err != nil {
		// transient; the next sweep retries
		pm.mutex.Lock()
		pm.metrics.FailedPolls++
		pm.mutex.Unlock()
		utils.ErrorLogger.Printf("monitor: status poll for charge %s failed: %v", payment.ChargeRef, err)
		return
	}

	if err := pm.payments.applyChargeStatus(payment, status); err != nil {
		utils.ErrorLogger.Printf("monitor: failed to apply status %s to charge %s: %v",
			status, payment.ChargeRef, err)
		return
	}
	if status == ChargeSuccess {
		pm.mutex.Lock()
		pm.metrics.SettledCharges++
		pm.mutex.Unlock()
		utils.InfoLogger.Printf("charge %s settled via poll reconciliation", payment.ChargeRef)
	}
}

// Metrics returns a snapshot of the counters.
func (pm *PaymentMonitor) Metrics() PaymentMetrics {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	return pm.metrics
}
