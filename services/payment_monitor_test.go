package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/orderflow/models"
)

func TestMonitorExpiresStaleCharge(t *testing.T) {
	db := setupTestDB(t)
	status := "pending"
	server := pixTestServer(t, &status)
	defer server.Close()

	cfg := pixSettings(server.URL)
	orders, payments := newPaymentStack(t, db, cfg, NewPixGateway(cfg))
	monitor := NewPaymentMonitor(db, payments, orders)

	table := seedTable(t, db, "T9")
	order, err := orders.Create(context.Background(), CreateOrderInput{
		Channel: models.ChannelPOS,
		Kind:    models.KindDineIn,
		Items:   burgerCart(),
		TableID: &table.ID,
	})
	require.NoError(t, err)

	payment, err := payments.CreateCharge(context.Background(), order.ID, models.PayMethodPix, "")
	require.NoError(t, err)

	// make the charge overdue
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("expires_at", past).Error)

	monitor.sweep()

	expired, err := payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusExpired, expired.Status)

	fresh, err := orders.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, fresh.Status)

	// the table is given back
	var freed models.Table
	require.NoError(t, db.First(&freed, table.ID).Error)
	assert.Equal(t, models.TableFree, freed.Status)

	assert.Equal(t, int64(1), monitor.Metrics().ExpiredCharges)
}

func TestMonitorPollsChargesNearExpiry(t *testing.T) {
	db := setupTestDB(t)
	status := "pending"
	server := pixTestServer(t, &status)
	defer server.Close()

	cfg := pixSettings(server.URL)
	orders, payments := newPaymentStack(t, db, cfg, NewPixGateway(cfg))
	monitor := NewPaymentMonitor(db, payments, orders)

	order, err := orders.Create(context.Background(), CreateOrderInput{
		Channel: models.ChannelOnline,
		Kind:    models.KindPickup,
		Items:   burgerCart(),
	})
	require.NoError(t, err)

	payment, err := payments.CreateCharge(context.Background(), order.ID, models.PayMethodPix, "")
	require.NoError(t, err)

	// inside the pre-expiry polling window
	soon := time.Now().Add(5 * time.Minute)
	require.NoError(t, db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("expires_at", soon).Error)

	// the lost-callback scenario: the provider says paid, no webhook came
	status = "paid"
	monitor.sweep()

	settled, err := payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, settled.Status)

	fresh, err := orders.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, fresh.Status)

	assert.Equal(t, int64(1), monitor.Metrics().SettledCharges)
}

func TestMonitorIgnoresFreshCharges(t *testing.T) {
	db := setupTestDB(t)
	status := "pending"
	server := pixTestServer(t, &status)
	defer server.Close()

	cfg := pixSettings(server.URL)
	orders, payments := newPaymentStack(t, db, cfg, NewPixGateway(cfg))
	monitor := NewPaymentMonitor(db, payments, orders)

	order, err := orders.Create(context.Background(), CreateOrderInput{
		Channel: models.ChannelOnline,
		Kind:    models.KindPickup,
		Items:   burgerCart(),
	})
	require.NoError(t, err)

	payment, err := payments.CreateCharge(context.Background(), order.ID, models.PayMethodPix, "")
	require.NoError(t, err)

	monitor.sweep()

	still, err := payments.GetByID(payment.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, still.Status)
}
