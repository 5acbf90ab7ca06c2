package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/models"
)

func TestLoyaltyCreditIsIdempotentPerOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990001", 0)

	require.NoError(t, svc.Credit(customer.ID, 42, 108, "Order settled"))
	// duplicate settlement retry
	require.NoError(t, svc.Credit(customer.ID, 42, 108, "Order settled"))

	balance, err := svc.BalanceOf(customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 108, balance)

	var count int64
	db.Model(&models.LoyaltyTransaction{}).
		Where("customer_id = ? AND type = ?", customer.ID, models.LoyaltyEarn).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestLoyaltyDebitInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990002", 100)

	err := svc.Debit(customer.ID, 43, 150, "Redeemed at checkout")
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	balance, _ := svc.BalanceOf(customer.ID)
	assert.Equal(t, 100, balance)
}

func TestLoyaltyDebitExactBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990003", 150)

	require.NoError(t, svc.Debit(customer.ID, 44, 150, "Redeemed at checkout"))

	balance, _ := svc.BalanceOf(customer.ID)
	assert.Equal(t, 0, balance)

	txns, err := svc.History(customer.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.LoyaltyRedeem, txns[0].Type)
	assert.Equal(t, -150, txns[0].Points)
}

func TestLoyaltyDebitSuspiciousCustomer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990004", 500)
	require.NoError(t, db.Model(customer).Update("is_suspicious", true).Error)

	err := svc.Debit(customer.ID, 45, 100, "Redeemed at checkout")
	assert.ErrorIs(t, err, ErrSuspiciousCustomer)
}

func TestLoyaltyReverseRedeemIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990005", 200)

	require.NoError(t, svc.Debit(customer.ID, 46, 150, "Redeemed at checkout"))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ReverseRedeemTx(tx, customer.ID, 46, 150)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ReverseRedeemTx(tx, customer.ID, 46, 150)
	}))

	balance, _ := svc.BalanceOf(customer.ID)
	assert.Equal(t, 200, balance)
}

func TestLoyaltyReconcileCorrectsDrift(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLoyaltyService(db)
	customer := seedCustomer(t, db, "5511999990006", 0)

	require.NoError(t, svc.Credit(customer.ID, 47, 80, "Order settled"))

	// simulate projection drift
	require.NoError(t, db.Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Update("loyalty_points", 999).Error)

	sum, err := svc.Reconcile(customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, sum)

	balance, _ := svc.BalanceOf(customer.ID)
	assert.Equal(t, 80, balance)
}
