package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// LoyaltyService is the append-only ledger over customer point balances.
// The customers.loyalty_points column is a cached projection; every write
// here pairs a transaction insert with an atomic balance update.
type LoyaltyService struct {
	db *gorm.DB
}

func NewLoyaltyService(db *gorm.DB) *LoyaltyService {
	return &LoyaltyService{db: db}
}

// Credit awards points for a settled order. Safe to retry: the unique
// (order_id, type) index turns a duplicate earn into a no-op.
func (s *LoyaltyService) Credit(customerID, orderID uint, points int, description string) error {
	if points <= 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(tx, customerID, orderID, points, description)
	})
}

// CreditTx is Credit inside a caller-owned transaction.
func (s *LoyaltyService) CreditTx(tx *gorm.DB, customerID, orderID uint, points int, description string) error {
	txn := models.LoyaltyTransaction{
		CustomerID:  customerID,
		OrderID:     &orderID,
		Type:        models.LoyaltyEarn,
		Points:      points,
		Description: description,
		CreatedAt:   time.Now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&txn)
	if res.Error != nil {
		return fmt.Errorf("failed to insert earn transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// already credited for this order, e.g. duplicate webhook
		return nil
	}

	if err := tx.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points)).Error; err != nil {
		return fmt.Errorf("failed to increment balance: %w", err)
	}
	return nil
}

// Debit redeems points against an order. The balance guard lives in the
// UPDATE itself so two concurrent redemptions cannot both drain the same
// points.
func (s *LoyaltyService) Debit(customerID, orderID uint, points int, description string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(tx, customerID, orderID, points, description)
	})
}

// DebitTx is Debit inside a caller-owned transaction.
func (s *LoyaltyService) DebitTx(tx *gorm.DB, customerID, orderID uint, points int, description string) error {
	if points <= 0 {
		return nil
	}

	res := tx.Model(&models.Customer{}).
		Where("id = ? AND loyalty_points >= ? AND is_suspicious = ?", customerID, points, false).
		Update("loyalty_points", gorm.Expr("loyalty_points - ?", points))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var customer models.Customer
		if err := tx.First(&customer, customerID).Error; err == nil && customer.IsSuspicious {
			return ErrSuspiciousCustomer
		}
		return ErrInsufficientPoints
	}

	txn := models.LoyaltyTransaction{
		CustomerID:  customerID,
		OrderID:     &orderID,
		Type:        models.LoyaltyRedeem,
		Points:      -points,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("failed to insert redeem transaction: %w", err)
	}
	return nil
}

// ReverseRedeemTx returns previously redeemed points when an order is
// cancelled before completion. Idempotent via the (order_id, type) index.
func (s *LoyaltyService) ReverseRedeemTx(tx *gorm.DB, customerID, orderID uint, points int) error {
	if points <= 0 {
		return nil
	}
	txn := models.LoyaltyTransaction{
		CustomerID:  customerID,
		OrderID:     &orderID,
		Type:        models.LoyaltyRedeemReversal,
		Points:      points,
		Description: fmt.Sprintf("Order #%d cancelled, redeemed points returned", orderID),
		CreatedAt:   time.Now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&txn)
	if res.Error != nil {
		return fmt.Errorf("failed to insert reversal transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	return tx.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points)).Error
}

// BalanceOf returns the cached projection.
func (s *LoyaltyService) BalanceOf(customerID uint) (int, error) {
	var customer models.Customer
	if err := s.db.First(&customer, customerID).Error; err != nil {
		return 0, err
	}
	return customer.LoyaltyPoints, nil
}

// History returns the customer's ledger, newest first.
func (s *LoyaltyService) History(customerID uint) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	err := s.db.Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&txns).Error
	return txns, err
}

// Reconcile re-sums the ledger and corrects projection drift. Drift is
// logged, never surfaced to the customer.
func (s *LoyaltyService) Reconcile(customerID uint) (int, error) {
	var sum int64
	if err := s.db.Model(&models.LoyaltyTransaction{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}

	var customer models.Customer
	if err := s.db.First(&customer, customerID).Error; err != nil {
		return 0, err
	}

	if customer.LoyaltyPoints != int(sum) {
		utils.ErrorLogger.Printf("loyalty drift for customer %d: cached=%d ledger=%d",
			customerID, customer.LoyaltyPoints, sum)
		if err := s.db.Model(&models.Customer{}).
			Where("id = ?", customerID).
			Update("loyalty_points", sum).Error; err != nil {
			return 0, err
		}
	}
	return int(sum), nil
}
