package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/models"
)

func pricingSettings() *config.Settings {
	return &config.Settings{
		ServiceFeeRate: 0.10,
		LoyaltyEnabled: true,
		RedemptionRate: 0.01,
		EarnRate:       1,
	}
}

func TestPriceCartWithCouponAndFees(t *testing.T) {
	coupon := &models.Coupon{
		Code:          "SAVE10",
		Type:          models.CouponPercentage,
		DiscountValue: 10,
		MinOrderValue: 50,
		MaxUses:       100,
	}

	q, err := PriceCart(CartInput{
		Lines: []CartLine{
			{UnitPrice: 25.00, Quantity: 4},
		},
		DeliveryFee: 8.50,
		ServiceFee:  true,
		Coupon:      coupon,
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 100.00, q.Subtotal)
	assert.Equal(t, 10.00, q.ServiceFee)
	assert.Equal(t, 8.50, q.DeliveryFee)
	assert.Equal(t, 10.00, q.CouponDiscount)
	assert.Equal(t, 108.50, q.Total)
}

func TestPriceCartModifierDeltas(t *testing.T) {
	q, err := PriceCart(CartInput{
		Lines: []CartLine{
			// 2 x (12.00 + 1.50 extra cheese)
			{UnitPrice: 12.00, Quantity: 2, ModifierDelta: 1.50},
			{UnitPrice: 5.00, Quantity: 1},
		},
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 32.00, q.Subtotal)
	assert.Equal(t, 32.00, q.Total)
	assert.Equal(t, 0.00, q.ServiceFee)
}

func TestPriceCartLoyaltyRedemption(t *testing.T) {
	q, err := PriceCart(CartInput{
		Lines:           []CartLine{{UnitPrice: 20.00, Quantity: 1}},
		PointsRequested: 150,
		PointsBalance:   200,
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 1.50, q.LoyaltyDiscount)
	assert.Equal(t, 150, q.PointsUsed)
	assert.Equal(t, 18.50, q.Total)
}

func TestPriceCartLoyaltyClampedToBalance(t *testing.T) {
	q, err := PriceCart(CartInput{
		Lines:           []CartLine{{UnitPrice: 20.00, Quantity: 1}},
		PointsRequested: 500,
		PointsBalance:   100,
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 100, q.PointsUsed)
	assert.Equal(t, 1.00, q.LoyaltyDiscount)
}

func TestPriceCartLoyaltyNeverDrivesTotalNegative(t *testing.T) {
	// 5.00 order, enough points for a 50.00 discount: only the points
	// whose value fits the order are burned.
	q, err := PriceCart(CartInput{
		Lines:           []CartLine{{UnitPrice: 5.00, Quantity: 1}},
		PointsRequested: 5000,
		PointsBalance:   5000,
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 500, q.PointsUsed)
	assert.Equal(t, 5.00, q.LoyaltyDiscount)
	assert.Equal(t, 0.00, q.Total)
}

func TestPriceCartFixedCouponCappedAtSubtotal(t *testing.T) {
	coupon := &models.Coupon{
		Code:          "FLAT20",
		Type:          models.CouponFixed,
		DiscountValue: 20,
	}

	q, err := PriceCart(CartInput{
		Lines:  []CartLine{{UnitPrice: 12.00, Quantity: 1}},
		Coupon: coupon,
	}, pricingSettings())

	assert.NoError(t, err)
	assert.Equal(t, 12.00, q.CouponDiscount)
	assert.Equal(t, 0.00, q.Total)
}

func TestPriceCartCouponBelowMinOrder(t *testing.T) {
	coupon := &models.Coupon{
		Code:          "SAVE10",
		Type:          models.CouponPercentage,
		DiscountValue: 10,
		MinOrderValue: 50,
	}

	_, err := PriceCart(CartInput{
		Lines:  []CartLine{{UnitPrice: 30.00, Quantity: 1}},
		Coupon: coupon,
	}, pricingSettings())

	assert.ErrorIs(t, err, ErrCouponMinOrder)
}

func TestPriceCartCouponExhausted(t *testing.T) {
	coupon := &models.Coupon{
		Code:          "GONE",
		Type:          models.CouponFixed,
		DiscountValue: 5,
		MaxUses:       10,
		CurrentUses:   10,
	}

	_, err := PriceCart(CartInput{
		Lines:  []CartLine{{UnitPrice: 30.00, Quantity: 1}},
		Coupon: coupon,
	}, pricingSettings())

	assert.ErrorIs(t, err, ErrCouponExhausted)
}

func TestCouponDiscountPreview(t *testing.T) {
	coupon := &models.Coupon{
		Code:          "SAVE10",
		Type:          models.CouponPercentage,
		DiscountValue: 10,
	}

	v, err := CouponDiscount(coupon, 80.00)
	assert.NoError(t, err)
	assert.Equal(t, 8.00, v)
}

func TestPointsEarned(t *testing.T) {
	cfg := pricingSettings()

	assert.Equal(t, 108, PointsEarned(108.50, cfg))
	assert.Equal(t, 0, PointsEarned(0, cfg))

	cfg.LoyaltyEnabled = false
	assert.Equal(t, 0, PointsEarned(108.50, cfg))
}
