package services

import (
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// CartLine is one priced line of a draft cart. ModifierDelta is the sum of
// the per-unit price deltas of the chosen modifiers.
type CartLine struct {
	UnitPrice     float64
	Quantity      int
	ModifierDelta float64
}

// CartInput is everything the calculator needs to price a submission.
// It carries snapshots only; the calculator touches no storage.
type CartInput struct {
	Lines           []CartLine
	DeliveryFee     float64
	ServiceFee      bool
	Coupon          *models.Coupon
	PointsRequested int
	PointsBalance   int
}

// Quote is the priced result. PointsUsed may be lower than requested when
// the balance or the discount cap limits redemption.
type Quote struct {
	Subtotal        float64 `json:"subtotal"`
	DeliveryFee     float64 `json:"delivery_fee"`
	ServiceFee      float64 `json:"service_fee"`
	CouponDiscount  float64 `json:"coupon_discount"`
	LoyaltyDiscount float64 `json:"loyalty_discount"`
	Total           float64 `json:"total"`
	PointsUsed      int     `json:"points_used"`
}

// PriceCart computes the five monetary fields of an order from a cart.
// Pure function; channels call it for previews and the state machine calls
// it once more at submission, which is the only result that counts.
func PriceCart(in CartInput, cfg *config.Settings) (Quote, error) {
	var q Quote

	subtotal := decimal.Zero
	for _, line := range in.Lines {
		unit := utils.Dec(line.UnitPrice).Add(utils.Dec(line.ModifierDelta))
		subtotal = subtotal.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	deliveryFee := utils.Dec(in.DeliveryFee)

	serviceFee := decimal.Zero
	if in.ServiceFee {
		serviceFee = subtotal.Mul(decimal.NewFromFloat(cfg.ServiceFeeRate)).Round(2)
	}

	couponDiscount := decimal.Zero
	if in.Coupon != nil {
		var err error
		couponDiscount, err = couponValue(in.Coupon, subtotal)
		if err != nil {
			return q, err
		}
	}

	// Loyalty discount: capped by balance, then by the remaining
	// discountable amount so total never goes negative through redemption.
	loyaltyDiscount := decimal.Zero
	pointsUsed := 0
	if in.PointsRequested > 0 {
		points := in.PointsRequested
		if points > in.PointsBalance {
			points = in.PointsBalance
		}
		rate := decimal.NewFromFloat(cfg.RedemptionRate)
		maxDiscount := subtotal.Add(deliveryFee).Add(serviceFee).Sub(couponDiscount)
		if maxDiscount.IsNegative() {
			maxDiscount = decimal.Zero
		}
		loyaltyDiscount = rate.Mul(decimal.NewFromInt(int64(points)))
		if loyaltyDiscount.GreaterThan(maxDiscount) {
			// only burn the points whose value actually fits
			points = int(maxDiscount.Div(rate).IntPart())
			loyaltyDiscount = rate.Mul(decimal.NewFromInt(int64(points)))
		}
		pointsUsed = points
	}

	total := subtotal.Add(deliveryFee).Add(serviceFee).Sub(couponDiscount).Sub(loyaltyDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	q = Quote{
		Subtotal:        utils.Cents(subtotal),
		DeliveryFee:     utils.Cents(deliveryFee),
		ServiceFee:      utils.Cents(serviceFee),
		CouponDiscount:  utils.Cents(couponDiscount),
		LoyaltyDiscount: utils.Cents(loyaltyDiscount),
		Total:           utils.Cents(total),
		PointsUsed:      pointsUsed,
	}
	return q, nil
}

// couponValue computes the discount a coupon yields on a subtotal, or an
// error when the coupon cannot be applied. Percentage coupons discount the
// subtotal, never the fees.
func couponValue(cp *models.Coupon, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if subtotal.LessThan(utils.Dec(cp.MinOrderValue)) {
		return decimal.Zero, ErrCouponMinOrder
	}
	if cp.Exhausted() {
		return decimal.Zero, ErrCouponExhausted
	}

	switch cp.Type {
	case models.CouponPercentage:
		return subtotal.Mul(utils.Dec(cp.DiscountValue)).Div(decimal.NewFromInt(100)).Round(2), nil
	case models.CouponFixed:
		v := utils.Dec(cp.DiscountValue)
		if v.GreaterThan(subtotal) {
			v = subtotal
		}
		return v, nil
	default:
		return decimal.Zero, ErrCouponNotFound
	}
}

// CouponDiscount previews the discount a coupon yields on a subtotal.
// Channels use it to validate a code before submission.
func CouponDiscount(cp *models.Coupon, subtotal float64) (float64, error) {
	v, err := couponValue(cp, utils.Dec(subtotal))
	if err != nil {
		return 0, err
	}
	return utils.Cents(v), nil
}

// PointsEarned returns the points a settled order yields. Earning is a
// side effect of settlement: draft and pending orders never earn.
func PointsEarned(total float64, cfg *config.Settings) int {
	if !cfg.LoyaltyEnabled || total <= 0 {
		return 0
	}
	earned := utils.Dec(total).Mul(decimal.NewFromFloat(cfg.EarnRate))
	return int(earned.IntPart())
}
