package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/events"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// Order statuses
const (
	OrderStatusNew            = "new"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusReadyForPay    = "ready_for_payment"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

// OrderService owns the Order aggregate. Every status write goes through
// its transitions; nothing else may touch orders.status.
type OrderService struct {
	db       *gorm.DB
	cfg      *config.Settings
	loyalty  *LoyaltyService
	resolver *DeliveryResolver
	notifier Notifier
}

func NewOrderService(db *gorm.DB, cfg *config.Settings, loyalty *LoyaltyService, resolver *DeliveryResolver, notifier Notifier) *OrderService {
	return &OrderService{
		db:       db,
		cfg:      cfg,
		loyalty:  loyalty,
		resolver: resolver,
		notifier: notifier,
	}
}

// ItemInput is one cart line as submitted by a channel. Name and price are
// snapshotted onto the order item.
type ItemInput struct {
	Name          string  `json:"name" binding:"required"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity" binding:"required"`
	ModifierDelta float64 `json:"modifier_delta"`
	Modifiers     string  `json:"modifiers"`
}

// CreateOrderInput is a priced-draft submission from any channel.
type CreateOrderInput struct {
	Channel       string      `json:"channel" binding:"required"`
	Kind          string      `json:"kind" binding:"required"`
	Items         []ItemInput `json:"items" binding:"required"`
	PaymentMethod string      `json:"payment_method"`

	TableID *uint `json:"table_id,omitempty"`

	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name"`

	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`

	CouponCode      string `json:"coupon_code"`
	PointsRequested int    `json:"points_requested"`
	ServiceFee      bool   `json:"service_fee"`
}

// Create validates, prices and persists a new order in status "new".
// Table occupancy, coupon redemption and the loyalty debit all happen in
// one transaction so a conflict leaves no partial state behind.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PayMethodPending
	}

	// per-kind validation before anything is persisted
	deliveryFee, distanceKm := 0.0, 0.0
	switch in.Kind {
	case models.KindDineIn:
		if in.TableID == nil {
			return nil, ErrTableRequired
		}
	case models.KindDelivery:
		if in.Address == "" && (in.Lat == nil || in.Lon == nil) {
			return nil, ErrAddressRequired
		}
		var err error
		deliveryFee, distanceKm, err = s.resolver.Resolve(ctx, Destination{
			Address: in.Address,
			Lat:     in.Lat,
			Lon:     in.Lon,
		})
		if err != nil {
			return nil, err
		}
	case models.KindPickup:
		// no extra requirements; fee stays 0 regardless of stored address
	default:
		return nil, fmt.Errorf("unknown fulfillment kind %q", in.Kind)
	}

	customer, err := s.upsertCustomer(in)
	if err != nil {
		return nil, err
	}
	if in.PointsRequested > 0 && customer == nil {
		return nil, ErrCustomerRequired
	}

	var coupon *models.Coupon
	if in.CouponCode != "" {
		coupon = &models.Coupon{}
		if err := s.db.Where("code = ?", in.CouponCode).First(coupon).Error; err != nil {
			return nil, ErrCouponNotFound
		}
	}

	cart := CartInput{
		DeliveryFee:     deliveryFee,
		ServiceFee:      in.ServiceFee,
		Coupon:          coupon,
		PointsRequested: in.PointsRequested,
	}
	for _, item := range in.Items {
		cart.Lines = append(cart.Lines, CartLine{
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			ModifierDelta: item.ModifierDelta,
		})
	}
	if customer != nil {
		cart.PointsBalance = customer.LoyaltyPoints
	}

	quote, err := PriceCart(cart, s.cfg)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		Number:             s.generateNumber(in.Channel),
		Channel:            in.Channel,
		Kind:               in.Kind,
		Status:             OrderStatusNew,
		PaymentMethod:      in.PaymentMethod,
		Subtotal:           quote.Subtotal,
		DeliveryFee:        quote.DeliveryFee,
		ServiceFee:         quote.ServiceFee,
		CouponDiscount:     quote.CouponDiscount,
		LoyaltyDiscount:    quote.LoyaltyDiscount,
		Total:              quote.Total,
		DeliveryAddress:    in.Address,
		DeliveryDistanceKm: distanceKm,
		LoyaltyPointsUsed:  quote.PointsUsed,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if customer != nil {
		order.CustomerID = &customer.ID
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if in.Kind == models.KindDineIn {
			if err := occupyTable(tx, *in.TableID); err != nil {
				return err
			}
			order.TableID = in.TableID
		}

		if coupon != nil && quote.CouponDiscount > 0 {
			if err := redeemCoupon(tx, coupon.ID); err != nil {
				return err
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range in.Items {
			unit := item.UnitPrice + item.ModifierDelta
			orderItem := models.OrderItem{
				OrderID:    order.ID,
				Name:       item.Name,
				UnitPrice:  item.UnitPrice,
				Quantity:   item.Quantity,
				TotalPrice: utils.Cents(utils.Dec(unit).Mul(utils.Dec(float64(item.Quantity)))),
				Modifiers:  item.Modifiers,
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			order.OrderItems = append(order.OrderItems, orderItem)
		}

		if quote.PointsUsed > 0 {
			desc := fmt.Sprintf("Redeemed on order %s", order.Number)
			if err := s.loyalty.DebitTx(tx, customer.ID, order.ID, quote.PointsUsed, desc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.BroadcastOrderUpdate(order)
	return &order, nil
}

// upsertCustomer lazily creates the customer on a new phone and refreshes
// name/address on repeat orders. Anonymous orders carry no customer.
func (s *OrderService) upsertCustomer(in CreateOrderInput) (*models.Customer, error) {
	if in.CustomerPhone == "" {
		return nil, nil
	}

	var customer models.Customer
	err := s.db.Where("phone = ?", in.CustomerPhone).First(&customer).Error
	if err == gorm.ErrRecordNotFound {
		customer = models.Customer{
			Phone:     in.CustomerPhone,
			Name:      in.CustomerName,
			Address:   in.Address,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		// concurrent first orders from the same phone: keep whichever row won
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&customer)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			if err := s.db.Where("phone = ?", in.CustomerPhone).First(&customer).Error; err != nil {
				return nil, err
			}
		}
		return &customer, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.CustomerName != "" && in.CustomerName != customer.Name {
		updates["name"] = in.CustomerName
	}
	if in.Address != "" && in.Address != customer.Address {
		updates["address"] = in.Address
	}
	if len(updates) > 0 {
		if err := s.db.Model(&customer).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &customer, nil
}

var channelPrefixes = map[string]string{
	models.ChannelPOS:     "POS",
	models.ChannelKiosk:   "KSK",
	models.ChannelCounter: "CTR",
	models.ChannelOnline:  "WEB",
}

// generateNumber builds the human-readable order number: channel prefix,
// timestamp, short random suffix. Uniqueness is enforced by the column index.
func (s *OrderService) generateNumber(channel string) string {
	prefix, ok := channelPrefixes[channel]
	if !ok {
		prefix = "ORD"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102150405"), suffix)
}

// Get loads one order with its items.
func (s *OrderService) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("OrderItems").Preload("Customer").First(&order, orderID).Error; err != nil {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

// Confirm -> new => confirmed
func (s *OrderService) Confirm(orderID uint) (*models.Order, error) {
	return s.transition(orderID, []string{OrderStatusNew}, OrderStatusConfirmed)
}

// StartPreparing -> kitchen picks the order up. An order with a completely
// unknown payment intent may only start when its channel defers payment to
// a later cashier step (two-tier gate; the hard gate stays at completion).
func (s *OrderService) StartPreparing(orderID uint) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod == models.PayMethodPending && !s.cfg.DefersPayment(order.Channel) {
		return nil, ErrPaymentPending
	}
	return s.transition(orderID,
		[]string{OrderStatusNew, OrderStatusConfirmed, OrderStatusPendingPayment},
		OrderStatusPreparing)
}

// MarkReady -> preparing => ready
func (s *OrderService) MarkReady(orderID uint) (*models.Order, error) {
	return s.transition(orderID, []string{OrderStatusPreparing}, OrderStatusReady)
}

// MarkReadyForPayment -> ready => ready_for_payment (dine-in comanda
// settled at the end of the visit, or pickup billed at the counter).
func (s *OrderService) MarkReadyForPayment(orderID uint) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Kind == models.KindDelivery {
		return nil, ErrInvalidTransition
	}
	return s.transition(orderID, []string{OrderStatusReady}, OrderStatusReadyForPay)
}

// Dispatch -> ready => out_for_delivery, optionally attaching a rider.
// The rider link is advisory; the notification is fire-and-forget.
func (s *OrderService) Dispatch(orderID uint, riderID *uint) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Kind != models.KindDelivery {
		return nil, ErrNotDelivery
	}

	var rider *models.Rider
	if riderID != nil {
		rider = &models.Rider{}
		if err := s.db.Where("id = ? AND active = ?", *riderID, true).First(rider).Error; err != nil {
			return nil, fmt.Errorf("rider not found or inactive")
		}
	}

	order, err = s.transition(orderID, []string{OrderStatusReady}, OrderStatusOutForDelivery)
	if err != nil {
		return nil, err
	}

	if rider != nil {
		if err := s.db.Model(&models.Order{}).Where("id = ?", orderID).
			Update("rider_id", rider.ID).Error; err != nil {
			return nil, err
		}
		order.RiderID = riderID
		s.notifier.NotifyRider(*rider, *order)
		events.BroadcastRiderDispatch(*order)
	}
	return order, nil
}

// MarkPendingPayment parks the order while an asynchronous charge is
// outstanding. Called by the payment service only.
func (s *OrderService) MarkPendingPayment(orderID uint, method string) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCompleted || order.Status == OrderStatusCancelled {
		return nil, ErrOrderTerminal
	}
	updates := map[string]interface{}{
		"status":         OrderStatusPendingPayment,
		"payment_method": method,
		"updated_at":     time.Now(),
	}
	if err := s.db.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(orderID)
}

// SetPaymentMethod records the concrete method chosen for a manual
// settlement before completion.
func (s *OrderService) SetPaymentMethod(orderID uint, method string) error {
	return s.db.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{"payment_method": method, "updated_at": time.Now()}).Error
}

// Complete is the single most important guard in the system: it refuses
// orders whose payment method is still pending, is idempotent for already
// completed orders, and triggers the settlement side effects exactly once.
func (s *OrderService) Complete(orderID uint) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCompleted {
		return order, nil // no-op
	}
	if order.Status == OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}
	if order.PaymentMethod == models.PayMethodPending {
		return nil, ErrPaymentPending
	}
	return s.settle(order)
}

// settle performs the -> completed transition and its side effects.
// The status CAS is what makes retries safe: only the caller that wins the
// UPDATE runs the side effects, and each effect is additionally keyed by
// order id. Accounting and loyalty failures are logged, not rolled back:
// the customer has already paid.
func (s *OrderService) settle(order *models.Order) (*models.Order, error) {
	now := time.Now()

	won := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status NOT IN ?", order.ID, []string{OrderStatusCompleted, OrderStatusCancelled}).
			Updates(map[string]interface{}{
				"status":       OrderStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		if order.TableID != nil {
			return freeTableTx(tx, *order.TableID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !won {
		// lost the race; whoever won ran the side effects
		return s.Get(order.ID)
	}
	order.Status = OrderStatusCompleted
	order.CompletedAt = &now

	s.writeCashMovement(order, now)
	s.creditEarnedPoints(order)

	events.BroadcastOrderCompleted(*order)
	if order.CustomerID != nil && order.Customer != nil && order.Customer.Phone != "" {
		s.notifier.NotifyCustomer(order.Customer.Phone,
			fmt.Sprintf("Order %s confirmed, thank you!", order.Number))
	}
	return order, nil
}

func (s *OrderService) writeCashMovement(order *models.Order, now time.Time) {
	movement := models.CashMovement{
		OrderID:       &order.ID,
		Type:          models.CashMovementIncome,
		Category:      models.CashCategorySale,
		Amount:        order.Total,
		PaymentMethod: order.PaymentMethod,
		Description:   fmt.Sprintf("Sale %s", order.Number),
		MovementDate:  now,
		CreatedAt:     now,
	}
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&movement)
	if res.Error != nil {
		utils.ErrorLogger.Printf("settlement: failed to write cash movement for order %s: %v",
			order.Number, res.Error)
	}
}

func (s *OrderService) creditEarnedPoints(order *models.Order) {
	if !s.cfg.LoyaltyEnabled || order.CustomerID == nil {
		return
	}
	earned := PointsEarned(order.Total, s.cfg)
	if earned == 0 {
		return
	}
	if err := s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("loyalty_points_earned", earned).Error; err != nil {
		utils.ErrorLogger.Printf("settlement: failed to record earned points for order %s: %v",
			order.Number, err)
	}
	order.LoyaltyPointsEarned = earned

	desc := fmt.Sprintf("Earned on order %s", order.Number)
	if err := s.loyalty.Credit(*order.CustomerID, order.ID, earned, desc); err != nil {
		utils.ErrorLogger.Printf("settlement: failed to credit points for order %s: %v",
			order.Number, err)
	}
}

// Cancel is reachable from any non-terminal state. It frees the table and
// reverses a redemption debit applied at creation; earned points need no
// reversal because earning only happens at completion.
func (s *OrderService) Cancel(orderID uint) (*models.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCompleted {
		return nil, ErrOrderTerminal
	}
	if order.Status == OrderStatusCancelled {
		return order, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status NOT IN ?", orderID, []string{OrderStatusCompleted, OrderStatusCancelled}).
			Updates(map[string]interface{}{"status": OrderStatusCancelled, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderTerminal
		}

		if order.TableID != nil {
			if err := freeTableTx(tx, *order.TableID); err != nil {
				return err
			}
		}

		if order.LoyaltyPointsUsed > 0 && order.CustomerID != nil {
			if err := s.loyalty.ReverseRedeemTx(tx, *order.CustomerID, order.ID, order.LoyaltyPointsUsed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = OrderStatusCancelled
	events.BroadcastOrderUpdate(*order)
	return order, nil
}

// List returns orders filtered by optional status, newest first.
func (s *OrderService) List(status string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.Preload("OrderItems").Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&orders).Error
	return orders, err
}

// transition performs a CAS status move and returns the refreshed order.
func (s *OrderService) transition(orderID uint, from []string, to string) (*models.Order, error) {
	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		order, err := s.Get(orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == to {
			return order, nil
		}
		return nil, ErrInvalidTransition
	}

	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	events.BroadcastOrderUpdate(*order)
	return order, nil
}

// occupyTable claims a free table. The WHERE clause is the lock: two
// concurrent dine-in orders for the same table cannot both win.
func occupyTable(tx *gorm.DB, tableID uint) error {
	res := tx.Model(&models.Table{}).
		Where("id = ? AND status = ?", tableID, models.TableFree).
		Updates(map[string]interface{}{"status": models.TableOccupied, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTableNotFree
	}
	return nil
}

func freeTableTx(tx *gorm.DB, tableID uint) error {
	res := tx.Model(&models.Table{}).
		Where("id = ? AND status = ?", tableID, models.TableOccupied).
		Updates(map[string]interface{}{"status": models.TableFree, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}

	var table models.Table
	if err := tx.First(&table, tableID).Error; err == nil {
		events.BroadcastTableUpdate(table)
	}
	return nil
}

// redeemCoupon consumes one use atomically; exhausted coupons lose the CAS.
func redeemCoupon(tx *gorm.DB, couponID uint) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", couponID).
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponExhausted
	}
	return nil
}
