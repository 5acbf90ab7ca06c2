package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/controllers"
	"github.com/yeremiapane/orderflow/events"
	"github.com/yeremiapane/orderflow/middlewares"
	"github.com/yeremiapane/orderflow/services"
)

// Engine bundles the services the routes are built from.
type Engine struct {
	Orders   *services.OrderService
	Payments *services.PaymentService
	Loyalty  *services.LoyaltyService
}

func SetupRouter(db *gorm.DB, engine Engine) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	orderCtrl := controllers.NewOrderController(db, engine.Orders)
	paymentCtrl := controllers.NewPaymentController(db, engine.Payments)
	customerCtrl := controllers.NewCustomerController(db, engine.Loyalty)
	tableCtrl := controllers.NewTableController(db)
	riderCtrl := controllers.NewRiderController(db)
	couponCtrl := controllers.NewCouponController(db)
	cashflowCtrl := controllers.NewCashflowController(db)
	userCtrl := controllers.NewUserController(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	// kiosk and online channels order without authentication

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.GET("/orders/:order_id/payment", paymentCtrl.GetOrderPayment)

	r.POST("/payments", paymentCtrl.CreatePayment)
	r.POST("/payments/callback", paymentCtrl.HandleCallback)
	r.GET("/payments/:payment_id/check", paymentCtrl.CheckPaymentStatus)

	r.GET("/coupons/:code/validate", couponCtrl.ValidateCoupon)
	r.GET("/tables", tableCtrl.GetAllTables)

	// order lifecycle events for channel UIs
	r.GET("/events/:channel", events.Handler)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/staff")
	auth.Use(middlewares.AuthMiddleware())

	auth.POST("/logout", userCtrl.Logout)

	// ORDERS
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.POST("/orders/:order_id/confirm", orderCtrl.ConfirmOrder)
	auth.POST("/orders/:order_id/prepare", orderCtrl.StartPreparing)
	auth.POST("/orders/:order_id/ready", orderCtrl.MarkReady)
	auth.POST("/orders/:order_id/ready-for-payment", orderCtrl.MarkReadyForPayment)
	auth.POST("/orders/:order_id/dispatch", orderCtrl.DispatchOrder)
	auth.POST("/orders/:order_id/complete", orderCtrl.CompleteOrder)
	auth.POST("/orders/:order_id/cancel", orderCtrl.CancelOrder)

	// PAYMENTS
	auth.GET("/payments", paymentCtrl.GetPayments)
	auth.GET("/payments/:payment_id", paymentCtrl.GetPaymentByID)
	auth.POST("/payments/:payment_id/confirm", paymentCtrl.ConfirmPayment)

	// TABLES
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTableStatus)

	// RIDERS
	auth.GET("/riders", riderCtrl.GetAllRiders)
	auth.POST("/riders", riderCtrl.CreateRider)
	auth.PATCH("/riders/:rider_id", riderCtrl.SetRiderActive)

	// CUSTOMERS & LOYALTY
	auth.GET("/customers", customerCtrl.GetAllCustomers)
	auth.GET("/customers/by-phone/:phone", customerCtrl.GetCustomerByPhone)
	auth.GET("/customers/:customer_id/loyalty", customerCtrl.GetLoyaltyHistory)
	auth.POST("/customers/:customer_id/loyalty/reconcile", customerCtrl.ReconcileLoyalty)
	auth.PATCH("/customers/:customer_id/flag", customerCtrl.FlagCustomer)

	// COUPONS
	auth.GET("/coupons", couponCtrl.GetAllCoupons)
	auth.POST("/coupons", couponCtrl.CreateCoupon)

	// CASH FLOW
	auth.GET("/cash-movements", cashflowCtrl.GetMovements)
	auth.GET("/cash-movements/summary", cashflowCtrl.GetDailySummary)

	return r
}
