package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/middlewares"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/router"
	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()

	cfg := config.Load()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// engine wiring
	loyalty := services.NewLoyaltyService(db)
	geocoder := services.NewHTTPGeocoder(cfg.GeocoderBaseURL)
	resolver := services.NewDeliveryResolver(cfg, geocoder)
	notifier := services.NewNotifier(cfg)
	orders := services.NewOrderService(db, cfg, loyalty, resolver, notifier)
	gateway := services.NewGateway(cfg)
	payments := services.NewPaymentService(db, cfg, gateway, orders)

	// poll half of the payment confirmation duality
	monitor := services.NewPaymentMonitor(db, payments, orders)
	monitor.Start()
	defer monitor.Stop()

	r := router.SetupRouter(db, router.Engine{
		Orders:   orders,
		Payments: payments,
		Loyalty:  loyalty,
	})

	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("%s listening on port %s (gateway=%s)", cfg.RestaurantName, port, cfg.Gateway)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.Rider{},
		&models.Customer{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.LoyaltyTransaction{},
		&models.CashMovement{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
