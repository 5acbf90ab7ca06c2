package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

var testDBSeq int64

// setupTestDB opens a fresh in-memory database per test. The shared cache
// keeps gorm's connection pool on the same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Table{},
		&models.Rider{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.LoyaltyTransaction{},
		&models.CashMovement{},
	))
	return db
}

func testSettings() *config.Settings {
	return &config.Settings{
		OriginLat:     -23.5505,
		OriginLon:     -46.6333,
		MaxDeliveryKm: 12,
		DeliveryZones: []config.DeliveryZone{
			{MaxKm: 3, Fee: 5.00},
			{MaxKm: 7, Fee: 9.00},
			{MaxKm: 12, Fee: 15.00},
		},
		ServiceFeeRate:   0.10,
		LoyaltyEnabled:   true,
		RedemptionRate:   0.01,
		EarnRate:         1,
		Gateway:          "manual",
		ChargeTTL:        30 * time.Minute,
		DeferredChannels: map[string]bool{"pos": true, "counter": true},
	}
}

func seedCustomer(t *testing.T, db *gorm.DB, phone string, points int) *models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Test Customer", Phone: phone, LoyaltyPoints: points}
	require.NoError(t, db.Create(&customer).Error)
	return &customer
}

func seedTable(t *testing.T, db *gorm.DB, number string) *models.Table {
	t.Helper()
	table := models.Table{Number: number, Status: models.TableFree}
	require.NoError(t, db.Create(&table).Error)
	return &table
}
