package main

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/router"
	"github.com/yeremiapane/orderflow/services"
	"github.com/yeremiapane/orderflow/utils"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	cfg    *config.Settings
}

// newTestEnv wires the full engine against an in-memory database and a
// fake PIX provider.
func newTestEnv(t *testing.T, providerURL string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{
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

	cfg := config.Load()
	cfg.Gateway = "pix"
	cfg.PixBaseURL = providerURL
	cfg.PixAPIKey = "test-key"
	cfg.PixWebhookSecret = "test-secret"
	cfg.ChargeTTL = 30 * time.Minute

	loyalty := services.NewLoyaltyService(db)
	resolver := services.NewDeliveryResolver(cfg, services.NewHTTPGeocoder(cfg.GeocoderBaseURL))
	orders := services.NewOrderService(db, cfg, loyalty, resolver, services.LogNotifier{})
	payments := services.NewPaymentService(db, cfg, services.NewPixGateway(cfg), orders)

	r := router.SetupRouter(db, router.Engine{
		Orders:   orders,
		Payments: payments,
		Loyalty:  loyalty,
	})
	return &testEnv{db: db, router: r, cfg: cfg}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Status  bool                   `json:"status"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func fakePixProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"charge_id":"pix-e2e-1","status":"pending","copy_paste_code":"00020126BR.GOV.BCB.PIX"}`))
			return
		}
		w.Write([]byte(`{"status":"pending"}`))
	}))
}

func sign(chargeRef, status, amount, secret string) string {
	sum := sha512.Sum512([]byte(chargeRef + status + amount + secret))
	return hex.EncodeToString(sum[:])
}

func TestOnlinePixOrderLifecycle(t *testing.T) {
	provider := fakePixProvider(t)
	defer provider.Close()
	env := newTestEnv(t, provider.URL)

	// customer submits a priced pickup cart
	w := env.request(t, http.MethodPost, "/orders", gin.H{
		"channel":        "online",
		"kind":           "pickup",
		"customer_phone": "5511988881111",
		"customer_name":  "Carla",
		"items": []gin.H{
			{"name": "Burger", "unit_price": 25.00, "quantity": 2},
			{"name": "Fries", "unit_price": 10.00, "quantity": 1},
		},
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	orderData := decodeData(t, w)
	orderID := uint(orderData["id"].(float64))
	assert.Equal(t, "new", orderData["status"])
	assert.Equal(t, 60.00, orderData["total"])

	// a PIX charge parks the order
	w = env.request(t, http.MethodPost, "/payments", gin.H{
		"order_id":       orderID,
		"payment_method": "pix",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	paymentData := decodeData(t, w)
	assert.Equal(t, "pending", paymentData["status"])
	assert.NotEmpty(t, paymentData["copy_paste_code"])
	chargeRef := paymentData["charge_ref"].(string)

	var order models.Order
	require.NoError(t, env.db.First(&order, orderID).Error)
	assert.Equal(t, services.OrderStatusPendingPayment, order.Status)

	// a forged webhook is rejected
	w = env.request(t, http.MethodPost, "/payments/callback", gin.H{
		"charge_ref": chargeRef,
		"status":     "paid",
		"amount":     "60.00",
		"signature":  "forged",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the genuine webhook settles the charge; the duplicate is absorbed
	callback := gin.H{
		"charge_ref": chargeRef,
		"status":     "paid",
		"amount":     "60.00",
		"signature":  sign(chargeRef, "paid", "60.00", "test-secret"),
	}
	w = env.request(t, http.MethodPost, "/payments/callback", callback, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = env.request(t, http.MethodPost, "/payments/callback", callback, "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.First(&order, orderID).Error)
	assert.Equal(t, services.OrderStatusCompleted, order.Status)

	var movements int64
	env.db.Model(&models.CashMovement{}).Where("order_id = ?", orderID).Count(&movements)
	assert.Equal(t, int64(1), movements)

	var earns int64
	env.db.Model(&models.LoyaltyTransaction{}).
		Where("order_id = ? AND type = ?", orderID, models.LoyaltyEarn).
		Count(&earns)
	assert.Equal(t, int64(1), earns)

	// the public payment lookup reflects settlement
	w = env.request(t, http.MethodGet, "/orders/"+itoa(orderID)+"/payment", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decodeData(t, w)["status"])
}

func TestStaffSurfaceRequiresToken(t *testing.T) {
	provider := fakePixProvider(t)
	defer provider.Close()
	env := newTestEnv(t, provider.URL)

	w := env.request(t, http.MethodGet, "/staff/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken(1, "cashier", "pos")
	require.NoError(t, err)

	w = env.request(t, http.MethodGet, "/staff/orders", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffDineInCashFlow(t *testing.T) {
	provider := fakePixProvider(t)
	defer provider.Close()
	env := newTestEnv(t, provider.URL)

	require.NoError(t, env.db.Create(&models.Table{Number: "B2", Status: models.TableFree}).Error)
	var table models.Table
	require.NoError(t, env.db.Where("number = ?", "B2").First(&table).Error)

	token, err := utils.GenerateToken(1, "cashier", "pos")
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/staff/orders", gin.H{
		"channel":  "pos",
		"kind":     "dine_in",
		"table_id": table.ID,
		"items": []gin.H{
			{"name": "Feijoada", "unit_price": 45.00, "quantity": 1},
		},
		"service_fee": true,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	orderData := decodeData(t, w)
	orderID := itoa(uint(orderData["id"].(float64)))
	assert.Equal(t, 49.50, orderData["total"]) // 45.00 + 10% service

	// the POS defers payment; the kitchen can start right away
	w = env.request(t, http.MethodPost, "/staff/orders/"+orderID+"/prepare", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.request(t, http.MethodPost, "/staff/orders/"+orderID+"/ready", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.request(t, http.MethodPost, "/staff/orders/"+orderID+"/ready-for-payment", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	// completing before a method is chosen is refused
	w = env.request(t, http.MethodPost, "/staff/orders/"+orderID+"/complete", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// cash at the counter settles synchronously
	w = env.request(t, http.MethodPost, "/payments", gin.H{
		"order_id":       uint(orderData["id"].(float64)),
		"payment_method": "cash",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", decodeData(t, w)["status"])

	var fresh models.Table
	require.NoError(t, env.db.First(&fresh, table.ID).Error)
	assert.Equal(t, models.TableFree, fresh.Status)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
