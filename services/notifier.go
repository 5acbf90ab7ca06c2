package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yeremiapane/orderflow/config"
	"github.com/yeremiapane/orderflow/models"
	"github.com/yeremiapane/orderflow/utils"
)

// Notifier sends fire-and-forget messages to riders and customers.
// Failures are logged and never block order progression.
type Notifier interface {
	NotifyRider(rider models.Rider, order models.Order)
	NotifyCustomer(phone, message string)
}

// NewNotifier returns the webhook notifier when one is configured,
// otherwise a log-only notifier.
func NewNotifier(cfg *config.Settings) Notifier {
	if cfg.NotifyWebhookURL != "" {
		return &WebhookNotifier{
			url: cfg.NotifyWebhookURL,
			httpClient: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
	}
	return LogNotifier{}
}

// LogNotifier only records the dispatch; useful in development and tests.
type LogNotifier struct{}

func (LogNotifier) NotifyRider(rider models.Rider, order models.Order) {
	utils.InfoLogger.Printf("dispatch: rider %s (%s) assigned to order %s", rider.Name, rider.Phone, order.Number)
}

func (LogNotifier) NotifyCustomer(phone, message string) {
	utils.InfoLogger.Printf("notify %s: %s", phone, message)
}

// WebhookNotifier posts messages to an external messaging bridge
// (WhatsApp gateway or similar).
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func (n *WebhookNotifier) NotifyRider(rider models.Rider, order models.Order) {
	n.post(map[string]interface{}{
		"type":  "rider_dispatch",
		"phone": rider.Phone,
		"order": order.Number,
	})
}

func (n *WebhookNotifier) NotifyCustomer(phone, message string) {
	n.post(map[string]interface{}{
		"type":    "customer",
		"phone":   phone,
		"message": message,
	})
}

func (n *WebhookNotifier) post(payload map[string]interface{}) {
	go func() {
		data, err := json.Marshal(payload)
		if err != nil {
			utils.ErrorLogger.Printf("notifier marshal error: %v", err)
			return
		}
		resp, err := n.httpClient.Post(n.url, "application/json", bytes.NewBuffer(data))
		if err != nil {
			utils.ErrorLogger.Printf("notifier send failed: %v", err)
			return
		}
		resp.Body.Close()
	}()
}
