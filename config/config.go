package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DeliveryZone is one radius/fee tier. Zones are kept sorted by radius so
// the resolver can pick the smallest one covering a destination.
type DeliveryZone struct {
	MaxKm float64 `json:"max_km"`
	Fee   float64 `json:"fee"`
}

// Settings is the per-restaurant configuration. It is loaded once in main
// and passed explicitly to every service that needs it; nothing reads the
// environment after startup.
type Settings struct {
	RestaurantName string

	// delivery pricing
	OriginLat     float64
	OriginLon     float64
	MaxDeliveryKm float64
	DeliveryZones []DeliveryZone

	// fees and loyalty
	ServiceFeeRate float64 // fraction of subtotal, e.g. 0.10
	LoyaltyEnabled bool
	RedemptionRate float64 // currency value of one point
	EarnRate       float64 // points earned per currency unit of total

	// payment gateway selection
	Gateway          string // "manual" or "pix"
	PixBaseURL       string
	PixAPIKey        string
	PixWebhookSecret string
	ChargeTTL        time.Duration

	// collaborators
	GeocoderBaseURL  string
	NotifyWebhookURL string

	// channels that defer payment to a later cashier step (PDV flow);
	// their orders may start preparing with payment_method=pending
	DeferredChannels map[string]bool
}

// Load reads Settings from the environment with development defaults.
func Load() *Settings {
	s := &Settings{
		RestaurantName: envStr("RESTAURANT_NAME", "Orderflow Restaurant"),
		OriginLat:      envFloat("RESTAURANT_LAT", -23.5505),
		OriginLon:      envFloat("RESTAURANT_LON", -46.6333),
		MaxDeliveryKm:  envFloat("DELIVERY_MAX_KM", 12),
		DeliveryZones:  parseZones(envStr("DELIVERY_ZONES", "3=5.00,7=9.00,12=15.00")),

		ServiceFeeRate: envFloat("SERVICE_FEE_RATE", 0.10),
		LoyaltyEnabled: envBool("LOYALTY_ENABLED", true),
		RedemptionRate: envFloat("LOYALTY_REDEMPTION_RATE", 0.01),
		EarnRate:       envFloat("LOYALTY_EARN_RATE", 1),

		Gateway:          envStr("PAYMENT_GATEWAY", "manual"),
		PixBaseURL:       envStr("PIX_BASE_URL", "https://api.sandbox.pixprovider.com"),
		PixAPIKey:        os.Getenv("PIX_API_KEY"),
		PixWebhookSecret: os.Getenv("PIX_WEBHOOK_SECRET"),
		ChargeTTL:        envDuration("CHARGE_TTL", 30*time.Minute),

		GeocoderBaseURL:  envStr("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),

		DeferredChannels: parseSet(envStr("DEFERRED_PAYMENT_CHANNELS", "pos,counter")),
	}
	return s
}

// DefersPayment reports whether orders from the channel may progress to
// preparing before a payment method is known.
func (s *Settings) DefersPayment(channel string) bool {
	return s.DeferredChannels[channel]
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseZones parses "3=5.00,7=9.00" into radius/fee tiers sorted by radius.
func parseZones(raw string) []DeliveryZone {
	var zones []DeliveryZone
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		maxKm, err1 := strconv.ParseFloat(kv[0], 64)
		fee, err2 := strconv.ParseFloat(kv[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		zones = append(zones, DeliveryZone{MaxKm: maxKm, Fee: fee})
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].MaxKm < zones[j].MaxKm })
	return zones
}

func parseSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			set[p] = true
		}
	}
	return set
}
