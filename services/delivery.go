package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yeremiapane/orderflow/config"
)

// Destination is where a delivery order goes. Coordinates win when set;
// otherwise the free-text address is resolved through the geocoder.
type Destination struct {
	Address string
	Lat     *float64
	Lon     *float64
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, err error)
}

// DeliveryResolver prices deliveries by great-circle distance against the
// configured zone table. Stateless and side-effect free: channels re-invoke
// it whenever the address changes and overwrite the previous fee.
type DeliveryResolver struct {
	cfg      *config.Settings
	geocoder Geocoder
}

func NewDeliveryResolver(cfg *config.Settings, geocoder Geocoder) *DeliveryResolver {
	return &DeliveryResolver{cfg: cfg, geocoder: geocoder}
}

// Resolve returns the delivery fee and the distance in km, or ErrOutOfRange
// when the destination exceeds the global maximum radius.
func (r *DeliveryResolver) Resolve(ctx context.Context, dest Destination) (fee float64, km float64, err error) {
	lat, lon := 0.0, 0.0
	switch {
	case dest.Lat != nil && dest.Lon != nil:
		lat, lon = *dest.Lat, *dest.Lon
	case dest.Address != "":
		lat, lon, err = r.geocoder.Geocode(ctx, dest.Address)
		if err != nil {
			return 0, 0, err
		}
	default:
		return 0, 0, ErrAddressRequired
	}

	km = haversineKm(r.cfg.OriginLat, r.cfg.OriginLon, lat, lon)
	if km > r.cfg.MaxDeliveryKm {
		return 0, km, ErrOutOfRange
	}

	// zones are sorted by radius; the first one covering the distance wins
	for _, zone := range r.cfg.DeliveryZones {
		if km <= zone.MaxKm {
			return zone.Fee, km, nil
		}
	}
	return 0, km, ErrOutOfRange
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// HTTPGeocoder talks to a Nominatim-style search endpoint.
type HTTPGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.baseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoder unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoder error: status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("error unmarshaling response: %v", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrAddressNotFound
	}

	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, ErrAddressNotFound
	}
	return lat, lon, nil
}
