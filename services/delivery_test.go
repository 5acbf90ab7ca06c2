package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/orderflow/config"
)

func deliverySettings() *config.Settings {
	return &config.Settings{
		OriginLat:     -23.5505,
		OriginLon:     -46.6333,
		MaxDeliveryKm: 12,
		DeliveryZones: []config.DeliveryZone{
			{MaxKm: 3, Fee: 5.00},
			{MaxKm: 7, Fee: 9.00},
			{MaxKm: 12, Fee: 15.00},
		},
	}
}

func ptrFloat(v float64) *float64 { return &v }

func TestHaversineKnownDistance(t *testing.T) {
	// São Paulo centre to Guarulhos airport, roughly 22 km.
	km := haversineKm(-23.5505, -46.6333, -23.4356, -46.4731)
	assert.InDelta(t, 20.4, km, 1.0)
}

func TestResolvePicksSmallestCoveringZone(t *testing.T) {
	resolver := NewDeliveryResolver(deliverySettings(), nil)

	// ~0.01 deg of latitude is ~1.1 km: inside the first zone.
	fee, km, err := resolver.Resolve(context.Background(), Destination{
		Lat: ptrFloat(-23.5605),
		Lon: ptrFloat(-46.6333),
	})
	assert.NoError(t, err)
	assert.Less(t, km, 3.0)
	assert.Equal(t, 5.00, fee)

	// ~0.05 deg is ~5.5 km: second zone.
	fee, km, err = resolver.Resolve(context.Background(), Destination{
		Lat: ptrFloat(-23.6005),
		Lon: ptrFloat(-46.6333),
	})
	assert.NoError(t, err)
	assert.Greater(t, km, 3.0)
	assert.Less(t, km, 7.0)
	assert.Equal(t, 9.00, fee)
}

func TestResolveOutOfRange(t *testing.T) {
	resolver := NewDeliveryResolver(deliverySettings(), nil)

	_, km, err := resolver.Resolve(context.Background(), Destination{
		Lat: ptrFloat(-23.9005),
		Lon: ptrFloat(-46.6333),
	})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Greater(t, km, 12.0)
}

func TestResolveRequiresAddressOrCoords(t *testing.T) {
	resolver := NewDeliveryResolver(deliverySettings(), nil)

	_, _, err := resolver.Resolve(context.Background(), Destination{})
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestResolveGeocodesFreeTextAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"-23.5605","lon":"-46.6333"}]`))
	}))
	defer server.Close()

	resolver := NewDeliveryResolver(deliverySettings(), NewHTTPGeocoder(server.URL))

	fee, _, err := resolver.Resolve(context.Background(), Destination{
		Address: "Av. Paulista, 1000",
	})
	assert.NoError(t, err)
	assert.Equal(t, 5.00, fee)
}

func TestResolveAddressNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resolver := NewDeliveryResolver(deliverySettings(), NewHTTPGeocoder(server.URL))

	_, _, err := resolver.Resolve(context.Background(), Destination{Address: "nowhere"})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}
