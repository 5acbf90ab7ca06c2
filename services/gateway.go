package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/orderflow/config"
)

// Charge statuses as reported by a gateway.
const (
	ChargePending = "pending"
	ChargeSuccess = "success"
	ChargeFailed  = "failed"
	ChargeExpired = "expired"
)

// ChargeRequest is the uniform request every provider accepts.
type ChargeRequest struct {
	Amount       float64
	OrderRef     string
	PayerContact string
}

// ChargeResult is either an immediate settlement (manual family) or a
// pending charge plus the renderable artifacts (async QR family).
type ChargeResult struct {
	Immediate     bool
	ChargeRef     string
	QRImage       string
	CopyPasteCode string
	ExpiresAt     *time.Time
}

// Gateway wraps heterogeneous payment providers behind one contract.
// Charge and Status are remote calls; callers must not hold locks across
// them and should pass a context with a deadline.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Status(ctx context.Context, chargeRef string) (string, error)
}

// NewGateway selects the provider from the restaurant configuration.
func NewGateway(cfg *config.Settings) Gateway {
	switch cfg.Gateway {
	case "pix":
		return NewPixGateway(cfg)
	default:
		return ManualGateway{}
	}
}

// ManualGateway settles synchronously: cash or a card machine at the
// counter. The caller transitions the order straight to completed.
type ManualGateway struct{}

func (ManualGateway) Charge(_ context.Context, _ ChargeRequest) (*ChargeResult, error) {
	return &ChargeResult{
		Immediate: true,
		ChargeRef: "manual-" + uuid.NewString(),
	}, nil
}

func (ManualGateway) Status(_ context.Context, _ string) (string, error) {
	return ChargeSuccess, nil
}
