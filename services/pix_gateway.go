package services

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yeremiapane/orderflow/config"
)

// PixGateway is the asynchronous QR provider client. The provider returns
// a scannable QR plus a copy-pasteable payment string and settles
// out-of-band; confirmation arrives by webhook or by status polling.
type PixGateway struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

func NewPixGateway(cfg *config.Settings) *PixGateway {
	return &PixGateway{
		baseURL:       cfg.PixBaseURL,
		apiKey:        cfg.PixAPIKey,
		webhookSecret: cfg.PixWebhookSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// pixChargeResponse is the provider's charge payload.
type pixChargeResponse struct {
	ChargeID      string `json:"charge_id"`
	Status        string `json:"status"`
	QRImage       string `json:"qr_image"`
	CopyPasteCode string `json:"copy_paste_code"`
	ExpiresAt     string `json:"expires_at"`
	Message       string `json:"message"`
}

// Charge creates a pending PIX charge. Network errors surface as
// ErrGatewayUnavailable so the channel can retry or fall back to manual;
// a response without a payment string is a configuration error.
func (g *PixGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payload := map[string]interface{}{
		"amount":          req.Amount,
		"order_reference": req.OrderRef,
		"payer_contact":   req.PayerContact,
		"method":          "pix",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/charges", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	var chargeResp pixChargeResponse
	if err := json.Unmarshal(body, &chargeResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %v", err)
	}

	if chargeResp.ChargeID == "" || chargeResp.CopyPasteCode == "" {
		return nil, ErrGatewayMisconfigured
	}

	result := &ChargeResult{
		Immediate:     false,
		ChargeRef:     chargeResp.ChargeID,
		QRImage:       chargeResp.QRImage,
		CopyPasteCode: chargeResp.CopyPasteCode,
	}
	if result.QRImage == "" {
		result.QRImage = g.qrImageURL(chargeResp.ChargeID)
	}
	if chargeResp.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, chargeResp.ExpiresAt); err == nil {
			result.ExpiresAt = &t
		}
	}
	return result, nil
}

// Status polls the provider for the current charge state.
func (g *PixGateway) Status(ctx context.Context, chargeRef string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/charges/%s", g.baseURL, chargeRef), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %v", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: error reading response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, string(body))
	}

	var statusResp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %v", err)
	}
	return mapPixStatus(statusResp.Status), nil
}

// ValidateSignature checks a webhook signature:
// sha512(charge_ref + status + amount + secret), hex encoded.
func (g *PixGateway) ValidateSignature(chargeRef, status, amount, signature string) bool {
	payload := fmt.Sprintf("%s%s%s%s", chargeRef, status, amount, g.webhookSecret)
	hash := sha512.New()
	hash.Write([]byte(payload))
	return hex.EncodeToString(hash.Sum(nil)) == signature
}

func (g *PixGateway) setHeaders(req *http.Request) {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(g.apiKey+":"))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
}

// qrImageURL is the provider's rendered-QR fallback when the charge
// payload carries only the textual code.
func (g *PixGateway) qrImageURL(chargeRef string) string {
	return fmt.Sprintf("%s/v1/charges/%s/qr-code", g.baseURL, chargeRef)
}

// mapPixStatus maps provider states to internal charge statuses.
func mapPixStatus(status string) string {
	switch status {
	case "paid", "settled", "confirmed":
		return ChargeSuccess
	case "pending", "created", "waiting_payment":
		return ChargePending
	case "expired":
		return ChargeExpired
	case "refused", "cancelled", "failed":
		return ChargeFailed
	default:
		return ChargePending
	}
}
