package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// GatewayRequest a payable amount for one tenant/plan.
type GatewayRequest struct {
	TenantID    int64
	Plan        domain.PlanTag
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// GatewayLink what the processor hands back: an opaque id and where to pay.
type GatewayLink struct {
	TransactionID string
	PayURL        string
}

// Gateway payment processor boundary. Completion arrives later through the webhook.
type Gateway interface {
	CreatePayment(ctx context.Context, req GatewayRequest) (*GatewayLink, error)
}

// DefaultMockPayURL base of the links produced by MockGateway.
const DefaultMockPayURL = "https://mock-payment-gateway.com/pay/"

// MockGateway stand-in processor: never touches the network.
type MockGateway struct {
	baseURL string
	newID   func() string
}

func NewMockGateway(baseURL string) *MockGateway {
	if baseURL == "" {
		baseURL = DefaultMockPayURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &MockGateway{baseURL: baseURL, newID: uuid.NewString}
}

// WithIDs replaces the transaction id source (deterministic tests).
func (g *MockGateway) WithIDs(next func() string) *MockGateway {
	g.newID = next
	return g
}

func (g *MockGateway) CreatePayment(_ context.Context, _ GatewayRequest) (*GatewayLink, error) {
	id := g.newID()
	return &GatewayLink{TransactionID: id, PayURL: g.baseURL + id}, nil
}

// RestGateway client for a processor exposing POST /payments.
type RestGateway struct {
	httpClient  *resty.Client
	callbackURL string
	logger      *zap.Logger
}

type restPaymentRequest struct {
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	Description string         `json:"description"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

type restPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	PayURL        string `json:"payment_url"`
	Error         string `json:"error,omitempty"`
}

func NewRestGateway(baseURL, apiKey, callbackURL string, logger *zap.Logger) *RestGateway {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &RestGateway{httpClient: client, callbackURL: callbackURL, logger: logger}
}

func (g *RestGateway) CreatePayment(ctx context.Context, req GatewayRequest) (*GatewayLink, error) {
	body := restPaymentRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Description: req.Description,
		CallbackURL: g.callbackURL,
		Metadata: map[string]any{
			"tenant_id": req.TenantID,
			"plan":      string(req.Plan),
		},
	}

	var out restPaymentResponse
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/payments")
	if err != nil {
		g.logger.Error("Payment gateway call failed", zap.Int64("tenant_id", req.TenantID), zap.Error(err))
		return nil, fmt.Errorf("failed to call payment gateway: %w: %w", domain.ErrUnavailable, err)
	}
	if resp.IsError() {
		g.logger.Error("Payment gateway returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", out.Error),
		)
		return nil, fmt.Errorf("payment gateway error (status: %d): %s: %w", resp.StatusCode(), out.Error, domain.ErrUnavailable)
	}
	if out.TransactionID == "" || out.PayURL == "" {
		return nil, fmt.Errorf("payment gateway returned an incomplete link: %w", domain.ErrUnavailable)
	}

	g.logger.Info("Payment link created", zap.Int64("tenant_id", req.TenantID), zap.String("transaction_id", out.TransactionID))
	return &GatewayLink{TransactionID: out.TransactionID, PayURL: out.PayURL}, nil
}
