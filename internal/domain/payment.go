package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus payment lifecycle state
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment a purchase attempt (payments table)
type Payment struct {
	ID            int64           `db:"id"`
	TransactionID string          `db:"transaction_id"` // UNIQUE
	TenantID      int64           `db:"tenant_id"`      // FK tenants.id
	Amount        decimal.Decimal `db:"amount"`         // NUMERIC(10,2)
	Currency      string          `db:"currency"`
	Plan          PlanTag         `db:"plan"`
	Status        PaymentStatus   `db:"status"` // UNIQUE (tenant_id) WHERE status='pending'
	GatewayRef    string          `db:"gateway_ref"`
	PayURL        string          `db:"pay_url"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// MaxPrice exclusive bound of a payment amount, NUMERIC(10,2).
var MaxPrice = decimal.New(1, 8)

// ParsePrice positive amount below MaxPrice, rounded to cents.
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price must be a number", ErrValidation)
	}
	price = price.Round(2)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	if price.GreaterThanOrEqual(MaxPrice) {
		return decimal.Zero, fmt.Errorf("%w: price must be below %s", ErrValidation, MaxPrice.String())
	}
	return price, nil
}

// Pricing plan prices in the configured currency.
type Pricing struct {
	Currency string
	Prices   map[PlanTag]decimal.Decimal
}

// Price for plan; zero when unknown.
func (p Pricing) Price(plan PlanTag) decimal.Decimal {
	if p.Prices == nil {
		return decimal.Zero
	}
	return p.Prices[plan]
}
