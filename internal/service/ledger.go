package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// credentialBytes entropy of an access credential (256 bits).
const credentialBytes = 32

// DefaultPricing used when system_settings has no usable value.
func DefaultPricing(currency string) domain.Pricing {
	if currency == "" {
		currency = "USD"
	}
	return domain.Pricing{
		Currency: currency,
		Prices: map[domain.PlanTag]decimal.Decimal{
			domain.PlanOneMonth:  decimal.RequireFromString("29.99"),
			domain.PlanSixMonths: decimal.RequireFromString("149.99"),
			domain.PlanLifetime:  decimal.RequireFromString("499.99"),
		},
	}
}

// Ledger subscription state: plan windows, credentials, pricing.
type Ledger struct {
	tenants  repository.TenantsRepository
	settings repository.SettingsRepository
	audit    *Auditor
	defaults domain.Pricing
	logger   *zap.Logger

	now    func() time.Time
	random io.Reader
}

func NewLedger(tenants repository.TenantsRepository, settings repository.SettingsRepository, audit *Auditor, defaults domain.Pricing, logger *zap.Logger) *Ledger {
	return &Ledger{
		tenants:  tenants,
		settings: settings,
		audit:    audit,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
		random:   rand.Reader,
	}
}

// Now the ledger clock.
func (l *Ledger) Now() time.Time { return l.now() }

// IsActive evaluates access lazily at the current instant.
func (l *Ledger) IsActive(t *domain.Tenant) bool {
	return t.SubscriptionActive(l.now())
}

// Authenticate resolves an API credential to its tenant.
// Unknown credentials, deactivated tenants and lapsed plans are all ErrAccessDenied.
func (l *Ledger) Authenticate(ctx context.Context, credential string) (*domain.Tenant, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: missing credential", domain.ErrAccessDenied)
	}
	t, err := l.tenants.GetTenantByCredential(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown credential", domain.ErrAccessDenied)
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, fmt.Errorf("%w: company deactivated", domain.ErrAccessDenied)
	}
	if !l.IsActive(t) {
		return nil, fmt.Errorf("%w: subscription expired", domain.ErrAccessDenied)
	}
	return t, nil
}

// Grant starts a fresh plan window for the tenant and rotates its credential.
// The previous credential stops resolving as soon as the write commits.
func (l *Ledger) Grant(ctx context.Context, tenantID int64, plan domain.PlanTag, grantedBy int64) (*domain.Tenant, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, plan)
	}
	credential, err := GenerateCredential(l.random)
	if err != nil {
		return nil, err
	}
	start := l.now()
	tenant, _, err := l.tenants.ApplyGrant(ctx, repository.Grant{
		TenantID:   tenantID,
		Plan:       plan,
		Credential: credential,
		PlanStart:  start,
		PlanEnd:    plan.EndFrom(start),
		GrantedBy:  grantedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant %s to tenant %d: %w", plan, tenantID, err)
	}

	l.logger.Info("Subscription granted",
		zap.Int64("tenant_id", tenantID),
		zap.String("plan", string(plan)),
		zap.Int64("granted_by", grantedBy),
	)
	l.audit.Record(ctx, &domain.AuditEntry{
		CallerID: grantedBy,
		Role:     grantRole(grantedBy),
		Command:  "grant",
		TenantID: &tenantID,
		Detail:   fmt.Sprintf("plan=%s plan_end=%s", plan, formatPlanEnd(tenant.PlanEnd)),
		Success:  true,
	})
	return tenant, nil
}

func grantRole(actor int64) string {
	if actor == domain.SystemActor {
		return "system"
	}
	return domain.Admin{}.Name()
}

func formatPlanEnd(end *time.Time) string {
	if end == nil {
		return "never"
	}
	return end.UTC().Format(time.RFC3339)
}

// Pricing reads prices from settings, falling back per plan to the configured defaults.
func (l *Ledger) Pricing(ctx context.Context) domain.Pricing {
	out := domain.Pricing{Currency: l.defaults.Currency, Prices: map[domain.PlanTag]decimal.Decimal{}}
	for _, plan := range domain.Plans {
		out.Prices[plan] = l.defaults.Price(plan)

		raw, err := l.settings.GetSetting(ctx, domain.PriceSettingKey(plan))
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				l.logger.Warn("Failed to read price setting, using default", zap.String("plan", string(plan)), zap.Error(err))
			}
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			l.logger.Warn("Invalid price setting, using default", zap.String("plan", string(plan)), zap.String("value", raw))
			continue
		}
		out.Prices[plan] = price
	}
	return out
}

// Price of plan; ErrInvalidPlan when unknown or not positive.
func (l *Ledger) Price(ctx context.Context, plan domain.PlanTag) (decimal.Decimal, string, error) {
	if !plan.Valid() {
		return decimal.Zero, "", fmt.Errorf("%w: %q", domain.ErrInvalidPlan, plan)
	}
	pricing := l.Pricing(ctx)
	price := pricing.Price(plan)
	if !price.IsPositive() {
		return decimal.Zero, "", fmt.Errorf("%w: no price for %s", domain.ErrInvalidPlan, plan)
	}
	if price.GreaterThanOrEqual(domain.MaxPrice) {
		return decimal.Zero, "", fmt.Errorf("%w: price of %s exceeds %s", domain.ErrInvalidPlan, plan, domain.MaxPrice.String())
	}
	return price, pricing.Currency, nil
}

// RegisterRequest owner-submitted company registration.
type RegisterRequest struct {
	CompanyName    string
	Plan           domain.PlanTag
	OwnerID        int64
	OwnerUsername  string
	OwnerFirstName string
	OwnerLastName  string
}

const registerAttempts = 3

// Register creates a tenant with an initial plan window and credential.
func (l *Ledger) Register(ctx context.Context, req RegisterRequest) (*domain.Tenant, error) {
	name := strings.TrimSpace(req.CompanyName)
	if len([]rune(name)) < 2 {
		return nil, fmt.Errorf("%w: company name must be at least 2 characters", domain.ErrValidation)
	}
	if err := domain.CheckLength("company name", name, domain.MaxTextLen); err != nil {
		return nil, err
	}
	if !req.Plan.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, req.Plan)
	}

	if _, err := l.tenants.GetActiveTenantByOwner(ctx, req.OwnerID); err == nil {
		return nil, fmt.Errorf("owner %d already has a company: %w", req.OwnerID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < registerAttempts; attempt++ {
		code, err := CompanyCode(name, l.random)
		if err != nil {
			return nil, err
		}
		credential, err := GenerateCredential(l.random)
		if err != nil {
			return nil, err
		}
		start := l.now()
		tenant := &domain.Tenant{
			Name:           name,
			Code:           code,
			OwnerID:        req.OwnerID,
			OwnerUsername:  req.OwnerUsername,
			OwnerFirstName: req.OwnerFirstName,
			OwnerLastName:  req.OwnerLastName,
			Credential:     credential,
			Plan:           req.Plan,
			PlanStart:      start,
			PlanEnd:        req.Plan.EndFrom(start),
		}
		err = l.tenants.CreateTenant(ctx, tenant)
		if err == nil {
			l.logger.Info("Company registered",
				zap.Int64("tenant_id", tenant.ID),
				zap.String("company_code", tenant.Code),
				zap.Int64("owner_id", req.OwnerID),
				zap.String("plan", string(req.Plan)),
			)
			l.audit.Record(ctx, &domain.AuditEntry{
				CallerID: req.OwnerID,
				Role:     domain.Unregistered{}.Name(),
				Command:  "register",
				TenantID: &tenant.ID,
				Detail:   fmt.Sprintf("company=%s code=%s plan=%s", tenant.Name, tenant.Code, tenant.Plan),
				Success:  true,
			})
			return tenant, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to register company: %w", err)
		}
		// code or credential collision; a concurrent registration by the same owner also lands here
		lastErr = err
		if _, ownerErr := l.tenants.GetActiveTenantByOwner(ctx, req.OwnerID); ownerErr == nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to register company after %d attempts: %w", registerAttempts, lastErr)
}

// GenerateCredential 32 random bytes, base64url without padding.
func GenerateCredential(r io.Reader) (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CompanyCode first six alphanumerics of the name, upper-cased, plus "_" and six hex digits.
func CompanyCode(name string, r io.Reader) (string, error) {
	var prefix strings.Builder
	for _, c := range name {
		if prefix.Len() >= 6 {
			break
		}
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			prefix.WriteRune(unicode.ToUpper(c))
		}
	}
	if prefix.Len() == 0 {
		prefix.WriteString("CO")
	}
	suffix := make([]byte, 3)
	if _, err := io.ReadFull(r, suffix); err != nil {
		return "", fmt.Errorf("failed to generate company code: %w", err)
	}
	return prefix.String() + "_" + strings.ToUpper(hex.EncodeToString(suffix)), nil
}
