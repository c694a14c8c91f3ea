package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

type ledgerFixture struct {
	repos  *repository.Repositories
	audit  *repository.MemoryAuditRepo
	ledger *Ledger
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	auditRepo := repos.Audit.(*repository.MemoryAuditRepo)
	ledger := NewLedger(repos.Tenants, repos.Settings, NewAuditor(auditRepo, zap.NewNop()), DefaultPricing("USD"), zap.NewNop())
	return &ledgerFixture{repos: repos, audit: auditRepo, ledger: ledger}
}

func (f *ledgerFixture) register(t *testing.T, owner int64, name string, plan domain.PlanTag) *domain.Tenant {
	t.Helper()
	tenant, err := f.ledger.Register(context.Background(), RegisterRequest{CompanyName: name, Plan: plan, OwnerID: owner})
	require.NoError(t, err)
	return tenant
}

func TestLedger_Register(t *testing.T) {
	f := newLedgerFixture(t)
	before := time.Now()

	tenant := f.register(t, 42, "Acme", domain.PlanSixMonths)

	assert.NotZero(t, tenant.ID)
	assert.Regexp(t, regexp.MustCompile(`^ACME_[0-9A-F]{6}$`), tenant.Code)
	assert.Len(t, tenant.Credential, 43) // 32 bytes, base64url without padding
	require.NotNil(t, tenant.PlanEnd)
	assert.WithinDuration(t, before.Add(180*24*time.Hour), *tenant.PlanEnd, 5*time.Second)
	assert.True(t, f.ledger.IsActive(tenant))

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "register", entries[0].Command)
	assert.True(t, entries[0].Success)
	require.NotNil(t, entries[0].TenantID)
	assert.Equal(t, tenant.ID, *entries[0].TenantID)

	_, err := f.ledger.Register(context.Background(), RegisterRequest{CompanyName: "Other", Plan: domain.PlanOneMonth, OwnerID: 42})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = f.ledger.Register(context.Background(), RegisterRequest{CompanyName: "A", Plan: domain.PlanOneMonth, OwnerID: 43})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = f.ledger.Register(context.Background(), RegisterRequest{CompanyName: strings.Repeat("A", 256), Plan: domain.PlanOneMonth, OwnerID: 43})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestLedger_GrantTwice_LastPlanWins(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	tenant := f.register(t, 42, "Acme", domain.PlanOneMonth)

	first, err := f.ledger.Grant(ctx, tenant.ID, domain.PlanSixMonths, 1)
	require.NoError(t, err)
	second, err := f.ledger.Grant(ctx, tenant.ID, domain.PlanLifetime, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Credential, second.Credential)
	assert.NotEqual(t, tenant.Credential, first.Credential)

	current, err := f.repos.Tenants.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Credential, current.Credential)
	assert.Equal(t, domain.PlanLifetime, current.Plan)
	assert.Nil(t, current.PlanEnd)
	assert.True(t, f.ledger.IsActive(current))

	_, err = f.repos.Tenants.GetTenantByCredential(ctx, first.Credential)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = f.repos.Tenants.GetTenantByCredential(ctx, tenant.Credential)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	logs := f.repos.Tenants.(*repository.MemoryTenantsRepo).CredentialLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, first.Credential, logs[2].OldCredential)
	assert.Equal(t, second.Credential, logs[2].NewCredential)
	assert.Equal(t, int64(1), logs[2].GrantedBy)
}

func TestLedger_IsActive_Expiry(t *testing.T) {
	f := newLedgerFixture(t)
	now := time.Now()
	f.ledger.now = func() time.Time { return now }

	tenant := f.register(t, 42, "Acme", domain.PlanOneMonth)
	assert.True(t, f.ledger.IsActive(tenant))

	f.ledger.now = func() time.Time { return now.Add(30 * 24 * time.Hour) }
	assert.False(t, f.ledger.IsActive(tenant))

	require.NoError(t, f.repos.Tenants.SetActive(context.Background(), tenant.ID, false))
	granted, err := f.ledger.Grant(context.Background(), tenant.ID, domain.PlanLifetime, 1)
	require.NoError(t, err)
	assert.False(t, f.ledger.IsActive(granted), "deactivated tenants stay inactive even on lifetime")
}

func TestLedger_Pricing(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	p := f.ledger.Pricing(ctx)
	assert.Equal(t, "USD", p.Currency)
	assert.True(t, p.Price(domain.PlanOneMonth).Equal(decimal.RequireFromString("29.99")))

	require.NoError(t, f.repos.Settings.SetSetting(ctx, domain.SettingPrice6M, "99.50"))
	require.NoError(t, f.repos.Settings.SetSetting(ctx, domain.SettingPriceLifetime, "not-a-number"))
	p = f.ledger.Pricing(ctx)
	assert.True(t, p.Price(domain.PlanSixMonths).Equal(decimal.RequireFromString("99.5")))
	assert.True(t, p.Price(domain.PlanLifetime).Equal(decimal.RequireFromString("499.99")))

	require.NoError(t, f.repos.Settings.SetSetting(ctx, domain.SettingPrice1M, "0"))
	_, _, err := f.ledger.Price(ctx, domain.PlanOneMonth)
	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))
	_, _, err = f.ledger.Price(ctx, domain.PlanTag("2y"))
	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))

	// a stored price the payments column cannot hold
	require.NoError(t, f.repos.Settings.SetSetting(ctx, domain.SettingPrice6M, "100000000"))
	_, _, err = f.ledger.Price(ctx, domain.PlanSixMonths)
	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))
}

func TestCompanyCode(t *testing.T) {
	code, err := CompanyCode("a-b c!d e f g h", bytesReader(0xAB, 0x01, 0xFF))
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF_AB01FF", code)

	code, err = CompanyCode("!!", bytesReader(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "CO_000001", code)
}

type fixedReader []byte

func bytesReader(b ...byte) *fixedReader {
	r := fixedReader(b)
	return &r
}

func (r *fixedReader) Read(p []byte) (int, error) {
	n := copy(p, *r)
	*r = (*r)[n:]
	if n == 0 {
		return 0, errors.New("exhausted")
	}
	return n, nil
}

func TestLedger_Authenticate(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	tenant := f.register(t, 42, "Acme", domain.PlanOneMonth)

	got, err := f.ledger.Authenticate(ctx, tenant.Credential)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = f.ledger.Authenticate(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
	_, err = f.ledger.Authenticate(ctx, "not-a-credential")
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))

	// a rotated credential stops resolving
	granted, err := f.ledger.Grant(ctx, tenant.ID, domain.PlanOneMonth, 1)
	require.NoError(t, err)
	_, err = f.ledger.Authenticate(ctx, tenant.Credential)
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))

	f.ledger.now = func() time.Time { return time.Now().Add(40 * 24 * time.Hour) }
	_, err = f.ledger.Authenticate(ctx, granted.Credential)
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
	f.ledger.now = time.Now

	require.NoError(t, f.repos.Tenants.SetActive(ctx, tenant.ID, false))
	_, err = f.ledger.Authenticate(ctx, granted.Credential)
	assert.True(t, errors.Is(err, domain.ErrAccessDenied))
}
