package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// RecentWindow registrations newer than this count as recent.
const RecentWindow = 7 * 24 * time.Hour

// Admin operator views and price updates.
type Admin struct {
	stats    repository.StatsRepository
	tenants  repository.TenantsRepository
	settings repository.SettingsRepository
	ledger   *Ledger
}

func NewAdmin(stats repository.StatsRepository, tenants repository.TenantsRepository, settings repository.SettingsRepository, ledger *Ledger) *Admin {
	return &Admin{stats: stats, tenants: tenants, settings: settings, ledger: ledger}
}

func (a *Admin) Stats(ctx context.Context) (*domain.Stats, error) {
	now := a.ledger.Now()
	return a.stats.SystemStats(ctx, now, now.Add(-RecentWindow))
}

// Companies active tenants, newest first.
func (a *Admin) Companies(ctx context.Context) ([]domain.TenantSummary, error) {
	return a.tenants.ListTenants(ctx, true)
}

// SettingsView effective settings: stored values with prices resolved through the ledger.
type SettingsView struct {
	Pricing      domain.Pricing
	MaxEmployees string
	BotVersion   string
}

func (a *Admin) Settings(ctx context.Context) (*SettingsView, error) {
	all, err := a.settings.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsView{
		Pricing:      a.ledger.Pricing(ctx),
		MaxEmployees: all[domain.SettingMaxEmployees],
		BotVersion:   all[domain.SettingBotVersion],
	}, nil
}

// SetPrice stores a new price for plan; amount must be positive and below domain.MaxPrice.
func (a *Admin) SetPrice(ctx context.Context, plan domain.PlanTag, raw string) (decimal.Decimal, error) {
	if !plan.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, plan)
	}
	price, err := domain.ParsePrice(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if err := a.settings.SetSetting(ctx, domain.PriceSettingKey(plan), price.StringFixed(2)); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}
