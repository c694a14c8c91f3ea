package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// MemoryAuditRepo append-only audit trail and support inbox held in memory.
type MemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	support []domain.SupportMessage
}

func NewMemoryAuditRepo() *MemoryAuditRepo {
	return &MemoryAuditRepo{}
}

var _ AuditRepository = (*MemoryAuditRepo)(nil)

func (r *MemoryAuditRepo) AppendAudit(_ context.Context, e *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.entries) + 1)
	e.CreatedAt = time.Now()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryAuditRepo) CreateSupportMessage(_ context.Context, m *domain.SupportMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.Status == "" {
		m.Status = "open"
	}
	m.ID = int64(len(r.support) + 1)
	m.CreatedAt = time.Now()
	r.support = append(r.support, *m)
	return nil
}

func (r *MemoryAuditRepo) Entries() []domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry(nil), r.entries...)
}

func (r *MemoryAuditRepo) SupportMessages() []domain.SupportMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SupportMessage(nil), r.support...)
}

// MemorySettingsRepo seeded with the same defaults as schema.sql.
type MemorySettingsRepo struct {
	mu       sync.RWMutex
	settings map[string]string
}

func NewMemorySettingsRepo() *MemorySettingsRepo {
	return &MemorySettingsRepo{settings: map[string]string{
		domain.SettingPrice1M:       "29.99",
		domain.SettingPrice6M:       "149.99",
		domain.SettingPriceLifetime: "499.99",
		domain.SettingMaxEmployees:  "1000",
		domain.SettingBotVersion:    "1.0.0",
	}}
}

var _ SettingsRepository = (*MemorySettingsRepo)(nil)

func (r *MemorySettingsRepo) GetSetting(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.settings[key]
	if !ok {
		return "", fmt.Errorf("setting %s: %w", key, domain.ErrNotFound)
	}
	return v, nil
}

func (r *MemorySettingsRepo) SetSetting(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	return nil
}

func (r *MemorySettingsRepo) ListSettings(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.settings))
	for k, v := range r.settings {
		out[k] = v
	}
	return out, nil
}

// MemoryStatsRepo derives counters from the other memory repositories.
type MemoryStatsRepo struct {
	tenants   *MemoryTenantsRepo
	employees *MemoryEmployeesRepo
	payments  *MemoryPaymentsRepo
}

func NewMemoryStatsRepo(tenants *MemoryTenantsRepo, employees *MemoryEmployeesRepo, payments *MemoryPaymentsRepo) *MemoryStatsRepo {
	tenants.employees = employees
	return &MemoryStatsRepo{tenants: tenants, employees: employees, payments: payments}
}

var _ StatsRepository = (*MemoryStatsRepo)(nil)

func (r *MemoryStatsRepo) SystemStats(ctx context.Context, now, since time.Time) (*domain.Stats, error) {
	s := &domain.Stats{ByPlan: map[domain.PlanTag]int{}}
	all, err := r.tenants.ListTenants(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if !t.CreatedAt.Before(since) {
			s.RecentRegistrations++
		}
		if !t.IsActive {
			continue
		}
		s.ActiveCompanies++
		s.ActiveEmployees += t.EmployeeCount
		s.ByPlan[t.Plan]++
		if t.SubscriptionActive(now) {
			s.ActiveSubscriptions++
		}
	}
	s.CompletedPayments = r.payments.countCompleted()
	return s, nil
}
