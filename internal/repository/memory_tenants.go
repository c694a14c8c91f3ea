package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// MemoryTenantsRepo backs tenants when the DB is disabled.
// Returned tenants are copies; callers never alias stored state.
type MemoryTenantsRepo struct {
	mu      sync.RWMutex
	seq     int64
	tenants map[int64]*domain.Tenant
	logs    []domain.CredentialLog

	// employee counts for ListTenants; wired by NewMemoryRepositories
	employees *MemoryEmployeesRepo
}

func NewMemoryTenantsRepo() *MemoryTenantsRepo {
	return &MemoryTenantsRepo{tenants: map[int64]*domain.Tenant{}}
}

var _ TenantsRepository = (*MemoryTenantsRepo)(nil)

func copyTenant(t *domain.Tenant) *domain.Tenant {
	c := *t
	if t.PlanEnd != nil {
		end := *t.PlanEnd
		c.PlanEnd = &end
	}
	return &c
}

func (r *MemoryTenantsRepo) CreateTenant(_ context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tenants {
		if existing.Code == t.Code {
			return fmt.Errorf("company code %s: %w", t.Code, domain.ErrConflict)
		}
		if existing.Credential == t.Credential {
			return fmt.Errorf("credential: %w", domain.ErrConflict)
		}
		if existing.IsActive && existing.OwnerID == t.OwnerID {
			return fmt.Errorf("owner %d already has an active company: %w", t.OwnerID, domain.ErrConflict)
		}
	}

	r.seq++
	now := time.Now()
	t.ID = r.seq
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tenants[t.ID] = copyTenant(t)
	r.logs = append(r.logs, domain.CredentialLog{
		ID:            int64(len(r.logs) + 1),
		TenantID:      t.ID,
		NewCredential: t.Credential,
		GrantedBy:     t.OwnerID,
		Plan:          t.Plan,
		PlanEnd:       t.PlanEnd,
		Action:        "register",
		CreatedAt:     now,
	})
	return nil
}

func (r *MemoryTenantsRepo) GetTenant(_ context.Context, id int64) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %d: %w", id, domain.ErrNotFound)
	}
	return copyTenant(t), nil
}

func (r *MemoryTenantsRepo) GetActiveTenantByOwner(_ context.Context, ownerID int64) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.IsActive && t.OwnerID == ownerID {
			return copyTenant(t), nil
		}
	}
	return nil, fmt.Errorf("tenant for owner %d: %w", ownerID, domain.ErrNotFound)
}

func (r *MemoryTenantsRepo) GetTenantByCredential(_ context.Context, credential string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if credential != "" {
		for _, t := range r.tenants {
			if t.Credential == credential {
				return copyTenant(t), nil
			}
		}
	}
	return nil, fmt.Errorf("tenant by credential: %w", domain.ErrNotFound)
}

func (r *MemoryTenantsRepo) ListTenants(ctx context.Context, activeOnly bool) ([]domain.TenantSummary, error) {
	r.mu.RLock()
	all := make([]domain.TenantSummary, 0, len(r.tenants))
	for _, t := range r.tenants {
		if activeOnly && !t.IsActive {
			continue
		}
		all = append(all, domain.TenantSummary{Tenant: *copyTenant(t)})
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if r.employees != nil {
		for i := range all {
			n, _ := r.employees.CountActiveEmployees(ctx, all[i].ID)
			all[i].EmployeeCount = n
		}
	}
	return all, nil
}

func (r *MemoryTenantsRepo) ApplyGrant(_ context.Context, g Grant) (*domain.Tenant, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[g.TenantID]
	if !ok {
		return nil, "", fmt.Errorf("tenant %d: %w", g.TenantID, domain.ErrNotFound)
	}
	old := t.Credential
	t.Credential = g.Credential
	t.Plan = g.Plan
	t.PlanStart = g.PlanStart
	t.PlanEnd = g.PlanEnd
	t.UpdatedAt = time.Now()
	r.logs = append(r.logs, domain.CredentialLog{
		ID:            int64(len(r.logs) + 1),
		TenantID:      g.TenantID,
		OldCredential: old,
		NewCredential: g.Credential,
		GrantedBy:     g.GrantedBy,
		Plan:          g.Plan,
		PlanEnd:       g.PlanEnd,
		Action:        "renew",
		CreatedAt:     t.UpdatedAt,
	})
	return copyTenant(t), old, nil
}

func (r *MemoryTenantsRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return fmt.Errorf("tenant %d: %w", id, domain.ErrNotFound)
	}
	t.IsActive = active
	t.UpdatedAt = time.Now()
	return nil
}

// CredentialLogs snapshot of the credential trail.
func (r *MemoryTenantsRepo) CredentialLogs() []domain.CredentialLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.CredentialLog(nil), r.logs...)
}
