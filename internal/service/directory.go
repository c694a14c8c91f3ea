package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// Directory classifies callers. Order: admin, owner of an active tenant, active employee, unregistered.
type Directory struct {
	tenants   repository.TenantsRepository
	employees repository.EmployeesRepository
	admins    map[int64]struct{}
	logger    *zap.Logger
}

func NewDirectory(tenants repository.TenantsRepository, employees repository.EmployeesRepository, adminIDs []int64, logger *zap.Logger) *Directory {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Directory{tenants: tenants, employees: employees, admins: admins, logger: logger}
}

func (d *Directory) IsAdmin(caller int64) bool {
	_, ok := d.admins[caller]
	return ok
}

// AdminIDs sorted admin identities (notification recipients).
func (d *Directory) AdminIDs() []int64 {
	out := make([]int64, 0, len(d.admins))
	for id := range d.admins {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Classify never reports Unregistered when the store failed; the error carries ErrUnavailable instead.
func (d *Directory) Classify(ctx context.Context, caller int64) (domain.Role, error) {
	if d.IsAdmin(caller) {
		return domain.Admin{}, nil
	}

	tenant, err := d.tenants.GetActiveTenantByOwner(ctx, caller)
	switch {
	case err == nil:
		return domain.Owner{Tenant: tenant}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to classify caller %d: %w", caller, err)
	}

	emp, err := d.employees.GetActiveEmployeeByCaller(ctx, caller)
	switch {
	case err == nil:
		t, err := d.tenants.GetTenant(ctx, emp.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				d.logger.Warn("Employee references missing tenant", zap.Int64("caller_id", caller), zap.Int64("tenant_id", emp.TenantID))
				return domain.Unregistered{}, nil
			}
			return nil, fmt.Errorf("failed to classify caller %d: %w", caller, err)
		}
		if t.IsActive {
			return domain.EmployeeRole{Tenant: t, Employee: emp}, nil
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to classify caller %d: %w", caller, err)
	}

	return domain.Unregistered{}, nil
}
