package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// MemoryEmployeesRepo backs employees when the DB is disabled.
type MemoryEmployeesRepo struct {
	mu        sync.RWMutex
	seq       int64
	employees []*domain.Employee // terminated records are retained
}

func NewMemoryEmployeesRepo() *MemoryEmployeesRepo {
	return &MemoryEmployeesRepo{}
}

var _ EmployeesRepository = (*MemoryEmployeesRepo)(nil)

func copyEmployee(e *domain.Employee) *domain.Employee {
	c := *e
	if e.JoinDate != nil {
		d := *e.JoinDate
		c.JoinDate = &d
	}
	if e.CallerID != nil {
		id := *e.CallerID
		c.CallerID = &id
	}
	return &c
}

func (r *MemoryEmployeesRepo) findActive(tenantID int64, code string) *domain.Employee {
	for _, e := range r.employees {
		if e.TenantID == tenantID && e.Code == code && e.Status == domain.EmployeeActive {
			return e
		}
	}
	return nil
}

func (r *MemoryEmployeesRepo) CreateEmployee(_ context.Context, e *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Status == "" {
		e.Status = domain.EmployeeActive
	}
	if e.Status == domain.EmployeeActive && r.findActive(e.TenantID, e.Code) != nil {
		return fmt.Errorf("employee %s: %w", e.Code, domain.ErrConflict)
	}
	r.seq++
	now := time.Now()
	e.ID = r.seq
	e.CreatedAt = now
	e.UpdatedAt = now
	r.employees = append(r.employees, copyEmployee(e))
	return nil
}

func (r *MemoryEmployeesRepo) GetEmployee(_ context.Context, tenantID int64, code string) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.findActive(tenantID, code)
	if e == nil {
		return nil, fmt.Errorf("employee %s: %w", code, domain.ErrNotFound)
	}
	return copyEmployee(e), nil
}

func (r *MemoryEmployeesRepo) ListActiveEmployees(_ context.Context, tenantID int64) ([]*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Employee
	for _, e := range r.employees {
		if e.TenantID == tenantID && e.Status == domain.EmployeeActive {
			out = append(out, copyEmployee(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].LastName < out[j].LastName
	})
	return out, nil
}

func (r *MemoryEmployeesRepo) CountActiveEmployees(_ context.Context, tenantID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.employees {
		if e.TenantID == tenantID && e.Status == domain.EmployeeActive {
			n++
		}
	}
	return n, nil
}

func (r *MemoryEmployeesRepo) UpdateEmployeeField(_ context.Context, tenantID int64, code string, u domain.FieldUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.findActive(tenantID, code)
	if e == nil {
		return fmt.Errorf("employee %s: %w", code, domain.ErrNotFound)
	}
	u.Apply(e)
	e.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryEmployeesRepo) SoftDeleteEmployee(_ context.Context, tenantID int64, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.findActive(tenantID, code)
	if e == nil {
		return fmt.Errorf("employee %s: %w", code, domain.ErrNotFound)
	}
	e.Status = domain.EmployeeTerminated
	e.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryEmployeesRepo) GetActiveEmployeeByCaller(_ context.Context, callerID int64) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.employees {
		if e.Status == domain.EmployeeActive && e.CallerID != nil && *e.CallerID == callerID {
			return copyEmployee(e), nil
		}
	}
	return nil, fmt.Errorf("employee for caller %d: %w", callerID, domain.ErrNotFound)
}

// All snapshot including terminated records.
func (r *MemoryEmployeesRepo) All() []*domain.Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		out = append(out, copyEmployee(e))
	}
	return out
}
