package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// TenantsRepository tenant (company) persistence.
// Tenants are never hard-deleted; SetActive(false) is the soft deactivation.
type TenantsRepository interface {
	// CreateTenant inserts the tenant and its first credential log row in one transaction.
	// Fills t.ID / CreatedAt / UpdatedAt. ErrConflict on duplicate code or an owner with an active tenant.
	CreateTenant(ctx context.Context, t *domain.Tenant) error

	GetTenant(ctx context.Context, id int64) (*domain.Tenant, error)

	// GetActiveTenantByOwner returns the active tenant owned by ownerID (ErrNotFound if none).
	GetActiveTenantByOwner(ctx context.Context, ownerID int64) (*domain.Tenant, error)

	// GetTenantByCredential resolves an access credential (API authentication).
	GetTenantByCredential(ctx context.Context, credential string) (*domain.Tenant, error)

	// ListTenants ordered by creation time, newest first, with active employee counts.
	ListTenants(ctx context.Context, activeOnly bool) ([]domain.TenantSummary, error)

	// ApplyGrant replaces credential and plan window atomically and appends a credential log.
	// Returns the updated tenant and the replaced credential.
	ApplyGrant(ctx context.Context, g Grant) (*domain.Tenant, string, error)

	SetActive(ctx context.Context, id int64, active bool) error
}

// Grant one plan/credential replacement.
type Grant struct {
	TenantID   int64
	Plan       domain.PlanTag
	Credential string
	PlanStart  time.Time
	PlanEnd    *time.Time
	GrantedBy  int64
}

// EmployeesRepository employee records, always scoped by tenant.
// "Active" queries exclude terminated records.
type EmployeesRepository interface {
	// CreateEmployee ErrConflict when an active record with the same (tenant, code) exists.
	CreateEmployee(ctx context.Context, e *domain.Employee) error
	GetEmployee(ctx context.Context, tenantID int64, code string) (*domain.Employee, error)
	// ListActiveEmployees ordered by (first_name, last_name).
	ListActiveEmployees(ctx context.Context, tenantID int64) ([]*domain.Employee, error)
	CountActiveEmployees(ctx context.Context, tenantID int64) (int, error)
	// UpdateEmployeeField ErrNotFound when no active record matches.
	UpdateEmployeeField(ctx context.Context, tenantID int64, code string, u domain.FieldUpdate) error
	SoftDeleteEmployee(ctx context.Context, tenantID int64, code string) error
	// GetActiveEmployeeByCaller finds the active record linked to a chat identity.
	GetActiveEmployeeByCaller(ctx context.Context, callerID int64) (*domain.Employee, error)
}

// PaymentsRepository payment records; never deleted.
type PaymentsRepository interface {
	// CreatePayment ErrConflict on duplicate transaction id or a second pending payment of the tenant.
	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
	GetPendingPayment(ctx context.Context, tenantID int64) (*domain.Payment, error)
	// SetStatus records a non-completing status on a pending payment; settled payments are left untouched.
	SetStatus(ctx context.Context, transactionID string, status domain.PaymentStatus, gatewayRef string) error
	// MarkCompleted moves a payment to completed. Reports false when it already was.
	MarkCompleted(ctx context.Context, transactionID string, gatewayRef string) (bool, error)
	// RevertCompletion restores prev after a failed grant so a redelivered callback can retry.
	RevertCompletion(ctx context.Context, transactionID string, prev domain.PaymentStatus) error
}

// AuditRepository append-only trails.
type AuditRepository interface {
	AppendAudit(ctx context.Context, e *domain.AuditEntry) error
	CreateSupportMessage(ctx context.Context, m *domain.SupportMessage) error
}

// SettingsRepository mutable system settings (key/value).
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) (map[string]string, error)
}

// StatsRepository admin counters.
type StatsRepository interface {
	// SystemStats counts at instant now; registrations are counted from since.
	SystemStats(ctx context.Context, now, since time.Time) (*domain.Stats, error)
}

// Repositories bundles every repository the services need.
type Repositories struct {
	Tenants   TenantsRepository
	Employees EmployeesRepository
	Payments  PaymentsRepository
	Audit     AuditRepository
	Settings  SettingsRepository
	Stats     StatsRepository
}

// NewPostgresRepositories wires all Postgres repositories on one pool.
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Tenants:   NewPostgresTenantsRepository(db),
		Employees: NewPostgresEmployeesRepository(db),
		Payments:  NewPostgresPaymentsRepository(db),
		Audit:     NewPostgresAuditRepository(db),
		Settings:  NewPostgresSettingsRepository(db),
		Stats:     NewPostgresStatsRepository(db),
	}
}

// NewMemoryRepositories wires the in-memory repositories (DB disabled, tests).
func NewMemoryRepositories() *Repositories {
	tenants := NewMemoryTenantsRepo()
	employees := NewMemoryEmployeesRepo()
	payments := NewMemoryPaymentsRepo()
	return &Repositories{
		Tenants:   tenants,
		Employees: employees,
		Payments:  payments,
		Audit:     NewMemoryAuditRepo(),
		Settings:  NewMemorySettingsRepo(),
		Stats:     NewMemoryStatsRepo(tenants, employees, payments),
	}
}

const (
	uniqueViolation = "23505"
	dataException   = "22" // SQLSTATE class
)

// wrapErr maps driver errors onto domain error kinds.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pqErr.Constraint)
		case pqErr.Code.Class() == dataException:
			// value too long, numeric overflow, bad date: the input is at fault, not the store
			return fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}
