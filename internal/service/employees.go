package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// Employees tenant-scoped employee registry.
type Employees struct {
	repo     repository.EmployeesRepository
	settings repository.SettingsRepository
	logger   *zap.Logger
}

func NewEmployees(repo repository.EmployeesRepository, settings repository.SettingsRepository, logger *zap.Logger) *Employees {
	return &Employees{repo: repo, settings: settings, logger: logger}
}

// NormalizeCode trims the employee code; codes are case-sensitive.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// Add creates an active employee. ErrConflict when the code is taken in this tenant.
func (s *Employees) Add(ctx context.Context, e *domain.Employee) error {
	e.Code = NormalizeCode(e.Code)
	e.FirstName = strings.TrimSpace(e.FirstName)
	if e.Code == "" {
		return fmt.Errorf("%w: employee code is required", domain.ErrValidation)
	}
	if e.FirstName == "" {
		return fmt.Errorf("%w: first name is required", domain.ErrValidation)
	}
	if e.Salary.Valid && e.Salary.Decimal.IsNegative() {
		return fmt.Errorf("%w: salary cannot be negative", domain.ErrValidation)
	}
	if err := e.CheckLimits(); err != nil {
		return err
	}

	if limit := s.maxEmployees(ctx); limit > 0 {
		n, err := s.repo.CountActiveEmployees(ctx, e.TenantID)
		if err != nil {
			return err
		}
		if n >= limit {
			return ErrEmployeeLimit
		}
	}

	e.Status = domain.EmployeeActive
	if err := s.repo.CreateEmployee(ctx, e); err != nil {
		return err
	}
	s.logger.Info("Employee added", zap.Int64("tenant_id", e.TenantID), zap.String("employee_code", e.Code))
	return nil
}

func (s *Employees) maxEmployees(ctx context.Context) int {
	if s.settings == nil {
		return 0
	}
	raw, err := s.settings.GetSetting(ctx, domain.SettingMaxEmployees)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Failed to read employee limit", zap.Error(err))
		}
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func (s *Employees) Get(ctx context.Context, tenantID int64, code string) (*domain.Employee, error) {
	return s.repo.GetEmployee(ctx, tenantID, NormalizeCode(code))
}

// Exists reports whether an active record with code exists; store errors are returned.
func (s *Employees) Exists(ctx context.Context, tenantID int64, code string) (bool, error) {
	_, err := s.repo.GetEmployee(ctx, tenantID, NormalizeCode(code))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Employees) ListActive(ctx context.Context, tenantID int64) ([]*domain.Employee, error) {
	return s.repo.ListActiveEmployees(ctx, tenantID)
}

// Update applies one validated field update.
func (s *Employees) Update(ctx context.Context, tenantID int64, code string, u domain.FieldUpdate) error {
	if err := s.repo.UpdateEmployeeField(ctx, tenantID, NormalizeCode(code), u); err != nil {
		return err
	}
	s.logger.Info("Employee updated",
		zap.Int64("tenant_id", tenantID),
		zap.String("employee_code", code),
		zap.String("field", string(u.Field)),
		zap.Bool("cleared", u.Cleared),
	)
	return nil
}

// SoftDelete marks the employee terminated; the row is retained.
func (s *Employees) SoftDelete(ctx context.Context, tenantID int64, code string) error {
	if err := s.repo.SoftDeleteEmployee(ctx, tenantID, NormalizeCode(code)); err != nil {
		return err
	}
	s.logger.Info("Employee terminated", zap.Int64("tenant_id", tenantID), zap.String("employee_code", code))
	return nil
}
