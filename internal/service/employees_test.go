package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/repository"
)

func newEmployeesService() (*Employees, *repository.Repositories) {
	repos := repository.NewMemoryRepositories()
	return NewEmployees(repos.Employees, repos.Settings, zap.NewNop()), repos
}

func TestEmployees_CodeUniquePerTenant(t *testing.T) {
	svc, _ := newEmployeesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E100", FirstName: "Ann"}))

	err := svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E100", FirstName: "Bob"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 2, Code: "E100", FirstName: "Bob"}))
}

func TestEmployees_SoftDelete(t *testing.T) {
	svc, repos := newEmployeesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E1", FirstName: "Ann"}))
	require.NoError(t, svc.SoftDelete(ctx, 1, "E1"))

	_, err := svc.Get(ctx, 1, "E1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	list, err := svc.ListActive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)

	all := repos.Employees.(*repository.MemoryEmployeesRepo).All()
	require.Len(t, all, 1)
	assert.Equal(t, domain.EmployeeTerminated, all[0].Status)

	// the code is free again once the old record is terminated
	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E1", FirstName: "Ann"}))
	assert.True(t, errors.Is(svc.SoftDelete(ctx, 1, "missing"), domain.ErrNotFound))
}

func TestEmployees_ListActiveOrdered(t *testing.T) {
	svc, _ := newEmployeesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "3", FirstName: "Cid"}))
	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "2", FirstName: "Ann", LastName: "Zed"}))
	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "1", FirstName: "Ann", LastName: "Bee"}))

	list, err := svc.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{list[0].Code, list[1].Code, list[2].Code})
}

func TestEmployees_Update(t *testing.T) {
	svc, _ := newEmployeesService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, &domain.Employee{
		TenantID:   1,
		Code:       "E1",
		FirstName:  "Ann",
		Department: "Eng",
		Salary:     decimal.NewNullDecimal(decimal.NewFromInt(100)),
	}))

	u, err := domain.ParseFieldUpdate(domain.FieldSalary, "250.75")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, 1, "E1", u))

	u, err = domain.ParseFieldUpdate(domain.FieldDepartment, "clear")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, 1, "E1", u))

	e, err := svc.Get(ctx, 1, "E1")
	require.NoError(t, err)
	assert.True(t, e.Salary.Decimal.Equal(decimal.RequireFromString("250.75")))
	assert.Empty(t, e.Department)

	err = svc.Update(ctx, 1, "E404", u)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestEmployees_Validation(t *testing.T) {
	svc, repos := newEmployeesService()
	ctx := context.Background()

	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{TenantID: 1, Code: " ", FirstName: "Ann"}), domain.ErrValidation))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E1"}), domain.ErrValidation))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{
		TenantID:  1,
		Code:      "E1",
		FirstName: "Ann",
		Salary:    decimal.NewNullDecimal(decimal.NewFromInt(-5)),
	}), domain.ErrValidation))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{TenantID: 1, Code: strings.Repeat("E", 65), FirstName: "Ann"}), domain.ErrValidation))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E1", FirstName: "Ann", Phone: strings.Repeat("5", 65)}), domain.ErrValidation))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{
		TenantID:  1,
		Code:      "E1",
		FirstName: "Ann",
		Salary:    decimal.NewNullDecimal(decimal.RequireFromString("12345678901.00")),
	}), domain.ErrSalaryRange))

	require.NoError(t, repos.Settings.SetSetting(ctx, domain.SettingMaxEmployees, "1"))
	require.NoError(t, svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E1", FirstName: "Ann"}))
	assert.True(t, errors.Is(svc.Add(ctx, &domain.Employee{TenantID: 1, Code: "E2", FirstName: "Bob"}), ErrEmployeeLimit))
}
