package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanTag(t *testing.T) {
	cases := map[string]PlanTag{
		"1m":       PlanOneMonth,
		"1-month":  PlanOneMonth,
		"1 Month":  PlanOneMonth,
		"6m":       PlanSixMonths,
		"6-month":  PlanSixMonths,
		"6 Months": PlanSixMonths,
		"LIFETIME": PlanLifetime,
	}
	for in, want := range cases {
		got, err := ParsePlanTag(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePlanTag("2y")
	assert.True(t, errors.Is(err, ErrInvalidPlan))
}

func TestPlanTag_EndFrom(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := PlanSixMonths.EndFrom(start)
	require.NotNil(t, end)
	assert.Equal(t, start.Add(180*24*time.Hour), *end)
	assert.Nil(t, PlanLifetime.EndFrom(start))
}

func TestTenant_SubscriptionActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&Tenant{IsActive: true, Plan: PlanLifetime}).SubscriptionActive(now))
	assert.False(t, (&Tenant{IsActive: false, Plan: PlanLifetime}).SubscriptionActive(now))
	assert.True(t, (&Tenant{IsActive: true, Plan: PlanOneMonth, PlanEnd: &future}).SubscriptionActive(now))
	assert.False(t, (&Tenant{IsActive: true, Plan: PlanOneMonth, PlanEnd: &past}).SubscriptionActive(now))
	// plan-end must be strictly in the future
	assert.False(t, (&Tenant{IsActive: true, Plan: PlanOneMonth, PlanEnd: &now}).SubscriptionActive(now))
	assert.False(t, (*Tenant)(nil).SubscriptionActive(now))
}

func TestParseEmployeeField(t *testing.T) {
	f, err := ParseEmployeeField("7")
	require.NoError(t, err)
	assert.Equal(t, FieldSalary, f)

	f, err = ParseEmployeeField("Joining Date")
	require.NoError(t, err)
	assert.Equal(t, FieldJoinDate, f)

	f, err = ParseEmployeeField("last_name")
	require.NoError(t, err)
	assert.Equal(t, FieldLastName, f)

	_, err = ParseEmployeeField("9")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = ParseEmployeeField("manager")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestParseFieldUpdate(t *testing.T) {
	t.Run("salary", func(t *testing.T) {
		u, err := ParseFieldUpdate(FieldSalary, "1500.5")
		require.NoError(t, err)
		assert.True(t, u.Salary.Decimal.Equal(decimal.RequireFromString("1500.50")))
		assert.Equal(t, "1500.50", u.Value())

		_, err = ParseFieldUpdate(FieldSalary, "-5")
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = ParseFieldUpdate(FieldSalary, "lots")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("date", func(t *testing.T) {
		u, err := ParseFieldUpdate(FieldJoinDate, "2024-02-29")
		require.NoError(t, err)
		require.NotNil(t, u.Date)
		assert.Equal(t, time.February, u.Date.Month())

		_, err = ParseFieldUpdate(FieldJoinDate, "2024-13-40")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("clear", func(t *testing.T) {
		u, err := ParseFieldUpdate(FieldDepartment, "CLEAR")
		require.NoError(t, err)
		assert.True(t, u.Cleared)
		assert.Nil(t, u.Value())

		_, err = ParseFieldUpdate(FieldFirstName, "clear")
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("apply", func(t *testing.T) {
		e := &Employee{FirstName: "Ann", Department: "Eng", Salary: decimal.NewNullDecimal(decimal.NewFromInt(10))}
		u, err := ParseFieldUpdate(FieldDepartment, "clear")
		require.NoError(t, err)
		u.Apply(e)
		assert.Equal(t, "", e.Department)

		u, err = ParseFieldUpdate(FieldSalary, "clear")
		require.NoError(t, err)
		u.Apply(e)
		assert.False(t, e.Salary.Valid)
	})

	t.Run("email", func(t *testing.T) {
		_, err := ParseFieldUpdate(FieldEmail, "ann@example.com")
		require.NoError(t, err)
		_, err = ParseFieldUpdate(FieldEmail, "not-an-email")
		assert.True(t, errors.Is(err, ErrValidation))
	})
}

func TestColumnLimits(t *testing.T) {
	t.Run("salary", func(t *testing.T) {
		amt, err := ParseSalary("9999999999.994")
		require.NoError(t, err)
		assert.Equal(t, "9999999999.99", amt.StringFixed(2))

		_, err = ParseSalary("99999999999")
		assert.ErrorIs(t, err, ErrSalaryRange)
		assert.ErrorIs(t, err, ErrValidation)
		// rounds up past the column
		_, err = ParseSalary("9999999999.996")
		assert.ErrorIs(t, err, ErrSalaryRange)
	})

	t.Run("text", func(t *testing.T) {
		assert.NoError(t, CheckLength("Name", strings.Repeat("é", MaxTextLen), MaxTextLen))
		assert.ErrorIs(t, CheckLength("Name", strings.Repeat("é", MaxTextLen+1), MaxTextLen), ErrValidation)

		_, err := ParseFieldUpdate(FieldPhone, strings.Repeat("1", MaxPhoneLen+1))
		assert.ErrorIs(t, err, ErrValidation)
		_, err = ParseFieldUpdate(FieldDesignation, strings.Repeat("x", MaxTextLen+1))
		assert.ErrorIs(t, err, ErrValidation)
		_, err = ParseEmail(strings.Repeat("a", MaxTextLen) + "@example.com")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("employee", func(t *testing.T) {
		e := &Employee{Code: "E1", FirstName: "Ann", Salary: decimal.NewNullDecimal(decimal.NewFromInt(5000))}
		require.NoError(t, e.CheckLimits())

		e.Code = strings.Repeat("E", MaxCodeLen+1)
		assert.ErrorIs(t, e.CheckLimits(), ErrValidation)

		e.Code = "E1"
		e.Salary = decimal.NewNullDecimal(MaxSalary)
		assert.ErrorIs(t, e.CheckLimits(), ErrSalaryRange)
	})

	t.Run("price", func(t *testing.T) {
		p, err := ParsePrice(" 149.999 ")
		require.NoError(t, err)
		assert.Equal(t, "150.00", p.StringFixed(2))

		for _, raw := range []string{"0", "-1", "0.001", "abc", "100000000", "99999999999"} {
			_, err := ParsePrice(raw)
			assert.ErrorIs(t, err, ErrValidation, raw)
		}
	})
}

func TestTenantOf(t *testing.T) {
	tn := &Tenant{ID: 3}
	assert.Equal(t, tn, TenantOf(Owner{Tenant: tn}))
	assert.Equal(t, tn, TenantOf(EmployeeRole{Tenant: tn}))
	assert.Nil(t, TenantOf(Admin{}))
	assert.Nil(t, TenantOf(Unregistered{}))
}
