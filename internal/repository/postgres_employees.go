package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// PostgresEmployeesRepository employees table over lib/pq.
type PostgresEmployeesRepository struct {
	db *sql.DB
}

func NewPostgresEmployeesRepository(db *sql.DB) *PostgresEmployeesRepository {
	return &PostgresEmployeesRepository{db: db}
}

var _ EmployeesRepository = (*PostgresEmployeesRepository)(nil)

const employeeColumns = `
	id,
	tenant_id,
	employee_code,
	first_name,
	COALESCE(last_name, ''),
	COALESCE(designation, ''),
	COALESCE(phone, ''),
	COALESCE(email, ''),
	COALESCE(department, ''),
	joining_date,
	salary,
	caller_id,
	status,
	created_at,
	updated_at`

// employeeFieldColumns closed mapping from field tag to column; nothing else is ever interpolated.
var employeeFieldColumns = map[domain.EmployeeField]string{
	domain.FieldFirstName:   "first_name",
	domain.FieldLastName:    "last_name",
	domain.FieldDesignation: "designation",
	domain.FieldPhone:       "phone",
	domain.FieldEmail:       "email",
	domain.FieldJoinDate:    "joining_date",
	domain.FieldSalary:      "salary",
	domain.FieldDepartment:  "department",
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var e domain.Employee
	var joinDate sql.NullTime
	var salary decimal.NullDecimal
	var callerID sql.NullInt64
	if err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.Code,
		&e.FirstName,
		&e.LastName,
		&e.Designation,
		&e.Phone,
		&e.Email,
		&e.Department,
		&joinDate,
		&salary,
		&callerID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.JoinDate = timePtr(joinDate)
	e.Salary = salary
	e.CallerID = int64Ptr(callerID)
	return &e, nil
}

func salaryParam(s decimal.NullDecimal) any {
	if !s.Valid {
		return nil
	}
	return s.Decimal.StringFixed(2)
}

func (r *PostgresEmployeesRepository) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	if e.Status == "" {
		e.Status = domain.EmployeeActive
	}
	query := `
		INSERT INTO employees (
			tenant_id,
			employee_code,
			first_name,
			last_name,
			designation,
			phone,
			email,
			joining_date,
			salary,
			department,
			caller_id,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.TenantID,
		e.Code,
		e.FirstName,
		nullString(e.LastName),
		nullString(e.Designation),
		nullString(e.Phone),
		nullString(e.Email),
		nullTime(e.JoinDate),
		salaryParam(e.Salary),
		nullString(e.Department),
		nullInt64(e.CallerID),
		e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to create employee %s", e.Code), err)
	}
	return nil
}

func (r *PostgresEmployeesRepository) GetEmployee(ctx context.Context, tenantID int64, code string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1 AND employee_code = $2 AND status = 'active'`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, tenantID, code))
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get employee %s", code), err)
	}
	return e, nil
}

func (r *PostgresEmployeesRepository) ListActiveEmployees(ctx context.Context, tenantID int64) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1 AND status = 'active'
		ORDER BY first_name, last_name NULLS FIRST, id`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, wrapErr("failed to list employees", err)
	}
	defer rows.Close()

	var out []*domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, wrapErr("failed to scan employee", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate employees", err)
	}
	return out, nil
}

func (r *PostgresEmployeesRepository) CountActiveEmployees(ctx context.Context, tenantID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE tenant_id = $1 AND status = 'active'`, tenantID).Scan(&n)
	if err != nil {
		return 0, wrapErr("failed to count employees", err)
	}
	return n, nil
}

func (r *PostgresEmployeesRepository) UpdateEmployeeField(ctx context.Context, tenantID int64, code string, u domain.FieldUpdate) error {
	column, ok := employeeFieldColumns[u.Field]
	if !ok {
		return fmt.Errorf("field %q is not updatable: %w", u.Field, domain.ErrValidation)
	}
	var b strings.Builder
	b.WriteString("UPDATE employees SET ")
	b.WriteString(column)
	b.WriteString(" = $3, updated_at = NOW() WHERE tenant_id = $1 AND employee_code = $2 AND status = 'active'")

	res, err := r.db.ExecContext(ctx, b.String(), tenantID, code, u.Value())
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to update employee %s", code), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresEmployeesRepository) SoftDeleteEmployee(ctx context.Context, tenantID int64, code string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET status = 'terminated', updated_at = NOW()
		WHERE tenant_id = $1 AND employee_code = $2 AND status = 'active'`, tenantID, code)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to delete employee %s", code), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresEmployeesRepository) GetActiveEmployeeByCaller(ctx context.Context, callerID int64) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE caller_id = $1 AND status = 'active'
		ORDER BY id
		LIMIT 1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, callerID))
	if err != nil {
		return nil, wrapErr("failed to get employee by caller", err)
	}
	return e, nil
}
