package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Employee status values
const (
	EmployeeActive     = "active"
	EmployeeTerminated = "terminated"
)

// DateLayout calendar date format accepted from chat input
const DateLayout = "2006-01-02"

// ClearToken sets an optional field back to absent during edits.
const ClearToken = "clear"

// Column limits of the employees table, in characters.
const (
	MaxCodeLen  = 64
	MaxPhoneLen = 64
	MaxTextLen  = 255
)

// MaxSalary exclusive bound of NUMERIC(12,2).
var MaxSalary = decimal.New(1, 10)

var ErrSalaryRange = fmt.Errorf("%w: salary must be below %s", ErrValidation, MaxSalary.String())

// CheckLength ErrValidation when s has more than max characters.
func CheckLength(label, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, label, max)
	}
	return nil
}

// Employee an employee record scoped to a tenant (employees table).
// Empty strings mean absent; they are stored as NULL.
type Employee struct {
	ID       int64  `db:"id"`
	TenantID int64  `db:"tenant_id"`     // FK tenants.id
	Code     string `db:"employee_code"` // UNIQUE (tenant_id, employee_code) WHERE status='active'

	FirstName   string `db:"first_name"` // NOT NULL
	LastName    string `db:"last_name"`
	Designation string `db:"designation"`
	Phone       string `db:"phone"`
	Email       string `db:"email"`
	Department  string `db:"department"`

	JoinDate *time.Time          `db:"joining_date"` // DATE
	Salary   decimal.NullDecimal `db:"salary"`       // NUMERIC(12,2), >= 0

	// CallerID links a chat identity to this record (set by operators, used for the employee role)
	CallerID *int64 `db:"caller_id"`

	Status    string    `db:"status"` // active | terminated
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CheckLimits rejects values the employees table cannot hold.
func (e *Employee) CheckLimits() error {
	if err := CheckLength("Employee ID", e.Code, MaxCodeLen); err != nil {
		return err
	}
	for _, f := range []struct {
		field EmployeeField
		value string
	}{
		{FieldFirstName, e.FirstName},
		{FieldLastName, e.LastName},
		{FieldDesignation, e.Designation},
		{FieldPhone, e.Phone},
		{FieldEmail, e.Email},
		{FieldDepartment, e.Department},
	} {
		if err := CheckLength(f.field.Label(), f.value, f.field.MaxLen()); err != nil {
			return err
		}
	}
	if e.Salary.Valid && e.Salary.Decimal.Round(2).GreaterThanOrEqual(MaxSalary) {
		return ErrSalaryRange
	}
	return nil
}

// FullName first and last name joined.
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// EmployeeField closed set of mutable employee fields.
type EmployeeField string

const (
	FieldFirstName   EmployeeField = "first_name"
	FieldLastName    EmployeeField = "last_name"
	FieldDesignation EmployeeField = "designation"
	FieldPhone       EmployeeField = "phone"
	FieldEmail       EmployeeField = "email"
	FieldJoinDate    EmployeeField = "joining_date"
	FieldSalary      EmployeeField = "salary"
	FieldDepartment  EmployeeField = "department"
)

// EditableFields in menu order (1..8).
var EditableFields = []EmployeeField{
	FieldFirstName,
	FieldLastName,
	FieldDesignation,
	FieldPhone,
	FieldEmail,
	FieldJoinDate,
	FieldSalary,
	FieldDepartment,
}

// Label human name of the field.
func (f EmployeeField) Label() string {
	switch f {
	case FieldFirstName:
		return "First Name"
	case FieldLastName:
		return "Last Name"
	case FieldDesignation:
		return "Designation"
	case FieldPhone:
		return "Phone"
	case FieldEmail:
		return "Email"
	case FieldJoinDate:
		return "Joining Date"
	case FieldSalary:
		return "Salary"
	case FieldDepartment:
		return "Department"
	}
	return string(f)
}

// MaxLen character limit of a text field.
func (f EmployeeField) MaxLen() int {
	if f == FieldPhone {
		return MaxPhoneLen
	}
	return MaxTextLen
}

// ParseEmployeeField accepts the tag, the label or the 1-based menu index.
func ParseEmployeeField(s string) (EmployeeField, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(EditableFields) {
			return EditableFields[n-1], nil
		}
		return "", fmt.Errorf("%w: choose a number between 1 and %d", ErrValidation, len(EditableFields))
	}
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, f := range EditableFields {
		if norm == string(f) || norm == strings.ToLower(f.Label()) || norm == strings.ReplaceAll(string(f), "_", " ") {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrValidation, s)
}

// FieldUpdate one validated field assignment. Cleared means the field becomes absent.
type FieldUpdate struct {
	Field   EmployeeField
	Text    string
	Date    *time.Time
	Salary  decimal.NullDecimal
	Cleared bool
}

// ParseFieldUpdate validates raw input for field. The clear token is accepted for every
// field except first name.
func ParseFieldUpdate(field EmployeeField, raw string) (FieldUpdate, error) {
	raw = strings.TrimSpace(raw)
	u := FieldUpdate{Field: field}
	if strings.EqualFold(raw, ClearToken) {
		if field == FieldFirstName {
			return u, fmt.Errorf("%w: first name cannot be cleared", ErrValidation)
		}
		u.Cleared = true
		return u, nil
	}

	switch field {
	case FieldFirstName, FieldLastName, FieldDesignation, FieldPhone, FieldDepartment:
		if raw == "" {
			return u, fmt.Errorf("%w: %s cannot be empty", ErrValidation, field.Label())
		}
		if err := CheckLength(field.Label(), raw, field.MaxLen()); err != nil {
			return u, err
		}
		u.Text = raw
	case FieldEmail:
		v, err := ParseEmail(raw)
		if err != nil {
			return u, err
		}
		u.Text = v
	case FieldJoinDate:
		d, err := ParseDate(raw)
		if err != nil {
			return u, err
		}
		u.Date = &d
	case FieldSalary:
		amt, err := ParseSalary(raw)
		if err != nil {
			return u, err
		}
		u.Salary = decimal.NewNullDecimal(amt)
	default:
		return u, fmt.Errorf("%w: unknown field %q", ErrValidation, field)
	}
	return u, nil
}

// Apply writes the update onto e.
func (u FieldUpdate) Apply(e *Employee) {
	switch u.Field {
	case FieldFirstName:
		e.FirstName = u.Text
	case FieldLastName:
		e.LastName = u.Text
	case FieldDesignation:
		e.Designation = u.Text
	case FieldPhone:
		e.Phone = u.Text
	case FieldEmail:
		e.Email = u.Text
	case FieldDepartment:
		e.Department = u.Text
	case FieldJoinDate:
		e.JoinDate = u.Date
	case FieldSalary:
		e.Salary = u.Salary
	}
}

// Value the SQL parameter for the update; nil when cleared.
func (u FieldUpdate) Value() any {
	if u.Cleared {
		return nil
	}
	switch u.Field {
	case FieldJoinDate:
		if u.Date == nil {
			return nil
		}
		return *u.Date
	case FieldSalary:
		if !u.Salary.Valid {
			return nil
		}
		return u.Salary.Decimal.StringFixed(2)
	default:
		return u.Text
	}
}

// ParseDate strict YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be a valid YYYY-MM-DD calendar date", ErrValidation)
	}
	return d, nil
}

// ParseSalary non-negative decimal amount.
func ParseSalary(s string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: salary must be a number", ErrValidation)
	}
	if amt.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: salary cannot be negative", ErrValidation)
	}
	amt = amt.Round(2)
	if amt.GreaterThanOrEqual(MaxSalary) {
		return decimal.Decimal{}, ErrSalaryRange
	}
	return amt, nil
}

// ParseEmail loose shape check: one @ with text on both sides.
func ParseEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") || at == len(s)-1 || strings.ContainsAny(s, " \t") {
		return "", fmt.Errorf("%w: %q is not an email address", ErrValidation, s)
	}
	if err := CheckLength("Email", s, MaxTextLen); err != nil {
		return "", err
	}
	return s, nil
}
