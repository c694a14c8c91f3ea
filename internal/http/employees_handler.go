package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/service"
)

// EmployeesHandler read-only roster API authenticated by the tenant credential.
type EmployeesHandler struct {
	ledger    *service.Ledger
	employees *service.Employees
	logger    *zap.Logger
}

func NewEmployeesHandler(ledger *service.Ledger, employees *service.Employees, logger *zap.Logger) *EmployeesHandler {
	return &EmployeesHandler{ledger: ledger, employees: employees, logger: logger}
}

type employeeDTO struct {
	EmployeeID  string  `json:"employee_id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name,omitempty"`
	Designation string  `json:"designation,omitempty"`
	Department  string  `json:"department,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Email       string  `json:"email,omitempty"`
	JoiningDate *string `json:"joining_date,omitempty"`
	Salary      *string `json:"salary,omitempty"`
	Status      string  `json:"status"`
}

type employeesResult struct {
	CompanyCode string        `json:"company_code"`
	CompanyName string        `json:"company_name"`
	Total       int           `json:"total"`
	Employees   []employeeDTO `json:"employees"`
}

func toEmployeeDTO(e *domain.Employee) employeeDTO {
	dto := employeeDTO{
		EmployeeID:  e.Code,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		Designation: e.Designation,
		Department:  e.Department,
		Phone:       e.Phone,
		Email:       e.Email,
		Status:      e.Status,
	}
	if e.JoinDate != nil {
		d := e.JoinDate.Format(domain.DateLayout)
		dto.JoiningDate = &d
	}
	if e.Salary.Valid {
		s := e.Salary.Decimal.StringFixed(2)
		dto.Salary = &s
	}
	return dto
}

func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.ledger.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid or expired API key"))
			return
		}
		h.logger.Error("Failed to authenticate API key", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("temporarily unavailable"))
		return
	}

	list, err := h.employees.ListActive(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("Failed to list employees", zap.Int64("tenant_id", tenant.ID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail("temporarily unavailable"))
		return
	}

	out := employeesResult{
		CompanyCode: tenant.Code,
		CompanyName: tenant.Name,
		Total:       len(list),
		Employees:   make([]employeeDTO, 0, len(list)),
	}
	for _, e := range list {
		out.Employees = append(out.Employees, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, Ok(out))
}
