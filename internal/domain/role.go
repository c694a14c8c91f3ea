package domain

// Role caller classification. The set is closed: Unregistered, Owner, EmployeeRole, Admin.
type Role interface {
	Name() string
	role()
}

// Unregistered caller with no tenant relation.
type Unregistered struct{}

// Owner caller owning an active tenant.
type Owner struct {
	Tenant *Tenant
}

// EmployeeRole caller linked to an active employee record.
type EmployeeRole struct {
	Tenant   *Tenant
	Employee *Employee
}

// Admin system administrator.
type Admin struct{}

func (Unregistered) Name() string { return "unregistered" }
func (Owner) Name() string        { return "company_owner" }
func (EmployeeRole) Name() string { return "employee" }
func (Admin) Name() string        { return "admin" }

func (Unregistered) role() {}
func (Owner) role()        {}
func (EmployeeRole) role() {}
func (Admin) role()        {}

// TenantOf returns the tenant tied to r, or nil.
func TenantOf(r Role) *Tenant {
	switch v := r.(type) {
	case Owner:
		return v.Tenant
	case EmployeeRole:
		return v.Tenant
	}
	return nil
}
