package domain

import "time"

// AuditEntry one append-only audit record (audit_logs table)
type AuditEntry struct {
	ID        int64
	CallerID  int64
	Role      string
	Command   string
	TenantID  *int64
	Detail    string
	Success   bool
	Error     string
	CreatedAt time.Time
}

// SupportMessage free-text message to the operators (support_messages table)
type SupportMessage struct {
	ID        int64
	CallerID  int64
	Username  string
	TenantID  *int64
	Message   string
	Status    string // open | closed
	CreatedAt time.Time
}

// Stats system-wide counters shown to admins.
type Stats struct {
	ActiveCompanies     int
	ActiveSubscriptions int
	ActiveEmployees     int
	RecentRegistrations int // last 7 days
	CompletedPayments   int
	ByPlan              map[PlanTag]int
}

// Setting keys in system_settings.
const (
	SettingPrice1M       = "subscription_1m_price"
	SettingPrice6M       = "subscription_6m_price"
	SettingPriceLifetime = "subscription_lifetime_price"
	SettingMaxEmployees  = "max_employees_per_company"
	SettingBotVersion    = "bot_version"
)

// PriceSettingKey settings key holding the price of plan.
func PriceSettingKey(plan PlanTag) string {
	switch plan {
	case PlanOneMonth:
		return SettingPrice1M
	case PlanSixMonths:
		return SettingPrice6M
	case PlanLifetime:
		return SettingPriceLifetime
	}
	return ""
}
