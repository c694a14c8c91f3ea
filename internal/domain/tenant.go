package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlanTag subscription duration class
type PlanTag string

const (
	PlanOneMonth  PlanTag = "1m"
	PlanSixMonths PlanTag = "6m"
	PlanLifetime  PlanTag = "lifetime"
)

// Plans lists every plan tag in display order.
var Plans = []PlanTag{PlanOneMonth, PlanSixMonths, PlanLifetime}

// Duration returns the plan window; ok is false for lifetime.
func (p PlanTag) Duration() (d time.Duration, ok bool) {
	switch p {
	case PlanOneMonth:
		return 30 * 24 * time.Hour, true
	case PlanSixMonths:
		return 180 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// EndFrom computes plan-end for a window starting at start; nil for lifetime.
func (p PlanTag) EndFrom(start time.Time) *time.Time {
	d, ok := p.Duration()
	if !ok {
		return nil
	}
	end := start.Add(d)
	return &end
}

// Label is the human name used in menus.
func (p PlanTag) Label() string {
	switch p {
	case PlanOneMonth:
		return "1 Month"
	case PlanSixMonths:
		return "6 Months"
	case PlanLifetime:
		return "Lifetime"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of the known tags.
func (p PlanTag) Valid() bool {
	switch p {
	case PlanOneMonth, PlanSixMonths, PlanLifetime:
		return true
	}
	return false
}

// ParsePlanTag accepts the tag itself and the common spellings used in chat
// ("1-month", "6 months", "Lifetime", ...).
func ParsePlanTag(s string) (PlanTag, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	switch norm {
	case "1m", "1 month", "1 months", "one month", "month", "monthly":
		return PlanOneMonth, nil
	case "6m", "6 month", "6 months", "six months", "half year":
		return PlanSixMonths, nil
	case "lifetime", "life time", "forever":
		return PlanLifetime, nil
	}
	for _, p := range Plans {
		if strings.EqualFold(norm, p.Label()) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown plan %q", ErrInvalidPlan, s)
}

// Tenant a registered company (tenants table)
type Tenant struct {
	ID   int64  `db:"id"`           // BIGSERIAL PRIMARY KEY
	Name string `db:"company_name"` // NOT NULL
	Code string `db:"company_code"` // UNIQUE

	// owner identity
	OwnerID        int64  `db:"owner_id"` // UNIQUE among active tenants
	OwnerUsername  string `db:"owner_username"`
	OwnerFirstName string `db:"owner_first_name"`
	OwnerLastName  string `db:"owner_last_name"`

	// subscription
	Credential string     `db:"credential"` // regenerated on every plan change
	Plan       PlanTag    `db:"plan"`
	PlanStart  time.Time  `db:"plan_start"`
	PlanEnd    *time.Time `db:"plan_end"` // NULL iff plan = lifetime

	IsActive  bool      `db:"is_active"` // soft deactivation flag
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SubscriptionActive reports access at instant now:
// active flag AND (lifetime OR plan-end strictly after now).
func (t *Tenant) SubscriptionActive(now time.Time) bool {
	if t == nil || !t.IsActive {
		return false
	}
	if t.Plan == PlanLifetime {
		return true
	}
	return t.PlanEnd != nil && t.PlanEnd.After(now)
}

// TenantSummary a tenant row plus its active employee count (admin listing)
type TenantSummary struct {
	Tenant
	EmployeeCount int
}

// CredentialLog one credential rotation (credential_logs table)
type CredentialLog struct {
	ID            int64
	TenantID      int64
	OldCredential string
	NewCredential string
	GrantedBy     int64 // caller id of the actor, 0 = system
	Plan          PlanTag
	PlanEnd       *time.Time
	Action        string // register | grant
	CreatedAt     time.Time
}

// SystemActor is the actor recorded for grants triggered by payment callbacks.
const SystemActor int64 = 0
