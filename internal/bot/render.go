package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/service"
)

// Menu labels
const (
	MenuEmployees      = "👥 Employees"
	MenuAddEmployee    = "➕ Add Employee"
	MenuEditEmployee   = "✏️ Edit Employee"
	MenuViewEmployee   = "👤 View Employee"
	MenuRemoveEmployee = "🗑 Remove Employee"
	MenuExport         = "📤 Export Employees"
	MenuMyProfile      = "👤 My Profile"
	MenuBuy            = "💳 Buy Subscription"
	MenuGenerateKey    = "🔑 Generate API Key"
	MenuStats          = "📈 System Stats"
	MenuSettings       = "⚙️ Settings"
	MenuSupport        = "🆘 Support"
	MenuCompanies      = "📊 All Companies"
	MenuCancel         = "❌ Cancel"
)

// SkipToken leaves an optional field absent.
const SkipToken = "skip"

// maxMessageLen chat message size limit used when splitting long listings.
const maxMessageLen = 4000

const (
	textRetryLater      = "❌ An error occurred\n\nPlease try again later or contact support if the problem persists."
	textOwnersOnly      = "❌ Access denied. This feature is for company owners only."
	textAdminsOnly      = "❌ Access denied. This feature is for main admins only."
	textEmployeesOnly   = "❌ This feature is only available for employees."
	textExpired         = "⚠️ Your subscription has expired. Please renew to access this feature."
	textRegisterFirst   = "❌ Please register first using /start command."
	textWelcomeUnknown  = "👋 Welcome! Please use /start to begin registration."
	textNotUnderstood   = "❓ I didn't understand that command. Please use the menu buttons or type /start for help."
	textCancelled       = "❌ Cancelled."
	textNothingToCancel = "Nothing to cancel."
)

var (
	cancelKeyboard  = [][]string{{MenuCancel}}
	skipKeyboard    = [][]string{{SkipToken}, {MenuCancel}}
	confirmKeyboard = [][]string{{"yes", "no"}, {MenuCancel}}
	planKeyboard    = [][]string{
		{domain.PlanOneMonth.Label(), domain.PlanSixMonths.Label()},
		{domain.PlanLifetime.Label()},
		{MenuCancel},
	}
)

// menuFor reply keyboard of the role's main menu; nil for unregistered callers.
func menuFor(r domain.Role) [][]string {
	switch r.(type) {
	case domain.Admin:
		return [][]string{
			{MenuCompanies, MenuGenerateKey},
			{MenuStats, MenuSettings},
		}
	case domain.Owner:
		return [][]string{
			{MenuEmployees, MenuAddEmployee},
			{MenuEditEmployee, MenuViewEmployee},
			{MenuRemoveEmployee, MenuExport},
			{MenuBuy, MenuSupport},
		}
	case domain.EmployeeRole:
		return [][]string{{MenuMyProfile, MenuSupport}}
	}
	return nil
}

func formatEmployee(e *domain.Employee) string {
	var b strings.Builder
	b.WriteString("👤 Employee Information\n\n")
	fmt.Fprintf(&b, "🆔 ID: %s\n", e.Code)
	fmt.Fprintf(&b, "👤 Name: %s\n", e.FullName())
	if e.Designation != "" {
		fmt.Fprintf(&b, "💼 Designation: %s\n", e.Designation)
	}
	if e.Department != "" {
		fmt.Fprintf(&b, "🏢 Department: %s\n", e.Department)
	}
	if e.Phone != "" {
		fmt.Fprintf(&b, "📞 Phone: %s\n", e.Phone)
	}
	if e.Email != "" {
		fmt.Fprintf(&b, "📧 Email: %s\n", e.Email)
	}
	if e.JoinDate != nil {
		fmt.Fprintf(&b, "📅 Joining Date: %s\n", e.JoinDate.Format(domain.DateLayout))
	}
	if e.Salary.Valid {
		fmt.Fprintf(&b, "💰 Salary: %s\n", e.Salary.Decimal.StringFixed(2))
	}
	status := e.Status
	if status == "" {
		status = domain.EmployeeActive
	}
	fmt.Fprintf(&b, "📊 Status: %s", strings.ToUpper(status[:1])+status[1:])
	if !e.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\n📅 Added: %s", e.CreatedAt.Format(domain.DateLayout))
	}
	return b.String()
}

func formatPlanEnd(t *domain.Tenant) string {
	if t.PlanEnd == nil {
		return "Never (Lifetime)"
	}
	return t.PlanEnd.Format("2006-01-02 15:04")
}

func formatEmployeeList(list []*domain.Employee) string {
	var b strings.Builder
	b.WriteString("👥 Company Employees\n\n")
	for i, e := range list {
		fmt.Fprintf(&b, "%d. %s (ID: %s)\n", i+1, e.FullName(), e.Code)
		if e.Designation != "" {
			fmt.Fprintf(&b, "   💼 %s\n", e.Designation)
		}
		if e.Department != "" {
			fmt.Fprintf(&b, "   🏢 %s\n", e.Department)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total Employees: %d", len(list))
	return b.String()
}

func formatCompanies(list []domain.TenantSummary, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 All Companies\n\n")
	for i, t := range list {
		status := "❌"
		if t.SubscriptionActive(now) {
			status = "✅"
		}
		owner := t.OwnerUsername
		if owner == "" {
			owner = "N/A"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, status, t.Name)
		fmt.Fprintf(&b, "   🆔 ID: %d | Code: %s\n", t.ID, t.Code)
		fmt.Fprintf(&b, "   👤 Owner: @%s\n", owner)
		fmt.Fprintf(&b, "   📅 Sub: %s\n", strings.ToUpper(string(t.Plan)))
		fmt.Fprintf(&b, "   👥 Employees: %d\n\n", t.EmployeeCount)
	}
	fmt.Fprintf(&b, "Total Companies: %d", len(list))
	return b.String()
}

func formatStats(s *domain.Stats) string {
	var b strings.Builder
	b.WriteString("📈 System Statistics\n\n")
	fmt.Fprintf(&b, "🏢 Total Companies: %d\n", s.ActiveCompanies)
	fmt.Fprintf(&b, "✅ Active Subscriptions: %d\n", s.ActiveSubscriptions)
	fmt.Fprintf(&b, "👥 Total Employees: %d\n", s.ActiveEmployees)
	fmt.Fprintf(&b, "🆕 New This Week: %d\n", s.RecentRegistrations)
	fmt.Fprintf(&b, "💰 Completed Payments: %d\n\n", s.CompletedPayments)
	b.WriteString("Subscription Breakdown:\n")
	for _, p := range domain.Plans {
		fmt.Fprintf(&b, "• %s: %d\n", p.Label(), s.ByPlan[p])
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPricing(p domain.Pricing) string {
	var b strings.Builder
	for _, plan := range domain.Plans {
		fmt.Fprintf(&b, "• %s: %s %s\n", plan.Label(), p.Price(plan).StringFixed(2), p.Currency)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSettings(v *service.SettingsView) string {
	return fmt.Sprintf("⚙️ System Settings\n\nPricing:\n%s\n\nMax Employees per Company: %s\nBot Version: %s\n\n"+
		"Change a price with /setprice <1m|6m|lifetime> <amount>",
		formatPricing(v.Pricing), orNA(v.MaxEmployees), orNA(v.BotVersion))
}

func formatInvoice(inv *service.Invoice) string {
	return fmt.Sprintf("💳 Subscription Payment\n\n📅 Plan: %s\n💰 Amount: %s %s\n🆔 Transaction: %s\n\n"+
		"🔗 Pay here:\n%s\n\nYour subscription is activated automatically once the payment completes.",
		inv.Plan.Label(), inv.Amount.StringFixed(2), inv.Currency, inv.TransactionID, inv.PayURL)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			// keep multi-byte runes whole
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
