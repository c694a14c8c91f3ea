package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/export"
	"github.com/mehedi-exx/Hr/internal/notify"
)

// dispatch routes text outside any flow to a command or menu entry.
func (c *Controller) dispatch(ctx context.Context, in *input, text string) []Reply {
	if strings.HasPrefix(text, "/") {
		name, args := parseCommand(text)
		switch name {
		case "start":
			return c.cmdStart(ctx, in)
		case "help":
			return c.cmdHelp(in)
		case "buy":
			return c.begin(ctx, in, flowPurchase)
		case "genkey":
			return c.cmdGenkey(ctx, in, args)
		case "simulate_payment":
			return c.cmdSimulatePayment(ctx, in, args)
		case "setprice":
			return c.cmdSetPrice(ctx, in, args)
		}
		return c.unknown(in)
	}

	switch text {
	case MenuEmployees:
		return c.listEmployees(ctx, in)
	case MenuAddEmployee:
		return c.begin(ctx, in, flowAddEmployee)
	case MenuEditEmployee:
		return c.begin(ctx, in, flowEditEmployee)
	case MenuViewEmployee:
		return c.begin(ctx, in, flowViewEmployee)
	case MenuRemoveEmployee:
		return c.begin(ctx, in, flowRemoveEmployee)
	case MenuExport:
		return c.exportEmployees(ctx, in)
	case MenuMyProfile:
		return c.myProfile(ctx, in)
	case MenuBuy:
		return c.begin(ctx, in, flowPurchase)
	case MenuGenerateKey:
		return c.genkeyHelp(in)
	case MenuStats:
		return c.systemStats(ctx, in)
	case MenuSettings:
		return c.settings(ctx, in)
	case MenuCompanies:
		return c.allCompanies(ctx, in)
	case MenuSupport:
		return c.begin(ctx, in, flowSupport)
	}
	return c.unknown(in)
}

// parseCommand splits "/name@bot arg1 arg2" into a lower-case name and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	return name, fields[1:]
}

func (c *Controller) unknown(in *input) []Reply {
	if _, ok := in.role.(domain.Unregistered); ok {
		return []Reply{in.reply(textWelcomeUnknown, nil)}
	}
	return []Reply{in.reply(textNotUnderstood, menuFor(in.role))}
}

func (c *Controller) cmdStart(ctx context.Context, in *input) []Reply {
	switch r := in.role.(type) {
	case domain.Admin:
		return []Reply{in.reply("🔧 Main Admin Panel\n\nWelcome to the Employee Management System admin panel. "+
			"You can manage all companies and generate API keys.", menuFor(r))}
	case domain.Owner:
		if !c.ledger.IsActive(r.Tenant) {
			return []Reply{in.reply("⚠️ Subscription Expired\n\nYour subscription has expired. "+
				"Use "+MenuBuy+" or /buy to purchase a new subscription.", menuFor(r))}
		}
		return []Reply{in.reply(fmt.Sprintf("🏢 Welcome to %s\n\nYour subscription is active until: %s\n\nUse the menu below to manage your employees.",
			r.Tenant.Name, formatPlanEnd(r.Tenant)), menuFor(r))}
	case domain.EmployeeRole:
		return []Reply{in.reply(fmt.Sprintf("👋 Welcome %s!\n\nCompany: %s\nEmployee ID: %s\n\nUse the menu below to access your information.",
			r.Employee.FirstName, r.Tenant.Name, r.Employee.Code), menuFor(r))}
	}
	return c.begin(ctx, in, flowRegistration)
}

func (c *Controller) cmdHelp(in *input) []Reply {
	var b strings.Builder
	b.WriteString("ℹ️ Help\n\n/start - open your menu\n/cancel - abort the current step\n")
	switch in.role.(type) {
	case domain.Admin:
		b.WriteString("/genkey <company_id> <1m|6m|lifetime> - grant a subscription\n")
		b.WriteString("/simulate_payment <transaction_id> - complete a pending payment\n")
		b.WriteString("/setprice <1m|6m|lifetime> <amount> - change a plan price\n")
	case domain.Owner:
		b.WriteString("/buy - purchase or renew a subscription\n")
	case domain.Unregistered:
		b.WriteString("Send /start to register your company.\n")
	}
	return []Reply{in.reply(strings.TrimRight(b.String(), "\n"), menuFor(in.role))}
}

const genkeyUsage = "📝 Generate API Key\n\nUsage: /genkey <company_id> <subscription_type>\n\n" +
	"Subscription types:\n• 1m - 1 month\n• 6m - 6 months\n• lifetime - Lifetime access\n\nExample: /genkey 1 lifetime"

func (c *Controller) genkeyHelp(in *input) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, textAdminsOnly)
	}
	return []Reply{in.reply(genkeyUsage+"\n\nUse '"+MenuCompanies+"' to see company IDs.", menuFor(in.role))}
}

func (c *Controller) cmdGenkey(ctx context.Context, in *input, args []string) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, "❌ Access denied. This command is for main admins only.")
	}
	if len(args) < 2 {
		return []Reply{in.reply(genkeyUsage, nil)}
	}
	tenantID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return []Reply{in.reply("❌ Invalid company ID. Please provide a valid number.", nil)}
	}
	plan, err := domain.ParsePlanTag(args[1])
	if err != nil {
		return []Reply{in.reply("❌ Invalid subscription type. Use: 1m, 6m, or lifetime", nil)}
	}

	t, err := c.ledger.Grant(ctx, tenantID, plan, in.CallerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.record(ctx, in, "grant", nil, fmt.Sprintf("tenant=%d plan=%s", tenantID, plan), err)
			return []Reply{in.reply("❌ Company not found.", nil)}
		}
		return c.fail(ctx, in, "grant", err)
	}

	c.notify(ctx, notify.Event{
		Type:       notify.SubscriptionGrant,
		TenantID:   t.ID,
		Recipients: []int64{t.OwnerID},
		Text: fmt.Sprintf("🎉 Subscription Activated!\n\nYour %s subscription has been activated.\n⏰ Expires: %s\n🔑 API Key: %s\n\n"+
			"Thank you for choosing our Employee Management System!", plan.Label(), formatPlanEnd(t), t.Credential),
	})
	return []Reply{in.reply(fmt.Sprintf("✅ API Key Generated Successfully!\n\n🏢 Company: %s\n🆔 Company ID: %d\n📅 Subscription: %s\n⏰ Expires: %s\n🔑 New API Key: %s\n\n"+
		"The company owner has been notified.", t.Name, t.ID, plan.Label(), formatPlanEnd(t), t.Credential), menuFor(in.role))}
}

func (c *Controller) cmdSimulatePayment(ctx context.Context, in *input, args []string) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, "❌ Access denied. This command is for testing by main admins only.")
	}
	if len(args) < 1 {
		return []Reply{in.reply("📝 Simulate Payment\n\nUsage: /simulate_payment <transaction_id>\n\n"+
			"This will mark the payment as completed for testing purposes.", nil)}
	}
	txID := args[0]
	res, err := c.payments.SimulateCompletion(ctx, txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.record(ctx, in, "simulate_payment", nil, "transaction="+txID, err)
			return []Reply{in.reply(fmt.Sprintf("❌ Transaction %s not found.", txID), nil)}
		}
		return c.fail(ctx, in, "simulate_payment", err)
	}
	if res.AlreadyCompleted {
		return []Reply{in.reply(fmt.Sprintf("ℹ️ Payment %s was already completed. Nothing changed.", txID), nil)}
	}
	c.record(ctx, in, "simulate_payment", res.Tenant, "transaction="+txID, nil)
	return []Reply{in.reply(fmt.Sprintf("✅ Payment Simulated\n\n🆔 Transaction: %s\n🏢 Company: %s\n📅 Subscription: %s\n⏰ Expires: %s\n\n"+
		"The company owner has been notified.", txID, res.Tenant.Name, res.Payment.Plan.Label(), formatPlanEnd(res.Tenant)), menuFor(in.role))}
}

func (c *Controller) cmdSetPrice(ctx context.Context, in *input, args []string) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, "❌ Access denied. This command is for main admins only.")
	}
	if len(args) < 2 {
		return []Reply{in.reply("📝 Set Price\n\nUsage: /setprice <1m|6m|lifetime> <amount>\n\nExample: /setprice 6m 149.99", nil)}
	}
	plan, err := domain.ParsePlanTag(args[0])
	if err != nil {
		return []Reply{in.reply("❌ Invalid subscription type. Use: 1m, 6m, or lifetime", nil)}
	}
	price, err := c.admin.SetPrice(ctx, plan, args[1])
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return []Reply{in.reply(fmt.Sprintf("❌ Price must be a positive number below %s.", domain.MaxPrice.String()), nil)}
		}
		return c.fail(ctx, in, "setprice", err)
	}
	c.record(ctx, in, "setprice", nil, fmt.Sprintf("plan=%s price=%s", plan, price.StringFixed(2)), nil)
	return []Reply{in.reply(fmt.Sprintf("✅ %s price set to %s.", plan.Label(), price.StringFixed(2)), menuFor(in.role))}
}

func (c *Controller) listEmployees(ctx context.Context, in *input) []Reply {
	if denial := c.gateActiveOwner(in); denial != "" {
		return c.deny(in, denial)
	}
	t := tenantOf(in)
	list, err := c.employees.ListActive(ctx, t.ID)
	if err != nil {
		return c.fail(ctx, in, "view_employees", err)
	}
	c.record(ctx, in, "view_employees", t, fmt.Sprintf("Viewed %d employees", len(list)), nil)
	if len(list) == 0 {
		return []Reply{in.reply("👥 No Employees Found\n\nYou haven't added any employees yet. Use '"+MenuAddEmployee+"' to get started.", menuFor(in.role))}
	}
	return c.chunked(in, formatEmployeeList(list))
}

func (c *Controller) exportEmployees(ctx context.Context, in *input) []Reply {
	if denial := c.gateActiveOwner(in); denial != "" {
		return c.deny(in, denial)
	}
	t := tenantOf(in)
	list, err := c.employees.ListActive(ctx, t.ID)
	if err != nil {
		return c.fail(ctx, in, "export_employees", err)
	}
	data, err := export.EmployeeRoster(list)
	if err != nil {
		return c.fail(ctx, in, "export_employees", err)
	}
	c.record(ctx, in, "export_employees", t, fmt.Sprintf("Exported %d employees", len(list)), nil)
	r := in.reply(fmt.Sprintf("📤 Employee roster of %s (%d employees)", t.Name, len(list)), menuFor(in.role))
	r.Document = &Document{Name: export.RosterFilename(t), Data: data}
	return []Reply{r}
}

func (c *Controller) myProfile(ctx context.Context, in *input) []Reply {
	r, ok := in.role.(domain.EmployeeRole)
	if !ok {
		return c.deny(in, textEmployeesOnly)
	}
	c.record(ctx, in, "view_profile", r.Tenant, "Viewed own profile", nil)
	return []Reply{in.reply("👤 Your Profile\n\n"+formatEmployee(r.Employee), menuFor(r))}
}

func (c *Controller) systemStats(ctx context.Context, in *input) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, textAdminsOnly)
	}
	stats, err := c.admin.Stats(ctx)
	if err != nil {
		return c.fail(ctx, in, "stats", err)
	}
	c.record(ctx, in, "stats", nil, "", nil)
	return []Reply{in.reply(formatStats(stats), menuFor(in.role))}
}

func (c *Controller) settings(ctx context.Context, in *input) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, textAdminsOnly)
	}
	view, err := c.admin.Settings(ctx)
	if err != nil {
		return c.fail(ctx, in, "settings", err)
	}
	return []Reply{in.reply(formatSettings(view), menuFor(in.role))}
}

func (c *Controller) allCompanies(ctx context.Context, in *input) []Reply {
	if _, ok := in.role.(domain.Admin); !ok {
		return c.deny(in, textAdminsOnly)
	}
	list, err := c.admin.Companies(ctx)
	if err != nil {
		return c.fail(ctx, in, "companies", err)
	}
	c.record(ctx, in, "companies", nil, fmt.Sprintf("Listed %d companies", len(list)), nil)
	if len(list) == 0 {
		return []Reply{in.reply("📊 No Companies Found\n\nNo companies have registered yet.", menuFor(in.role))}
	}
	c.logger.Debug("Listing companies", zap.Int("count", len(list)))
	return c.chunked(in, formatCompanies(list, c.ledger.Now()))
}

// chunked splits long text over several replies; the keyboard rides on the last one.
func (c *Controller) chunked(in *input, text string) []Reply {
	parts := splitMessage(text, maxMessageLen)
	out := make([]Reply, 0, len(parts))
	for i, p := range parts {
		var kb [][]string
		if i == len(parts)-1 {
			kb = menuFor(in.role)
		}
		out = append(out, in.reply(p, kb))
	}
	return out
}
