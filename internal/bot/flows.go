package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/notify"
	"github.com/mehedi-exx/Hr/internal/service"
)

// Flow names
const (
	flowRegistration   = "registration"
	flowPurchase       = "purchase"
	flowAddEmployee    = "add_employee"
	flowEditEmployee   = "edit_employee"
	flowViewEmployee   = "view_employee"
	flowRemoveEmployee = "remove_employee"
	flowSupport        = "support"
)

// step one (prompt, validator, buffer key) entry of a flow. Optional steps accept SkipToken.
type step struct {
	key      string
	optional bool
	keyboard [][]string
	prompt   func(ctx context.Context, in *input, s *Session) string
	validate func(ctx context.Context, in *input, s *Session, raw string) (string, error)
}

type flow struct {
	name   string
	gate   func(in *input) string // denial text, empty when allowed
	steps  []step
	finish func(ctx context.Context, in *input, s *Session) ([]Reply, error)
}

func static(text string) func(context.Context, *input, *Session) string {
	return func(context.Context, *input, *Session) string { return text }
}

func (c *Controller) buildFlows() map[string]*flow {
	flows := []*flow{
		{
			name: flowRegistration,
			gate: gateUnregistered,
			steps: []step{
				{
					key:      "company_name",
					keyboard: cancelKeyboard,
					prompt:   static("👋 Welcome to Employee Management System!\n\nTo get started, please enter your company name:"),
					validate: validateCompanyName,
				},
				{
					key:      "plan",
					keyboard: planKeyboard,
					prompt: func(ctx context.Context, _ *input, s *Session) string {
						return fmt.Sprintf("🏢 Company: %s\n\nPlease select your subscription type:\n%s",
							s.Data["company_name"], formatPricing(c.ledger.Pricing(ctx)))
					},
					validate: validatePlan,
				},
			},
			finish: c.finishRegistration,
		},
		{
			name: flowPurchase,
			gate: gateOwner,
			steps: []step{
				{
					key:      "plan",
					keyboard: planKeyboard,
					prompt:   c.purchasePrompt,
					validate: validatePlan,
				},
			},
			finish: c.finishPurchase,
		},
		{
			name: flowAddEmployee,
			gate: c.gateActiveOwner,
			steps: []step{
				{
					key:      "code",
					keyboard: cancelKeyboard,
					prompt:   static("➕ Add New Employee\n\nPlease enter the employee ID (must be unique within your company):"),
					validate: c.validateNewCode,
				},
				{
					key:      "first_name",
					keyboard: cancelKeyboard,
					prompt:   static("👤 Please enter the employee's first name:"),
					validate: validateText("First name", domain.MaxTextLen),
				},
				optionalText("last_name", "👤 Please enter the employee's last name (or type 'skip' to skip):", "Last name"),
				optionalText("designation", "💼 Please enter the employee's designation (or type 'skip' to skip):", "Designation"),
				optionalText("phone", "📞 Please enter the employee's phone number (or type 'skip' to skip):", "Phone"),
				{
					key:      "email",
					optional: true,
					keyboard: skipKeyboard,
					prompt:   static("📧 Please enter the employee's email (or type 'skip' to skip):"),
					validate: validateEmail(SkipToken),
				},
				{
					key:      "joining_date",
					optional: true,
					keyboard: skipKeyboard,
					prompt:   static("📅 Please enter the joining date (YYYY-MM-DD format, or type 'skip' to skip):"),
					validate: validateDate(SkipToken),
				},
				{
					key:      "salary",
					optional: true,
					keyboard: skipKeyboard,
					prompt:   static("💰 Please enter the employee's salary (numbers only, or type 'skip' to skip):"),
					validate: validateSalary(SkipToken),
				},
				optionalText("department", "🏢 Please enter the employee's department (or type 'skip' to skip):", "Department"),
			},
			finish: c.finishAddEmployee,
		},
		{
			name: flowEditEmployee,
			gate: c.gateActiveOwner,
			steps: []step{
				{
					key:      "code",
					keyboard: cancelKeyboard,
					prompt:   static("✏️ Edit Employee\n\nPlease enter the employee ID you want to edit:"),
					validate: c.validateExistingCode,
				},
				{
					key:      "field",
					keyboard: fieldKeyboard(),
					prompt:   c.fieldPrompt,
					validate: validateField,
				},
				{
					key:      "value",
					keyboard: cancelKeyboard,
					prompt:   valuePrompt,
					validate: validateFieldValue,
				},
			},
			finish: c.finishEditEmployee,
		},
		{
			name: flowViewEmployee,
			gate: c.gateActiveOwner,
			steps: []step{
				{
					key:      "code",
					keyboard: cancelKeyboard,
					prompt:   static("👤 View Employee\n\nPlease enter the employee ID you want to view:"),
					validate: c.validateExistingCode,
				},
			},
			finish: c.finishViewEmployee,
		},
		{
			name: flowRemoveEmployee,
			gate: c.gateActiveOwner,
			steps: []step{
				{
					key:      "code",
					keyboard: cancelKeyboard,
					prompt:   static("🗑 Remove Employee\n\nPlease enter the employee ID you want to remove:"),
					validate: c.validateExistingCode,
				},
				{
					key:      "confirm",
					keyboard: confirmKeyboard,
					prompt: func(_ context.Context, _ *input, s *Session) string {
						return fmt.Sprintf("⚠️ Remove employee %s? The record is kept and marked terminated.\n\nReply yes to confirm or no to keep it.", s.Data["code"])
					},
					validate: validateConfirm,
				},
			},
			finish: c.finishRemoveEmployee,
		},
		{
			name: flowSupport,
			gate: gateMember,
			steps: []step{
				{
					key:      "message",
					keyboard: cancelKeyboard,
					prompt:   static("🆘 Support\n\nPlease describe your issue or question. Your message will be sent to the admin:"),
					validate: validateSupportMessage,
				},
			},
			finish: c.finishSupport,
		},
	}

	out := make(map[string]*flow, len(flows))
	for _, f := range flows {
		out[f.name] = f
	}
	return out
}

// gates

func gateUnregistered(in *input) string {
	if _, ok := in.role.(domain.Unregistered); ok {
		return ""
	}
	return "❌ You are already registered. Use /start to open your menu."
}

func gateOwner(in *input) string {
	switch in.role.(type) {
	case domain.Owner:
		return ""
	case domain.Admin:
		return "❌ Main admins don't need subscriptions! 😄"
	case domain.EmployeeRole:
		return "❌ Employees cannot purchase subscriptions. Please contact your company admin."
	}
	return textRegisterFirst
}

func (c *Controller) gateActiveOwner(in *input) string {
	o, ok := in.role.(domain.Owner)
	if !ok {
		return textOwnersOnly
	}
	if !c.ledger.IsActive(o.Tenant) {
		return textExpired
	}
	return ""
}

func gateMember(in *input) string {
	switch in.role.(type) {
	case domain.Owner, domain.EmployeeRole:
		return ""
	case domain.Admin:
		return "❌ Main admins don't need to use support. You ARE the support! 😄"
	}
	return textRegisterFirst
}

// tenantOf the caller's tenant; gates guarantee one for owner flows.
func tenantOf(in *input) *domain.Tenant {
	return domain.TenantOf(in.role)
}

// validators

func validateCompanyName(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len([]rune(name)) < 2 {
		return "", invalid("Company name must be at least 2 characters long. Please try again:")
	}
	if domain.CheckLength("Company name", name, domain.MaxTextLen) != nil {
		return "", invalid("Company name must be at most %d characters long. Please try again:", domain.MaxTextLen)
	}
	return name, nil
}

func validatePlan(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
	plan, err := domain.ParsePlanTag(raw)
	if err != nil {
		return "", invalid("❌ Unknown plan. Please choose 1 Month, 6 Months or Lifetime:")
	}
	return string(plan), nil
}

func validateText(label string, max int) func(context.Context, *input, *Session, string) (string, error) {
	return func(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
		v := strings.TrimSpace(raw)
		if v == "" {
			return "", invalid("%s cannot be empty. Please try again:", label)
		}
		if domain.CheckLength(label, v, max) != nil {
			return "", invalid("%s must be at most %d characters. Please try again:", label, max)
		}
		return v, nil
	}
}

func optionalText(key, prompt, label string) step {
	return step{
		key:      key,
		optional: true,
		keyboard: skipKeyboard,
		prompt:   static(prompt),
		validate: validateText(label, domain.EmployeeField(key).MaxLen()),
	}
}

// escape is the word that leaves the field absent: skip while adding, clear while editing.
func validateEmail(escape string) func(context.Context, *input, *Session, string) (string, error) {
	return func(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
		v, err := domain.ParseEmail(raw)
		if err != nil {
			if utf8.RuneCountInString(strings.TrimSpace(raw)) > domain.MaxTextLen {
				return "", invalid("❌ Email must be at most %d characters. Please try again or type '%s':", domain.MaxTextLen, escape)
			}
			return "", invalid("❌ Invalid email address. Please enter an address like name@example.com or type '%s':", escape)
		}
		return v, nil
	}
}

func validateDate(escape string) func(context.Context, *input, *Session, string) (string, error) {
	return func(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
		d, err := domain.ParseDate(raw)
		if err != nil {
			return "", invalid("❌ Invalid date format. Please use YYYY-MM-DD format (e.g., 2024-01-15) or type '%s':", escape)
		}
		return d.Format(domain.DateLayout), nil
	}
}

func validateSalary(escape string) func(context.Context, *input, *Session, string) (string, error) {
	return func(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
		amt, err := domain.ParseSalary(raw)
		if err != nil {
			if errors.Is(err, domain.ErrSalaryRange) {
				return "", invalid("❌ Salary must be below %s. Please enter a smaller amount or type '%s':", domain.MaxSalary.String(), escape)
			}
			if d, perr := decimal.NewFromString(strings.TrimSpace(raw)); perr == nil && d.IsNegative() {
				return "", invalid("❌ Salary cannot be negative. Please enter a valid amount or type '%s':", escape)
			}
			return "", invalid("❌ Invalid salary format. Please enter numbers only or type '%s':", escape)
		}
		return amt.StringFixed(2), nil
	}
}

func (c *Controller) validateNewCode(ctx context.Context, in *input, _ *Session, raw string) (string, error) {
	code := service.NormalizeCode(raw)
	if code == "" {
		return "", invalid("Employee ID cannot be empty. Please try again:")
	}
	if domain.CheckLength("Employee ID", code, domain.MaxCodeLen) != nil {
		return "", invalid("❌ Employee ID must be at most %d characters. Please choose a shorter ID:", domain.MaxCodeLen)
	}
	exists, err := c.employees.Exists(ctx, tenantOf(in).ID, code)
	if err != nil {
		return "", err
	}
	if exists {
		return "", conflict("❌ Employee ID '%s' already exists. Please choose a different ID:", code)
	}
	return code, nil
}

func (c *Controller) validateExistingCode(ctx context.Context, in *input, _ *Session, raw string) (string, error) {
	code := service.NormalizeCode(raw)
	exists, err := c.employees.Exists(ctx, tenantOf(in).ID, code)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", invalid("❌ Employee with ID '%s' not found. Please check the ID and try again:", code)
	}
	return code, nil
}

func validateField(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
	f, err := domain.ParseEmployeeField(raw)
	if err != nil {
		return "", invalid("❌ Unknown field. Please choose a number between 1 and %d:", len(domain.EditableFields))
	}
	return string(f), nil
}

func validateFieldValue(ctx context.Context, in *input, s *Session, raw string) (string, error) {
	field := domain.EmployeeField(s.Data["field"])
	switch field {
	case domain.FieldEmail, domain.FieldJoinDate, domain.FieldSalary:
		if strings.EqualFold(strings.TrimSpace(raw), domain.ClearToken) {
			return domain.ClearToken, nil
		}
	}
	switch field {
	case domain.FieldEmail:
		return validateEmail(domain.ClearToken)(ctx, in, s, raw)
	case domain.FieldJoinDate:
		return validateDate(domain.ClearToken)(ctx, in, s, raw)
	case domain.FieldSalary:
		return validateSalary(domain.ClearToken)(ctx, in, s, raw)
	}
	if _, err := domain.ParseFieldUpdate(field, raw); err != nil {
		v := strings.TrimSpace(raw)
		if v != "" && !strings.EqualFold(v, domain.ClearToken) {
			return "", invalid("❌ %s must be at most %d characters. Please enter a shorter value:", field.Label(), field.MaxLen())
		}
		if field == domain.FieldFirstName {
			return "", invalid("❌ First name cannot be empty or cleared. Please enter a name:")
		}
		return "", invalid("❌ %s cannot be empty. Please enter a value or type '%s' to remove it:", field.Label(), domain.ClearToken)
	}
	return strings.TrimSpace(raw), nil
}

func validateConfirm(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y":
		return "yes", nil
	case "no", "n":
		return "no", nil
	}
	return "", invalid("Please answer yes or no:")
}

func validateSupportMessage(_ context.Context, _ *input, _ *Session, raw string) (string, error) {
	msg := strings.TrimSpace(raw)
	if len([]rune(msg)) < service.MinSupportMessage {
		return "", invalid("Please provide a more detailed message (at least %d characters):", service.MinSupportMessage)
	}
	return msg, nil
}

// prompts

func (c *Controller) purchasePrompt(ctx context.Context, in *input, _ *Session) string {
	var b strings.Builder
	b.WriteString("💳 Subscription Pricing\n\n")
	b.WriteString(formatPricing(c.ledger.Pricing(ctx)))
	if t := tenantOf(in); t != nil {
		current := strings.ToUpper(string(t.Plan))
		switch {
		case !c.ledger.IsActive(t):
			fmt.Fprintf(&b, "\n\n⚠️ Current Plan: %s (Expired)", current)
		case t.PlanEnd == nil:
			fmt.Fprintf(&b, "\n\n✅ Current Plan: %s (Active Forever)", current)
		default:
			fmt.Fprintf(&b, "\n\n✅ Current Plan: %s (Expires: %s)", current, formatPlanEnd(t))
		}
	}
	b.WriteString("\n\nSelect a plan to renew or upgrade:")
	return b.String()
}

func fieldKeyboard() [][]string {
	var rows [][]string
	for i := 0; i < len(domain.EditableFields); i += 2 {
		row := []string{domain.EditableFields[i].Label()}
		if i+1 < len(domain.EditableFields) {
			row = append(row, domain.EditableFields[i+1].Label())
		}
		rows = append(rows, row)
	}
	return append(rows, []string{MenuCancel})
}

func (c *Controller) fieldPrompt(ctx context.Context, in *input, s *Session) string {
	var b strings.Builder
	e, err := c.employees.Get(ctx, tenantOf(in).ID, s.Data["code"])
	if err != nil {
		c.logger.Warn("Failed to load employee for edit prompt", zap.String("employee_code", s.Data["code"]), zap.Error(err))
	} else {
		b.WriteString(formatEmployee(e))
		b.WriteString("\n\n")
	}
	b.WriteString("Select the field you want to edit:\n")
	for i, f := range domain.EditableFields {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.Label())
	}
	return strings.TrimRight(b.String(), "\n")
}

func valuePrompt(_ context.Context, _ *input, s *Session) string {
	field := domain.EmployeeField(s.Data["field"])
	label := field.Label()
	if field == domain.FieldJoinDate {
		label += " (YYYY-MM-DD)"
	}
	if field == domain.FieldFirstName {
		return fmt.Sprintf("✏️ Edit %s\n\nPlease enter the new value:", label)
	}
	return fmt.Sprintf("✏️ Edit %s\n\nPlease enter the new value, or type '%s' to remove it:", label, domain.ClearToken)
}

// terminal actions

func (c *Controller) finishRegistration(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	plan := domain.PlanTag(s.Data["plan"])
	t, err := c.ledger.Register(ctx, service.RegisterRequest{
		CompanyName:    s.Data["company_name"],
		Plan:           plan,
		OwnerID:        in.CallerID,
		OwnerUsername:  in.Username,
		OwnerFirstName: in.FirstName,
		OwnerLastName:  in.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			c.record(ctx, in, "register", nil, "owner already registered", err)
			return []Reply{in.reply("❌ Registration Failed\n\nYou already own a registered company. Use /start to open it.", nil)}, nil
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidPlan):
			c.record(ctx, in, "register", nil, "", err)
			return []Reply{in.reply("❌ Registration Failed\n\nPlease check the company name and plan, then try again with /start.", nil)}, nil
		}
		return nil, err
	}

	owner := domain.Owner{Tenant: t}
	c.notify(ctx, notify.Event{
		Type:       notify.TenantRegistered,
		TenantID:   t.ID,
		Recipients: c.directory.AdminIDs(),
		Text: fmt.Sprintf("🆕 New Company Registration\n\n🏢 Company: %s\n👤 Owner: %s (@%s)\n📅 Subscription: %s\n🆔 Company Code: %s\n🆔 Company ID: %d",
			t.Name, orNA(strings.TrimSpace(in.FirstName+" "+in.LastName)), orNA(in.Username), plan.Label(), t.Code, t.ID),
		Data: map[string]any{"company_code": t.Code, "plan": string(plan)},
	})
	text := fmt.Sprintf("✅ Registration Successful!\n\n🏢 Company: %s\n🆔 Company Code: %s\n📅 Subscription: %s\n⏰ Expires: %s\n🔑 API Key: %s\n\n"+
		"Keep the API key private. Use the menu below to manage your employees.",
		t.Name, t.Code, plan.Label(), formatPlanEnd(t), t.Credential)
	return []Reply{in.reply(text, menuFor(owner))}, nil
}

func (c *Controller) finishPurchase(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	inv, err := c.payments.Initiate(ctx, t.ID, domain.PlanTag(s.Data["plan"]))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPlan) {
			c.record(ctx, in, "buy", t, s.Data["plan"], err)
			return []Reply{in.reply("❌ Payment Error\n\nThis plan is not available right now. Please contact support.", menuFor(in.role))}, nil
		}
		return nil, err
	}
	c.record(ctx, in, "buy", t, fmt.Sprintf("plan=%s transaction=%s", inv.Plan, inv.TransactionID), nil)
	return []Reply{in.reply(formatInvoice(inv), menuFor(in.role))}, nil
}

func (c *Controller) finishAddEmployee(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	e, err := employeeFromSession(t.ID, s)
	if err != nil {
		return nil, err
	}
	if err := c.employees.Add(ctx, e); err != nil {
		var text string
		switch {
		case errors.Is(err, domain.ErrConflict):
			text = fmt.Sprintf("❌ Failed to add employee\n\nEmployee ID '%s' already exists.", e.Code)
		case errors.Is(err, service.ErrEmployeeLimit):
			text = "❌ Failed to add employee\n\nYour company has reached its employee limit."
		case errors.Is(err, domain.ErrValidation):
			text = "❌ Failed to add employee\n\nPlease check the details and try again."
		default:
			return nil, err
		}
		c.record(ctx, in, "add_employee", t, "Failed to add employee: "+e.Code, err)
		return []Reply{in.reply(text, menuFor(in.role))}, nil
	}
	c.record(ctx, in, "add_employee", t, fmt.Sprintf("Added employee: %s - %s", e.Code, e.FirstName), nil)
	return []Reply{in.reply("✅ Employee Added Successfully!\n\n"+formatEmployee(e), menuFor(in.role))}, nil
}

// employeeFromSession builds the record from validated buffer values.
func employeeFromSession(tenantID int64, s *Session) (*domain.Employee, error) {
	e := &domain.Employee{
		TenantID:    tenantID,
		Code:        s.Data["code"],
		FirstName:   s.Data["first_name"],
		LastName:    s.Data["last_name"],
		Designation: s.Data["designation"],
		Phone:       s.Data["phone"],
		Email:       s.Data["email"],
		Department:  s.Data["department"],
	}
	if v, ok := s.Data["joining_date"]; ok {
		d, err := domain.ParseDate(v)
		if err != nil {
			return nil, err
		}
		e.JoinDate = &d
	}
	if v, ok := s.Data["salary"]; ok {
		amt, err := domain.ParseSalary(v)
		if err != nil {
			return nil, err
		}
		e.Salary = decimal.NewNullDecimal(amt)
	}
	return e, nil
}

func (c *Controller) finishEditEmployee(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	code := s.Data["code"]
	field := domain.EmployeeField(s.Data["field"])
	u, err := domain.ParseFieldUpdate(field, s.Data["value"])
	if err != nil {
		return nil, err
	}
	if err := c.employees.Update(ctx, t.ID, code, u); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.record(ctx, in, "edit_employee", t, fmt.Sprintf("Failed to update %s for employee %s", field, code), err)
			return []Reply{in.reply(fmt.Sprintf("❌ Employee with ID '%s' no longer exists.", code), menuFor(in.role))}, nil
		}
		return nil, err
	}
	c.record(ctx, in, "edit_employee", t, fmt.Sprintf("Updated %s for employee %s", field, code), nil)

	e, err := c.employees.Get(ctx, t.ID, code)
	if err != nil {
		return nil, err
	}
	return []Reply{in.reply("✅ Employee Updated Successfully!\n\n"+formatEmployee(e), menuFor(in.role))}, nil
}

func (c *Controller) finishViewEmployee(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	code := s.Data["code"]
	e, err := c.employees.Get(ctx, t.ID, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []Reply{in.reply(fmt.Sprintf("❌ Employee with ID '%s' not found.", code), menuFor(in.role))}, nil
		}
		return nil, err
	}
	c.record(ctx, in, "view_employee", t, "Viewed employee "+code, nil)
	return []Reply{in.reply(formatEmployee(e), menuFor(in.role))}, nil
}

func (c *Controller) finishRemoveEmployee(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	code := s.Data["code"]
	if s.Data["confirm"] != "yes" {
		return []Reply{in.reply("Removal cancelled. The employee was kept.", menuFor(in.role))}, nil
	}
	if err := c.employees.SoftDelete(ctx, t.ID, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.record(ctx, in, "remove_employee", t, "Failed to remove employee "+code, err)
			return []Reply{in.reply(fmt.Sprintf("❌ Employee with ID '%s' not found.", code), menuFor(in.role))}, nil
		}
		return nil, err
	}
	c.record(ctx, in, "remove_employee", t, "Terminated employee "+code, nil)
	return []Reply{in.reply(fmt.Sprintf("✅ Employee %s removed.", code), menuFor(in.role))}, nil
}

func (c *Controller) finishSupport(ctx context.Context, in *input, s *Session) ([]Reply, error) {
	t := tenantOf(in)
	m := &domain.SupportMessage{
		CallerID: in.CallerID,
		Username: in.Username,
		Message:  s.Data["message"],
	}
	if t != nil {
		id := t.ID
		m.TenantID = &id
	}
	if err := c.support.Submit(ctx, m); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return []Reply{in.reply("❌ Failed to send support message. Please try again with a longer message.", menuFor(in.role))}, nil
		}
		return nil, err
	}
	c.record(ctx, in, "support", t, fmt.Sprintf("support message %d", m.ID), nil)

	var b strings.Builder
	b.WriteString("🆘 New Support Message\n\n")
	fmt.Fprintf(&b, "👤 From: %s (@%s)\n", orNA(strings.TrimSpace(in.FirstName+" "+in.LastName)), orNA(in.Username))
	fmt.Fprintf(&b, "🆔 User ID: %d\n", in.CallerID)
	fmt.Fprintf(&b, "👥 Role: %s\n", in.roleName())
	if t != nil {
		fmt.Fprintf(&b, "🏢 Company: %s\n", t.Name)
	}
	fmt.Fprintf(&b, "\n💬 Message:\n%s", m.Message)
	var tenantID int64
	if t != nil {
		tenantID = t.ID
	}
	c.notify(ctx, notify.Event{
		Type:       notify.SupportMessage,
		TenantID:   tenantID,
		Recipients: c.directory.AdminIDs(),
		Text:       b.String(),
		Data:       map[string]any{"message_id": m.ID, "caller_id": in.CallerID},
	})
	return []Reply{in.reply("✅ Support message sent!\n\nYour message has been forwarded to the admin. You will receive a response soon.", menuFor(in.role))}, nil
}
