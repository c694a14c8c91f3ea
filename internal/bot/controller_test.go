package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/notify"
	"github.com/mehedi-exx/Hr/internal/repository"
	"github.com/mehedi-exx/Hr/internal/service"
	"github.com/mehedi-exx/Hr/internal/store"
)

const (
	adminID = int64(1)
	ownerID = int64(42)
)

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) types() []string {
	out := []string{}
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	c        *Controller
	repos    *repository.Repositories
	audit    *repository.MemoryAuditRepo
	ledger   *service.Ledger
	sessions *SessionStore
	notes    *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, repository.NewMemoryRepositories())
}

func newHarnessWith(t *testing.T, repos *repository.Repositories) *harness {
	t.Helper()
	logger := zap.NewNop()
	auditRepo := repos.Audit.(*repository.MemoryAuditRepo)
	auditor := service.NewAuditor(auditRepo, logger)
	ledger := service.NewLedger(repos.Tenants, repos.Settings, auditor, service.DefaultPricing("USD"), logger)
	dir := service.NewDirectory(repos.Tenants, repos.Employees, []int64{adminID}, logger)
	notes := &recordingNotifier{}

	seq := 0
	gw := service.NewMockGateway("").WithIDs(func() string {
		seq++
		return fmt.Sprintf("tx-%04d", seq)
	})
	payments := service.NewPayments(repos.Payments, repos.Tenants, ledger, gw, dir, notes, "secret", logger)
	sessions := NewSessionStore(store.NewMemoryKV(), time.Minute)

	c := NewController(Deps{
		Directory: dir,
		Ledger:    ledger,
		Employees: service.NewEmployees(repos.Employees, repos.Settings, logger),
		Payments:  payments,
		Admin:     service.NewAdmin(repos.Stats, repos.Tenants, repos.Settings, ledger),
		Support:   service.NewSupport(auditRepo, logger),
		Auditor:   auditor,
		Notifier:  notes,
		Sessions:  sessions,
		Logger:    logger,
	})
	return &harness{c: c, repos: repos, audit: auditRepo, ledger: ledger, sessions: sessions, notes: notes}
}

func (h *harness) send(t *testing.T, caller int64, text string) []Reply {
	t.Helper()
	replies := h.c.Handle(context.Background(), Event{CallerID: caller, Username: "user", FirstName: "Test", Text: text})
	require.NotEmpty(t, replies, "every event gets an answer")
	return replies
}

func (h *harness) say(t *testing.T, caller int64, text string) string {
	t.Helper()
	replies := h.send(t, caller, text)
	return replies[len(replies)-1].Text
}

func (h *harness) session(t *testing.T, caller int64) *Session {
	t.Helper()
	s, err := h.sessions.Load(context.Background(), caller)
	require.NoError(t, err)
	return s
}

func (h *harness) registerOwner(t *testing.T, caller int64, plan domain.PlanTag) *domain.Tenant {
	t.Helper()
	tenant, err := h.ledger.Register(context.Background(), service.RegisterRequest{CompanyName: "Acme", Plan: plan, OwnerID: caller})
	require.NoError(t, err)
	return tenant
}

func (h *harness) commands() []string {
	out := []string{}
	for _, e := range h.audit.Entries() {
		out = append(out, e.Command)
	}
	return out
}

func TestRegistrationScenario(t *testing.T) {
	h := newHarness(t)
	before := time.Now()

	assert.Contains(t, h.say(t, 500, "/start"), "enter your company name")
	require.NotNil(t, h.session(t, 500))

	assert.Contains(t, h.say(t, 500, "A"), "at least 2 characters")
	assert.Contains(t, h.say(t, 500, "Acme"), "select your subscription type")
	assert.Contains(t, h.say(t, 500, "forever and ever"), "Unknown plan")

	replies := h.send(t, 500, "6-month")
	assert.Contains(t, replies[0].Text, "Registration Successful")
	assert.Equal(t, menuFor(domain.Owner{}), replies[0].Keyboard)
	assert.Nil(t, h.session(t, 500))

	tenant, err := h.repos.Tenants.GetActiveTenantByOwner(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, domain.PlanSixMonths, tenant.Plan)
	require.NotNil(t, tenant.PlanEnd)
	assert.WithinDuration(t, before.Add(180*24*time.Hour), *tenant.PlanEnd, 5*time.Second)
	assert.Len(t, tenant.Credential, 43)
	assert.Contains(t, replies[0].Text, tenant.Credential)

	assert.Contains(t, h.commands(), "register")
	require.Len(t, h.notes.events, 1)
	assert.Equal(t, notify.TenantRegistered, h.notes.events[0].Type)
	assert.Equal(t, []int64{adminID}, h.notes.events[0].Recipients)

	// the caller is an owner now; registration is closed to them
	assert.Contains(t, h.say(t, 500, "/start"), "Welcome to Acme")
}

func TestAddEmployeeFlow_Determinism(t *testing.T) {
	h := newHarness(t)
	tenant := h.registerOwner(t, ownerID, domain.PlanOneMonth)

	assert.Contains(t, h.say(t, ownerID, MenuAddEmployee), "employee ID")
	for _, in := range []string{"E100", "Ann", "skip", "Engineer", "skip", "skip", "skip", "skip"} {
		h.send(t, ownerID, in)
	}
	assert.Contains(t, h.say(t, ownerID, "Eng"), "Employee Added Successfully")
	assert.Nil(t, h.session(t, ownerID))

	all := h.repos.Employees.(*repository.MemoryEmployeesRepo).All()
	require.Len(t, all, 1)
	e := all[0]
	assert.Equal(t, tenant.ID, e.TenantID)
	assert.Equal(t, "E100", e.Code)
	assert.Equal(t, "Ann", e.FirstName)
	assert.Empty(t, e.LastName)
	assert.Equal(t, "Engineer", e.Designation)
	assert.Equal(t, "Eng", e.Department)
	assert.Empty(t, e.Phone)
	assert.Empty(t, e.Email)
	assert.Nil(t, e.JoinDate)
	assert.False(t, e.Salary.Valid)
	assert.Equal(t, domain.EmployeeActive, e.Status)
	assert.Contains(t, h.commands(), "add_employee")
}

func TestAddEmployeeFlow_InvalidInputReprompts(t *testing.T) {
	h := newHarness(t)
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)

	h.send(t, ownerID, MenuAddEmployee)
	for _, in := range []string{"E1", "Ann", "skip", "skip", "skip", "skip"} {
		h.send(t, ownerID, in)
	}
	before := h.session(t, ownerID)
	require.Equal(t, 6, before.Step)

	assert.Contains(t, h.say(t, ownerID, "2024-13-40"), "Invalid date format")
	after := h.session(t, ownerID)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Data, after.Data)
	assert.NotContains(t, after.Data, "joining_date")

	h.send(t, ownerID, "2024-01-15")
	assert.Equal(t, "2024-01-15", h.session(t, ownerID).Data["joining_date"])

	assert.Contains(t, h.say(t, ownerID, "-5"), "cannot be negative")
	s := h.session(t, ownerID)
	assert.Equal(t, 7, s.Step)
	assert.NotContains(t, s.Data, "salary")

	assert.Contains(t, h.say(t, ownerID, "lots"), "Invalid salary format")
	h.send(t, ownerID, "1200.5")
	assert.Equal(t, "1200.50", h.session(t, ownerID).Data["salary"])
	h.send(t, ownerID, "skip")

	e, err := h.repos.Employees.GetEmployee(context.Background(), tenant.ID, "E1")
	require.NoError(t, err)
	require.NotNil(t, e.JoinDate)
	assert.Equal(t, "2024-01-15", e.JoinDate.Format(domain.DateLayout))
	assert.True(t, e.Salary.Decimal.Equal(decimal.RequireFromString("1200.5")))
}

func TestAddEmployeeFlow_DuplicateCodeStaysOnStep(t *testing.T) {
	h := newHarness(t)
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)
	require.NoError(t, h.repos.Employees.CreateEmployee(context.Background(), &domain.Employee{TenantID: tenant.ID, Code: "E100", FirstName: "Old"}))

	h.send(t, ownerID, MenuAddEmployee)
	assert.Contains(t, h.say(t, ownerID, "E100"), "already exists")
	s := h.session(t, ownerID)
	assert.Equal(t, 0, s.Step)
	assert.Empty(t, s.Data)

	assert.Contains(t, h.say(t, ownerID, "E101"), "first name")
}

func TestAddEmployeeFlow_OversizedInputStaysOnStep(t *testing.T) {
	h := newHarness(t)
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)

	h.send(t, ownerID, MenuAddEmployee)
	assert.Contains(t, h.say(t, ownerID, strings.Repeat("E", domain.MaxCodeLen+1)), "at most 64 characters")
	assert.Equal(t, 0, h.session(t, ownerID).Step)

	for _, in := range []string{"E1", "Ann", "skip", "skip"} {
		h.send(t, ownerID, in)
	}
	assert.Contains(t, h.say(t, ownerID, strings.Repeat("9", domain.MaxPhoneLen+1)), "Phone must be at most 64")
	s := h.session(t, ownerID)
	assert.Equal(t, 4, s.Step)
	assert.NotContains(t, s.Data, "phone")

	for _, in := range []string{"555-0100", "skip", "skip"} {
		h.send(t, ownerID, in)
	}
	before := h.session(t, ownerID)
	require.Equal(t, 7, before.Step)
	assert.Contains(t, h.say(t, ownerID, "99999999999"), "Salary must be below")
	after := h.session(t, ownerID)
	assert.Equal(t, before.Step, after.Step)
	assert.Equal(t, before.Data, after.Data)

	h.send(t, ownerID, "9999999999.99")
	h.send(t, ownerID, "skip")

	e, err := h.repos.Employees.GetEmployee(context.Background(), tenant.ID, "E1")
	require.NoError(t, err)
	assert.Equal(t, "555-0100", e.Phone)
	assert.True(t, e.Salary.Decimal.Equal(decimal.RequireFromString("9999999999.99")))
}

func TestCancelClearsWithoutTerminalAction(t *testing.T) {
	h := newHarness(t)
	h.registerOwner(t, ownerID, domain.PlanLifetime)

	h.send(t, ownerID, MenuAddEmployee)
	h.send(t, ownerID, "E1")
	h.send(t, ownerID, "Ann")
	assert.Equal(t, textCancelled, h.say(t, ownerID, MenuCancel))
	assert.Nil(t, h.session(t, ownerID))
	assert.Empty(t, h.repos.Employees.(*repository.MemoryEmployeesRepo).All())

	assert.Equal(t, textNothingToCancel, h.say(t, ownerID, "cancel"))
}

func TestSlashCommandAbandonsFlow(t *testing.T) {
	h := newHarness(t)
	h.registerOwner(t, ownerID, domain.PlanLifetime)

	h.send(t, ownerID, MenuViewEmployee)
	require.NotNil(t, h.session(t, ownerID))
	assert.Contains(t, h.say(t, ownerID, "/help"), "/buy")
	assert.Nil(t, h.session(t, ownerID))
}

func TestRoleGating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// unregistered callers cannot enter owner flows
	assert.Equal(t, textOwnersOnly, h.say(t, 700, MenuAddEmployee))
	assert.Nil(t, h.session(t, 700))
	assert.Equal(t, textWelcomeUnknown, h.say(t, 700, "hello"))
	assert.Equal(t, textRegisterFirst, h.say(t, 700, MenuSupport))

	// owners cannot run admin commands
	tenant := h.registerOwner(t, ownerID, domain.PlanOneMonth)
	assert.Contains(t, h.say(t, ownerID, "/genkey 1 lifetime"), "Access denied")
	current, err := h.repos.Tenants.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.Credential, current.Credential)
	assert.Equal(t, textAdminsOnly, h.say(t, ownerID, MenuStats))
	assert.Equal(t, textEmployeesOnly, h.say(t, ownerID, MenuMyProfile))

	// admins are never owners or support users
	assert.Equal(t, textOwnersOnly, h.say(t, adminID, MenuEmployees))
	assert.Contains(t, h.say(t, adminID, MenuSupport), "You ARE the support")

	// denials do not write audit entries
	assert.Equal(t, []string{"register"}, h.commands())
}

func TestExpiredOwnerIsDenied(t *testing.T) {
	h := newHarness(t)
	h.registerOwner(t, ownerID, domain.PlanOneMonth)
	h.send(t, ownerID, MenuAddEmployee)
	require.NotNil(t, h.session(t, ownerID))

	// expire the plan mid-flow; the next step re-checks the gate
	tenant, err := h.repos.Tenants.GetActiveTenantByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	_, _, err = h.repos.Tenants.ApplyGrant(context.Background(), repository.Grant{
		TenantID:   tenant.ID,
		Plan:       domain.PlanOneMonth,
		Credential: "expired-credential",
		PlanStart:  time.Now().Add(-60 * 24 * time.Hour),
		PlanEnd:    domain.PlanOneMonth.EndFrom(time.Now().Add(-60 * 24 * time.Hour)),
	})
	require.NoError(t, err)

	assert.Equal(t, textExpired, h.say(t, ownerID, "E1"))
	assert.Nil(t, h.session(t, ownerID))
	assert.Equal(t, textExpired, h.say(t, ownerID, MenuEmployees))
	assert.Contains(t, h.say(t, ownerID, "/start"), "Subscription Expired")

	// buying stays open to expired owners
	assert.Contains(t, h.say(t, ownerID, MenuBuy), "Expired")
}

func TestEditEmployeeFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)
	require.NoError(t, h.repos.Employees.CreateEmployee(ctx, &domain.Employee{TenantID: tenant.ID, Code: "E1", FirstName: "Ann", Department: "Ops"}))

	h.send(t, ownerID, MenuEditEmployee)
	assert.Contains(t, h.say(t, ownerID, "E404"), "not found")
	assert.Contains(t, h.say(t, ownerID, "E1"), "Select the field")
	assert.Contains(t, h.say(t, ownerID, "9"), "Unknown field")

	h.send(t, ownerID, "1")
	assert.Contains(t, h.say(t, ownerID, "clear"), "First name cannot")
	assert.Contains(t, h.say(t, ownerID, strings.Repeat("a", domain.MaxTextLen+1)), "First Name must be at most 255")
	assert.Contains(t, h.say(t, ownerID, "Anna"), "Employee Updated Successfully")

	h.send(t, ownerID, MenuEditEmployee)
	h.send(t, ownerID, "E1")
	h.send(t, ownerID, "Salary")
	assert.Contains(t, h.say(t, ownerID, "-1"), "cannot be negative")
	h.send(t, ownerID, "250")

	h.send(t, ownerID, MenuEditEmployee)
	h.send(t, ownerID, "E1")
	h.send(t, ownerID, "department")
	h.send(t, ownerID, "clear")

	e, err := h.repos.Employees.GetEmployee(ctx, tenant.ID, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", e.FirstName)
	assert.True(t, e.Salary.Decimal.Equal(decimal.NewFromInt(250)))
	assert.Empty(t, e.Department)
	assert.Nil(t, h.session(t, ownerID))
}

func TestViewAndRemoveEmployee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)
	require.NoError(t, h.repos.Employees.CreateEmployee(ctx, &domain.Employee{TenantID: tenant.ID, Code: "E1", FirstName: "Ann", LastName: "Lee"}))

	h.send(t, ownerID, MenuViewEmployee)
	view := h.say(t, ownerID, "E1")
	assert.Contains(t, view, "Ann Lee")
	assert.Nil(t, h.session(t, ownerID))

	h.send(t, ownerID, MenuRemoveEmployee)
	h.send(t, ownerID, "E1")
	assert.Contains(t, h.say(t, ownerID, "maybe"), "yes or no")
	assert.Contains(t, h.say(t, ownerID, "no"), "kept")
	_, err := h.repos.Employees.GetEmployee(ctx, tenant.ID, "E1")
	require.NoError(t, err)

	h.send(t, ownerID, MenuRemoveEmployee)
	h.send(t, ownerID, "E1")
	assert.Contains(t, h.say(t, ownerID, "yes"), "removed")
	_, err = h.repos.Employees.GetEmployee(ctx, tenant.ID, "E1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Contains(t, h.say(t, ownerID, MenuEmployees), "No Employees Found")
}

func TestEmployeeListingAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)
	for _, name := range []string{"Cid", "Ann"} {
		require.NoError(t, h.repos.Employees.CreateEmployee(ctx, &domain.Employee{TenantID: tenant.ID, Code: "C-" + name, FirstName: name}))
	}

	list := h.say(t, ownerID, MenuEmployees)
	assert.Less(t, strings.Index(list, "Ann"), strings.Index(list, "Cid"))
	assert.Contains(t, list, "Total Employees: 2")

	replies := h.send(t, ownerID, MenuExport)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Document)
	assert.Equal(t, tenant.Code+"_employees.xlsx", replies[0].Document.Name)
	assert.NotEmpty(t, replies[0].Document.Data)
}

func TestEmployeeProfileAndSupport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanLifetime)
	caller := int64(77)
	require.NoError(t, h.repos.Employees.CreateEmployee(ctx, &domain.Employee{TenantID: tenant.ID, Code: "E7", FirstName: "Eve", CallerID: &caller}))

	assert.Contains(t, h.say(t, caller, "/start"), "Welcome Eve")
	assert.Contains(t, h.say(t, caller, MenuMyProfile), "E7")
	assert.Equal(t, textOwnersOnly, h.say(t, caller, MenuAddEmployee))

	h.send(t, caller, MenuSupport)
	assert.Contains(t, h.say(t, caller, "help"), "more detailed message")
	assert.Contains(t, h.say(t, caller, "My payslip is missing for March"), "Support message sent")

	msgs := h.audit.SupportMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, caller, msgs[0].CallerID)
	require.NotNil(t, msgs[0].TenantID)
	assert.Equal(t, tenant.ID, *msgs[0].TenantID)
	assert.Equal(t, []string{notify.SupportMessage}, h.notes.types()[len(h.notes.types())-1:])
}

func TestPurchaseAndSimulatedPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanOneMonth)

	assert.Contains(t, h.say(t, ownerID, "/buy"), "Subscription Pricing")
	invoice := h.say(t, ownerID, "Lifetime")
	assert.Contains(t, invoice, "tx-0001")
	assert.Contains(t, invoice, service.DefaultMockPayURL+"tx-0001")
	assert.Contains(t, invoice, "499.99 USD")

	assert.Contains(t, h.say(t, adminID, "/simulate_payment missing"), "not found")
	assert.Contains(t, h.say(t, adminID, "/simulate_payment tx-0001"), "Payment Simulated")
	assert.Contains(t, h.say(t, adminID, "/simulate_payment tx-0001"), "already completed")

	current, err := h.repos.Tenants.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanLifetime, current.Plan)
	assert.NotEqual(t, tenant.Credential, current.Credential)
	assert.Contains(t, h.notes.types(), notify.SubscriptionGrant)
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tenant := h.registerOwner(t, ownerID, domain.PlanOneMonth)

	assert.Contains(t, h.say(t, adminID, "/start"), "Main Admin Panel")
	assert.Contains(t, h.say(t, adminID, "/genkey"), "Usage")
	assert.Contains(t, h.say(t, adminID, "/genkey abc lifetime"), "Invalid company ID")
	assert.Contains(t, h.say(t, adminID, "/genkey 1 2y"), "Invalid subscription type")
	assert.Contains(t, h.say(t, adminID, "/genkey 999 lifetime"), "Company not found")

	out := h.say(t, adminID, fmt.Sprintf("/genkey %d lifetime", tenant.ID))
	current, err := h.repos.Tenants.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Contains(t, out, current.Credential)
	assert.Equal(t, domain.PlanLifetime, current.Plan)
	last := h.notes.events[len(h.notes.events)-1]
	assert.Equal(t, notify.SubscriptionGrant, last.Type)
	assert.Equal(t, []int64{ownerID}, last.Recipients)

	assert.Contains(t, h.say(t, adminID, "/setprice 6m -3"), "positive number")
	assert.Contains(t, h.say(t, adminID, "/setprice 6m 99999999999"), "below 100000000")
	assert.Contains(t, h.say(t, adminID, "/setprice 6m 99.5"), "99.50")
	settings := h.say(t, adminID, MenuSettings)
	assert.Contains(t, settings, "6 Months: 99.50 USD")
	assert.Contains(t, settings, "Max Employees per Company: 1000")

	assert.Contains(t, h.say(t, adminID, MenuStats), "Active Subscriptions: 1")
	assert.Contains(t, h.say(t, adminID, MenuCompanies), tenant.Code)
	assert.Contains(t, h.say(t, adminID, MenuGenerateKey), "/genkey")
}

type downTenants struct {
	repository.TenantsRepository
}

func (downTenants) GetActiveTenantByOwner(context.Context, int64) (*domain.Tenant, error) {
	return nil, fmt.Errorf("failed to get tenant by owner: %w", domain.ErrUnavailable)
}

func TestStoreFailureClearsSessionWithGenericReply(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	repos.Tenants = downTenants{repos.Tenants}
	h := newHarnessWith(t, repos)
	ctx := context.Background()

	sess := newSession(flowAddEmployee)
	sess.Step = 2
	sess.Data["code"] = "E1"
	require.NoError(t, h.sessions.Save(ctx, ownerID, sess))

	replies := h.send(t, ownerID, "Ann")
	require.Len(t, replies, 1)
	assert.Equal(t, textRetryLater, replies[0].Text)
	assert.Nil(t, h.session(t, ownerID))

	entries := h.audit.Entries()
	require.NotEmpty(t, entries)
	assert.False(t, entries[len(entries)-1].Success)
	assert.Contains(t, entries[len(entries)-1].Error, domain.ErrUnavailable.Error())
}

func TestSplitMessage(t *testing.T) {
	line := strings.Repeat("x", 30) + "\n"
	text := strings.Repeat(line, 10)

	parts := splitMessage(text, 100)
	require.Len(t, parts, 4)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 100)
	}
	assert.Equal(t, text, strings.Join(parts, "\n"))

	assert.Equal(t, []string{"short"}, splitMessage("short", 100))
	assert.Equal(t, []string{"ééé", "éé"}, splitMessage("ééééé", 7))
}
