package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/metrics"
	"github.com/mehedi-exx/Hr/internal/notify"
	"github.com/mehedi-exx/Hr/internal/service"
)

// Event one inbound chat message.
type Event struct {
	CallerID  int64
	ChatID    int64 // defaults to CallerID
	Username  string
	FirstName string
	LastName  string
	Text      string
}

// Document file attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Reply one outbound message. A nil Keyboard leaves the client keyboard unchanged.
type Reply struct {
	ChatID   int64
	Text     string
	Keyboard [][]string
	Document *Document
}

// Deps collaborators of the controller.
type Deps struct {
	Directory *service.Directory
	Ledger    *service.Ledger
	Employees *service.Employees
	Payments  *service.Payments
	Admin     *service.Admin
	Support   *service.Support
	Auditor   *service.Auditor
	Notifier  notify.Notifier
	Sessions  *SessionStore
	Logger    *zap.Logger
}

// Controller drives per-caller conversation flows and role-gated commands.
type Controller struct {
	directory *service.Directory
	ledger    *service.Ledger
	employees *service.Employees
	payments  *service.Payments
	admin     *service.Admin
	support   *service.Support
	audit     *service.Auditor
	notifier  notify.Notifier
	sessions  *SessionStore
	logger    *zap.Logger

	locks *callerLocks
	flows map[string]*flow
}

func NewController(d Deps) *Controller {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	c := &Controller{
		directory: d.Directory,
		ledger:    d.Ledger,
		employees: d.Employees,
		payments:  d.Payments,
		admin:     d.Admin,
		support:   d.Support,
		audit:     d.Auditor,
		notifier:  d.Notifier,
		sessions:  d.Sessions,
		logger:    d.Logger,
		locks:     newCallerLocks(),
	}
	c.flows = c.buildFlows()
	return c
}

// input is the per-event context handed to flows and commands.
type input struct {
	Event
	role    domain.Role
	outcome string // ok | denied | error
}

func (in *input) reply(text string, keyboard [][]string) Reply {
	return Reply{ChatID: in.ChatID, Text: text, Keyboard: keyboard}
}

func (in *input) roleName() string {
	if in.role == nil {
		return "unknown"
	}
	return in.role.Name()
}

// Handle processes one event to completion. Events of the same caller are serialized.
func (c *Controller) Handle(ctx context.Context, ev Event) []Reply {
	if ev.ChatID == 0 {
		ev.ChatID = ev.CallerID
	}
	unlock := c.locks.lock(ev.CallerID)
	defer unlock()

	start := time.Now()
	in := &input{Event: ev, outcome: "ok"}
	replies := c.handle(ctx, in)

	metrics.EventsTotal.WithLabelValues(in.roleName(), in.outcome).Inc()
	metrics.EventDuration.WithLabelValues(in.roleName()).Observe(time.Since(start).Seconds())
	return replies
}

func (c *Controller) handle(ctx context.Context, in *input) []Reply {
	role, err := c.directory.Classify(ctx, in.CallerID)
	if err != nil {
		return c.fail(ctx, in, "classify", err)
	}
	in.role = role
	text := strings.TrimSpace(in.Text)

	if isCancel(text) {
		return c.cancel(ctx, in)
	}

	sess, err := c.sessions.Load(ctx, in.CallerID)
	if err != nil {
		return c.fail(ctx, in, "session", err)
	}
	if sess != nil {
		if !strings.HasPrefix(text, "/") {
			return c.advance(ctx, in, sess, text)
		}
		// a slash command abandons the unfinished flow
		if err := c.sessions.Clear(ctx, in.CallerID); err != nil {
			return c.fail(ctx, in, sess.Flow, err)
		}
		metrics.FlowsTotal.WithLabelValues(sess.Flow, "abandoned").Inc()
	}
	return c.dispatch(ctx, in, text)
}

func isCancel(text string) bool {
	return strings.EqualFold(text, "cancel") || strings.EqualFold(text, "/cancel") || text == MenuCancel
}

func (c *Controller) cancel(ctx context.Context, in *input) []Reply {
	sess, err := c.sessions.Load(ctx, in.CallerID)
	if err != nil {
		return c.fail(ctx, in, "cancel", err)
	}
	if sess == nil {
		return []Reply{in.reply(textNothingToCancel, menuFor(in.role))}
	}
	if err := c.sessions.Clear(ctx, in.CallerID); err != nil {
		return c.fail(ctx, in, "cancel", err)
	}
	metrics.FlowsTotal.WithLabelValues(sess.Flow, "cancelled").Inc()
	c.logger.Info("Flow cancelled", zap.Int64("caller_id", in.CallerID), zap.String("flow", sess.Flow), zap.Int("step", sess.Step))
	return []Reply{in.reply(textCancelled, menuFor(in.role))}
}

// begin enters a flow after its role gate and emits the first prompt.
func (c *Controller) begin(ctx context.Context, in *input, name string) []Reply {
	fl := c.flows[name]
	if denial := fl.gate(in); denial != "" {
		return c.deny(in, denial)
	}
	sess := newSession(name)
	if err := c.sessions.Save(ctx, in.CallerID, sess); err != nil {
		return c.fail(ctx, in, name, err)
	}
	first := fl.steps[0]
	return []Reply{in.reply(first.prompt(ctx, in, sess), first.keyboard)}
}

// advance feeds text to the current step of the caller's flow.
func (c *Controller) advance(ctx context.Context, in *input, sess *Session, text string) []Reply {
	fl, ok := c.flows[sess.Flow]
	if !ok || sess.Step < 0 || sess.Step >= len(fl.steps) {
		c.logger.Warn("Dropping unusable session", zap.Int64("caller_id", in.CallerID), zap.String("flow", sess.Flow), zap.Int("step", sess.Step))
		if err := c.sessions.Clear(ctx, in.CallerID); err != nil {
			return c.fail(ctx, in, sess.Flow, err)
		}
		return c.dispatch(ctx, in, text)
	}

	// the role may have changed since the flow started (expiry, deactivation)
	if denial := fl.gate(in); denial != "" {
		if err := c.sessions.Clear(ctx, in.CallerID); err != nil {
			return c.fail(ctx, in, fl.name, err)
		}
		metrics.FlowsTotal.WithLabelValues(fl.name, "denied").Inc()
		return c.deny(in, denial)
	}

	st := fl.steps[sess.Step]
	if !(st.optional && strings.EqualFold(text, SkipToken)) {
		value, err := st.validate(ctx, in, sess, text)
		if err != nil {
			var ie *inputError
			if errors.As(err, &ie) {
				return []Reply{in.reply(ie.hint, st.keyboard)}
			}
			return c.fail(ctx, in, fl.name, err)
		}
		sess.Data[st.key] = value
	}
	sess.Step++

	if sess.Step < len(fl.steps) {
		if err := c.sessions.Save(ctx, in.CallerID, sess); err != nil {
			return c.fail(ctx, in, fl.name, err)
		}
		next := fl.steps[sess.Step]
		return []Reply{in.reply(next.prompt(ctx, in, sess), next.keyboard)}
	}

	// cleared before the terminal action so a failure can never replay it
	if err := c.sessions.Clear(ctx, in.CallerID); err != nil {
		return c.fail(ctx, in, fl.name, err)
	}
	replies, err := fl.finish(ctx, in, sess)
	if err != nil {
		metrics.FlowsTotal.WithLabelValues(fl.name, "failed").Inc()
		return c.fail(ctx, in, fl.name, err)
	}
	metrics.FlowsTotal.WithLabelValues(fl.name, "completed").Inc()
	return replies
}

func (c *Controller) deny(in *input, text string) []Reply {
	in.outcome = "denied"
	return []Reply{in.reply(text, menuFor(in.role))}
}

// fail answers an unexpected or transient failure with the generic reply and clears the session.
func (c *Controller) fail(ctx context.Context, in *input, command string, err error) []Reply {
	in.outcome = "error"
	c.logger.Error("Failed to handle chat event",
		zap.Int64("caller_id", in.CallerID),
		zap.String("role", in.roleName()),
		zap.String("command", command),
		zap.Bool("transient", errors.Is(err, domain.ErrUnavailable)),
		zap.Error(err),
	)
	c.record(ctx, in, command, nil, "", err)
	if cerr := c.sessions.Clear(ctx, in.CallerID); cerr != nil {
		c.logger.Error("Failed to clear session", zap.Int64("caller_id", in.CallerID), zap.Error(cerr))
	}
	return []Reply{in.reply(textRetryLater, menuFor(in.role))}
}

// record appends an audit entry for a gated or state-changing action.
func (c *Controller) record(ctx context.Context, in *input, command string, tenant *domain.Tenant, detail string, err error) {
	e := &domain.AuditEntry{
		CallerID: in.CallerID,
		Role:     in.roleName(),
		Command:  command,
		Detail:   detail,
		Success:  err == nil,
	}
	if tenant == nil {
		tenant = domain.TenantOf(in.role)
	}
	if tenant != nil {
		id := tenant.ID
		e.TenantID = &id
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.audit.Record(ctx, e)
}

func (c *Controller) notify(ctx context.Context, ev notify.Event) {
	if err := c.notifier.Notify(ctx, ev); err != nil {
		c.logger.Warn("Notification failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

// inputError rejects one step input; the step is re-prompted with hint.
type inputError struct {
	hint string
	kind error
}

func (e *inputError) Error() string { return fmt.Sprintf("%v: %s", e.kind, e.hint) }
func (e *inputError) Unwrap() error { return e.kind }

func invalid(format string, args ...any) error {
	return &inputError{hint: fmt.Sprintf(format, args...), kind: domain.ErrValidation}
}

func conflict(format string, args ...any) error {
	return &inputError{hint: fmt.Sprintf(format, args...), kind: domain.ErrConflict}
}
