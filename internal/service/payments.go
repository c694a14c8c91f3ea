package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/notify"
	"github.com/mehedi-exx/Hr/internal/repository"
)

// Invoice returned to the buyer after a purchase is initiated.
type Invoice struct {
	TransactionID string
	PayURL        string
	Amount        decimal.Decimal
	Currency      string
	Plan          domain.PlanTag
}

// Callback inbound processor notification.
type Callback struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	GatewayRef    string `json:"gateway_transaction_id"`
}

// CallbackResult outcome of one callback.
type CallbackResult struct {
	Payment          *domain.Payment
	Tenant           *domain.Tenant // set when this callback granted the plan
	AlreadyCompleted bool
}

// Payments purchase initiation and completion callbacks.
type Payments struct {
	payments  repository.PaymentsRepository
	tenants   repository.TenantsRepository
	ledger    *Ledger
	gateway   Gateway
	directory *Directory
	notifier  notify.Notifier
	secret    []byte
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{} // transaction ids whose completion is running
}

func NewPayments(
	payments repository.PaymentsRepository,
	tenants repository.TenantsRepository,
	ledger *Ledger,
	gateway Gateway,
	directory *Directory,
	notifier notify.Notifier,
	webhookSecret string,
	logger *zap.Logger,
) *Payments {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Payments{
		payments:  payments,
		tenants:   tenants,
		ledger:    ledger,
		gateway:   gateway,
		directory: directory,
		notifier:  notifier,
		secret:    []byte(webhookSecret),
		logger:    logger,
		inflight:  map[string]struct{}{},
	}
}

// Initiate creates a pending payment for the tenant. An older pending payment of the same
// tenant is superseded (marked failed) so at most one is pending.
func (s *Payments) Initiate(ctx context.Context, tenantID int64, plan domain.PlanTag) (*Invoice, error) {
	amount, currency, err := s.ledger.Price(ctx, plan)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if prev, err := s.payments.GetPendingPayment(ctx, tenantID); err == nil {
		if err := s.payments.SetStatus(ctx, prev.TransactionID, domain.PaymentFailed, ""); err != nil {
			return nil, fmt.Errorf("failed to supersede pending payment: %w", err)
		}
		s.logger.Info("Pending payment superseded", zap.Int64("tenant_id", tenantID), zap.String("transaction_id", prev.TransactionID))
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	link, err := s.gateway.CreatePayment(ctx, GatewayRequest{
		TenantID:    tenantID,
		Plan:        plan,
		Amount:      amount,
		Currency:    currency,
		Description: fmt.Sprintf("%s subscription for %s", plan.Label(), tenant.Name),
	})
	if err != nil {
		return nil, err
	}

	p := &domain.Payment{
		TransactionID: link.TransactionID,
		TenantID:      tenantID,
		Amount:        amount,
		Currency:      currency,
		Plan:          plan,
		Status:        domain.PaymentPending,
		PayURL:        link.PayURL,
	}
	if err := s.payments.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("Payment initiated",
		zap.Int64("tenant_id", tenantID),
		zap.String("transaction_id", p.TransactionID),
		zap.String("plan", string(plan)),
		zap.String("amount", amount.StringFixed(2)),
	)
	s.notify(ctx, notify.Event{
		Type:       notify.PaymentInitiated,
		TenantID:   tenantID,
		Recipients: s.directory.AdminIDs(),
		Text: fmt.Sprintf("💳 Payment initiated\nCompany: %s\nPlan: %s\nAmount: %s %s\nTransaction: %s",
			tenant.Name, plan.Label(), amount.StringFixed(2), currency, p.TransactionID),
		Data: map[string]any{"transaction_id": p.TransactionID, "plan": string(plan)},
	})

	return &Invoice{
		TransactionID: p.TransactionID,
		PayURL:        p.PayURL,
		Amount:        amount,
		Currency:      currency,
		Plan:          plan,
	}, nil
}

// CompleteByCallback applies a processor callback. A completed status grants the payment's
// plan exactly once; repeats only confirm. Other statuses are recorded without granting.
func (s *Payments) CompleteByCallback(ctx context.Context, cb Callback) (*CallbackResult, error) {
	txID := strings.TrimSpace(cb.TransactionID)
	if txID == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", domain.ErrValidation)
	}
	p, err := s.payments.GetPayment(ctx, txID)
	if err != nil {
		return nil, err
	}

	status := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(cb.Status)))
	if status != domain.PaymentCompleted {
		if status != domain.PaymentPending && status != domain.PaymentFailed {
			s.logger.Warn("Unknown payment status recorded as failed", zap.String("transaction_id", txID), zap.String("status", cb.Status))
			status = domain.PaymentFailed
		}
		// only a pending payment moves; superseded and completed ones keep their status
		if p.Status != domain.PaymentPending {
			s.logger.Info("Callback status ignored for settled payment",
				zap.String("transaction_id", txID),
				zap.String("current", string(p.Status)),
				zap.String("received", string(status)),
			)
			return &CallbackResult{Payment: p, AlreadyCompleted: p.Status == domain.PaymentCompleted}, nil
		}
		if err := s.payments.SetStatus(ctx, txID, status, cb.GatewayRef); err != nil {
			return nil, err
		}
		p.Status = status
		return &CallbackResult{Payment: p}, nil
	}

	if !s.claim(txID) {
		return nil, ErrCallbackInFlight
	}
	defer s.release(txID)

	transitioned, err := s.payments.MarkCompleted(ctx, txID, cb.GatewayRef)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		s.logger.Info("Duplicate completion callback ignored", zap.String("transaction_id", txID))
		p.Status = domain.PaymentCompleted
		return &CallbackResult{Payment: p, AlreadyCompleted: true}, nil
	}

	tenant, err := s.ledger.Grant(ctx, p.TenantID, p.Plan, domain.SystemActor)
	if err != nil {
		if rerr := s.payments.RevertCompletion(ctx, txID, p.Status); rerr != nil {
			s.logger.Error("Failed to revert payment after grant failure",
				zap.String("transaction_id", txID),
				zap.Error(rerr),
			)
		}
		return nil, fmt.Errorf("failed to grant paid plan: %w", err)
	}

	p.Status = domain.PaymentCompleted
	if cb.GatewayRef != "" {
		p.GatewayRef = cb.GatewayRef
	}
	s.logger.Info("Payment completed",
		zap.String("transaction_id", txID),
		zap.Int64("tenant_id", p.TenantID),
		zap.String("plan", string(p.Plan)),
	)

	s.notify(ctx, notify.Event{
		Type:       notify.SubscriptionGrant,
		TenantID:   tenant.ID,
		Recipients: []int64{tenant.OwnerID},
		Text: fmt.Sprintf("✅ Payment received. Your %s subscription is active.\n\n🔑 New API key:\n%s",
			p.Plan.Label(), tenant.Credential),
	})
	s.notify(ctx, notify.Event{
		Type:       notify.PaymentCompleted,
		TenantID:   tenant.ID,
		Recipients: s.directory.AdminIDs(),
		Text: fmt.Sprintf("💰 Payment completed\nCompany: %s\nPlan: %s\nAmount: %s %s",
			tenant.Name, p.Plan.Label(), p.Amount.StringFixed(2), p.Currency),
		Data: map[string]any{"transaction_id": txID, "plan": string(p.Plan)},
	})

	return &CallbackResult{Payment: p, Tenant: tenant}, nil
}

// claim marks txID as being completed by this process; false when another callback holds it.
func (s *Payments) claim(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[txID]; busy {
		return false
	}
	s.inflight[txID] = struct{}{}
	return true
}

func (s *Payments) release(txID string) {
	s.mu.Lock()
	delete(s.inflight, txID)
	s.mu.Unlock()
}

// SimulateCompletion forces a completed callback with a fabricated gateway reference.
func (s *Payments) SimulateCompletion(ctx context.Context, transactionID string) (*CallbackResult, error) {
	ref := transactionID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return s.CompleteByCallback(ctx, Callback{
		TransactionID: transactionID,
		Status:        string(domain.PaymentCompleted),
		GatewayRef:    "sim_" + ref,
	})
}

// Sign HMAC-SHA256 of payload with the webhook secret, hex encoded.
func (s *Payments) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature constant-time check of a webhook signature.
func (s *Payments) VerifySignature(payload []byte, signature string) error {
	if len(s.secret) == 0 {
		return ErrWebhookUnavailable
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return ErrMissingSignature
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}
	want, _ := hex.DecodeString(s.Sign(payload))
	if !hmac.Equal(got, want) {
		return ErrSignatureMismatch
	}
	return nil
}

// notify logs delivery failures instead of returning them.
func (s *Payments) notify(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("Notification failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
