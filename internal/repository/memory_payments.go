package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// MemoryPaymentsRepo backs payments when the DB is disabled.
type MemoryPaymentsRepo struct {
	mu       sync.Mutex
	seq      int64
	payments map[string]*domain.Payment // transaction id -> payment
}

func NewMemoryPaymentsRepo() *MemoryPaymentsRepo {
	return &MemoryPaymentsRepo{payments: map[string]*domain.Payment{}}
}

var _ PaymentsRepository = (*MemoryPaymentsRepo)(nil)

func (r *MemoryPaymentsRepo) CreatePayment(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	if _, ok := r.payments[p.TransactionID]; ok {
		return fmt.Errorf("transaction %s: %w", p.TransactionID, domain.ErrConflict)
	}
	if p.Status == domain.PaymentPending {
		for _, existing := range r.payments {
			if existing.TenantID == p.TenantID && existing.Status == domain.PaymentPending {
				return fmt.Errorf("tenant %d already has a pending payment: %w", p.TenantID, domain.ErrConflict)
			}
		}
	}
	r.seq++
	now := time.Now()
	p.ID = r.seq
	p.CreatedAt = now
	p.UpdatedAt = now
	c := *p
	r.payments[p.TransactionID] = &c
	return nil
}

func (r *MemoryPaymentsRepo) GetPayment(_ context.Context, transactionID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (r *MemoryPaymentsRepo) GetPendingPayment(_ context.Context, tenantID int64) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TenantID == tenantID && p.Status == domain.PaymentPending {
			c := *p
			return &c, nil
		}
	}
	return nil, fmt.Errorf("pending payment for tenant %d: %w", tenantID, domain.ErrNotFound)
}

func (r *MemoryPaymentsRepo) SetStatus(_ context.Context, transactionID string, status domain.PaymentStatus, gatewayRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[transactionID]
	if !ok || p.Status != domain.PaymentPending {
		return nil
	}
	p.Status = status
	if gatewayRef != "" {
		p.GatewayRef = gatewayRef
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPaymentsRepo) MarkCompleted(_ context.Context, transactionID string, gatewayRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[transactionID]
	if !ok || p.Status == domain.PaymentCompleted {
		return false, nil
	}
	p.Status = domain.PaymentCompleted
	if gatewayRef != "" {
		p.GatewayRef = gatewayRef
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryPaymentsRepo) RevertCompletion(_ context.Context, transactionID string, prev domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[transactionID]; ok && p.Status == domain.PaymentCompleted {
		p.Status = prev
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (r *MemoryPaymentsRepo) countCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.payments {
		if p.Status == domain.PaymentCompleted {
			n++
		}
	}
	return n
}
