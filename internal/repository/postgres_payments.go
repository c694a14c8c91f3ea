package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// PostgresPaymentsRepository payments table over lib/pq.
type PostgresPaymentsRepository struct {
	db *sql.DB
}

func NewPostgresPaymentsRepository(db *sql.DB) *PostgresPaymentsRepository {
	return &PostgresPaymentsRepository{db: db}
}

var _ PaymentsRepository = (*PostgresPaymentsRepository)(nil)

const paymentColumns = `
	id,
	transaction_id,
	tenant_id,
	amount,
	currency,
	plan,
	status,
	COALESCE(gateway_ref, ''),
	COALESCE(pay_url, ''),
	created_at,
	updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var plan, status string
	if err := row.Scan(
		&p.ID,
		&p.TransactionID,
		&p.TenantID,
		&p.Amount,
		&p.Currency,
		&plan,
		&status,
		&p.GatewayRef,
		&p.PayURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Plan = domain.PlanTag(plan)
	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

func (r *PostgresPaymentsRepository) CreatePayment(ctx context.Context, p *domain.Payment) error {
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}
	query := `
		INSERT INTO payments (
			transaction_id,
			tenant_id,
			amount,
			currency,
			plan,
			status,
			gateway_ref,
			pay_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.TransactionID,
		p.TenantID,
		p.Amount.StringFixed(2),
		p.Currency,
		string(p.Plan),
		string(p.Status),
		nullString(p.GatewayRef),
		nullString(p.PayURL),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapErr("failed to create payment", err)
	}
	return nil
}

func (r *PostgresPaymentsRepository) GetPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get payment %s", transactionID), err)
	}
	return p, nil
}

func (r *PostgresPaymentsRepository) GetPendingPayment(ctx context.Context, tenantID int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND status = 'pending'`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		return nil, wrapErr("failed to get pending payment", err)
	}
	return p, nil
}

func (r *PostgresPaymentsRepository) SetStatus(ctx context.Context, transactionID string, status domain.PaymentStatus, gatewayRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
			gateway_ref = COALESCE($3, gateway_ref),
			updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'`,
		transactionID, string(status), nullString(gatewayRef))
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to set payment %s status", transactionID), err)
	}
	return nil
}

// MarkCompleted conditional update: only the first caller sees a row affected.
func (r *PostgresPaymentsRepository) MarkCompleted(ctx context.Context, transactionID string, gatewayRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = 'completed',
			gateway_ref = COALESCE($2, gateway_ref),
			updated_at = NOW()
		WHERE transaction_id = $1 AND status <> 'completed'`,
		transactionID, nullString(gatewayRef))
	if err != nil {
		return false, wrapErr(fmt.Sprintf("failed to complete payment %s", transactionID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("failed to read rows affected", err)
	}
	return n > 0, nil
}

func (r *PostgresPaymentsRepository) RevertCompletion(ctx context.Context, transactionID string, prev domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'completed'`,
		transactionID, string(prev))
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to revert payment %s", transactionID), err)
	}
	return nil
}
