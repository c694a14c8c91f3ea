package repository

import (
	"context"
	"database/sql"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// PostgresAuditRepository audit_logs and support_messages.
type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)

func (r *PostgresAuditRepository) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (caller_id, role, command, tenant_id, detail, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.CallerID,
		e.Role,
		e.Command,
		nullInt64(e.TenantID),
		nullString(e.Detail),
		e.Success,
		nullString(e.Error),
	).Scan(&e.ID, &e.CreatedAt)
	return wrapErr("failed to append audit entry", err)
}

func (r *PostgresAuditRepository) CreateSupportMessage(ctx context.Context, m *domain.SupportMessage) error {
	if m.Status == "" {
		m.Status = "open"
	}
	query := `
		INSERT INTO support_messages (caller_id, username, tenant_id, message, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.CallerID,
		nullString(m.Username),
		nullInt64(m.TenantID),
		m.Message,
		m.Status,
	).Scan(&m.ID, &m.CreatedAt)
	return wrapErr("failed to create support message", err)
}
