package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// PostgresTenantsRepository tenants table over lib/pq.
type PostgresTenantsRepository struct {
	db *sql.DB
}

func NewPostgresTenantsRepository(db *sql.DB) *PostgresTenantsRepository {
	return &PostgresTenantsRepository{db: db}
}

var _ TenantsRepository = (*PostgresTenantsRepository)(nil)

const tenantColumns = `
	id,
	company_name,
	company_code,
	owner_id,
	COALESCE(owner_username, ''),
	COALESCE(owner_first_name, ''),
	COALESCE(owner_last_name, ''),
	credential,
	plan,
	plan_start,
	plan_end,
	is_active,
	created_at,
	updated_at`

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	var plan string
	var planEnd sql.NullTime
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Code,
		&t.OwnerID,
		&t.OwnerUsername,
		&t.OwnerFirstName,
		&t.OwnerLastName,
		&t.Credential,
		&plan,
		&t.PlanStart,
		&planEnd,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Plan = domain.PlanTag(plan)
	t.PlanEnd = timePtr(planEnd)
	return &t, nil
}

func (r *PostgresTenantsRepository) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tenants (
			company_name,
			company_code,
			owner_id,
			owner_username,
			owner_first_name,
			owner_last_name,
			credential,
			plan,
			plan_start,
			plan_end,
			is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		t.Name,
		t.Code,
		t.OwnerID,
		nullString(t.OwnerUsername),
		nullString(t.OwnerFirstName),
		nullString(t.OwnerLastName),
		t.Credential,
		string(t.Plan),
		t.PlanStart,
		nullTime(t.PlanEnd),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return wrapErr("failed to create tenant", err)
	}

	if err := insertCredentialLog(ctx, tx, &domain.CredentialLog{
		TenantID:      t.ID,
		NewCredential: t.Credential,
		GrantedBy:     t.OwnerID,
		Plan:          t.Plan,
		PlanEnd:       t.PlanEnd,
		Action:        "register",
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("failed to commit tenant", err)
	}
	t.IsActive = true
	return nil
}

func (r *PostgresTenantsRepository) GetTenant(ctx context.Context, id int64) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get tenant %d", id), err)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) GetActiveTenantByOwner(ctx context.Context, ownerID int64) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE owner_id = $1 AND is_active LIMIT 1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		return nil, wrapErr("failed to get tenant by owner", err)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) GetTenantByCredential(ctx context.Context, credential string) (*domain.Tenant, error) {
	if credential == "" {
		return nil, fmt.Errorf("credential is required: %w", domain.ErrNotFound)
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE credential = $1`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, credential))
	if err != nil {
		return nil, wrapErr("failed to get tenant by credential", err)
	}
	return t, nil
}

func (r *PostgresTenantsRepository) ListTenants(ctx context.Context, activeOnly bool) ([]domain.TenantSummary, error) {
	query := `
		SELECT ` + tenantColumns + `,
			(SELECT COUNT(*) FROM employees e WHERE e.tenant_id = tenants.id AND e.status = 'active')
		FROM tenants
		WHERE ($1 = FALSE OR is_active)
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, wrapErr("failed to list tenants", err)
	}
	defer rows.Close()

	var out []domain.TenantSummary
	for rows.Next() {
		var s domain.TenantSummary
		var plan string
		var planEnd sql.NullTime
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Code,
			&s.OwnerID,
			&s.OwnerUsername,
			&s.OwnerFirstName,
			&s.OwnerLastName,
			&s.Credential,
			&plan,
			&s.PlanStart,
			&planEnd,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.EmployeeCount,
		); err != nil {
			return nil, wrapErr("failed to scan tenant", err)
		}
		s.Plan = domain.PlanTag(plan)
		s.PlanEnd = timePtr(planEnd)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate tenants", err)
	}
	return out, nil
}

// ApplyGrant locks the tenant row so credential and plan change together for every reader.
func (r *PostgresTenantsRepository) ApplyGrant(ctx context.Context, g Grant) (*domain.Tenant, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", wrapErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var oldCredential string
	err = tx.QueryRowContext(ctx, `SELECT credential FROM tenants WHERE id = $1 FOR UPDATE`, g.TenantID).Scan(&oldCredential)
	if err != nil {
		return nil, "", wrapErr(fmt.Sprintf("failed to lock tenant %d", g.TenantID), err)
	}

	query := `
		UPDATE tenants
		SET credential = $2,
			plan = $3,
			plan_start = $4,
			plan_end = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tenantColumns
	t, err := scanTenant(tx.QueryRowContext(ctx, query,
		g.TenantID,
		g.Credential,
		string(g.Plan),
		g.PlanStart,
		nullTime(g.PlanEnd),
	))
	if err != nil {
		return nil, "", wrapErr("failed to update tenant plan", err)
	}

	if err := insertCredentialLog(ctx, tx, &domain.CredentialLog{
		TenantID:      g.TenantID,
		OldCredential: oldCredential,
		NewCredential: g.Credential,
		GrantedBy:     g.GrantedBy,
		Plan:          g.Plan,
		PlanEnd:       g.PlanEnd,
		Action:        "renew",
	}); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", wrapErr("failed to commit grant", err)
	}
	return t, oldCredential, nil
}

func (r *PostgresTenantsRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tenants SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return wrapErr("failed to set tenant active flag", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tenant %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func insertCredentialLog(ctx context.Context, tx *sql.Tx, l *domain.CredentialLog) error {
	query := `
		INSERT INTO credential_logs (
			tenant_id,
			old_credential,
			new_credential,
			granted_by,
			plan,
			plan_end,
			action
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		l.TenantID,
		nullString(l.OldCredential),
		l.NewCredential,
		l.GrantedBy,
		string(l.Plan),
		nullTime(l.PlanEnd),
		l.Action,
	)
	return wrapErr("failed to insert credential log", err)
}
