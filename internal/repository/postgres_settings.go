package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mehedi-exx/Hr/internal/domain"
)

// PostgresSettingsRepository system_settings key/value table.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

func (r *PostgresSettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", wrapErr(fmt.Sprintf("failed to get setting %s", key), err)
	}
	return value, nil
}

func (r *PostgresSettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	return wrapErr(fmt.Sprintf("failed to set setting %s", key), err)
}

func (r *PostgresSettingsRepository) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, wrapErr("failed to list settings", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, wrapErr("failed to scan setting", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate settings", err)
	}
	return out, nil
}

// PostgresStatsRepository aggregate counters across tenants.
type PostgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

var _ StatsRepository = (*PostgresStatsRepository)(nil)

func (r *PostgresStatsRepository) SystemStats(ctx context.Context, now, since time.Time) (*domain.Stats, error) {
	s := &domain.Stats{ByPlan: map[domain.PlanTag]int{}}

	query := `
		SELECT
			(SELECT COUNT(*) FROM tenants WHERE is_active),
			(SELECT COUNT(*) FROM tenants WHERE is_active AND (plan = 'lifetime' OR plan_end > $1)),
			(SELECT COUNT(*) FROM employees e JOIN tenants t ON t.id = e.tenant_id
				WHERE e.status = 'active' AND t.is_active),
			(SELECT COUNT(*) FROM tenants WHERE created_at >= $2),
			(SELECT COUNT(*) FROM payments WHERE status = 'completed')
	`
	err := r.db.QueryRowContext(ctx, query, now, since).Scan(
		&s.ActiveCompanies,
		&s.ActiveSubscriptions,
		&s.ActiveEmployees,
		&s.RecentRegistrations,
		&s.CompletedPayments,
	)
	if err != nil {
		return nil, wrapErr("failed to load stats", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT plan, COUNT(*) FROM tenants WHERE is_active GROUP BY plan`)
	if err != nil {
		return nil, wrapErr("failed to load plan breakdown", err)
	}
	defer rows.Close()
	for rows.Next() {
		var plan string
		var n int
		if err := rows.Scan(&plan, &n); err != nil {
			return nil, wrapErr("failed to scan plan breakdown", err)
		}
		s.ByPlan[domain.PlanTag(plan)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("failed to iterate plan breakdown", err)
	}
	return s, nil
}
