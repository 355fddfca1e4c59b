package tariff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tariffCols = `id, provider_id, service_code_id, amount,
	copay_percentage, copay_fixed_amount, effective_from, effective_to, created_at, updated_at`

func scanTariff(row pgx.Row) (*Tariff, error) {
	var (
		t        Tariff
		copayPct *decimal.Decimal
		copayAmt *decimal.Decimal
	)
	err := row.Scan(&t.ID, &t.ProviderID, &t.ServiceCodeID, &t.Amount,
		&copayPct, &copayAmt, &t.EffectiveFrom, &t.EffectiveTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Copay, err = registry.CopayFromColumns(copayPct, copayAmt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Tariff) error {
	t.ID = uuid.New()
	copayPct, copayAmt := t.Copay.Columns()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hmo_tariffs (id, provider_id, service_code_id, amount,
			copay_percentage, copay_fixed_amount, effective_from, effective_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.ProviderID, t.ServiceCodeID, t.Amount,
		copayPct, copayAmt, t.EffectiveFrom, t.EffectiveTo)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	t, err := scanTariff(r.conn(ctx).QueryRow(ctx, `SELECT `+tariffCols+` FROM hmo_tariffs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("tariff", id.String())
	}
	return t, err
}

func (r *repoPG) Update(ctx context.Context, t *Tariff) error {
	copayPct, copayAmt := t.Copay.Columns()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hmo_tariffs SET amount=$2, copay_percentage=$3, copay_fixed_amount=$4,
			effective_from=$5, effective_to=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Amount, copayPct, copayAmt, t.EffectiveFrom, t.EffectiveTo)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hmo_tariffs WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Tariff, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_tariffs WHERE provider_id = $1`, providerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+tariffCols+` FROM hmo_tariffs
		WHERE provider_id = $1
		ORDER BY service_code_id, effective_from
		LIMIT $2 OFFSET $3`, providerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) FindEffective(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*Tariff, error) {
	t, err := scanTariff(r.conn(ctx).QueryRow(ctx, `
		SELECT `+tariffCols+` FROM hmo_tariffs
		WHERE provider_id = $1 AND service_code_id = $2
			AND effective_from <= $3
			AND (effective_to IS NULL OR effective_to > $3)`,
		providerID, serviceCodeID, asOf))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("tariff", providerID.String()+"/"+serviceCodeID.String())
	}
	return t, err
}

func (r *repoPG) Overlaps(ctx context.Context, providerID, serviceCodeID uuid.UUID, from time.Time, to *time.Time, excludeID uuid.UUID) (bool, error) {
	// Half-open intervals [a, b) and [c, d) overlap iff a < d and c < b,
	// with nil upper bounds treated as infinity.
	var overlaps bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM hmo_tariffs
			WHERE provider_id = $1 AND service_code_id = $2 AND id <> $3
				AND effective_from < COALESCE($5, 'infinity'::timestamptz)
				AND $4 < COALESCE(effective_to, 'infinity'::timestamptz)
		)`, providerID, serviceCodeID, excludeID, from, to).Scan(&overlaps)
	return overlaps, err
}
