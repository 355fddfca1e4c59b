package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Provider repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const providerCols = `id, name, code, contact_email, contact_phone, accreditation_no, active, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.ContactEmail, &p.ContactPhone,
		&p.AccreditationNo, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hmo_providers (id, name, code, contact_email, contact_phone, accreditation_no, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Code, p.ContactEmail, p.ContactPhone, p.AccreditationNo, p.Active)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	p, err := scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM hmo_providers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("provider", id.String())
	}
	return p, err
}

func (r *providerRepoPG) GetByCode(ctx context.Context, code string) (*Provider, error) {
	p, err := scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM hmo_providers WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("provider", code)
	}
	return p, err
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hmo_providers SET name=$2, contact_email=$3, contact_phone=$4,
			accreditation_no=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.ContactEmail, p.ContactPhone, p.AccreditationNo, p.Active)
	return err
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hmo_providers WHERE id = $1`, id)
	return err
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_providers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+providerCols+` FROM hmo_providers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// ProviderInUse reports whether any claim or pre-authorization still
// references the provider.
func (r *providerRepoPG) ProviderInUse(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var inUse bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM hmo_claims WHERE provider_id = $1)
			OR EXISTS (SELECT 1 FROM hmo_preauthorizations WHERE provider_id = $1)`,
		providerID).Scan(&inUse)
	return inUse, err
}

// =========== Package repository ===========

type packageRepoPG struct{ pool *pgxpool.Pool }

func NewPackageRepoPG(pool *pgxpool.Pool) PackageRepository { return &packageRepoPG{pool: pool} }

func (r *packageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const packageCols = `id, provider_id, name, description, annual_limit,
	copay_percentage, copay_fixed_amount, covered_codes, excluded_codes, created_at, updated_at`

func scanPackage(row pgx.Row) (*Package, error) {
	var (
		p        Package
		copayPct *decimal.Decimal
		copayAmt *decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.ProviderID, &p.Name, &p.Description, &p.AnnualLimit,
		&copayPct, &copayAmt, &p.CoveredCodes, &p.ExcludedCodes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Copay, err = CopayFromColumns(copayPct, copayAmt)
	return &p, err
}

func (r *packageRepoPG) Create(ctx context.Context, p *Package) error {
	p.ID = uuid.New()
	copayPct, copayAmt := p.Copay.Columns()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hmo_service_packages (id, provider_id, name, description, annual_limit,
			copay_percentage, copay_fixed_amount, covered_codes, excluded_codes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.ProviderID, p.Name, p.Description, p.AnnualLimit,
		copayPct, copayAmt, p.CoveredCodes, p.ExcludedCodes)
	return err
}

func (r *packageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Package, error) {
	p, err := scanPackage(r.conn(ctx).QueryRow(ctx, `SELECT `+packageCols+` FROM hmo_service_packages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("package", id.String())
	}
	return p, err
}

func (r *packageRepoPG) Update(ctx context.Context, p *Package) error {
	copayPct, copayAmt := p.Copay.Columns()
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hmo_service_packages SET name=$2, description=$3, annual_limit=$4,
			copay_percentage=$5, copay_fixed_amount=$6, covered_codes=$7, excluded_codes=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.AnnualLimit,
		copayPct, copayAmt, p.CoveredCodes, p.ExcludedCodes)
	return err
}

func (r *packageRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hmo_service_packages WHERE id = $1`, id)
	return err
}

func (r *packageRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Package, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_service_packages WHERE provider_id = $1`, providerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+packageCols+` FROM hmo_service_packages WHERE provider_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		providerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Service code repository ===========

type serviceCodeRepoPG struct{ pool *pgxpool.Pool }

func NewServiceCodeRepoPG(pool *pgxpool.Pool) ServiceCodeRepository {
	return &serviceCodeRepoPG{pool: pool}
}

func (r *serviceCodeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const serviceCodeCols = `id, code, description, category, base_tariff, preauth_required, created_at, updated_at`

func scanServiceCode(row pgx.Row) (*ServiceCode, error) {
	var sc ServiceCode
	err := row.Scan(&sc.ID, &sc.Code, &sc.Description, &sc.Category,
		&sc.BaseTariff, &sc.PreauthRequired, &sc.CreatedAt, &sc.UpdatedAt)
	return &sc, err
}

func (r *serviceCodeRepoPG) Create(ctx context.Context, sc *ServiceCode) error {
	sc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO nhis_service_codes (id, code, description, category, base_tariff, preauth_required)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sc.ID, sc.Code, sc.Description, sc.Category, sc.BaseTariff, sc.PreauthRequired)
	return err
}

func (r *serviceCodeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceCode, error) {
	sc, err := scanServiceCode(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCodeCols+` FROM nhis_service_codes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("service code", id.String())
	}
	return sc, err
}

func (r *serviceCodeRepoPG) GetByCode(ctx context.Context, code string) (*ServiceCode, error) {
	sc, err := scanServiceCode(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCodeCols+` FROM nhis_service_codes WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("service code", code)
	}
	return sc, err
}

func (r *serviceCodeRepoPG) Update(ctx context.Context, sc *ServiceCode) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE nhis_service_codes SET description=$2, category=$3, base_tariff=$4,
			preauth_required=$5, updated_at=NOW()
		WHERE id = $1`,
		sc.ID, sc.Description, sc.Category, sc.BaseTariff, sc.PreauthRequired)
	return err
}

func (r *serviceCodeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM nhis_service_codes WHERE id = $1`, id)
	return err
}

func (r *serviceCodeRepoPG) List(ctx context.Context, category string, limit, offset int) ([]*ServiceCode, int, error) {
	where, args := ``, []interface{}{}
	if category != "" {
		where = ` WHERE category = $1`
		args = append(args, category)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nhis_service_codes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + serviceCodeCols + ` FROM nhis_service_codes` + where
	if category != "" {
		q += ` ORDER BY code LIMIT $2 OFFSET $3`
	} else {
		q += ` ORDER BY code LIMIT $1 OFFSET $2`
	}
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ServiceCode
	for rows.Next() {
		sc, err := scanServiceCode(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, sc)
	}
	return items, total, rows.Err()
}
