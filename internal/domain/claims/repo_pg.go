package claims

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

const claimCols = `id, claim_number, patient_id, provider_id, package_id, enrollment_id,
	claim_date, service_date, total_amount, copay_amount, claim_amount,
	status, rejection_reason, submitted_at, approved_at, paid_at, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.PatientID, &c.ProviderID, &c.PackageID, &c.EnrollmentID,
		&c.ClaimDate, &c.ServiceDate, &c.TotalAmount, &c.CopayAmount, &c.ClaimAmount,
		&c.Status, &c.RejectionReason, &c.SubmittedAt, &c.ApprovedAt, &c.PaidAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

// Create inserts the claim and its items in one transaction. With a
// guard, the enrollment row is locked first so concurrent creates for
// the same coverage serialize, and the limit check sees every claim
// committed before this one. All non-rejected claims reserve coverage.
func (r *repoPG) Create(ctx context.Context, c *Claim, items []*ClaimItem, guard *LimitGuard) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)

		if guard != nil {
			var lockedID uuid.UUID
			err := q.QueryRow(ctx, `SELECT id FROM hmo_enrollments WHERE id = $1 FOR UPDATE`, guard.EnrollmentID).Scan(&lockedID)
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.NotFound("enrollment", guard.EnrollmentID.String())
			}
			if err != nil {
				return err
			}

			var reserved decimal.Decimal
			err = q.QueryRow(ctx, `
				SELECT COALESCE(SUM(claim_amount), 0) FROM hmo_claims
				WHERE patient_id = $1 AND package_id = $2 AND status <> $3
					AND service_date >= $4 AND service_date < $5`,
				c.PatientID, c.PackageID, StatusRejected, guard.YearStart, guard.YearEnd).Scan(&reserved)
			if err != nil {
				return err
			}
			remaining := guard.AnnualLimit.Sub(reserved)
			if c.ClaimAmount.GreaterThan(remaining) {
				if remaining.IsNegative() {
					remaining = decimal.Zero
				}
				return &errs.LimitExceededError{Remaining: remaining, Requested: c.ClaimAmount}
			}
		}

		_, err := q.Exec(ctx, `
			INSERT INTO hmo_claims (id, claim_number, patient_id, provider_id, package_id, enrollment_id,
				claim_date, service_date, total_amount, copay_amount, claim_amount, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			c.ID, c.ClaimNumber, c.PatientID, c.ProviderID, c.PackageID, c.EnrollmentID,
			c.ClaimDate, c.ServiceDate, c.TotalAmount, c.CopayAmount, c.ClaimAmount, c.Status)
		if err != nil {
			return err
		}

		for _, item := range items {
			item.ID = uuid.New()
			item.ClaimID = c.ID
			_, err := q.Exec(ctx, `
				INSERT INTO hmo_claim_items (id, claim_id, service_code_id, code, description,
					quantity, unit_price, line_total, copay_amount, tariff_source)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				item.ID, item.ClaimID, item.ServiceCodeID, item.Code, item.Description,
				item.Quantity, item.UnitPrice, item.LineTotal, item.CopayAmount, item.TariffSource)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM hmo_claims WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("claim", id.String())
	}
	return c, err
}

func (r *repoPG) GetByNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	c, err := scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM hmo_claims WHERE claim_number = $1`, claimNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("claim", claimNumber)
	}
	return c, err
}

const itemCols = `id, claim_id, service_code_id, code, description,
	quantity, unit_price, line_total, copay_amount, tariff_source`

func (r *repoPG) ItemsByClaim(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM hmo_claim_items WHERE claim_id = $1 ORDER BY code`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ClaimItem
	for rows.Next() {
		var item ClaimItem
		if err := rows.Scan(&item.ID, &item.ClaimID, &item.ServiceCodeID, &item.Code, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CopayAmount, &item.TariffSource); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_claims WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+claimCols+` FROM hmo_claims
		WHERE patient_id = $1
		ORDER BY claim_date DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collectClaims(rows, total)
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error) {
	where, args := ``, []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_claims`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + claimCols + ` FROM hmo_claims` + where + ` ORDER BY claim_date DESC`
	if status != "" {
		q += ` LIMIT $2 OFFSET $3`
	} else {
		q += ` LIMIT $1 OFFSET $2`
	}
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return collectClaims(rows, total)
}

func collectClaims(rows pgx.Rows, total int) ([]*Claim, int, error) {
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason *string) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	switch to {
	case StatusSubmitted:
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE hmo_claims SET status = $3, submitted_at = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2`, id, from, to, at)
	case StatusApproved:
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE hmo_claims SET status = $3, approved_at = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2`, id, from, to, at)
	case StatusPaid:
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE hmo_claims SET status = $3, paid_at = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2`, id, from, to, at)
	case StatusRejected:
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE hmo_claims SET status = $3, rejection_reason = $4, updated_at = NOW()
			WHERE id = $1 AND status = $2`, id, from, to, reason)
	default:
		return false, errs.Validation("unsupported transition target %q", to)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ConsumedAmount(ctx context.Context, patientID, packageID uuid.UUID, from, to time.Time, statuses []string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(claim_amount), 0) FROM hmo_claims
		WHERE patient_id = $1 AND package_id = $2
			AND status = ANY($3)
			AND service_date >= $4 AND service_date < $5`,
		patientID, packageID, statuses, from, to).Scan(&sum)
	return sum, err
}
