package preauth

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

const preauthCols = `id, patient_id, provider_id, service_code_id, diagnosis, requested_by,
	requested_amount, approved_amount, status, rejection_reason, expiry_date, decided_at, created_at, updated_at`

func scanPreauth(row pgx.Row) (*PreAuthorization, error) {
	var p PreAuthorization
	err := row.Scan(&p.ID, &p.PatientID, &p.ProviderID, &p.ServiceCodeID, &p.Diagnosis, &p.RequestedBy,
		&p.RequestedAmount, &p.ApprovedAmount, &p.Status, &p.RejectionReason, &p.ExpiryDate, &p.DecidedAt,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *PreAuthorization) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hmo_preauthorizations (id, patient_id, provider_id, service_code_id, diagnosis,
			requested_by, requested_amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.PatientID, p.ProviderID, p.ServiceCodeID, p.Diagnosis,
		p.RequestedBy, p.RequestedAmount, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PreAuthorization, error) {
	p, err := scanPreauth(r.conn(ctx).QueryRow(ctx, `SELECT `+preauthCols+` FROM hmo_preauthorizations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("pre-authorization", id.String())
	}
	return p, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PreAuthorization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_preauthorizations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+preauthCols+` FROM hmo_preauthorizations
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PreAuthorization
	for rows.Next() {
		p, err := scanPreauth(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// Approve flips pending → approved guarded on the current status, so a
// concurrent decision cannot be overwritten.
func (r *repoPG) Approve(ctx context.Context, id uuid.UUID, amount decimal.Decimal, expiry time.Time, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hmo_preauthorizations
		SET status = $2, approved_amount = $3, expiry_date = $4, decided_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6`,
		id, StatusApproved, amount, expiry, at, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hmo_preauthorizations
		SET status = $2, rejection_reason = $3, decided_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5`,
		id, StatusRejected, reason, at, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
