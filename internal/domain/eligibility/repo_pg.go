package eligibility

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type enrollmentRepoPG struct{ pool *pgxpool.Pool }

func NewEnrollmentRepoPG(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepoPG{pool: pool}
}

func (r *enrollmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const enrollmentCols = `id, patient_id, package_id, member_number, enrolled_from, enrolled_to, created_at`

func scanEnrollment(row pgx.Row) (*Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.ID, &e.PatientID, &e.PackageID, &e.MemberNumber,
		&e.EnrolledFrom, &e.EnrolledTo, &e.CreatedAt)
	return &e, err
}

func (r *enrollmentRepoPG) Create(ctx context.Context, e *Enrollment) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hmo_enrollments (id, patient_id, package_id, member_number, enrolled_from, enrolled_to)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.PatientID, e.PackageID, e.MemberNumber, e.EnrolledFrom, e.EnrolledTo)
	return err
}

func (r *enrollmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	e, err := scanEnrollment(r.conn(ctx).QueryRow(ctx, `SELECT `+enrollmentCols+` FROM hmo_enrollments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("enrollment", id.String())
	}
	return e, err
}

func (r *enrollmentRepoPG) LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Enrollment, error) {
	e, err := scanEnrollment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+enrollmentCols+` FROM hmo_enrollments
		WHERE patient_id = $1
		ORDER BY enrolled_from DESC
		LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("enrollment", patientID.String())
	}
	return e, err
}

func (r *enrollmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hmo_enrollments WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+enrollmentCols+` FROM hmo_enrollments
		WHERE patient_id = $1
		ORDER BY enrolled_from DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *enrollmentRepoPG) Terminate(ctx context.Context, id uuid.UUID, to time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE hmo_enrollments SET enrolled_to = $2 WHERE id = $1`, id, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("enrollment", id.String())
	}
	return nil
}
