package eligibility

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/registry"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error)
	// LatestByPatient returns the patient's most recent enrollment,
	// expired or not; status is derived by the caller. NotFound when the
	// patient has never been enrolled.
	LatestByPatient(ctx context.Context, patientID uuid.UUID) (*Enrollment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error)
	Terminate(ctx context.Context, id uuid.UUID, to time.Time) error
}

// PackageReader is the slice of the registry the evaluator needs.
type PackageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*registry.Package, error)
}

// ClaimUsage reports how much of a package's annual limit a patient has
// consumed within a policy year, counting claims in the given statuses.
type ClaimUsage interface {
	ConsumedAmount(ctx context.Context, patientID, packageID uuid.UUID, from, to time.Time, statuses []string) (decimal.Decimal, error)
}
