package claims

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/domain/tariff"
)

// LimitGuard tells the store to serialize claim creation against the
// enrollment row and enforce the annual limit inside the same
// transaction, closing the check-then-act race between concurrent
// creates for one (patient, package). All non-rejected claims reserve
// coverage at creation time; reporting via ConsumedAmount is narrower.
type LimitGuard struct {
	EnrollmentID uuid.UUID
	AnnualLimit  decimal.Decimal
	YearStart    time.Time
	YearEnd      time.Time
}

type Repository interface {
	// Create persists the claim and its items atomically, applying the
	// guard when present. Fails with LimitExceeded when the claim would
	// overdraw the annual limit.
	Create(ctx context.Context, c *Claim, items []*ClaimItem, guard *LimitGuard) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByNumber(ctx context.Context, claimNumber string) (*Claim, error)
	ItemsByClaim(ctx context.Context, claimID uuid.UUID) ([]*ClaimItem, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Claim, int, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error)
	// Transition performs a compare-and-set status update, stamping the
	// timestamp column that belongs to the target status. It returns
	// false, without error, when the claim was not in the from status.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason *string) (bool, error)
	// ConsumedAmount sums claim_amount over the patient's claims under
	// the package with service dates in [from, to), restricted to the
	// given statuses. Feeds the eligibility evaluator's limit step.
	ConsumedAmount(ctx context.Context, patientID, packageID uuid.UUID, from, to time.Time, statuses []string) (decimal.Decimal, error)
}

// Coverage is the enrollment context a claim is adjudicated under.
type Coverage struct {
	EnrollmentID uuid.UUID
	PackageID    uuid.UUID
	AnnualLimit  *decimal.Decimal
	DefaultCopay registry.CopayRule
	YearStart    time.Time
	YearEnd      time.Time
}

// CoverageReader supplies the active coverage for a patient on a date.
// Wired to the eligibility service in the composition root.
type CoverageReader interface {
	ActiveCoverage(ctx context.Context, patientID uuid.UUID, at time.Time) (*Coverage, error)
}

// TariffResolver is the slice of the tariff service used during
// adjudication.
type TariffResolver interface {
	Resolve(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*tariff.Resolved, error)
	ResolveWithFallback(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*tariff.Resolved, error)
}

// ServiceCodeReader supplies code snapshots for claim items.
type ServiceCodeReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*registry.ServiceCode, error)
}

// Submitter forwards a submitted claim to the HMO's intake channel.
type Submitter interface {
	Submit(ctx context.Context, c *Claim, items []*ClaimItem) error
}
