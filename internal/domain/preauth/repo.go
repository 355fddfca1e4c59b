package preauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *PreAuthorization) error
	GetByID(ctx context.Context, id uuid.UUID) (*PreAuthorization, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PreAuthorization, int, error)
	// Approve and Reject are compare-and-set transitions guarded on
	// status = pending. They return false, without error, when a
	// concurrent decision got there first.
	Approve(ctx context.Context, id uuid.UUID, amount decimal.Decimal, expiry time.Time, at time.Time) (bool, error)
	Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}
