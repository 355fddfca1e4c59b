package tariff

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/registry"
)

type Repository interface {
	Create(ctx context.Context, t *Tariff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tariff, error)
	Update(ctx context.Context, t *Tariff) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Tariff, int, error)
	// FindEffective returns the tariff effective for the pair on asOf,
	// or a NotFound error when no interval contains the date.
	FindEffective(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*Tariff, error)
	// Overlaps reports whether any tariff for the pair, other than
	// excludeID, intersects the half-open interval [from, to).
	Overlaps(ctx context.Context, providerID, serviceCodeID uuid.UUID, from time.Time, to *time.Time, excludeID uuid.UUID) (bool, error)
}

// ServiceCodeReader is the slice of the registry needed for base-tariff
// fallback and category lookups.
type ServiceCodeReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*registry.ServiceCode, error)
}
