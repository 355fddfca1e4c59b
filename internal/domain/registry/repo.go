package registry

import (
	"context"

	"github.com/google/uuid"
)

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetByCode(ctx context.Context, code string) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
}

type PackageRepository interface {
	Create(ctx context.Context, p *Package) error
	GetByID(ctx context.Context, id uuid.UUID) (*Package, error)
	Update(ctx context.Context, p *Package) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Package, int, error)
}

type ServiceCodeRepository interface {
	Create(ctx context.Context, sc *ServiceCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceCode, error)
	GetByCode(ctx context.Context, code string) (*ServiceCode, error)
	Update(ctx context.Context, sc *ServiceCode) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category string, limit, offset int) ([]*ServiceCode, int, error)
}

// ReferenceChecker reports whether adjudication records (claims or
// pre-authorizations) still reference a provider. Deleting a provider
// with such references is refused; only its packages and tariffs
// cascade.
type ReferenceChecker interface {
	ProviderInUse(ctx context.Context, providerID uuid.UUID) (bool, error)
}
