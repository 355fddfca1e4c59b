package registry

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/errs"
)

// Service validates and orchestrates registry operations.
type Service struct {
	providers ProviderRepository
	packages  PackageRepository
	codes     ServiceCodeRepository
	refs      ReferenceChecker
	log       zerolog.Logger
}

func NewService(providers ProviderRepository, packages PackageRepository, codes ServiceCodeRepository, refs ReferenceChecker, log zerolog.Logger) *Service {
	return &Service{providers: providers, packages: packages, codes: codes, refs: refs, log: log}
}

// =========== Providers ===========

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return errs.Validation("provider name is required")
	}
	if p.Code == "" {
		return errs.Validation("provider code is required")
	}
	p.Active = true
	if err := s.providers.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("provider_id", p.ID.String()).Str("code", p.Code).Msg("provider created")
	return nil
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) GetProviderByCode(ctx context.Context, code string) (*Provider, error) {
	return s.providers.GetByCode(ctx, code)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return errs.Validation("provider name is required")
	}
	if _, err := s.providers.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

// DeleteProvider removes a provider and, by cascade, its packages and
// tariffs. Providers referenced by claims or pre-authorizations cannot
// be deleted; adjudication history must stay attributable.
func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	if _, err := s.providers.GetByID(ctx, id); err != nil {
		return err
	}
	inUse, err := s.refs.ProviderInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return errs.Validation("provider has claims or pre-authorizations and cannot be deleted")
	}
	if err := s.providers.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("provider_id", id.String()).Msg("provider deleted")
	return nil
}

// =========== Packages ===========

func (s *Service) CreatePackage(ctx context.Context, p *Package) error {
	if err := s.validatePackage(p); err != nil {
		return err
	}
	if _, err := s.providers.GetByID(ctx, p.ProviderID); err != nil {
		return err
	}
	return s.packages.Create(ctx, p)
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	return s.packages.GetByID(ctx, id)
}

func (s *Service) UpdatePackage(ctx context.Context, p *Package) error {
	if err := s.validatePackage(p); err != nil {
		return err
	}
	if _, err := s.packages.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.packages.Update(ctx, p)
}

func (s *Service) DeletePackage(ctx context.Context, id uuid.UUID) error {
	if _, err := s.packages.GetByID(ctx, id); err != nil {
		return err
	}
	return s.packages.Delete(ctx, id)
}

func (s *Service) ListPackages(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Package, int, error) {
	return s.packages.ListByProvider(ctx, providerID, limit, offset)
}

func (s *Service) validatePackage(p *Package) error {
	if p.Name == "" {
		return errs.Validation("package name is required")
	}
	if p.AnnualLimit != nil && !p.AnnualLimit.IsPositive() {
		return errs.Validation("annual limit must be positive when set")
	}
	excluded := make(map[uuid.UUID]bool, len(p.ExcludedCodes))
	for _, id := range p.ExcludedCodes {
		excluded[id] = true
	}
	for _, id := range p.CoveredCodes {
		if excluded[id] {
			return errs.Validation("service code %s is both covered and excluded", id)
		}
	}
	return nil
}

// =========== Service codes ===========

func (s *Service) CreateServiceCode(ctx context.Context, sc *ServiceCode) error {
	if err := validateServiceCode(sc); err != nil {
		return err
	}
	return s.codes.Create(ctx, sc)
}

func (s *Service) GetServiceCode(ctx context.Context, id uuid.UUID) (*ServiceCode, error) {
	return s.codes.GetByID(ctx, id)
}

func (s *Service) GetServiceCodeByCode(ctx context.Context, code string) (*ServiceCode, error) {
	return s.codes.GetByCode(ctx, code)
}

func (s *Service) UpdateServiceCode(ctx context.Context, sc *ServiceCode) error {
	if err := validateServiceCode(sc); err != nil {
		return err
	}
	if _, err := s.codes.GetByID(ctx, sc.ID); err != nil {
		return err
	}
	return s.codes.Update(ctx, sc)
}

func (s *Service) DeleteServiceCode(ctx context.Context, id uuid.UUID) error {
	if _, err := s.codes.GetByID(ctx, id); err != nil {
		return err
	}
	return s.codes.Delete(ctx, id)
}

func (s *Service) ListServiceCodes(ctx context.Context, category string, limit, offset int) ([]*ServiceCode, int, error) {
	if category != "" && !ServiceCategory(category).Valid() {
		return nil, 0, errs.Validation("unknown service category %q", category)
	}
	return s.codes.List(ctx, category, limit, offset)
}

func validateServiceCode(sc *ServiceCode) error {
	if sc.Code == "" {
		return errs.Validation("service code is required")
	}
	if sc.Description == "" {
		return errs.Validation("service code description is required")
	}
	if !sc.Category.Valid() {
		return errs.Validation("unknown service category %q", sc.Category)
	}
	if sc.BaseTariff.IsNegative() {
		return errs.Validation("base tariff must not be negative")
	}
	return nil
}
