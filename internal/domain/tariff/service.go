package tariff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/platform/clock"
)

// Service validates tariff records and resolves effective prices.
type Service struct {
	tariffs Repository
	codes   ServiceCodeReader
}

func NewService(tariffs Repository, codes ServiceCodeReader) *Service {
	return &Service{tariffs: tariffs, codes: codes}
}

// Resolve returns the negotiated tariff effective for the pair on asOf.
// Dates are compared at day granularity. When no interval contains the
// date the result is a TariffNotFoundError; callers choose whether to
// fall back to the base tariff.
func (s *Service) Resolve(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*Resolved, error) {
	day := clock.Day(asOf)
	t, err := s.tariffs.FindEffective(ctx, providerID, serviceCodeID, day)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, &errs.TariffNotFoundError{
				ProviderID:    providerID.String(),
				ServiceCodeID: serviceCodeID.String(),
				AsOf:          day.Format("2006-01-02"),
			}
		}
		return nil, err
	}
	return &Resolved{Amount: t.Amount, Copay: t.Copay, Source: SourceNegotiated}, nil
}

// ResolveWithFallback resolves like Resolve but, when no negotiated
// tariff covers the date, falls back to the service code's base tariff
// with no copay rule. The fallback is reported through Resolved.Source.
func (s *Service) ResolveWithFallback(ctx context.Context, providerID, serviceCodeID uuid.UUID, asOf time.Time) (*Resolved, error) {
	r, err := s.Resolve(ctx, providerID, serviceCodeID, asOf)
	var tnf *errs.TariffNotFoundError
	if errors.As(err, &tnf) {
		sc, scErr := s.codes.GetByID(ctx, serviceCodeID)
		if scErr != nil {
			return nil, scErr
		}
		return &Resolved{Amount: sc.BaseTariff, Copay: registry.NoCopay(), Source: SourceBase}, nil
	}
	return r, err
}

func (s *Service) Create(ctx context.Context, t *Tariff) error {
	if err := s.validate(ctx, t, uuid.Nil); err != nil {
		return err
	}
	return s.tariffs.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Tariff, error) {
	return s.tariffs.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Tariff) error {
	if _, err := s.tariffs.GetByID(ctx, t.ID); err != nil {
		return err
	}
	if err := s.validate(ctx, t, t.ID); err != nil {
		return err
	}
	return s.tariffs.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.tariffs.GetByID(ctx, id); err != nil {
		return err
	}
	return s.tariffs.Delete(ctx, id)
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*Tariff, int, error) {
	return s.tariffs.ListByProvider(ctx, providerID, limit, offset)
}

// validate enforces the write-time invariants: non-negative amount, a
// well-formed interval, a known service code, and no overlap with any
// other interval for the same pair. Malformed copay rules are rejected
// at construction, never discovered during adjudication.
func (s *Service) validate(ctx context.Context, t *Tariff, excludeID uuid.UUID) error {
	if t.Amount.IsNegative() {
		return errs.Validation("tariff amount must not be negative")
	}
	if t.EffectiveFrom.IsZero() {
		return errs.Validation("effective_from is required")
	}
	t.EffectiveFrom = clock.Day(t.EffectiveFrom)
	if t.EffectiveTo != nil {
		to := clock.Day(*t.EffectiveTo)
		t.EffectiveTo = &to
		if !t.EffectiveFrom.Before(to) {
			return errs.Validation("effective_to must be after effective_from")
		}
	}
	if _, err := s.codes.GetByID(ctx, t.ServiceCodeID); err != nil {
		return err
	}
	overlaps, err := s.tariffs.Overlaps(ctx, t.ProviderID, t.ServiceCodeID, t.EffectiveFrom, t.EffectiveTo, excludeID)
	if err != nil {
		return err
	}
	if overlaps {
		return errs.Validation("tariff validity interval overlaps an existing tariff for this provider and service code")
	}
	return nil
}
