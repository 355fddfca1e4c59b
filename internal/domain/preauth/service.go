package preauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/platform/clock"
)

// DefaultValidity is how long an approval stays usable when the
// approver does not set an explicit expiry date.
const DefaultValidity = 30 * 24 * time.Hour

// Service runs the pre-authorization state machine.
type Service struct {
	repo Repository
	clk  clock.Clock
	log  zerolog.Logger
}

func NewService(repo Repository, clk clock.Clock, log zerolog.Logger) *Service {
	return &Service{repo: repo, clk: clk, log: log}
}

// Create records a new request in status pending. Eligibility is the
// caller's precondition; the workflow stores the diagnosis and service
// snapshot without re-checking it.
func (s *Service) Create(ctx context.Context, p *PreAuthorization) error {
	if p.PatientID == uuid.Nil {
		return errs.Validation("patient_id is required")
	}
	if p.ProviderID == uuid.Nil {
		return errs.Validation("provider_id is required")
	}
	if p.Diagnosis == "" {
		return errs.Validation("diagnosis is required")
	}
	if p.RequestedAmount != nil && p.RequestedAmount.IsNegative() {
		return errs.Validation("requested amount must not be negative")
	}
	p.Status = StatusPending
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("preauth_id", p.ID.String()).Str("patient_id", p.PatientID.String()).Msg("pre-authorization requested")
	return nil
}

// Get returns the authorization with its lazily evaluated status.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PreAuthorization, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = p.EffectiveStatus(s.clk.Now())
	return p, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PreAuthorization, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.clk.Now()
	for _, p := range items {
		p.Status = p.EffectiveStatus(now)
	}
	return items, total, nil
}

// Approve moves pending → approved, setting the approved amount and the
// expiry date (defaulted when absent). A stale or already-decided
// authorization fails with InvalidStateTransition reporting the status
// actually observed.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, amount decimal.Decimal, expiry *time.Time) (*PreAuthorization, error) {
	if !amount.IsPositive() {
		return nil, errs.Validation("approved amount must be positive")
	}
	now := s.clk.Now()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur := p.EffectiveStatus(now); !CanTransition(cur, StatusApproved) {
		return nil, errs.InvalidTransition("pre-authorization", string(cur), string(StatusApproved))
	}

	exp := now.Add(DefaultValidity)
	if expiry != nil {
		if clock.Day(*expiry).Before(clock.Day(now)) {
			return nil, errs.Validation("expiry date must not be in the past")
		}
		exp = *expiry
	}

	ok, err := s.repo.Approve(ctx, id, amount, exp, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleTransition(ctx, id, StatusApproved, now)
	}
	s.log.Info().Str("preauth_id", id.String()).Str("amount", amount.StringFixed(2)).Msg("pre-authorization approved")
	return s.Get(ctx, id)
}

// Reject moves pending → rejected. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*PreAuthorization, error) {
	if reason == "" {
		return nil, errs.Validation("rejection reason is required")
	}
	now := s.clk.Now()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur := p.EffectiveStatus(now); !CanTransition(cur, StatusRejected) {
		return nil, errs.InvalidTransition("pre-authorization", string(cur), string(StatusRejected))
	}

	ok, err := s.repo.Reject(ctx, id, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleTransition(ctx, id, StatusRejected, now)
	}
	s.log.Info().Str("preauth_id", id.String()).Msg("pre-authorization rejected")
	return s.Get(ctx, id)
}

// staleTransition rebuilds the InvalidStateTransition error after a
// lost compare-and-set race, naming the status the winner left behind.
func (s *Service) staleTransition(ctx context.Context, id uuid.UUID, to Status, now time.Time) error {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errs.InvalidTransition("pre-authorization", string(cur.EffectiveStatus(now)), string(to))
}
