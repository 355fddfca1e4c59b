package claims

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/domain/tariff"
	"github.com/hms/hms/internal/platform/clock"
)

// Service adjudicates claims and drives their lifecycle.
type Service struct {
	repo      Repository
	coverage  CoverageReader
	tariffs   TariffResolver
	codes     ServiceCodeReader
	submitter Submitter
	clk       clock.Clock
	log       zerolog.Logger

	// baseFallback controls whether claim creation falls back to the
	// service code's base tariff when no negotiated tariff covers the
	// service date. Off by default: missing tariffs abort the claim.
	baseFallback bool
}

func NewService(repo Repository, coverage CoverageReader, tariffs TariffResolver, codes ServiceCodeReader,
	submitter Submitter, clk clock.Clock, log zerolog.Logger, baseFallback bool) *Service {
	return &Service{
		repo:         repo,
		coverage:     coverage,
		tariffs:      tariffs,
		codes:        codes,
		submitter:    submitter,
		clk:          clk,
		log:          log,
		baseFallback: baseFallback,
	}
}

type ItemInput struct {
	ServiceCodeID uuid.UUID `json:"service_code_id"`
	Quantity      int       `json:"quantity"`
}

type CreateInput struct {
	PatientID   uuid.UUID   `json:"patient_id"`
	ProviderID  uuid.UUID   `json:"provider_id"`
	ServiceDate time.Time   `json:"service_date"`
	Items       []ItemInput `json:"items"`
}

// Create adjudicates and persists a new claim in status pending. Every
// line resolves its tariff as of the service date; the whole claim
// fails if any line cannot be priced.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Claim, error) {
	if len(in.Items) == 0 {
		return nil, errs.Validation("claim must have at least one item")
	}
	for i, item := range in.Items {
		if item.Quantity < 1 {
			return nil, errs.Validation("item %d: quantity must be at least 1", i)
		}
	}
	now := s.clk.Now()
	serviceDate := in.ServiceDate
	if serviceDate.IsZero() {
		serviceDate = now
	}

	cov, err := s.coverage.ActiveCoverage(ctx, in.PatientID, serviceDate)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Validation("patient has no active enrollment on the service date")
		}
		return nil, err
	}

	claimID := uuid.New()
	claim := &Claim{
		ID:           claimID,
		ClaimNumber:  claimNumber(claimID),
		PatientID:    in.PatientID,
		ProviderID:   in.ProviderID,
		PackageID:    cov.PackageID,
		EnrollmentID: cov.EnrollmentID,
		ClaimDate:    now,
		ServiceDate:  clock.Day(serviceDate),
		Status:       StatusPending,
	}

	var items []*ClaimItem
	for _, in := range in.Items {
		item, err := s.adjudicateLine(ctx, claim.ProviderID, cov, in, serviceDate)
		if err != nil {
			return nil, err
		}
		claim.TotalAmount = claim.TotalAmount.Add(item.LineTotal)
		claim.CopayAmount = claim.CopayAmount.Add(item.CopayAmount)
		items = append(items, item)
	}
	claim.ClaimAmount = claim.TotalAmount.Sub(claim.CopayAmount)
	if claim.ClaimAmount.IsNegative() {
		return nil, errs.Validation("copay %s exceeds claim total %s",
			claim.CopayAmount.StringFixed(2), claim.TotalAmount.StringFixed(2))
	}

	var guard *LimitGuard
	if cov.AnnualLimit != nil {
		guard = &LimitGuard{
			EnrollmentID: cov.EnrollmentID,
			AnnualLimit:  *cov.AnnualLimit,
			YearStart:    cov.YearStart,
			YearEnd:      cov.YearEnd,
		}
	}
	if err := s.repo.Create(ctx, claim, items, guard); err != nil {
		return nil, err
	}
	claim.Items = items
	s.log.Info().
		Str("claim_id", claim.ID.String()).
		Str("claim_number", claim.ClaimNumber).
		Str("claim_amount", claim.ClaimAmount.StringFixed(2)).
		Msg("claim created")
	return claim, nil
}

// adjudicateLine prices one claim line: resolve the tariff as of the
// service date, snapshot the code, and compute the line total and
// copay. A negotiated tariff without its own copay rule falls back to
// the package's default; a base-tariff fallback carries no copay.
func (s *Service) adjudicateLine(ctx context.Context, providerID uuid.UUID, cov *Coverage, in ItemInput, serviceDate time.Time) (*ClaimItem, error) {
	sc, err := s.codes.GetByID(ctx, in.ServiceCodeID)
	if err != nil {
		return nil, err
	}

	var resolved *tariff.Resolved
	if s.baseFallback {
		resolved, err = s.tariffs.ResolveWithFallback(ctx, providerID, in.ServiceCodeID, serviceDate)
	} else {
		resolved, err = s.tariffs.Resolve(ctx, providerID, in.ServiceCodeID, serviceDate)
	}
	if err != nil {
		return nil, err
	}

	rule := resolved.Copay
	if rule.Kind == registry.CopayNone && resolved.Source == tariff.SourceNegotiated {
		rule = cov.DefaultCopay
	}

	lineTotal := resolved.Amount.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2)
	return &ClaimItem{
		ServiceCodeID: sc.ID,
		Code:          sc.Code,
		Description:   sc.Description,
		Quantity:      in.Quantity,
		UnitPrice:     resolved.Amount,
		LineTotal:     lineTotal,
		CopayAmount:   tariff.LineCopay(rule, sc.Category, lineTotal, in.Quantity),
		TariffSource:  resolved.Source,
	}, nil
}

// Get returns a claim with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items, err = s.repo.ItemsByClaim(ctx, id)
	return c, err
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Claim, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Claim, int, error) {
	if status != "" && !validStatus(Status(status)) {
		return nil, 0, errs.Validation("unknown claim status %q", status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

// Submit moves pending → submitted and forwards the claim to the HMO.
// Forwarding failures are logged, not surfaced: the status change has
// already committed and retrying the handoff is an operational concern.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*Claim, error) {
	c, err := s.transition(ctx, id, StatusSubmitted, nil)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ItemsByClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	if err := s.submitter.Submit(ctx, c, items); err != nil {
		s.log.Error().Err(err).Str("claim_id", id.String()).Msg("claim handoff to HMO failed")
	}
	return c, nil
}

// Approve moves submitted → approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, StatusApproved, nil)
}

// Reject moves pending or submitted → rejected. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Claim, error) {
	if reason == "" {
		return nil, errs.Validation("rejection reason is required")
	}
	return s.transition(ctx, id, StatusRejected, &reason)
}

// MarkPaid moves approved → paid, the point at which the claim
// definitively consumes the annual limit.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, StatusPaid, nil)
}

// transition runs one compare-and-set step of the state machine. The
// from status is whatever the claim holds right now; if it does not
// permit the move, or a concurrent writer got there first, the caller
// gets InvalidStateTransition naming the status actually observed.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, reason *string) (*Claim, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if !CanTransition(from, to) {
		return nil, errs.InvalidTransition("claim "+c.ClaimNumber, string(from), string(to))
	}

	now := s.clk.Now()
	ok, err := s.repo.Transition(ctx, id, from, to, now, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, errs.InvalidTransition("claim "+cur.ClaimNumber, string(cur.Status), string(to))
	}
	s.log.Info().Str("claim_id", id.String()).Str("from", string(from)).Str("to", string(to)).Msg("claim transitioned")
	return s.repo.GetByID(ctx, id)
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// claimNumber builds a human-quotable claim reference from the claim's
// own id, so the number is traceable back to the record.
func claimNumber(id uuid.UUID) string {
	return "CLM-" + strings.ToUpper(id.String()[:8])
}
