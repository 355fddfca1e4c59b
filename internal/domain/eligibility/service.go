package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/platform/clock"
)

// Service evaluates eligibility and manages enrollments.
type Service struct {
	enrollments    EnrollmentRepository
	packages       PackageReader
	usage          ClaimUsage
	commitStatuses []string
	clk            clock.Clock
}

// NewService builds the evaluator. commitStatuses lists the claim
// statuses that count against the annual limit; it comes from the
// limit-commit-stage policy setting.
func NewService(enrollments EnrollmentRepository, packages PackageReader, usage ClaimUsage, commitStatuses []string, clk clock.Clock) *Service {
	return &Service{
		enrollments:    enrollments,
		packages:       packages,
		usage:          usage,
		commitStatuses: commitStatuses,
		clk:            clk,
	}
}

// Check evaluates whether the patient is covered right now, optionally
// for a specific service code. It never returns a domain error for an
// ineligible patient; ineligibility is a result, not a failure.
func (s *Service) Check(ctx context.Context, patientID uuid.UUID, serviceCodeID *uuid.UUID) (*Result, error) {
	now := s.clk.Now()

	enr, err := s.enrollments.LatestByPatient(ctx, patientID)
	if err != nil {
		if errs.IsNotFound(err) {
			return &Result{
				Eligible: false,
				Status:   StatusNotEnrolled,
				Message:  "patient has no HMO enrollment",
			}, nil
		}
		return nil, err
	}

	switch status := enr.StatusAt(now); status {
	case StatusExpired:
		return &Result{
			Eligible:  false,
			Status:    StatusExpired,
			PackageID: &enr.PackageID,
			Message:   fmt.Sprintf("enrollment expired on %s", enr.EnrolledTo.Format("2006-01-02")),
		}, nil
	case StatusNotEnrolled:
		return &Result{
			Eligible:  false,
			Status:    StatusNotEnrolled,
			PackageID: &enr.PackageID,
			Message:   fmt.Sprintf("enrollment starts on %s", enr.EnrolledFrom.Format("2006-01-02")),
		}, nil
	}

	pkg, err := s.packages.GetByID(ctx, enr.PackageID)
	if err != nil {
		return nil, err
	}

	if serviceCodeID != nil && !pkg.Covers(*serviceCodeID) {
		return &Result{
			Eligible:  false,
			Status:    StatusActive,
			PackageID: &pkg.ID,
			Message:   fmt.Sprintf("service code %s is not covered by package %s", serviceCodeID, pkg.Name),
		}, nil
	}

	if pkg.AnnualLimit == nil {
		return &Result{
			Eligible:  true,
			Status:    StatusActive,
			PackageID: &pkg.ID,
			Message:   "eligible; package has no annual limit",
		}, nil
	}

	start, end := enr.PolicyYear(now)
	consumed, err := s.usage.ConsumedAmount(ctx, patientID, pkg.ID, start, end, s.commitStatuses)
	if err != nil {
		return nil, err
	}
	remaining := pkg.AnnualLimit.Sub(consumed)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if !remaining.IsPositive() {
		return &Result{
			Eligible:          false,
			Status:            StatusActive,
			PackageID:         &pkg.ID,
			CoverageRemaining: &remaining,
			Message:           "annual limit exhausted",
		}, nil
	}
	return &Result{
		Eligible:          true,
		Status:            StatusActive,
		PackageID:         &pkg.ID,
		CoverageRemaining: &remaining,
		Message:           fmt.Sprintf("eligible; %s remaining of annual limit", remaining.StringFixed(2)),
	}, nil
}

// CoverageFor returns the active enrollment and its package for claim
// adjudication. NotFound when the patient has no enrollment active on
// the given date.
func (s *Service) CoverageFor(ctx context.Context, patientID uuid.UUID, at time.Time) (*Enrollment, *registry.Package, error) {
	enr, err := s.enrollments.LatestByPatient(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	if enr.StatusAt(at) != StatusActive {
		return nil, nil, errs.NotFound("active enrollment", patientID.String())
	}
	pkg, err := s.packages.GetByID(ctx, enr.PackageID)
	if err != nil {
		return nil, nil, err
	}
	return enr, pkg, nil
}

// Enroll registers a patient on a package.
func (s *Service) Enroll(ctx context.Context, e *Enrollment) error {
	if e.PatientID == uuid.Nil {
		return errs.Validation("patient_id is required")
	}
	if e.EnrolledFrom.IsZero() {
		return errs.Validation("enrolled_from is required")
	}
	e.EnrolledFrom = clock.Day(e.EnrolledFrom)
	if e.EnrolledTo != nil {
		to := clock.Day(*e.EnrolledTo)
		e.EnrolledTo = &to
		if !e.EnrolledFrom.Before(to) {
			return errs.Validation("enrolled_to must be after enrolled_from")
		}
	}
	if _, err := s.packages.GetByID(ctx, e.PackageID); err != nil {
		return err
	}
	return s.enrollments.Create(ctx, e)
}

func (s *Service) GetEnrollment(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	return s.enrollments.GetByID(ctx, id)
}

func (s *Service) ListEnrollments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error) {
	return s.enrollments.ListByPatient(ctx, patientID, limit, offset)
}

// Terminate ends an enrollment at the given date (exclusive). A zero
// date terminates at the start of the next day, leaving today covered.
func (s *Service) Terminate(ctx context.Context, id uuid.UUID, to time.Time) error {
	enr, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = clock.Day(s.clk.Now()).AddDate(0, 0, 1)
	} else {
		to = clock.Day(to)
	}
	if !enr.EnrolledFrom.Before(to) {
		return errs.Validation("termination date must be after enrollment start")
	}
	return s.enrollments.Terminate(ctx, id, to)
}
