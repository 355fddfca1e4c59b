// Package eligibility answers whether a patient's insurance covers a
// service right now, and tracks the enrollments that decision is based on.
package eligibility

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/clock"
)

// EnrollmentStatus is derived from the enrollment window, never stored.
type EnrollmentStatus string

const (
	StatusActive      EnrollmentStatus = "active"
	StatusExpired     EnrollmentStatus = "expired"
	StatusNotEnrolled EnrollmentStatus = "not_enrolled"
)

// Enrollment ties a patient to a benefit package over a coverage window.
// A nil EnrolledTo means the enrollment runs until terminated.
type Enrollment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	PackageID    uuid.UUID  `db:"package_id" json:"package_id"`
	MemberNumber *string    `db:"member_number" json:"member_number,omitempty"`
	EnrolledFrom time.Time  `db:"enrolled_from" json:"enrolled_from"`
	EnrolledTo   *time.Time `db:"enrolled_to" json:"enrolled_to,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// StatusAt derives the enrollment status on day d. The coverage window
// is half-open: the start day is covered, the end day is not.
func (e *Enrollment) StatusAt(d time.Time) EnrollmentStatus {
	day := clock.Day(d)
	if day.Before(clock.Day(e.EnrolledFrom)) {
		return StatusNotEnrolled
	}
	if e.EnrolledTo != nil && !day.Before(clock.Day(*e.EnrolledTo)) {
		return StatusExpired
	}
	return StatusActive
}

// PolicyYear returns the policy year containing d, anchored at the
// anniversary of the enrollment start. Annual-limit consumption is
// summed over this window.
func (e *Enrollment) PolicyYear(d time.Time) (start, end time.Time) {
	day := clock.Day(d)
	from := clock.Day(e.EnrolledFrom)
	start = time.Date(day.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	if start.After(day) {
		start = start.AddDate(-1, 0, 0)
	}
	return start, start.AddDate(1, 0, 0)
}

// Result is the outcome of an eligibility check. Message always states
// the decisive reason; callers must not re-derive it from the boolean.
// CoverageRemaining is nil when the package has no annual limit (or the
// check failed before the limit step), never zero-as-unlimited.
type Result struct {
	Eligible          bool             `json:"eligible"`
	Status            EnrollmentStatus `json:"status"`
	PackageID         *uuid.UUID       `json:"package_id,omitempty"`
	CoverageRemaining *decimal.Decimal `json:"coverage_remaining,omitempty"`
	Message           string           `json:"message"`
}
