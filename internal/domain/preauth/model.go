// Package preauth implements the pre-authorization workflow: requests
// for insurer approval of expensive services before they are rendered.
package preauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/clock"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// transitions is the explicit state machine. Expiry is not listed: it
// is time-triggered and derived at read time, never requested.
var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

// CanTransition reports whether from → to is a permitted explicit
// transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PreAuthorization is a request for approval of a service, carrying a
// snapshot of the diagnosis and service at request time.
type PreAuthorization struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	PatientID       uuid.UUID        `db:"patient_id" json:"patient_id"`
	ProviderID      uuid.UUID        `db:"provider_id" json:"provider_id"`
	ServiceCodeID   *uuid.UUID       `db:"service_code_id" json:"service_code_id,omitempty"`
	Diagnosis       string           `db:"diagnosis" json:"diagnosis"`
	RequestedBy     string           `db:"requested_by" json:"requested_by"`
	RequestedAmount *decimal.Decimal `db:"requested_amount" json:"requested_amount,omitempty"`
	ApprovedAmount  *decimal.Decimal `db:"approved_amount" json:"approved_amount,omitempty"`
	Status          Status           `db:"status" json:"status"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ExpiryDate      *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	DecidedAt       *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus reports the status as of d. An approved authorization
// whose expiry date is before today reads as expired without any stored
// transition or background job.
func (p *PreAuthorization) EffectiveStatus(d time.Time) Status {
	if p.Status == StatusApproved && p.ExpiryDate != nil && clock.Day(*p.ExpiryDate).Before(clock.Day(d)) {
		return StatusExpired
	}
	return p.Status
}
