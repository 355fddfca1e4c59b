// Package claims implements claim creation (tariff resolution, copay and
// totals computation, annual-limit enforcement) and the claim lifecycle
// state machine.
package claims

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/tariff"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
)

// transitions is the single source of truth for the claim state
// machine. paid and rejected are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSubmitted, StatusRejected},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusPaid},
}

// CanTransition reports whether from → to is permitted.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return len(transitions[s]) == 0 }

// CommitStatuses maps the limit-commit-stage policy setting to the
// claim statuses that count against the annual limit when reporting
// coverage remaining. Stage "paid" counts only paid claims; anything
// else is the conservative default of approved and paid.
func CommitStatuses(stage string) []string {
	if stage == "paid" {
		return []string{string(StatusPaid)}
	}
	return []string{string(StatusApproved), string(StatusPaid)}
}

// Claim is a bill to an HMO for services rendered to an enrolled
// patient. Amounts are aggregates over the claim's items:
// ClaimAmount = TotalAmount − CopayAmount is what the insurer owes.
type Claim struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	ClaimNumber     string          `db:"claim_number" json:"claim_number"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	ProviderID      uuid.UUID       `db:"provider_id" json:"provider_id"`
	PackageID       uuid.UUID       `db:"package_id" json:"package_id"`
	EnrollmentID    uuid.UUID       `db:"enrollment_id" json:"enrollment_id"`
	ClaimDate       time.Time       `db:"claim_date" json:"claim_date"`
	ServiceDate     time.Time       `db:"service_date" json:"service_date"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	CopayAmount     decimal.Decimal `db:"copay_amount" json:"copay_amount"`
	ClaimAmount     decimal.Decimal `db:"claim_amount" json:"claim_amount"`
	Status          Status          `db:"status" json:"status"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`

	Items []*ClaimItem `json:"items,omitempty"`
}

// ClaimItem is one adjudicated line. Prices are snapshotted at creation
// so later tariff changes never alter a claim.
type ClaimItem struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	ClaimID       uuid.UUID       `db:"claim_id" json:"claim_id"`
	ServiceCodeID uuid.UUID       `db:"service_code_id" json:"service_code_id"`
	Code          string          `db:"code" json:"code"`
	Description   string          `db:"description" json:"description"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal     decimal.Decimal `db:"line_total" json:"line_total"`
	CopayAmount   decimal.Decimal `db:"copay_amount" json:"copay_amount"`
	TariffSource  tariff.Source   `db:"tariff_source" json:"tariff_source"`
}
