// Package registry holds the coverage reference data: HMO providers,
// their benefit packages, and the national service code catalog.
package registry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
)

// Provider is an HMO the hospital has a coverage agreement with.
type Provider struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	ContactEmail    *string   `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone    *string   `db:"contact_phone" json:"contact_phone,omitempty"`
	AccreditationNo *string   `db:"accreditation_no" json:"accreditation_no,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CopayKind discriminates the copay rule variants.
type CopayKind string

const (
	CopayNone       CopayKind = "none"
	CopayPercentage CopayKind = "percentage"
	CopayFixed      CopayKind = "fixed"
)

// CopayRule determines the patient's share of a claim line. Exactly one
// variant applies; use the constructors so a rule can never carry both a
// percentage and a fixed amount.
type CopayRule struct {
	Kind       CopayKind       `json:"kind"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// NoCopay returns the rule under which the insurer pays the full line.
func NoCopay() CopayRule {
	return CopayRule{Kind: CopayNone}
}

// PercentageCopay returns a rule charging the patient p percent of each
// line. p must be in [0, 100].
func PercentageCopay(p decimal.Decimal) (CopayRule, error) {
	if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
		return CopayRule{}, errs.Validation("copay percentage must be between 0 and 100, got %s", p)
	}
	return CopayRule{Kind: CopayPercentage, Percentage: p}, nil
}

// FixedCopay returns a rule charging the patient a fixed amount per line
// (per day for per-day service categories). a must not be negative.
func FixedCopay(a decimal.Decimal) (CopayRule, error) {
	if a.IsNegative() {
		return CopayRule{}, errs.Validation("copay amount must not be negative, got %s", a)
	}
	return CopayRule{Kind: CopayFixed, Amount: a}, nil
}

// ParseCopay builds a CopayRule from its wire representation. An empty
// kind means no copay. Supplying a value that does not belong to the
// kind is rejected.
func ParseCopay(kind string, percentage, amount *decimal.Decimal) (CopayRule, error) {
	switch CopayKind(kind) {
	case CopayNone, "":
		if percentage != nil || amount != nil {
			return CopayRule{}, errs.Validation("copay kind %q does not take a percentage or amount", kind)
		}
		return NoCopay(), nil
	case CopayPercentage:
		if percentage == nil || amount != nil {
			return CopayRule{}, errs.Validation("percentage copay requires a percentage and no amount")
		}
		return PercentageCopay(*percentage)
	case CopayFixed:
		if amount == nil || percentage != nil {
			return CopayRule{}, errs.Validation("fixed copay requires an amount and no percentage")
		}
		return FixedCopay(*amount)
	default:
		return CopayRule{}, errs.Validation("unknown copay kind %q", kind)
	}
}

// Columns splits the rule into the two nullable database columns.
func (r CopayRule) Columns() (percentage, amount *decimal.Decimal) {
	switch r.Kind {
	case CopayPercentage:
		p := r.Percentage
		return &p, nil
	case CopayFixed:
		a := r.Amount
		return nil, &a
	default:
		return nil, nil
	}
}

// CopayFromColumns reassembles a rule from its database columns. A row
// with both columns set is corrupt and rejected.
func CopayFromColumns(percentage, amount *decimal.Decimal) (CopayRule, error) {
	switch {
	case percentage != nil && amount != nil:
		return CopayRule{}, errs.Validation("copay rule has both a percentage and a fixed amount")
	case percentage != nil:
		return PercentageCopay(*percentage)
	case amount != nil:
		return FixedCopay(*amount)
	default:
		return NoCopay(), nil
	}
}

// ServiceCategory classifies a service code for tariff and copay rules.
type ServiceCategory string

const (
	CategoryConsultation  ServiceCategory = "consultation"
	CategoryLaboratory    ServiceCategory = "laboratory"
	CategoryRadiology     ServiceCategory = "radiology"
	CategoryProcedure     ServiceCategory = "procedure"
	CategoryInpatient     ServiceCategory = "inpatient"
	CategoryPharmacy      ServiceCategory = "pharmacy"
	CategoryMaternity     ServiceCategory = "maternity"
	CategoryDental        ServiceCategory = "dental"
	CategoryOptical       ServiceCategory = "optical"
	CategoryPhysiotherapy ServiceCategory = "physiotherapy"
	CategoryEmergency     ServiceCategory = "emergency"
	CategoryOther         ServiceCategory = "other"
)

var validCategories = map[ServiceCategory]bool{
	CategoryConsultation:  true,
	CategoryLaboratory:    true,
	CategoryRadiology:     true,
	CategoryProcedure:     true,
	CategoryInpatient:     true,
	CategoryPharmacy:      true,
	CategoryMaternity:     true,
	CategoryDental:        true,
	CategoryOptical:       true,
	CategoryPhysiotherapy: true,
	CategoryEmergency:     true,
	CategoryOther:         true,
}

// Valid reports whether c is a known category.
func (c ServiceCategory) Valid() bool { return validCategories[c] }

// ServiceCode is an entry in the national (NHIS) service catalog with
// its standard base tariff. Negotiated provider tariffs override the
// base tariff per provider.
type ServiceCode struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Code            string          `db:"code" json:"code"`
	Description     string          `db:"description" json:"description"`
	Category        ServiceCategory `db:"category" json:"category"`
	BaseTariff      decimal.Decimal `db:"base_tariff" json:"base_tariff"`
	PreauthRequired bool            `db:"preauth_required" json:"preauth_required"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Package is a benefit plan offered by a provider. A nil AnnualLimit
// means unlimited coverage. An empty CoveredCodes list means every
// service code is covered except those in ExcludedCodes.
type Package struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	ProviderID    uuid.UUID        `db:"provider_id" json:"provider_id"`
	Name          string           `db:"name" json:"name"`
	Description   *string          `db:"description" json:"description,omitempty"`
	AnnualLimit   *decimal.Decimal `db:"annual_limit" json:"annual_limit,omitempty"`
	Copay         CopayRule        `json:"copay"`
	CoveredCodes  []uuid.UUID      `db:"covered_codes" json:"covered_codes"`
	ExcludedCodes []uuid.UUID      `db:"excluded_codes" json:"excluded_codes"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the package covers the given service code.
// Exclusions win over the covered list.
func (p *Package) Covers(codeID uuid.UUID) bool {
	for _, id := range p.ExcludedCodes {
		if id == codeID {
			return false
		}
	}
	if len(p.CoveredCodes) == 0 {
		return true
	}
	for _, id := range p.CoveredCodes {
		if id == codeID {
			return true
		}
	}
	return false
}
