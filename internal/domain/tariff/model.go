// Package tariff resolves negotiated prices and copay rules for
// (provider, service code) pairs using date-ranged tariff records.
package tariff

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/registry"
)

// Tariff is a negotiated price for one (provider, service code) pair
// over a half-open validity interval [EffectiveFrom, EffectiveTo).
// A nil EffectiveTo means open-ended. Intervals for the same pair must
// not overlap, so at most one tariff is effective on any date.
type Tariff struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	ProviderID    uuid.UUID          `db:"provider_id" json:"provider_id"`
	ServiceCodeID uuid.UUID          `db:"service_code_id" json:"service_code_id"`
	Amount        decimal.Decimal    `db:"amount" json:"amount"`
	Copay         registry.CopayRule `json:"copay"`
	EffectiveFrom time.Time          `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time         `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// ActiveOn reports whether the tariff is effective on day d.
// The lower bound is inclusive, the upper bound exclusive.
func (t *Tariff) ActiveOn(d time.Time) bool {
	if d.Before(t.EffectiveFrom) {
		return false
	}
	return t.EffectiveTo == nil || d.Before(*t.EffectiveTo)
}

// Source says where a resolved price came from.
type Source string

const (
	SourceNegotiated Source = "negotiated"
	SourceBase       Source = "base"
)

// Resolved is the outcome of tariff resolution: the price to bill and
// the copay rule to apply. Base-tariff fallbacks carry no copay rule.
type Resolved struct {
	Amount decimal.Decimal    `json:"amount"`
	Copay  registry.CopayRule `json:"copay"`
	Source Source             `json:"source"`
}
