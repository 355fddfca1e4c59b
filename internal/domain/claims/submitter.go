package claims

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSubmitter records the handoff instead of calling an HMO intake
// API. Most HMOs in the deployment region accept claims by portal
// upload or email; electronic intake gets wired here per provider when
// available.
type LogSubmitter struct {
	log zerolog.Logger
}

func NewLogSubmitter(log zerolog.Logger) *LogSubmitter { return &LogSubmitter{log: log} }

func (s *LogSubmitter) Submit(_ context.Context, c *Claim, items []*ClaimItem) error {
	s.log.Info().
		Str("claim_number", c.ClaimNumber).
		Str("provider_id", c.ProviderID.String()).
		Str("claim_amount", c.ClaimAmount.StringFixed(2)).
		Int("items", len(items)).
		Msg("claim ready for HMO intake")
	return nil
}
