package boost

import (
	"time"

	"github.com/immofind/immofind-backend/internal/packs"
	"github.com/immofind/immofind-backend/pkg/db/models"
)

// Apply stamps a policy-granted sponsorship window onto a freshly submitted
// listing when the owning pack carries auto-boost. Packs without it leave
// the listing unsponsored. Re-application on later submissions is just this
// rule running again, there is no scheduler behind the recurrence flag.
func Apply(listing *models.Listing, cfg packs.Config, now time.Time) {
	if listing == nil || !cfg.AutoBoost.Enabled {
		return
	}
	from := now.UTC()
	until := from.Add(cfg.AutoBoost.Duration)

	listing.IsSponsored = true
	listing.SponsoredAt = &from
	listing.SponsoredUntil = &until
	listing.AutoBoostApplied = true
	listing.AutoBoostRecurrent = cfg.AutoBoost.Recurrent
}
