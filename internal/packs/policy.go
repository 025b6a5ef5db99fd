package packs

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/pkg/enums"
)

// UnlimitedListings marks a pack with no active-listing cap.
const UnlimitedListings = -1

// Feature flags granted by tiers.
const (
	FeatureBasicListings   = "basic_listings"
	FeatureAgencyBadge     = "agency_badge"
	FeatureMapHighlight    = "map_highlight"
	FeatureAutoBoost       = "auto_boost"
	FeatureCompetitorStats = "competitor_stats"
)

// AutoBoost describes the free sponsorship window a pack grants to newly
// submitted listings.
type AutoBoost struct {
	Enabled   bool
	Duration  time.Duration
	Recurrent bool
}

// Stats gates which analytics panels an agency may see.
type Stats struct {
	Views       bool
	Clicks      bool
	Contacts    bool
	Competitors bool
}

// Config is the full feature set granted by a subscription tier. The table
// is code, not storage: tiers change with releases, not with data.
type Config struct {
	Tier               enums.PackTier
	MaxActiveListings  int
	DisplayPriority    int
	MapHighlight       bool
	AutoBoost          AutoBoost
	CPCDiscountPercent int
	CPCMaxDurationDays int
	Stats              Stats
	Features           []string
}

var configByTier = map[enums.PackTier]Config{
	enums.PackTierFree: {
		Tier:               enums.PackTierFree,
		MaxActiveListings:  5,
		DisplayPriority:    0,
		CPCMaxDurationDays: 7,
		Stats:              Stats{Views: true},
		Features:           []string{"basic_listings"},
	},
	enums.PackTierStarter: {
		Tier:               enums.PackTierStarter,
		MaxActiveListings:  25,
		DisplayPriority:    1,
		CPCDiscountPercent: 5,
		CPCMaxDurationDays: 14,
		Stats:              Stats{Views: true, Clicks: true},
		Features:           []string{"basic_listings", "agency_badge"},
	},
	enums.PackTierPremium: {
		Tier:              enums.PackTierPremium,
		MaxActiveListings: 100,
		DisplayPriority:   2,
		MapHighlight:      true,
		AutoBoost: AutoBoost{
			Enabled:  true,
			Duration: 48 * time.Hour,
		},
		CPCDiscountPercent: 10,
		CPCMaxDurationDays: 30,
		Stats:              Stats{Views: true, Clicks: true, Contacts: true},
		Features:           []string{"basic_listings", "agency_badge", "map_highlight", "auto_boost"},
	},
	enums.PackTierPlatinum: {
		Tier:              enums.PackTierPlatinum,
		MaxActiveListings: UnlimitedListings,
		DisplayPriority:   3,
		MapHighlight:      true,
		AutoBoost: AutoBoost{
			Enabled:   true,
			Duration:  72 * time.Hour,
			Recurrent: true,
		},
		CPCDiscountPercent: 20,
		CPCMaxDurationDays: 60,
		Stats:              Stats{Views: true, Clicks: true, Contacts: true, Competitors: true},
		Features:           []string{"basic_listings", "agency_badge", "map_highlight", "auto_boost", "competitor_stats"},
	},
}

// HasFeature reports whether the tier grants a named feature flag.
func (c Config) HasFeature(name string) bool {
	for _, feature := range c.Features {
		if feature == name {
			return true
		}
	}
	return false
}

var upgradeOrder = []enums.PackTier{
	enums.PackTierFree,
	enums.PackTierStarter,
	enums.PackTierPremium,
	enums.PackTierPlatinum,
}

// ConfigFor returns the pack configuration for a tier. Unknown or empty
// tiers resolve to the free tier so a bad stored value never blocks reads.
func ConfigFor(tier enums.PackTier) Config {
	if cfg, ok := configByTier[tier]; ok {
		return cfg
	}
	return configByTier[enums.PackTierFree]
}

// EffectiveCPCPrice applies the tier's discount to the agency's base
// cost-per-click.
func EffectiveCPCPrice(tier enums.PackTier, basePrice decimal.Decimal) decimal.Decimal {
	discount := ConfigFor(tier).CPCDiscountPercent
	if discount <= 0 {
		return basePrice
	}
	factor := decimal.NewFromInt(int64(100 - discount)).Div(decimal.NewFromInt(100))
	return basePrice.Mul(factor).Round(2)
}

// RemainingQuota returns how many more listings the tier allows given the
// current active count, or UnlimitedListings when the pack has no cap.
func RemainingQuota(tier enums.PackTier, activeCount int) int {
	cfg := ConfigFor(tier)
	if cfg.MaxActiveListings == UnlimitedListings {
		return UnlimitedListings
	}
	remaining := cfg.MaxActiveListings - activeCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SuggestedUpgrade names the next tier up, used in quota-exceeded errors.
// The top tier suggests itself.
func SuggestedUpgrade(tier enums.PackTier) enums.PackTier {
	current := ConfigFor(tier).Tier
	for i, candidate := range upgradeOrder {
		if candidate == current && i+1 < len(upgradeOrder) {
			return upgradeOrder[i+1]
		}
	}
	return upgradeOrder[len(upgradeOrder)-1]
}
