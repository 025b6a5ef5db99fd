package packs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/immofind/immofind-backend/pkg/enums"
)

func TestConfigForUnknownTierDefaultsToFree(t *testing.T) {
	cfg := ConfigFor(enums.PackTier("gold"))
	assert.Equal(t, enums.PackTierFree, cfg.Tier)
	assert.Equal(t, 0, cfg.DisplayPriority)

	empty := ConfigFor("")
	assert.Equal(t, enums.PackTierFree, empty.Tier)
}

func TestDisplayPriorityMonotonic(t *testing.T) {
	tiers := []enums.PackTier{
		enums.PackTierFree,
		enums.PackTierStarter,
		enums.PackTierPremium,
		enums.PackTierPlatinum,
	}
	previous := -1
	for _, tier := range tiers {
		cfg := ConfigFor(tier)
		assert.Greater(t, cfg.DisplayPriority, previous, "tier %s", tier)
		previous = cfg.DisplayPriority
	}
	assert.LessOrEqual(t, ConfigFor(enums.PackTierPlatinum).DisplayPriority, 3)
}

func TestEffectiveCPCPrice(t *testing.T) {
	base := decimal.RequireFromString("0.50")

	assert.True(t, EffectiveCPCPrice(enums.PackTierFree, base).Equal(base))
	assert.True(t, EffectiveCPCPrice(enums.PackTierPremium, base).Equal(decimal.RequireFromString("0.45")))
	assert.True(t, EffectiveCPCPrice(enums.PackTierPlatinum, base).Equal(decimal.RequireFromString("0.40")))
}

func TestRemainingQuota(t *testing.T) {
	tests := []struct {
		name   string
		tier   enums.PackTier
		active int
		want   int
	}{
		{"free with room", enums.PackTierFree, 3, 2},
		{"free at limit", enums.PackTierFree, 5, 0},
		{"free over limit clamps to zero", enums.PackTierFree, 9, 0},
		{"platinum unlimited", enums.PackTierPlatinum, 10_000, UnlimitedListings},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemainingQuota(tc.tier, tc.active))
		})
	}
}

func TestSuggestedUpgrade(t *testing.T) {
	assert.Equal(t, enums.PackTierStarter, SuggestedUpgrade(enums.PackTierFree))
	assert.Equal(t, enums.PackTierPremium, SuggestedUpgrade(enums.PackTierStarter))
	assert.Equal(t, enums.PackTierPlatinum, SuggestedUpgrade(enums.PackTierPremium))
	assert.Equal(t, enums.PackTierPlatinum, SuggestedUpgrade(enums.PackTierPlatinum))
	assert.Equal(t, enums.PackTierStarter, SuggestedUpgrade("bogus"))
}

func TestAutoBoostGrants(t *testing.T) {
	assert.False(t, ConfigFor(enums.PackTierFree).AutoBoost.Enabled)
	assert.False(t, ConfigFor(enums.PackTierStarter).AutoBoost.Enabled)

	premium := ConfigFor(enums.PackTierPremium).AutoBoost
	assert.True(t, premium.Enabled)
	assert.Equal(t, 48*time.Hour, premium.Duration)
	assert.False(t, premium.Recurrent)

	platinum := ConfigFor(enums.PackTierPlatinum).AutoBoost
	assert.True(t, platinum.Enabled)
	assert.True(t, platinum.Recurrent)
}
