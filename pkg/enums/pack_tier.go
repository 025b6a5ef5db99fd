package enums

import "fmt"

// PackTier identifies a subscription pack. Tiers are ordered: free <
// starter < premium < platinum.
type PackTier string

const (
	PackTierFree     PackTier = "free"
	PackTierStarter  PackTier = "starter"
	PackTierPremium  PackTier = "premium"
	PackTierPlatinum PackTier = "platinum"
)

var validPackTiers = []PackTier{
	PackTierFree,
	PackTierStarter,
	PackTierPremium,
	PackTierPlatinum,
}

// String implements fmt.Stringer.
func (t PackTier) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t PackTier) IsValid() bool {
	for _, candidate := range validPackTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePackTier converts raw input into a PackTier.
func ParsePackTier(value string) (PackTier, error) {
	for _, candidate := range validPackTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pack tier %q", value)
}
