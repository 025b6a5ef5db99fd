package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/pkg/enums"
	"github.com/immofind/immofind-backend/pkg/types"
)

// Listing is a single real-estate ad. Sponsorship fields are mutated by the
// auto-boost applier and by paid boosts; readers must treat an elapsed
// sponsorship window as non-sponsored even if the flag was never cleared.
type Listing struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title        string              `gorm:"column:title;not null"`
	Description  string              `gorm:"column:description"`
	AgencyID     *uuid.UUID          `gorm:"column:agency_id;type:uuid;index"`
	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'pending'"`
	PropertyType enums.PropertyType  `gorm:"column:property_type;type:property_type;not null"`

	Price            decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	Surface          float64            `gorm:"column:surface;not null;default:0"`
	Rooms            int                `gorm:"column:rooms;not null;default:0"`
	RenovationScore  int                `gorm:"column:renovation_score;not null;default:0"`
	AnnualEnergyCost float64            `gorm:"column:annual_energy_cost"`
	DPEClass         *enums.EnergyClass `gorm:"column:dpe_class;type:energy_class"`
	GESClass         *enums.EnergyClass `gorm:"column:ges_class;type:energy_class"`
	InCoproperty     bool               `gorm:"column:in_coproperty;not null;default:false"`

	City       string                `gorm:"column:city;index"`
	PostalCode string                `gorm:"column:postal_code;index"`
	Department string                `gorm:"column:department"`
	Location   *types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	// ApproximateLocation marks listings whose published coordinates must be
	// obfuscated before they leave the core.
	ApproximateLocation bool `gorm:"column:approximate_location;not null;default:false"`

	IsSponsored        bool       `gorm:"column:is_sponsored;not null;default:false;index"`
	SponsoredAt        *time.Time `gorm:"column:sponsored_at"`
	SponsoredUntil     *time.Time `gorm:"column:sponsored_until"`
	AutoBoostApplied   bool       `gorm:"column:auto_boost_applied;not null;default:false"`
	AutoBoostRecurrent bool       `gorm:"column:auto_boost_recurrent;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SponsoredNow reports whether the sponsorship window is live at the given
// instant. Lazy expiry: the stored flag alone is never authoritative.
func (l *Listing) SponsoredNow(now time.Time) bool {
	if l == nil || !l.IsSponsored {
		return false
	}
	if l.SponsoredAt != nil && now.Before(*l.SponsoredAt) {
		return false
	}
	if l.SponsoredUntil != nil && now.After(*l.SponsoredUntil) {
		return false
	}
	return l.SponsoredAt != nil && l.SponsoredUntil != nil
}
