package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/immofind/immofind-backend/pkg/enums"
)

// SubscriptionHistory is the append-only audit trail of pack transitions.
// A row is written only when the pack value actually changes; webhook replays
// of the same transition add nothing.
type SubscriptionHistory struct {
	ID       uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID uuid.UUID      `gorm:"column:agency_id;type:uuid;not null;index"`
	FromPack enums.PackTier `gorm:"column:from_pack;type:pack_tier;not null"`
	ToPack   enums.PackTier `gorm:"column:to_pack;type:pack_tier;not null"`
	Reason   string         `gorm:"column:reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
