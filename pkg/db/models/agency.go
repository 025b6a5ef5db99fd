package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/pkg/enums"
)

// Agency owns listings and funds their sponsored placement. Subscription and
// CPC state live on the row itself; the immutable money trail is in
// cpc_transactions.
type Agency struct {
	ID     uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name   string             `gorm:"column:name;not null"`
	Status enums.AgencyStatus `gorm:"column:status;type:agency_status;not null;default:'pending'"`

	SubscriptionPack      enums.PackTier           `gorm:"column:subscription_pack;type:pack_tier;not null;default:'free'"`
	SubscriptionStatus    enums.SubscriptionStatus `gorm:"column:subscription_status;type:subscription_status;not null;default:'active'"`
	SubscriptionStartDate *time.Time               `gorm:"column:subscription_start_date"`
	StripeCustomerID      *string                  `gorm:"column:stripe_customer_id;index"`
	StripeSubscriptionID  *string                  `gorm:"column:stripe_subscription_id;index"`

	// CpcBalance must never go negative; debits are applied through a
	// conditional update guarded by the current balance.
	CpcBalance      decimal.Decimal `gorm:"column:cpc_balance;type:numeric(12,2);not null;default:0"`
	CpcTotalSpent   decimal.Decimal `gorm:"column:cpc_total_spent;type:numeric(12,2);not null;default:0"`
	CostPerClick    decimal.Decimal `gorm:"column:cost_per_click;type:numeric(8,2);not null;default:0.5"`
	ClicksThisMonth int             `gorm:"column:clicks_this_month;not null;default:0"`
	LastClickAt     *time.Time      `gorm:"column:last_click_at"`
	LastRechargeAt  *time.Time      `gorm:"column:last_recharge_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
