package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/immofind/immofind-backend/pkg/enums"
)

// CpcTransaction is an immutable ledger entry. Webhook delivery is
// at-least-once, so the external payment references carry partial unique
// indexes; a duplicate insert fails structurally, not just in application
// code. Rows are never updated or deleted.
type CpcTransaction struct {
	ID       uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID uuid.UUID                `gorm:"column:agency_id;type:uuid;not null;index"`
	Type     enums.CpcTransactionType `gorm:"column:type;type:cpc_transaction_type;not null"`

	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency     string          `gorm:"column:currency;not null;default:'EUR'"`
	CreditsAdded *int            `gorm:"column:credits_added"`
	Description  string          `gorm:"column:description"`

	StripePaymentIntentID   *string `gorm:"column:stripe_payment_intent_id;uniqueIndex:idx_cpc_tx_payment_intent,where:stripe_payment_intent_id IS NOT NULL"`
	StripeChargeID          *string `gorm:"column:stripe_charge_id;uniqueIndex:idx_cpc_tx_charge,where:stripe_charge_id IS NOT NULL"`
	StripeCheckoutSessionID *string `gorm:"column:stripe_checkout_session_id;uniqueIndex:idx_cpc_tx_checkout_session,where:stripe_checkout_session_id IS NOT NULL"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
}
