package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/pagination"
)

// Repository manages persistence for the CPC ledger: the append-only
// transaction log and the balance columns on the agency row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByExternalRefs(ctx context.Context, refs ExternalRefs) (*models.CpcTransaction, error)
	CreateTransaction(ctx context.Context, tx *models.CpcTransaction) error
	ListByAgency(ctx context.Context, agencyID uuid.UUID, params pagination.Params) ([]models.CpcTransaction, *pagination.Cursor, error)
	AddBalance(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal, rechargedAt time.Time) error
	// DebitBalance decrements the balance only when it still covers the
	// amount, in a single conditional update. Returns false when the guard
	// rejected the debit.
	DebitBalance(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal) (bool, error)
	GetAgency(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error)
	UpdateClickCounter(ctx context.Context, agencyID uuid.UUID, clicks int, clickedAt time.Time) error
}

// ExternalRefs carries the payment gateway identifiers that form a credit's
// idempotency key. At least one must be set.
type ExternalRefs struct {
	PaymentIntentID   string
	ChargeID          string
	CheckoutSessionID string
}

// Empty reports whether no reference is present.
func (r ExternalRefs) Empty() bool {
	return r.PaymentIntentID == "" && r.ChargeID == "" && r.CheckoutSessionID == ""
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByExternalRefs(ctx context.Context, refs ExternalRefs) (*models.CpcTransaction, error) {
	if refs.Empty() {
		return nil, nil
	}

	conditions := r.db.Session(&gorm.Session{NewDB: true}).Model(&models.CpcTransaction{})
	if refs.PaymentIntentID != "" {
		conditions = conditions.Or("stripe_payment_intent_id = ?", refs.PaymentIntentID)
	}
	if refs.ChargeID != "" {
		conditions = conditions.Or("stripe_charge_id = ?", refs.ChargeID)
	}
	if refs.CheckoutSessionID != "" {
		conditions = conditions.Or("stripe_checkout_session_id = ?", refs.CheckoutSessionID)
	}

	var tx models.CpcTransaction
	if err := r.db.WithContext(ctx).
		Model(&models.CpcTransaction{}).
		Where(conditions).
		First(&tx).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *repository) CreateTransaction(ctx context.Context, tx *models.CpcTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListByAgency pages the transaction log newest-first by created_at/id
// keyset. The returned cursor is nil on the final page.
func (r *repository) ListByAgency(ctx context.Context, agencyID uuid.UUID, params pagination.Params) ([]models.CpcTransaction, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("agency_id = ?", agencyID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var txs []models.CpcTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(txs) > limit {
		txs = txs[:limit]
		last := txs[len(txs)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return txs, next, nil
}

func (r *repository) AddBalance(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal, rechargedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Agency{}).
		Where("id = ?", agencyID).
		Updates(map[string]any{
			"cpc_balance":      gorm.Expr("cpc_balance + ?", amount),
			"last_recharge_at": rechargedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DebitBalance(ctx context.Context, agencyID uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Agency{}).
		Where("id = ? AND cpc_balance >= ?", agencyID, amount).
		Updates(map[string]any{
			"cpc_balance":     gorm.Expr("cpc_balance - ?", amount),
			"cpc_total_spent": gorm.Expr("cpc_total_spent + ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) GetAgency(ctx context.Context, agencyID uuid.UUID) (*models.Agency, error) {
	var agency models.Agency
	if err := r.db.WithContext(ctx).
		Where("id = ?", agencyID).
		First(&agency).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agency, nil
}

func (r *repository) UpdateClickCounter(ctx context.Context, agencyID uuid.UUID, clicks int, clickedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Agency{}).
		Where("id = ?", agencyID).
		Updates(map[string]any{
			"clicks_this_month": clicks,
			"last_click_at":     clickedAt,
		}).Error
}
